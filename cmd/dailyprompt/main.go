// Command dailyprompt makes sure every table has its prompt for the active
// date. It runs on a cron schedule, or once with -once.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlexTLDR/kitchentable/internal/config"
	"github.com/AlexTLDR/kitchentable/internal/database"
	"github.com/AlexTLDR/kitchentable/internal/journal"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const runTimeout = 2 * time.Minute

func main() {
	once := flag.Bool("once", false, "ensure prompts once and exit")
	flag.Parse()

	if err := run(*once); err != nil {
		logrus.WithError(err).Fatal("dailyprompt exited")
	}
}

func run(once bool) (err error) {
	envErr := godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	if envErr != nil {
		log.WithError(envErr).Debug(".env file not loaded")
	}

	db, err := database.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, db.Close())
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	svc := journal.NewService(db, log, journal.WithLocation(cfg.Location))
	ensure := func() error {
		runCtx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()
		_, err := svc.EnsureActivePrompts(runCtx)
		return err
	}

	if once {
		return ensure()
	}

	c := cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
	)
	if _, err := c.AddFunc(cfg.DailyPromptSchedule, func() {
		// failures are logged per table by the service
		_ = ensure()
	}); err != nil {
		return err
	}

	log.WithField("schedule", cfg.DailyPromptSchedule).Info("daily prompt scheduler started")
	c.Start()
	// catch up right away instead of waiting for the first tick
	_ = ensure()

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("daily prompt scheduler stopped")
	return nil
}
