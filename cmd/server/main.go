package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlexTLDR/kitchentable/internal/config"
	"github.com/AlexTLDR/kitchentable/internal/database"
	"github.com/AlexTLDR/kitchentable/internal/journal"
	"github.com/AlexTLDR/kitchentable/internal/mail"
	"github.com/AlexTLDR/kitchentable/internal/server"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}

func run() (err error) {
	// Load .env file (ignore error if a file doesn't exist)
	// Use Overload to force to overwrite any existing environment variables
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
	srv := server.New(cfg, db, svc, mail.New(cfg, log), log)

	if !cfg.MailEnabled() {
		log.Warn("SMTP not configured, password reset links will only be logged")
	}
	log.WithFields(logrus.Fields{
		"driver":   cfg.DatabaseDriver,
		"timezone": cfg.Location.String(),
	}).Info("kitchen table ready")

	return srv.Start(ctx, ":"+cfg.Port)
}
