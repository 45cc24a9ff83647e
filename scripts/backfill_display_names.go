package main

import (
	"context"
	"fmt"
	"log"

	"github.com/AlexTLDR/kitchentable/internal/config"
	"github.com/AlexTLDR/kitchentable/internal/database"
	"github.com/joho/godotenv"
)

// Copies each user's global display name onto table memberships that were
// created before per-table names existed.
func main() {
	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM table_members`).Scan(&total); err != nil {
		log.Fatalf("Failed to count memberships: %v", err)
	}

	var updated int64
	err = db.WithTx(ctx, func(q *database.Queries) error {
		updated, err = q.BackfillMemberDisplayNames(ctx)
		return err
	})
	if err != nil {
		log.Fatalf("Failed to backfill display names: %v", err)
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Memberships: %d\n", total)
	fmt.Printf("  Updated: %d\n", updated)
	fmt.Printf("  Unchanged: %d\n", int64(total)-updated)
}
