package migration

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations returns the embedded SQL migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// EnsureMigrated applies pending migrations and logs each applied step.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger, dbHost string) error {
	start := time.Now()
	log := logger.With("component", "database", "db_host", dbHost)

	log.Info("migration check", "event", "db_migration_check", "status", "starting")

	provider, err := goose.NewProvider(goose.DialectPostgres, db, Migrations())
	if err != nil {
		log.Error("migration setup failed",
			"event", "db_migration_failed",
			"status", "error",
			"error_message", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	for _, r := range results {
		if r.Error != nil {
			continue
		}
		log.Info("migration step applied",
			"event", "db_migration_step",
			"status", "success",
			"migration_step", r.Source.Path,
			"version", r.Source.Version,
			"step_duration_ms", r.Duration.Milliseconds(),
		)
	}
	if err != nil {
		log.Error("migration failed",
			"event", "db_migration_failed",
			"status", "error",
			"error_message", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}

	if len(results) == 0 {
		log.Info("schema up to date, skipping migration",
			"event", "db_migration_skip",
			"status", "success",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info("migration complete",
		"event", "db_migration_success",
		"status", "success",
		"applied", len(results),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
