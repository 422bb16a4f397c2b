package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/docvault/migrations"
	"github.com/platinummonkey/docvault/pkg/observability"
)

const migrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`

// Migrate applies every embedded migration that has not run yet, each in
// its own transaction. It returns the names it applied.
func Migrate(ctx context.Context, db *sql.DB, logger *observability.Logger) ([]string, error) {
	all, err := migrations.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return apply(ctx, db, all, logger)
}

func apply(ctx context.Context, db *sql.DB, all []migrations.Migration, logger *observability.Logger) ([]string, error) {
	if _, err := db.ExecContext(ctx, migrationsTable); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var applied []string
	for _, m := range all {
		var exists bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, m.Name).Scan(&exists)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", m.Name, err)
		}
		if exists {
			continue
		}

		if err := applyOne(ctx, db, m); err != nil {
			return applied, err
		}
		logger.WithField("migration", m.Name).Info("Applied migration")
		applied = append(applied, m.Name)
	}
	return applied, nil
}

func applyOne(ctx context.Context, db *sql.DB, m migrations.Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", m.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", m.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, m.Name); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.Name, err)
	}
	return tx.Commit()
}
