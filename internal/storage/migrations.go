package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration. Queries are written in
// the dialect shared by SQLite and Postgres.
type Migration struct {
	Description string
	Queries     []string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Queries: []string{
			`CREATE TABLE IF NOT EXISTS transactions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				hash TEXT UNIQUE NOT NULL,
				date TIMESTAMP NOT NULL,
				type TEXT NOT NULL,
				description TEXT NOT NULL,
				category_id TEXT,
				merchant TEXT,
				amount DOUBLE PRECISION NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date)`,
		},
	},
	{
		Version:     2,
		Description: "Index category history lookups",
		Queries: []string{
			`CREATE INDEX IF NOT EXISTS idx_transactions_user_category_date ON transactions(user_id, category_id, date)`,
		},
	},
	{
		Version:     3,
		Description: "Track review flags",
		Queries: []string{
			`ALTER TABLE transactions ADD COLUMN is_unusual BOOLEAN NOT NULL DEFAULT FALSE`,
			`ALTER TABLE transactions ADD COLUMN confidence DOUBLE PRECISION NOT NULL DEFAULT 0`,
		},
	},
}

// versioner reads and records the schema version for one backend.
type versioner interface {
	currentVersion(ctx context.Context, db *sql.DB) (int, error)
	setVersion(ctx context.Context, tx *sql.Tx, version int) error
}

// migrate applies every pending migration, one transaction each.
func migrate(ctx context.Context, db *sql.DB, v versioner, logger *slog.Logger) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	current, err := v.currentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}

		tx, txErr := db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		for _, query := range migration.Queries {
			if _, execErr := tx.ExecContext(ctx, query); execErr != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d failed: %w", migration.Version, execErr)
			}
		}

		if verErr := v.setVersion(ctx, tx, migration.Version); verErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", verErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		logger.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	final, err := v.currentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, final)
	}

	return nil
}
