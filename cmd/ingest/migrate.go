package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ingest/internal/cli"
	"github.com/Veraticus/spice-ingest/internal/config"
	"github.com/Veraticus/spice-ingest/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Create or update the transaction history schema in the configured
storage backend (storage.driver).`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.Driver == config.StorageNone {
		return fmt.Errorf("storage is disabled (storage.driver=none)")
	}

	slog.Info("Starting database migration", "driver", cfg.Storage.Driver)

	// openStore migrates as part of opening.
	store, err := openStore(cmd.Context(), cfg.Storage, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	_, err = fmt.Fprintln(cmd.OutOrStdout(),
		cli.FormatSuccess(fmt.Sprintf("Database schema is at version %d", storage.ExpectedSchemaVersion)))
	return err
}
