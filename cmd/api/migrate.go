package main

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/redmonkez12/tutorhub-identity/internal/database"
)

type migrateFunc func(ctx context.Context, db *sql.DB) error

var (
	migrateUp     migrateFunc = database.MigrateUp
	migrateDown   migrateFunc = database.MigrateDown
	migrateStatus migrateFunc = database.MigrationStatus
)

func runMigrate(fn migrateFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := database.Open(cmd.Context(), cfg.Database.ConnectionString())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := fn(cmd.Context(), db.DB); err != nil {
			return err
		}

		logger.Info("migration command finished", "command", cmd.Name())
		return nil
	}
}
