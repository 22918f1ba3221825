package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/uof-cases/incident-service/internal/config"
	"github.com/uof-cases/incident-service/internal/database"
	"github.com/uof-cases/incident-service/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup("info")
		cfg := config.Load()

		db, err := database.Connect(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(db); err != nil {
			slog.Error("migration failed", "error", err)
			return err
		}
		slog.Info("migration complete")
		return nil
	},
}
