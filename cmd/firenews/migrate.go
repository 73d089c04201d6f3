package main

import (
	"fire-news/internal/database"
	"fire-news/internal/logging"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := database.Connect(cfg.Database); err != nil {
			return err
		}
		defer database.Close()

		if err := database.Migrate(); err != nil {
			return err
		}
		logging.Logger.Info().Str("driver", cfg.Database.Driver).Msg("schema is up to date")
		return nil
	},
}
