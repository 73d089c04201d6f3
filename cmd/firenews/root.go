package main

import (
	"fmt"
	"os"

	"fire-news/internal/config"
	"fire-news/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:           "firenews",
	Short:         "FIRE news credibility backend",
	Long:          "firenews scores submitted articles for misinformation risk and serves the moderation workflow.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file (default $"+config.ConfigPathEnv+")")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "firenews %s (commit: %s)\n", version, commit)
	},
}

// loadConfig reads .env, the config file and the environment, then sets up
// logging from the result.
func loadConfig() (config.Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	logging.Init(cfg.Logging.Level, "firenews")
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
