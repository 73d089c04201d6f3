package main

import (
	"fmt"
	"time"

	"fire-news/internal/auth"

	"github.com/spf13/cobra"
)

var flagTokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <moderator-id>",
	Short: "Mint a moderator bearer token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ttl := cfg.Auth.TokenTTL
		if flagTokenTTL > 0 {
			ttl = flagTokenTTL
		}

		token, err := auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Issue(args[0], ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", 0, "token lifetime (default from auth.token_ttl)")
}
