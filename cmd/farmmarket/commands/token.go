package commands

import (
	"fmt"
	"time"

	"github.com/safar/farmmarket/internal/api"
	"github.com/safar/farmmarket/internal/config"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a development bearer token",
	Long: `Sign a bearer token for user-id with AUTH_JWT_SECRET. Use it to call the
API locally without the auth provider.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")
		return runToken(args[0], ttl)
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}

func runToken(userID string, ttl time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}

	token, err := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Sign(userID, ttl)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
