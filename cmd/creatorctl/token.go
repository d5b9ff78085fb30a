package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/creatorlink/creatorlink/internal/auth"
)

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Sign a bearer token with JWT_SECRET for local testing",
	RunE:  runIssueToken,
}

var (
	tokenUserID string
	tokenEmail  string
	tokenTTL    time.Duration
)

func init() {
	issueTokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "Token subject")
	issueTokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email claim")
	issueTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
	_ = issueTokenCmd.MarkFlagRequired("user-id")
}

func runIssueToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		return fmt.Errorf("issue-token is disabled when APP_ENV=production")
	}

	token, err := auth.NewVerifier(cfg.JWTSecret).Issue(tokenUserID, tokenEmail, tokenTTL)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
