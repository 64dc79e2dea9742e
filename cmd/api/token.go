package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"family-locator/internal/adapters/auth/jwtauth"
	"family-locator/internal/config"
	"family-locator/internal/ports/auth"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Auth.DevMode() {
				return errors.New("auth.jwt_secret is not set (dev mode uses X-Debug-User-ID)")
			}
			if strings.TrimSpace(userID) == "" {
				return errors.New("--user-id is required")
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}

			var issuer auth.TokenIssuer = jwtauth.New(jwtauth.Config{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer})
			tok, err := issuer.Issue(auth.Claims{UserID: userID, Email: email}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "Subject of the token")
	cmd.Flags().StringVar(&email, "email", "", "Optional email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default auth.token_ttl)")
	return cmd
}
