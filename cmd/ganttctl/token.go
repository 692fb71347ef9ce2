package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ganttservice/pkg/config"
	"ganttservice/pkg/util"
)

func newTokenCmd() *cobra.Command {
	var (
		userID int
		secret string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("--user-id must be positive")
			}
			if secret == "" {
				return errors.New("no secret: pass --secret or set JWT_SECRET")
			}
			token, err := util.GenerateJWT(userID, secret, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().IntVar(&userID, "user-id", 0, "user id claim")
	cmd.Flags().StringVar(&secret, "secret", config.GetEnv("JWT_SECRET", ""), "HMAC secret")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
