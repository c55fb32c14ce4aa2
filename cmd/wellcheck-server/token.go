package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wellcheck/wellcheck/internal/config"
	"github.com/wellcheck/wellcheck/internal/platform/auth"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an API token with AUTH_SIGNING_KEY (for local testing)",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			roles, _ := cmd.Flags().GetStringSlice("roles")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AuthSigningKey == "" {
				return fmt.Errorf("AUTH_SIGNING_KEY is required")
			}
			for _, r := range roles {
				switch r {
				case auth.RoleRespondent, auth.RoleClinician, auth.RoleAdmin:
				default:
					return fmt.Errorf("unknown role %q (want %s)", r,
						strings.Join([]string{auth.RoleRespondent, auth.RoleClinician, auth.RoleAdmin}, ", "))
				}
			}
			tok, err := auth.IssueToken(jwtConfig(cfg), subject, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().String("subject", "dev-user", "Token subject (user id)")
	cmd.Flags().StringSlice("roles", []string{auth.RoleRespondent}, "Roles to grant")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	return cmd
}
