package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/config"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/httpapi"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		role, subject string
		ttl           time.Duration
		tf            tenantFlags
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API, signed with AUTH_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenant, err := tf.tenant()
			if err != nil {
				return err
			}
			tokens, err := httpapi.NewTokenManager(config.Load().AuthSecret, ttl)
			if err != nil {
				return err
			}
			signed, expiresAt, err := tokens.IssueToken(subject, tenant, role, ttl)
			if err != nil {
				return err
			}
			return opts.printJSON(map[string]string{
				"access_token": signed,
				"role":         role,
				"expires_at":   expiresAt.Format(time.RFC3339),
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", httpapi.RoleAdmin, "viewer or admin")
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	tf.register(cmd)
	return cmd
}
