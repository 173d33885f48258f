package main

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"nciso/server/internal/auth"
	"nciso/server/internal/middleware"
)

var tokenFlags struct {
	userID   string
	email    string
	tenantID string
	role     string
	ttl      time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development access token signed with SUPABASE_JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if tokenFlags.role != "" && !middleware.ValidRole(tokenFlags.role) {
			return errors.Errorf("unknown role %q", tokenFlags.role)
		}
		tok, err := auth.IssueToken(cfg.SupabaseJWTSecret, auth.Identity{
			UserID:   tokenFlags.userID,
			Email:    tokenFlags.email,
			TenantID: tokenFlags.tenantID,
			Role:     tokenFlags.role,
		}, "", tokenFlags.ttl)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
		return err
	},
}

func init() {
	f := tokenCmd.Flags()
	f.StringVar(&tokenFlags.userID, "user", "", "User ID (sub claim)")
	f.StringVar(&tokenFlags.email, "email", "", "Email claim")
	f.StringVar(&tokenFlags.tenantID, "tenant", "", "Tenant ID; resolved from tenant_members when empty")
	f.StringVar(&tokenFlags.role, "role", "", "ISMS role; resolved from tenant_members when empty")
	f.DurationVar(&tokenFlags.ttl, "ttl", time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
}
