package main

import (
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"nciso/server/pkg/supabaseapi"
)

var whoamiToken string

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Look up the Supabase Auth user behind an access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := supabaseapi.NewClient(supabaseapi.Config{
			URL:            cfg.SupabaseURL,
			AnonKey:        cfg.SupabaseAnonKey,
			ServiceRoleKey: cfg.SupabaseServiceRoleKey,
		})
		if err != nil {
			return err
		}
		user, err := client.GetUser(cmd.Context(), whoamiToken)
		if err != nil {
			return errors.Wrap(err, "get user")
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(user)
	},
}

func init() {
	whoamiCmd.Flags().StringVar(&whoamiToken, "token", "", "Access token to resolve")
	_ = whoamiCmd.MarkFlagRequired("token")
}
