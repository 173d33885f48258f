package main

import (
	"github.com/spf13/cobra"

	"nciso/server/internal/mcpstdio"
)

var stdioLang string

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve MCP over stdin/stdout for local clients",
	Long: "Serve the ISMS tools over MCP stdio. There is no bearer auth on this " +
		"transport; every call runs as a trusted operator in the tenant named by its arguments.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		s, err := mcpstdio.New("nciso-isms", version, stdioLang)
		if err != nil {
			return err
		}
		return mcpstdio.Serve(s)
	},
}

func init() {
	stdioCmd.Flags().StringVar(&stdioLang, "lang", "en-US", "Language of tool descriptions (en-US or pt-BR)")
}
