package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "nciso-server",
	Short:         "n.CISO ISMS server",
	Long:          "ISMS operations for n.CISO tenants over REST, MCP (HTTP/SSE) and MCP stdio.",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.Version = version
	rootCmd.AddCommand(serveCmd, stdioCmd, tokenCmd, whoamiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
