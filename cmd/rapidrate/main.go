// Command rapidrate serves rapid rating trials and exports their results.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "rapidrate"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Rapid multi-item rating service",
		Long: `rapidrate hosts rating trials: participants rate a list of items on
0-100 tracks (or mark them "none") and submit by key, button, secondary
click or timeout. Finalized results are stored in sqlite or postgres.

Configuration comes from the environment (HTTP_ADDR, DB_DRIVER, DB_DSN,
AUTH_HMAC_SECRET, ADMIN_USER, ADMIN_PASS_HASH, PRESETS_FILE, ...).`,
		SilenceUsage: true,
	}
	cmd.AddCommand(serveCmd(), exportCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	return cmd
}
