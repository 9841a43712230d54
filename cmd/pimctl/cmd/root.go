// Package cmd provides the CLI commands for pimctl.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pimctl",
	Short: "pimctl - Privileged Identity Management role activation",
	Long: `pimctl lists, activates and deactivates your eligible Entra ID directory
roles and PIM group memberships.

Policy requirements (justification, ticket, MFA, approval and
conditional-access authentication contexts) are read from each role's
management policy and collected once per batch.

Configuration:
  Config is loaded from pimctl.yaml in the current directory,
  $HOME/.pimctl/, or /etc/pimctl/.

  Environment variables can override config values with the PIMCTL_ prefix.
  Example: PIMCTL_TENANT_CLIENT_ID=00000000-0000-0000-0000-000000000000

Commands:
  roles       List eligible and active roles
  activate    Activate eligible roles
  deactivate  Deactivate active roles
  cache       Manage in-process caches
  version     Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command. Ctrl+C cancels in-flight requests.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./pimctl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func initConfig() {
	config.InitViper(cfgFile)
}
