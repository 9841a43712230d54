package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/adapter/inbound/terminal"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached sign-in state",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Sign out and remove the persisted token cache",
	Long: `Remove every account from the persisted MSAL token cache
(auth.token_cache) and drop all cached roles, policies and
authentication-context tokens. Use this before working as a different
account.`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	a, err := newApp(cmd.Context(), cfg, logger, terminal.StaticPrompter{})
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.session.Clear(cmd.Context()); err != nil {
		return err
	}
	if path := cfg.Auth.TokenCachePath(); path != "" {
		pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Signed out. Removed cached accounts from %s.", path)
	} else {
		pterm.Success.WithWriter(cmd.OutOrStdout()).Println("Signed out. Token persistence is off, so nothing was stored.")
	}
	return nil
}
