package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/adapter/inbound/terminal"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/adapter/outbound/cel"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/service"
)

var (
	rolesEligible    bool
	rolesActive      bool
	rolesWhere       string
	rolesOutput      string
	rolesNoGroups    bool
	rolesNoDirectory bool
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List eligible and active roles",
	Long: `List your eligible and active directory roles and PIM group memberships
together with the activation requirements of each role.

Examples:
  # Everything, as a table
  pimctl roles

  # Active roles that came in through a group, as JSON
  pimctl roles --active --where 'provided_by != ""' -o json

  # Eligible roles that need an authentication context
  pimctl roles --eligible --where '"authentication_context" in requires'`,
	Args: cobra.NoArgs,
	RunE: runRoles,
}

func init() {
	rolesCmd.Flags().BoolVar(&rolesEligible, "eligible", false, "show eligible roles only")
	rolesCmd.Flags().BoolVar(&rolesActive, "active", false, "show active roles only")
	rolesCmd.Flags().StringVar(&rolesWhere, "where", "", "CEL expression selecting roles")
	rolesCmd.Flags().StringVarP(&rolesOutput, "output", "o", "table", "output format: table, json or yaml")
	rolesCmd.Flags().BoolVar(&rolesNoGroups, "no-groups", false, "skip PIM group memberships")
	rolesCmd.Flags().BoolVar(&rolesNoDirectory, "no-directory", false, "skip directory roles")
	rolesCmd.MarkFlagsMutuallyExclusive("eligible", "active")
	rootCmd.AddCommand(rolesCmd)
}

func runRoles(cmd *cobra.Command, args []string) error {
	format, err := terminal.ParseFormat(rolesOutput)
	if err != nil {
		return err
	}
	var sel *cel.Selector
	if rolesWhere != "" {
		if sel, err = cel.NewSelector(rolesWhere); err != nil {
			return fmt.Errorf("--where: %w", err)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger, terminal.StaticPrompter{})
	if err != nil {
		return err
	}
	defer a.close()

	principal, err := a.session.Principal(ctx)
	if err != nil {
		return err
	}

	progress := terminal.NewProgress(os.Stderr, format.Interactive() && !cfg.Verbose)
	res, err := a.cache.GetOrFetch(ctx, principal.ID, fetchOptions(rolesNoDirectory, rolesNoGroups), progress.Report)
	progress.Stop()
	if err != nil {
		return err
	}

	if sel != nil {
		filtered := *res
		now := time.Now()
		if filtered.Eligible, err = sel.Filter(ctx, res.Eligible, now); err != nil {
			return err
		}
		if filtered.Active, err = sel.Filter(ctx, res.Active, now); err != nil {
			return err
		}
		res = &filtered
	}

	showEligible, showActive := !rolesActive, !rolesEligible
	return terminal.NewRenderer(cmd.OutOrStdout(), format).Listing(res, showEligible, showActive)
}

// reportRefresh logs how the post-mutation refresh ended.
func reportRefresh(a *app, res *service.BatchResult) {
	if res.RefreshErr != nil {
		a.logger.Warn("role list may not reflect the change yet", "error", res.RefreshErr)
	}
}
