package cmd

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/adapter/inbound/terminal"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/activation"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/inbound"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/service"
)

var (
	deactivateSelection   roleSelection
	deactivateYes         bool
	deactivateOutput      string
	deactivateNoGroups    bool
	deactivateNoDirectory bool
)

var deactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Deactivate active roles",
	Long: `Deactivate one or more active roles.

Roles that are active only because of a group membership cannot be
deactivated directly; deactivate the group membership instead.

Examples:
  # Pick roles interactively
  pimctl deactivate

  # Deactivate one role without confirmation
  pimctl deactivate --role "Global Reader" --yes`,
	Args: cobra.NoArgs,
	RunE: runDeactivate,
}

func init() {
	f := deactivateCmd.Flags()
	f.StringArrayVar(&deactivateSelection.ids, "role", nil, "role id or display name (repeatable)")
	f.StringVar(&deactivateSelection.where, "where", "", "CEL expression selecting active roles")
	f.BoolVarP(&deactivateYes, "yes", "y", false, "do not ask for confirmation")
	f.StringVarP(&deactivateOutput, "output", "o", "table", "output format: table, json or yaml")
	f.BoolVar(&deactivateNoGroups, "no-groups", false, "skip PIM group memberships")
	f.BoolVar(&deactivateNoDirectory, "no-directory", false, "skip directory roles")
	rootCmd.AddCommand(deactivateCmd)
}

func runDeactivate(cmd *cobra.Command, args []string) error {
	format, err := terminal.ParseFormat(deactivateOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := cmd.Context()

	var prompter inbound.Prompter = terminal.NewPrompter(terminal.PtermAsker{}, os.Stderr, activation.Input{})
	var chooser terminal.Chooser = terminal.PtermAsker{}
	if deactivateYes {
		prompter = terminal.StaticPrompter{}
		chooser = nil
	}

	a, err := newApp(ctx, cfg, logger, prompter)
	if err != nil {
		return err
	}
	defer a.close()

	principal, err := a.session.Principal(ctx)
	if err != nil {
		return err
	}

	opts := fetchOptions(deactivateNoDirectory, deactivateNoGroups)
	progress := terminal.NewProgress(os.Stderr, !cfg.Verbose)
	roles, err := a.cache.GetOrFetch(ctx, principal.ID, opts, progress.Report)
	progress.Stop()
	if err != nil {
		return err
	}
	renderer := terminal.NewRenderer(cmd.OutOrStdout(), format)
	renderer.Warnings(roles.Warnings)

	selected, err := deactivateSelection.apply(ctx, roles.Active, chooser, "Roles to deactivate", time.Now())
	if errors.Is(err, activation.ErrCancelled) {
		return renderer.Summary("Deactivated", &activation.Summary{Cancelled: true})
	}
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return errors.New("no active role matches the selection")
	}

	res, err := a.deactivator.Deactivate(ctx, service.BatchRequest{
		PrincipalID:  principal.ID,
		Roles:        selected,
		Refresh:      true,
		FetchOptions: opts,
		Progress:     progress.Report,
	})
	progress.Stop()
	if err != nil {
		return err
	}
	reportRefresh(a, res)

	if err := renderer.Summary("Deactivated", res.Summary); err != nil {
		return err
	}
	return batchError("deactivate", res.Summary)
}
