package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/adapter/inbound/terminal"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/activation"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/inbound"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/service"
)

var (
	activateSelection     roleSelection
	activateHours         int
	activateMinutes       int
	activateJustification string
	activateTicketNumber  string
	activateTicketSystem  string
	activateYes           bool
	activateOutput        string
	activateNoGroups      bool
	activateNoDirectory   bool
)

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Activate eligible roles",
	Long: `Activate one or more eligible roles in one batch.

The requirements of every selected role are combined: justification and
ticket information are asked once, the duration is clamped to each role's
policy maximum, and roles that require an authentication context trigger
one extra sign-in per distinct context.

Without --role or --where an interactive list of eligible roles is shown.

Examples:
  # Pick roles interactively
  pimctl activate

  # Activate by name for two hours
  pimctl activate --role "User Administrator" --hours 2 --justification "INC-1234"

  # Activate every eligible group membership without prompting
  pimctl activate --where 'type == "Group"' --justification "on call" --yes`,
	Args: cobra.NoArgs,
	RunE: runActivate,
}

func init() {
	f := activateCmd.Flags()
	f.StringArrayVar(&activateSelection.ids, "role", nil, "role id or display name (repeatable)")
	f.StringVar(&activateSelection.where, "where", "", "CEL expression selecting eligible roles")
	f.IntVar(&activateHours, "hours", 0, "activation hours (default from config)")
	f.IntVar(&activateMinutes, "minutes", 0, "activation minutes")
	f.StringVar(&activateJustification, "justification", "", "justification text")
	f.StringVar(&activateTicketNumber, "ticket-number", "", "ticket number")
	f.StringVar(&activateTicketSystem, "ticket-system", "", "ticket system")
	f.BoolVarP(&activateYes, "yes", "y", false, "do not prompt; fail if required input is missing")
	f.StringVarP(&activateOutput, "output", "o", "table", "output format: table, json or yaml")
	f.BoolVar(&activateNoGroups, "no-groups", false, "skip PIM group memberships")
	f.BoolVar(&activateNoDirectory, "no-directory", false, "skip directory roles")
	rootCmd.AddCommand(activateCmd)
}

// presetInput converts the input flags. A zero duration means "use the default".
func presetInput(hours, minutes int, justification, ticketNumber, ticketSystem string) (activation.Input, error) {
	if hours < 0 || minutes < 0 {
		return activation.Input{}, errors.New("--hours and --minutes must not be negative")
	}
	return activation.Input{
		Justification: justification,
		TicketNumber:  ticketNumber,
		TicketSystem:  ticketSystem,
		Duration:      activation.FromMinutes(hours*60 + minutes),
	}, nil
}

func runActivate(cmd *cobra.Command, args []string) error {
	format, err := terminal.ParseFormat(activateOutput)
	if err != nil {
		return err
	}
	preset, err := presetInput(activateHours, activateMinutes, activateJustification, activateTicketNumber, activateTicketSystem)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := cmd.Context()

	var prompter inbound.Prompter = terminal.NewPrompter(terminal.PtermAsker{}, os.Stderr, preset)
	var chooser terminal.Chooser = terminal.PtermAsker{}
	if activateYes {
		prompter = terminal.StaticPrompter{Input: preset}
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

	opts := fetchOptions(activateNoDirectory, activateNoGroups)
	progress := terminal.NewProgress(os.Stderr, !cfg.Verbose)
	roles, err := a.cache.GetOrFetch(ctx, principal.ID, opts, progress.Report)
	progress.Stop()
	if err != nil {
		return err
	}
	renderer := terminal.NewRenderer(cmd.OutOrStdout(), format)
	renderer.Warnings(roles.Warnings)

	selected, err := activateSelection.apply(ctx, roles.Eligible, chooser, "Roles to activate", time.Now())
	if errors.Is(err, activation.ErrCancelled) {
		return renderer.Summary("Activated", &activation.Summary{Cancelled: true})
	}
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return errors.New("no eligible role matches the selection")
	}

	res, err := a.activator.Activate(ctx, service.BatchRequest{
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

	if err := renderer.Summary("Activated", res.Summary); err != nil {
		return err
	}
	return batchError("activate", res.Summary)
}

// batchError turns failed roles into a non-zero exit.
func batchError(verb string, s *activation.Summary) error {
	if s.Cancelled || s.FailedCount() == 0 {
		return nil
	}
	return fmt.Errorf("failed to %s %d of %d role(s)", verb, s.FailedCount(), s.TotalCount)
}
