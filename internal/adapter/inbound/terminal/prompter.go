package terminal

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/activation"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/inbound"
)

// maxAttempts bounds re-prompting for one invalid or missing answer.
const maxAttempts = 3

// Compile-time interface verification.
var (
	_ inbound.Prompter = (*Prompter)(nil)
	_ inbound.Prompter = StaticPrompter{}
)

// Prompter collects batch input interactively. Fields already present in
// the preset (usually from command-line flags) are not asked again.
type Prompter struct {
	asker  Asker
	out    io.Writer
	preset activation.Input
}

// NewPrompter creates a Prompter that prints its summaries to out.
func NewPrompter(asker Asker, out io.Writer, preset activation.Input) *Prompter {
	return &Prompter{asker: asker, out: out, preset: preset}
}

// CollectActivationInput shows the batch requirements, asks for whatever the
// preset lacks and asks for a final confirmation.
func (p *Prompter) CollectActivationInput(ctx context.Context, roles []role.Role, req activation.Requirements, defaults activation.Input) (activation.Input, error) {
	if err := ctx.Err(); err != nil {
		return activation.Input{}, err
	}
	p.describeActivation(roles, req)

	in := p.preset
	if in.TicketSystem == "" {
		in.TicketSystem = defaults.TicketSystem
	}

	if in.Duration.TotalMinutes() <= 0 {
		d, err := p.askDuration(defaults.Duration)
		if err != nil {
			return activation.Input{}, err
		}
		in.Duration = d
	}

	if strings.TrimSpace(in.Justification) == "" {
		j, err := p.askText("Justification", "", req.Justification)
		if err != nil {
			return activation.Input{}, err
		}
		in.Justification = j
	}

	if req.Ticket {
		if strings.TrimSpace(in.TicketNumber) == "" {
			n, err := p.askText("Ticket number", "", true)
			if err != nil {
				return activation.Input{}, err
			}
			in.TicketNumber = n
		}
		if strings.TrimSpace(in.TicketSystem) == "" {
			s, err := p.askText("Ticket system", "", false)
			if err != nil {
				return activation.Input{}, err
			}
			in.TicketSystem = s
		}
	}

	ok, err := p.asker.Confirm(fmt.Sprintf("Submit %d activation request(s) for %s?", len(roles), in.Duration), true)
	if err != nil {
		return activation.Input{}, err
	}
	if !ok {
		return activation.Input{}, activation.ErrCancelled
	}
	return in, nil
}

// ConfirmDeactivation lists the roles and asks once.
func (p *Prompter) ConfirmDeactivation(ctx context.Context, roles []role.Role) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	pterm.DefaultSection.WithWriter(p.out).Println(fmt.Sprintf("Deactivate %d role(s)", len(roles)))
	p.listRoles(roles)
	return p.asker.Confirm(fmt.Sprintf("Deactivate %d role(s)?", len(roles)), false)
}

func (p *Prompter) describeActivation(roles []role.Role, req activation.Requirements) {
	pterm.DefaultSection.WithWriter(p.out).Println(fmt.Sprintf("Activate %d role(s)", len(roles)))
	p.listRoles(roles)

	info := pterm.Info.WithWriter(p.out)
	info.Printfln("Requests longer than a role's maximum are shortened to it. Shortest maximum in this batch: %dh.", req.MaxDurationHours)
	if req.MFA {
		info.Println("Some roles require multi-factor authentication.")
	}
	if req.AuthenticationContext {
		info.Printfln("Authentication context required (%s): a browser sign-in opens once per context.", strings.Join(req.ContextIDs, ", "))
	}
	if req.Approval {
		pterm.Warning.WithWriter(p.out).Println("Some roles require approval and stay pending until approved.")
	}
}

func (p *Prompter) listRoles(roles []role.Role) {
	items := make([]pterm.BulletListItem, 0, len(roles))
	for _, r := range roles {
		text := r.DisplayName
		if r.ScopeDisplay != "" {
			text += " (" + r.ScopeDisplay + ")"
		}
		if r.Type == role.TypeGroup {
			text += " [group " + r.AccessID() + "]"
		}
		items = append(items, pterm.BulletListItem{Level: 0, Text: text})
	}
	_ = pterm.DefaultBulletList.WithItems(items).WithWriter(p.out).Render()
}

// askDuration accepts Go durations ("1h30m", "90m") or whole hours ("4").
func (p *Prompter) askDuration(def activation.Duration) (activation.Duration, error) {
	for range maxAttempts {
		answer, err := p.asker.Ask("Duration (e.g. 8h, 1h30m, 90m)", def.String())
		if err != nil {
			return activation.Duration{}, err
		}
		if d, err := ParseDuration(answer); err == nil {
			return d, nil
		}
		pterm.Warning.WithWriter(p.out).Printfln("%q is not a valid duration.", answer)
	}
	return activation.Duration{}, fmt.Errorf("%w: duration", activation.ErrInputRequired)
}

func (p *Prompter) askText(prompt, def string, required bool) (string, error) {
	if required {
		prompt += " (required)"
	}
	for range maxAttempts {
		answer, err := p.asker.Ask(prompt, def)
		if err != nil {
			return "", err
		}
		answer = strings.TrimSpace(answer)
		if answer != "" || !required {
			return answer, nil
		}
		pterm.Warning.WithWriter(p.out).Println("A value is required.")
	}
	return "", fmt.Errorf("%w: %s", activation.ErrInputRequired, strings.ToLower(prompt))
}

// ParseDuration parses "1h30m", "90m" or a whole number of hours into a
// positive activation.Duration.
func ParseDuration(s string) (activation.Duration, error) {
	s = strings.TrimSpace(s)
	if h, err := strconv.Atoi(s); err == nil {
		if h <= 0 {
			return activation.Duration{}, fmt.Errorf("duration must be positive: %q", s)
		}
		return activation.Duration{Hours: h}, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return activation.Duration{}, fmt.Errorf("parse duration %q: %w", s, err)
	}
	mins := int(d / time.Minute)
	if mins <= 0 {
		return activation.Duration{}, fmt.Errorf("duration must be at least one minute: %q", s)
	}
	return activation.FromMinutes(mins), nil
}

// StaticPrompter answers without asking: activation input comes from Input
// and every deactivation is confirmed. It backs non-interactive runs.
type StaticPrompter struct {
	Input activation.Input
}

// CollectActivationInput returns Input with defaults filled in.
func (s StaticPrompter) CollectActivationInput(ctx context.Context, _ []role.Role, _ activation.Requirements, defaults activation.Input) (activation.Input, error) {
	if err := ctx.Err(); err != nil {
		return activation.Input{}, err
	}
	in := s.Input
	if in.Duration.TotalMinutes() <= 0 {
		in.Duration = defaults.Duration
	}
	if in.TicketSystem == "" {
		in.TicketSystem = defaults.TicketSystem
	}
	return in, nil
}

// ConfirmDeactivation always confirms.
func (s StaticPrompter) ConfirmDeactivation(ctx context.Context, _ []role.Role) (bool, error) {
	return ctx.Err() == nil, ctx.Err()
}
