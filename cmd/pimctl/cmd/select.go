package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/adapter/inbound/terminal"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/adapter/outbound/cel"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
)

// errNoSelection is returned in non-interactive runs without --role or --where.
var errNoSelection = errors.New("select roles with --role or --where (or run interactively without --yes)")

// roleSelection holds the role-picking flags shared by activate and deactivate.
type roleSelection struct {
	ids   []string
	where string
}

// empty reports whether no selector flag was given.
func (s roleSelection) empty() bool {
	return len(s.ids) == 0 && s.where == ""
}

// apply narrows candidates by --role and --where. Without either flag it
// asks chooser, or fails when chooser is nil.
func (s roleSelection) apply(ctx context.Context, candidates []role.Role, chooser terminal.Chooser, prompt string, now time.Time) ([]role.Role, error) {
	if s.empty() {
		if chooser == nil {
			return nil, errNoSelection
		}
		return terminal.PickRoles(chooser, prompt, candidates)
	}

	selected := candidates
	if len(s.ids) > 0 {
		var err error
		if selected, err = matchRoles(selected, s.ids); err != nil {
			return nil, err
		}
	}
	if s.where != "" {
		sel, err := cel.NewSelector(s.where)
		if err != nil {
			return nil, fmt.Errorf("--where: %w", err)
		}
		if selected, err = sel.Filter(ctx, selected, now); err != nil {
			return nil, fmt.Errorf("--where: %w", err)
		}
	}
	return selected, nil
}

// matchRoles returns every candidate whose id or display name equals one of
// refs (names compared case-insensitively). A ref matching nothing is an error.
func matchRoles(candidates []role.Role, refs []string) ([]role.Role, error) {
	var out []role.Role
	taken := make([]bool, len(candidates))
	for _, ref := range refs {
		found := false
		for i, r := range candidates {
			if r.ID != ref && !strings.EqualFold(r.DisplayName, ref) {
				continue
			}
			found = true
			if !taken[i] {
				taken[i] = true
				out = append(out, r)
			}
		}
		if !found {
			return nil, fmt.Errorf("no role matches %q", ref)
		}
	}
	return out, nil
}
