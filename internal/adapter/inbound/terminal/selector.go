package terminal

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/activation"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
)

// ErrNothingSelected is returned when the user confirms an empty selection.
var ErrNothingSelected = errors.New("no roles selected")

// Chooser picks any number of options from a list.
type Chooser interface {
	Choose(prompt string, options []string) ([]string, error)
}

var _ Chooser = PtermAsker{}

// Choose shows a filterable multi-select list.
func (PtermAsker) Choose(prompt string, options []string) ([]string, error) {
	interrupted := false
	picked, err := pterm.DefaultInteractiveMultiselect.
		WithOptions(options).
		WithMaxHeight(15).
		WithOnInterruptFunc(func() { interrupted = true }).
		Show(prompt)
	if interrupted {
		return nil, activation.ErrCancelled
	}
	return picked, err
}

// PickRoles lets the user choose roles from candidates. Labels are made
// unique so two assignments of the same role at different scopes stay
// distinguishable.
func PickRoles(c Chooser, prompt string, candidates []role.Role) ([]role.Role, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	labels := make([]string, len(candidates))
	byLabel := make(map[string]role.Role, len(candidates))
	for i, r := range candidates {
		label := roleLabel(r)
		if _, dup := byLabel[label]; dup {
			label = fmt.Sprintf("%s #%d", label, i+1)
		}
		labels[i] = label
		byLabel[label] = r
	}

	picked, err := c.Choose(prompt, labels)
	if err != nil {
		return nil, err
	}
	if len(picked) == 0 {
		return nil, ErrNothingSelected
	}

	out := make([]role.Role, 0, len(picked))
	for _, label := range picked {
		if r, ok := byLabel[label]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func roleLabel(r role.Role) string {
	label := fmt.Sprintf("%s [%s]", r.DisplayName, typeLabel(r.Type))
	if r.ScopeDisplay != "" {
		label += " " + r.ScopeDisplay
	}
	if r.Type == role.TypeGroup {
		label += " (" + r.AccessID() + ")"
	}
	return label
}
