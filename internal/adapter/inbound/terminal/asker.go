// Package terminal is the interactive command-line adapter: prompts for
// batch input, progress spinners and role/summary rendering on top of pterm.
package terminal

import (
	"github.com/pterm/pterm"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/activation"
)

// Asker reads single answers from the user. Implementations return
// activation.ErrCancelled when the user interrupts a prompt.
type Asker interface {
	Ask(prompt, defaultValue string) (string, error)
	Confirm(prompt string, defaultValue bool) (bool, error)
}

// PtermAsker asks on the terminal with pterm's interactive printers.
type PtermAsker struct{}

// Ask shows a single-line text input.
func (PtermAsker) Ask(prompt, defaultValue string) (string, error) {
	interrupted := false
	answer, err := pterm.DefaultInteractiveTextInput.
		WithDefaultValue(defaultValue).
		WithOnInterruptFunc(func() { interrupted = true }).
		Show(prompt)
	if interrupted {
		return "", activation.ErrCancelled
	}
	return answer, err
}

// Confirm shows a yes/no question.
func (PtermAsker) Confirm(prompt string, defaultValue bool) (bool, error) {
	interrupted := false
	ok, err := pterm.DefaultInteractiveConfirm.
		WithDefaultValue(defaultValue).
		WithOnInterruptFunc(func() { interrupted = true }).
		Show(prompt)
	if interrupted {
		return false, activation.ErrCancelled
	}
	return ok, err
}
