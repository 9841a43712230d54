// Package inbound defines the inbound port interfaces for the role
// orchestrator. The terminal adapter and the CLI call these interfaces.
package inbound

import (
	"context"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/activation"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
)

// ProgressFunc receives coarse progress updates. Percent is 0-100.
type ProgressFunc func(message string, percent int)

// Report calls f when it is non-nil.
func (f ProgressFunc) Report(message string, percent int) {
	if f != nil {
		f(message, percent)
	}
}

// Prompter collects user input for a batch. Implementations return
// activation.ErrCancelled when the user backs out.
type Prompter interface {
	// CollectActivationInput prompts once for the whole batch. defaults holds
	// the duration and ticket system to offer.
	CollectActivationInput(ctx context.Context, roles []role.Role, req activation.Requirements, defaults activation.Input) (activation.Input, error)
	// ConfirmDeactivation asks once for the whole batch.
	ConfirmDeactivation(ctx context.Context, roles []role.Role) (bool, error)
}
