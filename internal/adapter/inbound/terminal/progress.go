package terminal

import (
	"fmt"
	"io"
	"sync"

	"github.com/pterm/pterm"
)

// Progress shows fetch progress on a spinner. Report may be called from
// several goroutines. A disabled Progress prints nothing, which keeps
// machine-readable output clean.
type Progress struct {
	out     io.Writer
	enabled bool

	mu      sync.Mutex
	spinner *pterm.SpinnerPrinter
}

// NewProgress creates a Progress writing to out.
func NewProgress(out io.Writer, enabled bool) *Progress {
	return &Progress{out: out, enabled: enabled}
}

// Report updates the spinner. It has the shape of inbound.ProgressFunc.
func (p *Progress) Report(message string, percent int) {
	if p == nil || !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	text := fmt.Sprintf("%s (%d%%)", message, percent)
	if p.spinner == nil {
		s, err := pterm.DefaultSpinner.
			WithWriter(p.out).
			WithRemoveWhenDone(true).
			Start(text)
		if err != nil {
			return
		}
		p.spinner = s
		return
	}
	p.spinner.UpdateText(text)
}

// Stop removes the spinner.
func (p *Progress) Stop() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spinner != nil {
		_ = p.spinner.Stop()
		p.spinner = nil
	}
}
