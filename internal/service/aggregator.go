package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
)

// ErrAllSourcesFailed is returned when every selected role source failed.
var ErrAllSourcesFailed = errors.New("all role sources failed")

// SourceWarning records a role source that failed while others succeeded.
type SourceWarning struct {
	Source string
	Err    error
}

// String renders the warning for display.
func (w SourceWarning) String() string {
	return fmt.Sprintf("%s: %v", w.Source, w.Err)
}

// AggregateRequest selects the sources to query.
type AggregateRequest struct {
	PrincipalID string
	// Include reports whether a source participates. Nil includes all.
	Include func(source string) bool
	// OnSourceDone is called once per finished source, possibly concurrently.
	OnSourceDone func(source string, err error)
}

// AggregateResult is the merged, deduplicated output of all sources.
type AggregateResult struct {
	Eligible []role.Role
	Active   []role.Role
	Warnings []SourceWarning
}

// Aggregator fans out to the role sources concurrently. A failing source
// never cancels its siblings.
type Aggregator struct {
	sources []RoleSource
	logger  *slog.Logger
}

// NewAggregator creates an aggregator. Results are merged in source order.
func NewAggregator(logger *slog.Logger, sources ...RoleSource) *Aggregator {
	return &Aggregator{sources: sources, logger: logger}
}

// Fetch queries the selected sources and merges their results.
func (a *Aggregator) Fetch(ctx context.Context, req AggregateRequest) (AggregateResult, error) {
	var selected []RoleSource
	for _, s := range a.sources {
		if req.Include == nil || req.Include(s.Name()) {
			selected = append(selected, s)
		}
	}

	results := make([]SourceResult, len(selected))
	errs := make([]error, len(selected))

	// Zero-value Group: sources run to completion regardless of sibling errors.
	var g errgroup.Group
	for i, src := range selected {
		g.Go(func() error {
			res, err := src.FetchRoles(ctx, req.PrincipalID)
			results[i], errs[i] = res, err
			if req.OnSourceDone != nil {
				req.OnSourceDone(src.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	var out AggregateResult
	var failures []error
	for i, src := range selected {
		if errs[i] != nil {
			a.logger.Warn("role source unavailable",
				"source", src.Name(),
				"error", errs[i],
			)
			out.Warnings = append(out.Warnings, SourceWarning{Source: src.Name(), Err: errs[i]})
			failures = append(failures, errs[i])
			continue
		}
		out.Eligible = append(out.Eligible, results[i].Eligible...)
		out.Active = append(out.Active, results[i].Active...)
	}

	if len(selected) > 0 && len(failures) == len(selected) {
		return AggregateResult{Warnings: out.Warnings}, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(failures...))
	}

	out.Eligible = role.Dedupe(out.Eligible)
	out.Active = role.Dedupe(out.Active)
	return out, nil
}
