package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/attribution"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/policy"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/metrics"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/inbound"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

// FetchOptions selects what a batch fetch includes.
type FetchOptions struct {
	Directory bool
	Groups    bool
	// Azure enables the Azure resource stub source.
	Azure bool
	// Attribution runs the group attribution resolver over active roles.
	Attribution bool
}

// DefaultFetchOptions fetches both role sources with attribution.
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{Directory: true, Groups: true, Attribution: true}
}

func (o FetchOptions) includes(source string) bool {
	switch source {
	case SourceDirectory:
		return o.Directory
	case SourceGroups:
		return o.Groups
	case SourceAzure:
		return o.Azure
	default:
		return false
	}
}

// BatchFetchResult is everything a role screen needs, fetched in one pass.
// It is shared read-only once returned.
type BatchFetchResult struct {
	PrincipalID  string
	Eligible     []role.Role
	Active       []role.Role
	Policies     map[string]policy.Descriptor
	AuthContexts map[string]policy.AuthContext
	Warnings     []SourceWarning
	FetchedAt    time.Time
}

// Fingerprint hashes the active set (keys, scopes, schedules, end times) so
// callers can tell whether a refetch observed a change.
func (r *BatchFetchResult) Fingerprint() uint64 {
	lines := make([]string, 0, len(r.Active))
	for _, a := range r.Active {
		end := ""
		if a.EndDateTime != nil {
			end = strconv.FormatInt(a.EndDateTime.Unix(), 10)
		}
		lines = append(lines, a.Key().String()+"|"+a.DirectoryScopeID+"|"+string(a.MemberType)+"|"+a.ScheduleID+"|"+end)
	}
	sort.Strings(lines)

	d := xxhash.New()
	for _, l := range lines {
		_, _ = d.WriteString(l)
		_, _ = d.WriteString("\n")
	}
	return d.Sum64()
}

// IsActive reports whether a role with key k is in the active set.
func (r *BatchFetchResult) IsActive(k role.Key) bool {
	for _, a := range r.Active {
		if a.Key() == k {
			return true
		}
	}
	return false
}

// HasSchedule reports whether an active role carries scheduleID.
func (r *BatchFetchResult) HasSchedule(scheduleID string) bool {
	if scheduleID == "" {
		return false
	}
	for _, a := range r.Active {
		if a.ScheduleID == scheduleID {
			return true
		}
	}
	return false
}

// Fetcher runs the role sources, policy resolution and attribution as one
// operation.
type Fetcher struct {
	aggregator *Aggregator
	policies   *PolicyResolver
	store      outbound.PolicyStore
	clock      Clock
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(aggregator *Aggregator, policies *PolicyResolver, store outbound.PolicyStore, clock Clock, m *metrics.Metrics, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		aggregator: aggregator,
		policies:   policies,
		store:      store,
		clock:      clock,
		metrics:    m,
		logger:     logger,
	}
}

// Progress milestones.
const (
	progressStart      = 5
	progressSourcesEnd = 60
	progressPolicies   = 65
	progressAttribute  = 85
	progressDone       = 100
)

// FetchAll fetches roles, attaches policies and attributes inherited roles.
// Only a failure of every role source is returned as an error.
func (f *Fetcher) FetchAll(ctx context.Context, principalID string, opts FetchOptions, progress inbound.ProgressFunc) (*BatchFetchResult, error) {
	start := f.clock.Now()
	progress.Report("Fetching roles", progressStart)

	var (
		mu       sync.Mutex
		finished int
		total    int
	)
	for _, name := range []string{SourceDirectory, SourceGroups, SourceAzure} {
		if opts.includes(name) {
			total++
		}
	}

	agg, err := f.aggregator.Fetch(ctx, AggregateRequest{
		PrincipalID: principalID,
		Include:     opts.includes,
		OnSourceDone: func(source string, err error) {
			mu.Lock()
			finished++
			pct := progressStart + (progressSourcesEnd-progressStart)*finished/max(total, 1)
			mu.Unlock()
			msg := "Fetched " + source + " roles"
			if err != nil {
				msg = "Could not fetch " + source + " roles"
			}
			progress.Report(msg, pct)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch roles: %w", err)
	}

	progress.Report("Resolving policies", progressPolicies)
	keys := role.DistinctKeys(agg.Eligible)
	resolved := f.policies.ResolveBatch(ctx, keys)
	attach(agg.Eligible, resolved)
	attach(agg.Active, resolved)

	active := agg.Active
	if opts.Attribution {
		progress.Report("Attributing group roles", progressAttribute)
		var groups []role.Role
		for _, set := range [][]role.Role{agg.Active, agg.Eligible} {
			for _, r := range set {
				if r.Type == role.TypeGroup {
					groups = append(groups, r)
				}
			}
		}
		active = attribution.Resolve(agg.Active, groups)
	}

	res := &BatchFetchResult{
		PrincipalID:  principalID,
		Eligible:     agg.Eligible,
		Active:       active,
		Policies:     f.store.Policies(),
		AuthContexts: f.store.AuthContexts(),
		Warnings:     agg.Warnings,
		FetchedAt:    f.clock.Now(),
	}
	f.metrics.SetDiscovered(len(res.Eligible), len(res.Active))
	progress.Report("Done", progressDone)

	f.logger.Info("roles fetched",
		"eligible", len(res.Eligible),
		"active", len(res.Active),
		"policies", len(resolved),
		"warnings", len(res.Warnings),
		"duration", f.clock.Now().Sub(start),
	)
	return res, nil
}

// attach sets the resolved policy on every role sharing a key.
func attach(roles []role.Role, resolved map[role.Key]policy.Descriptor) {
	for i := range roles {
		if d, ok := resolved[roles[i].Key()]; ok {
			p := d
			roles[i].Policy = &p
		}
	}
}
