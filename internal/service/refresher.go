package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/inbound"
)

// ErrRefreshNotSettled is returned when the refreshed role list still does
// not reflect a mutation after all attempts.
var ErrRefreshNotSettled = errors.New("role list did not reflect the change")

// RetryPolicy bounds the post-mutation refetch loop.
type RetryPolicy struct {
	// InitialDelay is waited before the first fetch.
	InitialDelay time.Duration
	// Attempts is the total number of fetches.
	Attempts int
	// Backoff is the wait before the second fetch; later waits grow by Multiplier.
	Backoff    time.Duration
	Multiplier float64
}

// DefaultRetryPolicy returns 5s initial delay, 3 attempts, 3s backoff x1.5.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialDelay: 5 * time.Second,
		Attempts:     3,
		Backoff:      3 * time.Second,
		Multiplier:   1.5,
	}
}

// Delay returns the wait before attempt n (0-based).
func (p RetryPolicy) Delay(n int) time.Duration {
	if n <= 0 {
		return p.InitialDelay
	}
	d := float64(p.Backoff)
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	for i := 1; i < n; i++ {
		d *= mult
	}
	return time.Duration(d)
}

// SettledFunc reports whether a fetched result reflects the mutation.
type SettledFunc func(*BatchFetchResult) bool

// ActivatedSettled is satisfied once every key is active.
func ActivatedSettled(keys []role.Key) SettledFunc {
	return func(r *BatchFetchResult) bool {
		for _, k := range keys {
			if !r.IsActive(k) {
				return false
			}
		}
		return true
	}
}

// DeactivatedSettled is satisfied once none of the schedules is active.
func DeactivatedSettled(scheduleIDs []string) SettledFunc {
	return func(r *BatchFetchResult) bool {
		for _, id := range scheduleIDs {
			if r.HasSchedule(id) {
				return false
			}
		}
		return true
	}
}

// ChangedFrom wraps settled so a result whose active set still has the
// fingerprint of before is never settled. A nil before returns settled.
func ChangedFrom(before *BatchFetchResult, settled SettledFunc) SettledFunc {
	if before == nil {
		return settled
	}
	fp := before.Fingerprint()
	return func(r *BatchFetchResult) bool {
		if r.Fingerprint() == fp {
			return false
		}
		return settled == nil || settled(r)
	}
}

// Refresher refetches the role list after a mutation until the provider's
// eventually consistent view catches up.
type Refresher struct {
	cache  *RoleCache
	clock  Clock
	policy RetryPolicy
	logger *slog.Logger
}

// NewRefresher creates a Refresher.
func NewRefresher(cache *RoleCache, clock Clock, policy RetryPolicy, logger *slog.Logger) *Refresher {
	if policy.Attempts <= 0 {
		policy.Attempts = 1
	}
	return &Refresher{cache: cache, clock: clock, policy: policy, logger: logger}
}

// Refresh invalidates and refetches up to Attempts times. It returns the
// first settled result, or the last result with ErrRefreshNotSettled.
func (r *Refresher) Refresh(ctx context.Context, principalID string, opts FetchOptions, settled SettledFunc, progress inbound.ProgressFunc) (*BatchFetchResult, error) {
	var (
		last    *BatchFetchResult
		lastErr error
	)
	for attempt := 0; attempt < r.policy.Attempts; attempt++ {
		if err := r.clock.Sleep(ctx, r.policy.Delay(attempt)); err != nil {
			return last, err
		}

		r.cache.Invalidate()
		res, err := r.cache.GetOrFetch(ctx, principalID, opts, progress)
		if err != nil {
			r.logger.Warn("refresh attempt failed", "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}
		last = res
		if settled == nil || settled(res) {
			return res, nil
		}
		r.logger.Debug("role list not yet updated", "attempt", attempt+1)
	}
	if last == nil && lastErr != nil {
		return nil, lastErr
	}
	return last, ErrRefreshNotSettled
}
