package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/inbound"
)

func TestRetryPolicy_Delay(t *testing.T) {
	t.Parallel()

	p := DefaultRetryPolicy()
	want := []time.Duration{5 * time.Second, 3 * time.Second, 4500 * time.Millisecond, 6750 * time.Millisecond}
	for n, w := range want {
		if got := p.Delay(n); got != w {
			t.Errorf("Delay(%d) = %v, want %v", n, got, w)
		}
	}
}

// settlingFetcher reports the role active from the given call onwards.
type settlingFetcher struct {
	calls     int
	activeAt  int
	failUntil int
}

func (f *settlingFetcher) FetchAll(_ context.Context, principalID string, _ FetchOptions, _ inbound.ProgressFunc) (*BatchFetchResult, error) {
	f.calls++
	if f.calls <= f.failUntil {
		return nil, errors.New("transient")
	}
	res := &BatchFetchResult{PrincipalID: principalID}
	if f.activeAt > 0 && f.calls >= f.activeAt {
		res.Active = []role.Role{{ID: "r1", Type: role.TypeDirectoryRole, ScheduleID: "s1"}}
	}
	return res, nil
}

func newRefresherFixture(f BatchFetcher) (*fakeClock, *RoleCache, *Refresher) {
	clock := newFakeClock()
	cache := NewRoleCache(f, time.Hour, clock, nil, discardLogger())
	policy := RetryPolicy{InitialDelay: 5 * time.Second, Attempts: 3, Backoff: 3 * time.Second, Multiplier: 1.5}
	return clock, cache, NewRefresher(cache, clock, policy, discardLogger())
}

func TestRefresher_StopsWhenSettled(t *testing.T) {
	t.Parallel()

	f := &settlingFetcher{activeAt: 2}
	clock, _, r := newRefresherFixture(f)

	res, err := r.Refresh(context.Background(), "p1", DefaultFetchOptions(), ActivatedSettled([]role.Key{dirKey("r1")}), nil)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if !res.IsActive(dirKey("r1")) || f.calls != 2 {
		t.Errorf("calls = %d, active = %v, want settled on attempt 2", f.calls, res.IsActive(dirKey("r1")))
	}
	want := []time.Duration{5 * time.Second, 3 * time.Second}
	if len(clock.sleeps) != 2 || clock.sleeps[0] != want[0] || clock.sleeps[1] != want[1] {
		t.Errorf("sleeps = %v, want %v", clock.sleeps, want)
	}
}

func TestRefresher_NotSettled(t *testing.T) {
	t.Parallel()

	f := &settlingFetcher{}
	clock, _, r := newRefresherFixture(f)

	res, err := r.Refresh(context.Background(), "p1", DefaultFetchOptions(), ActivatedSettled([]role.Key{dirKey("r1")}), nil)
	if !errors.Is(err, ErrRefreshNotSettled) {
		t.Fatalf("Refresh() error = %v, want ErrRefreshNotSettled", err)
	}
	if res == nil || f.calls != 3 || len(clock.sleeps) != 3 {
		t.Errorf("res = %v, calls = %d, sleeps = %v", res, f.calls, clock.sleeps)
	}
}

func TestRefresher_TransientFetchErrors(t *testing.T) {
	t.Parallel()

	f := &settlingFetcher{failUntil: 1}
	_, _, r := newRefresherFixture(f)

	res, err := r.Refresh(context.Background(), "p1", DefaultFetchOptions(), DeactivatedSettled([]string{"s1"}), nil)
	if err != nil || res == nil {
		t.Errorf("Refresh() = %v, %v, want settled after a failed attempt", res, err)
	}

	f = &settlingFetcher{failUntil: 5}
	_, _, r = newRefresherFixture(f)
	if _, err := r.Refresh(context.Background(), "p1", DefaultFetchOptions(), nil, nil); err == nil || errors.Is(err, ErrRefreshNotSettled) {
		t.Errorf("Refresh() error = %v, want the fetch error", err)
	}
}

func TestRefresher_ContextCancelled(t *testing.T) {
	t.Parallel()

	f := &settlingFetcher{}
	_, _, r := newRefresherFixture(f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Refresh(ctx, "p1", DefaultFetchOptions(), nil, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Refresh() error = %v, want context.Canceled", err)
	}
	if f.calls != 0 {
		t.Errorf("calls = %d, want 0", f.calls)
	}
}

// sequenceFetcher returns results in order, repeating the last one.
type sequenceFetcher struct {
	calls   int
	results []*BatchFetchResult
}

func (f *sequenceFetcher) FetchAll(context.Context, string, FetchOptions, inbound.ProgressFunc) (*BatchFetchResult, error) {
	i := min(f.calls, len(f.results)-1)
	f.calls++
	return f.results[i], nil
}

func TestChangedFrom(t *testing.T) {
	t.Parallel()

	active := []role.Role{{ID: "r1", Type: role.TypeDirectoryRole, ScheduleID: "s1"}}
	before := &BatchFetchResult{Active: active}
	always := func(*BatchFetchResult) bool { return true }

	if ChangedFrom(before, always)(&BatchFetchResult{Active: active}) {
		t.Error("unchanged active set reported settled")
	}
	if !ChangedFrom(before, always)(&BatchFetchResult{}) {
		t.Error("changed active set not settled")
	}
	if !ChangedFrom(nil, always)(&BatchFetchResult{Active: active}) {
		t.Error("nil snapshot should defer to settled")
	}
	if ChangedFrom(before, func(*BatchFetchResult) bool { return false })(&BatchFetchResult{}) {
		t.Error("changed set settled although settled func refused")
	}
}

func TestRefresher_WaitsForFingerprintChange(t *testing.T) {
	t.Parallel()

	stale := &BatchFetchResult{Active: []role.Role{{ID: "r1", Type: role.TypeDirectoryRole, ScheduleID: "s1"}}}
	f := &sequenceFetcher{results: []*BatchFetchResult{stale, {}}}
	_, _, r := newRefresherFixture(f)

	// The looked-up schedule id never appears, so only the fingerprint
	// tells the stale view apart.
	settled := ChangedFrom(stale, DeactivatedSettled([]string{"s-looked-up"}))
	res, err := r.Refresh(context.Background(), "p1", DefaultFetchOptions(), settled, nil)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if f.calls != 2 || len(res.Active) != 0 {
		t.Errorf("calls = %d, active = %d, want settled on attempt 2", f.calls, len(res.Active))
	}
}
