package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/inbound"
)

type countingFetcher struct {
	calls  int
	err    error
	during func()
}

func (f *countingFetcher) FetchAll(_ context.Context, principalID string, _ FetchOptions, _ inbound.ProgressFunc) (*BatchFetchResult, error) {
	f.calls++
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &BatchFetchResult{PrincipalID: principalID}, nil
}

func TestRoleCache_ServesWithinTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	f := &countingFetcher{}
	c := NewRoleCache(f, 5*time.Minute, clock, nil, discardLogger())
	ctx := context.Background()
	opts := DefaultFetchOptions()

	first, err := c.GetOrFetch(ctx, "p1", opts, nil)
	if err != nil {
		t.Fatalf("GetOrFetch() error = %v", err)
	}
	clock.advance(4 * time.Minute)
	second, _ := c.GetOrFetch(ctx, "p1", opts, nil)
	if second != first || f.calls != 1 {
		t.Errorf("within TTL: calls = %d, same = %v, want 1 call and same result", f.calls, second == first)
	}

	clock.advance(time.Minute)
	third, _ := c.GetOrFetch(ctx, "p1", opts, nil)
	if third == first || f.calls != 2 {
		t.Errorf("after TTL: calls = %d, want 2 and a fresh result", f.calls)
	}
}

func TestRoleCache_KeyedByPrincipalAndOptions(t *testing.T) {
	t.Parallel()

	f := &countingFetcher{}
	c := NewRoleCache(f, time.Minute, newFakeClock(), nil, discardLogger())
	ctx := context.Background()

	_, _ = c.GetOrFetch(ctx, "p1", DefaultFetchOptions(), nil)
	_, _ = c.GetOrFetch(ctx, "p2", DefaultFetchOptions(), nil)
	_, _ = c.GetOrFetch(ctx, "p2", FetchOptions{Directory: true}, nil)
	if f.calls != 3 {
		t.Errorf("calls = %d, want 3", f.calls)
	}
}

func TestRoleCache_InvalidateForcesFetch(t *testing.T) {
	t.Parallel()

	f := &countingFetcher{}
	c := NewRoleCache(f, time.Hour, newFakeClock(), nil, discardLogger())
	ctx := context.Background()

	_, _ = c.GetOrFetch(ctx, "p1", DefaultFetchOptions(), nil)
	c.Invalidate()
	if _, ok := c.Peek(); ok {
		t.Error("Peek() after Invalidate returned an entry")
	}
	_, _ = c.GetOrFetch(ctx, "p1", DefaultFetchOptions(), nil)
	if f.calls != 2 {
		t.Errorf("calls = %d, want 2", f.calls)
	}
}

func TestRoleCache_InvalidateDuringFetchNotCached(t *testing.T) {
	t.Parallel()

	f := &countingFetcher{}
	c := NewRoleCache(f, time.Hour, newFakeClock(), nil, discardLogger())
	f.during = c.Invalidate

	res, err := c.GetOrFetch(context.Background(), "p1", DefaultFetchOptions(), nil)
	if err != nil || res == nil {
		t.Fatalf("GetOrFetch() = %v, %v", res, err)
	}
	if _, ok := c.Peek(); ok {
		t.Error("result fetched across an Invalidate was cached")
	}
}

func TestRoleCache_ErrorsNotCached(t *testing.T) {
	t.Parallel()

	f := &countingFetcher{err: errors.New("down")}
	c := NewRoleCache(f, time.Hour, newFakeClock(), nil, discardLogger())

	if _, err := c.GetOrFetch(context.Background(), "p1", DefaultFetchOptions(), nil); err == nil {
		t.Fatal("GetOrFetch() error = nil")
	}
	f.err = nil
	if _, err := c.GetOrFetch(context.Background(), "p1", DefaultFetchOptions(), nil); err != nil {
		t.Fatalf("GetOrFetch() error = %v", err)
	}
	if f.calls != 2 {
		t.Errorf("calls = %d, want 2", f.calls)
	}
}
