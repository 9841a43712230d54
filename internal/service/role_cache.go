package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/metrics"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/inbound"
)

// DefaultRoleTTL is how long a fetched role list is served from cache.
const DefaultRoleTTL = 5 * time.Minute

// BatchFetcher produces a fresh BatchFetchResult.
type BatchFetcher interface {
	FetchAll(ctx context.Context, principalID string, opts FetchOptions, progress inbound.ProgressFunc) (*BatchFetchResult, error)
}

type roleCacheEntry struct {
	result      *BatchFetchResult
	principalID string
	opts        FetchOptions
	createdAt   time.Time
}

// RoleCache holds the most recent BatchFetchResult. Fetches run without the
// lock held, so readers keep seeing the previous entry meanwhile. A fetch
// that started before an Invalidate is returned to its caller but not cached.
type RoleCache struct {
	fetcher BatchFetcher
	ttl     time.Duration
	clock   Clock
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu         sync.Mutex
	current    *roleCacheEntry
	generation uint64
}

// NewRoleCache creates a cache with the given validity window.
func NewRoleCache(fetcher BatchFetcher, ttl time.Duration, clock Clock, m *metrics.Metrics, logger *slog.Logger) *RoleCache {
	if ttl <= 0 {
		ttl = DefaultRoleTTL
	}
	return &RoleCache{fetcher: fetcher, ttl: ttl, clock: clock, metrics: m, logger: logger}
}

// GetOrFetch returns the cached result while it is younger than the TTL and
// was fetched for the same principal and options; otherwise it fetches.
func (c *RoleCache) GetOrFetch(ctx context.Context, principalID string, opts FetchOptions, progress inbound.ProgressFunc) (*BatchFetchResult, error) {
	c.mu.Lock()
	if e := c.current; e != nil && e.principalID == principalID && e.opts == opts && c.clock.Now().Sub(e.createdAt) < c.ttl {
		c.mu.Unlock()
		c.metrics.RoleCacheResult(true)
		return e.result, nil
	}
	gen := c.generation
	c.mu.Unlock()
	c.metrics.RoleCacheResult(false)

	res, err := c.fetcher.FetchAll(ctx, principalID, opts, progress)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.logger.Debug("role cache invalidated during fetch, not caching result")
		return res, nil
	}
	c.current = &roleCacheEntry{
		result:      res,
		principalID: principalID,
		opts:        opts,
		createdAt:   c.clock.Now(),
	}
	return res, nil
}

// Peek returns the cached result regardless of age.
func (c *RoleCache) Peek() (*BatchFetchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, false
	}
	return c.current.result, true
}

// Invalidate drops the cached result.
func (c *RoleCache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.generation++
	c.mu.Unlock()
}
