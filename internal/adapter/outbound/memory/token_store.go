package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

// DefaultCleanupInterval is how often expired tokens are swept.
const DefaultCleanupInterval = 1 * time.Minute

// Compile-time interface verification.
var _ outbound.TokenStore = (*TokenStore)(nil)

// TokenStore implements outbound.TokenStore with an in-memory map.
// Thread-safe for concurrent access. A background cleanup goroutine removes
// expired tokens periodically; Get never returns an expired token either way.
type TokenStore struct {
	tokens          map[string]outbound.CachedToken
	mu              sync.RWMutex
	now             func() time.Time
	stopChan        chan struct{}
	wg              sync.WaitGroup
	cleanupInterval time.Duration
	once            sync.Once // Prevent double-close panic on Stop()
}

// TokenStoreOption configures a TokenStore.
type TokenStoreOption func(*TokenStore)

// WithTokenClock sets the time source used for expiry checks.
func WithTokenClock(now func() time.Time) TokenStoreOption {
	return func(s *TokenStore) {
		s.now = now
	}
}

// WithCleanupInterval sets the background sweep interval.
func WithCleanupInterval(d time.Duration) TokenStoreOption {
	return func(s *TokenStore) {
		if d > 0 {
			s.cleanupInterval = d
		}
	}
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore(opts ...TokenStoreOption) *TokenStore {
	s := &TokenStore{
		tokens:          make(map[string]outbound.CachedToken),
		now:             time.Now,
		stopChan:        make(chan struct{}),
		cleanupInterval: DefaultCleanupInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartCleanup starts the background cleanup goroutine.
// Call Stop() to stop it gracefully.
func (s *TokenStore) StartCleanup(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.cleanup()
			}
		}
	}()
}

// cleanup removes all expired tokens from the store.
func (s *TokenStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cleaned := 0
	for id, tok := range s.tokens {
		if !now.Before(tok.ExpiryTime) {
			delete(s.tokens, id)
			cleaned++
		}
	}

	if cleaned > 0 {
		slog.Debug("cleaned expired context tokens", "count", cleaned)
	}
}

// Stop stops the background cleanup goroutine and waits for it to exit.
// Safe to call multiple times.
func (s *TokenStore) Stop() {
	s.once.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

// Get returns the token for contextID while now < ExpiryTime.
// Expired entries are left for the cleanup goroutine.
func (s *TokenStore) Get(contextID string) (outbound.CachedToken, bool) {
	s.mu.RLock()
	tok, ok := s.tokens[contextID]
	s.mu.RUnlock()

	if !ok || !s.now().Before(tok.ExpiryTime) {
		return outbound.CachedToken{}, false
	}
	return tok, true
}

// Put stores or replaces the token for its context.
func (s *TokenStore) Put(t outbound.CachedToken) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[t.ContextID] = t
}

// Delete removes the token for contextID.
func (s *TokenStore) Delete(contextID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, contextID)
}

// Clear removes every token.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = make(map[string]outbound.CachedToken)
}

// Size returns the number of stored tokens, expired or not.
// Useful for testing cleanup behavior.
func (s *TokenStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.tokens)
}
