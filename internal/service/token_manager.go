package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/policy"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/metrics"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

// ErrAuthContextToken is returned when an authentication-context token
// could not be acquired.
var ErrAuthContextToken = errors.New("authentication context token acquisition failed")

// Token manager defaults.
const (
	DefaultInteractiveTimeout = 2 * time.Minute
	DefaultTokenSafetyMargin  = 5 * time.Minute
	DefaultMaxTokenLifetime   = 45 * time.Minute
)

// TokenManager acquires and caches tokens scoped to authentication contexts.
// Failures are never cached: every call after a failure prompts again.
type TokenManager struct {
	acquirer outbound.TokenAcquirer
	store    outbound.TokenStore
	clock    Clock
	metrics  *metrics.Metrics
	logger   *slog.Logger

	timeout     time.Duration
	margin      time.Duration
	maxLifetime time.Duration

	// mu serializes interactive prompts.
	mu sync.Mutex
}

// TokenManagerOption configures TokenManager.
type TokenManagerOption func(*TokenManager)

// WithInteractiveTimeout bounds each interactive acquisition.
func WithInteractiveTimeout(d time.Duration) TokenManagerOption {
	return func(m *TokenManager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithTokenLifetime sets the safety margin subtracted from the provider
// expiry and the ceiling on how long any token is cached.
func WithTokenLifetime(margin, maxLifetime time.Duration) TokenManagerOption {
	return func(m *TokenManager) {
		if margin >= 0 {
			m.margin = margin
		}
		if maxLifetime > 0 {
			m.maxLifetime = maxLifetime
		}
	}
}

// NewTokenManager creates a TokenManager.
func NewTokenManager(acquirer outbound.TokenAcquirer, store outbound.TokenStore, clock Clock, m *metrics.Metrics, logger *slog.Logger, opts ...TokenManagerOption) *TokenManager {
	tm := &TokenManager{
		acquirer:    acquirer,
		store:       store,
		clock:       clock,
		metrics:     m,
		logger:      logger,
		timeout:     DefaultInteractiveTimeout,
		margin:      DefaultTokenSafetyMargin,
		maxLifetime: DefaultMaxTokenLifetime,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// GetToken returns a valid cached token for contextID or acquires one.
func (m *TokenManager) GetToken(ctx context.Context, contextID string) (string, error) {
	tok, _, err := m.token(ctx, contextID)
	return tok, err
}

// token also reports whether the token came from the cache.
func (m *TokenManager) token(ctx context.Context, contextID string) (string, bool, error) {
	if t, ok := m.store.Get(contextID); ok {
		m.metrics.TokenAcquired(true, nil)
		return t.AccessToken, true, nil
	}
	return m.acquire(ctx, contextID, false)
}

// ForceRefresh discards any cached token for contextID and acquires a new
// one interactively.
func (m *TokenManager) ForceRefresh(ctx context.Context, contextID string) (string, error) {
	tok, _, err := m.acquire(ctx, contextID, true)
	return tok, err
}

func (m *TokenManager) acquire(ctx context.Context, contextID string, force bool) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have signed in while this one waited for the lock.
	if !force {
		if t, ok := m.store.Get(contextID); ok {
			m.metrics.TokenAcquired(true, nil)
			return t.AccessToken, true, nil
		}
	}
	m.store.Delete(contextID)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.logger.Info("authentication context required, signing in", "context_id", contextID)
	tok, err := m.acquirer.AcquireTokenInteractive(ctx, policy.ClaimsChallenge(contextID))
	m.metrics.TokenAcquired(false, err)
	if err != nil {
		m.logger.Warn("authentication context token acquisition failed",
			"context_id", contextID,
			"error", err,
		)
		return "", false, fmt.Errorf("%w for context %s: %w", ErrAuthContextToken, contextID, err)
	}

	now := m.clock.Now()
	expiry := m.expiry(tok, now)
	if expiry.After(now) {
		m.store.Put(outbound.CachedToken{
			ContextID:   contextID,
			AccessToken: tok.Token,
			ExpiryTime:  expiry,
		})
	}
	return tok.Token, false, nil
}

// expiry is min(provider expiry - margin, now + maxLifetime). When the
// acquirer reports no expiry the token's exp claim is used.
func (m *TokenManager) expiry(tok outbound.AccessToken, now time.Time) time.Time {
	expiry := now.Add(m.maxLifetime)

	exp := tok.ExpiresOn
	if exp.IsZero() {
		exp = jwtExpiry(tok.Token)
	}
	if !exp.IsZero() {
		if e := exp.Add(-m.margin); e.Before(expiry) {
			expiry = e
		}
	}
	return expiry
}

// jwtExpiry reads the exp claim without verifying the signature; the token
// is only inspected for cache bookkeeping.
func jwtExpiry(raw string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Invalidate drops the cached token for contextID.
func (m *TokenManager) Invalidate(contextID string) {
	m.store.Delete(contextID)
}

// Clear drops every cached token.
func (m *TokenManager) Clear() {
	m.store.Clear()
}
