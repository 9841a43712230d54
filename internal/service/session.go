// Package service contains the role orchestration services: role sources,
// policy resolution, batch fetching with caching, authentication-context
// tokens and the activation and deactivation workflows.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

// Session owns the process-wide caches for one signed-in principal.
// Clear empties all of them together on account switch.
type Session struct {
	principals outbound.PrincipalProvider
	policies   outbound.PolicyStore
	tokens     *TokenManager
	roles      *RoleCache
	scopes     *ScopeResolver
	signOut    func(context.Context) error
	logger     *slog.Logger

	mu        sync.Mutex
	principal *outbound.Principal
}

// SessionOption configures Session.
type SessionOption func(*Session)

// WithSignOut registers a hook run by Clear, typically forgetting the
// signed-in account.
func WithSignOut(fn func(context.Context) error) SessionOption {
	return func(s *Session) {
		s.signOut = fn
	}
}

// NewSession creates a Session over the given caches.
func NewSession(principals outbound.PrincipalProvider, policies outbound.PolicyStore, tokens *TokenManager, roles *RoleCache, scopes *ScopeResolver, logger *slog.Logger, opts ...SessionOption) *Session {
	s := &Session{
		principals: principals,
		policies:   policies,
		tokens:     tokens,
		roles:      roles,
		scopes:     scopes,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Principal returns the signed-in user, resolving it once.
func (s *Session) Principal(ctx context.Context) (outbound.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal != nil {
		return *s.principal, nil
	}
	p, err := s.principals.CurrentUser(ctx)
	if err != nil {
		return outbound.Principal{}, fmt.Errorf("resolve current user: %w", err)
	}
	s.principal = &p
	s.logger.Debug("signed-in principal resolved", "principal_id", p.ID, "upn", p.UserPrincipalName)
	return p, nil
}

// Clear drops every cached policy, context, token, scope and role list and
// forgets the principal. A sign-out failure is returned after the in-process
// caches are already empty.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.principal = nil
	s.mu.Unlock()

	s.policies.Clear()
	s.tokens.Clear()
	s.roles.Invalidate()
	if s.scopes != nil {
		s.scopes.Clear()
	}
	if s.signOut != nil {
		if err := s.signOut(ctx); err != nil {
			return fmt.Errorf("sign out: %w", err)
		}
	}
	s.logger.Info("session cleared")
	return nil
}
