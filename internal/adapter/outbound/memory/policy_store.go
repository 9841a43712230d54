// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"sync"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/policy"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

// Compile-time interface verification.
var _ outbound.PolicyStore = (*PolicyStore)(nil)

// PolicyStore implements outbound.PolicyStore with in-memory maps.
// Thread-safe for concurrent access.
type PolicyStore struct {
	policies map[string]policy.Descriptor // Key.String() -> descriptor
	contexts map[string]policy.AuthContext
	mu       sync.RWMutex
}

// NewPolicyStore creates a new in-memory policy store.
func NewPolicyStore() *PolicyStore {
	return &PolicyStore{
		policies: make(map[string]policy.Descriptor),
		contexts: make(map[string]policy.AuthContext),
	}
}

// GetPolicy returns the cached descriptor for key.
func (s *PolicyStore) GetPolicy(key role.Key) (policy.Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.policies[key.String()]
	return d, ok
}

// PutPolicy stores a descriptor. Descriptors are values, so callers cannot
// mutate the stored copy.
func (s *PolicyStore) PutPolicy(key role.Key, d policy.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policies[key.String()] = d
}

// GetAuthContext returns cached authentication-context metadata.
func (s *PolicyStore) GetAuthContext(id string) (policy.AuthContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contexts[id]
	return c, ok
}

// PutAuthContext stores authentication-context metadata.
func (s *PolicyStore) PutAuthContext(c policy.AuthContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contexts[c.ID] = c
}

// Policies returns a snapshot of all cached descriptors.
func (s *PolicyStore) Policies() map[string]policy.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]policy.Descriptor, len(s.policies))
	for k, v := range s.policies {
		out[k] = v
	}
	return out
}

// AuthContexts returns a snapshot of all cached authentication contexts.
func (s *PolicyStore) AuthContexts() map[string]policy.AuthContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]policy.AuthContext, len(s.contexts))
	for k, v := range s.contexts {
		out[k] = v
	}
	return out
}

// Clear drops every cached policy and context.
func (s *PolicyStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policies = make(map[string]policy.Descriptor)
	s.contexts = make(map[string]policy.AuthContext)
}

// Len returns the number of cached descriptors.
func (s *PolicyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.policies)
}
