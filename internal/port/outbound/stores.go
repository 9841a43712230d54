package outbound

import (
	"time"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/policy"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
)

// PolicyStore is the process-lifetime tier of the policy cache. Entries
// never expire; Clear drops everything on account switch.
type PolicyStore interface {
	GetPolicy(key role.Key) (policy.Descriptor, bool)
	PutPolicy(key role.Key, d policy.Descriptor)
	GetAuthContext(id string) (policy.AuthContext, bool)
	PutAuthContext(c policy.AuthContext)
	// Policies returns a copy of all cached descriptors keyed by Key.String().
	Policies() map[string]policy.Descriptor
	// AuthContexts returns a copy of all cached contexts keyed by id.
	AuthContexts() map[string]policy.AuthContext
	Clear()
}

// CachedToken is an access token scoped to one authentication context.
type CachedToken struct {
	ContextID   string
	AccessToken string
	// ExpiryTime is conservative: earlier than the provider's real expiry.
	ExpiryTime time.Time
}

// TokenStore caches authentication-context tokens. Get never returns an
// entry whose ExpiryTime has passed.
type TokenStore interface {
	Get(contextID string) (CachedToken, bool)
	Put(t CachedToken)
	Delete(contextID string)
	Clear()
}
