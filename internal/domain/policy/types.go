// Package policy contains the normalized PIM activation policy model and the
// normalizer that builds it from provider rule collections.
package policy

// DefaultMaxDurationHours is the activation cap assumed when a policy has no
// parsable expiration rule or could not be fetched.
const DefaultMaxDurationHours = 8

// Descriptor is the normalized activation policy for one role identity.
//
// Invariant: RequiresAuthenticationContext implies AuthenticationContextID != "".
type Descriptor struct {
	MaxDurationHours int `json:"maxDurationHours" yaml:"maxDurationHours"`

	RequiresJustification         bool `json:"requiresJustification" yaml:"requiresJustification"`
	RequiresTicket                bool `json:"requiresTicket" yaml:"requiresTicket"`
	RequiresMFA                   bool `json:"requiresMfa" yaml:"requiresMfa"`
	RequiresApproval              bool `json:"requiresApproval" yaml:"requiresApproval"`
	RequiresAuthenticationContext bool `json:"requiresAuthenticationContext" yaml:"requiresAuthenticationContext"`

	// AuthenticationContextID is the claim value (e.g. "c3"). Empty means none.
	AuthenticationContextID string `json:"authenticationContextId,omitempty" yaml:"authenticationContextId,omitempty"`
	// AuthenticationContextName and AuthenticationContextDescription are filled
	// in from the authentication-context metadata lookup.
	AuthenticationContextName        string `json:"authenticationContextName,omitempty" yaml:"authenticationContextName,omitempty"`
	AuthenticationContextDescription string `json:"authenticationContextDescription,omitempty" yaml:"authenticationContextDescription,omitempty"`
}

// Default returns the descriptor used when nothing better is known:
// 8 hours and no special requirements.
func Default() Descriptor {
	return Descriptor{MaxDurationHours: DefaultMaxDurationHours}
}

// Valid reports whether the descriptor satisfies its invariant.
func (d Descriptor) Valid() bool {
	return !d.RequiresAuthenticationContext || d.AuthenticationContextID != ""
}

// WithContext returns a copy of d enriched with authentication-context metadata.
// Descriptors that reference a different context are returned unchanged.
func (d Descriptor) WithContext(c AuthContext) Descriptor {
	if d.AuthenticationContextID == "" || d.AuthenticationContextID != c.ID {
		return d
	}
	d.AuthenticationContextName = c.DisplayName
	d.AuthenticationContextDescription = c.Description
	return d
}

// AuthContext is the display metadata of a conditional-access
// authentication context class reference.
type AuthContext struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"displayName" yaml:"displayName"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// RuleKind discriminates the provider rule variants the normalizer understands.
type RuleKind string

const (
	// RuleUnknown is any rule the normalizer ignores (notification rules etc).
	RuleUnknown RuleKind = ""
	// RuleExpiration carries the maximum activation duration.
	RuleExpiration RuleKind = "Expiration"
	// RuleEnablement lists controls enabled on activation.
	RuleEnablement RuleKind = "Enablement"
	// RuleApproval carries the approval setting.
	RuleApproval RuleKind = "Approval"
	// RuleAuthenticationContext carries the required authentication context claim.
	RuleAuthenticationContext RuleKind = "AuthenticationContext"
)

// Enabled control names found in enablement rules.
const (
	ControlJustification         = "Justification"
	ControlTicketing             = "Ticketing"
	ControlMFA                   = "MultiFactorAuthentication"
	ControlAuthenticationContext = "AuthenticationContext"
)

// RuleTarget scopes a rule to a caller and level. Only EndUser/Assignment
// rules govern self-activation.
type RuleTarget struct {
	Caller string
	Level  string
}

// RawRule is the source-neutral shape both provider schemas are mapped into
// before normalization.
type RawRule struct {
	ID     string
	Kind   RuleKind
	Target RuleTarget

	// MaximumDuration is an ISO-8601 duration (expiration rules).
	MaximumDuration string
	// EnabledRules lists control names (enablement rules).
	EnabledRules []string
	// ApprovalRequired mirrors setting.isApprovalRequired (approval rules).
	ApprovalRequired bool
	// ContextEnabled and ClaimValue come from authentication-context rules.
	ContextEnabled bool
	ClaimValue     string
}
