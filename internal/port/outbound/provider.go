// Package outbound defines the outbound port interfaces for the identity
// provider: role sources, policy lookups, request submission and interactive
// token acquisition.
package outbound

import (
	"context"
	"time"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/activation"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/policy"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
)

// Principal is the signed-in user.
type Principal struct {
	ID                string
	DisplayName       string
	UserPrincipalName string
}

// PrincipalProvider resolves the signed-in user.
type PrincipalProvider interface {
	CurrentUser(ctx context.Context) (Principal, error)
}

// DirectoryRoleProvider lists directory role schedule instances for a principal.
// Returned roles carry provider data only: no policy, no attribution.
type DirectoryRoleProvider interface {
	ListEligibleDirectoryRoles(ctx context.Context, principalID string) ([]role.Role, error)
	ListActiveDirectoryRoles(ctx context.Context, principalID string) ([]role.Role, error)
}

// GroupScope is the raw data used to classify a group's directory scope.
type GroupScope struct {
	RoleAssignable bool
	// AdministrativeUnits are the AUs the group is a member of.
	AdministrativeUnits []AdministrativeUnit
}

// AdministrativeUnit is a directory scoping container.
type AdministrativeUnit struct {
	ID          string
	DisplayName string
}

// GroupProvider lists PIM group schedule instances for a principal and the
// directory roles a group grants.
type GroupProvider interface {
	ListEligibleGroupMemberships(ctx context.Context, principalID string) ([]role.Role, error)
	ListActiveGroupMemberships(ctx context.Context, principalID string) ([]role.Role, error)
	// ListGroupProvidedRoles returns the directory roles assigned to the group.
	ListGroupProvidedRoles(ctx context.Context, groupID string) ([]role.ProvidedRole, error)
	GetGroupScope(ctx context.Context, groupID string) (GroupScope, error)
}

// DirectoryProvider resolves directory objects used for display.
type DirectoryProvider interface {
	GetAdministrativeUnit(ctx context.Context, id string) (AdministrativeUnit, error)
}

// PolicyAssignment links a role (or group access id) to its management policy.
type PolicyAssignment struct {
	ID       string
	PolicyID string
	ScopeID  string
	// RoleDefinitionID is the directory role id, or "member"/"owner" for groups.
	RoleDefinitionID string
}

// PolicyProvider reads role management policies. Directory and group
// policies come back in different schemas; adapters map both to RawRule.
type PolicyProvider interface {
	// ListDirectoryPolicyAssignments returns the assignments for all given
	// role-definition ids at directory scope.
	ListDirectoryPolicyAssignments(ctx context.Context, roleDefinitionIDs []string) ([]PolicyAssignment, error)
	GetDirectoryPolicyRules(ctx context.Context, policyID string) ([]policy.RawRule, error)
	ListGroupPolicyAssignments(ctx context.Context, groupID string) ([]PolicyAssignment, error)
	GetGroupPolicyRules(ctx context.Context, policyID string) ([]policy.RawRule, error)
	GetAuthenticationContext(ctx context.Context, contextID string) (policy.AuthContext, error)
}

// SubmissionResult is the provider's acknowledgement of a schedule request.
type SubmissionResult struct {
	ID     string
	Status string
}

// RequestSubmitter submits schedule requests. An empty accessToken means the
// ambient credentials are used.
type RequestSubmitter interface {
	SubmitActivation(ctx context.Context, req activation.Request, accessToken string) (SubmissionResult, error)
	SubmitDeactivation(ctx context.Context, req activation.Request, accessToken string) (SubmissionResult, error)
	// FindActiveScheduleID looks up the current active schedule for r.
	// Returns ErrNotFound when the role is not active.
	FindActiveScheduleID(ctx context.Context, principalID string, r role.Role) (string, error)
}

// Provider is the full identity provider surface.
type Provider interface {
	PrincipalProvider
	DirectoryRoleProvider
	GroupProvider
	DirectoryProvider
	PolicyProvider
	RequestSubmitter
}

// AccessToken is a bearer token and its provider-reported expiry.
// ExpiresOn may be zero when the provider did not report one.
type AccessToken struct {
	Token     string
	ExpiresOn time.Time
}

// TokenAcquirer performs interactive sign-in with a claims challenge.
type TokenAcquirer interface {
	AcquireTokenInteractive(ctx context.Context, claims string) (AccessToken, error)
}
