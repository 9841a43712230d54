package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

// Role source names.
const (
	SourceDirectory = "directory"
	SourceGroups    = "groups"
	SourceAzure     = "azure"
)

// SourceResult is what one role source returns.
type SourceResult struct {
	Eligible []role.Role
	Active   []role.Role
}

// RoleSource fetches eligible and active roles from one provider surface.
// Not-found and access-denied responses are empty results, not errors.
type RoleSource interface {
	Name() string
	FetchRoles(ctx context.Context, principalID string) (SourceResult, error)
}

// listOrEmpty swallows empty-result errors.
func listOrEmpty(logger *slog.Logger, source, what string, roles []role.Role, err error) ([]role.Role, error) {
	if err == nil {
		return roles, nil
	}
	if outbound.IsEmptyResult(err) {
		logger.Debug("role source returned no data", "source", source, "list", what, "error", err)
		return nil, nil
	}
	return nil, fmt.Errorf("%s %s: %w", source, what, err)
}

// DirectoryRoleSource lists Entra ID directory role eligibilities and
// active assignments.
type DirectoryRoleSource struct {
	provider outbound.DirectoryRoleProvider
	scopes   *ScopeResolver
	logger   *slog.Logger
}

// NewDirectoryRoleSource creates the directory role source.
func NewDirectoryRoleSource(provider outbound.DirectoryRoleProvider, scopes *ScopeResolver, logger *slog.Logger) *DirectoryRoleSource {
	return &DirectoryRoleSource{provider: provider, scopes: scopes, logger: logger}
}

// Name returns SourceDirectory.
func (s *DirectoryRoleSource) Name() string { return SourceDirectory }

// FetchRoles lists both sets and fills the scope display.
func (s *DirectoryRoleSource) FetchRoles(ctx context.Context, principalID string) (SourceResult, error) {
	eligible, err := s.provider.ListEligibleDirectoryRoles(ctx, principalID)
	eligible, err = listOrEmpty(s.logger, SourceDirectory, "eligible", eligible, err)
	if err != nil {
		return SourceResult{}, err
	}
	active, err := s.provider.ListActiveDirectoryRoles(ctx, principalID)
	active, err = listOrEmpty(s.logger, SourceDirectory, "active", active, err)
	if err != nil {
		return SourceResult{}, err
	}

	for _, set := range [][]role.Role{eligible, active} {
		for i := range set {
			set[i].ScopeDisplay = s.scopes.DirectoryScope(ctx, set[i].DirectoryScopeID)
		}
	}
	return SourceResult{Eligible: eligible, Active: active}, nil
}

// GroupRoleSource lists PIM group memberships and ownerships. Active groups
// also carry the directory roles they grant, which attribution needs.
type GroupRoleSource struct {
	provider outbound.GroupProvider
	scopes   *ScopeResolver
	logger   *slog.Logger
}

// NewGroupRoleSource creates the group role source.
func NewGroupRoleSource(provider outbound.GroupProvider, scopes *ScopeResolver, logger *slog.Logger) *GroupRoleSource {
	return &GroupRoleSource{provider: provider, scopes: scopes, logger: logger}
}

// Name returns SourceGroups.
func (s *GroupRoleSource) Name() string { return SourceGroups }

// FetchRoles lists both sets, classifies scope and loads provided roles for
// active groups. Provided-role failures leave the list empty.
func (s *GroupRoleSource) FetchRoles(ctx context.Context, principalID string) (SourceResult, error) {
	eligible, err := s.provider.ListEligibleGroupMemberships(ctx, principalID)
	eligible, err = listOrEmpty(s.logger, SourceGroups, "eligible", eligible, err)
	if err != nil {
		return SourceResult{}, err
	}
	active, err := s.provider.ListActiveGroupMemberships(ctx, principalID)
	active, err = listOrEmpty(s.logger, SourceGroups, "active", active, err)
	if err != nil {
		return SourceResult{}, err
	}

	provided := make(map[string][]role.ProvidedRole)
	for i := range active {
		id := active[i].ID
		roles, ok := provided[id]
		if !ok {
			roles, err = s.provider.ListGroupProvidedRoles(ctx, id)
			if err != nil {
				s.logger.Warn("could not load roles provided by group",
					"source", SourceGroups,
					"group_id", id,
					"error", err,
				)
				roles = nil
			}
			provided[id] = roles
		}
		active[i].ProvidedRoles = roles
		active[i].ScopeDisplay = s.scopes.GroupScope(ctx, id)
	}
	for i := range eligible {
		eligible[i].ScopeDisplay = s.scopes.GroupScope(ctx, eligible[i].ID)
		if roles, ok := provided[eligible[i].ID]; ok {
			eligible[i].ProvidedRoles = roles
		}
	}
	return SourceResult{Eligible: eligible, Active: active}, nil
}

// AzureResourceSource stands in for Azure subscription roles, which are not
// supported. It always returns an empty result.
type AzureResourceSource struct{}

// Name returns SourceAzure.
func (AzureResourceSource) Name() string { return SourceAzure }

// FetchRoles returns no roles.
func (AzureResourceSource) FetchRoles(context.Context, string) (SourceResult, error) {
	return SourceResult{}, nil
}
