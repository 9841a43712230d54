package graph

import (
	"context"
	"net/http"
	"strings"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

const (
	pathMe                        = "/me"
	pathDirectoryEligibleInstance = "/roleManagement/directory/roleEligibilityScheduleInstances"
	pathDirectoryActiveInstance   = "/roleManagement/directory/roleAssignmentScheduleInstances"
	pathDirectoryAssignments      = "/roleManagement/directory/roleAssignments"
	pathGroupEligibleInstance     = "/identityGovernance/privilegedAccess/group/eligibilityScheduleInstances"
	pathGroupActiveInstance       = "/identityGovernance/privilegedAccess/group/assignmentScheduleInstances"
	pathGroups                    = "/groups/"
	pathAdministrativeUnits       = "/directory/administrativeUnits/"

	resourceDirectory = "Entra ID"
	resourceGroup     = "Entra ID Group"
)

// CurrentUser returns the signed-in user.
func (c *Client) CurrentUser(ctx context.Context) (outbound.Principal, error) {
	var u user
	err := c.do(ctx, request{
		op:     "get_me",
		method: http.MethodGet,
		path:   withQuery(pathMe, "$select", "id,displayName,userPrincipalName"),
		out:    &u,
	})
	if err != nil {
		return outbound.Principal{}, err
	}
	return outbound.Principal{ID: u.ID, DisplayName: u.DisplayName, UserPrincipalName: u.UserPrincipalName}, nil
}

func principalFilter(principalID string) string {
	return "principalId eq " + quote(principalID)
}

// ListEligibleDirectoryRoles lists the principal's directory role eligibilities.
func (c *Client) ListEligibleDirectoryRoles(ctx context.Context, principalID string) ([]role.Role, error) {
	path := withQuery(pathDirectoryEligibleInstance,
		"$filter", principalFilter(principalID),
		"$expand", "roleDefinition",
	)
	items, err := listAll[directoryScheduleInstance](ctx, c, "list_eligible_directory", path)
	if err != nil {
		return nil, err
	}
	out := make([]role.Role, 0, len(items))
	for _, it := range items {
		out = append(out, mapDirectoryInstance(it, role.StatusEligible))
	}
	return out, nil
}

// ListActiveDirectoryRoles lists the principal's active directory role assignments.
func (c *Client) ListActiveDirectoryRoles(ctx context.Context, principalID string) ([]role.Role, error) {
	path := withQuery(pathDirectoryActiveInstance,
		"$filter", principalFilter(principalID),
		"$expand", "roleDefinition",
	)
	items, err := listAll[directoryScheduleInstance](ctx, c, "list_active_directory", path)
	if err != nil {
		return nil, err
	}
	out := make([]role.Role, 0, len(items))
	for _, it := range items {
		out = append(out, mapDirectoryInstance(it, role.StatusActive))
	}
	return out, nil
}

func mapDirectoryInstance(it directoryScheduleInstance, status role.Status) role.Role {
	r := role.Role{
		ID:               it.RoleDefinitionID,
		Type:             role.TypeDirectoryRole,
		DisplayName:      it.RoleDefinitionID,
		ResourceName:     resourceDirectory,
		DirectoryScopeID: it.DirectoryScopeID,
		Status:           status,
		MemberType:       directoryMemberType(it.MemberType),
		StartDateTime:    it.StartDateTime,
		EndDateTime:      it.EndDateTime,
	}
	if it.RoleDefinition != nil && it.RoleDefinition.DisplayName != "" {
		r.DisplayName = it.RoleDefinition.DisplayName
	}
	if r.DirectoryScopeID == "" {
		r.DirectoryScopeID = "/"
	}
	if status == role.StatusActive {
		r.ScheduleID = it.RoleAssignmentScheduleID
	}
	return r
}

// directoryMemberType maps Graph memberType ("Direct", "Group", "Inherited").
func directoryMemberType(s string) role.MemberType {
	switch strings.ToLower(s) {
	case "direct":
		return role.MemberDirect
	case "group", "inherited":
		return role.MemberInherited
	default:
		return ""
	}
}

// ListEligibleGroupMemberships lists the principal's PIM group eligibilities.
func (c *Client) ListEligibleGroupMemberships(ctx context.Context, principalID string) ([]role.Role, error) {
	path := withQuery(pathGroupEligibleInstance,
		"$filter", principalFilter(principalID),
		"$expand", "group",
	)
	items, err := listAll[groupScheduleInstance](ctx, c, "list_eligible_groups", path)
	if err != nil {
		return nil, err
	}
	out := make([]role.Role, 0, len(items))
	for _, it := range items {
		out = append(out, mapGroupInstance(it, role.StatusEligible))
	}
	return out, nil
}

// ListActiveGroupMemberships lists the principal's active PIM group assignments.
func (c *Client) ListActiveGroupMemberships(ctx context.Context, principalID string) ([]role.Role, error) {
	path := withQuery(pathGroupActiveInstance,
		"$filter", principalFilter(principalID),
		"$expand", "group",
	)
	items, err := listAll[groupScheduleInstance](ctx, c, "list_active_groups", path)
	if err != nil {
		return nil, err
	}
	out := make([]role.Role, 0, len(items))
	for _, it := range items {
		out = append(out, mapGroupInstance(it, role.StatusActive))
	}
	return out, nil
}

func mapGroupInstance(it groupScheduleInstance, status role.Status) role.Role {
	r := role.Role{
		ID:            it.GroupID,
		Type:          role.TypeGroup,
		DisplayName:   it.GroupID,
		ResourceName:  resourceGroup,
		Status:        status,
		MemberType:    groupMemberType(it.AccessID),
		StartDateTime: it.StartDateTime,
		EndDateTime:   it.EndDateTime,
	}
	if it.Group != nil && it.Group.DisplayName != "" {
		r.DisplayName = it.Group.DisplayName
	}
	if status == role.StatusActive {
		r.ScheduleID = it.AssignmentScheduleID
	}
	return r
}

// groupMemberType maps the PIM-for-groups accessId.
func groupMemberType(accessID string) role.MemberType {
	if strings.EqualFold(accessID, "owner") {
		return role.MemberOwner
	}
	return role.MemberMember
}

// ListGroupProvidedRoles returns the directory roles assigned to a group.
func (c *Client) ListGroupProvidedRoles(ctx context.Context, groupID string) ([]role.ProvidedRole, error) {
	path := withQuery(pathDirectoryAssignments,
		"$filter", principalFilter(groupID),
		"$expand", "roleDefinition",
	)
	items, err := listAll[roleAssignment](ctx, c, "list_group_provided_roles", path)
	if err != nil {
		return nil, err
	}
	out := make([]role.ProvidedRole, 0, len(items))
	for _, it := range items {
		pr := role.ProvidedRole{
			RoleDefinitionID: it.RoleDefinitionID,
			DisplayName:      it.RoleDefinitionID,
			DirectoryScopeID: it.DirectoryScopeID,
		}
		if it.RoleDefinition != nil && it.RoleDefinition.DisplayName != "" {
			pr.DisplayName = it.RoleDefinition.DisplayName
		}
		out = append(out, pr)
	}
	return out, nil
}

// GetGroupScope reads role-assignability and administrative-unit membership.
// A group without AU memberships is reported with an empty AU list.
func (c *Client) GetGroupScope(ctx context.Context, groupID string) (outbound.GroupScope, error) {
	var g group
	err := c.do(ctx, request{
		op:     "get_group",
		method: http.MethodGet,
		path:   withQuery(pathGroups+groupID, "$select", "id,displayName,isAssignableToRole"),
		out:    &g,
	})
	if err != nil {
		return outbound.GroupScope{}, err
	}

	scope := outbound.GroupScope{RoleAssignable: g.IsAssignableToRole != nil && *g.IsAssignableToRole}

	aus, err := listAll[administrativeUnit](ctx, c, "list_group_administrative_units",
		withQuery(pathGroups+groupID+"/memberOf/microsoft.graph.administrativeUnit", "$select", "id,displayName"))
	if err != nil && !isEmpty(err) {
		return outbound.GroupScope{}, err
	}
	for _, au := range aus {
		scope.AdministrativeUnits = append(scope.AdministrativeUnits, outbound.AdministrativeUnit{ID: au.ID, DisplayName: au.DisplayName})
	}
	return scope, nil
}

// GetAdministrativeUnit returns an administrative unit's display data.
func (c *Client) GetAdministrativeUnit(ctx context.Context, id string) (outbound.AdministrativeUnit, error) {
	var au administrativeUnit
	err := c.do(ctx, request{
		op:     "get_administrative_unit",
		method: http.MethodGet,
		path:   withQuery(pathAdministrativeUnits+id, "$select", "id,displayName"),
		out:    &au,
	})
	if err != nil {
		return outbound.AdministrativeUnit{}, err
	}
	return outbound.AdministrativeUnit{ID: au.ID, DisplayName: au.DisplayName}, nil
}
