// Package role contains domain types for privileged role assignments.
package role

import (
	"time"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/policy"
)

// Type identifies which role source produced an assignment.
type Type string

const (
	// TypeDirectoryRole is an Entra ID directory role (role-definition based).
	TypeDirectoryRole Type = "DirectoryRole"
	// TypeGroup is a PIM-enabled group membership or ownership.
	TypeGroup Type = "Group"
	// TypeAzureResource is an Azure subscription-scoped role. Never produced today.
	TypeAzureResource Type = "AzureResource"
)

// Status is whether the principal may activate the role or currently holds it.
type Status string

const (
	// StatusEligible means the role may be activated.
	StatusEligible Status = "Eligible"
	// StatusActive means the role is currently held.
	StatusActive Status = "Active"
)

// MemberType describes how the principal holds the assignment.
// The empty value means the provider gave no signal.
type MemberType string

const (
	// MemberDirect is an assignment made to the principal itself.
	MemberDirect MemberType = "Direct"
	// MemberInherited is an assignment held transitively through a group.
	MemberInherited MemberType = "Inherited"
	// MemberMember is a group membership.
	MemberMember MemberType = "Member"
	// MemberOwner is a group ownership.
	MemberOwner MemberType = "Owner"
)

// Key identifies a role for policy lookups. ID is the role-definition id for
// directory roles and the group id for groups.
type Key struct {
	Type Type
	ID   string
}

// String renders the key with a type prefix so directory and group ids can
// never collide in a shared map.
func (k Key) String() string {
	switch k.Type {
	case TypeDirectoryRole:
		return "directory:" + k.ID
	case TypeGroup:
		return "group:" + k.ID
	default:
		return string(k.Type) + ":" + k.ID
	}
}

// ProvidedRole is a directory role that membership in a group grants.
type ProvidedRole struct {
	RoleDefinitionID string
	DisplayName      string
	DirectoryScopeID string
}

// GroupAttribution records which PIM group provides an active directory role.
type GroupAttribution struct {
	// GroupID is the providing group's object id.
	GroupID string
	// GroupName is the providing group's display name.
	GroupName string
	// Expiration is the providing group assignment's end time (nil = permanent).
	Expiration *time.Time
	// GroupOnly is true when the group is the only path granting the role.
	// False means a direct assignment with its own expiration also exists.
	GroupOnly bool
}

// Role is a privileged-access grant, eligible or active.
// Roles are rebuilt on every fetch and never mutated by callers.
type Role struct {
	// ID is the role-definition id (directory roles) or group id (groups).
	ID   string
	Type Type

	DisplayName  string
	ResourceName string
	ScopeDisplay string
	// DirectoryScopeID is the raw directory scope ("/" or "/administrativeUnits/{id}").
	DirectoryScopeID string

	Status     Status
	MemberType MemberType

	StartDateTime *time.Time
	// EndDateTime is nil for permanent assignments.
	EndDateTime *time.Time

	// ScheduleID identifies the active assignment schedule. Only set when Active.
	ScheduleID string

	// ProvidedRoles lists the directory roles granted by a group (groups only).
	ProvidedRoles []ProvidedRole

	// Policy is attached once resolved by the policy resolver.
	Policy *policy.Descriptor

	// ProvidedBy is set by the attribution resolver on active directory roles.
	ProvidedBy *GroupAttribution
}

// Key returns the policy lookup key for the role.
func (r Role) Key() Key {
	return Key{Type: r.Type, ID: r.ID}
}

// AccessID returns the PIM-for-groups access id ("member" or "owner").
func (r Role) AccessID() string {
	if r.MemberType == MemberOwner {
		return "owner"
	}
	return "member"
}

// IsPermanent reports whether the assignment has no end time.
func (r Role) IsPermanent() bool {
	return r.EndDateTime == nil
}

// EffectivePolicy returns the attached policy or the default descriptor.
func (r Role) EffectivePolicy() policy.Descriptor {
	if r.Policy == nil {
		return policy.Default()
	}
	return *r.Policy
}

// Clone returns a copy that shares no mutable state with r.
func (r Role) Clone() Role {
	c := r
	if r.StartDateTime != nil {
		t := *r.StartDateTime
		c.StartDateTime = &t
	}
	if r.EndDateTime != nil {
		t := *r.EndDateTime
		c.EndDateTime = &t
	}
	if r.ProvidedRoles != nil {
		c.ProvidedRoles = make([]ProvidedRole, len(r.ProvidedRoles))
		copy(c.ProvidedRoles, r.ProvidedRoles)
	}
	if r.Policy != nil {
		p := *r.Policy
		c.Policy = &p
	}
	if r.ProvidedBy != nil {
		a := *r.ProvidedBy
		if a.Expiration != nil {
			t := *a.Expiration
			a.Expiration = &t
		}
		c.ProvidedBy = &a
	}
	return c
}
