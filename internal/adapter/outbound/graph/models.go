package graph

import (
	"encoding/json"
	"time"
)

type user struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
}

type roleDefinition struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
}

// directoryScheduleInstance covers both unifiedRoleEligibilityScheduleInstance
// and unifiedRoleAssignmentScheduleInstance.
type directoryScheduleInstance struct {
	ID                        string          `json:"id"`
	PrincipalID               string          `json:"principalId"`
	RoleDefinitionID          string          `json:"roleDefinitionId"`
	DirectoryScopeID          string          `json:"directoryScopeId"`
	StartDateTime             *time.Time      `json:"startDateTime"`
	EndDateTime               *time.Time      `json:"endDateTime"`
	MemberType                string          `json:"memberType"`
	AssignmentType            string          `json:"assignmentType,omitempty"`
	RoleAssignmentScheduleID  string          `json:"roleAssignmentScheduleId,omitempty"`
	RoleEligibilityScheduleID string          `json:"roleEligibilityScheduleId,omitempty"`
	RoleDefinition            *roleDefinition `json:"roleDefinition,omitempty"`
}

type group struct {
	ID                 string `json:"id"`
	DisplayName        string `json:"displayName"`
	Description        string `json:"description,omitempty"`
	IsAssignableToRole *bool  `json:"isAssignableToRole,omitempty"`
}

// groupScheduleInstance covers privilegedAccessGroupEligibilityScheduleInstance
// and privilegedAccessGroupAssignmentScheduleInstance.
type groupScheduleInstance struct {
	ID                    string     `json:"id"`
	AccessID              string     `json:"accessId"`
	GroupID               string     `json:"groupId"`
	PrincipalID           string     `json:"principalId"`
	MemberType            string     `json:"memberType"`
	StartDateTime         *time.Time `json:"startDateTime"`
	EndDateTime           *time.Time `json:"endDateTime"`
	AssignmentType        string     `json:"assignmentType,omitempty"`
	AssignmentScheduleID  string     `json:"assignmentScheduleId,omitempty"`
	EligibilityScheduleID string     `json:"eligibilityScheduleId,omitempty"`
	Group                 *group     `json:"group,omitempty"`
}

type roleAssignment struct {
	ID               string          `json:"id"`
	PrincipalID      string          `json:"principalId"`
	RoleDefinitionID string          `json:"roleDefinitionId"`
	DirectoryScopeID string          `json:"directoryScopeId"`
	RoleDefinition   *roleDefinition `json:"roleDefinition,omitempty"`
}

type administrativeUnit struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type authenticationContextClassReference struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	IsAvailable bool   `json:"isAvailable"`
}

type policyAssignment struct {
	ID               string `json:"id"`
	PolicyID         string `json:"policyId"`
	ScopeID          string `json:"scopeId"`
	ScopeType        string `json:"scopeType"`
	RoleDefinitionID string `json:"roleDefinitionId"`
}

// unifiedRoleManagementPolicy keeps rules raw: each rule is one of several
// resource types determined by its @odata.type.
type unifiedRoleManagementPolicy struct {
	ID        string            `json:"id"`
	ScopeID   string            `json:"scopeId"`
	ScopeType string            `json:"scopeType"`
	Rules     []json.RawMessage `json:"rules"`
}

type ruleTarget struct {
	Caller     string   `json:"caller,omitempty"`
	Operations []string `json:"operations,omitempty"`
	Level      string   `json:"level,omitempty"`
}

type ruleHeader struct {
	ODataType string     `json:"@odata.type"`
	ID        string     `json:"id"`
	Target    ruleTarget `json:"target"`
}

type expirationRule struct {
	ruleHeader
	IsExpirationRequired bool   `json:"isExpirationRequired"`
	MaximumDuration      string `json:"maximumDuration"`
}

type enablementRule struct {
	ruleHeader
	EnabledRules []string `json:"enabledRules"`
}

type approvalRule struct {
	ruleHeader
	Setting struct {
		IsApprovalRequired bool   `json:"isApprovalRequired"`
		ApprovalMode       string `json:"approvalMode,omitempty"`
	} `json:"setting"`
}

type authenticationContextRule struct {
	ruleHeader
	IsEnabled  bool   `json:"isEnabled"`
	ClaimValue string `json:"claimValue"`
}

type expiration struct {
	Type     string `json:"type"`
	Duration string `json:"duration,omitempty"`
}

type scheduleInfo struct {
	StartDateTime string     `json:"startDateTime"`
	Expiration    expiration `json:"expiration"`
}

type ticketInfo struct {
	TicketNumber string `json:"ticketNumber,omitempty"`
	TicketSystem string `json:"ticketSystem,omitempty"`
}

// directoryScheduleRequest is a unifiedRoleAssignmentScheduleRequest body.
type directoryScheduleRequest struct {
	Action           string        `json:"action"`
	PrincipalID      string        `json:"principalId"`
	RoleDefinitionID string        `json:"roleDefinitionId"`
	DirectoryScopeID string        `json:"directoryScopeId"`
	Justification    string        `json:"justification,omitempty"`
	ScheduleInfo     *scheduleInfo `json:"scheduleInfo,omitempty"`
	TicketInfo       *ticketInfo   `json:"ticketInfo,omitempty"`
	TargetScheduleID string        `json:"targetScheduleId,omitempty"`
}

// groupScheduleRequest is a privilegedAccessGroupAssignmentScheduleRequest body.
type groupScheduleRequest struct {
	Action           string        `json:"action"`
	PrincipalID      string        `json:"principalId"`
	GroupID          string        `json:"groupId"`
	AccessID         string        `json:"accessId"`
	Justification    string        `json:"justification,omitempty"`
	ScheduleInfo     *scheduleInfo `json:"scheduleInfo,omitempty"`
	TicketInfo       *ticketInfo   `json:"ticketInfo,omitempty"`
	TargetScheduleID string        `json:"targetScheduleId,omitempty"`
}

type scheduleRequestResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type assignmentSchedule struct {
	ID               string `json:"id"`
	PrincipalID      string `json:"principalId"`
	RoleDefinitionID string `json:"roleDefinitionId,omitempty"`
	DirectoryScopeID string `json:"directoryScopeId,omitempty"`
	GroupID          string `json:"groupId,omitempty"`
	AccessID         string `json:"accessId,omitempty"`
	AssignmentType   string `json:"assignmentType,omitempty"`
	Status           string `json:"status,omitempty"`
}
