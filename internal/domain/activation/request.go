package activation

import (
	"time"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
)

// Action is the provider action name of a schedule request.
type Action string

const (
	ActionSelfActivate   Action = "selfActivate"
	ActionSelfDeactivate Action = "selfDeactivate"
)

// StartTimeLayout is UTC with millisecond precision.
const StartTimeLayout = "2006-01-02T15:04:05.000Z"

// TicketInfo is the optional ticket reference attached to a request.
type TicketInfo struct {
	Number string
	System string
}

// Request is one computed schedule request. Directory roles set
// RoleDefinitionID and DirectoryScopeID; groups set GroupID and AccessID.
type Request struct {
	Action      Action
	PrincipalID string
	RoleType    role.Type

	RoleDefinitionID string
	DirectoryScopeID string

	GroupID  string
	AccessID string

	Justification string
	Ticket        *TicketInfo

	// Duration and StartDateTime apply to activations only.
	Duration      Duration
	StartDateTime time.Time

	// TargetScheduleID references the active schedule (deactivations).
	TargetScheduleID string
}

// FormattedStart renders StartDateTime in the provider's layout.
func (r Request) FormattedStart() string {
	return r.StartDateTime.UTC().Format(StartTimeLayout)
}

// NewActivationRequest builds the activation request for r. The duration is
// clamped to the role's policy cap.
func NewActivationRequest(principalID string, r role.Role, in Input, now time.Time) Request {
	req := Request{
		Action:        ActionSelfActivate,
		PrincipalID:   principalID,
		RoleType:      r.Type,
		Justification: in.Justification,
		Ticket:        in.Ticket(),
		Duration:      Effective(in.Duration, r.EffectivePolicy().MaxDurationHours),
		StartDateTime: now.UTC().Truncate(time.Millisecond),
	}
	setTarget(&req, r)
	return req
}

// NewDeactivationRequest builds the self-deactivate request for an active role.
func NewDeactivationRequest(principalID string, r role.Role, scheduleID string) Request {
	req := Request{
		Action:           ActionSelfDeactivate,
		PrincipalID:      principalID,
		RoleType:         r.Type,
		TargetScheduleID: scheduleID,
	}
	setTarget(&req, r)
	return req
}

func setTarget(req *Request, r role.Role) {
	switch r.Type {
	case role.TypeGroup:
		req.GroupID = r.ID
		req.AccessID = r.AccessID()
	default:
		req.RoleDefinitionID = r.ID
		req.DirectoryScopeID = r.DirectoryScopeID
		if req.DirectoryScopeID == "" {
			req.DirectoryScopeID = "/"
		}
	}
}
