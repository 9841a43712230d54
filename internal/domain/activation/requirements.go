package activation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
)

// Requirements is the union of policy requirements across a batch of roles.
type Requirements struct {
	Justification         bool
	Ticket                bool
	MFA                   bool
	Approval              bool
	AuthenticationContext bool
	// ContextIDs are the distinct authentication context ids, sorted.
	ContextIDs []string
	// MaxDurationHours is the smallest cap in the batch; it is what the
	// prompt shows as the guaranteed upper bound.
	MaxDurationHours int
	RoleCount        int
}

// AggregateRequirements folds the attached policies of roles into one
// Requirements value. Roles without a policy contribute the default.
func AggregateRequirements(roles []role.Role) Requirements {
	var req Requirements
	seen := make(map[string]struct{})
	for i, r := range roles {
		p := r.EffectivePolicy()
		req.Justification = req.Justification || p.RequiresJustification
		req.Ticket = req.Ticket || p.RequiresTicket
		req.MFA = req.MFA || p.RequiresMFA
		req.Approval = req.Approval || p.RequiresApproval
		if p.RequiresAuthenticationContext && p.AuthenticationContextID != "" {
			req.AuthenticationContext = true
			if _, ok := seen[p.AuthenticationContextID]; !ok {
				seen[p.AuthenticationContextID] = struct{}{}
				req.ContextIDs = append(req.ContextIDs, p.AuthenticationContextID)
			}
		}
		if i == 0 || p.MaxDurationHours < req.MaxDurationHours {
			req.MaxDurationHours = p.MaxDurationHours
		}
	}
	sort.Strings(req.ContextIDs)
	req.RoleCount = len(roles)
	return req
}

// Input is what the user supplies once per batch.
type Input struct {
	Justification string
	TicketNumber  string
	TicketSystem  string
	Duration      Duration
}

// Validate checks that the input satisfies the aggregated requirements.
func (in Input) Validate(req Requirements) error {
	if req.Justification && strings.TrimSpace(in.Justification) == "" {
		return fmt.Errorf("%w: justification", ErrInputRequired)
	}
	if req.Ticket && strings.TrimSpace(in.TicketNumber) == "" {
		return fmt.Errorf("%w: ticket number", ErrInputRequired)
	}
	if in.Duration.TotalMinutes() <= 0 {
		return fmt.Errorf("%w: positive duration", ErrInputRequired)
	}
	return nil
}

// Ticket returns the ticket info to send, or nil when no ticket number was given.
func (in Input) Ticket() *TicketInfo {
	if strings.TrimSpace(in.TicketNumber) == "" {
		return nil
	}
	return &TicketInfo{Number: strings.TrimSpace(in.TicketNumber), System: strings.TrimSpace(in.TicketSystem)}
}

// Bucket is a group of roles sharing one authentication context requirement.
// ContextID is empty for roles that use ambient credentials.
type Bucket struct {
	ContextID string
	Roles     []role.Role
}

// PartitionByContext splits roles by required authentication context. The
// ambient bucket comes first, then context buckets sorted by id. Roles keep
// their input order within a bucket.
func PartitionByContext(roles []role.Role) []Bucket {
	byContext := make(map[string][]role.Role)
	for _, r := range roles {
		id := ""
		if p := r.EffectivePolicy(); p.RequiresAuthenticationContext {
			id = p.AuthenticationContextID
		}
		byContext[id] = append(byContext[id], r)
	}

	ids := make([]string, 0, len(byContext))
	for id := range byContext {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	buckets := make([]Bucket, 0, len(ids))
	for _, id := range ids {
		buckets = append(buckets, Bucket{ContextID: id, Roles: byContext[id]})
	}
	return buckets
}
