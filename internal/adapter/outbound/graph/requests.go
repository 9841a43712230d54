package graph

import (
	"context"
	"net/http"
	"strings"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/activation"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

const (
	pathDirectoryScheduleRequests = "/roleManagement/directory/roleAssignmentScheduleRequests"
	pathGroupScheduleRequests     = "/identityGovernance/privilegedAccess/group/assignmentScheduleRequests"
	pathDirectorySchedules        = "/roleManagement/directory/roleAssignmentSchedules"
	pathGroupSchedules            = "/identityGovernance/privilegedAccess/group/assignmentSchedules"

	expirationAfterDuration = "afterDuration"
)

// SubmitActivation posts a selfActivate schedule request.
func (c *Client) SubmitActivation(ctx context.Context, req activation.Request, accessToken string) (outbound.SubmissionResult, error) {
	return c.submit(ctx, "submit_activation", req, accessToken)
}

// SubmitDeactivation posts a selfDeactivate schedule request.
func (c *Client) SubmitDeactivation(ctx context.Context, req activation.Request, accessToken string) (outbound.SubmissionResult, error) {
	return c.submit(ctx, "submit_deactivation", req, accessToken)
}

func (c *Client) submit(ctx context.Context, op string, req activation.Request, accessToken string) (outbound.SubmissionResult, error) {
	path, body := buildScheduleRequest(req)

	var resp scheduleRequestResponse
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   path,
		body:   body,
		token:  accessToken,
		out:    &resp,
	})
	if err != nil {
		return outbound.SubmissionResult{}, err
	}
	return outbound.SubmissionResult{ID: resp.ID, Status: resp.Status}, nil
}

// buildScheduleRequest returns the endpoint and body for req.
func buildScheduleRequest(req activation.Request) (string, any) {
	var sched *scheduleInfo
	if req.Action == activation.ActionSelfActivate {
		sched = &scheduleInfo{
			StartDateTime: req.FormattedStart(),
			Expiration: expiration{
				Type:     expirationAfterDuration,
				Duration: req.Duration.ISO8601(),
			},
		}
	}
	var ticket *ticketInfo
	if req.Ticket != nil {
		ticket = &ticketInfo{TicketNumber: req.Ticket.Number, TicketSystem: req.Ticket.System}
	}

	if req.RoleType == role.TypeGroup {
		return pathGroupScheduleRequests, groupScheduleRequest{
			Action:           string(req.Action),
			PrincipalID:      req.PrincipalID,
			GroupID:          req.GroupID,
			AccessID:         req.AccessID,
			Justification:    req.Justification,
			ScheduleInfo:     sched,
			TicketInfo:       ticket,
			TargetScheduleID: req.TargetScheduleID,
		}
	}
	return pathDirectoryScheduleRequests, directoryScheduleRequest{
		Action:           string(req.Action),
		PrincipalID:      req.PrincipalID,
		RoleDefinitionID: req.RoleDefinitionID,
		DirectoryScopeID: req.DirectoryScopeID,
		Justification:    req.Justification,
		ScheduleInfo:     sched,
		TicketInfo:       ticket,
		TargetScheduleID: req.TargetScheduleID,
	}
}

// FindActiveScheduleID looks up the principal's current assignment schedule
// for r. Activated schedules win over permanent assignments.
func (c *Client) FindActiveScheduleID(ctx context.Context, principalID string, r role.Role) (string, error) {
	var (
		path string
		op   string
	)
	if r.Type == role.TypeGroup {
		op = "find_group_schedule"
		path = withQuery(pathGroupSchedules,
			"$filter", principalFilter(principalID)+" and groupId eq "+quote(r.ID))
	} else {
		op = "find_directory_schedule"
		path = withQuery(pathDirectorySchedules,
			"$filter", principalFilter(principalID)+" and roleDefinitionId eq "+quote(r.ID))
	}

	items, err := listAll[assignmentSchedule](ctx, c, op, path)
	if err != nil {
		return "", err
	}

	var fallback string
	for _, s := range items {
		if r.Type == role.TypeGroup && !strings.EqualFold(s.AccessID, r.AccessID()) {
			continue
		}
		if r.Type != role.TypeGroup && r.DirectoryScopeID != "" && s.DirectoryScopeID != r.DirectoryScopeID {
			continue
		}
		if strings.EqualFold(s.AssignmentType, "Activated") {
			return s.ID, nil
		}
		if fallback == "" {
			fallback = s.ID
		}
	}
	if fallback == "" {
		return "", notFound("active schedule for " + r.Key().String())
	}
	return fallback, nil
}
