package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/activation"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/metrics"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/inbound"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

// ErrInheritedRole is returned for roles held only through a group.
var ErrInheritedRole = errors.New("role is granted through a group; deactivate the group membership instead")

// DeactivationService ends active assignments.
type DeactivationService struct {
	submitter outbound.RequestSubmitter
	prompter  inbound.Prompter
	cache     *RoleCache
	refresher *Refresher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewDeactivationService creates a DeactivationService.
func NewDeactivationService(submitter outbound.RequestSubmitter, prompter inbound.Prompter, cache *RoleCache, refresher *Refresher, m *metrics.Metrics, logger *slog.Logger) *DeactivationService {
	return &DeactivationService{
		submitter: submitter,
		prompter:  prompter,
		cache:     cache,
		refresher: refresher,
		metrics:   m,
		logger:    logger,
	}
}

// Deactivate confirms once, then submits a self-deactivate request per role.
func (s *DeactivationService) Deactivate(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	summary := &activation.Summary{BatchID: uuid.NewString()}
	logger := s.logger.With("batch_id", summary.BatchID)

	if len(req.Roles) == 0 {
		return &BatchResult{Summary: summary}, nil
	}

	ok, err := s.prompter.ConfirmDeactivation(ctx, req.Roles)
	if errors.Is(err, activation.ErrCancelled) || (err == nil && !ok) {
		logger.Info("deactivation cancelled by user", "roles", len(req.Roles))
		summary.Cancelled = true
		return &BatchResult{Summary: summary}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("confirm deactivation: %w", err)
	}

	logger.Info("deactivating roles", "roles", len(req.Roles))

	before, _ := s.cache.Peek()
	var removed []string
	for _, r := range req.Roles {
		scheduleID, err := s.deactivate(ctx, req.PrincipalID, r)
		s.metrics.RoleRequest(actionDeactivate, err == nil)
		if err != nil {
			logger.Warn("role deactivation failed",
				"role_id", r.ID,
				"role_type", r.Type,
				"code", activation.ErrorCode(err),
				"error", err,
			)
			summary.Failed(r, err)
			continue
		}
		logger.Info("role deactivated", "role_id", r.ID, "role_type", r.Type)
		summary.Succeeded(r, nil)
		removed = append(removed, scheduleID)
	}

	logger.Info("deactivation finished",
		"succeeded", summary.SuccessCount,
		"total", summary.TotalCount,
	)

	result := &BatchResult{Summary: summary}
	if summary.SuccessCount > 0 {
		s.cache.Invalidate()
		if req.Refresh && s.refresher != nil {
			result.Roles, result.RefreshErr = s.refresher.Refresh(ctx, req.PrincipalID, req.FetchOptions,
				ChangedFrom(before, DeactivatedSettled(removed)), req.Progress)
		}
	}
	return result, nil
}

func (s *DeactivationService) deactivate(ctx context.Context, principalID string, r role.Role) (string, error) {
	if r.Status != role.StatusActive {
		return "", fmt.Errorf("role %s is not active", r.DisplayName)
	}
	if r.ProvidedBy != nil && r.ProvidedBy.GroupOnly {
		return "", fmt.Errorf("%w (%s)", ErrInheritedRole, r.ProvidedBy.GroupName)
	}

	scheduleID := r.ScheduleID
	if scheduleID == "" {
		id, err := s.submitter.FindActiveScheduleID(ctx, principalID, r)
		if err != nil {
			return "", fmt.Errorf("find active schedule: %w", err)
		}
		scheduleID = id
	}

	_, err := s.submitter.SubmitDeactivation(ctx, activation.NewDeactivationRequest(principalID, r, scheduleID), "")
	return scheduleID, err
}
