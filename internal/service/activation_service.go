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

// Metric action labels.
const (
	actionActivate   = "activate"
	actionDeactivate = "deactivate"
)

// BatchRequest describes one activation or deactivation batch.
type BatchRequest struct {
	PrincipalID string
	Roles       []role.Role
	// Refresh refetches the role list after a successful mutation.
	Refresh      bool
	FetchOptions FetchOptions
	Progress     inbound.ProgressFunc
}

// BatchResult is the outcome of a batch plus the refreshed role list.
type BatchResult struct {
	Summary *activation.Summary
	// Roles is the refreshed list, nil when no refresh ran or it failed.
	Roles *BatchFetchResult
	// RefreshErr is ErrRefreshNotSettled or the fetch error of the refresh.
	RefreshErr error
}

// ActivationService runs the activation workflow for a batch of eligible roles.
type ActivationService struct {
	submitter outbound.RequestSubmitter
	tokens    *TokenManager
	prompter  inbound.Prompter
	cache     *RoleCache
	refresher *Refresher
	clock     Clock
	defaults  activation.Input
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewActivationService creates an ActivationService. defaults seeds the
// prompt with a duration and ticket system.
func NewActivationService(
	submitter outbound.RequestSubmitter,
	tokens *TokenManager,
	prompter inbound.Prompter,
	cache *RoleCache,
	refresher *Refresher,
	clock Clock,
	defaults activation.Input,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ActivationService {
	if defaults.Duration.TotalMinutes() <= 0 {
		defaults.Duration = activation.DefaultDuration()
	}
	return &ActivationService{
		submitter: submitter,
		tokens:    tokens,
		prompter:  prompter,
		cache:     cache,
		refresher: refresher,
		clock:     clock,
		defaults:  defaults,
		metrics:   m,
		logger:    logger,
	}
}

// Activate aggregates requirements, prompts once, submits every role
// grouped by authentication context and refreshes the role cache. A
// cancelled prompt returns a Cancelled summary and submits nothing.
func (s *ActivationService) Activate(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	summary := &activation.Summary{BatchID: uuid.NewString()}
	logger := s.logger.With("batch_id", summary.BatchID)

	if len(req.Roles) == 0 {
		return &BatchResult{Summary: summary}, nil
	}

	requirements := activation.AggregateRequirements(req.Roles)
	in, err := s.prompter.CollectActivationInput(ctx, req.Roles, requirements, s.defaults)
	if errors.Is(err, activation.ErrCancelled) {
		logger.Info("activation cancelled by user", "roles", len(req.Roles))
		summary.Cancelled = true
		return &BatchResult{Summary: summary}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("collect activation input: %w", err)
	}
	if err := in.Validate(requirements); err != nil {
		return nil, err
	}

	logger.Info("activating roles",
		"roles", len(req.Roles),
		"duration", in.Duration.String(),
		"contexts", len(requirements.ContextIDs),
	)

	before, _ := s.cache.Peek()
	var activated []role.Key
	for _, bucket := range activation.PartitionByContext(req.Roles) {
		activated = append(activated, s.submitBucket(ctx, logger, req.PrincipalID, bucket, in, summary)...)
	}

	logger.Info("activation finished",
		"succeeded", summary.SuccessCount,
		"total", summary.TotalCount,
	)

	result := &BatchResult{Summary: summary}
	if summary.SuccessCount > 0 {
		s.cache.Invalidate()
		if req.Refresh && s.refresher != nil {
			settled := ActivatedSettled(activated)
			if len(activated) > 0 {
				settled = ChangedFrom(before, settled)
			}
			result.Roles, result.RefreshErr = s.refresher.Refresh(ctx, req.PrincipalID, req.FetchOptions,
				settled, req.Progress)
		}
	}
	return result, nil
}

// submitBucket submits every role of one context bucket sequentially,
// reusing one token. It returns the keys expected to become active.
func (s *ActivationService) submitBucket(ctx context.Context, logger *slog.Logger, principalID string, b activation.Bucket, in activation.Input, summary *activation.Summary) []role.Key {
	var (
		token    string
		cached   bool
		perRole  bool
		expected []role.Key
	)
	if b.ContextID != "" {
		var err error
		token, cached, err = s.tokens.token(ctx, b.ContextID)
		if err != nil {
			logger.Warn("context token unavailable for bucket, acquiring per role",
				"context_id", b.ContextID,
				"roles", len(b.Roles),
				"error", err,
			)
			perRole = true
		}
	}

	for _, r := range b.Roles {
		if perRole {
			var err error
			token, cached, err = s.tokens.token(ctx, b.ContextID)
			if err != nil {
				logger.Warn("context token unavailable for role",
					"context_id", b.ContextID,
					"role_id", r.ID,
					"error", err,
				)
				summary.Failed(r, err)
				s.metrics.RoleRequest(actionActivate, false)
				continue
			}
		}

		var ok bool
		token, cached, ok = s.submitRole(ctx, logger, principalID, r, in, b.ContextID, token, cached, summary)
		if ok && !r.EffectivePolicy().RequiresApproval {
			expected = append(expected, r.Key())
		}
	}
	return expected
}

// submitRole submits one role. A cached context token rejected by the
// provider is refreshed once and the role resubmitted; the returned token
// is what later roles in the bucket should use.
func (s *ActivationService) submitRole(ctx context.Context, logger *slog.Logger, principalID string, r role.Role, in activation.Input,
	contextID, token string, cached bool, summary *activation.Summary) (string, bool, bool) {
	req := activation.NewActivationRequest(principalID, r, in, s.clock.Now())
	_, err := s.submitter.SubmitActivation(ctx, req, token)

	if err != nil && cached && contextID != "" && activation.ErrorCode(err) == activation.CodeAcrsValidationFailed {
		logger.Info("cached context token rejected, refreshing",
			"context_id", contextID,
			"role_id", r.ID,
		)
		fresh, rerr := s.tokens.ForceRefresh(ctx, contextID)
		if rerr != nil {
			err = rerr
		} else {
			token, cached = fresh, false
			req = activation.NewActivationRequest(principalID, r, in, s.clock.Now())
			_, err = s.submitter.SubmitActivation(ctx, req, token)
		}
	}

	s.metrics.RoleRequest(actionActivate, err == nil)
	if err != nil {
		logger.Warn("role activation failed",
			"role_id", r.ID,
			"role_type", r.Type,
			"code", activation.ErrorCode(err),
			"error", err,
		)
		summary.Failed(r, err)
		return token, cached, false
	}

	d := req.Duration
	logger.Info("role activated",
		"role_id", r.ID,
		"role_type", r.Type,
		"duration", d.String(),
	)
	summary.Succeeded(r, &d)
	return token, cached, true
}
