package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/activation"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/policy"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

func withDescriptor(r role.Role, d policy.Descriptor) role.Role {
	r.Policy = &d
	return r
}

func acrsError() error {
	return &outbound.ProviderError{StatusCode: 400, Code: activation.CodeAcrsValidationFailed, Message: "acrs"}
}

func TestActivate_SinglePromptAndContextBuckets(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.prompter.input = activation.Input{Justification: "incident 42", Duration: activation.Duration{Hours: 2}}
	roles := []role.Role{
		withDescriptor(dirRole("r1", "Reader"), policy.Default()),
		withDescriptor(dirRole("r2", "Security Admin"), *ctxPolicy("c3")),
		withDescriptor(dirRole("r3", "Exchange Admin"), *ctxPolicy("c1")),
		withDescriptor(dirRole("r4", "Global Admin"), *ctxPolicy("c3")),
	}

	res, err := h.activator.Activate(context.Background(), BatchRequest{PrincipalID: "p1", Roles: roles})
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if h.prompter.prompts != 1 {
		t.Errorf("prompts = %d, want 1", h.prompter.prompts)
	}
	if got := h.prompter.gotReq.ContextIDs; len(got) != 2 {
		t.Errorf("requirements ContextIDs = %v, want 2 contexts", got)
	}
	if res.Summary.SuccessCount != 4 || res.Summary.TotalCount != 4 {
		t.Errorf("summary = %d/%d, want 4/4", res.Summary.SuccessCount, res.Summary.TotalCount)
	}
	if res.Summary.BatchID == "" {
		t.Error("BatchID is empty")
	}
	if h.acquirer.calls() != 2 {
		t.Errorf("interactive sign-ins = %d, want one per context", h.acquirer.calls())
	}

	tokens := map[string]string{}
	for _, s := range h.provider.submitted {
		tokens[s.req.RoleDefinitionID] = s.token
	}
	if tokens["r1"] != "" {
		t.Errorf("ambient role submitted with token %q", tokens["r1"])
	}
	if tokens["r2"] == "" || tokens["r2"] != tokens["r4"] || tokens["r2"] == tokens["r3"] {
		t.Errorf("context tokens = %v, want r2 and r4 to share one c3 token", tokens)
	}
}

func TestActivate_DurationClampedPerRole(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.prompter.input = activation.Input{Duration: activation.Duration{Hours: 6}}
	roles := []role.Role{
		withDescriptor(dirRole("r1", "Short"), policy.Descriptor{MaxDurationHours: 1}),
		withDescriptor(dirRole("r2", "Long"), policy.Descriptor{MaxDurationHours: 8}),
	}

	res, err := h.activator.Activate(context.Background(), BatchRequest{PrincipalID: "p1", Roles: roles})
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	got := map[string]activation.Duration{}
	for _, s := range h.provider.submitted {
		got[s.req.RoleDefinitionID] = s.req.Duration
	}
	if got["r1"] != (activation.Duration{Hours: 1}) || got["r2"] != (activation.Duration{Hours: 6}) {
		t.Errorf("submitted durations = %v", got)
	}
	if d := res.Summary.Outcomes[0].Duration; d == nil || *d != (activation.Duration{Hours: 1}) {
		t.Errorf("outcome duration = %v, want 1h0m", d)
	}
}

func TestActivate_CancelSubmitsNothing(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.prompter.err = activation.ErrCancelled

	res, err := h.activator.Activate(context.Background(), BatchRequest{
		PrincipalID: "p1",
		Roles:       []role.Role{withDescriptor(dirRole("r1", "Reader"), *ctxPolicy("c3"))},
	})
	if err != nil {
		t.Fatalf("Activate() error = %v, want nil on cancel", err)
	}
	if !res.Summary.Cancelled {
		t.Error("Summary.Cancelled = false")
	}
	if n := h.provider.callCount("SubmitActivation"); n != 0 {
		t.Errorf("SubmitActivation calls = %d, want 0", n)
	}
	if h.acquirer.calls() != 0 {
		t.Errorf("sign-ins = %d, want 0", h.acquirer.calls())
	}
}

func TestActivate_MissingInputRejected(t *testing.T) {
	t.Parallel()

	h := newHarness()
	_, err := h.activator.Activate(context.Background(), BatchRequest{
		PrincipalID: "p1",
		Roles:       []role.Role{withDescriptor(dirRole("r1", "Reader"), policy.Descriptor{MaxDurationHours: 8, RequiresTicket: true})},
	})
	if !errors.Is(err, activation.ErrInputRequired) {
		t.Fatalf("Activate() error = %v, want ErrInputRequired", err)
	}
	if n := h.provider.callCount("SubmitActivation"); n != 0 {
		t.Errorf("SubmitActivation calls = %d, want 0", n)
	}
}

func TestActivate_PartialFailure(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.provider.submitErr["r3"] = &outbound.ProviderError{StatusCode: 400, Code: activation.CodeRoleAssignmentExists, Message: "exists"}
	roles := []role.Role{
		dirRole("r1", "Reader"),
		dirRole("r2", "Writer"),
		dirRole("r3", "Auditor"),
		dirRole("r4", "Operator"),
		dirRole("r5", "Billing"),
	}

	res, err := h.activator.Activate(context.Background(), BatchRequest{PrincipalID: "p1", Roles: roles})
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	s := res.Summary
	if s.SuccessCount != 4 || s.TotalCount != 5 {
		t.Errorf("summary = %d/%d, want 4/5", s.SuccessCount, s.TotalCount)
	}
	if len(s.Errors) != 1 || s.Errors[0] != "Auditor: This role is already active or a request is already pending." {
		t.Errorf("Errors = %v", s.Errors)
	}
	// The failure does not stop the roles after it.
	if n := h.provider.callCount("SubmitActivation"); n != 5 {
		t.Errorf("SubmitActivation calls = %d, want 5", n)
	}
}

func TestActivate_StaleContextTokenRefreshedOnce(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.tokens.Put(outbound.CachedToken{ContextID: "c3", AccessToken: "stale", ExpiryTime: h.clock.Now().Add(time.Hour)})
	h.provider.submitErrOnce["r1"] = acrsError()
	roles := []role.Role{
		withDescriptor(dirRole("r1", "Security Admin"), *ctxPolicy("c3")),
		withDescriptor(dirRole("r2", "Global Admin"), *ctxPolicy("c3")),
	}

	res, err := h.activator.Activate(context.Background(), BatchRequest{PrincipalID: "p1", Roles: roles})
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if res.Summary.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, want 2 (errors %v)", res.Summary.SuccessCount, res.Summary.Errors)
	}
	if h.acquirer.calls() != 1 {
		t.Errorf("sign-ins = %d, want exactly one forced refresh", h.acquirer.calls())
	}
	sub := h.provider.submitted
	if len(sub) != 3 || sub[0].token != "stale" || sub[1].token == "stale" || sub[2].token != sub[1].token {
		t.Errorf("submissions = %+v, want stale, fresh, fresh", sub)
	}
}

func TestActivate_FreshTokenRejectionNotRetried(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.provider.submitErr["r1"] = acrsError()

	res, err := h.activator.Activate(context.Background(), BatchRequest{
		PrincipalID: "p1",
		Roles:       []role.Role{withDescriptor(dirRole("r1", "Security Admin"), *ctxPolicy("c3"))},
	})
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if res.Summary.SuccessCount != 0 || h.acquirer.calls() != 1 || h.provider.callCount("SubmitActivation") != 1 {
		t.Errorf("success = %d, sign-ins = %d, submits = %d, want 0/1/1",
			res.Summary.SuccessCount, h.acquirer.calls(), h.provider.callCount("SubmitActivation"))
	}
}

func TestActivate_BucketTokenFailureFallsBackPerRole(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.acquirer.failures, h.acquirer.err = 2, errors.New("timeout")
	roles := []role.Role{
		withDescriptor(dirRole("r1", "Security Admin"), *ctxPolicy("c3")),
		withDescriptor(dirRole("r2", "Global Admin"), *ctxPolicy("c3")),
	}

	res, err := h.activator.Activate(context.Background(), BatchRequest{PrincipalID: "p1", Roles: roles})
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	// Bucket attempt and r1 fail; r2 signs in on its own.
	if res.Summary.SuccessCount != 1 || res.Summary.TotalCount != 2 {
		t.Errorf("summary = %d/%d, want 1/2", res.Summary.SuccessCount, res.Summary.TotalCount)
	}
	if !res.Summary.Outcomes[1].Success || res.Summary.Outcomes[0].Success {
		t.Errorf("outcomes = %+v, want r1 failed and r2 succeeded", res.Summary.Outcomes)
	}
	if h.acquirer.calls() != 3 {
		t.Errorf("sign-ins = %d, want 3", h.acquirer.calls())
	}
}

func TestActivate_GroupRequest(t *testing.T) {
	t.Parallel()

	h := newHarness()
	g := role.Role{ID: "g1", Type: role.TypeGroup, DisplayName: "Helpdesk", Status: role.StatusEligible, MemberType: role.MemberOwner}

	if _, err := h.activator.Activate(context.Background(), BatchRequest{PrincipalID: "p1", Roles: []role.Role{g}}); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	req := h.provider.submitted[0].req
	if req.GroupID != "g1" || req.AccessID != "owner" || req.Action != activation.ActionSelfActivate {
		t.Errorf("request = %+v", req)
	}
}

func TestActivate_RefreshesAndSkipsApprovalRoles(t *testing.T) {
	t.Parallel()

	h := newHarness()
	active := dirRole("r1", "Reader")
	active.Status, active.ScheduleID = role.StatusActive, "s1"
	h.provider.activeDir = []role.Role{active}
	roles := []role.Role{
		withDescriptor(dirRole("r1", "Reader"), policy.Default()),
		withDescriptor(dirRole("r2", "Privileged"), policy.Descriptor{MaxDurationHours: 8, RequiresApproval: true}),
	}

	res, err := h.activator.Activate(context.Background(), BatchRequest{
		PrincipalID:  "p1",
		Roles:        roles,
		Refresh:      true,
		FetchOptions: DefaultFetchOptions(),
	})
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if res.RefreshErr != nil || res.Roles == nil {
		t.Fatalf("refresh = %v, %v, want settled result", res.Roles, res.RefreshErr)
	}
	if len(h.clock.sleeps) != 1 {
		t.Errorf("refresh attempts = %d, want 1 (pending approval is not waited for)", len(h.clock.sleeps))
	}
	if cached, ok := h.cache.Peek(); !ok || cached != res.Roles {
		t.Error("refreshed result was not cached")
	}
}
