package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/adapter/outbound/memory"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/activation"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/policy"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock advances only when Sleep is called or advance is used.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeProvider implements outbound.Provider with canned data and call counters.
type fakeProvider struct {
	mu    sync.Mutex
	calls map[string]int

	principal outbound.Principal

	eligibleDir, activeDir     []role.Role
	eligibleGroup, activeGroup []role.Role
	dirErr, groupErr           error
	provided                   map[string][]role.ProvidedRole
	groupScopes                map[string]outbound.GroupScope
	aus                        map[string]outbound.AdministrativeUnit

	dirAssignments    []outbound.PolicyAssignment
	batchAssignErr    error
	groupAssignments  map[string][]outbound.PolicyAssignment
	policies          map[string][]policy.RawRule
	policyErr         map[string]error
	contexts          map[string]policy.AuthContext
	contextErr        error
	submitErr         map[string]error
	submitErrOnce     map[string]error
	submitted         []submission
	deactivated       []activation.Request
	schedules         map[string]string
	scheduleLookupErr error
}

type submission struct {
	req   activation.Request
	token string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		calls:            make(map[string]int),
		principal:        outbound.Principal{ID: "p1", DisplayName: "Ada", UserPrincipalName: "ada@contoso.com"},
		provided:         make(map[string][]role.ProvidedRole),
		groupScopes:      make(map[string]outbound.GroupScope),
		aus:              make(map[string]outbound.AdministrativeUnit),
		groupAssignments: make(map[string][]outbound.PolicyAssignment),
		policies:         make(map[string][]policy.RawRule),
		policyErr:        make(map[string]error),
		contexts:         make(map[string]policy.AuthContext),
		submitErr:        make(map[string]error),
		submitErrOnce:    make(map[string]error),
		schedules:        make(map[string]string),
	}
}

var _ outbound.Provider = (*fakeProvider)(nil)

func (f *fakeProvider) count(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeProvider) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeProvider) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func cloneRoles(in []role.Role) []role.Role {
	out := make([]role.Role, 0, len(in))
	for _, r := range in {
		out = append(out, r.Clone())
	}
	return out
}

func (f *fakeProvider) CurrentUser(context.Context) (outbound.Principal, error) {
	f.count("CurrentUser")
	return f.principal, nil
}

func (f *fakeProvider) ListEligibleDirectoryRoles(context.Context, string) ([]role.Role, error) {
	f.count("ListEligibleDirectoryRoles")
	if f.dirErr != nil {
		return nil, f.dirErr
	}
	return cloneRoles(f.eligibleDir), nil
}

func (f *fakeProvider) ListActiveDirectoryRoles(context.Context, string) ([]role.Role, error) {
	f.count("ListActiveDirectoryRoles")
	if f.dirErr != nil {
		return nil, f.dirErr
	}
	return cloneRoles(f.activeDir), nil
}

func (f *fakeProvider) ListEligibleGroupMemberships(context.Context, string) ([]role.Role, error) {
	f.count("ListEligibleGroupMemberships")
	if f.groupErr != nil {
		return nil, f.groupErr
	}
	return cloneRoles(f.eligibleGroup), nil
}

func (f *fakeProvider) ListActiveGroupMemberships(context.Context, string) ([]role.Role, error) {
	f.count("ListActiveGroupMemberships")
	if f.groupErr != nil {
		return nil, f.groupErr
	}
	return cloneRoles(f.activeGroup), nil
}

func (f *fakeProvider) ListGroupProvidedRoles(_ context.Context, groupID string) ([]role.ProvidedRole, error) {
	f.count("ListGroupProvidedRoles")
	return f.provided[groupID], nil
}

func (f *fakeProvider) GetGroupScope(_ context.Context, groupID string) (outbound.GroupScope, error) {
	f.count("GetGroupScope")
	return f.groupScopes[groupID], nil
}

func (f *fakeProvider) GetAdministrativeUnit(_ context.Context, id string) (outbound.AdministrativeUnit, error) {
	f.count("GetAdministrativeUnit")
	au, ok := f.aus[id]
	if !ok {
		return outbound.AdministrativeUnit{}, &outbound.ProviderError{StatusCode: 404, Message: "not found"}
	}
	return au, nil
}

func (f *fakeProvider) ListDirectoryPolicyAssignments(_ context.Context, ids []string) ([]outbound.PolicyAssignment, error) {
	f.count("ListDirectoryPolicyAssignments")
	if f.batchAssignErr != nil && len(ids) > 1 {
		return nil, f.batchAssignErr
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []outbound.PolicyAssignment
	for _, a := range f.dirAssignments {
		if want[a.RoleDefinitionID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeProvider) ListGroupPolicyAssignments(_ context.Context, groupID string) ([]outbound.PolicyAssignment, error) {
	f.count("ListGroupPolicyAssignments")
	return f.groupAssignments[groupID], nil
}

func (f *fakeProvider) GetDirectoryPolicyRules(_ context.Context, policyID string) ([]policy.RawRule, error) {
	f.count("GetDirectoryPolicyRules")
	if err := f.policyErr[policyID]; err != nil {
		return nil, err
	}
	return f.policies[policyID], nil
}

func (f *fakeProvider) GetGroupPolicyRules(_ context.Context, policyID string) ([]policy.RawRule, error) {
	f.count("GetGroupPolicyRules")
	if err := f.policyErr[policyID]; err != nil {
		return nil, err
	}
	return f.policies[policyID], nil
}

func (f *fakeProvider) GetAuthenticationContext(_ context.Context, id string) (policy.AuthContext, error) {
	f.count("GetAuthenticationContext")
	if f.contextErr != nil {
		return policy.AuthContext{}, f.contextErr
	}
	return f.contexts[id], nil
}

func (f *fakeProvider) SubmitActivation(_ context.Context, req activation.Request, token string) (outbound.SubmissionResult, error) {
	f.count("SubmitActivation")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, submission{req: req, token: token})
	id := req.RoleDefinitionID + req.GroupID
	if err, ok := f.submitErrOnce[id]; ok {
		delete(f.submitErrOnce, id)
		return outbound.SubmissionResult{}, err
	}
	if err := f.submitErr[id]; err != nil {
		return outbound.SubmissionResult{}, err
	}
	return outbound.SubmissionResult{ID: "req-" + id, Status: "Provisioned"}, nil
}

func (f *fakeProvider) SubmitDeactivation(_ context.Context, req activation.Request, _ string) (outbound.SubmissionResult, error) {
	f.count("SubmitDeactivation")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated = append(f.deactivated, req)
	id := req.RoleDefinitionID + req.GroupID
	if err := f.submitErr[id]; err != nil {
		return outbound.SubmissionResult{}, err
	}
	return outbound.SubmissionResult{ID: "req-" + id, Status: "Revoked"}, nil
}

func (f *fakeProvider) FindActiveScheduleID(_ context.Context, _ string, r role.Role) (string, error) {
	f.count("FindActiveScheduleID")
	if f.scheduleLookupErr != nil {
		return "", f.scheduleLookupErr
	}
	id, ok := f.schedules[r.ID]
	if !ok {
		return "", outbound.ErrNotFound
	}
	return id, nil
}

// fakeAcquirer hands out numbered tokens. The next failures calls fail with err.
type fakeAcquirer struct {
	mu       sync.Mutex
	claims   []string
	failures int
	err      error
	ttl      time.Duration
	now      func() time.Time
	n        int
}

func (a *fakeAcquirer) AcquireTokenInteractive(_ context.Context, claims string) (outbound.AccessToken, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.claims = append(a.claims, claims)
	if a.failures > 0 {
		a.failures--
		return outbound.AccessToken{}, a.err
	}
	a.n++
	tok := outbound.AccessToken{Token: fmt.Sprintf("ctx-token-%d", a.n)}
	if a.ttl > 0 {
		tok.ExpiresOn = a.now().Add(a.ttl)
	}
	return tok, nil
}

func (a *fakeAcquirer) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.claims)
}

// fakePrompter returns canned input and counts prompts.
type fakePrompter struct {
	input     activation.Input
	err       error
	confirm   bool
	prompts   int
	gotReq    activation.Requirements
	gotRoles  []role.Role
	confirmed int
}

func (p *fakePrompter) CollectActivationInput(_ context.Context, roles []role.Role, req activation.Requirements, defaults activation.Input) (activation.Input, error) {
	p.prompts++
	p.gotReq = req
	p.gotRoles = roles
	if p.err != nil {
		return activation.Input{}, p.err
	}
	in := p.input
	if in.Duration.TotalMinutes() == 0 {
		in.Duration = defaults.Duration
	}
	return in, nil
}

func (p *fakePrompter) ConfirmDeactivation(context.Context, []role.Role) (bool, error) {
	p.confirmed++
	if p.err != nil {
		return false, p.err
	}
	return p.confirm, nil
}

// harness wires the services over one fake provider.
type harness struct {
	provider  *fakeProvider
	acquirer  *fakeAcquirer
	prompter  *fakePrompter
	clock     *fakeClock
	store     *memory.PolicyStore
	tokens    *memory.TokenStore
	scopes    *ScopeResolver
	fetcher   *Fetcher
	cache     *RoleCache
	tokenMgr  *TokenManager
	refresher *Refresher
	activator *ActivationService
	deact     *DeactivationService
	session   *Session
}

func newHarness() *harness {
	h := &harness{
		provider: newFakeProvider(),
		prompter: &fakePrompter{confirm: true},
		clock:    newFakeClock(),
		store:    memory.NewPolicyStore(),
	}
	h.acquirer = &fakeAcquirer{now: h.clock.Now, ttl: time.Hour}
	h.tokens = memory.NewTokenStore(memory.WithTokenClock(h.clock.Now))
	logger := discardLogger()

	scopes, err := NewScopeResolver(h.provider, h.provider, 16, logger)
	if err != nil {
		panic(err)
	}
	h.scopes = scopes
	agg := NewAggregator(logger,
		NewDirectoryRoleSource(h.provider, scopes, logger),
		NewGroupRoleSource(h.provider, scopes, logger),
		AzureResourceSource{},
	)
	resolver := NewPolicyResolver(h.provider, h.store, nil, logger)
	h.fetcher = NewFetcher(agg, resolver, h.store, h.clock, nil, logger)
	h.cache = NewRoleCache(h.fetcher, time.Minute, h.clock, nil, logger)
	h.tokenMgr = NewTokenManager(h.acquirer, h.tokens, h.clock, nil, logger)
	h.refresher = NewRefresher(h.cache, h.clock, RetryPolicy{InitialDelay: time.Second, Attempts: 3, Backoff: time.Second, Multiplier: 2}, logger)
	h.activator = NewActivationService(h.provider, h.tokenMgr, h.prompter, h.cache, h.refresher, h.clock, activation.Input{}, nil, logger)
	h.deact = NewDeactivationService(h.provider, h.prompter, h.cache, h.refresher, nil, logger)
	h.session = NewSession(h.provider, h.store, h.tokenMgr, h.cache, scopes, logger)
	return h
}

func ctxPolicy(id string) *policy.Descriptor {
	return &policy.Descriptor{MaxDurationHours: 8, RequiresAuthenticationContext: true, AuthenticationContextID: id}
}

func dirRole(id, name string) role.Role {
	return role.Role{ID: id, Type: role.TypeDirectoryRole, DisplayName: name, Status: role.StatusEligible, DirectoryScopeID: "/"}
}
