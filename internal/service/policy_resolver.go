package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/policy"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/metrics"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

// policyFetchConcurrency bounds concurrent policy document fetches.
const policyFetchConcurrency = 4

// Group policy assignment role-definition ids.
const (
	groupAccessMember = "member"
	groupAccessOwner  = "owner"
)

// PolicyResolver resolves activation policies for role keys in batch. Each
// call keeps a per-operation memo of policy documents; the PolicyStore is
// the process-lifetime tier and is only emptied by Clear.
type PolicyResolver struct {
	provider outbound.PolicyProvider
	store    outbound.PolicyStore
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewPolicyResolver creates a resolver backed by store.
func NewPolicyResolver(provider outbound.PolicyProvider, store outbound.PolicyStore, m *metrics.Metrics, logger *slog.Logger) *PolicyResolver {
	return &PolicyResolver{provider: provider, store: store, metrics: m, logger: logger}
}

// ResolveBatch returns a descriptor for every key. It never fails: keys
// whose policy cannot be fetched get policy.Default(), which is cached too.
func (r *PolicyResolver) ResolveBatch(ctx context.Context, keys []role.Key) map[role.Key]policy.Descriptor {
	out := make(map[role.Key]policy.Descriptor, len(keys))

	var dirMisses, groupMisses []string
	seen := make(map[role.Key]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		if d, ok := r.store.GetPolicy(k); ok {
			r.metrics.PolicyCacheResult(true)
			out[k] = d
			continue
		}
		r.metrics.PolicyCacheResult(false)
		switch k.Type {
		case role.TypeDirectoryRole:
			dirMisses = append(dirMisses, k.ID)
		case role.TypeGroup:
			groupMisses = append(groupMisses, k.ID)
		default:
			d := policy.Default()
			r.store.PutPolicy(k, d)
			out[k] = d
		}
	}

	op := &policyMemo{docs: make(map[string]policy.Descriptor)}
	if len(dirMisses) > 0 {
		for id, d := range r.resolveDirectory(ctx, dirMisses, op) {
			out[role.Key{Type: role.TypeDirectoryRole, ID: id}] = d
		}
	}
	for _, id := range groupMisses {
		out[role.Key{Type: role.TypeGroup, ID: id}] = r.resolveGroup(ctx, id, op)
	}

	r.enrichContexts(ctx, out)

	for k, d := range out {
		r.store.PutPolicy(k, d)
	}
	return out
}

// policyMemo is the per-operation tier: each policy document is fetched
// and normalized at most once per ResolveBatch call.
type policyMemo struct {
	mu   sync.Mutex
	docs map[string]policy.Descriptor
}

func (m *policyMemo) get(id string) (policy.Descriptor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	return d, ok
}

func (m *policyMemo) put(id string, d policy.Descriptor) {
	m.mu.Lock()
	m.docs[id] = d
	m.mu.Unlock()
}

// resolveDirectory maps role-definition ids to descriptors with one batched
// assignment query, falling back to one query per role when the batch fails.
func (r *PolicyResolver) resolveDirectory(ctx context.Context, ids []string, op *policyMemo) map[string]policy.Descriptor {
	policyOf := make(map[string]string, len(ids))

	assignments, err := r.provider.ListDirectoryPolicyAssignments(ctx, ids)
	if err == nil {
		for _, a := range assignments {
			if _, ok := policyOf[a.RoleDefinitionID]; !ok && a.PolicyID != "" {
				policyOf[a.RoleDefinitionID] = a.PolicyID
			}
		}
	} else {
		r.logger.Warn("batch policy assignment lookup failed, querying per role",
			"roles", len(ids),
			"error", err,
		)
		for _, id := range ids {
			single, err := r.provider.ListDirectoryPolicyAssignments(ctx, []string{id})
			if err != nil {
				r.logger.Warn("policy assignment lookup failed, using default policy",
					"role_id", id,
					"error", err,
				)
				continue
			}
			for _, a := range single {
				if a.PolicyID != "" {
					policyOf[id] = a.PolicyID
					break
				}
			}
		}
	}

	distinct := make([]string, 0, len(policyOf))
	seen := make(map[string]struct{}, len(policyOf))
	for _, pid := range policyOf {
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		distinct = append(distinct, pid)
	}
	sort.Strings(distinct)

	var g errgroup.Group
	g.SetLimit(policyFetchConcurrency)
	for _, pid := range distinct {
		g.Go(func() error {
			r.fetchPolicy(ctx, pid, op, r.provider.GetDirectoryPolicyRules)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]policy.Descriptor, len(ids))
	for _, id := range ids {
		d := policy.Default()
		if pid, ok := policyOf[id]; ok {
			if doc, ok := op.get(pid); ok {
				d = doc
			}
		} else {
			r.logger.Debug("no policy assignment for role, using default", "role_id", id)
		}
		out[id] = d
	}
	return out
}

// resolveGroup resolves one group's policy, preferring the member
// assignment over the owner assignment.
func (r *PolicyResolver) resolveGroup(ctx context.Context, groupID string, op *policyMemo) policy.Descriptor {
	assignments, err := r.provider.ListGroupPolicyAssignments(ctx, groupID)
	if err != nil {
		r.logger.Warn("group policy assignment lookup failed, using default policy",
			"group_id", groupID,
			"error", err,
		)
		return policy.Default()
	}

	var member, owner, other string
	for _, a := range assignments {
		if a.PolicyID == "" {
			continue
		}
		switch {
		case strings.EqualFold(a.RoleDefinitionID, groupAccessMember) && member == "":
			member = a.PolicyID
		case strings.EqualFold(a.RoleDefinitionID, groupAccessOwner) && owner == "":
			owner = a.PolicyID
		case other == "":
			other = a.PolicyID
		}
	}
	pid := member
	if pid == "" {
		pid = owner
	}
	if pid == "" {
		pid = other
	}
	if pid == "" {
		return policy.Default()
	}

	r.fetchPolicy(ctx, pid, op, r.provider.GetGroupPolicyRules)
	if d, ok := op.get(pid); ok {
		return d
	}
	return policy.Default()
}

// fetchPolicy loads and normalizes one policy document into the memo.
// Failures are logged and leave the memo without an entry.
func (r *PolicyResolver) fetchPolicy(ctx context.Context, policyID string, op *policyMemo,
	get func(context.Context, string) ([]policy.RawRule, error)) {
	if _, ok := op.get(policyID); ok {
		return
	}
	rules, err := get(ctx, policyID)
	if err != nil {
		r.logger.Warn("policy fetch failed, using default policy",
			"policy_id", policyID,
			"error", err,
		)
		return
	}
	op.put(policyID, policy.Normalize(rules))
}

// enrichContexts resolves metadata for every distinct authentication
// context referenced in out and attaches it to the descriptors.
func (r *PolicyResolver) enrichContexts(ctx context.Context, out map[role.Key]policy.Descriptor) {
	var ids []string
	seen := make(map[string]struct{})
	for _, d := range out {
		if !d.RequiresAuthenticationContext || d.AuthenticationContextID == "" {
			continue
		}
		if _, ok := seen[d.AuthenticationContextID]; ok {
			continue
		}
		seen[d.AuthenticationContextID] = struct{}{}
		ids = append(ids, d.AuthenticationContextID)
	}
	sort.Strings(ids)

	contexts := make(map[string]policy.AuthContext, len(ids))
	for _, id := range ids {
		if c, ok := r.store.GetAuthContext(id); ok {
			contexts[id] = c
			continue
		}
		c, err := r.provider.GetAuthenticationContext(ctx, id)
		if err != nil {
			r.logger.Warn("authentication context lookup failed",
				"context_id", id,
				"error", err,
			)
			continue
		}
		if c.ID == "" {
			c.ID = id
		}
		r.store.PutAuthContext(c)
		contexts[id] = c
	}

	for k, d := range out {
		if c, ok := contexts[d.AuthenticationContextID]; ok {
			out[k] = d.WithContext(c)
		}
	}
}
