// Package attribution attributes active directory roles to the PIM group that
// grants them. The provider does not always link an inherited assignment to
// its group, so the match is a deterministic best guess used for display only.
package attribution

import (
	"sort"
	"time"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
)

// candidate is an active group providing one role definition.
type candidate struct {
	groupID    string
	groupName  string
	scopeID    string
	expiration *time.Time
}

// Resolve returns a copy of active with ProvidedBy set on directory roles that
// an active PIM group grants. groups may hold eligible and active group roles;
// only active ones are ever used for attribution. Inputs are not modified and
// the output keeps the order of active.
func Resolve(active []role.Role, groups []role.Role) []role.Role {
	out := make([]role.Role, len(active))
	for i, r := range active {
		out[i] = r.Clone()
	}

	providers := buildProviders(groups)
	if len(providers) == 0 {
		return out
	}

	// Instances of the same role definition, in first-seen order.
	var order []string
	instances := make(map[string][]int)
	for i, r := range out {
		if r.Type != role.TypeDirectoryRole {
			continue
		}
		if _, ok := instances[r.ID]; !ok {
			order = append(order, r.ID)
		}
		instances[r.ID] = append(instances[r.ID], i)
	}

	for _, defID := range order {
		idx := instances[defID]
		resolveDefinition(out, idx, providers[defID])
	}
	return out
}

// buildProviders maps role-definition id to its active providing groups,
// sorted by group name then id.
func buildProviders(groups []role.Role) map[string][]candidate {
	providers := make(map[string][]candidate)
	seen := make(map[string]struct{})
	for _, g := range groups {
		if g.Type != role.TypeGroup || g.Status != role.StatusActive {
			continue
		}
		for _, pr := range g.ProvidedRoles {
			k := pr.RoleDefinitionID + "|" + g.ID + "|" + pr.DirectoryScopeID
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			providers[pr.RoleDefinitionID] = append(providers[pr.RoleDefinitionID], candidate{
				groupID:    g.ID,
				groupName:  g.DisplayName,
				scopeID:    pr.DirectoryScopeID,
				expiration: g.EndDateTime,
			})
		}
	}
	for _, c := range providers {
		sort.SliceStable(c, func(i, j int) bool {
			if c[i].groupName != c[j].groupName {
				return c[i].groupName < c[j].groupName
			}
			return c[i].groupID < c[j].groupID
		})
	}
	return providers
}

func resolveDefinition(out []role.Role, idx []int, all []candidate) {
	var inherited, direct []int
	for _, i := range idx {
		if isInherited(out[i], scoped(all, out[i])) {
			inherited = append(inherited, i)
		} else {
			direct = append(direct, i)
		}
	}

	used := make(map[string]bool)

	// Exact expiration matches are claimed first so a non-matching instance
	// cannot take a group another instance matches exactly.
	var rest []int
	for _, i := range inherited {
		cands := scoped(all, out[i])
		if c, ok := pick(cands, used, out[i].EndDateTime, true); ok {
			attribute(&out[i], c, used)
			continue
		}
		rest = append(rest, i)
	}
	for _, i := range rest {
		cands := scoped(all, out[i])
		c, ok := pick(cands, used, out[i].EndDateTime, false)
		if !ok {
			out[i].MemberType = role.MemberInherited
			continue
		}
		attribute(&out[i], c, used)
	}

	if len(inherited) == 0 && len(direct) == 1 {
		i := direct[0]
		cands := scoped(all, out[i])
		if len(cands) == 1 {
			attributeDirect(&out[i], cands[0])
		}
	}
}

// scoped filters candidates whose provided scope differs from the instance's.
func scoped(all []candidate, r role.Role) []candidate {
	out := make([]candidate, 0, len(all))
	for _, c := range all {
		if c.scopeID != "" && r.DirectoryScopeID != "" && c.scopeID != r.DirectoryScopeID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// isInherited classifies an active instance as granted through a group.
func isInherited(r role.Role, cands []candidate) bool {
	if r.MemberType == role.MemberInherited {
		return true
	}
	for _, c := range cands {
		if r.EndDateTime != nil && c.expiration != nil && r.EndDateTime.Equal(*c.expiration) {
			return true
		}
		if r.EndDateTime == nil && c.expiration == nil && r.MemberType != role.MemberDirect {
			return true
		}
	}
	return false
}

// pick selects the best candidate. With exactOnly it only returns an unused
// exact expiration match. Otherwise the preference is: unused active group,
// then a reused exact match, then the first candidate.
func pick(cands []candidate, used map[string]bool, end *time.Time, exactOnly bool) (candidate, bool) {
	if len(cands) == 0 {
		return candidate{}, false
	}
	for _, c := range cands {
		if !used[c.groupID] && sameTime(end, c.expiration) {
			return c, true
		}
	}
	if exactOnly {
		return candidate{}, false
	}
	for _, c := range cands {
		if !used[c.groupID] {
			return c, true
		}
	}
	for _, c := range cands {
		if sameTime(end, c.expiration) {
			return c, true
		}
	}
	return cands[0], true
}

func attribute(r *role.Role, c candidate, used map[string]bool) {
	used[c.groupID] = true
	r.MemberType = role.MemberInherited
	r.ProvidedBy = &role.GroupAttribution{
		GroupID:    c.groupID,
		GroupName:  c.groupName,
		Expiration: copyTime(c.expiration),
		GroupOnly:  true,
	}
	if r.EndDateTime == nil && c.expiration != nil {
		r.EndDateTime = copyTime(c.expiration)
	}
}

// attributeDirect handles a lone direct instance with a single active
// provider. A permanent instance without a direct signal takes the group's
// end time. Any other disagreement means an independent direct path exists:
// its own expiration is kept and the attribution is not group-only.
func attributeDirect(r *role.Role, c candidate) {
	r.ProvidedBy = &role.GroupAttribution{
		GroupID:    c.groupID,
		GroupName:  c.groupName,
		Expiration: copyTime(c.expiration),
	}
	if r.EndDateTime == nil && c.expiration != nil && r.MemberType != role.MemberDirect {
		r.EndDateTime = copyTime(c.expiration)
		r.MemberType = role.MemberInherited
		r.ProvidedBy.GroupOnly = true
	}
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
