package role

import "strings"

// identity returns the fields that make two role records the same grant.
// Active instances of one role through different paths keep distinct
// schedule ids, so they survive deduplication.
func identity(r Role) string {
	return strings.Join([]string{
		string(r.Type),
		r.ID,
		string(r.Status),
		r.DirectoryScopeID,
		string(r.MemberType),
		r.ScheduleID,
	}, "|")
}

// Dedupe removes repeated role records, keeping the first occurrence.
// The input order is preserved.
func Dedupe(roles []Role) []Role {
	if len(roles) == 0 {
		return roles
	}
	seen := make(map[string]struct{}, len(roles))
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		id := identity(r)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}
	return out
}

// DistinctKeys returns the distinct policy keys of roles in first-seen order.
func DistinctKeys(roles []Role) []Key {
	seen := make(map[Key]struct{}, len(roles))
	var keys []Key
	for _, r := range roles {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}
