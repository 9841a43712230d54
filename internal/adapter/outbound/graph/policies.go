package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/policy"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

const (
	pathPolicyAssignments = "/policies/roleManagementPolicyAssignments"
	pathPolicies          = "/policies/roleManagementPolicies/"
	pathAuthContexts      = "/identity/conditionalAccess/authenticationContextClassReferences/"

	// filterChunkSize bounds the role ids OR-ed into one $filter.
	filterChunkSize = 20
)

// ListDirectoryPolicyAssignments resolves policy assignments for many role
// definitions with one filtered query per chunk of ids.
func (c *Client) ListDirectoryPolicyAssignments(ctx context.Context, roleDefinitionIDs []string) ([]outbound.PolicyAssignment, error) {
	var out []outbound.PolicyAssignment
	for start := 0; start < len(roleDefinitionIDs); start += filterChunkSize {
		chunk := roleDefinitionIDs[start:min(start+filterChunkSize, len(roleDefinitionIDs))]

		ors := make([]string, 0, len(chunk))
		for _, id := range chunk {
			ors = append(ors, "roleDefinitionId eq "+quote(id))
		}
		filter := "scopeId eq '/' and scopeType eq 'DirectoryRole' and (" + strings.Join(ors, " or ") + ")"

		items, err := listAll[policyAssignment](ctx, c, "list_directory_policy_assignments",
			withQuery(pathPolicyAssignments, "$filter", filter))
		if err != nil {
			return nil, err
		}
		out = append(out, mapAssignments(items)...)
	}
	return out, nil
}

// ListGroupPolicyAssignments returns the member and owner policy assignments of a group.
func (c *Client) ListGroupPolicyAssignments(ctx context.Context, groupID string) ([]outbound.PolicyAssignment, error) {
	filter := "scopeId eq " + quote(groupID) + " and scopeType eq 'Group'"
	items, err := listAll[policyAssignment](ctx, c, "list_group_policy_assignments",
		withQuery(pathPolicyAssignments, "$filter", filter))
	if err != nil {
		return nil, err
	}
	return mapAssignments(items), nil
}

func mapAssignments(items []policyAssignment) []outbound.PolicyAssignment {
	out := make([]outbound.PolicyAssignment, 0, len(items))
	for _, it := range items {
		out = append(out, outbound.PolicyAssignment{
			ID:               it.ID,
			PolicyID:         it.PolicyID,
			ScopeID:          it.ScopeID,
			RoleDefinitionID: it.RoleDefinitionID,
		})
	}
	return out
}

func (c *Client) getPolicy(ctx context.Context, op, policyID string) (unifiedRoleManagementPolicy, error) {
	var p unifiedRoleManagementPolicy
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   withQuery(pathPolicies+policyID, "$expand", "rules"),
		out:    &p,
	})
	return p, err
}

// GetDirectoryPolicyRules fetches a directory role policy and maps its typed rules.
func (c *Client) GetDirectoryPolicyRules(ctx context.Context, policyID string) ([]policy.RawRule, error) {
	p, err := c.getPolicy(ctx, "get_directory_policy", policyID)
	if err != nil {
		return nil, err
	}
	return mapTypedRules(p.Rules), nil
}

// GetGroupPolicyRules fetches a group policy and maps its rules from loosely
// typed JSON.
func (c *Client) GetGroupPolicyRules(ctx context.Context, policyID string) ([]policy.RawRule, error) {
	p, err := c.getPolicy(ctx, "get_group_policy", policyID)
	if err != nil {
		return nil, err
	}
	rules := make([]map[string]any, 0, len(p.Rules))
	for _, raw := range p.Rules {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		rules = append(rules, m)
	}
	return mapLooseRules(rules), nil
}

// mapTypedRules decodes each rule into the struct its @odata.type names.
// Rules that fail to decode are skipped.
func mapTypedRules(raw []json.RawMessage) []policy.RawRule {
	out := make([]policy.RawRule, 0, len(raw))
	for _, r := range raw {
		var h ruleHeader
		if err := json.Unmarshal(r, &h); err != nil {
			continue
		}
		kind := policy.KindFromType(h.ODataType)
		if kind == policy.RuleUnknown {
			kind = policy.KindFromID(h.ID)
		}
		rule := policy.RawRule{
			ID:     h.ID,
			Kind:   kind,
			Target: policy.RuleTarget{Caller: h.Target.Caller, Level: h.Target.Level},
		}

		switch kind {
		case policy.RuleExpiration:
			var er expirationRule
			if err := json.Unmarshal(r, &er); err != nil {
				continue
			}
			rule.MaximumDuration = er.MaximumDuration
		case policy.RuleEnablement:
			var en enablementRule
			if err := json.Unmarshal(r, &en); err != nil {
				continue
			}
			rule.EnabledRules = en.EnabledRules
		case policy.RuleApproval:
			var ar approvalRule
			if err := json.Unmarshal(r, &ar); err != nil {
				continue
			}
			rule.ApprovalRequired = ar.Setting.IsApprovalRequired
		case policy.RuleAuthenticationContext:
			var ac authenticationContextRule
			if err := json.Unmarshal(r, &ac); err != nil {
				continue
			}
			rule.ContextEnabled = ac.IsEnabled
			rule.ClaimValue = ac.ClaimValue
		default:
			continue
		}
		out = append(out, rule)
	}
	return out
}

// mapLooseRules maps generic JSON objects whose field names may differ in
// casing ("MaximumDuration", "maximumDuration") to RawRule.
func mapLooseRules(rules []map[string]any) []policy.RawRule {
	out := make([]policy.RawRule, 0, len(rules))
	for _, m := range rules {
		id := lookupString(m, "id")
		kind := policy.KindFromType(lookupString(m, "@odata.type"))
		if kind == policy.RuleUnknown {
			kind = policy.KindFromID(id)
		}
		if kind == policy.RuleUnknown {
			continue
		}

		rule := policy.RawRule{ID: id, Kind: kind}
		if target, ok := lookup(m, "target").(map[string]any); ok {
			rule.Target = policy.RuleTarget{
				Caller: lookupString(target, "caller"),
				Level:  lookupString(target, "level"),
			}
		}

		switch kind {
		case policy.RuleExpiration:
			rule.MaximumDuration = lookupString(m, "maximumDuration")
		case policy.RuleEnablement:
			if list, ok := lookup(m, "enabledRules").([]any); ok {
				for _, v := range list {
					if s, ok := v.(string); ok {
						rule.EnabledRules = append(rule.EnabledRules, s)
					}
				}
			}
		case policy.RuleApproval:
			if setting, ok := lookup(m, "setting").(map[string]any); ok {
				rule.ApprovalRequired = lookupBool(setting, "isApprovalRequired")
			}
		case policy.RuleAuthenticationContext:
			rule.ContextEnabled = lookupBool(m, "isEnabled")
			rule.ClaimValue = lookupString(m, "claimValue")
		}
		out = append(out, rule)
	}
	return out
}

// lookup finds key case-insensitively.
func lookup(m map[string]any, key string) any {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

func lookupString(m map[string]any, key string) string {
	s, _ := lookup(m, key).(string)
	return s
}

func lookupBool(m map[string]any, key string) bool {
	switch v := lookup(m, key).(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

// GetAuthenticationContext returns the display metadata of a context class reference.
func (c *Client) GetAuthenticationContext(ctx context.Context, contextID string) (policy.AuthContext, error) {
	var ref authenticationContextClassReference
	err := c.do(ctx, request{
		op:     "get_authentication_context",
		method: http.MethodGet,
		path:   pathAuthContexts + contextID,
		out:    &ref,
	})
	if err != nil {
		return policy.AuthContext{}, err
	}
	return policy.AuthContext{ID: ref.ID, DisplayName: ref.DisplayName, Description: ref.Description}, nil
}
