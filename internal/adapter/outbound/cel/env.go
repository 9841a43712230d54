package cel

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
)

// Requirement names exposed through the requires variable.
const (
	RequirementJustification         = "justification"
	RequirementTicket                = "ticket"
	RequirementMFA                   = "mfa"
	RequirementApproval              = "approval"
	RequirementAuthenticationContext = "authentication_context"
)

// NewRoleEnvironment creates the CEL environment for role selection. It declares:
//   - Identity: id, name, type, status, member_type, resource, scope, scope_id
//   - Timing: start, end (timestamps, zero when unset), permanent, now
//   - Policy: max_hours, requires (list of requirement names), auth_context
//   - Attribution: provided_by (providing group name, "" when direct)
//   - Functions: glob(pattern, s), iequals(a, b)
func NewRoleEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(),
		ext.Sets(),

		cel.Variable("id", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("type", cel.StringType),
		cel.Variable("status", cel.StringType),
		cel.Variable("member_type", cel.StringType),
		cel.Variable("resource", cel.StringType),
		cel.Variable("scope", cel.StringType),
		cel.Variable("scope_id", cel.StringType),

		cel.Variable("start", cel.TimestampType),
		cel.Variable("end", cel.TimestampType),
		cel.Variable("permanent", cel.BoolType),
		cel.Variable("now", cel.TimestampType),

		cel.Variable("max_hours", cel.IntType),
		cel.Variable("requires", cel.ListType(cel.StringType)),
		cel.Variable("auth_context", cel.StringType),

		cel.Variable("provided_by", cel.StringType),

		// glob: shell-style pattern match, case-insensitive.
		// Usage: glob("*Administrator", name)
		cel.Function("glob",
			cel.Overload("glob_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(pattern, name ref.Val) ref.Val {
					p := strings.ToLower(pattern.Value().(string))
					n := strings.ToLower(name.Value().(string))
					matched, _ := filepath.Match(p, n)
					return types.Bool(matched)
				}),
			),
		),

		cel.Function("iequals",
			cel.Overload("iequals_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(a, b ref.Val) ref.Val {
					return types.Bool(strings.EqualFold(a.Value().(string), b.Value().(string)))
				}),
			),
		),
	)
}

// BuildActivation creates the CEL activation map for one role.
func BuildActivation(r role.Role, now time.Time) map[string]any {
	p := r.EffectivePolicy()

	requires := []string{}
	if p.RequiresJustification {
		requires = append(requires, RequirementJustification)
	}
	if p.RequiresTicket {
		requires = append(requires, RequirementTicket)
	}
	if p.RequiresMFA {
		requires = append(requires, RequirementMFA)
	}
	if p.RequiresApproval {
		requires = append(requires, RequirementApproval)
	}
	if p.RequiresAuthenticationContext {
		requires = append(requires, RequirementAuthenticationContext)
	}

	var start, end time.Time
	if r.StartDateTime != nil {
		start = *r.StartDateTime
	}
	if r.EndDateTime != nil {
		end = *r.EndDateTime
	}

	providedBy := ""
	if r.ProvidedBy != nil {
		providedBy = r.ProvidedBy.GroupName
	}

	return map[string]any{
		"id":          r.ID,
		"name":        r.DisplayName,
		"type":        string(r.Type),
		"status":      string(r.Status),
		"member_type": string(r.MemberType),
		"resource":    r.ResourceName,
		"scope":       r.ScopeDisplay,
		"scope_id":    r.DirectoryScopeID,

		"start":     start,
		"end":       end,
		"permanent": r.IsPermanent(),
		"now":       now,

		"max_hours":    int64(p.MaxDurationHours),
		"requires":     requires,
		"auth_context": p.AuthenticationContextID,

		"provided_by": providedBy,
	}
}
