package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sosodev/duration"
)

const (
	callerEndUser   = "enduser"
	levelAssignment = "assignment"
)

// KindFromType maps a rule type discriminator to a RuleKind. It accepts the
// full OData type ("#microsoft.graph.unifiedRoleManagementPolicyExpirationRule")
// as well as short forms ("ExpirationRule", "expiration") in any casing.
func KindFromType(t string) RuleKind {
	s := strings.ToLower(strings.TrimSpace(t))
	s = strings.TrimPrefix(s, "#microsoft.graph.")
	s = strings.TrimPrefix(s, "unifiedrolemanagementpolicy")
	s = strings.TrimSuffix(s, "rule")

	switch s {
	case "expiration":
		return RuleExpiration
	case "enablement":
		return RuleEnablement
	case "approval":
		return RuleApproval
	case "authenticationcontext":
		return RuleAuthenticationContext
	default:
		return RuleUnknown
	}
}

// KindFromID derives the rule kind from a well-known rule id such as
// "Expiration_EndUser_Assignment".
func KindFromID(id string) RuleKind {
	kind, _, _ := splitRuleID(id)
	return KindFromType(kind)
}

func splitRuleID(id string) (kind, caller, level string) {
	parts := strings.Split(id, "_")
	switch len(parts) {
	case 3:
		return parts[0], parts[1], parts[2]
	case 1:
		return parts[0], "", ""
	default:
		return "", "", ""
	}
}

// appliesToActivation reports whether the rule governs end-user activation.
// Rules without target information are assumed to apply.
func (r RawRule) appliesToActivation() bool {
	caller, level := r.Target.Caller, r.Target.Level
	if caller == "" && level == "" {
		_, caller, level = splitRuleID(r.ID)
	}
	if caller != "" && strings.ToLower(caller) != callerEndUser {
		return false
	}
	if level != "" && strings.ToLower(level) != levelAssignment {
		return false
	}
	return true
}

// ParseMaxDurationHours parses an ISO-8601 duration and truncates it to whole hours.
func ParseMaxDurationHours(iso string) (int, error) {
	if strings.TrimSpace(iso) == "" {
		return 0, errors.New("empty duration")
	}
	d, err := duration.Parse(strings.TrimSpace(iso))
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", iso, err)
	}
	td := d.ToTimeDuration()
	if td < 0 {
		return 0, fmt.Errorf("negative duration %q", iso)
	}
	return int(td.Hours()), nil
}

// Normalize folds a rule collection into a Descriptor. It never fails: a rule
// that cannot be interpreted leaves the corresponding default in place.
// Unrecognized rule kinds and rules targeting callers other than the end user
// are ignored.
func Normalize(rules []RawRule) Descriptor {
	d := Default()

	for _, r := range rules {
		if !r.appliesToActivation() {
			continue
		}
		switch r.Kind {
		case RuleExpiration:
			if hours, err := ParseMaxDurationHours(r.MaximumDuration); err == nil {
				d.MaxDurationHours = hours
			}
		case RuleEnablement:
			for _, name := range r.EnabledRules {
				switch {
				case strings.EqualFold(name, ControlJustification):
					d.RequiresJustification = true
				case strings.EqualFold(name, ControlTicketing):
					d.RequiresTicket = true
				case strings.EqualFold(name, ControlMFA):
					d.RequiresMFA = true
				case strings.EqualFold(name, ControlAuthenticationContext):
					d.RequiresAuthenticationContext = true
				}
			}
		case RuleApproval:
			if r.ApprovalRequired {
				d.RequiresApproval = true
			}
		case RuleAuthenticationContext:
			if r.ContextEnabled && r.ClaimValue != "" {
				d.RequiresAuthenticationContext = true
				d.AuthenticationContextID = r.ClaimValue
			}
		}
	}

	// An enablement flag without a claim value gives nothing to challenge for.
	if !d.Valid() {
		d.RequiresAuthenticationContext = false
	}
	return d
}
