package policy

import "testing"

func TestNormalize_ExpirationAndEnablement(t *testing.T) {
	t.Parallel()

	rules := []RawRule{
		{ID: "Expiration_EndUser_Assignment", Kind: RuleExpiration, MaximumDuration: "PT4H"},
		{ID: "Enablement_EndUser_Assignment", Kind: RuleEnablement, EnabledRules: []string{"Justification", "MultiFactorAuthentication"}},
	}

	got := Normalize(rules)
	want := Descriptor{
		MaxDurationHours:      4,
		RequiresJustification: true,
		RequiresMFA:           true,
	}
	if got != want {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestNormalize_Empty(t *testing.T) {
	t.Parallel()

	if got := Normalize(nil); got != Default() {
		t.Errorf("Normalize(nil) = %+v, want default", got)
	}
}

func TestNormalize_BadExpirationKeepsDefault(t *testing.T) {
	t.Parallel()

	rules := []RawRule{
		{Kind: RuleExpiration, MaximumDuration: "eight hours"},
		{Kind: RuleEnablement, EnabledRules: []string{"Ticketing"}},
	}
	got := Normalize(rules)
	if got.MaxDurationHours != DefaultMaxDurationHours {
		t.Errorf("MaxDurationHours = %d, want %d", got.MaxDurationHours, DefaultMaxDurationHours)
	}
	if !got.RequiresTicket {
		t.Error("RequiresTicket = false, want true (later rules still applied)")
	}
}

func TestNormalize_TruncatesToWholeHours(t *testing.T) {
	t.Parallel()

	tests := []struct {
		iso  string
		want int
	}{
		{"PT8H", 8},
		{"PT1H30M", 1},
		{"PT30M", 0},
		{"P1D", 24},
		{"P1DT2H", 26},
	}
	for _, tt := range tests {
		got := Normalize([]RawRule{{Kind: RuleExpiration, MaximumDuration: tt.iso}})
		if got.MaxDurationHours != tt.want {
			t.Errorf("%s: MaxDurationHours = %d, want %d", tt.iso, got.MaxDurationHours, tt.want)
		}
	}
}

func TestNormalize_ApprovalAndAuthContext(t *testing.T) {
	t.Parallel()

	rules := []RawRule{
		{Kind: RuleApproval, ApprovalRequired: true},
		{Kind: RuleAuthenticationContext, ContextEnabled: true, ClaimValue: "c3"},
	}
	got := Normalize(rules)
	if !got.RequiresApproval {
		t.Error("RequiresApproval = false, want true")
	}
	if !got.RequiresAuthenticationContext || got.AuthenticationContextID != "c3" {
		t.Errorf("auth context = (%v, %q), want (true, c3)", got.RequiresAuthenticationContext, got.AuthenticationContextID)
	}
}

func TestNormalize_DisabledAuthContextIgnored(t *testing.T) {
	t.Parallel()

	got := Normalize([]RawRule{
		{Kind: RuleAuthenticationContext, ContextEnabled: false, ClaimValue: "c3"},
		{Kind: RuleAuthenticationContext, ContextEnabled: true, ClaimValue: ""},
	})
	if got.RequiresAuthenticationContext || got.AuthenticationContextID != "" {
		t.Errorf("got %+v, want no auth context requirement", got)
	}
}

func TestNormalize_EnablementContextWithoutClaimKeepsInvariant(t *testing.T) {
	t.Parallel()

	got := Normalize([]RawRule{{Kind: RuleEnablement, EnabledRules: []string{"AuthenticationContext"}}})
	if !got.Valid() {
		t.Errorf("descriptor violates invariant: %+v", got)
	}
}

func TestNormalize_IgnoresAdminAndEligibilityRules(t *testing.T) {
	t.Parallel()

	rules := []RawRule{
		{ID: "Expiration_Admin_Eligibility", Kind: RuleExpiration, MaximumDuration: "P365D"},
		{ID: "Enablement_Admin_Assignment", Kind: RuleEnablement, EnabledRules: []string{"Justification"}},
		{Kind: RuleApproval, ApprovalRequired: true, Target: RuleTarget{Caller: "Admin", Level: "Assignment"}},
		{Kind: RuleExpiration, MaximumDuration: "PT2H", Target: RuleTarget{Caller: "EndUser", Level: "Assignment"}},
	}
	got := Normalize(rules)
	want := Descriptor{MaxDurationHours: 2}
	if got != want {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestNormalize_UnknownKindIgnored(t *testing.T) {
	t.Parallel()

	got := Normalize([]RawRule{{ID: "Notification_Admin_EndUser_Assignment", Kind: RuleUnknown}})
	if got != Default() {
		t.Errorf("Normalize() = %+v, want default", got)
	}
}

func TestKindFromType(t *testing.T) {
	t.Parallel()

	tests := map[string]RuleKind{
		"#microsoft.graph.unifiedRoleManagementPolicyExpirationRule":            RuleExpiration,
		"#microsoft.graph.unifiedRoleManagementPolicyEnablementRule":            RuleEnablement,
		"#microsoft.graph.unifiedRoleManagementPolicyApprovalRule":              RuleApproval,
		"#microsoft.graph.unifiedRoleManagementPolicyAuthenticationContextRule": RuleAuthenticationContext,
		"#microsoft.graph.unifiedRoleManagementPolicyNotificationRule":          RuleUnknown,
		"ExpirationRule":        RuleExpiration,
		"authenticationContext": RuleAuthenticationContext,
		"":                      RuleUnknown,
	}
	for in, want := range tests {
		if got := KindFromType(in); got != want {
			t.Errorf("KindFromType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKindFromID(t *testing.T) {
	t.Parallel()

	if got := KindFromID("AuthenticationContext_EndUser_Assignment"); got != RuleAuthenticationContext {
		t.Errorf("KindFromID() = %q, want %q", got, RuleAuthenticationContext)
	}
	if got := KindFromID("Notification_Admin_Admin_Eligibility"); got != RuleUnknown {
		t.Errorf("KindFromID() = %q, want unknown", got)
	}
}

func TestDescriptor_WithContext(t *testing.T) {
	t.Parallel()

	d := Descriptor{RequiresAuthenticationContext: true, AuthenticationContextID: "c3"}
	got := d.WithContext(AuthContext{ID: "c3", DisplayName: "Phishing resistant", Description: "FIDO2"})
	if got.AuthenticationContextName != "Phishing resistant" || got.AuthenticationContextDescription != "FIDO2" {
		t.Errorf("WithContext() = %+v", got)
	}
	other := d.WithContext(AuthContext{ID: "c1", DisplayName: "x"})
	if other.AuthenticationContextName != "" {
		t.Error("WithContext() enriched a descriptor referencing a different context")
	}
}

func TestClaimsChallenge(t *testing.T) {
	t.Parallel()

	want := `{"access_token":{"acrs":{"essential":true,"value":"c3"}}}`
	if got := ClaimsChallenge("c3"); got != want {
		t.Errorf("ClaimsChallenge() = %s, want %s", got, want)
	}
}
