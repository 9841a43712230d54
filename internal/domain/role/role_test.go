package role

import (
	"testing"
	"time"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/policy"
)

func TestKey_StringPrefixesType(t *testing.T) {
	t.Parallel()

	dir := Key{Type: TypeDirectoryRole, ID: "abc"}
	grp := Key{Type: TypeGroup, ID: "abc"}

	if dir.String() == grp.String() {
		t.Fatalf("directory and group keys collide: %q", dir.String())
	}
	if dir.String() != "directory:abc" {
		t.Errorf("directory key = %q, want %q", dir.String(), "directory:abc")
	}
	if grp.String() != "group:abc" {
		t.Errorf("group key = %q, want %q", grp.String(), "group:abc")
	}
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	roles := []Role{
		{ID: "r1", Type: TypeDirectoryRole, Status: StatusEligible, DirectoryScopeID: "/"},
		{ID: "r1", Type: TypeDirectoryRole, Status: StatusEligible, DirectoryScopeID: "/"},
		{ID: "r1", Type: TypeDirectoryRole, Status: StatusEligible, DirectoryScopeID: "/administrativeUnits/au1"},
		{ID: "r1", Type: TypeDirectoryRole, Status: StatusActive, ScheduleID: "s1"},
		{ID: "r1", Type: TypeDirectoryRole, Status: StatusActive, ScheduleID: "s2"},
		{ID: "r1", Type: TypeGroup, Status: StatusEligible},
	}

	got := Dedupe(roles)
	if len(got) != 5 {
		t.Fatalf("Dedupe() returned %d roles, want 5", len(got))
	}
	if got[1].DirectoryScopeID != "/administrativeUnits/au1" {
		t.Errorf("order not preserved, got[1].DirectoryScopeID = %q", got[1].DirectoryScopeID)
	}
	if got[2].ScheduleID != "s1" || got[3].ScheduleID != "s2" {
		t.Errorf("active records = %q, %q, want s1, s2", got[2].ScheduleID, got[3].ScheduleID)
	}
	if got[4].Type != TypeGroup {
		t.Errorf("got[4].Type = %v, want group", got[4].Type)
	}
}

func TestDistinctKeys(t *testing.T) {
	t.Parallel()

	roles := []Role{
		{ID: "r1", Type: TypeDirectoryRole, DirectoryScopeID: "/"},
		{ID: "r1", Type: TypeDirectoryRole, DirectoryScopeID: "/administrativeUnits/au1"},
		{ID: "g1", Type: TypeGroup},
	}
	keys := DistinctKeys(roles)
	if len(keys) != 2 {
		t.Fatalf("DistinctKeys() = %v, want 2 keys", keys)
	}
}

func TestRole_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	end := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	orig := Role{
		ID:          "r1",
		EndDateTime: &end,
		Policy:      &policy.Descriptor{MaxDurationHours: 4},
		ProvidedBy:  &GroupAttribution{GroupID: "g1", Expiration: &end},
	}

	c := orig.Clone()
	*c.EndDateTime = end.Add(time.Hour)
	c.Policy.MaxDurationHours = 1
	c.ProvidedBy.GroupID = "g2"

	if !orig.EndDateTime.Equal(end) {
		t.Error("Clone shares EndDateTime with original")
	}
	if orig.Policy.MaxDurationHours != 4 {
		t.Error("Clone shares Policy with original")
	}
	if orig.ProvidedBy.GroupID != "g1" {
		t.Error("Clone shares ProvidedBy with original")
	}
}

func TestRole_EffectivePolicyDefaults(t *testing.T) {
	t.Parallel()

	r := Role{ID: "r1"}
	if got := r.EffectivePolicy().MaxDurationHours; got != policy.DefaultMaxDurationHours {
		t.Errorf("EffectivePolicy().MaxDurationHours = %d, want %d", got, policy.DefaultMaxDurationHours)
	}
}

func TestRole_AccessID(t *testing.T) {
	t.Parallel()

	if got := (Role{MemberType: MemberOwner}).AccessID(); got != "owner" {
		t.Errorf("owner AccessID = %q", got)
	}
	if got := (Role{MemberType: MemberMember}).AccessID(); got != "member" {
		t.Errorf("member AccessID = %q", got)
	}
}
