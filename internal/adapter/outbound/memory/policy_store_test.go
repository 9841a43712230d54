package memory

import (
	"sync"
	"testing"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/policy"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
)

func TestPolicyStore_PutAndGet(t *testing.T) {
	t.Parallel()

	store := NewPolicyStore()
	dir := role.Key{Type: role.TypeDirectoryRole, ID: "same"}
	grp := role.Key{Type: role.TypeGroup, ID: "same"}

	store.PutPolicy(dir, policy.Descriptor{MaxDurationHours: 2})
	store.PutPolicy(grp, policy.Descriptor{MaxDurationHours: 6})

	got, ok := store.GetPolicy(dir)
	if !ok || got.MaxDurationHours != 2 {
		t.Errorf("GetPolicy(directory) = %+v, %v, want 2h", got, ok)
	}
	got, ok = store.GetPolicy(grp)
	if !ok || got.MaxDurationHours != 6 {
		t.Errorf("GetPolicy(group) = %+v, %v, want 6h", got, ok)
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}

func TestPolicyStore_Miss(t *testing.T) {
	t.Parallel()

	store := NewPolicyStore()
	if _, ok := store.GetPolicy(role.Key{Type: role.TypeGroup, ID: "x"}); ok {
		t.Error("GetPolicy() on empty store returned ok")
	}
	if _, ok := store.GetAuthContext("c1"); ok {
		t.Error("GetAuthContext() on empty store returned ok")
	}
}

func TestPolicyStore_SnapshotsAreCopies(t *testing.T) {
	t.Parallel()

	store := NewPolicyStore()
	store.PutPolicy(role.Key{Type: role.TypeGroup, ID: "g1"}, policy.Default())
	store.PutAuthContext(policy.AuthContext{ID: "c3", DisplayName: "Strong"})

	snap := store.Policies()
	delete(snap, "group:g1")
	if store.Len() != 1 {
		t.Error("deleting from snapshot changed the store")
	}
	ctxs := store.AuthContexts()
	ctxs["c3"] = policy.AuthContext{ID: "c3", DisplayName: "changed"}
	if c, _ := store.GetAuthContext("c3"); c.DisplayName != "Strong" {
		t.Errorf("DisplayName = %q, want Strong", c.DisplayName)
	}
}

func TestPolicyStore_Clear(t *testing.T) {
	t.Parallel()

	store := NewPolicyStore()
	store.PutPolicy(role.Key{Type: role.TypeGroup, ID: "g1"}, policy.Default())
	store.PutAuthContext(policy.AuthContext{ID: "c1"})

	store.Clear()
	if store.Len() != 0 || len(store.AuthContexts()) != 0 {
		t.Errorf("after Clear() Len = %d, contexts = %d", store.Len(), len(store.AuthContexts()))
	}
}

func TestPolicyStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewPolicyStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			k := role.Key{Type: role.TypeDirectoryRole, ID: string(rune('a' + n%26))}
			store.PutPolicy(k, policy.Descriptor{MaxDurationHours: n})
			_, _ = store.GetPolicy(k)
			_ = store.Policies()
			if n%10 == 0 {
				store.Clear()
			}
		}(i)
	}
	wg.Wait()
}
