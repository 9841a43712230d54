package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/adapter/outbound/memory"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/policy"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

func newTokenFixture(ttl time.Duration) (*fakeClock, *fakeAcquirer, *memory.TokenStore, *TokenManager) {
	clock := newFakeClock()
	acq := &fakeAcquirer{now: clock.Now, ttl: ttl}
	store := memory.NewTokenStore(memory.WithTokenClock(clock.Now))
	tm := NewTokenManager(acq, store, clock, nil, discardLogger())
	return clock, acq, store, tm
}

func TestTokenManager_CachesPerContext(t *testing.T) {
	t.Parallel()

	_, acq, _, tm := newTokenFixture(time.Hour)
	ctx := context.Background()

	a, err := tm.GetToken(ctx, "c3")
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	b, _ := tm.GetToken(ctx, "c3")
	if a != b || acq.calls() != 1 {
		t.Errorf("second GetToken: tokens %q/%q, calls = %d, want cached", a, b, acq.calls())
	}
	if acq.claims[0] != policy.ClaimsChallenge("c3") {
		t.Errorf("claims = %s, want challenge for c3", acq.claims[0])
	}
	if _, err := tm.GetToken(ctx, "c1"); err != nil {
		t.Fatalf("GetToken(c1) error = %v", err)
	}
	if acq.calls() != 2 {
		t.Errorf("calls = %d, want a separate sign-in for c1", acq.calls())
	}
}

func TestTokenManager_ExpiryUsesMarginAndCeiling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ttl  time.Duration
		want time.Duration
	}{
		{"short lived token", 30 * time.Minute, 25 * time.Minute},
		{"long lived token capped", 2 * time.Hour, DefaultMaxTokenLifetime},
	}
	for _, tt := range tests {
		clock, _, store, tm := newTokenFixture(tt.ttl)
		if _, err := tm.GetToken(context.Background(), "c3"); err != nil {
			t.Fatalf("%s: GetToken() error = %v", tt.name, err)
		}
		got, ok := store.Get("c3")
		if !ok {
			t.Fatalf("%s: token not cached", tt.name)
		}
		if d := got.ExpiryTime.Sub(clock.Now()); d != tt.want {
			t.Errorf("%s: cached for %v, want %v", tt.name, d, tt.want)
		}
	}
}

func TestTokenManager_ReacquiresAfterExpiry(t *testing.T) {
	t.Parallel()

	clock, acq, _, tm := newTokenFixture(time.Hour)
	ctx := context.Background()

	_, _ = tm.GetToken(ctx, "c3")
	clock.advance(DefaultMaxTokenLifetime)
	_, _ = tm.GetToken(ctx, "c3")
	if acq.calls() != 2 {
		t.Errorf("calls = %d, want re-acquisition after expiry", acq.calls())
	}
}

func TestTokenManager_FailuresNotCached(t *testing.T) {
	t.Parallel()

	_, acq, _, tm := newTokenFixture(time.Hour)
	denied := errors.New("user closed the browser")
	acq.failures, acq.err = 1, denied
	ctx := context.Background()

	_, err := tm.GetToken(ctx, "c3")
	if !errors.Is(err, ErrAuthContextToken) || !errors.Is(err, denied) {
		t.Fatalf("GetToken() error = %v, want ErrAuthContextToken wrapping cause", err)
	}
	if _, err := tm.GetToken(ctx, "c3"); err != nil {
		t.Fatalf("retry GetToken() error = %v", err)
	}
	if acq.calls() != 2 {
		t.Errorf("calls = %d, want 2", acq.calls())
	}
}

func TestTokenManager_ForceRefresh(t *testing.T) {
	t.Parallel()

	_, acq, _, tm := newTokenFixture(time.Hour)
	ctx := context.Background()

	first, _ := tm.GetToken(ctx, "c3")
	fresh, err := tm.ForceRefresh(ctx, "c3")
	if err != nil {
		t.Fatalf("ForceRefresh() error = %v", err)
	}
	if fresh == first || acq.calls() != 2 {
		t.Errorf("ForceRefresh() = %q (first %q), calls = %d", fresh, first, acq.calls())
	}
	if again, _ := tm.GetToken(ctx, "c3"); again != fresh {
		t.Errorf("GetToken() after refresh = %q, want %q", again, fresh)
	}
}

func TestTokenManager_JWTExpiryFallback(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": clock.Now().Add(20 * time.Minute).Unix(),
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	tm := NewTokenManager(nil, nil, clock, nil, discardLogger())

	got := tm.expiry(jwtToken(raw), clock.Now())
	if want := clock.Now().Add(15 * time.Minute); !got.Equal(want) {
		t.Errorf("expiry() = %v, want %v", got, want)
	}
	if got := tm.expiry(jwtToken("opaque"), clock.Now()); !got.Equal(clock.Now().Add(DefaultMaxTokenLifetime)) {
		t.Errorf("expiry(opaque) = %v, want ceiling", got)
	}
}

func TestTokenManager_ShortTokenNotCached(t *testing.T) {
	t.Parallel()

	_, acq, store, tm := newTokenFixture(2 * time.Minute)
	if _, err := tm.GetToken(context.Background(), "c3"); err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if store.Size() != 0 {
		t.Error("token shorter than the safety margin was cached")
	}
	_, _ = tm.GetToken(context.Background(), "c3")
	if acq.calls() != 2 {
		t.Errorf("calls = %d, want 2", acq.calls())
	}
}

func jwtToken(raw string) outbound.AccessToken {
	return outbound.AccessToken{Token: raw}
}
