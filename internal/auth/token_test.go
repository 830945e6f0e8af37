package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestTokenRoundTripAndExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)}
	svc := NewTokenService("test-secret", WithTTL(time.Hour), WithClock(clock.Now))

	want := Identity{ID: "u1", Role: RoleMosqueAdmin, AssignedMosque: "m1"}
	token, exp, err := svc.Issue(want)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.Equal(clock.t.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", exp)
	}

	got, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != want {
		t.Fatalf("claims mismatch: got %+v want %+v", got, want)
	}

	clock.t = clock.t.Add(time.Hour - time.Second)
	if _, err := svc.Verify(token); err != nil {
		t.Fatalf("expected token valid just before expiry: %v", err)
	}

	clock.t = clock.t.Add(time.Second)
	if _, err := svc.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid at expiry, got %v", err)
	}

	clock.t = clock.t.Add(time.Second)
	if _, err := svc.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid after expiry, got %v", err)
	}
}

func TestTokenWithoutTenantRoundTrips(t *testing.T) {
	svc := NewTokenService("test-secret")
	token, _, err := svc.Issue(Identity{ID: "u2", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.HasTenant() {
		t.Fatalf("expected no tenant, got %q", got.AssignedMosque)
	}
	if got.Role != RoleUser || got.ID != "u2" {
		t.Fatalf("unexpected identity: %+v", got)
	}
}

func TestTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewTokenService("secret-a")
	verifier := NewTokenService("secret-b")
	for _, role := range AllRoles {
		token, _, err := issuer.Issue(Identity{ID: "u1", Role: role, AssignedMosque: "m1"})
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("role %s: expected ErrTokenInvalid, got %v", role, err)
		}
	}
}

func TestTokenRejectsMalformedInput(t *testing.T) {
	svc := NewTokenService("test-secret")
	valid, _, err := svc.Issue(Identity{ID: "u1", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	cases := map[string]string{
		"empty":     "",
		"garbage":   "garbage",
		"two parts": parts[0] + "." + parts[1],
		"tampered":  tampered,
	}
	for name, token := range cases {
		if _, err := svc.Verify(token); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("%s: expected ErrTokenInvalid, got %v", name, err)
		}
	}
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	svc := NewTokenService("test-secret")
	claims := Claims{
		UserID: "u1",
		Role:   RoleSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := svc.Verify(none); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected alg=none to be rejected, got %v", err)
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}
	if _, err := svc.Verify(hs512); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected HS512 to be rejected, got %v", err)
	}
}

func TestTokenRejectsUnknownRoleAndMissingExpiry(t *testing.T) {
	svc := NewTokenService("test-secret")
	sign := func(c Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("test-secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	unknownRole := sign(Claims{UserID: "u1", Role: "imam", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}})
	if _, err := svc.Verify(unknownRole); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected unknown role rejected, got %v", err)
	}
	noID := sign(Claims{Role: RoleUser, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}})
	if _, err := svc.Verify(noID); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected missing id rejected, got %v", err)
	}
	noExp := sign(Claims{UserID: "u1", Role: RoleUser})
	if _, err := svc.Verify(noExp); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected missing exp rejected, got %v", err)
	}
}

func TestTokenServiceWithoutSecret(t *testing.T) {
	svc := NewTokenService("   ")
	if err := svc.Ready(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, _, err := svc.Issue(Identity{ID: "u1", Role: RoleUser}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Issue: expected ErrNotConfigured, got %v", err)
	}
	if _, err := svc.Verify("anything"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Verify: expected ErrNotConfigured, got %v", err)
	}
}

func TestIssueValidatesClaims(t *testing.T) {
	svc := NewTokenService("test-secret")
	if _, _, err := svc.Issue(Identity{Role: RoleUser}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing id, got %v", err)
	}
	if _, _, err := svc.Issue(Identity{ID: "u1", Role: "root"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}
}
