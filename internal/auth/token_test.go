package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedClock(at time.Time) (func() time.Time, *time.Time) {
	cur := at
	return func() time.Time { return cur }, &cur
}

func reason(t *testing.T, err error) Reason {
	t.Helper()
	var ite *InvalidTokenError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTokenError, got %v", err)
	}
	return ite.Reason
}

func TestAccessTokenRoundTrip(t *testing.T) {
	now, _ := fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewTokenService("secret", 15*time.Minute, 30*24*time.Hour, now)

	raw, exp, err := svc.IssueAccess(42, RoleBuyer)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if want := now().Add(15 * time.Minute); !exp.Equal(want) {
		t.Fatalf("expiry = %v, want %v", exp, want)
	}

	claims, err := svc.Verify(raw, KindAccess)
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if claims.UserID != 42 || claims.Role != RoleBuyer || claims.Kind != KindAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAccessTokenExpiry(t *testing.T) {
	nowFn, cur := fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewTokenService("secret", 15*time.Minute, time.Hour, nowFn)

	raw, _, err := svc.IssueAccess(1, RoleSeller)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	// Just inside the TTL the token still verifies.
	*cur = cur.Add(14 * time.Minute)
	if _, err := svc.Verify(raw, KindAccess); err != nil {
		t.Fatalf("verify before expiry: %v", err)
	}

	// Strictly after expires-at it must fail with the expired reason.
	*cur = cur.Add(2 * time.Minute)
	_, err = svc.Verify(raw, KindAccess)
	if got := reason(t, err); got != ReasonExpired {
		t.Fatalf("reason = %s, want %s", got, ReasonExpired)
	}
}

func TestTamperedTokenFailsSignature(t *testing.T) {
	nowFn, _ := fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewTokenService("secret", 15*time.Minute, time.Hour, nowFn)

	raw, _, err := svc.IssueAccess(7, RoleBuyer)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	// Corrupt a byte in the middle of the signature segment.  The final
	// character is avoided: its low bits are base64 padding and a decoder
	// may ignore them.
	dot := strings.LastIndexByte(raw, '.')
	b := []byte(raw)
	mid := dot + (len(b)-dot)/2
	if b[mid] == 'A' {
		b[mid] = 'B'
	} else {
		b[mid] = 'A'
	}

	_, err = svc.Verify(string(b), KindAccess)
	if got := reason(t, err); got != ReasonBadSignature {
		t.Fatalf("reason = %s, want %s", got, ReasonBadSignature)
	}
}

func TestWrongSecretFailsSignature(t *testing.T) {
	nowFn, _ := fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	issuer := NewTokenService("secret-a", 15*time.Minute, time.Hour, nowFn)
	verifier := NewTokenService("secret-b", 15*time.Minute, time.Hour, nowFn)

	raw, _, err := issuer.IssueAccess(7, RoleBuyer)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	_, err = verifier.Verify(raw, KindAccess)
	if got := reason(t, err); got != ReasonBadSignature {
		t.Fatalf("reason = %s, want %s", got, ReasonBadSignature)
	}
}

func TestWrongKindRejected(t *testing.T) {
	nowFn, _ := fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewTokenService("secret", 15*time.Minute, time.Hour, nowFn)

	refresh, _, err := svc.IssueRefresh(9, RoleBuyer, "sess-1", 0)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	_, err = svc.Verify(refresh, KindAccess)
	if got := reason(t, err); got != ReasonWrongKind {
		t.Fatalf("reason = %s, want %s", got, ReasonWrongKind)
	}

	access, _, err := svc.IssueAccess(9, RoleBuyer)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	_, err = svc.Verify(access, KindRefresh)
	if got := reason(t, err); got != ReasonWrongKind {
		t.Fatalf("reason = %s, want %s", got, ReasonWrongKind)
	}
}

func TestMalformedToken(t *testing.T) {
	svc := NewTokenService("secret", 15*time.Minute, time.Hour, nil)
	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := svc.Verify(raw, KindAccess)
		if got := reason(t, err); got != ReasonMalformed {
			t.Fatalf("Verify(%q) reason = %s, want %s", raw, got, ReasonMalformed)
		}
	}
}

func TestRefreshTokenCarriesSessionAndCounter(t *testing.T) {
	nowFn, _ := fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewTokenService("secret", 15*time.Minute, 30*24*time.Hour, nowFn)

	raw, _, err := svc.IssueRefresh(3, RoleSeller, "sess-xyz", 5)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	claims, err := svc.Verify(raw, KindRefresh)
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if claims.SessionID != "sess-xyz" || claims.Counter != 5 {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
