package token

import (
	"strings"
	"testing"
	"time"
)

func issuerAt(t *testing.T, now time.Time) *Issuer {
	t.Helper()
	issuer, err := NewIssuerWithClock("test-secret", DefaultTTL, func() time.Time { return now })
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return issuer
}

func TestVerifyWithinTTL(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	issuer := issuerAt(t, start)
	tok, err := issuer.Issue("u1", "m1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	late, _ := NewIssuerWithClock("test-secret", DefaultTTL, func() time.Time { return start.Add(599 * time.Second) })
	if !late.Verify(tok, "u1", "m1") {
		t.Fatal("token should verify at ttl-1")
	}

	expired, _ := NewIssuerWithClock("test-secret", DefaultTTL, func() time.Time { return start.Add(601 * time.Second) })
	if expired.Verify(tok, "u1", "m1") {
		t.Fatal("token should not verify at ttl+1")
	}
}

func TestVerifyExactPairOnly(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	issuer := issuerAt(t, now)
	tok, err := issuer.Issue("u1", "m1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !issuer.Verify(tok, "u1", "m1") {
		t.Fatal("token should verify for its own pair")
	}
	if issuer.Verify(tok, "u2", "m1") {
		t.Fatal("token must not verify for another subject")
	}
	if issuer.Verify(tok, "u1", "m2") {
		t.Fatal("token must not verify for another resource")
	}
}

func TestVerifyMalformedInput(t *testing.T) {
	issuer := issuerAt(t, time.Unix(1_700_000_000, 0))
	for _, tok := range []string{
		"",
		"no-dot",
		"a.b.c",
		"!!!.deadbeef",
		"eyJ4IjoxfQ.nothex",
	} {
		if issuer.Verify(tok, "u1", "m1") {
			t.Fatalf("malformed token %q verified", tok)
		}
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	issuer := issuerAt(t, time.Unix(1_700_000_000, 0))
	tok, err := issuer.Issue("u1", "m1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other, _ := issuer.Issue("u2", "m1")
	parts := strings.Split(tok, ".")
	otherParts := strings.Split(other, ".")
	forged := otherParts[0] + "." + parts[1]
	if issuer.Verify(forged, "u2", "m1") {
		t.Fatal("payload swap must invalidate the signature")
	}
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	issuer := issuerAt(t, now)
	foreign, _ := NewIssuerWithClock("other-secret", DefaultTTL, func() time.Time { return now })
	tok, err := foreign.Issue("u1", "m1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issuer.Verify(tok, "u1", "m1") {
		t.Fatal("token signed with a different secret verified")
	}
}

func TestVerifyForResource(t *testing.T) {
	issuer := issuerAt(t, time.Unix(1_700_000_000, 0))
	tok, err := issuer.Issue("u1", "m1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	subject, ok := issuer.VerifyForResource(tok, "m1")
	if !ok || subject != "u1" {
		t.Fatalf("expected subject u1, got %q ok=%v", subject, ok)
	}
	if _, ok := issuer.VerifyForResource(tok, "m2"); ok {
		t.Fatal("token must not verify for another resource")
	}
	if _, ok := issuer.VerifyForResource("garbage", "m1"); ok {
		t.Fatal("garbage token verified")
	}
}
