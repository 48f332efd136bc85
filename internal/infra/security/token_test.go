package security

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "unit-test-signing-secret"

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func newTestCodec(t *testing.T, ttl time.Duration, now time.Time) *TokenCodec {
	t.Helper()

	codec, err := NewTokenCodec(testSecret, "access-test", ttl)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return codec.WithClock(fixedClock(now))
}

func TestTokenCodecRequiresSecret(t *testing.T) {
	if _, err := NewTokenCodec("", "access-test", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewTokenCodec("   ", "access-test", time.Hour); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestTokenIssueParseRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, time.Hour, now)

	token, err := codec.Issue("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := codec.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if claims.UserID() != "user-1" {
		t.Fatalf("expected subject user-1, got %q", claims.UserID())
	}
	if claims.Email != "alice@example.com" {
		t.Fatalf("expected email claim, got %q", claims.Email)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", claims.ExpiresAt)
	}
	if claims.ID == "" {
		t.Fatal("expected a jti claim")
	}
}

func TestTokenParseExpired(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, time.Hour, issued)

	token, err := codec.Issue("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Still valid just before the boundary.
	codec.WithClock(fixedClock(issued.Add(59 * time.Minute)))
	if _, err := codec.Parse(token); err != nil {
		t.Fatalf("token should still parse: %v", err)
	}

	codec.WithClock(fixedClock(issued.Add(2 * time.Hour)))
	if _, err := codec.Parse(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenParseWrongSecret(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, time.Hour, now)

	token, err := codec.Issue("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other, err := NewTokenCodec("a-different-secret", "access-test", time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	other.WithClock(fixedClock(now))

	if _, err := other.Parse(token); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature, got %v", err)
	}
}

func TestTokenParseMalformed(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, time.Hour, now)

	for _, token := range []string{"", "   ", "garbage", "a.b.c"} {
		if _, err := codec.Parse(token); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("token %q: expected ErrTokenMalformed, got %v", token, err)
		}
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	first := Fingerprint("token-a")
	second := Fingerprint("token-a")
	other := Fingerprint("token-b")

	if first != second {
		t.Fatal("fingerprint must be deterministic")
	}
	if first == other {
		t.Fatal("different tokens must fingerprint differently")
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}
}
