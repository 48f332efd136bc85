package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vyhuholl/test-backend/internal/core/domain"
	"github.com/vyhuholl/test-backend/internal/infra/security"
)

const (
	testUserID   = "4be32c16-6fbc-4d4e-8708-9e2a8755689b"
	testEmail    = "user@example.com"
	testPassword = "Tr0ub4dor&3-horse"
)

type authFixture struct {
	users       *memUserRepo
	revocations *memRevocationStore
	rates       *memRateLimitStore
	publisher   *recordingPublisher
	codec       *security.TokenCodec
	hasher      *security.PasswordHasher
	service     *AuthService
	clock       *time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	digest, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	start := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	clock := start

	codec, err := security.NewTokenCodec("auth-test-secret", "access-test", time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	codec.WithClock(func() time.Time { return clock })

	users := newMemUserRepo(domain.User{
		ID:           testUserID,
		Email:        testEmail,
		FirstName:    "Alex",
		LastName:     "Stone",
		PasswordHash: digest,
		IsActive:     true,
		CreatedAt:    start.Add(-24 * time.Hour),
	})

	fixture := &authFixture{
		users:       users,
		revocations: newMemRevocationStore(),
		rates:       newMemRateLimitStore(),
		publisher:   &recordingPublisher{},
		codec:       codec,
		hasher:      hasher,
		clock:       &clock,
	}

	limiter := NewLoginLimiter(fixture.rates, time.Minute, 5).
		WithClock(func() time.Time { return clock })

	fixture.service = NewAuthService(
		users,
		fixture.revocations,
		limiter,
		codec,
		hasher,
		fixture.publisher,
	).WithClock(func() time.Time { return clock })

	return fixture
}

func (f *authFixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func TestAuthServiceLoginThenAuthenticate(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	token, user, err := fixture.service.Login(ctx, testEmail, testPassword, "203.0.113.7")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked through login response")
	}
	if user.LastLoginAt == nil {
		t.Error("expected last login timestamp to be stamped")
	}

	claims, authed, err := fixture.service.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if claims.UserID() != testUserID {
		t.Errorf("claims.UserID() = %q, want %q", claims.UserID(), testUserID)
	}
	if authed.Email != testEmail {
		t.Errorf("authenticated email = %q, want %q", authed.Email, testEmail)
	}

	if len(fixture.publisher.logins) != 1 {
		t.Fatalf("published login events = %d, want 1", len(fixture.publisher.logins))
	}
	if fixture.publisher.logins[0].UserID != testUserID {
		t.Errorf("login event user = %q, want %q", fixture.publisher.logins[0].UserID, testUserID)
	}
}

func TestAuthServiceLoginRejectsBadCredentials(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	// Unknown email and wrong password must be indistinguishable.
	_, _, unknownErr := fixture.service.Login(ctx, "nobody@example.com", testPassword, "203.0.113.7")
	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v, want ErrInvalidCredentials", unknownErr)
	}

	_, _, wrongErr := fixture.service.Login(ctx, testEmail, "not-the-password", "203.0.113.7")
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v, want ErrInvalidCredentials", wrongErr)
	}

	if unknownErr.Error() != wrongErr.Error() {
		t.Errorf("error messages differ: %q vs %q", unknownErr, wrongErr)
	}
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	if err := fixture.users.SoftDelete(ctx, testUserID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	_, _, err := fixture.service.Login(ctx, testEmail, testPassword, "203.0.113.7")
	if !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("got %v, want ErrAccountInactive", err)
	}

	// A wrong password on the same inactive account still reports bad
	// credentials, so the password check runs first.
	_, _, err = fixture.service.Login(ctx, testEmail, "not-the-password", "203.0.113.7")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthServiceLogoutRevokesToken(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	token, _, err := fixture.service.Login(ctx, testEmail, testPassword, "203.0.113.7")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := fixture.service.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, _, err := fixture.service.Authenticate(ctx, token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("authenticate after logout: got %v, want ErrTokenInvalid", err)
	}

	// Logging out twice is a no-op, not an error.
	if err := fixture.service.Logout(ctx, token); err != nil {
		t.Fatalf("repeated logout: %v", err)
	}

	if len(fixture.publisher.revocations) != 2 {
		t.Fatalf("published revocation events = %d, want 2", len(fixture.publisher.revocations))
	}
	if fixture.publisher.revocations[0].Reason != "logout" {
		t.Errorf("revocation reason = %q, want %q", fixture.publisher.revocations[0].Reason, "logout")
	}
}

func TestAuthServiceAuthenticateGarbage(t *testing.T) {
	fixture := newAuthFixture(t)

	for _, token := range []string{"", "   ", "not-a-token", "a.b.c"} {
		if _, _, err := fixture.service.Authenticate(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Authenticate(%q): got %v, want ErrTokenInvalid", token, err)
		}
	}
}

func TestAuthServiceAuthenticateDeactivatedAccount(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	token, _, err := fixture.service.Login(ctx, testEmail, testPassword, "203.0.113.7")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := fixture.users.SoftDelete(ctx, testUserID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	if _, _, err := fixture.service.Authenticate(ctx, token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}

func TestAuthServiceAuthenticateFailsClosedOnLedgerOutage(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	token, _, err := fixture.service.Login(ctx, testEmail, testPassword, "203.0.113.7")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	fixture.revocations.failing = true

	_, _, err = fixture.service.Authenticate(ctx, token)
	if err == nil {
		t.Fatal("expected an error while the ledger is unavailable")
	}
	if errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("outage collapsed into ErrTokenInvalid: %v", err)
	}
}

func TestAuthServiceLoginRateLimited(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()
	const clientIP = "203.0.113.7"

	// Failed attempts consume the window just like successful ones.
	for i := 0; i < 5; i++ {
		_, _, err := fixture.service.Login(ctx, testEmail, "not-the-password", clientIP)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	_, _, err := fixture.service.Login(ctx, testEmail, testPassword, clientIP)
	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("sixth attempt: got %v, want *RateLimitedError", err)
	}
	if limited.RetryAfter < time.Second || limited.RetryAfter > time.Minute {
		t.Errorf("retry after = %s, want within (0, 1m]", limited.RetryAfter)
	}

	// Another client is unaffected.
	if _, _, err := fixture.service.Login(ctx, testEmail, testPassword, "198.51.100.9"); err != nil {
		t.Fatalf("other client: %v", err)
	}

	// Once the window slides past the burst, the original client is
	// admitted again.
	fixture.advance(61 * time.Second)
	if _, _, err := fixture.service.Login(ctx, testEmail, testPassword, clientIP); err != nil {
		t.Fatalf("after window: %v", err)
	}
}
