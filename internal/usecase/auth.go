package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/vyhuholl/test-backend/internal/core/domain"
	"github.com/vyhuholl/test-backend/internal/core/port"
	"github.com/vyhuholl/test-backend/internal/infra/security"
	"github.com/vyhuholl/test-backend/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the email or password is incorrect.
	// Unknown email and wrong password are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive indicates the credentials verified but the account
	// is deactivated.
	ErrAccountInactive = errors.New("account is not active")
	// ErrTokenInvalid indicates the presented token is unusable: malformed,
	// badly signed, expired, revoked, or bound to a missing or deactivated
	// account. Callers are never told which.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// AuthService coordinates the session lifecycle: credential verification,
// token issuance, token validation against the revocation ledger, and
// logout.
type AuthService struct {
	users       port.UserRepository
	revocations port.RevocationStore
	limiter     *LoginLimiter
	codec       *security.TokenCodec
	hasher      *security.PasswordHasher
	events      port.EventPublisher
	now         func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	users port.UserRepository,
	revocations port.RevocationStore,
	limiter *LoginLimiter,
	codec *security.TokenCodec,
	hasher *security.PasswordHasher,
	events port.EventPublisher,
) *AuthService {
	return &AuthService{
		users:       users,
		revocations: revocations,
		limiter:     limiter,
		codec:       codec,
		hasher:      hasher,
		events:      events,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Login verifies credentials and issues a session token. The attempt is
// charged against the client's rate-limit window before credentials are
// inspected, so failed and successful logins count alike.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (string, *domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", nil, fmt.Errorf("email is required")
	}
	if password == "" {
		return "", nil, fmt.Errorf("password is required")
	}

	if s.limiter != nil && clientIP != "" {
		if err := s.limiter.Reserve(ctx, clientIP); err != nil {
			return "", nil, err
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return "", nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return "", nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return "", nil, ErrAccountInactive
	}

	token, err := s.codec.Issue(user.ID, user.Email)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	loggedAt := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, loggedAt); err != nil {
		return "", nil, fmt.Errorf("update last login: %w", err)
	}
	user.LastLoginAt = &loggedAt

	if s.events != nil {
		// Best effort; a broker outage must not fail the login.
		_ = s.events.PublishUserLoggedIn(ctx, domain.UserLoggedInEvent{
			EventID:  uuid.NewString(),
			UserID:   user.ID,
			Email:    user.Email,
			IP:       clientIP,
			LoggedAt: loggedAt,
		})
	}

	sanitized := *user
	sanitized.PasswordHash = ""

	return token, &sanitized, nil
}

// Authenticate validates a presented token end to end: signature and
// expiry, then the revocation ledger, then the account itself. Every
// failure collapses into ErrTokenInvalid; ledger and storage outages
// propagate as plain errors so the caller rejects rather than guesses.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*security.Claims, *domain.User, error) {
	claims, err := s.codec.Parse(token)
	if err != nil {
		return nil, nil, ErrTokenInvalid
	}

	revoked, err := s.revocations.IsRevoked(ctx, security.Fingerprint(token))
	if err != nil {
		return nil, nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, nil, ErrTokenInvalid
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrTokenInvalid
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, ErrTokenInvalid
	}

	sanitized := *user
	sanitized.PasswordHash = ""

	return claims, &sanitized, nil
}

// Logout enters the token into the revocation ledger. Revoking a token
// that is already revoked succeeds without effect.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.codec.Parse(token)
	if err != nil {
		return ErrTokenInvalid
	}

	entry := s.RevocationEntry(token, claims)
	if err := s.revocations.Revoke(ctx, entry); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	if s.events != nil {
		_ = s.events.PublishTokenRevoked(ctx, domain.TokenRevokedEvent{
			EventID:     uuid.NewString(),
			Fingerprint: entry.Fingerprint,
			UserID:      entry.UserID,
			Reason:      "logout",
			RevokedAt:   entry.RevokedAt,
			ExpiresAt:   entry.ExpiresAt,
		})
	}

	return nil
}

// RevocationEntry builds the ledger entry for a parsed token. The original
// expiry is preserved so the sweep can drop the entry once the token could
// no longer verify anyway.
func (s *AuthService) RevocationEntry(token string, claims *security.Claims) domain.RevokedToken {
	expiresAt := s.now().Add(s.codec.TTL())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return domain.RevokedToken{
		Fingerprint: security.Fingerprint(token),
		UserID:      claims.UserID(),
		RevokedAt:   s.now(),
		ExpiresAt:   expiresAt,
	}
}
