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

// UpdateProfileInput captures the mutable profile fields. Nil means leave
// the field unchanged; for MiddleName an empty string clears it.
type UpdateProfileInput struct {
	FirstName  *string
	LastName   *string
	MiddleName *string
}

// UserService handles the account lifecycle after registration: profile
// reads and updates, password changes, and deactivation.
type UserService struct {
	users     port.UserRepository
	closer    port.AccountCloser
	codec     *security.TokenCodec
	hasher    *security.PasswordHasher
	validator *security.PasswordValidator
	events    port.EventPublisher
	now       func() time.Time
}

// NewUserService constructs a UserService. A nil validator selects the
// default rule set.
func NewUserService(
	users port.UserRepository,
	closer port.AccountCloser,
	codec *security.TokenCodec,
	hasher *security.PasswordHasher,
	validator *security.PasswordValidator,
	events port.EventPublisher,
) *UserService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	return &UserService{
		users:     users,
		closer:    closer,
		codec:     codec,
		hasher:    hasher,
		validator: validator,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *UserService) WithClock(clock func() time.Time) *UserService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// GetProfile returns the account without its password hash.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	sanitized := *user
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// UpdateProfile applies the provided field changes and returns the updated
// account.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if input.FirstName != nil {
		trimmed := strings.TrimSpace(*input.FirstName)
		if trimmed == "" {
			return nil, fmt.Errorf("first name cannot be empty")
		}
		user.FirstName = trimmed
	}

	if input.LastName != nil {
		trimmed := strings.TrimSpace(*input.LastName)
		if trimmed == "" {
			return nil, fmt.Errorf("last name cannot be empty")
		}
		user.LastName = trimmed
	}

	if input.MiddleName != nil {
		trimmed := strings.TrimSpace(*input.MiddleName)
		if trimmed == "" {
			user.MiddleName = nil
		} else {
			user.MiddleName = &trimmed
		}
	}

	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, *user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	sanitized := *user
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// ChangePassword verifies the current password before storing the new one.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify current password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if err := s.validator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash, s.now()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return nil
}

// Deactivate soft-deletes the account identified by the presented token
// and revokes that token, atomically. The account keeps its data but can
// no longer authenticate; no hard delete exists.
func (s *UserService) Deactivate(ctx context.Context, token string) error {
	claims, err := s.codec.Parse(token)
	if err != nil {
		return ErrTokenInvalid
	}

	now := s.now()
	expiresAt := now.Add(s.codec.TTL())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	entry := domain.RevokedToken{
		Fingerprint: security.Fingerprint(token),
		UserID:      claims.UserID(),
		RevokedAt:   now,
		ExpiresAt:   expiresAt,
	}

	if err := s.closer.CloseAccount(ctx, claims.UserID(), entry); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if s.events != nil {
		_ = s.events.PublishUserDeactivated(ctx, domain.UserDeactivatedEvent{
			EventID:       uuid.NewString(),
			UserID:        claims.UserID(),
			DeactivatedAt: now,
		})
		_ = s.events.PublishTokenRevoked(ctx, domain.TokenRevokedEvent{
			EventID:     uuid.NewString(),
			Fingerprint: entry.Fingerprint,
			UserID:      entry.UserID,
			Reason:      "account_deactivated",
			RevokedAt:   entry.RevokedAt,
			ExpiresAt:   entry.ExpiresAt,
		})
	}

	return nil
}
