package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/vyhuholl/test-backend/internal/core/domain"
	"github.com/vyhuholl/test-backend/internal/core/port"
	"github.com/vyhuholl/test-backend/internal/infra/security"
	"github.com/vyhuholl/test-backend/internal/repository"
)

var (
	// ErrEmailTaken indicates the email already belongs to an account,
	// active or deactivated.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidEmail indicates the email does not parse as an address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrWeakPassword indicates the password failed validation.
	ErrWeakPassword = errors.New("password does not meet requirements")
)

// RegisterInput captures the payload for account creation.
type RegisterInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	MiddleName *string
}

// RegistrationService provisions new accounts.
type RegistrationService struct {
	users     port.UserRepository
	hasher    *security.PasswordHasher
	validator *security.PasswordValidator
	now       func() time.Time
}

// NewRegistrationService constructs a RegistrationService. A nil validator
// selects the default rule set.
func NewRegistrationService(users port.UserRepository, hasher *security.PasswordHasher, validator *security.PasswordValidator) *RegistrationService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	return &RegistrationService{
		users:     users,
		hasher:    hasher,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *RegistrationService) WithClock(clock func() time.Time) *RegistrationService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Register validates the input, hashes the password, and persists the
// account. Uniqueness is enforced by the storage constraint; the race
// between two concurrent registrations of the same email resolves to one
// winner and one ErrEmailTaken.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}

	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if firstName == "" {
		return nil, fmt.Errorf("first name is required")
	}
	if lastName == "" {
		return nil, fmt.Errorf("last name is required")
	}

	if err := s.validator.Validate(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if input.MiddleName != nil {
		trimmed := strings.TrimSpace(*input.MiddleName)
		if trimmed != "" {
			user.MiddleName = &trimmed
		}
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	user.PasswordHash = ""
	return &user, nil
}
