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

type userFixture struct {
	users       *memUserRepo
	revocations *memRevocationStore
	publisher   *recordingPublisher
	codec       *security.TokenCodec
	hasher      *security.PasswordHasher
	service     *UserService
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	digest, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	codec, err := security.NewTokenCodec("user-test-secret", "access-test", time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	middle := "Lee"
	users := newMemUserRepo(domain.User{
		ID:           testUserID,
		Email:        testEmail,
		FirstName:    "Alex",
		LastName:     "Stone",
		MiddleName:   &middle,
		PasswordHash: digest,
		IsActive:     true,
	})

	fixture := &userFixture{
		users:       users,
		revocations: newMemRevocationStore(),
		publisher:   &recordingPublisher{},
		codec:       codec,
		hasher:      hasher,
	}

	closer := &memAccountCloser{users: users, revocations: fixture.revocations}
	fixture.service = NewUserService(users, closer, codec, hasher, nil, fixture.publisher)

	return fixture
}

func TestUserServiceGetProfileSanitized(t *testing.T) {
	fixture := newUserFixture(t)

	profile, err := fixture.service.GetProfile(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.PasswordHash != "" {
		t.Error("password hash leaked through profile")
	}
	if profile.Email != testEmail {
		t.Errorf("email = %q, want %q", profile.Email, testEmail)
	}

	if _, err := fixture.service.GetProfile(context.Background(), "no-such-user"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("got %v, want ErrUserNotFound", err)
	}
}

func TestUserServiceUpdateProfile(t *testing.T) {
	fixture := newUserFixture(t)
	ctx := context.Background()

	first := "Sasha"
	clear := ""
	updated, err := fixture.service.UpdateProfile(ctx, testUserID, UpdateProfileInput{
		FirstName:  &first,
		MiddleName: &clear,
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.FirstName != "Sasha" {
		t.Errorf("first name = %q, want %q", updated.FirstName, "Sasha")
	}
	if updated.LastName != "Stone" {
		t.Errorf("last name = %q, want unchanged %q", updated.LastName, "Stone")
	}
	if updated.MiddleName != nil {
		t.Errorf("middle name = %q, want cleared", *updated.MiddleName)
	}

	empty := "   "
	if _, err := fixture.service.UpdateProfile(ctx, testUserID, UpdateProfileInput{FirstName: &empty}); err == nil {
		t.Error("blank first name was accepted")
	}
}

func TestUserServiceChangePassword(t *testing.T) {
	fixture := newUserFixture(t)
	ctx := context.Background()
	const newPassword = "correct-staple-battery-9"

	if err := fixture.service.ChangePassword(ctx, testUserID, "not-the-password", newPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current password: got %v, want ErrInvalidCredentials", err)
	}

	if err := fixture.service.ChangePassword(ctx, testUserID, testPassword, "password"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak new password: got %v, want ErrWeakPassword", err)
	}

	if err := fixture.service.ChangePassword(ctx, testUserID, testPassword, newPassword); err != nil {
		t.Fatalf("change password: %v", err)
	}

	user, err := fixture.users.GetByID(ctx, testUserID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if ok, _ := fixture.hasher.Verify(newPassword, user.PasswordHash); !ok {
		t.Error("new password does not verify against the stored hash")
	}
	if ok, _ := fixture.hasher.Verify(testPassword, user.PasswordHash); ok {
		t.Error("old password still verifies")
	}
}

func TestUserServiceDeactivate(t *testing.T) {
	fixture := newUserFixture(t)
	ctx := context.Background()

	token, err := fixture.codec.Issue(testUserID, testEmail)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if err := fixture.service.Deactivate(ctx, token); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	user, err := fixture.users.GetByID(ctx, testUserID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.IsActive {
		t.Error("account still active after deactivation")
	}

	revoked, err := fixture.revocations.IsRevoked(ctx, security.Fingerprint(token))
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Error("presented token was not revoked alongside the deactivation")
	}

	if len(fixture.publisher.deactivations) != 1 {
		t.Errorf("deactivation events = %d, want 1", len(fixture.publisher.deactivations))
	}
	if len(fixture.publisher.revocations) != 1 {
		t.Fatalf("revocation events = %d, want 1", len(fixture.publisher.revocations))
	}
	if reason := fixture.publisher.revocations[0].Reason; reason != "account_deactivated" {
		t.Errorf("revocation reason = %q, want %q", reason, "account_deactivated")
	}
}

func TestUserServiceDeactivateBadToken(t *testing.T) {
	fixture := newUserFixture(t)

	if err := fixture.service.Deactivate(context.Background(), "garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}
