package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches the work factor of the rest of the platform:
// a single hash lands in the 100-300ms range on current hardware, which is
// the point of an adaptive hash.
const DefaultBcryptCost = 12

// ErrMalformedDigest indicates the stored hash is not a valid bcrypt
// digest. This is a corrupt-data condition for that record, not a
// wrong-password outcome.
var ErrMalformedDigest = errors.New("security: malformed password digest")

// PasswordHasher wraps bcrypt with a configurable cost.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher constructs a hasher, clamping the cost into bcrypt's
// supported range. A non-positive cost selects the default.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost returns the active work factor.
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash produces a salted bcrypt digest of the password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(digest), nil
}

// Verify compares the password against a stored digest. A mismatch returns
// (false, nil); only a digest that cannot be parsed yields an error.
func (h *PasswordHasher) Verify(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrMalformedDigest, err)
	}
}
