package port

import (
	"context"
	"time"

	"github.com/vyhuholl/test-backend/internal/core/domain"
)

// RevocationStore is the single source of truth for tokens invalidated
// before their natural expiry.
type RevocationStore interface {
	// Revoke records the entry. Revoking an already-revoked fingerprint is
	// a no-op.
	Revoke(ctx context.Context, entry domain.RevokedToken) error
	// IsRevoked reports whether the fingerprint is present in the ledger.
	IsRevoked(ctx context.Context, fingerprint string) (bool, error)
	// DeleteExpired removes entries whose original expiry has passed and
	// returns how many were removed. Entries still in the future are never
	// touched.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
