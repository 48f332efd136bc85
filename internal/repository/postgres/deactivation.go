package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vyhuholl/test-backend/internal/core/domain"
	"github.com/vyhuholl/test-backend/internal/core/port"
)

// AccountCloser performs the soft delete and the token revocation in a
// single transaction so a crash cannot leave a deactivated account with a
// live token, or the reverse.
type AccountCloser struct {
	store       *Store
	users       *UserRepository
	revocations *RevocationRepository
}

// NewAccountCloser constructs a closer over the shared store.
func NewAccountCloser(store *Store, users *UserRepository, revocations *RevocationRepository) *AccountCloser {
	return &AccountCloser{store: store, users: users, revocations: revocations}
}

// CloseAccount marks the user inactive and records the token fingerprint
// in the revocation ledger atomically.
func (c *AccountCloser) CloseAccount(ctx context.Context, userID string, entry domain.RevokedToken) error {
	err := c.store.WithinTx(ctx, func(tx pgx.Tx) error {
		if err := c.users.WithTx(tx).SoftDelete(ctx, userID); err != nil {
			return fmt.Errorf("soft delete user: %w", err)
		}
		if err := c.revocations.WithTx(tx).Revoke(ctx, entry); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("close account: %w", err)
	}

	return nil
}

var _ port.AccountCloser = (*AccountCloser)(nil)
