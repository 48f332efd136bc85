package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vyhuholl/test-backend/internal/core/domain"
	"github.com/vyhuholl/test-backend/internal/core/port"
)

// RevocationRepository is the durable revocation ledger. Fingerprints are
// unique; inserting an existing one is a no-op, which makes concurrent
// logouts of the same token safe.
type RevocationRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRevocationRepository constructs a PostgreSQL-backed revocation ledger.
func NewRevocationRepository(exec pgExecutor) *RevocationRepository {
	repo := &RevocationRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *RevocationRepository) WithTx(tx pgx.Tx) *RevocationRepository {
	if tx == nil {
		return r
	}
	return &RevocationRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Revoke records the entry, keeping the original token expiry so the sweep
// knows when the entry stops mattering.
func (r *RevocationRepository) Revoke(ctx context.Context, entry domain.RevokedToken) error {
	stmt, args, err := r.builder.Insert("access.token_blacklist").
		Columns("token_hash", "user_id", "revoked_at", "expires_at").
		Values(entry.Fingerprint, entry.UserID, entry.RevokedAt, entry.ExpiresAt).
		Suffix("ON CONFLICT (token_hash) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert revocation sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert revocation: %w", err)
	}

	return nil
}

// IsRevoked reports whether the fingerprint is present in the ledger.
func (r *RevocationRepository) IsRevoked(ctx context.Context, fingerprint string) (bool, error) {
	stmt, args, err := r.builder.Select("1").
		From("access.token_blacklist").
		Where(squirrel.Eq{"token_hash": fingerprint}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build select revocation sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("scan revocation: %w", err)
	}

	return true, nil
}

// DeleteExpired removes entries whose original expiry has passed and
// returns the number removed. Unexpired entries are never touched.
func (r *RevocationRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	stmt, args, err := r.builder.Delete("access.token_blacklist").
		Where(squirrel.LtOrEq{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired revocations sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired revocations: %w", err)
	}

	return int(res.RowsAffected()), nil
}

var _ port.RevocationStore = (*RevocationRepository)(nil)
