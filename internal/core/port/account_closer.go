package port

import (
	"context"

	"github.com/vyhuholl/test-backend/internal/core/domain"
)

// AccountCloser deactivates an account and revokes the presented token in
// one transaction. Either both take effect or neither does.
type AccountCloser interface {
	CloseAccount(ctx context.Context, userID string, entry domain.RevokedToken) error
}
