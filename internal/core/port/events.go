package port

import (
	"context"

	"github.com/vyhuholl/test-backend/internal/core/domain"
)

// EventPublisher emits security events for downstream consumers. Publishing
// is best effort; authentication decisions never depend on it.
type EventPublisher interface {
	PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error
	PublishTokenRevoked(ctx context.Context, event domain.TokenRevokedEvent) error
	PublishUserDeactivated(ctx context.Context, event domain.UserDeactivatedEvent) error
	PublishRoleAssignmentChanged(ctx context.Context, event domain.RoleAssignmentChangedEvent) error
}
