package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vyhuholl/test-backend/internal/core/domain"
	"github.com/vyhuholl/test-backend/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserLoggedIn logs access.user.logged_in events.
func (p *StubPublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	payload := map[string]any{
		"user_id":   event.UserID,
		"email":     event.Email,
		"ip":        event.IP,
		"logged_at": event.LoggedAt,
		"metadata":  event.Metadata,
	}
	p.logEvent("access.user.logged_in", event.UserID, event.LoggedAt, payload)
	return nil
}

// PublishTokenRevoked logs access.token.revoked events.
func (p *StubPublisher) PublishTokenRevoked(_ context.Context, event domain.TokenRevokedEvent) error {
	payload := map[string]any{
		"fingerprint": event.Fingerprint,
		"user_id":     event.UserID,
		"reason":      event.Reason,
		"revoked_at":  event.RevokedAt,
		"expires_at":  event.ExpiresAt,
	}
	p.logEvent("access.token.revoked", event.UserID, event.RevokedAt, payload)
	return nil
}

// PublishUserDeactivated logs access.user.deactivated events.
func (p *StubPublisher) PublishUserDeactivated(_ context.Context, event domain.UserDeactivatedEvent) error {
	payload := map[string]any{
		"user_id":        event.UserID,
		"deactivated_at": event.DeactivatedAt,
	}
	p.logEvent("access.user.deactivated", event.UserID, event.DeactivatedAt, payload)
	return nil
}

// PublishRoleAssignmentChanged logs access.role_assignment.changed events.
func (p *StubPublisher) PublishRoleAssignmentChanged(_ context.Context, event domain.RoleAssignmentChangedEvent) error {
	payload := map[string]any{
		"user_id":     event.UserID,
		"role_id":     event.RoleID,
		"role_name":   event.RoleName,
		"granted":     event.Granted,
		"changed_by":  event.ChangedBy,
		"occurred_at": event.OccurredAt,
	}
	p.logEvent("access.role_assignment.changed", event.UserID, event.OccurredAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
