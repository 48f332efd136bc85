package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vyhuholl/test-backend/internal/core/domain"
	"github.com/vyhuholl/test-backend/internal/core/port"
	"github.com/vyhuholl/test-backend/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher on top of Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: envelopeMetadata{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserLoggedIn publishes access.user.logged_in events.
func (p *EventPublisher) PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error {
	payload := struct {
		UserID   string         `json:"user_id"`
		Email    string         `json:"email"`
		IP       string         `json:"ip,omitempty"`
		LoggedAt time.Time      `json:"logged_at"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{
		UserID:   event.UserID,
		Email:    event.Email,
		IP:       event.IP,
		LoggedAt: event.LoggedAt.UTC(),
		Metadata: event.Metadata,
	}

	return p.publish(ctx, event.EventID, "access.user.logged_in", event.UserID, event.LoggedAt, payload)
}

// PublishTokenRevoked publishes access.token.revoked events.
func (p *EventPublisher) PublishTokenRevoked(ctx context.Context, event domain.TokenRevokedEvent) error {
	payload := struct {
		Fingerprint string    `json:"fingerprint"`
		UserID      string    `json:"user_id"`
		Reason      string    `json:"reason"`
		RevokedAt   time.Time `json:"revoked_at"`
		ExpiresAt   time.Time `json:"expires_at"`
	}{
		Fingerprint: event.Fingerprint,
		UserID:      event.UserID,
		Reason:      event.Reason,
		RevokedAt:   event.RevokedAt.UTC(),
		ExpiresAt:   event.ExpiresAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "access.token.revoked", event.UserID, event.RevokedAt, payload)
}

// PublishUserDeactivated publishes access.user.deactivated events.
func (p *EventPublisher) PublishUserDeactivated(ctx context.Context, event domain.UserDeactivatedEvent) error {
	payload := struct {
		UserID        string    `json:"user_id"`
		DeactivatedAt time.Time `json:"deactivated_at"`
	}{
		UserID:        event.UserID,
		DeactivatedAt: event.DeactivatedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "access.user.deactivated", event.UserID, event.DeactivatedAt, payload)
}

// PublishRoleAssignmentChanged publishes access.role_assignment.changed events.
func (p *EventPublisher) PublishRoleAssignmentChanged(ctx context.Context, event domain.RoleAssignmentChangedEvent) error {
	payload := struct {
		UserID     string    `json:"user_id"`
		RoleID     string    `json:"role_id"`
		RoleName   string    `json:"role_name"`
		Granted    bool      `json:"granted"`
		ChangedBy  string    `json:"changed_by,omitempty"`
		OccurredAt time.Time `json:"occurred_at"`
	}{
		UserID:     event.UserID,
		RoleID:     event.RoleID,
		RoleName:   event.RoleName,
		Granted:    event.Granted,
		ChangedBy:  event.ChangedBy,
		OccurredAt: event.OccurredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "access.role_assignment.changed", event.UserID, event.OccurredAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
