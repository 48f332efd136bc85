package domain

import "time"

// UserLoggedInEvent is emitted after a successful authentication.
type UserLoggedInEvent struct {
	EventID  string         `json:"event_id"`
	UserID   string         `json:"user_id"`
	Email    string         `json:"email"`
	IP       string         `json:"ip,omitempty"`
	LoggedAt time.Time      `json:"logged_at"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TokenRevokedEvent is emitted when a token enters the revocation ledger.
type TokenRevokedEvent struct {
	EventID     string    `json:"event_id"`
	Fingerprint string    `json:"fingerprint"`
	UserID      string    `json:"user_id"`
	Reason      string    `json:"reason"`
	RevokedAt   time.Time `json:"revoked_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UserDeactivatedEvent is emitted when an account is soft deleted.
type UserDeactivatedEvent struct {
	EventID       string    `json:"event_id"`
	UserID        string    `json:"user_id"`
	DeactivatedAt time.Time `json:"deactivated_at"`
}

// RoleAssignmentChangedEvent is emitted when a role is granted to or
// removed from a user.
type RoleAssignmentChangedEvent struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	RoleID     string    `json:"role_id"`
	RoleName   string    `json:"role_name"`
	Granted    bool      `json:"granted"`
	ChangedBy  string    `json:"changed_by,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
