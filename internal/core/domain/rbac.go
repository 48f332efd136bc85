package domain

import "time"

// Role defines a named bundle of access grants. The name is immutable once
// created; only the description may change.
type Role struct {
	ID          string
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BusinessElement is a named category of protected objects governed by
// access rules (not a row-level object).
type BusinessElement struct {
	ID          string
	Name        string
	Description *string
	CreatedAt   time.Time
}

// Action enumerates the operations subject to access control.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Ownership distinguishes whether an action targets the caller's own
// objects or anyone's.
type Ownership string

const (
	OwnershipOwn Ownership = "own"
	OwnershipAny Ownership = "any"
)

// AccessRule links a role to a business element with seven independent
// grant flags. At most one rule exists per (role, element) pair.
type AccessRule struct {
	ID        string
	RoleID    string
	ElementID string
	ReadOwn   bool
	ReadAny   bool
	Create    bool
	UpdateOwn bool
	UpdateAny bool
	DeleteOwn bool
	DeleteAny bool
	CreatedAt time.Time
}

// Grants reports whether this rule grants the requested action for the
// requested ownership scope. An "any" grant never implies the "own" flag or
// vice versa; callers that accept either scope must probe both.
func (r AccessRule) Grants(action Action, ownership Ownership) bool {
	switch action {
	case ActionRead:
		if ownership == OwnershipAny {
			return r.ReadAny
		}
		return r.ReadOwn
	case ActionCreate:
		return r.Create
	case ActionUpdate:
		if ownership == OwnershipAny {
			return r.UpdateAny
		}
		return r.UpdateOwn
	case ActionDelete:
		if ownership == OwnershipAny {
			return r.DeleteAny
		}
		return r.DeleteOwn
	}
	return false
}

// RoleAssignment links a user to a role with an audit trail of who granted
// it and when. Unique per (user, role).
type RoleAssignment struct {
	UserID     string
	RoleID     string
	AssignedAt time.Time
	AssignedBy *string
}
