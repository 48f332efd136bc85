package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/vyhuholl/test-backend/internal/core/domain"
	"github.com/vyhuholl/test-backend/internal/core/port"
)

// ErrPermissionDenied indicates no rule attached to the caller's roles
// grants the requested action.
var ErrPermissionDenied = errors.New("permission denied")

// PermissionEngine answers access questions by combining the access rules
// of every role currently assigned to the user. Decisions read live
// storage on every call, so a role granted or removed mid-session applies
// to the user's next request without reauthentication.
type PermissionEngine struct {
	roles port.RoleRepository
	rules port.RuleRepository
}

// NewPermissionEngine constructs a PermissionEngine.
func NewPermissionEngine(roles port.RoleRepository, rules port.RuleRepository) *PermissionEngine {
	return &PermissionEngine{roles: roles, rules: rules}
}

// Check reports whether the user may perform the action on the element at
// the given ownership scope. Grants are additive across roles; a user with
// no roles, or roles with no matching rules, is denied. Storage errors
// propagate so callers deny rather than guess.
func (e *PermissionEngine) Check(ctx context.Context, userID, elementName string, action domain.Action, ownership domain.Ownership) (bool, error) {
	roles, err := e.roles.ListByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list user roles: %w", err)
	}
	if len(roles) == 0 {
		return false, nil
	}

	roleIDs := make([]string, 0, len(roles))
	for _, role := range roles {
		roleIDs = append(roleIDs, role.ID)
	}

	rules, err := e.rules.ListForRoles(ctx, roleIDs, elementName)
	if err != nil {
		return false, fmt.Errorf("list rules for roles: %w", err)
	}

	for _, rule := range rules {
		if rule.Grants(action, ownership) {
			return true, nil
		}
	}

	return false, nil
}

// CheckObject reports whether the user may perform the action on one
// concrete object. An object the caller owns is covered by either the own
// or the any grant; a foreign object requires the any grant.
func (e *PermissionEngine) CheckObject(ctx context.Context, userID, elementName string, action domain.Action, owned bool) (bool, error) {
	if owned {
		allowed, err := e.Check(ctx, userID, elementName, action, domain.OwnershipOwn)
		if err != nil || allowed {
			return allowed, err
		}
	}
	return e.Check(ctx, userID, elementName, action, domain.OwnershipAny)
}

// Require is Check collapsed to an error: nil when granted,
// ErrPermissionDenied when not.
func (e *PermissionEngine) Require(ctx context.Context, userID, elementName string, action domain.Action, ownership domain.Ownership) error {
	allowed, err := e.Check(ctx, userID, elementName, action, ownership)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}

// ReadScope resolves how broadly the user may read the element: any
// object, only their own, or nothing. Used by list endpoints to pick
// between unfiltered and owner-filtered queries.
type ReadScope int

const (
	ReadScopeNone ReadScope = iota
	ReadScopeOwn
	ReadScopeAny
)

// ResolveReadScope returns the widest read scope any of the user's roles
// grants for the element.
func (e *PermissionEngine) ResolveReadScope(ctx context.Context, userID, elementName string) (ReadScope, error) {
	any, err := e.Check(ctx, userID, elementName, domain.ActionRead, domain.OwnershipAny)
	if err != nil {
		return ReadScopeNone, err
	}
	if any {
		return ReadScopeAny, nil
	}

	own, err := e.Check(ctx, userID, elementName, domain.ActionRead, domain.OwnershipOwn)
	if err != nil {
		return ReadScopeNone, err
	}
	if own {
		return ReadScopeOwn, nil
	}

	return ReadScopeNone, nil
}
