package port

import (
	"context"

	"github.com/vyhuholl/test-backend/internal/core/domain"
)

// RuleFilter narrows access-rule listings.
type RuleFilter struct {
	RoleID    string
	ElementID string
}

// ElementRepository defines read operations for business elements.
type ElementRepository interface {
	Create(ctx context.Context, element domain.BusinessElement) error
	List(ctx context.Context) ([]domain.BusinessElement, error)
	GetByID(ctx context.Context, id string) (*domain.BusinessElement, error)
	GetByName(ctx context.Context, name string) (*domain.BusinessElement, error)
}

// RuleRepository defines persistence operations for access rules.
type RuleRepository interface {
	Create(ctx context.Context, rule domain.AccessRule) error
	Update(ctx context.Context, rule domain.AccessRule) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.AccessRule, error)
	List(ctx context.Context, filter RuleFilter) ([]domain.AccessRule, error)

	// ListForRoles returns every rule attached to one of the supplied roles
	// for the named element in a single batched read.
	ListForRoles(ctx context.Context, roleIDs []string, elementName string) ([]domain.AccessRule, error)
}
