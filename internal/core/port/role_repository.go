package port

import (
	"context"

	"github.com/vyhuholl/test-backend/internal/core/domain"
)

// RoleRepository defines persistence operations for roles and their
// assignment relation.
type RoleRepository interface {
	Create(ctx context.Context, role domain.Role) error
	List(ctx context.Context) ([]domain.Role, error)
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	UpdateDescription(ctx context.Context, id string, description *string) error
	Delete(ctx context.Context, id string) error

	AssignToUser(ctx context.Context, assignment domain.RoleAssignment) error
	RemoveFromUser(ctx context.Context, userID, roleID string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Role, error)
	ListAssignments(ctx context.Context, userID string) ([]domain.RoleAssignment, error)
	CountAssignments(ctx context.Context, roleID string) (int, error)
}
