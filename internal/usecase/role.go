package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/vyhuholl/test-backend/internal/core/domain"
	"github.com/vyhuholl/test-backend/internal/core/port"
	"github.com/vyhuholl/test-backend/internal/repository"
)

var (
	// ErrRoleExists indicates a role with the provided name already exists.
	ErrRoleExists = errors.New("role already exists")
	// ErrRoleNotFound indicates the referenced role does not exist.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleInUse indicates the role still has assignments and cannot be
	// deleted.
	ErrRoleInUse = errors.New("role has active assignments")
	// ErrElementExists indicates a business element with the provided name
	// already exists.
	ErrElementExists = errors.New("business element already exists")
	// ErrElementNotFound indicates the referenced business element does not
	// exist.
	ErrElementNotFound = errors.New("business element not found")
	// ErrRuleExists indicates an access rule for the (role, element) pair
	// already exists.
	ErrRuleExists = errors.New("access rule already exists")
	// ErrRuleNotFound indicates the referenced access rule does not exist.
	ErrRuleNotFound = errors.New("access rule not found")
)

// RuleFlags carries the seven grant flags of an access rule.
type RuleFlags struct {
	ReadOwn   bool
	ReadAny   bool
	Create    bool
	UpdateOwn bool
	UpdateAny bool
	DeleteOwn bool
	DeleteAny bool
}

// RoleAdminService manages the RBAC configuration: roles, business
// elements, access rules, and role assignments. All mutations take effect
// on the next permission check of any affected user.
type RoleAdminService struct {
	roles    port.RoleRepository
	elements port.ElementRepository
	rules    port.RuleRepository
	users    port.UserRepository
	events   port.EventPublisher
	now      func() time.Time
}

// NewRoleAdminService constructs a RoleAdminService.
func NewRoleAdminService(
	roles port.RoleRepository,
	elements port.ElementRepository,
	rules port.RuleRepository,
	users port.UserRepository,
	events port.EventPublisher,
) *RoleAdminService {
	return &RoleAdminService{
		roles:    roles,
		elements: elements,
		rules:    rules,
		users:    users,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *RoleAdminService) WithClock(clock func() time.Time) *RoleAdminService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// CreateRole provisions a new role with a unique name.
func (s *RoleAdminService) CreateRole(ctx context.Context, name string, description *string) (*domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("role name is required")
	}

	now := s.now()
	role := domain.Role{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if description != nil {
		trimmed := strings.TrimSpace(*description)
		if trimmed != "" {
			role.Description = &trimmed
		}
	}

	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrRoleExists
		}
		return nil, fmt.Errorf("create role: %w", err)
	}

	return &role, nil
}

// ListRoles returns every role.
func (s *RoleAdminService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// GetRoleByName returns the role with the given unique name.
func (s *RoleAdminService) GetRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRoleNotFound
	}

	role, err := s.roles.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("lookup role by name: %w", err)
	}

	return role, nil
}

// UpdateRole changes the role description. Names are immutable.
func (s *RoleAdminService) UpdateRole(ctx context.Context, roleID string, description *string) (*domain.Role, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("lookup role: %w", err)
	}

	if description != nil {
		trimmed := strings.TrimSpace(*description)
		if trimmed == "" {
			role.Description = nil
		} else {
			role.Description = &trimmed
		}
	}

	if err := s.roles.UpdateDescription(ctx, role.ID, role.Description); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	role.UpdatedAt = s.now()
	return role, nil
}

// DeleteRole removes a role that has no remaining assignments. Attached
// access rules go with it.
func (s *RoleAdminService) DeleteRole(ctx context.Context, roleID string) error {
	count, err := s.roles.CountAssignments(ctx, roleID)
	if err != nil {
		return fmt.Errorf("count role assignments: %w", err)
	}
	if count > 0 {
		return ErrRoleInUse
	}

	if err := s.roles.Delete(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("delete role: %w", err)
	}

	return nil
}

// CreateElement registers a new business element.
func (s *RoleAdminService) CreateElement(ctx context.Context, name string, description *string) (*domain.BusinessElement, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("element name is required")
	}

	element := domain.BusinessElement{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: s.now(),
	}
	if description != nil {
		trimmed := strings.TrimSpace(*description)
		if trimmed != "" {
			element.Description = &trimmed
		}
	}

	if err := s.elements.Create(ctx, element); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrElementExists
		}
		return nil, fmt.Errorf("create element: %w", err)
	}

	return &element, nil
}

// ListElements returns every business element.
func (s *RoleAdminService) ListElements(ctx context.Context) ([]domain.BusinessElement, error) {
	elements, err := s.elements.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list elements: %w", err)
	}
	return elements, nil
}

// CreateRule attaches an access rule to a (role, element) pair. At most
// one rule may exist per pair.
func (s *RoleAdminService) CreateRule(ctx context.Context, roleID, elementID string, flags RuleFlags) (*domain.AccessRule, error) {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("lookup role: %w", err)
	}
	if _, err := s.elements.GetByID(ctx, elementID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrElementNotFound
		}
		return nil, fmt.Errorf("lookup element: %w", err)
	}

	rule := domain.AccessRule{
		ID:        uuid.NewString(),
		RoleID:    roleID,
		ElementID: elementID,
		ReadOwn:   flags.ReadOwn,
		ReadAny:   flags.ReadAny,
		Create:    flags.Create,
		UpdateOwn: flags.UpdateOwn,
		UpdateAny: flags.UpdateAny,
		DeleteOwn: flags.DeleteOwn,
		DeleteAny: flags.DeleteAny,
		CreatedAt: s.now(),
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrRuleExists
		}
		return nil, fmt.Errorf("create rule: %w", err)
	}

	return &rule, nil
}

// UpdateRule replaces the grant flags of an existing rule.
func (s *RoleAdminService) UpdateRule(ctx context.Context, ruleID string, flags RuleFlags) (*domain.AccessRule, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("lookup rule: %w", err)
	}

	rule.ReadOwn = flags.ReadOwn
	rule.ReadAny = flags.ReadAny
	rule.Create = flags.Create
	rule.UpdateOwn = flags.UpdateOwn
	rule.UpdateAny = flags.UpdateAny
	rule.DeleteOwn = flags.DeleteOwn
	rule.DeleteAny = flags.DeleteAny

	if err := s.rules.Update(ctx, *rule); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("update rule: %w", err)
	}

	return rule, nil
}

// DeleteRule removes an access rule. The affected role immediately loses
// the rule's grants for every holder.
func (s *RoleAdminService) DeleteRule(ctx context.Context, ruleID string) error {
	if err := s.rules.Delete(ctx, ruleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRuleNotFound
		}
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

// ListRules returns access rules, optionally filtered by role or element.
func (s *RoleAdminService) ListRules(ctx context.Context, filter port.RuleFilter) ([]domain.AccessRule, error) {
	rules, err := s.rules.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

// AssignRole grants a role to a user with an audit trail of who granted
// it. Assigning a role the user already holds succeeds without effect.
func (s *RoleAdminService) AssignRole(ctx context.Context, userID, roleID, assignedBy string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("lookup role: %w", err)
	}

	assignment := domain.RoleAssignment{
		UserID:     userID,
		RoleID:     roleID,
		AssignedAt: s.now(),
	}
	if by := strings.TrimSpace(assignedBy); by != "" {
		assignment.AssignedBy = &by
	}

	if err := s.roles.AssignToUser(ctx, assignment); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}

	s.publishAssignmentChange(ctx, userID, role, true, assignedBy)
	return nil
}

// RemoveRole revokes a role from a user. Removing the user's last role is
// allowed; they simply stop passing permission checks.
func (s *RoleAdminService) RemoveRole(ctx context.Context, userID, roleID, removedBy string) error {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("lookup role: %w", err)
	}

	if err := s.roles.RemoveFromUser(ctx, userID, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("remove role: %w", err)
	}

	s.publishAssignmentChange(ctx, userID, role, false, removedBy)
	return nil
}

// ListUsers returns accounts for the admin directory together with the
// total match count for pagination. Password hashes never leave the
// service layer.
func (s *RoleAdminService) ListUsers(ctx context.Context, filter port.UserFilter) ([]domain.User, int, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	total, err := s.users.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	for i := range users {
		users[i].PasswordHash = ""
	}

	return users, total, nil
}

// ListUserRoles returns the roles currently assigned to a user.
func (s *RoleAdminService) ListUserRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	roles, err := s.roles.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	return roles, nil
}

func (s *RoleAdminService) publishAssignmentChange(ctx context.Context, userID string, role *domain.Role, granted bool, changedBy string) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishRoleAssignmentChanged(ctx, domain.RoleAssignmentChangedEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		RoleID:     role.ID,
		RoleName:   role.Name,
		Granted:    granted,
		ChangedBy:  changedBy,
		OccurredAt: s.now(),
	})
}
