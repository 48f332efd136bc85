package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vyhuholl/test-backend/internal/core/domain"
	"github.com/vyhuholl/test-backend/internal/core/port"
	"github.com/vyhuholl/test-backend/internal/repository"
)

// RuleRepository implements access-rule persistence.
type RuleRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRuleRepository constructs a PostgreSQL-backed rule repository.
func NewRuleRepository(exec pgExecutor) *RuleRepository {
	repo := &RuleRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Create inserts a new access rule. The unique (role, element) constraint
// maps duplicates to repository.ErrConflict.
func (r *RuleRepository) Create(ctx context.Context, rule domain.AccessRule) error {
	stmt, args, err := r.builder.Insert("access.access_rules").
		Columns(
			"id",
			"role_id",
			"element_id",
			"read_own",
			"read_any",
			"create_grant",
			"update_own",
			"update_any",
			"delete_own",
			"delete_any",
			"created_at",
		).
		Values(
			rule.ID,
			rule.RoleID,
			rule.ElementID,
			rule.ReadOwn,
			rule.ReadAny,
			rule.Create,
			rule.UpdateOwn,
			rule.UpdateAny,
			rule.DeleteOwn,
			rule.DeleteAny,
			rule.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert rule sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert rule: %w", mapConstraintErr(err))
	}

	return nil
}

// Update replaces the grant flags of an existing rule.
func (r *RuleRepository) Update(ctx context.Context, rule domain.AccessRule) error {
	stmt, args, err := r.builder.Update("access.access_rules").
		Set("read_own", rule.ReadOwn).
		Set("read_any", rule.ReadAny).
		Set("create_grant", rule.Create).
		Set("update_own", rule.UpdateOwn).
		Set("update_any", rule.UpdateAny).
		Set("delete_own", rule.DeleteOwn).
		Set("delete_any", rule.DeleteAny).
		Where(squirrel.Eq{"id": rule.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update rule sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a rule by ID.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("access.access_rules").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete rule sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetByID retrieves a rule by its ID.
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*domain.AccessRule, error) {
	stmt, args, err := r.selectRules().
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select rule sql: %w", err)
	}

	rule, err := scanRule(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return rule, nil
}

// List returns rules filtered by role and/or element.
func (r *RuleRepository) List(ctx context.Context, filter port.RuleFilter) ([]domain.AccessRule, error) {
	query := r.selectRules().OrderBy("created_at ASC")

	if filter.RoleID != "" {
		query = query.Where(squirrel.Eq{"role_id": filter.RoleID})
	}
	if filter.ElementID != "" {
		query = query.Where(squirrel.Eq{"element_id": filter.ElementID})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list rules sql: %w", err)
	}

	return r.queryRules(ctx, stmt, args)
}

// ListForRoles returns every rule attached to one of the supplied roles for
// the named element in one batched read.
func (r *RuleRepository) ListForRoles(ctx context.Context, roleIDs []string, elementName string) ([]domain.AccessRule, error) {
	if len(roleIDs) == 0 {
		return []domain.AccessRule{}, nil
	}

	stmt, args, err := r.builder.Select(
		"ar.id",
		"ar.role_id",
		"ar.element_id",
		"ar.read_own",
		"ar.read_any",
		"ar.create_grant",
		"ar.update_own",
		"ar.update_any",
		"ar.delete_own",
		"ar.delete_any",
		"ar.created_at",
	).
		From("access.access_rules ar").
		Join("access.business_elements be ON be.id = ar.element_id").
		Where(squirrel.Eq{"ar.role_id": roleIDs}).
		Where(squirrel.Eq{"be.name": elementName}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build rules for roles sql: %w", err)
	}

	return r.queryRules(ctx, stmt, args)
}

func (r *RuleRepository) queryRules(ctx context.Context, stmt string, args []any) ([]domain.AccessRule, error) {
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	rules := make([]domain.AccessRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepository) selectRules() squirrel.SelectBuilder {
	return r.builder.Select(
		"id",
		"role_id",
		"element_id",
		"read_own",
		"read_any",
		"create_grant",
		"update_own",
		"update_any",
		"delete_own",
		"delete_any",
		"created_at",
	).From("access.access_rules")
}

func scanRule(row pgx.Row) (*domain.AccessRule, error) {
	var rule domain.AccessRule

	if err := row.Scan(
		&rule.ID,
		&rule.RoleID,
		&rule.ElementID,
		&rule.ReadOwn,
		&rule.ReadAny,
		&rule.Create,
		&rule.UpdateOwn,
		&rule.UpdateAny,
		&rule.DeleteOwn,
		&rule.DeleteAny,
		&rule.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan rule: %w", err)
	}

	return &rule, nil
}

var _ port.RuleRepository = (*RuleRepository)(nil)
