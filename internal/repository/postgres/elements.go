package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vyhuholl/test-backend/internal/core/domain"
	"github.com/vyhuholl/test-backend/internal/core/port"
	"github.com/vyhuholl/test-backend/internal/repository"
)

// ElementRepository implements business-element persistence.
type ElementRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewElementRepository constructs a PostgreSQL-backed element repository.
func NewElementRepository(exec pgExecutor) *ElementRepository {
	repo := &ElementRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Create inserts a new business element.
func (r *ElementRepository) Create(ctx context.Context, element domain.BusinessElement) error {
	stmt, args, err := r.builder.Insert("access.business_elements").
		Columns("id", "name", "description", "created_at").
		Values(element.ID, element.Name, element.Description, element.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert element sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert element: %w", mapConstraintErr(err))
	}

	return nil
}

// List retrieves all business elements sorted by name.
func (r *ElementRepository) List(ctx context.Context) ([]domain.BusinessElement, error) {
	stmt, args, err := r.selectElements().OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list elements sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query elements: %w", err)
	}
	defer rows.Close()

	elements := make([]domain.BusinessElement, 0)
	for rows.Next() {
		element, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		elements = append(elements, *element)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate elements: %w", err)
	}

	return elements, nil
}

// GetByID retrieves an element by its ID.
func (r *ElementRepository) GetByID(ctx context.Context, id string) (*domain.BusinessElement, error) {
	stmt, args, err := r.selectElements().
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select element by id sql: %w", err)
	}

	element, err := scanElement(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return element, nil
}

// GetByName retrieves an element by its unique name.
func (r *ElementRepository) GetByName(ctx context.Context, name string) (*domain.BusinessElement, error) {
	stmt, args, err := r.selectElements().
		Where(squirrel.Eq{"name": name}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select element by name sql: %w", err)
	}

	element, err := scanElement(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return element, nil
}

func (r *ElementRepository) selectElements() squirrel.SelectBuilder {
	return r.builder.Select("id", "name", "description", "created_at").
		From("access.business_elements")
}

func scanElement(row pgx.Row) (*domain.BusinessElement, error) {
	var (
		element     domain.BusinessElement
		description sql.NullString
	)

	if err := row.Scan(&element.ID, &element.Name, &description, &element.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan element: %w", err)
	}

	if description.Valid {
		element.Description = &description.String
	}

	return &element, nil
}

var _ port.ElementRepository = (*ElementRepository)(nil)
