package category

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound    = errors.New("category not found")
	ErrNameExists  = errors.New("category with this name already exists")
	ErrHasProducts = errors.New("category still has products")
)

type Repository interface {
	List(ctx context.Context, includeInactive bool) ([]Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Category, error)
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const selectCategory = `
	SELECT c.id, c.name, c.slug, c.description, c.is_active, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM products p WHERE p.category_id = c.id AND p.is_active) AS products_count
	FROM categories c
`

func scanCategory(row pgx.Row) (*Category, error) {
	var c Category
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.Description,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ProductsCount,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return ErrNameExists
		case pgerrcode.ForeignKeyViolation, pgerrcode.RestrictViolation:
			return ErrHasProducts
		}
	}
	return err
}

func (r *postgresRepository) List(ctx context.Context, includeInactive bool) ([]Category, error) {
	query := selectCategory
	if !includeInactive {
		query += " WHERE c.is_active"
	}
	query += " ORDER BY c.name"

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating categories: %w", err)
	}

	return categories, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, selectCategory+" WHERE c.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select category %s: %w", id, err)
	}
	return c, nil
}

func (r *postgresRepository) Create(ctx context.Context, c *Category) error {
	if c.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate category id: %w", err)
		}
		c.ID = id
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := r.db.Exec(ctx, `
		INSERT INTO categories (id, name, slug, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Slug, c.Description, c.IsActive, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("repository: failed to insert category: %w", err)
	}

	return nil
}

func (r *postgresRepository) Update(ctx context.Context, c *Category) error {
	c.UpdatedAt = time.Now().UTC()

	cmdTag, err := r.db.Exec(ctx, `
		UPDATE categories
		SET name = $1, slug = $2, description = $3, is_active = $4, updated_at = $5
		WHERE id = $6`,
		c.Name, c.Slug, c.Description, c.IsActive, c.UpdatedAt, c.ID)
	if err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("repository: failed to update category %s: %w", c.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var hasProducts bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE category_id = $1)", id).Scan(&hasProducts)
	if err != nil {
		return fmt.Errorf("repository: failed to check category products: %w", err)
	}
	if hasProducts {
		return ErrHasProducts
	}

	cmdTag, err := r.db.Exec(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("repository: failed to delete category %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
