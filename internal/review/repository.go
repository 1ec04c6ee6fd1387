package review

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/product"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Review, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	Upsert(ctx context.Context, userID, productID uuid.UUID, in Input) (*Review, bool, error)
	UpdateContent(ctx context.Context, id uuid.UUID, in Input) (*Review, error)
	Moderate(ctx context.Context, id uuid.UUID, status Status, notes string, moderatorID uuid.UUID) (*Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func selectReviews() sq.SelectBuilder {
	return psql.Select(
		"r.id", "r.user_id", "u.name", "r.product_id", "p.name", "r.rating", "r.comment",
		"r.status", "r.admin_notes", "r.moderated_by", "r.moderated_at", "r.created_at", "r.updated_at",
	).
		From("reviews r").
		Join("users u ON u.id = r.user_id").
		Join("products p ON p.id = r.product_id")
}

func scanReview(row pgx.Row) (*Review, error) {
	var r Review
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.UserName,
		&r.ProductID,
		&r.ProductName,
		&r.Rating,
		&r.Comment,
		&r.Status,
		&r.AdminNotes,
		&r.ModeratedBy,
		&r.ModeratedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func listConditions(f ListFilter) sq.And {
	where := sq.And{}
	if f.ProductID != nil {
		where = append(where, sq.Eq{"r.product_id": *f.ProductID})
	}
	if f.UserID != nil {
		where = append(where, sq.Eq{"r.user_id": *f.UserID})
	}
	if f.Status != "" {
		where = append(where, sq.Eq{"r.status": f.Status.String()})
	}
	return where
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Review, int, error) {
	where := listConditions(filter)

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("reviews r").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to build reviews count query: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count reviews: %w", err)
	}

	query, args, err := selectReviews().Where(where).
		OrderBy("r.created_at DESC", "r.id").
		Limit(filter.Page.Limit()).
		Offset(filter.Page.Offset()).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to build reviews query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository: failed to scan review: %w", err)
		}
		reviews = append(reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository: failed iterating reviews: %w", err)
	}

	return reviews, total, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	query, args, err := selectReviews().Where(sq.Eq{"r.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to build review query: %w", err)
	}

	rv, err := scanReview(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select review by id %s: %w", id, err)
	}
	return rv, nil
}

// Upsert inserts the user's review of a product, or rewrites their existing one back to
// pending. An approved review is left untouched and ErrAlreadyApproved is returned.
// The boolean result is true when a new row was inserted.
func (r *postgresRepository) Upsert(ctx context.Context, userID, productID uuid.UUID, in Input) (*Review, bool, error) {
	newID, err := uuid.NewV4()
	if err != nil {
		return nil, false, fmt.Errorf("repository: failed to generate review id: %w", err)
	}

	var (
		id       uuid.UUID
		inserted bool
	)
	err = r.db.QueryRow(ctx, `
		INSERT INTO reviews (id, user_id, product_id, rating, comment, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET rating = EXCLUDED.rating,
			comment = EXCLUDED.comment,
			status = 'pending',
			admin_notes = '',
			moderated_by = NULL,
			moderated_at = NULL,
			updated_at = NOW()
		WHERE reviews.status <> 'approved'
		RETURNING id, (xmax = 0) AS inserted`,
		newID, userID, productID, in.Rating, in.Comment,
	).Scan(&id, &inserted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrAlreadyApproved
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, false, product.ErrNotFound
		}
		return nil, false, fmt.Errorf("repository: failed to upsert review: %w", err)
	}

	rv, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return rv, inserted, nil
}

func (r *postgresRepository) UpdateContent(ctx context.Context, id uuid.UUID, in Input) (*Review, error) {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE reviews
		SET rating = $1, comment = $2, status = 'pending', admin_notes = '',
			moderated_by = NULL, moderated_at = NULL, updated_at = NOW()
		WHERE id = $3`,
		in.Rating, in.Comment, id)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to update review %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepository) Moderate(ctx context.Context, id uuid.UUID, status Status, notes string, moderatorID uuid.UUID) (*Review, error) {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE reviews
		SET status = $1, admin_notes = $2, moderated_by = $3, moderated_at = NOW(), updated_at = NOW()
		WHERE id = $4`,
		status.String(), notes, moderatorID, id)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to moderate review %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, "DELETE FROM reviews WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete review %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
