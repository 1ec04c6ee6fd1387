package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrItemNotFound = errors.New("product is not in the wishlist")

type Repository interface {
	Items(ctx context.Context, userID uuid.UUID) ([]Item, error)
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Items(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.name, p.sku, p.price, p.stock_quantity, p.is_active, w.created_at
		FROM wishlist_items w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query wishlist for user %s: %w", userID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.SKU, &it.Price, &it.StockQuantity, &it.IsActive, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan wishlist item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating wishlist: %w", err)
	}

	return items, nil
}

func (r *postgresRepository) Add(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO wishlist_items (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("repository: failed to add wishlist item: %w", err)
	}
	return nil
}

func (r *postgresRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx,
		"DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2",
		userID, productID)
	if err != nil {
		return fmt.Errorf("repository: failed to remove wishlist item: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *postgresRepository) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM wishlist_items WHERE user_id = $1 AND product_id = $2)",
		userID, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check wishlist item: %w", err)
	}
	return exists, nil
}
