package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrItemNotFound = errors.New("product is not in the cart")

type Repository interface {
	Items(ctx context.Context, userID uuid.UUID) ([]Item, error)
	Quantity(ctx context.Context, userID, productID uuid.UUID) (int, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Items(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.name, p.sku, p.price, p.stock_quantity, p.is_active, ci.quantity, ci.created_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at, p.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart for user %s: %w", userID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		err := rows.Scan(
			&it.Product.ID,
			&it.Product.Name,
			&it.Product.SKU,
			&it.Product.Price,
			&it.Product.StockQuantity,
			&it.Product.IsActive,
			&it.Quantity,
			&it.AddedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating cart items: %w", err)
	}

	return items, nil
}

func (r *postgresRepository) Quantity(ctx context.Context, userID, productID uuid.UUID) (int, error) {
	var quantity int
	err := r.db.QueryRow(ctx,
		"SELECT quantity FROM cart_items WHERE user_id = $1 AND product_id = $2",
		userID, productID).Scan(&quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("repository: failed to read cart quantity: %w", err)
	}
	return quantity, nil
}

func (r *postgresRepository) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()`,
		userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("repository: failed to upsert cart item: %w", err)
	}
	return nil
}

func (r *postgresRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx,
		"DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2",
		userID, productID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart item: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *postgresRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("repository: failed to clear cart for user %s: %w", userID, err)
	}
	return nil
}
