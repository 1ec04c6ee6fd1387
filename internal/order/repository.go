package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/product"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const orderColumns = `id, order_number, user_id, total_amount, status, payment_status, payment_method,
	shipping_address, billing_address, notes, shipped_at, delivered_at, cancelled_at, created_at, updated_at`

type Repository interface {
	Place(ctx context.Context, in PlaceInput, number string) (*Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	Cancel(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, target Status) (*Order, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, target PaymentStatus) (*Order, error)
	Statistics(ctx context.Context, userID *uuid.UUID) (*Statistics, error)
}

type postgresRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func orderDest(o *Order) []any {
	return []any{
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.TotalAmount,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentMethod,
		&o.ShippingAddress,
		&o.BillingAddress,
		&o.Notes,
		&o.ShippedAt,
		&o.DeliveredAt,
		&o.CancelledAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
}

// inTx runs fn in a transaction, rolling back on error or panic and committing otherwise.
func (r *postgresRepository) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}

	// При панике или ошибке откатываем транзакцию, иначе коммитим
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Str("operation", op).Msg("Panic recovered during transaction, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Str("operation", op).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Str("operation", op).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				log.Error().Err(commitErr).Str("operation", op).Msg("Failed to commit transaction")
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	return fn(tx)
}

func (r *postgresRepository) Place(ctx context.Context, in PlaceInput, number string) (*Order, error) {
	var placed *Order

	err := r.inTx(ctx, "place_order", func(tx pgx.Tx) error {
		// Rows are locked in product id order so concurrent checkouts cannot deadlock.
		rows, err := tx.Query(ctx, `
			SELECT p.id, p.name, p.price, p.stock_quantity, p.is_active, ci.quantity
			FROM cart_items ci
			JOIN products p ON p.id = ci.product_id
			WHERE ci.user_id = $1
			ORDER BY p.id
			FOR UPDATE`, in.UserID)
		if err != nil {
			return fmt.Errorf("repository: failed to lock cart for user %s: %w", in.UserID, err)
		}

		lines := make([]CartLine, 0)
		for rows.Next() {
			var l CartLine
			if err := rows.Scan(&l.ProductID, &l.Name, &l.Price, &l.Stock, &l.IsActive, &l.Quantity); err != nil {
				rows.Close()
				return fmt.Errorf("repository: failed to scan cart line: %w", err)
			}
			lines = append(lines, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("repository: failed iterating cart lines: %w", err)
		}

		o, err := BuildOrder(in, lines, number, r.now())
		if err != nil {
			return err
		}

		// Создаем заказ
		_, err = tx.Exec(ctx, `
			INSERT INTO orders (id, order_number, user_id, total_amount, status, payment_status, payment_method,
				shipping_address, billing_address, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			o.ID, o.OrderNumber, o.UserID, o.TotalAmount, o.Status.String(), o.PaymentStatus.String(), o.PaymentMethod,
			o.ShippingAddress, o.BillingAddress, o.Notes, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order: %w", err)
		}

		// Позиции заказа и списание остатков
		for _, it := range o.Items {
			_, err = tx.Exec(ctx, `
				INSERT INTO order_items (id, order_id, product_id, product_name, quantity, price, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				it.ID, it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.Price, it.CreatedAt)
			if err != nil {
				return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
			}

			cmdTag, err := tx.Exec(ctx, `
				UPDATE products
				SET stock_quantity = stock_quantity - $1, updated_at = NOW()
				WHERE id = $2 AND stock_quantity >= $1`,
				it.Quantity, it.ProductID)
			if err != nil {
				return fmt.Errorf("repository: failed to decrement stock: %w", err)
			}
			if cmdTag.RowsAffected() == 0 {
				return fmt.Errorf("%w for %s", product.ErrInsufficientStock, it.ProductName)
			}
		}

		// Очищаем корзину
		if _, err := tx.Exec(ctx, "DELETE FROM cart_items WHERE user_id = $1", in.UserID); err != nil {
			return fmt.Errorf("repository: failed to clear cart: %w", err)
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return placed, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := r.db.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id).Scan(orderDest(&o)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}

	items, err := r.itemsFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]
	if o.Items == nil {
		o.Items = make([]Item, 0)
	}

	return &o, nil
}

func (r *postgresRepository) itemsFor(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, price, created_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at, id`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[uuid.UUID][]Item, len(orderIDs))
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		it.Subtotal = it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating order items: %w", err)
	}

	return byOrder, nil
}

func listConditions(f ListFilter) sq.And {
	where := sq.And{}
	if f.UserID != nil {
		where = append(where, sq.Eq{"user_id": *f.UserID})
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, s.String())
		}
		where = append(where, sq.Eq{"status": statuses})
	}
	if f.PaymentStatus != "" {
		where = append(where, sq.Eq{"payment_status": f.PaymentStatus.String()})
	}
	return where
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	where := listConditions(filter)

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("orders").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to build orders count query: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count orders: %w", err)
	}

	listSQL, listArgs, err := psql.Select(orderColumns).From("orders").Where(where).
		OrderBy("created_at DESC", "id").
		Limit(filter.Page.Limit()).
		Offset(filter.Page.Offset()).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to build orders list query: %w", err)
	}

	rows, err := r.db.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	orderIDs := make([]uuid.UUID, 0)
	for rows.Next() {
		var o Order
		if err := rows.Scan(orderDest(&o)...); err != nil {
			return nil, 0, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		orders = append(orders, o)
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository: failed iterating orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return orders, total, nil
	}

	items, err := r.itemsFor(ctx, orderIDs)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = make([]Item, 0)
		}
	}

	return orders, total, nil
}

func lockOrder(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Order, error) {
	var o Order
	err := tx.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id).Scan(orderDest(&o)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to lock order %s: %w", id, err)
	}
	return &o, nil
}

func saveState(ctx context.Context, tx pgx.Tx, o *Order) error {
	_, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $1, payment_status = $2, shipped_at = $3, delivered_at = $4, cancelled_at = $5, updated_at = $6
		WHERE id = $7`,
		o.Status.String(), o.PaymentStatus.String(), o.ShippedAt, o.DeliveredAt, o.CancelledAt, o.UpdatedAt, o.ID)
	if err != nil {
		return fmt.Errorf("repository: failed to update order %s: %w", o.ID, err)
	}
	return nil
}

// Cancel restores every item's quantity to its product and marks the order cancelled.
// Items whose product has been deleted are skipped.
func (r *postgresRepository) Cancel(ctx context.Context, id uuid.UUID) (*Order, error) {
	err := r.inTx(ctx, "cancel_order", func(tx pgx.Tx) error {
		o, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := ApplyCancellation(o, r.now()); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE products p
			SET stock_quantity = p.stock_quantity + oi.quantity, updated_at = NOW()
			FROM order_items oi
			WHERE oi.order_id = $1 AND oi.product_id = p.id`, id)
		if err != nil {
			return fmt.Errorf("repository: failed to restore stock for order %s: %w", id, err)
		}

		return saveState(ctx, tx, o)
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, target Status) (*Order, error) {
	err := r.inTx(ctx, "update_order_status", func(tx pgx.Tx) error {
		o, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := ApplyStatus(o, target, r.now()); err != nil {
			return err
		}

		return saveState(ctx, tx, o)
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *postgresRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, target PaymentStatus) (*Order, error) {
	if !target.Valid() {
		return nil, ErrInvalidPaymentStatus
	}

	cmdTag, err := r.db.Exec(ctx,
		"UPDATE orders SET payment_status = $1, updated_at = $2 WHERE id = $3",
		target.String(), r.now(), id)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to update payment status for order %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// Statistics aggregates orders for one user, or for every user when userID is nil.
// Spending excludes cancelled and refunded orders.
func (r *postgresRepository) Statistics(ctx context.Context, userID *uuid.UUID) (*Statistics, error) {
	where := sq.And{}
	if userID != nil {
		where = append(where, sq.Eq{"user_id": *userID})
	}

	query, args, err := psql.Select("status", "payment_status", "COUNT(*)",
		"COALESCE(SUM(total_amount) FILTER (WHERE status NOT IN ('cancelled', 'refunded')), 0)",
		"COUNT(*) FILTER (WHERE status NOT IN ('cancelled', 'refunded'))").
		From("orders").
		Where(where).
		GroupBy("status", "payment_status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to build statistics query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order statistics: %w", err)
	}
	defer rows.Close()

	stats := NewStatistics()
	if userID == nil {
		stats.ByPaymentStatus = make(map[PaymentStatus]int, len(AllPaymentStatuses))
		for _, ps := range AllPaymentStatuses {
			stats.ByPaymentStatus[ps] = 0
		}
	}

	spentOrders := 0
	for rows.Next() {
		var (
			status        Status
			paymentStatus PaymentStatus
			count         int
			spent         decimal.Decimal
			spentCount    int
		)
		if err := rows.Scan(&status, &paymentStatus, &count, &spent, &spentCount); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order statistics: %w", err)
		}

		stats.TotalOrders += count
		stats.ByStatus[status] += count
		if stats.ByPaymentStatus != nil {
			stats.ByPaymentStatus[paymentStatus] += count
		}
		stats.TotalSpent = stats.TotalSpent.Add(spent)
		spentOrders += spentCount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating order statistics: %w", err)
	}

	stats.AverageOrderValue = AverageOrderValue(stats.TotalSpent, spentOrders)
	return stats, nil
}
