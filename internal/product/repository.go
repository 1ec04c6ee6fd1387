package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/db"
)

var (
	ErrNotFound         = errors.New("product not found")
	ErrSKUExists        = errors.New("product with this sku already exists")
	ErrCategoryNotFound = errors.New("category not found")
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	averageRatingExpr = `COALESCE((SELECT AVG(r.rating) FROM reviews r WHERE r.product_id = p.id AND r.status = 'approved'), 0)::float8`
	reviewCountExpr   = `(SELECT COUNT(*) FROM reviews r WHERE r.product_id = p.id AND r.status = 'approved')`
	soldCountExpr     = `COALESCE((SELECT SUM(oi.quantity) FROM order_items oi JOIN orders o ON o.id = oi.order_id
		WHERE oi.product_id = p.id AND o.status = 'delivered'), 0)`
)

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Related(ctx context.Context, p *Product, limit int) ([]Product, error)
	RatingDistribution(ctx context.Context, id uuid.UUID) (RatingDistribution, error)
	SalesSummary(ctx context.Context, id uuid.UUID) (*SalesSummary, error)
	MostSold(ctx context.Context, limit int) ([]Product, error)
	MostReviewed(ctx context.Context, limit int) ([]Product, error)
	TrendingCandidates(ctx context.Context, since time.Time) ([]TrendingCandidate, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	UpdateStock(ctx context.Context, id uuid.UUID, quantity int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func selectProducts() sq.SelectBuilder {
	return psql.Select(
		"p.id", "p.category_id", "c.name", "p.name", "p.description", "p.sku", "p.price",
		"p.stock_quantity", "p.is_active", "p.created_at", "p.updated_at",
		averageRatingExpr+" AS average_rating",
		reviewCountExpr+" AS review_count",
		soldCountExpr+" AS sold_count",
	).
		From("products p").
		Join("categories c ON c.id = p.category_id")
}

func productDest(p *Product) []any {
	return []any{
		&p.ID,
		&p.CategoryID,
		&p.CategoryName,
		&p.Name,
		&p.Description,
		&p.SKU,
		&p.Price,
		&p.StockQuantity,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.AverageRating,
		&p.ReviewCount,
		&p.SoldCount,
	}
}

func (r *postgresRepository) queryProducts(ctx context.Context, b sq.SelectBuilder) ([]Product, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to build products query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := rows.Scan(productDest(&p)...); err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating products: %w", err)
	}

	return products, nil
}

func filterConditions(f ListFilter) sq.And {
	where := sq.And{}

	if !f.IncludeInactive {
		where = append(where, sq.Eq{"p.is_active": true})
	}
	if f.CategoryID != nil {
		where = append(where, sq.Eq{"p.category_id": *f.CategoryID})
	}
	if f.Search != "" {
		pattern := db.ContainsPattern(f.Search)
		where = append(where, sq.Or{
			sq.ILike{"p.name": pattern},
			sq.ILike{"p.description": pattern},
			sq.ILike{"p.sku": pattern},
		})
	}
	if f.MinPrice != nil {
		where = append(where, sq.GtOrEq{"p.price": *f.MinPrice})
	}
	if f.MaxPrice != nil {
		where = append(where, sq.LtOrEq{"p.price": *f.MaxPrice})
	}
	if f.InStock != nil {
		if *f.InStock {
			where = append(where, sq.Gt{"p.stock_quantity": 0})
		} else {
			where = append(where, sq.Eq{"p.stock_quantity": 0})
		}
	}
	if f.MinRating != nil {
		where = append(where, sq.Expr(averageRatingExpr+" >= ?", *f.MinRating))
	}

	return where
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	where := filterConditions(filter)

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("products p").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to build products count query: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count products: %w", err)
	}

	products, err := r.queryProducts(ctx, selectProducts().
		Where(where).
		OrderBy(OrderByClause(filter.SortBy, filter.SortOrder), "p.id").
		Limit(filter.Page.Limit()).
		Offset(filter.Page.Offset()))
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query, args, err := selectProducts().Where(sq.Eq{"p.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to build product query: %w", err)
	}

	var p Product
	if err := r.db.QueryRow(ctx, query, args...).Scan(productDest(&p)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %s: %w", id, err)
	}

	return &p, nil
}

func (r *postgresRepository) Related(ctx context.Context, p *Product, limit int) ([]Product, error) {
	return r.queryProducts(ctx, selectProducts().
		Where(sq.Eq{"p.category_id": p.CategoryID, "p.is_active": true}).
		Where(sq.NotEq{"p.id": p.ID}).
		OrderBy("p.created_at DESC", "p.id").
		Limit(uint64(limit)))
}

func (r *postgresRepository) RatingDistribution(ctx context.Context, id uuid.UUID) (RatingDistribution, error) {
	rows, err := r.db.Query(ctx, `
		SELECT rating, COUNT(*)
		FROM reviews
		WHERE product_id = $1 AND status = 'approved'
		GROUP BY rating`, id)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query rating distribution: %w", err)
	}
	defer rows.Close()

	dist := NewRatingDistribution()
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("repository: failed to scan rating distribution: %w", err)
		}
		dist[rating] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating rating distribution: %w", err)
	}

	return dist, nil
}

func (r *postgresRepository) SalesSummary(ctx context.Context, id uuid.UUID) (*SalesSummary, error) {
	var s SalesSummary
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(oi.quantity), 0),
			COALESCE(SUM(oi.quantity * oi.price), 0),
			COUNT(DISTINCT o.id)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.product_id = $1 AND o.status = 'delivered'`, id).
		Scan(&s.TotalSold, &s.TotalRevenue, &s.OrderCount)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query sales summary for product %s: %w", id, err)
	}

	return &s, nil
}

func (r *postgresRepository) MostSold(ctx context.Context, limit int) ([]Product, error) {
	return r.queryProducts(ctx, selectProducts().
		Where(sq.Eq{"p.is_active": true}).
		Where(soldCountExpr+" > 0").
		OrderBy("sold_count DESC", "p.name").
		Limit(uint64(limit)))
}

func (r *postgresRepository) MostReviewed(ctx context.Context, limit int) ([]Product, error) {
	return r.queryProducts(ctx, selectProducts().
		Where(sq.Eq{"p.is_active": true}).
		Where(reviewCountExpr+" > 0").
		OrderBy("review_count DESC", "average_rating DESC", "p.name").
		Limit(uint64(limit)))
}

func (r *postgresRepository) TrendingCandidates(ctx context.Context, since time.Time) ([]TrendingCandidate, error) {
	query, args, err := selectProducts().
		Column(sq.Expr(`COALESCE((SELECT SUM(oi.quantity) FROM order_items oi JOIN orders o ON o.id = oi.order_id
			WHERE oi.product_id = p.id AND o.status = 'delivered' AND o.created_at >= ?), 0) AS window_sold`, since)).
		Column(sq.Expr(`(SELECT COUNT(*) FROM reviews r WHERE r.product_id = p.id
			AND r.status = 'approved' AND r.created_at >= ?) AS window_reviews`, since)).
		Where(sq.Eq{"p.is_active": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to build trending query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query trending candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]TrendingCandidate, 0)
	for rows.Next() {
		var c TrendingCandidate
		dest := append(productDest(&c.Product), &c.WindowSold, &c.WindowReviews)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("repository: failed to scan trending candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating trending candidates: %w", err)
	}

	return candidates, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return ErrSKUExists
		case pgerrcode.ForeignKeyViolation:
			return ErrCategoryNotFound
		}
	}
	return nil
}

func (r *postgresRepository) Create(ctx context.Context, p *Product) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate product id: %w", err)
		}
		p.ID = id
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := r.db.Exec(ctx, `
		INSERT INTO products (id, category_id, name, description, sku, price, stock_quantity, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.CategoryID, p.Name, p.Description, p.SKU, p.Price, p.StockQuantity, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if mapped := mapWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}

	return nil
}

func (r *postgresRepository) Update(ctx context.Context, p *Product) error {
	p.UpdatedAt = time.Now().UTC()

	cmdTag, err := r.db.Exec(ctx, `
		UPDATE products
		SET category_id = $1, name = $2, description = $3, sku = $4, price = $5,
			stock_quantity = $6, is_active = $7, updated_at = $8
		WHERE id = $9`,
		p.CategoryID, p.Name, p.Description, p.SKU, p.Price, p.StockQuantity, p.IsActive, p.UpdatedAt, p.ID)
	if err != nil {
		if mapped := mapWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *postgresRepository) UpdateStock(ctx context.Context, id uuid.UUID, quantity int) error {
	cmdTag, err := r.db.Exec(ctx,
		"UPDATE products SET stock_quantity = $1, updated_at = NOW() WHERE id = $2",
		quantity, id)
	if err != nil {
		return fmt.Errorf("repository: failed to update stock for product %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete product %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
