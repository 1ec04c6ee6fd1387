package dbtest

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func InsertUser(tb testing.TB, pool *pgxpool.Pool, role string) uuid.UUID {
	tb.Helper()

	id := uuid.Must(uuid.NewV4())
	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)`,
		id, "Fixture User", id.String()+"@example.com", "hash", role)
	require.NoError(tb, err, "failed to insert fixture user")

	return id
}

func InsertCategory(tb testing.TB, pool *pgxpool.Pool, name string) uuid.UUID {
	tb.Helper()

	id := uuid.Must(uuid.NewV4())
	_, err := pool.Exec(context.Background(),
		"INSERT INTO categories (id, name, slug) VALUES ($1, $2, $3)",
		id, name, id.String())
	require.NoError(tb, err, "failed to insert fixture category")

	return id
}

// InsertProduct creates an active product. price is a decimal string such as "10.00".
func InsertProduct(tb testing.TB, pool *pgxpool.Pool, categoryID uuid.UUID, name, price string, stock int) uuid.UUID {
	tb.Helper()

	id := uuid.Must(uuid.NewV4())
	_, err := pool.Exec(context.Background(), `
		INSERT INTO products (id, category_id, name, sku, price, stock_quantity)
		VALUES ($1, $2, $3, $4, $5::numeric, $6)`,
		id, categoryID, name, "SKU-"+id.String()[:8], price, stock)
	require.NoError(tb, err, "failed to insert fixture product")

	return id
}

func ProductStock(tb testing.TB, pool *pgxpool.Pool, productID uuid.UUID) int {
	tb.Helper()

	var stock int
	err := pool.QueryRow(context.Background(),
		"SELECT stock_quantity FROM products WHERE id = $1", productID).Scan(&stock)
	require.NoError(tb, err)

	return stock
}
