// Package dbtest connects repository tests to a real PostgreSQL database.
// Tests are skipped unless TEST_DATABASE_URL is set. Packages share the
// database, so run them with `go test -p 1 ./...`.
package dbtest

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/db"
)

const EnvDatabaseURL = "TEST_DATABASE_URL"

func Connect(tb testing.TB) *pgxpool.Pool {
	tb.Helper()

	dsn := os.Getenv(EnvDatabaseURL)
	if dsn == "" {
		tb.Skipf("%s is not set, skipping repository test", EnvDatabaseURL)
	}

	// Миграции идемпотентны, повторный запуск ничего не меняет
	require.NoError(tb, db.Migrate(dsn), "failed to migrate test database")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(tb, err, "failed to connect to test database")
	require.NoError(tb, pool.Ping(ctx), "failed to ping test database")

	tb.Cleanup(pool.Close)
	return pool
}

// Truncate empties every application table.
func Truncate(tb testing.TB, pool *pgxpool.Pool) {
	tb.Helper()

	tables := []string{
		"reviews", "order_items", "orders", "wishlist_items", "cart_items",
		"products", "categories", "access_tokens", "users",
	}
	_, err := pool.Exec(context.Background(), "TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE")
	require.NoError(tb, err, "failed to truncate tables")
}
