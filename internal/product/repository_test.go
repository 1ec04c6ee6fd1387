package product_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/db/dbtest"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/pagination"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/product"
)

func TestProductRepository_ListFilters(t *testing.T) {
	pool := dbtest.Connect(t)
	dbtest.Truncate(t, pool)
	repo := product.NewRepository(pool)
	ctx := context.Background()

	phones := dbtest.InsertCategory(t, pool, "Phones")
	books := dbtest.InsertCategory(t, pool, "Books")

	dbtest.InsertProduct(t, pool, phones, "Cheap Phone", "50.00", 10)
	dbtest.InsertProduct(t, pool, phones, "Premium Phone", "900.00", 0)
	dbtest.InsertProduct(t, pool, books, "Go Book", "40.00", 5)

	page := pagination.Params{Page: 1, PerPage: 10}

	products, total, err := repo.List(ctx, product.ListFilter{CategoryID: &phones, Page: page})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, products, 2)

	inStock := true
	minPrice := decimal.NewFromInt(45)
	products, total, err = repo.List(ctx, product.ListFilter{InStock: &inStock, MinPrice: &minPrice, Page: page})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "Cheap Phone", products[0].Name)
	assert.Equal(t, "Phones", products[0].CategoryName)

	products, _, err = repo.List(ctx, product.ListFilter{Search: "book", Page: page})
	require.NoError(t, err)
	require.Len(t, products, 1)

	products, _, err = repo.List(ctx, product.ListFilter{SortBy: product.SortPrice, SortOrder: "desc", Page: page})
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Premium Phone", products[0].Name)

	minRating := 1.0
	_, total, err = repo.List(ctx, product.ListFilter{MinRating: &minRating, Page: page})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestProductRepository_SearchIsLiteral(t *testing.T) {
	pool := dbtest.Connect(t)
	dbtest.Truncate(t, pool)
	repo := product.NewRepository(pool)
	ctx := context.Background()

	clothes := dbtest.InsertCategory(t, pool, "Clothes")
	dbtest.InsertProduct(t, pool, clothes, "100% Cotton Shirt", "20.00", 3)
	dbtest.InsertProduct(t, pool, clothes, "1000 Thread Sheets", "80.00", 3)
	dbtest.InsertProduct(t, pool, clothes, "Tank_Top", "15.00", 3)
	dbtest.InsertProduct(t, pool, clothes, "TankXTop", "15.00", 3)

	page := pagination.Params{Page: 1, PerPage: 10}

	products, _, err := repo.List(ctx, product.ListFilter{Search: "0%", Page: page})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "100% Cotton Shirt", products[0].Name)

	products, _, err = repo.List(ctx, product.ListFilter{Search: "k_t", Page: page})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Tank_Top", products[0].Name)
}

func TestProductRepository_CreateUpdateStockDelete(t *testing.T) {
	pool := dbtest.Connect(t)
	dbtest.Truncate(t, pool)
	repo := product.NewRepository(pool)
	ctx := context.Background()

	categoryID := dbtest.InsertCategory(t, pool, "Tools")

	p := &product.Product{
		CategoryID:    categoryID,
		Name:          "Hammer",
		SKU:           "HAM-1",
		Price:         decimal.RequireFromString("12.50"),
		StockQuantity: 4,
		IsActive:      true,
	}
	require.NoError(t, repo.Create(ctx, p))

	dup := *p
	dup.ID = uuid.Nil
	require.ErrorIs(t, repo.Create(ctx, &dup), product.ErrSKUExists)

	orphan := *p
	orphan.ID = uuid.Nil
	orphan.SKU = "HAM-2"
	orphan.CategoryID = uuid.Must(uuid.NewV4())
	require.ErrorIs(t, repo.Create(ctx, &orphan), product.ErrCategoryNotFound)

	require.NoError(t, repo.UpdateStock(ctx, p.ID, 9))
	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.StockQuantity)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("12.5")))

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.GetByID(ctx, p.ID)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestProductRepository_TrendingCandidates_Empty(t *testing.T) {
	pool := dbtest.Connect(t)
	dbtest.Truncate(t, pool)
	repo := product.NewRepository(pool)

	categoryID := dbtest.InsertCategory(t, pool, "Misc")
	dbtest.InsertProduct(t, pool, categoryID, "Thing", "1.00", 1)

	candidates, err := repo.TrendingCandidates(context.Background(), time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Zero(t, candidates[0].WindowSold)
	assert.Zero(t, candidates[0].WindowReviews)
}
