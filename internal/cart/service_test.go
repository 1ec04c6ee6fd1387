package cart_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/product"
)

type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) Items(ctx context.Context, userID uuid.UUID) ([]cart.Item, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.Item), args.Error(1)
}

func (m *MockCartRepository) Quantity(ctx context.Context, userID, productID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID, productID)
	return args.Int(0), args.Error(1)
}

func (m *MockCartRepository) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	args := m.Called(ctx, userID, productID, quantity)
	return args.Error(0)
}

func (m *MockCartRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *MockCartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockProductFinder struct {
	mock.Mock
}

func (m *MockProductFinder) GetProduct(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func TestCartService_AddItem(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())
	price := decimal.NewFromInt(10)

	tests := []struct {
		name      string
		current   int
		add       int
		product   *product.Product
		findErr   error
		wantErrIs error
		wantSet   int
	}{
		{
			name:    "new_line",
			add:     2,
			product: &product.Product{ID: productID, Name: "Mug", Price: price, StockQuantity: 5, IsActive: true},
			wantSet: 2,
		},
		{
			name:    "increments_existing",
			current: 2,
			add:     3,
			product: &product.Product{ID: productID, Name: "Mug", Price: price, StockQuantity: 5, IsActive: true},
			wantSet: 5,
		},
		{
			name:      "exceeds_stock",
			current:   4,
			add:       2,
			product:   &product.Product{ID: productID, Name: "Mug", Price: price, StockQuantity: 5, IsActive: true},
			wantErrIs: product.ErrInsufficientStock,
		},
		{
			name:      "inactive_product",
			add:       1,
			product:   &product.Product{ID: productID, Name: "Mug", Price: price, StockQuantity: 5},
			wantErrIs: product.ErrUnavailable,
		},
		{
			name:      "unknown_product",
			add:       1,
			findErr:   product.ErrNotFound,
			wantErrIs: product.ErrNotFound,
		},
		{
			name:      "zero_quantity",
			add:       0,
			wantErrIs: cart.ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockCartRepository)
			products := new(MockProductFinder)
			svc := cart.NewService(repo, products)

			if tt.add > 0 {
				repo.On("Quantity", mock.Anything, userID, productID).Return(tt.current, nil).Once()
				if tt.product != nil {
					products.On("GetProduct", mock.Anything, productID).Return(tt.product, nil).Once()
				} else {
					products.On("GetProduct", mock.Anything, productID).Return(nil, tt.findErr).Once()
				}
			}
			if tt.wantErrIs == nil {
				repo.On("SetQuantity", mock.Anything, userID, productID, tt.wantSet).Return(nil).Once()
				repo.On("Items", mock.Anything, userID).Return([]cart.Item{
					{Product: cart.ProductSummary{ID: productID, Price: price}, Quantity: tt.wantSet},
				}, nil).Once()
			}

			c, err := svc.AddItem(context.Background(), userID, productID, tt.add)
			if tt.wantErrIs != nil {
				require.ErrorIs(t, err, tt.wantErrIs)
				repo.AssertNotCalled(t, "SetQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantSet, c.ItemCount)
			assert.True(t, c.Total.Equal(price.Mul(decimal.NewFromInt(int64(tt.wantSet)))))
			repo.AssertExpectations(t)
		})
	}
}

func TestCartService_UpdateItem_NotInCart(t *testing.T) {
	repo := new(MockCartRepository)
	products := new(MockProductFinder)
	svc := cart.NewService(repo, products)

	userID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())

	repo.On("Quantity", mock.Anything, userID, productID).Return(0, nil).Once()

	_, err := svc.UpdateItem(context.Background(), userID, productID, 3)
	require.ErrorIs(t, err, cart.ErrItemNotFound)
	products.AssertNotCalled(t, "GetProduct", mock.Anything, mock.Anything)
}

func TestCartService_UpdateItem_SetsAbsoluteQuantity(t *testing.T) {
	repo := new(MockCartRepository)
	products := new(MockProductFinder)
	svc := cart.NewService(repo, products)

	userID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())

	repo.On("Quantity", mock.Anything, userID, productID).Return(4, nil).Once()
	products.On("GetProduct", mock.Anything, productID).
		Return(&product.Product{ID: productID, StockQuantity: 5, IsActive: true}, nil).Once()
	repo.On("SetQuantity", mock.Anything, userID, productID, 1).Return(nil).Once()
	repo.On("Items", mock.Anything, userID).Return([]cart.Item{}, nil).Once()

	_, err := svc.UpdateItem(context.Background(), userID, productID, 1)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCartService_RemoveItem(t *testing.T) {
	repo := new(MockCartRepository)
	svc := cart.NewService(repo, new(MockProductFinder))

	userID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())

	repo.On("Remove", mock.Anything, userID, productID).Return(cart.ErrItemNotFound).Once()

	_, err := svc.RemoveItem(context.Background(), userID, productID)
	require.ErrorIs(t, err, cart.ErrItemNotFound)
}
