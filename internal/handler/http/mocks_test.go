package http_test

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/category"
	handler "github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/handler/http"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/order"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/pagination"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/product"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/review"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/user"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/wishlist"
)

const (
	userToken     = "user-token"
	adminToken    = "admin-token"
	inactiveToken = "inactive-token"
)

var (
	testUser  = &authz.Actor{UserID: uuid.Must(uuid.NewV4()), Role: authz.RoleUser, TokenID: uuid.Must(uuid.NewV4())}
	testAdmin = &authz.Actor{UserID: uuid.Must(uuid.NewV4()), Role: authz.RoleAdmin, TokenID: uuid.Must(uuid.NewV4())}

	testPages = handler.PageSettings{DefaultPerPage: 15, MaxPerPage: 100}
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, u *user.User) (*auth.Session, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, actor *authz.Actor) error {
	args := m.Called(ctx, actor)
	return args.Error(0)
}

func (m *MockAuthService) Authenticate(ctx context.Context, rawToken string) (*authz.Actor, error) {
	args := m.Called(ctx, rawToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authz.Actor), args.Error(1)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, actor *authz.Actor, currentPassword, newPassword string) error {
	args := m.Called(ctx, actor, currentPassword, newPassword)
	return args.Error(0)
}

// newGuards returns guards whose token lookup knows the fixed test tokens.
func newGuards() (handler.Guards, *MockAuthService) {
	authService := new(MockAuthService)
	authService.On("Authenticate", mock.Anything, userToken).Return(testUser, nil).Maybe()
	authService.On("Authenticate", mock.Anything, adminToken).Return(testAdmin, nil).Maybe()
	authService.On("Authenticate", mock.Anything, inactiveToken).Return(nil, user.ErrInactive).Maybe()
	authService.On("Authenticate", mock.Anything, mock.Anything).Return(nil, auth.ErrInvalidToken).Maybe()
	return handler.NewGuards(authService, authz.NewPolicy()), authService
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, u *user.User) (*user.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*user.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id uuid.UUID, update user.ProfileUpdate) (*user.User, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error {
	args := m.Called(ctx, id, currentPassword, newPassword)
	return args.Error(0)
}

func (m *MockUserService) ListUsers(ctx context.Context, filter user.ListFilter) ([]user.User, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]user.User), args.Int(1), args.Error(2)
}

func (m *MockUserService) AdminUpdateUser(ctx context.Context, id uuid.UUID, update user.AdminUpdate) (*user.User, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, actorID, id uuid.UUID) error {
	args := m.Called(ctx, actorID, id)
	return args.Error(0)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, in order.PlaceInput) (*order.Order, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, actor *authz.Actor, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, actor *authz.Actor, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, filter order.ListFilter) ([]order.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]order.Order), args.Int(1), args.Error(2)
}

func (m *MockOrderService) History(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]order.Order, int, error) {
	args := m.Called(ctx, userID, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]order.Order), args.Int(1), args.Error(2)
}

func (m *MockOrderService) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]order.Order, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) Statistics(ctx context.Context, userID *uuid.UUID) (*order.Statistics, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Statistics), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) (*order.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status order.PaymentStatus) (*order.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) ListProducts(ctx context.Context, filter product.ListFilter) ([]product.Product, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]product.Product), args.Int(1), args.Error(2)
}

func (m *MockProductService) GetProduct(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) GetProductDetail(ctx context.Context, id uuid.UUID) (*product.Detail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Detail), args.Error(1)
}

func (m *MockProductService) MostSold(ctx context.Context, limit int) ([]product.Product, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]product.Product), args.Error(1)
}

func (m *MockProductService) MostReviewed(ctx context.Context, limit int) ([]product.Product, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]product.Product), args.Error(1)
}

func (m *MockProductService) Trending(ctx context.Context, limit, days int) ([]product.TrendingProduct, error) {
	args := m.Called(ctx, limit, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]product.TrendingProduct), args.Error(1)
}

func (m *MockProductService) CreateProduct(ctx context.Context, in product.Input) (*product.Product, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) UpdateProduct(ctx context.Context, id uuid.UUID, in product.Input) (*product.Product, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) UpdateStock(ctx context.Context, id uuid.UUID, quantity int) (*product.Product, error) {
	args := m.Called(ctx, id, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) ProductReviews(ctx context.Context, productID uuid.UUID, page pagination.Params) ([]review.Review, int, error) {
	args := m.Called(ctx, productID, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]review.Review), args.Int(1), args.Error(2)
}

func (m *MockReviewService) SubmitReview(ctx context.Context, actor *authz.Actor, productID uuid.UUID, in review.Input) (*review.Review, bool, error) {
	args := m.Called(ctx, actor, productID, in)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*review.Review), args.Bool(1), args.Error(2)
}

func (m *MockReviewService) UpdateReview(ctx context.Context, actor *authz.Actor, id uuid.UUID, in review.Input) (*review.Review, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*review.Review), args.Error(1)
}

func (m *MockReviewService) DeleteReview(ctx context.Context, actor *authz.Actor, id uuid.UUID) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockReviewService) UserReviews(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]review.Review, int, error) {
	args := m.Called(ctx, userID, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]review.Review), args.Int(1), args.Error(2)
}

func (m *MockReviewService) ListReviews(ctx context.Context, filter review.ListFilter) ([]review.Review, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]review.Review), args.Int(1), args.Error(2)
}

func (m *MockReviewService) Approve(ctx context.Context, actor *authz.Actor, id uuid.UUID, notes string) (*review.Review, error) {
	args := m.Called(ctx, actor, id, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*review.Review), args.Error(1)
}

func (m *MockReviewService) Reject(ctx context.Context, actor *authz.Actor, id uuid.UUID, notes string) (*review.Review, error) {
	args := m.Called(ctx, actor, id, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*review.Review), args.Error(1)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) GetCart(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cart.Cart, error) {
	args := m.Called(ctx, userID, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cart.Cart, error) {
	args := m.Called(ctx, userID, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, userID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockCategoryService struct {
	mock.Mock
}

func (m *MockCategoryService) ListCategories(ctx context.Context, includeInactive bool) ([]category.Category, error) {
	args := m.Called(ctx, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]category.Category), args.Error(1)
}

func (m *MockCategoryService) GetCategory(ctx context.Context, id uuid.UUID) (*category.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*category.Category), args.Error(1)
}

func (m *MockCategoryService) CreateCategory(ctx context.Context, in category.Input) (*category.Category, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*category.Category), args.Error(1)
}

func (m *MockCategoryService) UpdateCategory(ctx context.Context, id uuid.UUID, in category.Input) (*category.Category, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*category.Category), args.Error(1)
}

func (m *MockCategoryService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockWishlistService struct {
	mock.Mock
}

func (m *MockWishlistService) GetWishlist(ctx context.Context, userID uuid.UUID) ([]wishlist.Item, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wishlist.Item), args.Error(1)
}

func (m *MockWishlistService) AddItem(ctx context.Context, userID, productID uuid.UUID) ([]wishlist.Item, error) {
	args := m.Called(ctx, userID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wishlist.Item), args.Error(1)
}

func (m *MockWishlistService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *MockWishlistService) MoveToCart(ctx context.Context, userID, productID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, userID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}
