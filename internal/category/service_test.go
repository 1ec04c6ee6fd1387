package category_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/category"
)

type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) List(ctx context.Context, includeInactive bool) ([]category.Category, error) {
	args := m.Called(ctx, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]category.Category), args.Error(1)
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*category.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*category.Category), args.Error(1)
}

func (m *MockCategoryRepository) Create(ctx context.Context, c *category.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCategoryRepository) Update(ctx context.Context, c *category.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestCategoryService_CreateCategory(t *testing.T) {
	t.Run("derives_slug", func(t *testing.T) {
		repo := new(MockCategoryRepository)
		svc := category.NewService(repo)

		repo.On("Create", mock.Anything, mock.MatchedBy(func(c *category.Category) bool {
			return c.Name == "Home & Garden" && c.Slug == "home-garden" && c.IsActive
		})).Return(nil).Once()

		c, err := svc.CreateCategory(context.Background(), category.Input{Name: " Home & Garden "})
		require.NoError(t, err)
		require.Equal(t, "home-garden", c.Slug)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate_name", func(t *testing.T) {
		repo := new(MockCategoryRepository)
		svc := category.NewService(repo)

		repo.On("Create", mock.Anything, mock.Anything).Return(category.ErrNameExists).Once()

		_, err := svc.CreateCategory(context.Background(), category.Input{Name: "Books"})
		require.ErrorIs(t, err, category.ErrNameExists)
	})

	t.Run("unsluggable_name", func(t *testing.T) {
		repo := new(MockCategoryRepository)
		svc := category.NewService(repo)

		_, err := svc.CreateCategory(context.Background(), category.Input{Name: "???"})
		require.ErrorIs(t, err, category.ErrInvalidName)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCategoryService_UpdateCategory(t *testing.T) {
	repo := new(MockCategoryRepository)
	svc := category.NewService(repo)

	id := uuid.Must(uuid.NewV4())
	inactive := false

	repo.On("GetByID", mock.Anything, id).Return(&category.Category{ID: id, Name: "Old", Slug: "old", IsActive: true}, nil).Once()
	repo.On("Update", mock.Anything, mock.MatchedBy(func(c *category.Category) bool {
		return c.Name == "New Name" && c.Slug == "new-name" && !c.IsActive
	})).Return(nil).Once()

	c, err := svc.UpdateCategory(context.Background(), id, category.Input{Name: "New Name", IsActive: &inactive})
	require.NoError(t, err)
	require.False(t, c.IsActive)
	repo.AssertExpectations(t)
}

func TestCategoryService_DeleteCategory(t *testing.T) {
	id := uuid.Must(uuid.NewV4())

	tests := []struct {
		name      string
		repoErr   error
		wantErrIs error
	}{
		{name: "success"},
		{name: "has_products", repoErr: category.ErrHasProducts, wantErrIs: category.ErrHasProducts},
		{name: "not_found", repoErr: category.ErrNotFound, wantErrIs: category.ErrNotFound},
		{name: "unexpected", repoErr: errors.New("boom"), wantErrIs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockCategoryRepository)
			svc := category.NewService(repo)

			repo.On("Delete", mock.Anything, id).Return(tt.repoErr).Once()

			err := svc.DeleteCategory(context.Background(), id)
			switch {
			case tt.repoErr == nil:
				require.NoError(t, err)
			case tt.wantErrIs != nil:
				require.ErrorIs(t, err, tt.wantErrIs)
			default:
				require.ErrorIs(t, err, tt.repoErr)
			}
		})
	}
}
