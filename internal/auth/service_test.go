package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/user"
)

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

type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) Save(ctx context.Context, tokenID, userID uuid.UUID, expiresAt time.Time) error {
	args := m.Called(ctx, tokenID, userID, expiresAt)
	return args.Error(0)
}

func (m *MockTokenRepository) Touch(ctx context.Context, tokenID uuid.UUID) (*auth.TokenOwner, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenOwner), args.Error(1)
}

func (m *MockTokenRepository) Delete(ctx context.Context, tokenID uuid.UUID) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockTokenRepository) DeleteAllForUserExcept(ctx context.Context, userID, keepTokenID uuid.UUID) error {
	args := m.Called(ctx, userID, keepTokenID)
	return args.Error(0)
}

func newService() (auth.Service, *MockUserService, *MockTokenRepository, *auth.TokenManager) {
	users := new(MockUserService)
	tokens := new(MockTokenRepository)
	manager := auth.NewTokenManager("test-secret", time.Hour, "shop-service")
	return auth.NewService(users, tokens, manager), users, tokens, manager
}

func TestAuthService_Register(t *testing.T) {
	svc, users, tokens, manager := newService()

	created := &user.User{ID: uuid.Must(uuid.NewV4()), Email: "new@example.com", Role: authz.RoleUser, IsActive: true}

	users.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
		return u.Role == authz.RoleUser
	})).Return(created, nil).Once()
	tokens.On("Save", mock.Anything, mock.AnythingOfType("uuid.UUID"), created.ID, mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	session, err := svc.Register(context.Background(), &user.User{Email: "new@example.com", PasswordHash: "password123", Role: authz.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, auth.TokenType, session.TokenType)
	assert.Equal(t, created, session.User)

	gotUser, _, err := manager.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, gotUser)

	users.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	svc, users, tokens, _ := newService()

	users.On("Authenticate", mock.Anything, "a@example.com", "bad").Return(nil, user.ErrInvalidCredentials).Once()

	session, err := svc.Login(context.Background(), "a@example.com", "bad")
	require.ErrorIs(t, err, user.ErrInvalidCredentials)
	require.Nil(t, session)
	tokens.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Authenticate(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())

	tests := []struct {
		name      string
		owner     *auth.TokenOwner
		touchErr  error
		wantErrIs error
		wantRole  authz.Role
	}{
		{
			name:     "valid",
			owner:    &auth.TokenOwner{UserID: userID, Role: authz.RoleAdmin, IsActive: true},
			wantRole: authz.RoleAdmin,
		},
		{
			name:      "revoked",
			touchErr:  auth.ErrTokenRevoked,
			wantErrIs: auth.ErrInvalidToken,
		},
		{
			name:      "inactive_owner",
			owner:     &auth.TokenOwner{UserID: userID, Role: authz.RoleUser, IsActive: false},
			wantErrIs: user.ErrInactive,
		},
		{
			name:      "subject_mismatch",
			owner:     &auth.TokenOwner{UserID: uuid.Must(uuid.NewV4()), Role: authz.RoleUser, IsActive: true},
			wantErrIs: auth.ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, tokens, manager := newService()

			issued, err := manager.Issue(userID, authz.RoleUser)
			require.NoError(t, err)

			if tt.owner != nil {
				tokens.On("Touch", mock.Anything, issued.ID).Return(tt.owner, nil).Once()
			} else {
				tokens.On("Touch", mock.Anything, issued.ID).Return(nil, tt.touchErr).Once()
			}

			actor, err := svc.Authenticate(context.Background(), issued.Value)
			if tt.wantErrIs != nil {
				require.ErrorIs(t, err, tt.wantErrIs)
				require.Nil(t, actor)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, userID, actor.UserID)
			assert.Equal(t, tt.wantRole, actor.Role)
			assert.Equal(t, issued.ID, actor.TokenID)
		})
	}
}

func TestAuthService_Authenticate_BadSignatureSkipsStore(t *testing.T) {
	svc, _, tokens, _ := newService()

	_, err := svc.Authenticate(context.Background(), "garbage")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
	tokens.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything)
}

func TestAuthService_Logout(t *testing.T) {
	svc, _, tokens, _ := newService()

	actor := &authz.Actor{UserID: uuid.Must(uuid.NewV4()), Role: authz.RoleUser, TokenID: uuid.Must(uuid.NewV4())}
	tokens.On("Delete", mock.Anything, actor.TokenID).Return(nil).Once()

	require.NoError(t, svc.Logout(context.Background(), actor))
	tokens.AssertExpectations(t)
}

func TestAuthService_ChangePassword(t *testing.T) {
	actor := &authz.Actor{UserID: uuid.Must(uuid.NewV4()), Role: authz.RoleUser, TokenID: uuid.Must(uuid.NewV4())}

	t.Run("revokes_other_tokens", func(t *testing.T) {
		svc, users, tokens, _ := newService()

		users.On("ChangePassword", mock.Anything, actor.UserID, "old", "newpassword").Return(nil).Once()
		tokens.On("DeleteAllForUserExcept", mock.Anything, actor.UserID, actor.TokenID).Return(nil).Once()

		require.NoError(t, svc.ChangePassword(context.Background(), actor, "old", "newpassword"))
		users.AssertExpectations(t)
		tokens.AssertExpectations(t)
	})

	t.Run("wrong_current_password", func(t *testing.T) {
		svc, users, tokens, _ := newService()

		users.On("ChangePassword", mock.Anything, actor.UserID, "bad", "newpassword").Return(user.ErrIncorrectPassword).Once()

		err := svc.ChangePassword(context.Background(), actor, "bad", "newpassword")
		require.True(t, errors.Is(err, user.ErrIncorrectPassword))
		tokens.AssertNotCalled(t, "DeleteAllForUserExcept", mock.Anything, mock.Anything, mock.Anything)
	})
}
