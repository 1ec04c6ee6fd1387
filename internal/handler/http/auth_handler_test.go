package http_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	handler "github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/handler/http"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/user"
)

func TestAuthHandler_Register(t *testing.T) {
	valid := handler.RegisterRequest{
		Name:                 "Ada Lovelace",
		Email:                "ada@example.com",
		Password:             "password123",
		PasswordConfirmation: "password123",
	}

	t.Run("success", func(t *testing.T) {
		guards, authService := newGuards()
		router := newRouter(handler.NewAuthHandler(authService, new(MockUserService), false), guards)

		session := &auth.Session{
			Token:     "jwt",
			TokenType: auth.TokenType,
			ExpiresAt: time.Now().Add(time.Hour),
			User:      &user.User{ID: uuid.Must(uuid.NewV4()), Name: valid.Name, Email: valid.Email, Role: authz.RoleUser},
		}
		authService.On("Register", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
			return u.Email == valid.Email && u.PasswordHash == valid.Password && u.Name == valid.Name
		})).Return(session, nil).Once()

		rr := doRequest(t, router, http.MethodPost, "/register", "", valid)

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		got := decodeBody[map[string]any](t, rr)
		assert.Equal(t, "jwt", got["token"])
		assert.Equal(t, "Bearer", got["token_type"])
		assert.Equal(t, "user", got["user"].(map[string]any)["role"])
		assert.NotContains(t, got["user"], "password_hash")
		authService.AssertExpectations(t)
	})

	t.Run("password_confirmation_mismatch", func(t *testing.T) {
		guards, authService := newGuards()
		router := newRouter(handler.NewAuthHandler(authService, new(MockUserService), false), guards)

		req := valid
		req.PasswordConfirmation = "different123"
		rr := doRequest(t, router, http.MethodPost, "/register", "", req)

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		body := decodeBody[handler.ValidationErrorResponse](t, rr)
		assert.Equal(t, "The given data was invalid.", body.Message)
		assert.Contains(t, body.Errors, "password_confirmation")
		authService.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("duplicate_email", func(t *testing.T) {
		guards, authService := newGuards()
		router := newRouter(handler.NewAuthHandler(authService, new(MockUserService), false), guards)

		authService.On("Register", mock.Anything, mock.Anything).Return(nil, user.ErrEmailExists).Once()

		rr := doRequest(t, router, http.MethodPost, "/register", "", valid)

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		body := decodeBody[handler.ErrorResponse](t, rr)
		assert.Equal(t, user.ErrEmailExists.Error(), body.Message)
	})

	t.Run("unknown_field", func(t *testing.T) {
		guards, authService := newGuards()
		router := newRouter(handler.NewAuthHandler(authService, new(MockUserService), false), guards)

		rr := doRequest(t, router, http.MethodPost, "/register", "",
			`{"name":"A","email":"a@example.com","password":"password123","password_confirmation":"password123","role":"admin"}`)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		authService.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "success", wantCode: http.StatusOK},
		{name: "wrong_password", err: user.ErrInvalidCredentials, wantCode: http.StatusUnauthorized},
		{name: "inactive", err: user.ErrInactive, wantCode: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guards, authService := newGuards()
			router := newRouter(handler.NewAuthHandler(authService, new(MockUserService), false), guards)

			if tt.err != nil {
				authService.On("Login", mock.Anything, "ada@example.com", "password123").Return(nil, tt.err).Once()
			} else {
				authService.On("Login", mock.Anything, "ada@example.com", "password123").
					Return(&auth.Session{Token: "jwt", TokenType: auth.TokenType}, nil).Once()
			}

			rr := doRequest(t, router, http.MethodPost, "/login", "",
				handler.LoginRequest{Email: "ada@example.com", Password: "password123"})

			require.Equal(t, tt.wantCode, rr.Code, rr.Body.String())
			authService.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_LogoutAndProfile(t *testing.T) {
	guards, authService := newGuards()
	users := new(MockUserService)
	router := newRouter(handler.NewAuthHandler(authService, users, false), guards)

	authService.On("Logout", mock.Anything, testUser).Return(nil).Once()
	rr := doRequest(t, router, http.MethodPost, "/logout", userToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, http.MethodPost, "/logout", "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	update := user.ProfileUpdate{Name: "Ada King", Phone: "+44", Address: "London"}
	users.On("UpdateProfile", mock.Anything, testUser.UserID, update).
		Return(&user.User{ID: testUser.UserID, Name: "Ada King"}, nil).Once()

	rr = doRequest(t, router, http.MethodPut, "/me", userToken,
		handler.UpdateProfileRequest{Name: "Ada King", Phone: "+44", Address: "London"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	authService.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	guards, authService := newGuards()
	router := newRouter(handler.NewAuthHandler(authService, new(MockUserService), false), guards)

	authService.On("ChangePassword", mock.Anything, testUser, "old-password", "new-password").
		Return(user.ErrIncorrectPassword).Once()

	rr := doRequest(t, router, http.MethodPut, "/me/password", userToken, handler.ChangePasswordRequest{
		CurrentPassword:         "old-password",
		NewPassword:             "new-password",
		NewPasswordConfirmation: "new-password",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	authService.AssertExpectations(t)
}
