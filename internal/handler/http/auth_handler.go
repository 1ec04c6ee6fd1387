package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/user"
)

type RegisterRequest struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
	Phone                string `json:"phone" validate:"omitempty,max=20"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Phone   string `json:"phone" validate:"omitempty,max=20"`
	Address string `json:"address" validate:"omitempty,max=500"`
}

type ChangePasswordRequest struct {
	CurrentPassword         string `json:"current_password" validate:"required"`
	NewPassword             string `json:"new_password" validate:"required,min=8"`
	NewPasswordConfirmation string `json:"new_password_confirmation" validate:"required,eqfield=NewPassword"`
}

type AuthHandler struct {
	auth     auth.Service
	users    user.Service
	validate *validator.Validate
	debug    bool
}

func NewAuthHandler(authService auth.Service, users user.Service, debug bool) *AuthHandler {
	return &AuthHandler{
		auth:     authService,
		users:    users,
		validate: newValidator(),
		debug:    debug,
	}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router, guards Guards) {
	router.Post("/register", h.handleRegister)
	router.Post("/login", h.handleLogin)

	router.Group(func(r chi.Router) {
		r.Use(guards.Authenticate)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleGetProfile)
		r.Put("/me", h.handleUpdateProfile)
		r.Put("/me/password", h.handleChangePassword)
	})
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	session, err := h.auth.Register(r.Context(), &user.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: req.Password,
		Phone:        req.Phone,
	})
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusCreated, session)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), actorFrom(r)); err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully."})
}

func (h *AuthHandler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetUserByID(r.Context(), actorFrom(r).UserID)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *AuthHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), actorFrom(r).UserID, user.ProfileUpdate{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *AuthHandler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if err := h.auth.ChangePassword(r.Context(), actorFrom(r), req.CurrentPassword, req.NewPassword); err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Password updated successfully."})
}
