package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/pagination"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/user"
)

type AdminUpdateUserRequest struct {
	Role     *string `json:"role" validate:"omitempty,oneof=admin user"`
	IsActive *bool   `json:"is_active"`
}

// UserHandler serves the administrative user endpoints.
type UserHandler struct {
	service  user.Service
	validate *validator.Validate
	pages    PageSettings
	debug    bool
}

func NewUserHandler(service user.Service, pages PageSettings, debug bool) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: newValidator(),
		pages:    pages,
		debug:    debug,
	}
}

func (h *UserHandler) RegisterRoutes(router chi.Router, guards Guards) {
	router.Group(func(r chi.Router) {
		r.Use(guards.Authenticate, guards.Require(authz.ManageUsers))
		r.Get("/admin/users", h.handleListUsers)
		r.Get("/admin/users/{id}", h.handleGetUser)
		r.Put("/admin/users/{id}", h.handleUpdateUser)
		r.Delete("/admin/users/{id}", h.handleDeleteUser)
	})
}

func (h *UserHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := h.pages.FromRequest(r)

	filter := user.ListFilter{Search: q.Get("search"), Page: page}
	if role := authz.Role(q.Get("role")); role.Valid() {
		filter.Role = role
	}

	users, total, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, pagination.NewPage(users, page, total))
}

func (h *UserHandler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	u, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req AdminUpdateUserRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	update := user.AdminUpdate{IsActive: req.IsActive}
	if req.Role != nil {
		role := authz.Role(*req.Role)
		update.Role = &role
	}

	u, err := h.service.AdminUpdateUser(r.Context(), id, update)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), actorFrom(r).UserID, id); err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "User deleted successfully."})
}
