package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/category"
)

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	IsActive    *bool  `json:"is_active"`
}

type CategoryHandler struct {
	service  category.Service
	validate *validator.Validate
	debug    bool
}

func NewCategoryHandler(service category.Service, debug bool) *CategoryHandler {
	return &CategoryHandler{service: service, validate: newValidator(), debug: debug}
}

func (h *CategoryHandler) RegisterRoutes(router chi.Router, guards Guards) {
	router.Get("/categories", h.handleListCategories(false))
	router.Get("/categories/{id}", h.handleGetCategory)

	router.Group(func(r chi.Router) {
		r.Use(guards.Authenticate, guards.Require(authz.ManageCatalog))
		r.Get("/admin/categories", h.handleListCategories(true))
		r.Post("/admin/categories", h.handleCreateCategory)
		r.Put("/admin/categories/{id}", h.handleUpdateCategory)
		r.Delete("/admin/categories/{id}", h.handleDeleteCategory)
	})
}

func (h *CategoryHandler) handleListCategories(includeInactive bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := h.service.ListCategories(r.Context(), includeInactive)
		if err != nil {
			respondWithServiceError(w, r, err, h.debug)
			return
		}
		respondWithJSON(w, http.StatusOK, categories)
	}
}

func (h *CategoryHandler) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	c, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	if !c.IsActive {
		respondWithError(w, http.StatusNotFound, category.ErrNotFound.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CategoryHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	c, err := h.service.CreateCategory(r.Context(), category.Input{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusCreated, c)
}

func (h *CategoryHandler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req CategoryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	c, err := h.service.UpdateCategory(r.Context(), id, category.Input{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CategoryHandler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Category deleted successfully."})
}
