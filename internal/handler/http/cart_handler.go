package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/cart"
)

type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=1000"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1,lte=1000"`
}

type CartHandler struct {
	service  cart.Service
	validate *validator.Validate
	debug    bool
}

func NewCartHandler(service cart.Service, debug bool) *CartHandler {
	return &CartHandler{service: service, validate: newValidator(), debug: debug}
}

func (h *CartHandler) RegisterRoutes(router chi.Router, guards Guards) {
	router.Group(func(r chi.Router) {
		r.Use(guards.Authenticate)
		r.Get("/cart", h.handleGetCart)
		r.Post("/cart", h.handleAddItem)
		r.Delete("/cart", h.handleClear)
		r.Put("/cart/{productID}", h.handleUpdateItem)
		r.Delete("/cart/{productID}", h.handleRemoveItem)
	})
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetCart(r.Context(), actorFrom(r).UserID)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	c, err := h.service.AddItem(r.Context(), actorFrom(r).UserID, uuid.FromStringOrNil(req.ProductID), req.Quantity)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	c, err := h.service.UpdateItem(r.Context(), actorFrom(r).UserID, productID, req.Quantity)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}

	c, err := h.service.RemoveItem(r.Context(), actorFrom(r).UserID, productID)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), actorFrom(r).UserID); err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Cart cleared successfully."})
}
