package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/wishlist"
)

type AddWishlistItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

type WishlistHandler struct {
	service  wishlist.Service
	validate *validator.Validate
	debug    bool
}

func NewWishlistHandler(service wishlist.Service, debug bool) *WishlistHandler {
	return &WishlistHandler{service: service, validate: newValidator(), debug: debug}
}

func (h *WishlistHandler) RegisterRoutes(router chi.Router, guards Guards) {
	router.Group(func(r chi.Router) {
		r.Use(guards.Authenticate)
		r.Get("/wishlist", h.handleGetWishlist)
		r.Post("/wishlist", h.handleAddItem)
		r.Delete("/wishlist/{productID}", h.handleRemoveItem)
		r.Post("/wishlist/{productID}/move-to-cart", h.handleMoveToCart)
	})
}

func (h *WishlistHandler) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.GetWishlist(r.Context(), actorFrom(r).UserID)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

func (h *WishlistHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req AddWishlistItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	items, err := h.service.AddItem(r.Context(), actorFrom(r).UserID, uuid.FromStringOrNil(req.ProductID))
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

func (h *WishlistHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}

	if err := h.service.RemoveItem(r.Context(), actorFrom(r).UserID, productID); err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Product removed from wishlist."})
}

func (h *WishlistHandler) handleMoveToCart(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}

	c, err := h.service.MoveToCart(r.Context(), actorFrom(r).UserID, productID)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}
