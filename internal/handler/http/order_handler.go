package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/order"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/pagination"
)

type PlaceOrderRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required,max=1000"`
	BillingAddress  string `json:"billing_address" validate:"omitempty,max=1000"`
	PaymentMethod   string `json:"payment_method" validate:"required,max=50"`
	Notes           string `json:"notes" validate:"omitempty,max=2000"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled refunded"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required,oneof=pending paid failed refunded"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
	pages    PageSettings
	debug    bool
}

func NewOrderHandler(service order.Service, pages PageSettings, debug bool) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: newValidator(),
		pages:    pages,
		debug:    debug,
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router, guards Guards) {
	router.Group(func(r chi.Router) {
		r.Use(guards.Authenticate)
		r.Post("/orders", h.handlePlaceOrder)
		r.Get("/orders", h.handleListOrders)
		r.Get("/orders/history", h.handleHistory)
		r.Get("/orders/recent", h.handleRecent)
		r.Get("/orders/statistics", h.handleStatistics)
		r.Get("/orders/{id}", h.handleGetOrder)
		r.Post("/orders/{id}/cancel", h.handleCancelOrder)
	})

	router.Group(func(r chi.Router) {
		r.Use(guards.Authenticate, guards.Require(authz.ManageOrders))
		r.Get("/admin/orders", h.handleAdminListOrders)
		r.Get("/admin/orders/statistics", h.handleAdminStatistics)
		r.Put("/admin/orders/{id}/status", h.handleUpdateStatus)
		r.Put("/admin/orders/{id}/payment", h.handleUpdatePaymentStatus)
	})
}

func (h *OrderHandler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	o, err := h.service.PlaceOrder(r.Context(), order.PlaceInput{
		UserID:          actorFrom(r).UserID,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusCreated, o)
}

// statusesQuery accepts a single status or a comma separated list.
func statusesQuery(r *http.Request) []order.Status {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil
	}
	var statuses []order.Status
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, order.Status(s))
		}
	}
	return statuses
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request, filter order.ListFilter) {
	orders, total, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, pagination.NewPage(orders, filter.Page, total))
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID := actorFrom(r).UserID
	h.listOrders(w, r, order.ListFilter{
		UserID:   &userID,
		Statuses: statusesQuery(r),
		Page:     h.pages.FromRequest(r),
	})
}

func (h *OrderHandler) handleAdminListOrders(w http.ResponseWriter, r *http.Request) {
	filter := order.ListFilter{
		Statuses:      statusesQuery(r),
		PaymentStatus: order.PaymentStatus(r.URL.Query().Get("payment_status")),
		Page:          h.pages.FromRequest(r),
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid user_id parameter")
			return
		}
		filter.UserID = &id
	}
	h.listOrders(w, r, filter)
}

func (h *OrderHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	page := h.pages.FromRequest(r)
	orders, total, err := h.service.History(r.Context(), actorFrom(r).UserID, page)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, pagination.NewPage(orders, page, total))
}

func (h *OrderHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", order.DefaultRecentLimit)
	if limit > h.pages.MaxPerPage {
		limit = h.pages.MaxPerPage
	}

	orders, err := h.service.Recent(r.Context(), actorFrom(r).UserID, limit)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	userID := actorFrom(r).UserID
	stats, err := h.service.Statistics(r.Context(), &userID)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func (h *OrderHandler) handleAdminStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context(), nil)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	o, err := h.service.GetOrder(r.Context(), actorFrom(r), id)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	o, err := h.service.CancelOrder(r.Context(), actorFrom(r), id)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	o, err := h.service.UpdateStatus(r.Context(), id, order.Status(req.Status))
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleUpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdatePaymentStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	o, err := h.service.UpdatePaymentStatus(r.Context(), id, order.PaymentStatus(req.PaymentStatus))
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}
