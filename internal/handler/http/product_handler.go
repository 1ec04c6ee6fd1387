package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/pagination"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/product"
)

type ProductRequest struct {
	CategoryID    string           `json:"category_id" validate:"required,uuid"`
	Name          string           `json:"name" validate:"required,max=255"`
	Description   string           `json:"description" validate:"omitempty,max=5000"`
	SKU           string           `json:"sku" validate:"required,max=64"`
	Price         *decimal.Decimal `json:"price" validate:"required"`
	StockQuantity *int             `json:"stock_quantity" validate:"required,gte=0"`
	IsActive      *bool            `json:"is_active"`
}

type UpdateStockRequest struct {
	StockQuantity *int `json:"stock_quantity" validate:"required,gte=0"`
}

type ProductHandler struct {
	service      product.Service
	validate     *validator.Validate
	pages        PageSettings
	trendingDays int
	debug        bool
}

func NewProductHandler(service product.Service, pages PageSettings, trendingDays int, debug bool) *ProductHandler {
	return &ProductHandler{
		service:      service,
		validate:     newValidator(),
		pages:        pages,
		trendingDays: trendingDays,
		debug:        debug,
	}
}

func (h *ProductHandler) RegisterRoutes(router chi.Router, guards Guards) {
	router.Get("/products", h.handleListProducts(false))
	router.Get("/products/most-sold", h.handleMostSold)
	router.Get("/products/most-reviewed", h.handleMostReviewed)
	router.Get("/products/trending", h.handleTrending)
	router.Get("/products/{id}", h.handleGetProduct)

	router.Group(func(r chi.Router) {
		r.Use(guards.Authenticate, guards.Require(authz.ManageCatalog))
		r.Get("/admin/products", h.handleListProducts(true))
		r.Post("/admin/products", h.handleCreateProduct)
		r.Put("/admin/products/{id}", h.handleUpdateProduct)
		r.Patch("/admin/products/{id}/stock", h.handleUpdateStock)
		r.Delete("/admin/products/{id}", h.handleDeleteProduct)
	})
}

func (h *ProductHandler) handleListProducts(includeInactive bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := product.ListFilter{
			Search:          q.Get("search"),
			InStock:         boolQuery(r, "in_stock"),
			IncludeInactive: includeInactive,
			SortBy:          q.Get("sort_by"),
			SortOrder:       q.Get("sort_order"),
			Page:            h.pages.FromRequest(r),
		}

		if raw := q.Get("category_id"); raw != "" {
			id, err := uuid.FromString(raw)
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "Invalid category_id parameter")
				return
			}
			filter.CategoryID = &id
		}

		var err error
		if filter.MinPrice, err = decimalQuery(r, "min_price"); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if filter.MaxPrice, err = decimalQuery(r, "max_price"); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		if raw := q.Get("min_rating"); raw != "" {
			rating, err := strconv.ParseFloat(raw, 64)
			if err != nil || rating < 0 || rating > 5 {
				respondWithError(w, http.StatusBadRequest, "min_rating must be between 0 and 5")
				return
			}
			filter.MinRating = &rating
		}

		products, total, err := h.service.ListProducts(r.Context(), filter)
		if err != nil {
			respondWithServiceError(w, r, err, h.debug)
			return
		}

		respondWithJSON(w, http.StatusOK, pagination.NewPage(products, filter.Page, total))
	}
}

func (h *ProductHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.service.GetProductDetail(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, detail)
}

func (h *ProductHandler) handleMostSold(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.MostSold(r.Context(), intQuery(r, "limit", product.DefaultReportLimit))
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) handleMostReviewed(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.MostReviewed(r.Context(), intQuery(r, "limit", product.DefaultReportLimit))
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) handleTrending(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", product.DefaultReportLimit)
	days := intQuery(r, "days", h.trendingDays)

	products, err := h.service.Trending(r.Context(), limit, days)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (req ProductRequest) toInput() product.Input {
	return product.Input{
		CategoryID:    uuid.FromStringOrNil(req.CategoryID),
		Name:          req.Name,
		Description:   req.Description,
		SKU:           req.SKU,
		Price:         *req.Price,
		StockQuantity: *req.StockQuantity,
		IsActive:      req.IsActive,
	}
}

func (h *ProductHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	p, err := h.service.CreateProduct(r.Context(), req.toInput())
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), id, req.toInput())
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateStockRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	p, err := h.service.UpdateStock(r.Context(), id, *req.StockQuantity)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Product deleted successfully."})
}
