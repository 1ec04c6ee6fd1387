package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/pagination"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/review"
)

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"omitempty,max=2000"`
}

type ApproveReviewRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=1000"`
}

type RejectReviewRequest struct {
	Notes string `json:"notes" validate:"required,max=1000"`
}

type ReviewHandler struct {
	service  review.Service
	validate *validator.Validate
	pages    PageSettings
	debug    bool
}

func NewReviewHandler(service review.Service, pages PageSettings, debug bool) *ReviewHandler {
	return &ReviewHandler{
		service:  service,
		validate: newValidator(),
		pages:    pages,
		debug:    debug,
	}
}

func (h *ReviewHandler) RegisterRoutes(router chi.Router, guards Guards) {
	router.Get("/products/{id}/reviews", h.handleProductReviews)

	router.Group(func(r chi.Router) {
		r.Use(guards.Authenticate)
		r.Post("/products/{id}/reviews", h.handleSubmitReview)
		r.Put("/reviews/{id}", h.handleUpdateReview)
		r.Delete("/reviews/{id}", h.handleDeleteReview)
		r.Get("/me/reviews", h.handleMyReviews)
	})

	router.Group(func(r chi.Router) {
		r.Use(guards.Authenticate, guards.Require(authz.ModerateReviews))
		r.Get("/admin/reviews", h.handleAdminListReviews)
		r.Post("/admin/reviews/{id}/approve", h.handleApprove)
		r.Post("/admin/reviews/{id}/reject", h.handleReject)
	})
}

func (h *ReviewHandler) respondWithPage(w http.ResponseWriter, r *http.Request, reviews []review.Review, page pagination.Params, total int, err error) {
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, pagination.NewPage(reviews, page, total))
}

func (h *ReviewHandler) handleProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	page := h.pages.FromRequest(r)
	reviews, total, err := h.service.ProductReviews(r.Context(), productID, page)
	h.respondWithPage(w, r, reviews, page, total, err)
}

func (h *ReviewHandler) handleMyReviews(w http.ResponseWriter, r *http.Request) {
	page := h.pages.FromRequest(r)
	reviews, total, err := h.service.UserReviews(r.Context(), actorFrom(r).UserID, page)
	h.respondWithPage(w, r, reviews, page, total, err)
}

func (h *ReviewHandler) handleAdminListReviews(w http.ResponseWriter, r *http.Request) {
	page := h.pages.FromRequest(r)
	reviews, total, err := h.service.ListReviews(r.Context(), review.ListFilter{
		Status: review.Status(r.URL.Query().Get("status")),
		Page:   page,
	})
	h.respondWithPage(w, r, reviews, page, total, err)
}

func (h *ReviewHandler) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req ReviewRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	rv, created, err := h.service.SubmitReview(r.Context(), actorFrom(r), productID, review.Input{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}

	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	respondWithJSON(w, code, rv)
}

func (h *ReviewHandler) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req ReviewRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	rv, err := h.service.UpdateReview(r.Context(), actorFrom(r), id, review.Input{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, rv)
}

func (h *ReviewHandler) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteReview(r.Context(), actorFrom(r), id); err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Review deleted successfully."})
}

func (h *ReviewHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req ApproveReviewRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	rv, err := h.service.Approve(r.Context(), actorFrom(r), id, req.Notes)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, rv)
}

func (h *ReviewHandler) handleReject(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req RejectReviewRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	rv, err := h.service.Reject(r.Context(), actorFrom(r), id, req.Notes)
	if err != nil {
		respondWithServiceError(w, r, err, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, rv)
}
