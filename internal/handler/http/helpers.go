package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/category"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/order"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/pagination"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/product"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/review"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/user"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/wishlist"
)

const validationFailedMessage = "The given data was invalid."

type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type ValidationErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Message: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenRevoked),
		errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, authz.ErrForbidden),
		errors.Is(err, user.ErrInactive):
		return http.StatusForbidden
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, category.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, review.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, wishlist.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, user.ErrEmailExists),
		errors.Is(err, user.ErrIncorrectPassword),
		errors.Is(err, user.ErrInvalidRole),
		errors.Is(err, category.ErrNameExists),
		errors.Is(err, category.ErrInvalidName),
		errors.Is(err, product.ErrSKUExists),
		errors.Is(err, product.ErrCategoryNotFound),
		errors.Is(err, product.ErrInvalidPrice),
		errors.Is(err, product.ErrInvalidStock),
		errors.Is(err, review.ErrInvalidRating),
		errors.Is(err, review.ErrNotesRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, user.ErrCannotDeleteSelf),
		errors.Is(err, category.ErrHasProducts),
		errors.Is(err, product.ErrInsufficientStock),
		errors.Is(err, product.ErrUnavailable),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrNotCancellable),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrInvalidPaymentStatus),
		errors.Is(err, order.ErrMissingShippingAddress),
		errors.Is(err, review.ErrAlreadyApproved),
		errors.Is(err, review.ErrInvalidStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

const genericErrorMessage = "Something went wrong. Please try again later."

// respondWithServiceError maps a service error to its status. Unexpected errors are
// logged and answered with a generic message; in debug mode the raw text is attached.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, debug bool) {
	code := mapErrorToStatusCode(err)
	if code != http.StatusInternalServerError {
		respondWithError(w, code, err.Error())
		return
	}

	log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Unhandled service error")

	resp := ErrorResponse{Message: genericErrorMessage}
	if debug {
		resp.Error = err.Error()
	}
	respondWithJSON(w, code, resp)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func formatValidationErrors(errs validator.ValidationErrors) map[string][]string {
	details := make(map[string][]string, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		details[field] = append(details[field], validationMessage(fe))
	}
	return details
}

func validationMessage(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s must be at least %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("The %s must be at least %s.", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s may not be greater than %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("The %s may not be greater than %s.", field, fe.Param())
	case "gte":
		return fmt.Sprintf("The %s must be greater than or equal to %s.", field, fe.Param())
	case "lte":
		return fmt.Sprintf("The %s must be less than or equal to %s.", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s confirmation does not match.", field)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", field)
	case "uuid4", "uuid":
		return fmt.Sprintf("The %s must be a valid UUID.", field)
	default:
		return fmt.Sprintf("The %s is invalid.", field)
	}
}

// decodeAndValidate reads a JSON body into dst and validates it, writing the
// error response itself. It reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
				Message: validationFailedMessage,
				Errors:  formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return false
	}

	return true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.FromString(raw)
	if err != nil {
		log.Warn().Err(err).Str(name, raw).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func boolQuery(r *http.Request, name string) *bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func decimalQuery(r *http.Request, name string) (*decimal.Decimal, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &d, nil
}

// actorFrom returns the authenticated caller. Routes that call it sit behind Authenticate.
func actorFrom(r *http.Request) *authz.Actor {
	actor, _ := authz.ActorFromContext(r.Context())
	return actor
}

// PageSettings bounds the page size accepted by list endpoints.
type PageSettings struct {
	DefaultPerPage int
	MaxPerPage     int
}

func (s PageSettings) FromRequest(r *http.Request) pagination.Params {
	return pagination.FromQuery(r.URL.Query(), s.DefaultPerPage, s.MaxPerPage)
}
