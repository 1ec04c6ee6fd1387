package http

import (
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/user"
)

// Guards holds the middleware every handler uses to protect its routes.
type Guards struct {
	auth   auth.Service
	policy *authz.Policy
}

func NewGuards(authService auth.Service, policy *authz.Policy) Guards {
	return Guards{auth: authService, policy: policy}
}

// Authenticate resolves the bearer token into an actor stored on the request context.
func (g Guards) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}

		actor, err := g.auth.Authenticate(r.Context(), raw)
		if err != nil {
			switch {
			case errors.Is(err, user.ErrInactive):
				respondWithError(w, http.StatusForbidden, "Your account has been deactivated.")
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenRevoked):
				respondWithError(w, http.StatusUnauthorized, "Unauthenticated.")
			default:
				log.Error().Err(err).Msg("Failed to authenticate request")
				respondWithError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(authz.WithActor(r.Context(), actor)))
	})
}

// Require admits only actors holding capability. It must run after Authenticate.
func (g Guards) Require(capability authz.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := authz.ActorFromContext(r.Context())
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "Unauthenticated.")
				return
			}
			if !g.policy.Can(actor, capability) {
				log.Warn().Stringer("user_id", actor.UserID).Str("capability", string(capability)).
					Str("path", r.URL.Path).Msg("Capability check failed")
				respondWithError(w, http.StatusForbidden, "This action is unauthorized.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, auth.TokenType) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequestLogger logs one line per request with the chi request id.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// Recoverer answers a panicking request with the generic JSON 500 body.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			log.Error().
				Interface("panic", rvr).
				Bytes("stack", debug.Stack()).
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("Recovered from panic")

			respondWithError(w, http.StatusInternalServerError, genericErrorMessage)
		}()

		next.ServeHTTP(w, r)
	})
}
