package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	handler "github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/handler/http"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/metrics"
)

// RouteRegistrar is implemented by every HTTP handler in the service.
type RouteRegistrar interface {
	RegisterRoutes(router chi.Router, guards handler.Guards)
}

func NewRouter(guards handler.Guards, handlers ...RouteRegistrar) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handler.RequestLogger)
	r.Use(handler.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not found."}`))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"message":"Method not allowed."}`))
	})

	for _, h := range handlers {
		h.RegisterRoutes(r, guards)
	}

	return r
}
