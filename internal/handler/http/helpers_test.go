package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	handler "github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/handler/http"
)

type routeRegistrar interface {
	RegisterRoutes(router chi.Router, guards handler.Guards)
}

func newRouter(h routeRegistrar, guards handler.Guards) *chi.Mux {
	router := chi.NewRouter()
	h.RegisterRoutes(router, guards)
	return router
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Buffer
	switch b := body.(type) {
	case nil:
		payload = &bytes.Buffer{}
	case string:
		payload = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		payload = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "failed to decode response body")
	return v
}

func httpRequest(method, path, authorization string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
