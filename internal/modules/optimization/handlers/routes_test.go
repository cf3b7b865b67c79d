package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRoutes(t *testing.T) {
	service := optimization.NewService(optimization.NewAllocator(optimization.DefaultConfig(), zerolog.Nop()), nil, zerolog.Nop())
	handler := NewHandler(service, zerolog.Nop())

	router := chi.NewRouter()
	require.NotPanics(t, func() {
		handler.RegisterRoutes(router)
	}, "RegisterRoutes should not panic")

	testCases := []struct {
		method string
		path   string
		name   string
	}{
		{"POST", "/optimization/black-litterman", "BlackLitterman"},
		{"GET", "/optimization/runs", "ListRuns"},
		{"GET", "/optimization/runs/abc", "GetRun"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			// GetRun answers 404 for unknown IDs with a JSON body; chi's own 404 is plain text.
			if rec.Code == http.StatusNotFound {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
			assert.NotEqual(t, http.StatusMethodNotAllowed, rec.Code)
		})
	}
}

func TestRegisterRoutes_RoutePrefix(t *testing.T) {
	service := optimization.NewService(optimization.NewAllocator(optimization.DefaultConfig(), zerolog.Nop()), nil, zerolog.Nop())
	handler := NewHandler(service, zerolog.Nop())

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	req := httptest.NewRequest("GET", "/runs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code, "Route without /optimization prefix should return 404")
}
