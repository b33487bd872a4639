package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/prometheus"
	"github.com/matsource/matsource/internal/interfaces/http/handlers"
	"github.com/matsource/matsource/internal/interfaces/http/middleware"
	"github.com/matsource/matsource/pkg/types/material"
)

type stubSearcher struct{}

func (stubSearcher) Search(ctx context.Context, req *material.SearchRequest) (*material.SearchResponse, error) {
	return &material.SearchResponse{Query: req.Query, Results: []material.Record{}}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(
		prometheus.CollectorConfig{Namespace: "matsource"}, logging.NewNopLogger())
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)
	return NewRouter(RouterConfig{
		SearchHandler: handlers.NewSearchHandler(stubSearcher{}, logging.NewNopLogger()),
		HealthHandler: handlers.NewHealthHandler("test", nil),
		Logger:        logging.NewNopLogger(),
		Metrics:       metrics,
		Collector:     collector,
		CORS:          middleware.DefaultCORSConfig(),
		Logging:       middleware.DefaultLoggingConfig(),
	})
}

func TestRouterHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	// drive one logged request so the HTTP counters have a series to expose
	seed := httptest.NewRequest(http.MethodPost, "/api/v1/materials/search",
		strings.NewReader(`{"query": "PLA"}`))
	router.ServeHTTP(httptest.NewRecorder(), seed)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "matsource_http_requests_total")
}

func TestRouterSearchRoute(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/materials/search",
		strings.NewReader(`{"query": "PLA"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"query":"PLA"`)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterSearchMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/materials/search", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
