package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/prometheus"
	"github.com/matsource/matsource/pkg/errors"
)

type fakeChecker struct {
	name string
	err  error
}

func (f *fakeChecker) Name() string                    { return f.name }
func (f *fakeChecker) Check(ctx context.Context) error { return f.err }

func TestLivenessAlwaysOK(t *testing.T) {
	h := NewHealthHandler("1.2.3", nil, &fakeChecker{name: "postgres", err: errors.New(errors.CodeInternal, "down")})

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestReadinessAllHealthy(t *testing.T) {
	h := NewHealthHandler("dev", nil,
		&fakeChecker{name: "postgres"},
		&fakeChecker{name: "redis"},
	)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "healthy", resp.Components["postgres"].Status)
	assert.Equal(t, "healthy", resp.Components["redis"].Status)
}

func TestReadinessUnhealthyDependency(t *testing.T) {
	h := NewHealthHandler("dev", nil,
		&fakeChecker{name: "postgres"},
		&fakeChecker{name: "redis", err: errors.New(errors.CodeCacheError, "connection refused")},
	)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "unhealthy", resp.Components["redis"].Status)
	assert.NotEmpty(t, resp.Components["redis"].Error)
}

func TestReadinessNoCheckers(t *testing.T) {
	h := NewHealthHandler("dev", nil)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessRecordsComponentGauges(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	m := prometheus.NewAppMetrics(collector)

	h := NewHealthHandler("dev", m,
		&fakeChecker{name: "postgres"},
		&fakeChecker{name: "redis", err: errors.New(errors.CodeCacheError, "down")})

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	scrape := httptest.NewRecorder()
	collector.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()
	assert.Contains(t, body, `health_check_status{component="postgres"} 1`)
	assert.Contains(t, body, `health_check_status{component="redis"} 0`)
}
