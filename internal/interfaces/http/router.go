// Package http assembles the HTTP surface of the search API: route tree,
// middleware stack, and the lifecycle-managed server.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/prometheus"
	"github.com/matsource/matsource/internal/interfaces/http/handlers"
	"github.com/matsource/matsource/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree.
type RouterConfig struct {
	SearchHandler *handlers.SearchHandler
	HealthHandler *handlers.HealthHandler

	Logger    logging.Logger
	Metrics   *prometheus.AppMetrics
	Collector prometheus.MetricsCollector

	CORS    middleware.CORSConfig
	Logging middleware.LoggingConfig
}

// NewRouter constructs the complete route tree: global middleware, health
// probes, the metrics endpoint, and the v1 search API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, cfg.Metrics, cfg.Logging))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.Collector != nil {
		r.Handle("/metrics", cfg.Collector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.SearchHandler != nil {
			api.Post("/materials/search", cfg.SearchHandler.Search)
		}
	})

	return r
}
