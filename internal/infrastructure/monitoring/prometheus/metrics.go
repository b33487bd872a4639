package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Search pipeline
	SearchRequestsTotal   CounterVec
	SearchDuration        HistogramVec
	SearchResultCount     HistogramVec
	SearchExpansionTerms  HistogramVec
	ExcludedQueriesTotal  CounterVec
	SyntheticRecordsTotal CounterVec

	// External providers
	ProviderRequestsTotal CounterVec
	ProviderDuration      HistogramVec

	// AI completion steps
	CompletionRequestsTotal CounterVec
	CompletionDuration      HistogramVec
	EstimationsTotal        CounterVec

	// Infrastructure
	DBQueryDuration  HistogramVec
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	// System health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultSearchDurationBuckets = []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultResultCountBuckets    = []float64{0, 1, 2, 5, 10, 20, 50}
	DefaultDBDurationBuckets     = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers all metrics and returns the AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Search pipeline
	m.SearchRequestsTotal = collector.RegisterCounter("search_requests_total", "Material searches", "status", "has_requirements")
	m.SearchDuration = collector.RegisterHistogram("search_duration_seconds", "End-to-end search duration", DefaultSearchDurationBuckets, "has_requirements")
	m.SearchResultCount = collector.RegisterHistogram("search_result_count", "Results returned per search", DefaultResultCountBuckets, "has_requirements")
	m.SearchExpansionTerms = collector.RegisterHistogram("search_expansion_terms", "Expanded terms per query", []float64{1, 2, 4, 8, 12, 16})
	m.ExcludedQueriesTotal = collector.RegisterCounter("search_excluded_queries_total", "Queries recognized as category terms")
	m.SyntheticRecordsTotal = collector.RegisterCounter("search_synthetic_records_total", "Records synthesized from external data alone")

	// External providers
	m.ProviderRequestsTotal = collector.RegisterCounter("provider_requests_total", "External provider lookups", "provider", "status")
	m.ProviderDuration = collector.RegisterHistogram("provider_request_duration_seconds", "External provider lookup duration", DefaultHTTPDurationBuckets, "provider")

	// AI completions
	m.CompletionRequestsTotal = collector.RegisterCounter("completion_requests_total", "AI completion calls", "operation", "status")
	m.CompletionDuration = collector.RegisterHistogram("completion_duration_seconds", "AI completion duration", []float64{.5, 1, 2, 5, 10, 30, 60}, "operation")
	m.EstimationsTotal = collector.RegisterCounter("property_estimations_total", "AI property estimations", "matched")

	// Infrastructure
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")

	// System health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type")

	return m
}

// Helpers

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordSearch(metrics *AppMetrics, success, hasRequirements bool, results int, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	req := strconv.FormatBool(hasRequirements)
	metrics.SearchRequestsTotal.WithLabelValues(status, req).Inc()
	metrics.SearchDuration.WithLabelValues(req).Observe(duration.Seconds())
	metrics.SearchResultCount.WithLabelValues(req).Observe(float64(results))
}

func RecordProviderCall(metrics *AppMetrics, provider string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(provider, status).Inc()
	metrics.ProviderDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func RecordCompletion(metrics *AppMetrics, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	metrics.CompletionRequestsTotal.WithLabelValues(operation, status).Inc()
	metrics.CompletionDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordError(metrics *AppMetrics, component, errorType string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
