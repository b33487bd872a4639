// Package providers contains the external data source adapters: the PubChem
// chemistry lookup, the Materials Project crystal/formation-energy lookup,
// and the MatWeb engineering-properties scrape.
//
// Adapters share one contract: a lookup returns its typed result, or nil for
// everything that is not a clean success — network failure, non-2xx status,
// unparsable payload, or a genuine "not found".  Partial provider failure is
// the normal operating mode of a federated search, so it is never an error
// the pipeline sees; failures are logged and counted here and the merge
// simply proceeds with fewer sources.
//
// Typed results (PubChemResult, MatProjectResult, MatWebResult) are carried
// through the pipeline as-is and flattened into display properties only at
// the merge boundary via their Properties methods.
package providers

import (
	"time"

	"github.com/matsource/matsource/internal/infrastructure/database/redis"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/prometheus"
)

// Provider label values for metrics and cache keys.
const (
	ProviderPubChem    = "pubchem"
	ProviderMatProject = "matproject"
	ProviderMatWeb     = "matweb"
)

// deps bundles what every adapter needs: the read-through cache, metrics,
// and a named logger.  Cache may be a no-op implementation; metrics may be
// nil in tests.
type deps struct {
	cache    redis.Cache
	cacheTTL time.Duration
	metrics  *prometheus.AppMetrics
	logger   logging.Logger
}

func (d *deps) record(provider string, success bool, started time.Time) {
	if d.metrics == nil {
		return
	}
	prometheus.RecordProviderCall(d.metrics, provider, success, time.Since(started))
}
