package intelligence

import (
	"context"
	"time"

	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/prometheus"
)

// Service groups every AI-backed step of the retrieval pipeline around a
// single Completer.  All methods degrade gracefully: a completion failure
// produces a zero result and an error the caller is expected to log and
// absorb, never to propagate to the API response.
type Service struct {
	completer Completer
	metrics   *prometheus.AppMetrics
	logger    logging.Logger

	// maxExpansionTerms bounds the number of expansion terms kept beyond
	// the original query.
	maxExpansionTerms int
}

// NewService constructs the AI service.  metrics may be nil.
func NewService(completer Completer, maxExpansionTerms int, metrics *prometheus.AppMetrics, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if maxExpansionTerms <= 0 {
		maxExpansionTerms = 15
	}
	return &Service{
		completer:         completer,
		metrics:           metrics,
		logger:            logger.Named("intelligence"),
		maxExpansionTerms: maxExpansionTerms,
	}
}

// complete funnels every AI step through one instrumented call so each
// operation shows up in the completion counters and latency histogram.
func (s *Service) complete(ctx context.Context, operation, system, user string) (string, error) {
	start := time.Now()
	resp, err := s.completer.Complete(ctx, system, user)
	if s.metrics != nil {
		prometheus.RecordCompletion(s.metrics, operation, err == nil, time.Since(start))
	}
	return resp, err
}
