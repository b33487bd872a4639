package material

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
)

// TermLoader fetches the current excluded-term list from its persistent
// backing (the material store's excluded_terms table).
type TermLoader func(ctx context.Context) ([]string, error)

// ExcludedTerms is a time-boxed cache of category/use-case terms (for
// example "bioplastics") that must never be treated as a literal material
// name.  The backing set is refreshed at most once per TTL window and
// swapped atomically, so readers never observe a half-updated set; a load
// failure degrades to an empty set rather than blocking search.
type ExcludedTerms struct {
	loader TermLoader
	ttl    time.Duration
	logger logging.Logger

	mu       sync.RWMutex
	terms    map[string]struct{}
	loadedAt time.Time

	group singleflight.Group
}

// NewExcludedTerms constructs the cache.  The first lookup triggers the
// initial load.
func NewExcludedTerms(loader TermLoader, ttl time.Duration, logger logging.Logger) *ExcludedTerms {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ExcludedTerms{
		loader: loader,
		ttl:    ttl,
		logger: logger.Named("excluded_terms"),
		terms:  map[string]struct{}{},
	}
}

// IsCategoryTerm reports whether query is a category/use-case term.  The
// query is normalised (lowercase, trim), then checked directly, then as a
// singular/plural variant, then with a trailing "material"/"materials"
// stripped.
func (e *ExcludedTerms) IsCategoryTerm(ctx context.Context, query string) bool {
	terms := e.current(ctx)
	if len(terms) == 0 {
		return false
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}

	for _, candidate := range variants(q) {
		if _, ok := terms[candidate]; ok {
			return true
		}
	}
	return false
}

// variants returns the normalised query plus its singular/plural forms and
// its "... material(s)"-stripped form.
func variants(q string) []string {
	out := []string{q}
	if strings.HasSuffix(q, "s") {
		out = append(out, strings.TrimSuffix(q, "s"))
	} else {
		out = append(out, q+"s")
	}
	for _, suffix := range []string{" materials", " material"} {
		if strings.HasSuffix(q, suffix) {
			out = append(out, strings.TrimSpace(strings.TrimSuffix(q, suffix)))
		}
	}
	return out
}

// current returns the backing set, refreshing it when stale.  Concurrent
// refreshes collapse into one load via singleflight; readers holding the old
// set keep using it until the swap.
func (e *ExcludedTerms) current(ctx context.Context) map[string]struct{} {
	e.mu.RLock()
	fresh := time.Since(e.loadedAt) < e.ttl
	terms := e.terms
	e.mu.RUnlock()

	if fresh {
		return terms
	}

	loaded, _, _ := e.group.Do("refresh", func() (interface{}, error) {
		next := e.load(ctx)
		e.mu.Lock()
		e.terms = next
		e.loadedAt = time.Now()
		e.mu.Unlock()
		return next, nil
	})
	return loaded.(map[string]struct{})
}

// load fetches and normalises the term list.  On failure it returns an empty
// set: correctness degrades gracefully (terms stop being excluded) rather
// than failing the caller.
func (e *ExcludedTerms) load(ctx context.Context) map[string]struct{} {
	raw, err := e.loader(ctx)
	if err != nil {
		e.logger.Warn("excluded-term load failed; continuing with empty set", logging.Err(err))
		return map[string]struct{}{}
	}
	next := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			next[t] = struct{}{}
		}
	}
	return next
}
