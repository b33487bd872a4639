// Package repositories contains the PostgreSQL implementation of the
// material store.
package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/errgroup"

	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/prometheus"
	"github.com/matsource/matsource/pkg/errors"
)

// DB is the query surface the repository needs.  Satisfied by *pgxpool.Pool
// and by pgx mocks in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// StoredProperty is one property row of a stored material.
type StoredProperty struct {
	Name     string
	Value    string
	Category string
}

// StoredSupplier is one supplier row of a stored material.
type StoredSupplier struct {
	Company string
	Country string
}

// StoredSustainability is the sustainability row of a stored material.
type StoredSustainability struct {
	Renewable        int
	CarbonFootprint  int
	Biodegradability int
	Toxicity         int
	Justification    string
}

// StoredMaterial is a fully-resolved material entity as the store keeps it.
type StoredMaterial struct {
	ID              uuid.UUID
	Name            string
	ChemicalFormula *string
	Category        string
	Description     *string
	Synonyms        []string
	Properties      []StoredProperty
	Applications    []string
	Regulations     []string
	Sustainability  *StoredSustainability
	Suppliers       []StoredSupplier
}

// MaterialRepository is the PostgreSQL material store.
type MaterialRepository struct {
	db      DB
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

// NewMaterialRepository constructs a ready-to-use MaterialRepository.
// metrics may be nil.
func NewMaterialRepository(db DB, metrics *prometheus.AppMetrics, logger logging.Logger) *MaterialRepository {
	return &MaterialRepository{db: db, metrics: metrics, logger: logger.Named("material_repo")}
}

// observe times one repository operation into the query histogram.  Use as
// defer r.observe("op")().
func (r *MaterialRepository) observe(operation string) func() {
	if r.metrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		r.metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// SearchTerm finds every stored material matching one search term: the union
// of a synonym substring match, a name/formula match, and a category
// substring match.  Matched entities are resolved to full records with one
// fetch per entity, fanned out concurrently.
func (r *MaterialRepository) SearchTerm(ctx context.Context, term string) ([]*StoredMaterial, error) {
	defer r.observe("search_term")()

	ids, err := r.searchIDs(ctx, term)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	results := make([]*StoredMaterial, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			m, err := r.FetchMaterial(gctx, id)
			if err != nil {
				return err
			}
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// searchIDs unions the three ID lookup strategies for a term.
func (r *MaterialRepository) searchIDs(ctx context.Context, term string) ([]uuid.UUID, error) {
	pattern := "%" + term + "%"

	queries := []string{
		`SELECT DISTINCT material_id FROM material_synonyms WHERE synonym ILIKE $1`,
		`SELECT id FROM materials WHERE name ILIKE $1 OR chemical_formula ILIKE $2`,
		`SELECT id FROM materials WHERE category ILIKE $1`,
	}

	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for i, q := range queries {
		args := []interface{}{pattern}
		if i == 1 {
			// formula lookups are exact, names are substring
			args = append(args, term)
		}
		rows, err := r.db.Query(ctx, q, args...)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeStoreQueryError, "material id search failed")
		}
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, errors.Wrap(err, errors.CodeStoreQueryError, "material id scan failed")
			}
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CodeStoreQueryError, "material id search failed")
		}
	}
	return ids, nil
}

// FetchMaterial resolves one material with all related records.
func (r *MaterialRepository) FetchMaterial(ctx context.Context, id uuid.UUID) (*StoredMaterial, error) {
	defer r.observe("fetch_material")()

	m := &StoredMaterial{ID: id}

	err := r.db.QueryRow(ctx,
		`SELECT name, chemical_formula, category, description FROM materials WHERE id = $1`, id).
		Scan(&m.Name, &m.ChemicalFormula, &m.Category, &m.Description)
	if err == pgx.ErrNoRows {
		return nil, errors.New(errors.CodeMaterialNotFound, "material not found").
			WithDetail(id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryError, "material fetch failed")
	}

	if m.Synonyms, err = r.stringColumn(ctx,
		`SELECT synonym FROM material_synonyms WHERE material_id = $1 ORDER BY synonym`, id); err != nil {
		return nil, err
	}
	if m.Applications, err = r.stringColumn(ctx,
		`SELECT name FROM material_applications WHERE material_id = $1 ORDER BY name`, id); err != nil {
		return nil, err
	}
	if m.Regulations, err = r.stringColumn(ctx,
		`SELECT name FROM material_regulations WHERE material_id = $1 ORDER BY name`, id); err != nil {
		return nil, err
	}
	if m.Properties, err = r.properties(ctx, id); err != nil {
		return nil, err
	}
	if m.Suppliers, err = r.suppliers(ctx, id); err != nil {
		return nil, err
	}
	if m.Sustainability, err = r.sustainability(ctx, id); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MaterialRepository) stringColumn(ctx context.Context, query string, id uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryError, "related record fetch failed")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, errors.Wrap(err, errors.CodeStoreQueryError, "related record scan failed")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *MaterialRepository) properties(ctx context.Context, id uuid.UUID) ([]StoredProperty, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, value, category FROM material_properties WHERE material_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryError, "property fetch failed")
	}
	defer rows.Close()

	var out []StoredProperty
	for rows.Next() {
		var p StoredProperty
		if err := rows.Scan(&p.Name, &p.Value, &p.Category); err != nil {
			return nil, errors.Wrap(err, errors.CodeStoreQueryError, "property scan failed")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *MaterialRepository) suppliers(ctx context.Context, id uuid.UUID) ([]StoredSupplier, error) {
	rows, err := r.db.Query(ctx,
		`SELECT company, country FROM material_suppliers WHERE material_id = $1 ORDER BY company`, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryError, "supplier fetch failed")
	}
	defer rows.Close()

	var out []StoredSupplier
	for rows.Next() {
		var s StoredSupplier
		if err := rows.Scan(&s.Company, &s.Country); err != nil {
			return nil, errors.Wrap(err, errors.CodeStoreQueryError, "supplier scan failed")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *MaterialRepository) sustainability(ctx context.Context, id uuid.UUID) (*StoredSustainability, error) {
	var s StoredSustainability
	err := r.db.QueryRow(ctx,
		`SELECT renewable, carbon_footprint, biodegradability, toxicity, justification
		 FROM material_sustainability WHERE material_id = $1`, id).
		Scan(&s.Renewable, &s.CarbonFootprint, &s.Biodegradability, &s.Toxicity, &s.Justification)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryError, "sustainability fetch failed")
	}
	return &s, nil
}

// ExcludedTerms returns the full excluded-term list.  Used as the loader
// behind the TTL-bounded category-term cache.
func (r *MaterialRepository) ExcludedTerms(ctx context.Context) ([]string, error) {
	defer r.observe("excluded_terms")()

	rows, err := r.db.Query(ctx, `SELECT term FROM excluded_terms`)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryError, "excluded term fetch failed")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, errors.Wrap(err, errors.CodeStoreQueryError, "excluded term scan failed")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SearchTerms runs SearchTerm for every term concurrently and returns the
// per-term results keyed by term.  Terms beyond maxTerms are ignored.
func (r *MaterialRepository) SearchTerms(ctx context.Context, terms []string, maxTerms int) (map[string][]*StoredMaterial, error) {
	if maxTerms > 0 && len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}

	var mu sync.Mutex
	out := make(map[string][]*StoredMaterial, len(terms))

	g, gctx := errgroup.WithContext(ctx)
	for _, term := range terms {
		term := term
		g.Go(func() error {
			hits, err := r.SearchTerm(gctx, term)
			if err != nil {
				return err
			}
			mu.Lock()
			out[term] = hits
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
