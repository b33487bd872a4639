// Package search implements the material search pipeline: query expansion,
// parallel local and external retrieval, merge with provenance, AI-backed
// enrichment, and optional property-requirement validation.
package search

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matsource/matsource/internal/config"
	domain "github.com/matsource/matsource/internal/domain/material"
	"github.com/matsource/matsource/internal/infrastructure/database/postgres/repositories"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/prometheus"
	"github.com/matsource/matsource/internal/infrastructure/providers"
	"github.com/matsource/matsource/internal/intelligence"
	"github.com/matsource/matsource/pkg/errors"
	"github.com/matsource/matsource/pkg/types/material"
)

// Store is the slice of the material repository the search pipeline needs.
type Store interface {
	SearchTerms(ctx context.Context, terms []string, maxTerms int) (map[string][]*repositories.StoredMaterial, error)
}

// Intelligence is the slice of the AI completion service the pipeline needs.
type Intelligence interface {
	Expand(ctx context.Context, query string) []string
	Description(ctx context.Context, name, category string) (string, error)
	Safety(ctx context.Context, name string) (*intelligence.SafetyProfile, error)
	Summary(ctx context.Context, rec *material.Record) (string, error)
	CommonName(ctx context.Context, systematic string) (string, error)
	Regulations(ctx context.Context, name, category string, applications []string) ([]material.Regulation, error)
	Sustainability(ctx context.Context, name, category string, properties []material.Property) (*material.Sustainability, error)
	EstimateProperty(ctx context.Context, materialName, propertyName string) (*intelligence.Estimate, error)
}

// ChemistryProvider resolves a material name to compound chemistry data.
type ChemistryProvider interface {
	Lookup(ctx context.Context, name string) *providers.PubChemResult
}

// StructureProvider resolves a chemical formula to crystal-structure data.
type StructureProvider interface {
	Lookup(ctx context.Context, formula string) *providers.MatProjectResult
}

// DatasheetProvider resolves a material name to scraped datasheet properties.
type DatasheetProvider interface {
	Lookup(ctx context.Context, name string) *providers.MatWebResult
}

// CategoryGate recognizes category/use-case queries that must never be
// treated as literal material names.
type CategoryGate interface {
	IsCategoryTerm(ctx context.Context, query string) bool
}

// Service orchestrates one material search end to end.
type Service struct {
	store     Store
	intel     Intelligence
	chemistry ChemistryProvider
	structure StructureProvider
	datasheet DatasheetProvider
	gate      CategoryGate
	cfg       config.SearchConfig
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
}

// NewService wires the search pipeline.  metrics may be nil.
func NewService(
	store Store,
	intel Intelligence,
	chemistry ChemistryProvider,
	structure StructureProvider,
	datasheet DatasheetProvider,
	gate CategoryGate,
	cfg config.SearchConfig,
	metrics *prometheus.AppMetrics,
	logger logging.Logger,
) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.MaxLocalTerms <= 0 {
		cfg.MaxLocalTerms = 10
	}
	if cfg.DeriveConcurrency <= 0 {
		cfg.DeriveConcurrency = 4
	}
	return &Service{
		store:     store,
		intel:     intel,
		chemistry: chemistry,
		structure: structure,
		datasheet: datasheet,
		gate:      gate,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger.Named("search"),
	}
}

// external carries the awaited results of the provider fan-out.
type external struct {
	chem      *providers.PubChemResult
	structure *providers.MatProjectResult
	datasheet *providers.MatWebResult
	desc      string
	safety    *intelligence.SafetyProfile
}

// any reports whether at least one external source produced data.
func (e *external) any() bool {
	return e.chem != nil || e.structure != nil || e.datasheet != nil ||
		e.desc != "" || (e.safety != nil && !e.safety.Empty())
}

// Search runs the full pipeline for one request.
func (s *Service) Search(ctx context.Context, req *material.SearchRequest) (*material.SearchResponse, error) {
	started := time.Now()
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, errors.New(errors.CodeInvalidParam, "query must not be blank")
	}

	terms, hits, ext := s.retrieve(ctx, query)

	records := mergeLocal(query, hits)
	extProps := s.externalProperties(ext)
	for _, rec := range records {
		mergeExternal(rec, extProps)
	}

	if len(records) == 0 && ext.any() {
		if s.gate != nil && s.gate.IsCategoryTerm(ctx, query) {
			s.logger.Info("category-term query; skipping synthetic record",
				logging.String("query", query))
			if s.metrics != nil {
				s.metrics.ExcludedQueriesTotal.WithLabelValues().Inc()
			}
		} else {
			records = append(records, s.syntheticRecord(query, ext, extProps))
			if s.metrics != nil {
				s.metrics.SyntheticRecordsTotal.WithLabelValues().Inc()
			}
		}
	}

	s.deriveMissing(ctx, records, req.WantSummary())

	hasReqs := len(req.PropertyRequirements) > 0
	if hasReqs {
		records = s.validate(ctx, records, req.PropertyRequirements)
	} else {
		sortByMatchScore(records)
	}

	if s.cfg.MaxResults > 0 && len(records) > s.cfg.MaxResults {
		records = records[:s.cfg.MaxResults]
	}

	resp := &material.SearchResponse{
		Query:                   query,
		ExpandedTerms:           terms,
		Results:                 flatten(records),
		TotalResults:            len(records),
		SourcesUsed:             unionSources(records),
		HasPropertyRequirements: hasReqs,
	}

	if s.metrics != nil {
		prometheus.RecordSearch(s.metrics, true, hasReqs, len(records), time.Since(started))
		s.metrics.SearchExpansionTerms.WithLabelValues().Observe(float64(len(terms)))
	}
	s.logger.Info("search completed",
		logging.String("query", query),
		logging.Int("expanded_terms", len(terms)),
		logging.Int("results", len(records)),
		logging.Duration("elapsed", time.Since(started)))
	return resp, nil
}

// retrieve fans out query expansion, the local per-term searches, and every
// independent external provider.  The structure lookup waits on the
// chemistry lookup inside its own branch because it needs the formula;
// everything else runs against the original query concurrently.  Failures
// never abort the search: providers collapse to nil and a store failure
// degrades to an empty local result set.
func (s *Service) retrieve(ctx context.Context, query string) ([]string, map[string][]*repositories.StoredMaterial, *external) {
	terms := []string{query}
	hits := map[string][]*repositories.StoredMaterial{}
	ext := &external{}

	var g errgroup.Group
	g.Go(func() error {
		terms = s.intel.Expand(ctx, query)
		local, err := s.store.SearchTerms(ctx, terms, s.cfg.MaxLocalTerms)
		if err != nil {
			s.logger.Error("local search failed; continuing with external data only",
				logging.String("query", query), logging.Err(err))
			if s.metrics != nil {
				prometheus.RecordError(s.metrics, "store", "search")
			}
			return nil
		}
		hits = local
		return nil
	})
	g.Go(func() error {
		ext.chem = s.chemistry.Lookup(ctx, query)
		if formula := ext.chem.Formula(); formula != "" {
			ext.structure = s.structure.Lookup(ctx, formula)
		}
		return nil
	})
	g.Go(func() error {
		ext.datasheet = s.datasheet.Lookup(ctx, query)
		return nil
	})
	g.Go(func() error {
		desc, err := s.intel.Description(ctx, query, "")
		if err != nil {
			s.logger.Debug("description generation failed", logging.Err(err))
			return nil
		}
		ext.desc = desc
		return nil
	})
	g.Go(func() error {
		safety, err := s.intel.Safety(ctx, query)
		if err != nil {
			s.logger.Debug("safety generation failed", logging.Err(err))
			return nil
		}
		ext.safety = safety
		return nil
	})
	g.Wait() //nolint:errcheck // branches never return errors

	return terms, hits, ext
}

// externalProperties flattens the provider fan-out into one property list in
// fixed precedence order: chemistry, structure, datasheet, AI description,
// AI safety.
func (s *Service) externalProperties(ext *external) []material.Property {
	var props []material.Property
	props = append(props, ext.chem.Properties()...)
	props = append(props, ext.structure.Properties()...)
	props = append(props, ext.datasheet.PropertyList()...)
	if ext.desc != "" {
		props = append(props, material.Property{
			Name:     "Description",
			Value:    ext.desc,
			Source:   material.SourceAIAnalysis,
			Category: material.CategoryDescription,
		})
	}
	if ext.safety != nil {
		props = append(props, safetyProperties(ext.safety)...)
	}
	return props
}

// safetyProperties converts a safety profile into display properties,
// keeping only the fields the model actually answered.
func safetyProperties(p *intelligence.SafetyProfile) []material.Property {
	add := func(props []material.Property, name, value string) []material.Property {
		if value == "" {
			return props
		}
		return append(props, material.Property{
			Name:     name,
			Value:    value,
			Source:   material.SourceAIAnalysis,
			Category: material.CategorySafety,
		})
	}
	var props []material.Property
	props = add(props, "Hazard Classification", p.HazardClassification)
	props = add(props, "Health Effects", p.HealthEffects)
	props = add(props, "Recommended PPE", p.RecommendedPPE)
	props = add(props, "CAS Number", p.CASNumber)
	return props
}

// syntheticRecord builds the single low-confidence record returned when the
// store knows nothing about the query but at least one external source does.
func (s *Service) syntheticRecord(query string, ext *external, props []material.Property) *material.Record {
	rec := &material.Record{
		Name:       query,
		Category:   "unknown",
		MatchScore: domain.ScoreExternalOnly,
	}
	if ext.chem != nil {
		if ext.chem.IUPACName != "" && !strings.EqualFold(ext.chem.IUPACName, query) {
			name := ext.chem.IUPACName
			rec.IUPACName = &name
		}
		if formula := ext.chem.Formula(); formula != "" {
			rec.ChemicalFormula = &formula
		}
	}
	mergeExternal(rec, props)
	s.logger.Info("no local match; synthesized record from external data",
		logging.String("query", query),
		logging.Int("properties", len(rec.Properties)))
	return rec
}

// deriveMissing runs the AI enrichment steps.  Records are enriched
// concurrently up to the configured width; steps within one record run in
// sequence because later prompts feed on earlier results.  Every failure is
// logged and skipped.
func (s *Service) deriveMissing(ctx context.Context, records []*material.Record, wantSummary bool) {
	var g errgroup.Group
	g.SetLimit(s.cfg.DeriveConcurrency)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			s.deriveRecord(ctx, rec, wantSummary)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // branches never return errors
}

func (s *Service) deriveRecord(ctx context.Context, rec *material.Record, wantSummary bool) {
	if len(rec.Regulations) == 0 {
		apps := make([]string, 0, len(rec.Applications))
		for _, a := range rec.Applications {
			apps = append(apps, a.Name)
		}
		regs, err := s.intel.Regulations(ctx, rec.Name, rec.Category, apps)
		if err != nil {
			s.logger.Debug("regulation derivation failed",
				logging.String("material", rec.Name), logging.Err(err))
		} else if len(regs) > 0 {
			rec.Regulations = regs
			markSource(rec, material.SourceAIAnalysis)
		}
	}

	if rec.Sustainability == nil {
		sus, err := s.intel.Sustainability(ctx, rec.Name, rec.Category, rec.Properties)
		if err != nil {
			s.logger.Debug("sustainability derivation failed",
				logging.String("material", rec.Name), logging.Err(err))
		} else if sus != nil {
			rec.Sustainability = sus
			markSource(rec, material.SourceAIAnalysis)
		}
	}

	if looksSystematic(rec.Name) {
		common, err := s.intel.CommonName(ctx, rec.Name)
		if err != nil {
			s.logger.Debug("common-name substitution failed",
				logging.String("material", rec.Name), logging.Err(err))
		} else {
			if rec.IUPACName == nil {
				original := rec.Name
				rec.IUPACName = &original
			}
			rec.Name = common
		}
	}

	if wantSummary {
		summary, err := s.intel.Summary(ctx, rec)
		if err != nil {
			s.logger.Debug("summary generation failed",
				logging.String("material", rec.Name), logging.Err(err))
		} else {
			rec.AISummary = summary
			markSource(rec, material.SourceAIAnalysis)
		}
	}
}

func sortByMatchScore(records []*material.Record) {
	sortRecords(records, func(r *material.Record) int { return r.MatchScore })
}

func flatten(records []*material.Record) []material.Record {
	out := make([]material.Record, len(records))
	for i, r := range records {
		out[i] = *r
	}
	return out
}

// unionSources collects the distinct provenance sources across all records,
// preserving first-seen order.
func unionSources(records []*material.Record) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range records {
		for _, src := range rec.SourcesUsed {
			if _, ok := seen[src]; ok {
				continue
			}
			seen[src] = struct{}{}
			out = append(out, src)
		}
	}
	return out
}
