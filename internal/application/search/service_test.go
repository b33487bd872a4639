package search

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsource/matsource/internal/config"
	"github.com/matsource/matsource/internal/infrastructure/database/postgres/repositories"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/internal/infrastructure/providers"
	"github.com/matsource/matsource/internal/intelligence"
	"github.com/matsource/matsource/pkg/errors"
	"github.com/matsource/matsource/pkg/types/material"
)

type fakeStore struct {
	hits map[string][]*repositories.StoredMaterial
	err  error

	mu       sync.Mutex
	gotTerms []string
	gotMax   int
}

func (f *fakeStore) SearchTerms(ctx context.Context, terms []string, maxTerms int) (map[string][]*repositories.StoredMaterial, error) {
	f.mu.Lock()
	f.gotTerms = terms
	f.gotMax = maxTerms
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

// fakeIntel answers each AI operation from canned fields.  Zero-valued
// fields behave like a failed completion, which the pipeline must tolerate.
type fakeIntel struct {
	expand         []string
	description    string
	safety         *intelligence.SafetyProfile
	summary        string
	commonName     string
	regulations    []material.Regulation
	sustainability *material.Sustainability
	estimates      map[string]*intelligence.Estimate

	mu            sync.Mutex
	summaryCalls  int
	estimateCalls []string
}

var errCompletion = errors.New(errors.CodeCompletionError, "completion failed")

func (f *fakeIntel) Expand(ctx context.Context, query string) []string {
	if f.expand == nil {
		return []string{query}
	}
	return f.expand
}

func (f *fakeIntel) Description(ctx context.Context, name, category string) (string, error) {
	if f.description == "" {
		return "", errCompletion
	}
	return f.description, nil
}

func (f *fakeIntel) Safety(ctx context.Context, name string) (*intelligence.SafetyProfile, error) {
	if f.safety == nil {
		return nil, errCompletion
	}
	return f.safety, nil
}

func (f *fakeIntel) Summary(ctx context.Context, rec *material.Record) (string, error) {
	f.mu.Lock()
	f.summaryCalls++
	f.mu.Unlock()
	if f.summary == "" {
		return "", errCompletion
	}
	return f.summary, nil
}

func (f *fakeIntel) CommonName(ctx context.Context, systematic string) (string, error) {
	if f.commonName == "" {
		return "", errCompletion
	}
	return f.commonName, nil
}

func (f *fakeIntel) Regulations(ctx context.Context, name, category string, applications []string) ([]material.Regulation, error) {
	if f.regulations == nil {
		return nil, errCompletion
	}
	return f.regulations, nil
}

func (f *fakeIntel) Sustainability(ctx context.Context, name, category string, properties []material.Property) (*material.Sustainability, error) {
	if f.sustainability == nil {
		return nil, errCompletion
	}
	return f.sustainability, nil
}

func (f *fakeIntel) EstimateProperty(ctx context.Context, materialName, propertyName string) (*intelligence.Estimate, error) {
	f.mu.Lock()
	f.estimateCalls = append(f.estimateCalls, propertyName)
	f.mu.Unlock()
	est, ok := f.estimates[propertyName]
	if !ok {
		return nil, errCompletion
	}
	return est, nil
}

type fakeChemistry struct{ res *providers.PubChemResult }

func (f *fakeChemistry) Lookup(ctx context.Context, name string) *providers.PubChemResult {
	return f.res
}

type fakeStructure struct {
	res *providers.MatProjectResult

	mu          sync.Mutex
	gotFormulas []string
}

func (f *fakeStructure) Lookup(ctx context.Context, formula string) *providers.MatProjectResult {
	f.mu.Lock()
	f.gotFormulas = append(f.gotFormulas, formula)
	f.mu.Unlock()
	return f.res
}

type fakeDatasheet struct{ res *providers.MatWebResult }

func (f *fakeDatasheet) Lookup(ctx context.Context, name string) *providers.MatWebResult {
	return f.res
}

type fakeGate struct{ category bool }

func (f *fakeGate) IsCategoryTerm(ctx context.Context, query string) bool { return f.category }

type pipeline struct {
	store     *fakeStore
	intel     *fakeIntel
	chemistry *fakeChemistry
	structure *fakeStructure
	datasheet *fakeDatasheet
	gate      *fakeGate
	svc       *Service
}

func newTestPipeline() *pipeline {
	p := &pipeline{
		store:     &fakeStore{},
		intel:     &fakeIntel{},
		chemistry: &fakeChemistry{},
		structure: &fakeStructure{},
		datasheet: &fakeDatasheet{},
		gate:      &fakeGate{},
	}
	cfg := config.SearchConfig{MaxResults: 20, MaxLocalTerms: 10, DeriveConcurrency: 2}
	p.svc = NewService(p.store, p.intel, p.chemistry, p.structure, p.datasheet,
		p.gate, cfg, nil, logging.NewNopLogger())
	return p
}

func TestSearchRejectsBlankQuery(t *testing.T) {
	p := newTestPipeline()

	_, err := p.svc.Search(context.Background(), &material.SearchRequest{Query: "   "})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestSearchExactNameRanksFirst(t *testing.T) {
	p := newTestPipeline()
	p.store.hits = map[string][]*repositories.StoredMaterial{
		"polylactic acid": {
			storedMaterial("Polylactic Acid Blend"),
			storedMaterial("Polylactic Acid", "PLA"),
		},
	}

	resp, err := p.svc.Search(context.Background(), &material.SearchRequest{Query: "polylactic acid"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Polylactic Acid", resp.Results[0].Name)
	assert.Equal(t, 100, resp.Results[0].MatchScore)
	assert.False(t, resp.HasPropertyRequirements)
}

func TestSearchSynonymSurfacesMaterial(t *testing.T) {
	p := newTestPipeline()
	p.store.hits = map[string][]*repositories.StoredMaterial{
		"PLA": {storedMaterial("Polylactic Acid", "PLA")},
	}

	resp, err := p.svc.Search(context.Background(), &material.SearchRequest{Query: "PLA"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.GreaterOrEqual(t, resp.Results[0].MatchScore, 90)
}

func TestSearchLocalPropertyWinsOverExternal(t *testing.T) {
	p := newTestPipeline()
	m := storedMaterial("Polylactic Acid", "PLA")
	m.Properties = []repositories.StoredProperty{
		{Name: "Density", Value: "1.2 g/cm3", Category: "physical"},
	}
	p.store.hits = map[string][]*repositories.StoredMaterial{"PLA": {m}}
	p.datasheet.res = &providers.MatWebResult{
		PageURL: "http://example.test/materials/Pla",
		Properties: []providers.MatWebProperty{
			{Name: "Density", Value: "1.25"},
			{Name: "Tensile Strength", Value: "60 MPa"},
		},
	}

	resp, err := p.svc.Search(context.Background(), &material.SearchRequest{Query: "PLA"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	var densities []material.Property
	for _, prop := range resp.Results[0].Properties {
		if prop.Name == "Density" {
			densities = append(densities, prop)
		}
	}
	require.Len(t, densities, 1)
	assert.Equal(t, material.SourceDatabase, densities[0].Source)
	assert.Equal(t, "1.2 g/cm3", densities[0].Value)
	assert.Contains(t, resp.SourcesUsed, material.SourceMatWeb)
}

func TestSearchStructureLookupChainsOnFormula(t *testing.T) {
	p := newTestPipeline()
	p.chemistry.res = &providers.PubChemResult{
		CID:              612,
		MolecularFormula: "C3H6O3",
		IUPACName:        "2-hydroxypropanoic acid",
	}

	_, err := p.svc.Search(context.Background(), &material.SearchRequest{Query: "lactic acid"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C3H6O3"}, p.structure.gotFormulas)
}

func TestSearchSyntheticRecordFromExternalOnly(t *testing.T) {
	p := newTestPipeline()
	p.chemistry.res = &providers.PubChemResult{
		CID:              612,
		MolecularFormula: "C3H6O3",
		MolecularWeight:  "90.08",
		IUPACName:        "2-hydroxypropanoic acid",
	}

	resp, err := p.svc.Search(context.Background(), &material.SearchRequest{Query: "lactic acid"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	rec := resp.Results[0]
	assert.Equal(t, 30, rec.MatchScore)
	assert.Equal(t, "lactic acid", rec.Name)
	require.NotNil(t, rec.IUPACName)
	assert.Equal(t, "2-hydroxypropanoic acid", *rec.IUPACName)
	require.NotNil(t, rec.ChemicalFormula)
	assert.Equal(t, "C3H6O3", *rec.ChemicalFormula)
	assert.Contains(t, rec.SourcesUsed, material.SourcePubChem)
}

func TestSearchCategoryTermBlocksSyntheticRecord(t *testing.T) {
	p := newTestPipeline()
	p.gate.category = true
	p.datasheet.res = &providers.MatWebResult{
		PageURL:    "http://example.test/materials/Bioplastics",
		Properties: []providers.MatWebProperty{{Name: "Density", Value: "1.3"}},
	}

	resp, err := p.svc.Search(context.Background(), &material.SearchRequest{Query: "bioplastics"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.TotalResults)
}

func TestSearchNoResultsAtAll(t *testing.T) {
	p := newTestPipeline()

	resp, err := p.svc.Search(context.Background(), &material.SearchRequest{Query: "unobtainium"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearchStoreFailureDegradesToExternal(t *testing.T) {
	p := newTestPipeline()
	p.store.err = errors.New(errors.CodeStoreQueryError, "connection refused")
	p.chemistry.res = &providers.PubChemResult{CID: 2244, MolecularFormula: "C9H8O4"}

	resp, err := p.svc.Search(context.Background(), &material.SearchRequest{Query: "aspirin"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 30, resp.Results[0].MatchScore)
}

func TestSearchSummaryToggle(t *testing.T) {
	p := newTestPipeline()
	p.store.hits = map[string][]*repositories.StoredMaterial{
		"PLA": {storedMaterial("Polylactic Acid", "PLA")},
	}
	p.intel.summary = "A compostable thermoplastic."
	off := false

	resp, err := p.svc.Search(context.Background(), &material.SearchRequest{
		Query:            "PLA",
		IncludeAISummary: &off,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Empty(t, resp.Results[0].AISummary)
	assert.Zero(t, p.intel.summaryCalls)

	resp, err = p.svc.Search(context.Background(), &material.SearchRequest{Query: "PLA"})
	require.NoError(t, err)
	assert.Equal(t, "A compostable thermoplastic.", resp.Results[0].AISummary)
}

func TestSearchDerivesRegulationsAndSustainability(t *testing.T) {
	p := newTestPipeline()
	p.store.hits = map[string][]*repositories.StoredMaterial{
		"PLA": {storedMaterial("Polylactic Acid", "PLA")},
	}
	p.intel.regulations = []material.Regulation{
		{Name: "FDA food contact", Source: material.SourceAIAnalysis},
	}
	p.intel.sustainability = &material.Sustainability{
		Score:  81,
		Source: material.SourceAIAnalysis,
	}

	resp, err := p.svc.Search(context.Background(), &material.SearchRequest{Query: "PLA"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	rec := resp.Results[0]
	require.Len(t, rec.Regulations, 1)
	assert.Equal(t, "FDA food contact", rec.Regulations[0].Name)
	require.NotNil(t, rec.Sustainability)
	assert.Equal(t, 81, rec.Sustainability.Score)
	assert.Contains(t, rec.SourcesUsed, material.SourceAIAnalysis)
}

func TestSearchCommonNameSubstitution(t *testing.T) {
	p := newTestPipeline()
	p.store.hits = map[string][]*repositories.StoredMaterial{
		"lactic acid": {storedMaterial("2-hydroxypropanoic acid homopolymer")},
	}
	p.intel.commonName = "Polylactic Acid"

	resp, err := p.svc.Search(context.Background(), &material.SearchRequest{Query: "lactic acid"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	rec := resp.Results[0]
	assert.Equal(t, "Polylactic Acid", rec.Name)
	require.NotNil(t, rec.IUPACName)
	assert.Equal(t, "2-hydroxypropanoic acid homopolymer", *rec.IUPACName)
}

func TestSearchExpandedTermsDriveLocalSearch(t *testing.T) {
	p := newTestPipeline()
	p.intel.expand = []string{"PLA", "polylactic acid", "polylactide"}

	resp, err := p.svc.Search(context.Background(), &material.SearchRequest{Query: "PLA"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PLA", "polylactic acid", "polylactide"}, resp.ExpandedTerms)
	assert.Equal(t, []string{"PLA", "polylactic acid", "polylactide"}, p.store.gotTerms)
	assert.Equal(t, 10, p.store.gotMax)
}

func TestSearchCapsResults(t *testing.T) {
	p := newTestPipeline()
	hits := make([]*repositories.StoredMaterial, 5)
	for i := range hits {
		hits[i] = storedMaterial("Polymer " + string(rune('A'+i)))
	}
	p.store.hits = map[string][]*repositories.StoredMaterial{"polymer": {hits[0], hits[1], hits[2], hits[3], hits[4]}}
	p.svc.cfg.MaxResults = 3

	resp, err := p.svc.Search(context.Background(), &material.SearchRequest{Query: "polymer"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
	assert.Equal(t, 3, resp.TotalResults)
}
