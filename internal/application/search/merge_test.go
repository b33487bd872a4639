package search

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsource/matsource/internal/infrastructure/database/postgres/repositories"
	"github.com/matsource/matsource/pkg/types/material"
)

func storedMaterial(name string, synonyms ...string) *repositories.StoredMaterial {
	return &repositories.StoredMaterial{
		ID:       uuid.New(),
		Name:     name,
		Category: "polymer",
		Synonyms: synonyms,
	}
}

func TestMergeLocalKeepsMaxScoreAcrossTerms(t *testing.T) {
	// The same entity surfaces via two expanded terms: one equal to the
	// original query (tier 70) and one unrelated (tier 60).  The merged
	// record keeps the maximum.
	entity := storedMaterial("Polyamide")
	hits := map[string][]*repositories.StoredMaterial{
		"nylon":       {entity},
		"polyamide 6": {entity},
	}

	out := mergeLocal("nylon", hits)
	require.Len(t, out, 1)
	assert.Equal(t, "Polyamide", out[0].Name)
	assert.Equal(t, 70, out[0].MatchScore)
}

func TestMergeLocalExactNameScoresFull(t *testing.T) {
	hits := map[string][]*repositories.StoredMaterial{
		"polylactic acid": {
			storedMaterial("Polylactic Acid", "PLA"),
			storedMaterial("Polylactic Acid Blend"),
		},
	}

	out := mergeLocal("polylactic acid", hits)
	require.Len(t, out, 2)
	assert.Equal(t, "Polylactic Acid", out[0].Name)
	assert.Equal(t, 100, out[0].MatchScore)
	assert.Equal(t, 95, out[1].MatchScore) // name prefix
}

func TestMergeLocalSynonymTier(t *testing.T) {
	hits := map[string][]*repositories.StoredMaterial{
		"PLA": {storedMaterial("Polylactic Acid", "PLA", "polylactide")},
	}

	out := mergeLocal("PLA", hits)
	require.Len(t, out, 1)
	assert.GreaterOrEqual(t, out[0].MatchScore, 90)
}

func TestRecordFromStored(t *testing.T) {
	desc := "A biodegradable polyester."
	formula := "C3H4O2"
	m := &repositories.StoredMaterial{
		ID:              uuid.New(),
		Name:            "Polylactic Acid",
		ChemicalFormula: &formula,
		Category:        "bioplastic",
		Description:     &desc,
		Synonyms:        []string{"PLA"},
		Properties: []repositories.StoredProperty{
			{Name: "Density", Value: "1.24 g/cm3", Category: "physical"},
		},
		Applications: []string{"packaging"},
		Regulations:  []string{"FDA food contact"},
		Suppliers:    []repositories.StoredSupplier{{Company: "NatureWorks", Country: "US"}},
		Sustainability: &repositories.StoredSustainability{
			Renewable:        90,
			CarbonFootprint:  70,
			Biodegradability: 85,
			Toxicity:         80,
		},
	}

	rec := recordFromStored(m)

	assert.Equal(t, "Polylactic Acid", rec.Name)
	assert.Equal(t, []string{material.SourceDatabase}, rec.SourcesUsed)

	require.Len(t, rec.Properties, 2)
	assert.Equal(t, "Description", rec.Properties[0].Name)
	assert.Equal(t, material.CategoryDescription, rec.Properties[0].Category)
	assert.Equal(t, "Density", rec.Properties[1].Name)
	assert.Equal(t, material.SourceDatabase, rec.Properties[1].Source)

	require.Len(t, rec.Applications, 1)
	assert.Equal(t, material.SourceDatabase, rec.Applications[0].Source)
	require.Len(t, rec.Suppliers, 1)
	assert.Equal(t, "NatureWorks", rec.Suppliers[0].Company)

	require.NotNil(t, rec.Sustainability)
	// 0.25*90 + 0.30*70 + 0.25*85 + 0.20*80 = 80.75 -> 81
	assert.Equal(t, 81, rec.Sustainability.Score)
	assert.Equal(t, material.SourceDatabase, rec.Sustainability.Source)
}

func TestMergeExternalLocalWins(t *testing.T) {
	rec := &material.Record{
		Name: "Polylactic Acid",
		Properties: []material.Property{
			{Name: "Density", Value: "1.2 g/cm3", Source: material.SourceDatabase},
		},
		SourcesUsed: []string{material.SourceDatabase},
	}

	mergeExternal(rec, []material.Property{
		{Name: "density", Value: "1.25", Source: material.SourceMatWeb},
		{Name: "Melting Point", Value: "160 C", Source: material.SourceMatWeb},
	})

	var densities []material.Property
	for _, p := range rec.Properties {
		if p.Name == "Density" || p.Name == "density" {
			densities = append(densities, p)
		}
	}
	require.Len(t, densities, 1)
	assert.Equal(t, material.SourceDatabase, densities[0].Source)
	assert.Equal(t, "1.2 g/cm3", densities[0].Value)

	assert.True(t, rec.HasProperty("Melting Point"))
	assert.Contains(t, rec.SourcesUsed, material.SourceMatWeb)
}

func TestMarkSourceDeduplicates(t *testing.T) {
	rec := &material.Record{SourcesUsed: []string{material.SourceDatabase}}
	markSource(rec, material.SourcePubChem)
	markSource(rec, material.SourcePubChem)
	assert.Equal(t, []string{material.SourceDatabase, material.SourcePubChem}, rec.SourcesUsed)
}

func TestLooksSystematic(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"PLA", false},
		{"Polylactic Acid", false},
		{"a long trade name without any numbers", false},
		{"2-hydroxypropanoic acid homopolymer", true},
		{"poly(oxy-1,2-ethanediyl) derivative", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, looksSystematic(tc.name), tc.name)
	}
}
