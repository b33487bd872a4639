package material

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightedScore(t *testing.T) {
	b := SustainabilityBreakdown{
		Renewable:        80,
		CarbonFootprint:  60,
		Biodegradability: 90,
		Toxicity:         70,
	}
	// 0.25*80 + 0.30*60 + 0.25*90 + 0.20*70 = 20 + 18 + 22.5 + 14 = 74.5 → 75
	assert.Equal(t, 75, b.WeightedScore())

	assert.Equal(t, 0, SustainabilityBreakdown{}.WeightedScore())
	assert.Equal(t, 100, SustainabilityBreakdown{100, 100, 100, 100}.WeightedScore())
}

func TestImportance_Valid(t *testing.T) {
	assert.True(t, ImportanceMustHave.Valid())
	assert.True(t, ImportancePreferred.Valid())
	assert.True(t, ImportanceNiceToHave.Valid())
	assert.False(t, Importance("critical").Valid())
}

func TestRecord_HasProperty(t *testing.T) {
	r := &Record{Properties: []Property{
		{Name: "Density", Value: "1.2 g/cm3", Source: SourceDatabase},
	}}
	assert.True(t, r.HasProperty("Density"))
	assert.True(t, r.HasProperty("density"))
	assert.True(t, r.HasProperty("DENSITY"))
	assert.False(t, r.HasProperty("Band Gap"))
}

func TestSearchRequest_WantSummary(t *testing.T) {
	var req SearchRequest
	assert.True(t, req.WantSummary(), "summary defaults to on")

	no := false
	req.IncludeAISummary = &no
	assert.False(t, req.WantSummary())

	yes := true
	req.IncludeAISummary = &yes
	assert.True(t, req.WantSummary())
}

func TestSearchRequest_JSONShape(t *testing.T) {
	body := `{
		"query": "PLA",
		"includeAISummary": false,
		"propertyRequirements": [
			{"property": "Tensile Strength", "value": ">80", "unit": "MPa", "importance": "must-have"}
		]
	}`
	var req SearchRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, "PLA", req.Query)
	assert.False(t, req.WantSummary())
	require.Len(t, req.PropertyRequirements, 1)
	assert.Equal(t, ImportanceMustHave, req.PropertyRequirements[0].Importance)
}

func TestRecord_JSONOmitsRequirementFieldsWhenAbsent(t *testing.T) {
	data, err := json.Marshal(Record{Name: "Polylactic Acid"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "requirementMatchScore")
	assert.NotContains(t, string(data), "propertyMatches")
}
