// Package material defines the wire and data model shared across the
// MatSource retrieval engine: the ranked MaterialRecord, its property and
// provenance carriers, and the caller-supplied property requirements.
//
// Records are constructed fresh per request from the store plus live external
// calls; they are never persisted by the query engine.
package material

import "strings"

// Source names attached to properties, applications, and regulations for
// provenance.  The local store always takes precedence over external sources
// when the same property name appears twice.
const (
	SourceDatabase      = "MatSource Database"
	SourcePubChem       = "PubChem"
	SourceMatProject    = "Materials Project"
	SourceMatWeb        = "MatWeb"
	SourceAIAnalysis    = "AI Analysis"
	SourceAIEstimate    = "AI Estimate"
)

// PropertyCategory classifies a property for display grouping.
type PropertyCategory string

const (
	CategoryDescription   PropertyCategory = "description"
	CategoryPhysical      PropertyCategory = "physical"
	CategoryMechanical    PropertyCategory = "mechanical"
	CategoryThermal       PropertyCategory = "thermal"
	CategorySafety        PropertyCategory = "safety"
	CategoryEnvironmental PropertyCategory = "environmental"
)

// Property is a single named value with provenance.  Value is always a
// display string (possibly a range or inequality); numeric parsing happens
// on demand in the requirement matcher.
type Property struct {
	Name      string           `json:"name"`
	Value     string           `json:"value"`
	Source    string           `json:"source"`
	SourceURL string           `json:"sourceUrl,omitempty"`
	Category  PropertyCategory `json:"category"`
}

// Application is a known use of a material.
type Application struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// Regulation is a regulatory or certification label.
type Regulation struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// Supplier is a company known to supply a material.
type Supplier struct {
	Company string `json:"company"`
	Country string `json:"country"`
	Source  string `json:"source"`
}

// SustainabilityBreakdown carries the four 0-100 sustainability axes.
type SustainabilityBreakdown struct {
	Renewable        int `json:"renewable"`
	CarbonFootprint  int `json:"carbonFootprint"`
	Biodegradability int `json:"biodegradability"`
	Toxicity         int `json:"toxicity"`
}

// Sustainability is an overall 0-100 score with its axis breakdown.
// Score is always the weighted combination of the breakdown axes
// (renewable 25%, carbon footprint 30%, biodegradability 25%, toxicity 20%),
// even when the originating source supplied its own overall value.
type Sustainability struct {
	Score         int                     `json:"score"`
	Breakdown     SustainabilityBreakdown `json:"breakdown"`
	Source        string                  `json:"source"`
	Justification string                  `json:"justification,omitempty"`
}

// WeightedScore computes the canonical overall score from the breakdown.
func (b SustainabilityBreakdown) WeightedScore() int {
	score := 0.25*float64(b.Renewable) +
		0.30*float64(b.CarbonFootprint) +
		0.25*float64(b.Biodegradability) +
		0.20*float64(b.Toxicity)
	return int(score + 0.5)
}

// Importance is the weight tier of a property requirement.
type Importance string

const (
	ImportanceMustHave   Importance = "must-have"
	ImportancePreferred  Importance = "preferred"
	ImportanceNiceToHave Importance = "nice-to-have"
)

// Valid reports whether the importance is one of the three known tiers.
func (i Importance) Valid() bool {
	switch i {
	case ImportanceMustHave, ImportancePreferred, ImportanceNiceToHave:
		return true
	}
	return false
}

// PropertyRequirement is a caller-supplied constraint on a property value.
type PropertyRequirement struct {
	Property   string     `json:"property"`
	Value      string     `json:"value"`
	Unit       string     `json:"unit"`
	Importance Importance `json:"importance"`
}

// MatchType describes how a requirement was (or was not) satisfied.
type MatchType string

const (
	MatchExact       MatchType = "exact"
	MatchRange       MatchType = "range"
	MatchPartial     MatchType = "partial"
	MatchAIEstimated MatchType = "ai-estimated"
	MatchNotFound    MatchType = "not-found"
)

// PropertyMatchResult records the outcome of matching one requirement
// against one candidate.
type PropertyMatchResult struct {
	Property   string    `json:"property"`
	Required   string    `json:"required"`
	Actual     *string   `json:"actual"`
	Matches    bool      `json:"matches"`
	MatchType  MatchType `json:"matchType"`
	Confidence int       `json:"confidence"`
}

// Record is the unit produced and ranked by a search.
type Record struct {
	// Name is the display name.  When the canonical name is a long
	// systematic/IUPAC-style string it may be substituted with an
	// AI-derived common name; the original is preserved in IUPACName.
	Name            string                `json:"name"`
	IUPACName       *string               `json:"iupacName"`
	Synonyms        []string              `json:"synonyms"`
	ChemicalFormula *string               `json:"chemicalFormula"`
	Category        string                `json:"category"`
	Properties      []Property            `json:"properties"`
	Applications    []Application         `json:"applications"`
	Regulations     []Regulation          `json:"regulations"`
	Sustainability  *Sustainability       `json:"sustainability"`
	Suppliers       []Supplier            `json:"suppliers"`
	AISummary       string                `json:"aiSummary"`
	SourcesUsed     []string              `json:"sourcesUsed"`

	// MatchScore is the 0-100 name/synonym relevance to the original
	// query, independent of requirement matching.
	MatchScore int `json:"matchScore"`

	// RequirementMatchScore is present only when requirements were
	// supplied with the query.
	RequirementMatchScore *int                  `json:"requirementMatchScore,omitempty"`
	PropertyMatches       []PropertyMatchResult `json:"propertyMatches,omitempty"`
}

// HasProperty reports whether the record already carries a property with the
// given case-insensitive name.
func (r *Record) HasProperty(name string) bool {
	for _, p := range r.Properties {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// SearchRequest is the inbound search payload.
type SearchRequest struct {
	Query                string                `json:"query"`
	IncludeAISummary     *bool                 `json:"includeAISummary,omitempty"`
	PropertyRequirements []PropertyRequirement `json:"propertyRequirements,omitempty"`
}

// WantSummary reports whether AI summaries were requested (default true).
func (r *SearchRequest) WantSummary() bool {
	return r.IncludeAISummary == nil || *r.IncludeAISummary
}

// SearchResponse is the outbound search payload.
type SearchResponse struct {
	Query                   string   `json:"query"`
	ExpandedTerms           []string `json:"expandedTerms"`
	Results                 []Record `json:"results"`
	TotalResults            int      `json:"totalResults"`
	SourcesUsed             []string `json:"sourcesUsed"`
	HasPropertyRequirements bool     `json:"hasPropertyRequirements"`
}
