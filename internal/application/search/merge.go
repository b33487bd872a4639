package search

import (
	"sort"
	"strings"

	domain "github.com/matsource/matsource/internal/domain/material"
	"github.com/matsource/matsource/internal/infrastructure/database/postgres/repositories"
	"github.com/matsource/matsource/pkg/types/material"
)

// mergeLocal folds the per-term store results into one record per entity.
// Every entity keeps the maximum relevance score it reached across all of
// the expanded terms it surfaced through; duplicate hits of the same entity
// via different terms never produce duplicate records.
func mergeLocal(query string, hits map[string][]*repositories.StoredMaterial) []*material.Record {
	type scored struct {
		rec   *material.Record
		score int
	}
	byID := make(map[string]*scored)
	var order []string

	for term, materials := range hits {
		for _, m := range materials {
			score := domain.RelevanceScore(query, m.Name, m.Synonyms, term)
			id := m.ID.String()
			if existing, ok := byID[id]; ok {
				if score > existing.score {
					existing.score = score
					existing.rec.MatchScore = score
				}
				continue
			}
			rec := recordFromStored(m)
			rec.MatchScore = score
			byID[id] = &scored{rec: rec, score: score}
			order = append(order, id)
		}
	}

	out := make([]*material.Record, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id].rec)
	}
	// map iteration order is random; make the merge deterministic before
	// the final score sort so ties keep a stable order.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MatchScore != out[j].MatchScore {
			return out[i].MatchScore > out[j].MatchScore
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// recordFromStored converts a stored entity into a response record with
// full database provenance.
func recordFromStored(m *repositories.StoredMaterial) *material.Record {
	rec := &material.Record{
		Name:            m.Name,
		Synonyms:        m.Synonyms,
		ChemicalFormula: m.ChemicalFormula,
		Category:        m.Category,
		SourcesUsed:     []string{material.SourceDatabase},
	}

	if m.Description != nil && *m.Description != "" {
		rec.Properties = append(rec.Properties, material.Property{
			Name:     "Description",
			Value:    *m.Description,
			Source:   material.SourceDatabase,
			Category: material.CategoryDescription,
		})
	}
	for _, p := range m.Properties {
		rec.Properties = append(rec.Properties, material.Property{
			Name:     p.Name,
			Value:    p.Value,
			Source:   material.SourceDatabase,
			Category: material.PropertyCategory(p.Category),
		})
	}
	for _, a := range m.Applications {
		rec.Applications = append(rec.Applications, material.Application{
			Name:   a,
			Source: material.SourceDatabase,
		})
	}
	for _, r := range m.Regulations {
		rec.Regulations = append(rec.Regulations, material.Regulation{
			Name:   r,
			Source: material.SourceDatabase,
		})
	}
	for _, s := range m.Suppliers {
		rec.Suppliers = append(rec.Suppliers, material.Supplier{
			Company: s.Company,
			Country: s.Country,
			Source:  material.SourceDatabase,
		})
	}
	if m.Sustainability != nil {
		breakdown := material.SustainabilityBreakdown{
			Renewable:        m.Sustainability.Renewable,
			CarbonFootprint:  m.Sustainability.CarbonFootprint,
			Biodegradability: m.Sustainability.Biodegradability,
			Toxicity:         m.Sustainability.Toxicity,
		}
		rec.Sustainability = &material.Sustainability{
			Score:         breakdown.WeightedScore(),
			Breakdown:     breakdown,
			Source:        material.SourceDatabase,
			Justification: m.Sustainability.Justification,
		}
	}
	return rec
}

// mergeExternal adds externally sourced properties to a record.  A property
// is only added when no property with the same case-insensitive name exists
// yet, so the local store (and any earlier external source) always wins.
func mergeExternal(rec *material.Record, props []material.Property) {
	for _, p := range props {
		if rec.HasProperty(p.Name) {
			continue
		}
		rec.Properties = append(rec.Properties, p)
		markSource(rec, p.Source)
	}
}

// markSource appends a provenance source to the record once.
func markSource(rec *material.Record, source string) {
	for _, s := range rec.SourcesUsed {
		if s == source {
			return
		}
	}
	rec.SourcesUsed = append(rec.SourcesUsed, source)
}

// sortRecords orders records descending by the given score, breaking ties
// by name so output order is deterministic.
func sortRecords(records []*material.Record, score func(*material.Record) int) {
	sort.SliceStable(records, func(i, j int) bool {
		si, sj := score(records[i]), score(records[j])
		if si != sj {
			return si > sj
		}
		return records[i].Name < records[j].Name
	})
}

// systematicNameLength is the display-name length beyond which a name with
// locant punctuation is treated as a systematic/IUPAC-style name and a
// common-name substitution is attempted.
const systematicNameLength = 25

// looksSystematic reports whether a canonical name reads like a systematic
// chemical name rather than a trade or common name.
func looksSystematic(name string) bool {
	if len(name) < systematicNameLength {
		return false
	}
	return strings.ContainsAny(name, "0123456789,()[]")
}
