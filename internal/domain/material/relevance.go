package material

import (
	"strings"

	"github.com/hbollon/go-edlib"
)

// Relevance tiers of the name/synonym scoring ladder, checked in precedence
// order against the original query.
const (
	scoreExactName      = 100
	scoreNamePrefix     = 95
	scoreExactSynonym   = 90
	scoreNameContains   = 85
	scorePartialSynonym = 75
	scoreViaQueryTerm   = 70
	scoreBaseline       = 60

	// ScoreExternalOnly is the fixed low-confidence floor assigned to a
	// record synthesised purely from external provider data.
	ScoreExternalOnly = 30

	// partialSynonymSimilarity is the fuzzy-similarity cutoff for the
	// partial-synonym tier when neither string contains the other.
	partialSynonymSimilarity = 0.80
)

// RelevanceScore computes the 0-100 relevance of a material's name and
// synonyms to the original query, using a fixed precedence ladder:
//
//	exact name 100 > name prefix 95 > exact synonym 90 > name substring 85
//	> partial synonym overlap 75 > surfaced via a term equal to the query 70
//	> 60 otherwise
//
// viaTerm is the expanded search term through which the hit surfaced; it
// only participates in the two lowest tiers.  Callers keep the maximum
// score seen per entity across all expansion terms.
func RelevanceScore(query, name string, synonyms []string, viaTerm string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	n := strings.ToLower(strings.TrimSpace(name))
	if q == "" || n == "" {
		return scoreBaseline
	}

	if n == q {
		return scoreExactName
	}
	if strings.HasPrefix(n, q) {
		return scoreNamePrefix
	}
	for _, syn := range synonyms {
		if strings.ToLower(strings.TrimSpace(syn)) == q {
			return scoreExactSynonym
		}
	}
	if strings.Contains(n, q) {
		return scoreNameContains
	}
	for _, syn := range synonyms {
		if partialOverlap(q, strings.ToLower(strings.TrimSpace(syn))) {
			return scorePartialSynonym
		}
	}
	if strings.EqualFold(strings.TrimSpace(viaTerm), q) {
		return scoreViaQueryTerm
	}
	return scoreBaseline
}

// partialOverlap reports whether the query and a synonym overlap partially:
// one contains the other, or they are close by normalised Levenshtein
// similarity.  The fuzzy leg absorbs spelling variants ("polycarbonat" vs
// "polycarbonate") that substring checks miss.
func partialOverlap(query, synonym string) bool {
	if query == "" || synonym == "" {
		return false
	}
	if strings.Contains(synonym, query) || strings.Contains(query, synonym) {
		return true
	}
	sim, err := edlib.StringsSimilarity(query, synonym, edlib.Levenshtein)
	if err != nil {
		return false
	}
	return float64(sim) >= partialSynonymSimilarity
}
