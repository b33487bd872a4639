package material

import (
	"strings"

	"github.com/matsource/matsource/pkg/types/material"
)

// exactTolerance is the relative tolerance applied when a requirement
// specifies an exact value: |actual-required| ≤ 10% of required counts as a
// match.  Source property values are free text, not a controlled vocabulary,
// so strict equality would reject nearly everything.
const exactTolerance = 0.10

// Verdict is the outcome of matching one actual value against one
// requirement.
type Verdict struct {
	Matches   bool
	MatchType material.MatchType
}

// Match compares a candidate's actual property value string against a
// required value string.
//
// A nil actual is a not-found verdict.  When both sides parse numerically
// the comparison is interval arithmetic: required range vs actual point is a
// containment check, a one-sided requirement is an inequality check, and an
// exact requirement matches within the 10% relative tolerance.  When either
// side fails to parse, the fallback is case-insensitive substring
// containment in either direction, reported as a partial match.
func Match(actual *string, required string) Verdict {
	if actual == nil {
		return Verdict{Matches: false, MatchType: material.MatchNotFound}
	}

	reqVal := ParseNumeric(required)
	actVal := ParseNumeric(*actual)

	if reqVal != nil && actVal != nil {
		point, ok := actVal.Point()
		if ok {
			return matchNumeric(reqVal, point)
		}
	}

	// Non-numeric on at least one side: tolerant substring comparison.
	a := strings.ToLower(strings.TrimSpace(*actual))
	r := strings.ToLower(strings.TrimSpace(required))
	matches := a != "" && r != "" && (strings.Contains(a, r) || strings.Contains(r, a))
	return Verdict{Matches: matches, MatchType: material.MatchPartial}
}

func matchNumeric(req *NumericValue, actual float64) Verdict {
	switch {
	case req.IsRange():
		if actual >= *req.Min && actual <= *req.Max {
			return Verdict{Matches: true, MatchType: material.MatchRange}
		}
		return Verdict{Matches: false, MatchType: material.MatchPartial}

	case req.Min != nil:
		if actual >= *req.Min {
			return Verdict{Matches: true, MatchType: material.MatchRange}
		}
		return Verdict{Matches: false, MatchType: material.MatchPartial}

	case req.Max != nil:
		if actual <= *req.Max {
			return Verdict{Matches: true, MatchType: material.MatchRange}
		}
		return Verdict{Matches: false, MatchType: material.MatchPartial}

	default:
		required := *req.Exact
		tolerance := exactTolerance * abs(required)
		if abs(actual-required) <= tolerance {
			return Verdict{Matches: true, MatchType: material.MatchExact}
		}
		return Verdict{Matches: false, MatchType: material.MatchPartial}
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
