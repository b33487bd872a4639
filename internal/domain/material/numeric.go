// Package material implements the domain logic of the retrieval engine: the
// free-form value parser, the requirement matcher, the name-relevance ladder,
// and the excluded-term gate.  The package has no I/O of its own; everything
// here is deterministic and unit testable.
package material

import (
	"regexp"
	"strconv"
	"strings"
)

// NumericValue is the parsed form of a free-form property value string.
// Exactly one of the three shapes is populated: a two-sided range (Min and
// Max), a one-sided bound (Min or Max), or a point (Exact).
type NumericValue struct {
	Min   *float64
	Max   *float64
	Exact *float64
}

// IsRange reports whether both bounds are present.
func (v *NumericValue) IsRange() bool { return v.Min != nil && v.Max != nil }

// Point collapses the value to a single comparable number: the exact value,
// the midpoint of a range, or the sole bound.  ok is false when the value
// carries no number at all.
func (v *NumericValue) Point() (float64, bool) {
	switch {
	case v.Exact != nil:
		return *v.Exact, true
	case v.Min != nil && v.Max != nil:
		return (*v.Min + *v.Max) / 2, true
	case v.Min != nil:
		return *v.Min, true
	case v.Max != nil:
		return *v.Max, true
	}
	return 0, false
}

var (
	// rangeRe matches "100-200", "1.2 – 3.4", "0.5~0.9".  Only unsigned
	// numbers participate so a leading minus sign is never mistaken for a
	// range separator.
	rangeRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[-–—~]\s*(\d+(?:\.\d+)?)`)

	// numberRe finds the first decimal number, sign included.
	numberRe = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)
)

// ParseNumeric parses a free-form property value string into a NumericValue.
// Recognised shapes, in priority order:
//
//  1. a dash/en-dash/tilde separated pair  → {Min, Max}
//  2. a leading ">" or ">=" or "≥"         → {Min}
//  3. a leading "<" or "<=" or "≤"         → {Max}
//  4. the first decimal number found       → {Exact}
//
// The ordering matters: ">100" must not be misread as a bare number.  nil is
// returned when the string carries no numeric token at all; callers fall
// back to substring comparison in that case.
func ParseNumeric(raw string) *NumericValue {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	if m := rangeRe.FindStringSubmatch(s); m != nil {
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil {
			if lo > hi {
				lo, hi = hi, lo
			}
			return &NumericValue{Min: &lo, Max: &hi}
		}
	}

	switch {
	case strings.HasPrefix(s, ">="), strings.HasPrefix(s, "≥"), strings.HasPrefix(s, ">"):
		if n, ok := firstNumber(s); ok {
			return &NumericValue{Min: &n}
		}
		return nil
	case strings.HasPrefix(s, "<="), strings.HasPrefix(s, "≤"), strings.HasPrefix(s, "<"):
		if n, ok := firstNumber(s); ok {
			return &NumericValue{Max: &n}
		}
		return nil
	}

	if n, ok := firstNumber(s); ok {
		return &NumericValue{Exact: &n}
	}
	return nil
}

func firstNumber(s string) (float64, bool) {
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
