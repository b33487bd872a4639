package search

import (
	"context"
	"strconv"
	"strings"

	domain "github.com/matsource/matsource/internal/domain/material"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/pkg/types/material"
)

// Requirement bucket weights.  An importance tier with no requirements
// scores full, so a request with only must-haves is still graded out of 100.
const (
	weightMustHave   = 0.60
	weightPreferred  = 0.30
	weightNiceToHave = 0.10
)

// maxEstimations bounds AI property estimations per candidate; only unmet
// must-have requirements qualify for estimation.
const maxEstimations = 3

// Confidence ceilings for AI-estimated verdicts.  An estimate is never
// reported as certain, and a non-matching estimate even less so.
const (
	estimateMatchConfidence = 70
	estimateMissConfidence  = 30
)

// validate grades every candidate against the caller's property
// requirements, fills in missing must-haves with bounded AI estimation,
// filters out candidates that miss too many must-haves, and orders the
// survivors by requirement score.
func (s *Service) validate(ctx context.Context, records []*material.Record, reqs []material.PropertyRequirement) []*material.Record {
	mustCount := 0
	for _, r := range reqs {
		if r.Importance == material.ImportanceMustHave {
			mustCount++
		}
	}
	// ceil(0.5 * mustCount)
	threshold := (mustCount + 1) / 2

	kept := make([]*material.Record, 0, len(records))
	for _, rec := range records {
		matchedMust := s.validateRecord(ctx, rec, reqs)
		if mustCount > 0 && matchedMust < threshold {
			s.logger.Debug("candidate filtered on must-have requirements",
				logging.String("material", rec.Name),
				logging.Int("matched", matchedMust),
				logging.Int("required", threshold))
			continue
		}
		kept = append(kept, rec)
	}

	sortRecords(kept, func(r *material.Record) int {
		if r.RequirementMatchScore == nil {
			return 0
		}
		return *r.RequirementMatchScore
	})
	return kept
}

// validateRecord matches one candidate against every requirement, runs the
// estimation pass, and attaches the per-property results and the weighted
// score.  It returns the number of satisfied must-have requirements.
func (s *Service) validateRecord(ctx context.Context, rec *material.Record, reqs []material.PropertyRequirement) int {
	results := make([]material.PropertyMatchResult, len(reqs))
	for i, req := range reqs {
		results[i] = matchRequirement(rec, req)
	}

	s.estimateMissing(ctx, rec, reqs, results)

	score := weightedScore(reqs, results)
	rec.RequirementMatchScore = &score
	rec.PropertyMatches = results

	matchedMust := 0
	for i, req := range reqs {
		if req.Importance == material.ImportanceMustHave && results[i].Matches {
			matchedMust++
		}
	}
	return matchedMust
}

// matchRequirement finds the candidate property best matching the required
// property name and compares values.
func matchRequirement(rec *material.Record, req material.PropertyRequirement) material.PropertyMatchResult {
	result := material.PropertyMatchResult{
		Property: req.Property,
		Required: requiredDisplay(req),
	}

	prop := bestProperty(rec, req.Property)
	if prop == nil {
		result.MatchType = material.MatchNotFound
		return result
	}

	actual := prop.Value
	verdict := domain.Match(&actual, req.Value)
	result.Actual = &actual
	result.Matches = verdict.Matches
	result.MatchType = verdict.MatchType
	result.Confidence = 100
	return result
}

// bestProperty picks the candidate property whose name best matches the
// required name: exact case-insensitive equality first, then substring
// containment in either direction.
func bestProperty(rec *material.Record, name string) *material.Property {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return nil
	}

	var partial *material.Property
	for i := range rec.Properties {
		have := strings.ToLower(strings.TrimSpace(rec.Properties[i].Name))
		if have == want {
			return &rec.Properties[i]
		}
		if partial == nil && (strings.Contains(have, want) || strings.Contains(want, have)) {
			partial = &rec.Properties[i]
		}
	}
	return partial
}

// estimateMissing asks the AI to estimate values for must-have requirements
// the candidate has no property for, re-matching each estimate.  At most
// maxEstimations attempts are spent per candidate.
func (s *Service) estimateMissing(ctx context.Context, rec *material.Record, reqs []material.PropertyRequirement, results []material.PropertyMatchResult) {
	attempts := 0
	for i, req := range reqs {
		if attempts >= maxEstimations {
			return
		}
		if req.Importance != material.ImportanceMustHave || results[i].MatchType != material.MatchNotFound {
			continue
		}

		attempts++
		est, err := s.intel.EstimateProperty(ctx, rec.Name, req.Property)
		if err != nil {
			s.logger.Debug("property estimation failed",
				logging.String("material", rec.Name),
				logging.String("property", req.Property),
				logging.Err(err))
			continue
		}
		if est == nil || est.Value == "" {
			continue
		}

		value := est.Value
		verdict := domain.Match(&value, req.Value)
		results[i].Actual = &value
		results[i].Matches = verdict.Matches
		results[i].MatchType = material.MatchAIEstimated
		results[i].Confidence = cappedConfidence(est.Confidence, verdict.Matches)

		rec.Properties = append(rec.Properties, material.Property{
			Name:     req.Property,
			Value:    value,
			Category: material.CategoryPhysical,
			Source:   material.SourceAIEstimate,
		})
		markSource(rec, material.SourceAIEstimate)

		if s.metrics != nil {
			s.metrics.EstimationsTotal.
				WithLabelValues(strconv.FormatBool(verdict.Matches)).Inc()
		}
	}
}

func cappedConfidence(confidence int, matched bool) int {
	limit := estimateMissConfidence
	if matched {
		limit = estimateMatchConfidence
	}
	if confidence > limit {
		return limit
	}
	if confidence < 0 {
		return 0
	}
	return confidence
}

// weightedScore computes the 0-100 requirement score from the per-bucket
// match ratios.
func weightedScore(reqs []material.PropertyRequirement, results []material.PropertyMatchResult) int {
	type bucket struct{ matched, total int }
	buckets := map[material.Importance]*bucket{
		material.ImportanceMustHave:   {},
		material.ImportancePreferred:  {},
		material.ImportanceNiceToHave: {},
	}
	for i, req := range reqs {
		b, ok := buckets[req.Importance]
		if !ok {
			continue
		}
		b.total++
		if results[i].Matches {
			b.matched++
		}
	}

	ratio := func(imp material.Importance) float64 {
		b := buckets[imp]
		if b.total == 0 {
			return 1
		}
		return float64(b.matched) / float64(b.total)
	}

	score := weightMustHave*ratio(material.ImportanceMustHave) +
		weightPreferred*ratio(material.ImportancePreferred) +
		weightNiceToHave*ratio(material.ImportanceNiceToHave)
	return int(score*100 + 0.5)
}

// requiredDisplay is the human-readable form of a requirement's target.
func requiredDisplay(req material.PropertyRequirement) string {
	if req.Unit == "" {
		return req.Value
	}
	return req.Value + " " + req.Unit
}
