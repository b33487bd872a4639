package intelligence

import (
	"context"
	"fmt"
	"strings"

	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/pkg/errors"
	"github.com/matsource/matsource/pkg/types/material"
)

// maxDescriptionLen bounds the generated description; truncation happens at
// a word boundary.
const maxDescriptionLen = 180

// maxDerivedRegulations bounds the number of inferred regulatory labels.
const maxDerivedRegulations = 6

// Description generates a 1-2 sentence free-text description of a material.
// The result is truncated to maxDescriptionLen characters at a word
// boundary.
func (s *Service) Description(ctx context.Context, name, category string) (string, error) {
	resp, err := s.complete(ctx, "description",
		"You are a materials science writer. Answer with plain text only, no markdown.",
		fmt.Sprintf("In one or two short sentences, describe the material %q (category: %s).",
			name, category))
	if err != nil {
		return "", err
	}
	return truncateAtWord(strings.TrimSpace(resp), maxDescriptionLen), nil
}

// SafetyProfile holds the up-to-four fields of the generated safety
// information.  Empty fields were simply not supplied by the model; partial
// output is valid output.
type SafetyProfile struct {
	HazardClassification string `json:"hazard_classification"`
	HealthEffects        string `json:"health_effects"`
	RecommendedPPE       string `json:"recommended_ppe"`
	CASNumber            string `json:"cas_number"`
}

// Empty reports whether the model supplied no usable field at all.
func (p SafetyProfile) Empty() bool {
	return p.HazardClassification == "" && p.HealthEffects == "" &&
		p.RecommendedPPE == "" && p.CASNumber == ""
}

// Safety generates a safety profile for a material.  nil with nil error
// means the model produced nothing usable, which callers treat the same as
// any other absent provider result.
func (s *Service) Safety(ctx context.Context, name string) (*SafetyProfile, error) {
	resp, err := s.complete(ctx, "safety",
		`You are a chemical safety data assistant. Respond with a JSON object with any of `+
			`these keys you can answer confidently: "hazard_classification", "health_effects", `+
			`"recommended_ppe", "cas_number". Omit keys you are unsure about.`,
		fmt.Sprintf("Material: %q", name))
	if err != nil {
		return nil, err
	}
	var p SafetyProfile
	if !firstJSONObject(resp, &p) || p.Empty() {
		return nil, nil
	}
	return &p, nil
}

// Summary generates a short overview paragraph for a fully-merged record.
func (s *Service) Summary(ctx context.Context, rec *material.Record) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Material: %s (category: %s)\n", rec.Name, rec.Category)
	if rec.ChemicalFormula != nil {
		fmt.Fprintf(&b, "Formula: %s\n", *rec.ChemicalFormula)
	}
	for i, p := range rec.Properties {
		if i == 12 { // enough context; prompts stay small
			break
		}
		fmt.Fprintf(&b, "- %s: %s\n", p.Name, p.Value)
	}

	resp, err := s.complete(ctx, "summary",
		"You are a materials science assistant. Write a 2-3 sentence factual summary "+
			"for an engineer evaluating this material. Plain text only.",
		b.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

// CommonName asks for the widely-used common or trade name of a systematic
// chemical name.  An empty result or one as unwieldy as the input is
// reported as an error so callers keep the original.
func (s *Service) CommonName(ctx context.Context, systematic string) (string, error) {
	resp, err := s.complete(ctx, "common_name",
		"You are a chemistry naming assistant. Reply with ONLY the most widely used "+
			"common name of the compound, nothing else.",
		systematic)
	if err != nil {
		return "", err
	}
	name := strings.Trim(strings.TrimSpace(resp), `"`)
	if name == "" || len(name) >= len(systematic) {
		return "", errors.New(errors.CodeCompletionError, "no usable common name returned")
	}
	return name, nil
}

// Regulations infers plausible regulatory/certification labels from a
// material's name, category, and applications.  At most
// maxDerivedRegulations entries are returned, attributed to AI analysis.
func (s *Service) Regulations(ctx context.Context, name, category string, applications []string) ([]material.Regulation, error) {
	user := fmt.Sprintf("Material: %q\nCategory: %s\nApplications: %s",
		name, category, strings.Join(applications, ", "))

	resp, err := s.complete(ctx, "regulations",
		`You are a regulatory compliance assistant for materials. Return a JSON array of `+
			`the names of regulations and certifications that plausibly apply (e.g. `+
			`"FDA food contact", "REACH", "RoHS", "UL 94"). Maximum 6 entries. JSON only.`,
		user)
	if err != nil {
		return nil, err
	}

	var names []string
	if !firstJSONArray(resp, &names) {
		return nil, nil
	}

	out := make([]material.Regulation, 0, maxDerivedRegulations)
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, material.Regulation{Name: n, Source: material.SourceAIAnalysis})
		if len(out) == maxDerivedRegulations {
			break
		}
	}
	return out, nil
}

// sustainabilityPrompt anchors each axis to explicit percentile bands so the
// model scores on a consistent scale across materials.
const sustainabilityPrompt = `You are a materials sustainability analyst. Score the material on four axes, each 0-100:
- "renewable": feedstock renewability. 0-20 fossil-derived, 40-60 partially bio-based, 80-100 fully renewable feedstock.
- "carbon_footprint": production emissions, higher is better. 0-20 energy-intensive smelting/calcination, 40-60 typical commodity polymer, 80-100 low-energy biological or mechanical processing.
- "biodegradability": 0-20 persistent (centuries), 40-60 slow industrial compostability, 80-100 readily biodegradable.
- "toxicity": higher is safer. 0-20 acutely toxic or carcinogenic, 40-60 irritant or monomer-residue concerns, 80-100 inert and food-safe.
Respond with a JSON object: {"renewable": n, "carbon_footprint": n, "biodegradability": n, "toxicity": n, "overall": n, "justification": "one sentence"}.`

type sustainabilityReply struct {
	Renewable        int    `json:"renewable"`
	CarbonFootprint  int    `json:"carbon_footprint"`
	Biodegradability int    `json:"biodegradability"`
	Toxicity         int    `json:"toxicity"`
	Overall          int    `json:"overall"`
	Justification    string `json:"justification"`
}

// Sustainability derives a four-axis sustainability breakdown for a
// material.  The overall score is always recomputed as the fixed weighted
// combination of the axes; a materially disagreeing model-supplied overall
// is logged at debug and discarded.
func (s *Service) Sustainability(ctx context.Context, name, category string, properties []material.Property) (*material.Sustainability, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Material: %q\nCategory: %s\n", name, category)
	for i, p := range properties {
		if i == 8 {
			break
		}
		fmt.Fprintf(&b, "- %s: %s\n", p.Name, p.Value)
	}

	resp, err := s.complete(ctx, "sustainability", sustainabilityPrompt, b.String())
	if err != nil {
		return nil, err
	}

	var reply sustainabilityReply
	if !firstJSONObject(resp, &reply) {
		return nil, nil
	}

	breakdown := material.SustainabilityBreakdown{
		Renewable:        clampScore(reply.Renewable),
		CarbonFootprint:  clampScore(reply.CarbonFootprint),
		Biodegradability: clampScore(reply.Biodegradability),
		Toxicity:         clampScore(reply.Toxicity),
	}
	score := breakdown.WeightedScore()
	if diff := score - reply.Overall; diff > 10 || diff < -10 {
		s.logger.Debug("model overall sustainability score overridden by weighted recomputation",
			logging.String("material", name),
			logging.Int("model_overall", reply.Overall),
			logging.Int("weighted", score))
	}

	return &material.Sustainability{
		Score:         score,
		Breakdown:     breakdown,
		Source:        material.SourceAIAnalysis,
		Justification: strings.TrimSpace(reply.Justification),
	}, nil
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// truncateAtWord shortens s to at most limit characters, cutting at the last
// space before the limit when one exists.
func truncateAtWord(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:")
}
