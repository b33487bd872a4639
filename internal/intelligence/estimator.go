package intelligence

import (
	"context"
	"fmt"
	"strings"
)

// Estimate is a model-estimated property value with the model's confidence
// in it (0-100).  Callers cap confidence further depending on whether the
// estimate satisfies a requirement.
type Estimate struct {
	Value      string `json:"value"`
	Confidence int    `json:"confidence"`
}

const estimateSystemPrompt = `You are a materials property estimation assistant. Given a material and a property name, estimate a realistic value with units where applicable. Respond with a JSON object: {"value": "estimated value", "confidence": 0-100}. If you cannot estimate, use an empty value and confidence 0.`

// EstimateProperty asks the model to estimate the value of a named property
// for a material.  nil with nil error means the model declined to estimate.
func (s *Service) EstimateProperty(ctx context.Context, materialName, propertyName string) (*Estimate, error) {
	resp, err := s.complete(ctx, "estimate", estimateSystemPrompt,
		fmt.Sprintf("Material: %q\nProperty: %q", materialName, propertyName))
	if err != nil {
		return nil, err
	}

	var est Estimate
	if !firstJSONObject(resp, &est) {
		return nil, nil
	}
	est.Value = strings.TrimSpace(est.Value)
	if est.Value == "" {
		return nil, nil
	}
	est.Confidence = clampScore(est.Confidence)
	return &est, nil
}
