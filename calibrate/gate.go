// Package calibrate implements §4.9: CalibrationGate routing,
// SelectiveGeneration expected-value abstention, and
// UncertaintyQuantification. Grounded on the pack's banded
// confidence-to-action mapping and severity-banded routing references.
package calibrate

import (
	"time"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/calibrateai/accuracy/telemetry"
)

const (
	mediumVerificationSuffix = "[Confidence: Medium] Please verify this information"
	mediumCitationsSuffix    = "[Confidence: Medium] Consider verifying this information against additional sources"
)

// Gate routes a candidate to an action based on its confidence score.
// Boundaries are closed at both thresholds: a score equal to HighThreshold
// routes direct; a score equal to LowThreshold routes medium.
type Gate struct {
	HighThreshold  float64
	LowThreshold   float64
	MediumAction   accuracytype.RoutingAction // ActionWithVerification or ActionWithCitations
	LowAction      accuracytype.RoutingAction // ActionAbstain or ActionEscalate
	EmitTelemetry  bool
}

// Route applies the gate to candidate given a confidence score.
func (g Gate) Route(candidate *accuracytype.Candidate, score float64) accuracytype.RoutingResult {
	start := time.Now()
	level := accuracytype.LevelForConfidence(score)

	var result accuracytype.RoutingResult
	switch {
	case score >= g.HighThreshold:
		result = accuracytype.RoutingResult{
			Action:          accuracytype.ActionDirect,
			Candidate:       candidate,
			OriginalScore:   score,
			ConfidenceLevel: level,
			Reasoning:       "confidence meets high threshold",
			Metadata:        map[string]interface{}{},
		}
	case score >= g.LowThreshold:
		result = g.routeMedium(candidate, score, level)
	default:
		result = g.routeLow(candidate, score, level)
	}

	if g.EmitTelemetry {
		telemetry.CalibrationRoute(start, string(result.Action), string(level), score)
	}
	return result
}

func (g Gate) routeMedium(candidate *accuracytype.Candidate, score float64, level accuracytype.ConfidenceLevel) accuracytype.RoutingResult {
	action := g.MediumAction
	if action == "" {
		action = accuracytype.ActionWithVerification
	}
	suffix := mediumVerificationSuffix
	if action == accuracytype.ActionWithCitations {
		suffix = mediumCitationsSuffix
	}

	annotated := *candidate
	annotated.Content = candidate.Content + " " + suffix

	return accuracytype.RoutingResult{
		Action:          action,
		Candidate:       &annotated,
		OriginalScore:   score,
		ConfidenceLevel: level,
		Reasoning:       "confidence in medium band",
		Metadata:        map[string]interface{}{},
	}
}

func (g Gate) routeLow(candidate *accuracytype.Candidate, score float64, level accuracytype.ConfidenceLevel) accuracytype.RoutingResult {
	action := g.LowAction
	if action == "" {
		action = accuracytype.ActionAbstain
	}

	annotated := *candidate
	annotated.Metadata = cloneMetadata(candidate.Metadata)
	meta := map[string]interface{}{}
	if action == accuracytype.ActionEscalate {
		annotated.Content = "This query has been escalated for human review due to low confidence."
		annotated.Metadata["escalated"] = true
		meta["escalated"] = true
	} else {
		annotated.Content = "I'm not confident enough in this answer to provide it directly."
		annotated.Metadata["abstained"] = true
		meta["abstained"] = true
	}

	return accuracytype.RoutingResult{
		Action:          action,
		Candidate:       &annotated,
		OriginalScore:   score,
		ConfidenceLevel: level,
		Reasoning:       "confidence below low threshold",
		Metadata:        meta,
	}
}

func cloneMetadata(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
