package calibrate

import (
	"testing"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/stretchr/testify/assert"
)

func TestRouteDirectAtHighThreshold(t *testing.T) {
	g := Gate{HighThreshold: 0.8, LowThreshold: 0.4}
	candidate := accuracytype.NewCandidate("answer")
	result := g.Route(candidate, 0.8)
	assert.Equal(t, accuracytype.ActionDirect, result.Action)
	assert.Same(t, candidate, result.Candidate)
}

func TestRouteMediumAppendsVerificationSuffix(t *testing.T) {
	g := Gate{HighThreshold: 0.8, LowThreshold: 0.4}
	candidate := accuracytype.NewCandidate("answer")
	result := g.Route(candidate, 0.4)
	assert.Equal(t, accuracytype.ActionWithVerification, result.Action)
	assert.Contains(t, result.Candidate.Content, "answer")
	assert.Contains(t, result.Candidate.Content, mediumVerificationSuffix)
}

func TestRouteMediumUsesCitationsSuffixWhenConfigured(t *testing.T) {
	g := Gate{HighThreshold: 0.8, LowThreshold: 0.4, MediumAction: accuracytype.ActionWithCitations}
	candidate := accuracytype.NewCandidate("answer")
	result := g.Route(candidate, 0.5)
	assert.Equal(t, accuracytype.ActionWithCitations, result.Action)
	assert.Contains(t, result.Candidate.Content, mediumCitationsSuffix)
}

func TestRouteLowDefaultsToAbstainAndMarksMetadata(t *testing.T) {
	g := Gate{HighThreshold: 0.8, LowThreshold: 0.4}
	candidate := accuracytype.NewCandidate("answer")
	candidate.Metadata = map[string]interface{}{"source": "x"}
	result := g.Route(candidate, 0.1)

	assert.Equal(t, accuracytype.ActionAbstain, result.Action)
	assert.Equal(t, true, result.Candidate.Metadata["abstained"])
	assert.Equal(t, "x", result.Candidate.Metadata["source"])
	// original candidate's metadata must not be mutated
	_, mutated := candidate.Metadata["abstained"]
	assert.False(t, mutated)
}

func TestRouteLowAbstainContentMatchesSpecWording(t *testing.T) {
	g := Gate{HighThreshold: 0.7, LowThreshold: 0.4}
	candidate := accuracytype.NewCandidate("answer")
	result := g.Route(candidate, 0.3)
	assert.Equal(t, accuracytype.ActionAbstain, result.Action)
	assert.Contains(t, result.Candidate.Content, "not confident enough")
}

func TestRouteLowEscalatesWhenConfigured(t *testing.T) {
	g := Gate{HighThreshold: 0.8, LowThreshold: 0.4, LowAction: accuracytype.ActionEscalate}
	candidate := accuracytype.NewCandidate("answer")
	result := g.Route(candidate, 0.1)
	assert.Equal(t, accuracytype.ActionEscalate, result.Action)
	assert.Equal(t, true, result.Candidate.Metadata["escalated"])
}
