package calibrate

import (
	"testing"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/stretchr/testify/assert"
)

func TestAnswerOrAbstainEVFavorsAnswering(t *testing.T) {
	sg := NewSelectiveGeneration(10, 5)
	candidate := accuracytype.NewCandidate("answer")
	result := sg.AnswerOrAbstain(candidate, 0.9)
	assert.Equal(t, accuracytype.DecisionAnswer, result.Decision)
	assert.Same(t, candidate, result.Candidate)
	assert.Greater(t, result.EVAnswer, 0.0)
}

func TestAnswerOrAbstainEVFavorsAbstaining(t *testing.T) {
	sg := NewSelectiveGeneration(1, 100)
	candidate := accuracytype.NewCandidate("answer")
	result := sg.AnswerOrAbstain(candidate, 0.3)
	assert.Equal(t, accuracytype.DecisionAbstain, result.Decision)
	assert.Contains(t, result.Candidate.Content, "Confidence")
	assert.Contains(t, result.Candidate.Content, "Expected value")
	assert.LessOrEqual(t, result.EVAnswer, 0.0)
}

func TestAnswerOrAbstainThresholdModeAnswers(t *testing.T) {
	sg := NewSelectiveGeneration(10, 5).WithConfidenceThreshold(0.6)
	candidate := accuracytype.NewCandidate("answer")
	result := sg.AnswerOrAbstain(candidate, 0.6)
	assert.Equal(t, accuracytype.DecisionAnswer, result.Decision)
}

func TestAnswerOrAbstainThresholdModeAbstains(t *testing.T) {
	sg := NewSelectiveGeneration(10, 5).WithConfidenceThreshold(0.6)
	candidate := accuracytype.NewCandidate("answer")
	result := sg.AnswerOrAbstain(candidate, 0.59)
	assert.Equal(t, accuracytype.DecisionAbstain, result.Decision)
}

func TestAnswerOrAbstainDoesNotMutateOriginalCandidate(t *testing.T) {
	sg := NewSelectiveGeneration(1, 100)
	candidate := accuracytype.NewCandidate("answer")
	sg.AnswerOrAbstain(candidate, 0.1)
	assert.Equal(t, "answer", candidate.Content)
}
