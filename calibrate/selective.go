package calibrate

import (
	"fmt"

	"github.com/calibrateai/accuracy/accuracytype"
)

// SelectiveGeneration decides whether to answer or abstain based on
// expected value (default) or a raw confidence threshold.
type SelectiveGeneration struct {
	Reward             float64 // >0, <=1000
	Penalty            float64 // >=0, <=1000
	UseEV              bool
	ConfidenceThreshold float64
	hasConfidenceThreshold bool
}

// NewSelectiveGeneration builds a SelectiveGeneration in EV mode (the
// default).
func NewSelectiveGeneration(reward, penalty float64) SelectiveGeneration {
	return SelectiveGeneration{Reward: reward, Penalty: penalty, UseEV: true}
}

// WithConfidenceThreshold switches to threshold mode, answering whenever
// confidence >= threshold.
func (s SelectiveGeneration) WithConfidenceThreshold(threshold float64) SelectiveGeneration {
	s.UseEV = false
	s.ConfidenceThreshold = threshold
	s.hasConfidenceThreshold = true
	return s
}

// AnswerOrAbstain decides answer vs. abstain for candidate given a
// calibrated confidence c.
func (s SelectiveGeneration) AnswerOrAbstain(candidate *accuracytype.Candidate, c float64) accuracytype.DecisionResult {
	if s.UseEV {
		return s.decideEV(candidate, c)
	}
	return s.decideThreshold(candidate, c)
}

func (s SelectiveGeneration) decideEV(candidate *accuracytype.Candidate, c float64) accuracytype.DecisionResult {
	evAnswer := c*s.Reward - (1-c)*s.Penalty
	evAbstain := 0.0

	if evAnswer > evAbstain {
		return accuracytype.DecisionResult{
			Decision:  accuracytype.DecisionAnswer,
			Candidate: candidate,
			EVAnswer:  evAnswer,
			EVAbstain: evAbstain,
			Reasoning: "expected value favors answering",
			Metadata:  map[string]interface{}{},
		}
	}
	return abstainResult(candidate, c, evAnswer, evAbstain)
}

func (s SelectiveGeneration) decideThreshold(candidate *accuracytype.Candidate, c float64) accuracytype.DecisionResult {
	if c >= s.ConfidenceThreshold {
		return accuracytype.DecisionResult{
			Decision:  accuracytype.DecisionAnswer,
			Candidate: candidate,
			Reasoning: "confidence meets threshold",
			Metadata:  map[string]interface{}{},
		}
	}
	return abstainResult(candidate, c, 0, 0)
}

func abstainResult(candidate *accuracytype.Candidate, c, evAnswer, evAbstain float64) accuracytype.DecisionResult {
	abstained := *candidate
	abstained.Content = fmt.Sprintf(
		"I'm abstaining from answering this. Confidence: %.2f, Expected value: %.2f",
		c, evAnswer,
	)
	return accuracytype.DecisionResult{
		Decision:  accuracytype.DecisionAbstain,
		Candidate: &abstained,
		EVAnswer:  evAnswer,
		EVAbstain: evAbstain,
		Reasoning: "expected value favors abstention",
		Metadata:  map[string]interface{}{},
	}
}
