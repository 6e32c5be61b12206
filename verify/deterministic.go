package verify

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/calibrateai/accuracy/accuracytype"
)

// ComparisonType selects how DeterministicVerifier compares a candidate's
// answer to the ground truth.
type ComparisonType string

const (
	ComparisonExact      ComparisonType = "exact"
	ComparisonNumerical  ComparisonType = "numerical"
	ComparisonSubstring  ComparisonType = "substring"
)

// DeterministicVerifier compares a candidate's content to vctx.GroundTruth.
// Confidence is always 1.0 for a definitive comparison.
type DeterministicVerifier struct {
	Comparison         ComparisonType
	NormalizeWhitespace bool
	Tolerance          float64
}

func (d DeterministicVerifier) Verify(_ context.Context, candidate *accuracytype.Candidate, vctx Context) (*accuracytype.VerificationResult, error) {
	result := accuracytype.NewVerificationResult()
	result.CandidateID = candidate.ID

	var match bool
	switch d.Comparison {
	case ComparisonNumerical:
		match = d.numericalMatch(candidate.Content, vctx.GroundTruth)
	case ComparisonSubstring:
		match = strings.Contains(candidate.Content, vctx.GroundTruth)
	default: // exact
		match = d.exactMatch(candidate.Content, vctx.GroundTruth)
	}

	score := 0.0
	if match {
		score = 1.0
	}
	confidence := 1.0
	result.Score = &score
	result.Confidence = &confidence
	if match {
		result.Reasoning = "matches ground truth"
	} else {
		result.Reasoning = "does not match ground truth"
	}
	return result, nil
}

func (d DeterministicVerifier) exactMatch(content, groundTruth string) bool {
	if d.NormalizeWhitespace {
		return strings.Join(strings.Fields(content), " ") == strings.Join(strings.Fields(groundTruth), " ")
	}
	return content == groundTruth
}

func (d DeterministicVerifier) numericalMatch(content, groundTruth string) bool {
	a, errA := strconv.ParseFloat(strings.TrimSpace(content), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(groundTruth), 64)
	if errA != nil || errB != nil {
		return false
	}
	return math.Abs(a-b) <= d.Tolerance
}
