package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedScoreVerifier struct {
	score      float64
	confidence float64
	err        error
}

func (f fixedScoreVerifier) Verify(context.Context, *accuracytype.Candidate, Context) (*accuracytype.VerificationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := accuracytype.NewVerificationResult()
	score := f.score
	conf := f.confidence
	result.Score = &score
	result.Confidence = &conf
	return result, nil
}

func TestVerifyCandidateEmptyVerifierList(t *testing.T) {
	r := NewRunner()
	cand := accuracytype.NewCandidate("x")
	result, err := r.VerifyCandidate(context.Background(), cand, Context{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, *result.Score)
	assert.Equal(t, "No verification results", result.Reasoning)
	assert.Equal(t, 0, result.Metadata["verifier_count"])
}

func TestVerifyCandidateWeightedAverage(t *testing.T) {
	r := NewRunner(
		WeightedVerifier{Verifier: fixedScoreVerifier{score: 1.0, confidence: 0.9}, Weight: 1},
		WeightedVerifier{Verifier: fixedScoreVerifier{score: 0.0, confidence: 0.9}, Weight: 3},
	)
	cand := accuracytype.NewCandidate("x")
	result, err := r.VerifyCandidate(context.Background(), cand, Context{})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, *result.Score, 0.001)
	assert.Equal(t, "Combined verification", result.Reasoning)
}

func TestVerifyCandidateMaxAggregation(t *testing.T) {
	r := NewRunner(
		WeightedVerifier{Verifier: fixedScoreVerifier{score: 0.2, confidence: 1}, Weight: 1},
		WeightedVerifier{Verifier: fixedScoreVerifier{score: 0.9, confidence: 1}, Weight: 1},
	)
	r.Aggregation = AggMax
	result, err := r.VerifyCandidate(context.Background(), accuracytype.NewCandidate("x"), Context{})
	require.NoError(t, err)
	assert.Equal(t, 0.9, *result.Score)
}

func TestVerifyCandidateContinuesOnError(t *testing.T) {
	r := NewRunner(
		WeightedVerifier{Verifier: fixedScoreVerifier{err: errors.New("boom")}, Weight: 1},
		WeightedVerifier{Verifier: fixedScoreVerifier{score: 1.0, confidence: 1}, Weight: 1},
	)
	result, err := r.VerifyCandidate(context.Background(), accuracytype.NewCandidate("x"), Context{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, *result.Score)
	assert.Equal(t, 1, result.Metadata["error_count"])
}

func TestVerifyCandidateHaltsOnError(t *testing.T) {
	r := NewRunner(
		WeightedVerifier{Verifier: fixedScoreVerifier{err: errors.New("boom")}, Weight: 1},
	)
	r.OnError = OnErrorHalt
	_, err := r.VerifyCandidate(context.Background(), accuracytype.NewCandidate("x"), Context{})
	assert.Error(t, err)
}

type flakyVerifier struct {
	failuresRemaining *int
	score             float64
}

func (f flakyVerifier) Verify(context.Context, *accuracytype.Candidate, Context) (*accuracytype.VerificationResult, error) {
	if *f.failuresRemaining > 0 {
		*f.failuresRemaining--
		return nil, errors.New("transient verifier failure")
	}
	result := accuracytype.NewVerificationResult()
	score := f.score
	result.Score = &score
	return result, nil
}

func TestVerifyCandidateRetriesTransientFailures(t *testing.T) {
	remaining := 2
	r := NewRunner(WeightedVerifier{Verifier: flakyVerifier{failuresRemaining: &remaining, score: 0.8}, Weight: 1})
	r.RetryMaxElapsed = 1000
	result, err := r.VerifyCandidate(context.Background(), accuracytype.NewCandidate("x"), Context{})
	require.NoError(t, err)
	assert.Equal(t, 0.8, *result.Score)
	assert.Equal(t, 0, remaining)
}

func TestVerifyCandidateWithoutRetryFailsOnFirstTransientError(t *testing.T) {
	remaining := 1
	r := NewRunner(WeightedVerifier{Verifier: flakyVerifier{failuresRemaining: &remaining, score: 0.8}, Weight: 1})
	result, err := r.VerifyCandidate(context.Background(), accuracytype.NewCandidate("x"), Context{})
	require.NoError(t, err) // continue-on-error: dropped, not surfaced
	assert.Equal(t, 0.0, *result.Score)
	assert.Equal(t, 1, result.Metadata["error_count"])
}

func TestVerifyAllCandidatesPreservesOrderAndNeverDrops(t *testing.T) {
	r := NewRunner(WeightedVerifier{Verifier: fixedScoreVerifier{err: errors.New("boom")}, Weight: 1})
	r.OnError = OnErrorHalt
	cands := []*accuracytype.Candidate{accuracytype.NewCandidate("a"), accuracytype.NewCandidate("b")}
	results := r.VerifyAllCandidates(context.Background(), cands, Context{})
	require.Len(t, results, 2)
	assert.Equal(t, cands[0].ID, results[0].CandidateID)
	assert.Equal(t, cands[1].ID, results[1].CandidateID)
}
