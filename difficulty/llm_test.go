package difficulty

import (
	"context"
	"testing"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMSimulateAlwaysSucceeds(t *testing.T) {
	l := &LLM{Simulate: true}
	est, err := l.Estimate(context.Background(), "hello world", nil)
	require.NoError(t, err)
	assert.True(t, est.Metadata["simulated"].(bool))
}

func TestLLMRejectsEmptyQuery(t *testing.T) {
	l := &LLM{Simulate: true}
	_, err := l.Estimate(context.Background(), "", nil)
	assert.ErrorIs(t, err, accuracytype.ErrInvalidQuery)
}

type stubGenerator struct {
	result *accuracytype.GenerationResult
	err    error
}

func (s *stubGenerator) Generate(context.Context, accuracytype.GenerateRequest) (*accuracytype.GenerationResult, error) {
	return s.result, s.err
}

func TestLLMUsesGeneratorBestCandidate(t *testing.T) {
	score := 0.8
	cand := accuracytype.NewCandidate("hard").WithScore(score)
	gen := &stubGenerator{result: accuracytype.NewGenerationResult([]*accuracytype.Candidate{cand}, "single")}
	l := NewLLM(gen)
	est, err := l.Estimate(context.Background(), "describe the problem", nil)
	require.NoError(t, err)
	assert.Equal(t, 0.8, est.Score)
}

func TestLLMSurfacesGeneratorFailure(t *testing.T) {
	gen := &stubGenerator{err: accuracytype.ErrGeneratorFailed}
	l := NewLLM(gen)
	_, err := l.Estimate(context.Background(), "describe the problem", nil)
	assert.ErrorIs(t, err, accuracytype.ErrGeneratorFailed)
}
