package difficulty

import (
	"context"
	"testing"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEstimator struct {
	est *accuracytype.DifficultyEstimate
	err error
}

func (f *fixedEstimator) Estimate(context.Context, string, map[string]interface{}) (*accuracytype.DifficultyEstimate, error) {
	return f.est, f.err
}

func TestEnsembleWeightedAverageDefault(t *testing.T) {
	e := NewEnsemble(
		&fixedEstimator{est: accuracytype.NewDifficultyEstimate(0.2, 0.9, "a")},
		&fixedEstimator{est: accuracytype.NewDifficultyEstimate(0.8, 0.9, "b")},
	)
	est, err := e.Estimate(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, est.Score, 0.001)
}

func TestEnsembleWeightsMustMatchLength(t *testing.T) {
	e := NewEnsemble(&fixedEstimator{est: accuracytype.NewDifficultyEstimate(0.2, 0.9, "a")})
	e.Weights = []float64{0.5, 0.5}
	_, err := e.Estimate(context.Background(), "q", nil)
	assert.ErrorIs(t, err, accuracytype.ErrInvalidThresholds)
}

func TestEnsembleMaxConfidence(t *testing.T) {
	e := NewEnsemble(
		&fixedEstimator{est: accuracytype.NewDifficultyEstimate(0.2, 0.3, "a")},
		&fixedEstimator{est: accuracytype.NewDifficultyEstimate(0.8, 0.95, "b")},
	)
	e.Mode = MaxConfidence
	est, err := e.Estimate(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, 0.8, est.Score)
}

func TestEnsembleMajorityVote(t *testing.T) {
	e := NewEnsemble(
		&fixedEstimator{est: accuracytype.NewDifficultyEstimate(0.2, 0.9, "a")},
		&fixedEstimator{est: accuracytype.NewDifficultyEstimate(0.25, 0.8, "b")},
		&fixedEstimator{est: accuracytype.NewDifficultyEstimate(0.9, 0.9, "c")},
	)
	e.Mode = MajorityVote
	est, err := e.Estimate(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, accuracytype.DifficultyEasy, est.Level)
}

func TestEnsembleFallsBackWhenAllFail(t *testing.T) {
	fallback := &fixedEstimator{est: accuracytype.NewDifficultyEstimate(0.5, 0.5, "fallback")}
	e := NewEnsemble(
		&fixedEstimator{err: accuracytype.ErrGeneratorFailed},
		&fixedEstimator{err: accuracytype.ErrGeneratorFailed},
	)
	e.Fallback = fallback
	est, err := e.Estimate(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback", est.Reasoning)
}

func TestEnsembleSurfacesFirstErrorWithoutFallback(t *testing.T) {
	e := NewEnsemble(
		&fixedEstimator{err: accuracytype.ErrGeneratorFailed},
		&fixedEstimator{err: accuracytype.ErrTimeout},
	)
	_, err := e.Estimate(context.Background(), "q", nil)
	assert.ErrorIs(t, err, accuracytype.ErrGeneratorFailed)
}

func TestEnsembleBatchAbortsAtFirstInvalidQuery(t *testing.T) {
	e := NewEnsemble(NewHeuristic())
	_, err := e.EstimateBatch(context.Background(), []string{"valid query", ""}, nil)
	assert.ErrorIs(t, err, accuracytype.ErrInvalidQuery)
}
