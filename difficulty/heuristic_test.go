package difficulty

import (
	"context"
	"strings"
	"testing"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicRejectsEmptyQuery(t *testing.T) {
	h := NewHeuristic()
	_, err := h.Estimate(context.Background(), "", nil)
	assert.ErrorIs(t, err, accuracytype.ErrInvalidQuery)
}

func TestHeuristicRejectsOversizedQuery(t *testing.T) {
	h := NewHeuristic()
	_, err := h.Estimate(context.Background(), strings.Repeat("a", 50001), nil)
	assert.ErrorIs(t, err, accuracytype.ErrQueryTooLong)
}

func TestHeuristicAcceptsBoundaryQuery(t *testing.T) {
	h := NewHeuristic()
	_, err := h.Estimate(context.Background(), strings.Repeat("a", 49999), nil)
	assert.NoError(t, err)
}

func TestHeuristicDeterministic(t *testing.T) {
	h := NewHeuristic()
	a, err := h.Estimate(context.Background(), "what is 2+2?", nil)
	require.NoError(t, err)
	b, err := h.Estimate(context.Background(), "what is 2+2?", nil)
	require.NoError(t, err)
	assert.Equal(t, a.Score, b.Score)
}

func TestHeuristicScoreLevelCorrespondence(t *testing.T) {
	h := NewHeuristic()
	est, err := h.Estimate(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, accuracytype.LevelForScore(est.Score), est.Level)
}

func TestHeuristicHarderQueryScoresHigher(t *testing.T) {
	h := NewHeuristic()
	easy, err := h.Estimate(context.Background(), "hi there", nil)
	require.NoError(t, err)
	hard, err := h.Estimate(context.Background(), "Prove and derive the asymptotic convergence of the gradient "+
		"descent algorithm for a non-convex loss surface, explain why the eigenvalue spectrum of the Hessian "+
		"matters, and compare trade-offs against Newton's method.", nil)
	require.NoError(t, err)
	assert.Greater(t, hard.Score, easy.Score)
}
