package reflect

import (
	"context"
	"testing"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decreasingSeverityCritiquer returns the next entry of severities on each
// call, repeating the last entry once the list is exhausted.
type decreasingSeverityCritiquer struct {
	severities []float64
	call       int
}

func (c *decreasingSeverityCritiquer) Critique(context.Context, *accuracytype.Candidate, LoopContext) (*accuracytype.CritiqueResult, error) {
	s := c.severities[c.call]
	if c.call < len(c.severities)-1 {
		c.call++
	}
	return &accuracytype.CritiqueResult{Severity: s, Feedback: "needs work"}, nil
}

type appendingReviser struct{}

func (appendingReviser) Revise(_ context.Context, candidate *accuracytype.Candidate, _ *accuracytype.CritiqueResult, _ LoopContext) (*accuracytype.Candidate, error) {
	revised := accuracytype.NewCandidate(candidate.Content + "+")
	score := scoreOf(candidate) + 0.1
	return revised.WithScore(score), nil
}

func TestRunConvergesOnLowSeverity(t *testing.T) {
	critiquer := &decreasingSeverityCritiquer{severities: []float64{0.05}}
	loop := New(critiquer, appendingReviser{}, Config{MaxIterations: 3, ConvergenceThreshold: 0.1})
	initial := accuracytype.NewCandidate("draft").WithScore(0.1)
	result, err := loop.Run(context.Background(), "prompt", initial)
	require.NoError(t, err)
	assert.True(t, result.Converged)
	assert.Equal(t, "converged", result.Reason)
	assert.Equal(t, 1, result.Iterations)
}

func TestRunHitsMaxIterations(t *testing.T) {
	critiquer := &decreasingSeverityCritiquer{severities: []float64{0.9, 0.9, 0.9}}
	loop := New(critiquer, appendingReviser{}, Config{MaxIterations: 3, ConvergenceThreshold: 0.01})
	initial := accuracytype.NewCandidate("draft").WithScore(0.1)
	result, err := loop.Run(context.Background(), "prompt", initial)
	require.NoError(t, err)
	assert.False(t, result.Converged)
	assert.Equal(t, "max_iterations", result.Reason)
	assert.Equal(t, 3, result.Iterations)
}

func TestImprovementScoreUsesCritiqueWhenPresent(t *testing.T) {
	critique := &accuracytype.CritiqueResult{Severity: 0.3}
	got := ImprovementScore(nil, nil, critique)
	assert.InDelta(t, 0.7, got, 0.0001)
}

func TestImprovementScoreFallsBackToScoreDelta(t *testing.T) {
	prev := accuracytype.NewCandidate("a").WithScore(0.2)
	curr := accuracytype.NewCandidate("b").WithScore(0.5)
	got := ImprovementScore(prev, curr, nil)
	assert.InDelta(t, 0.3, got, 0.0001)
}

func TestImprovementScoreZeroWithoutScoresOrCritique(t *testing.T) {
	prev := accuracytype.NewCandidate("a")
	curr := accuracytype.NewCandidate("b")
	assert.Equal(t, 0.0, ImprovementScore(prev, curr, nil))
}
