package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/calibrateai/accuracy/budget"
	"github.com/calibrateai/accuracy/reflect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedGenerator struct {
	content string
	score   float64
}

func (g fixedGenerator) Generate(_ context.Context, req accuracytype.GenerateRequest) (*accuracytype.GenerationResult, error) {
	n := req.N
	if n <= 0 {
		n = 1
	}
	candidates := make([]*accuracytype.Candidate, n)
	for i := range candidates {
		candidates[i] = accuracytype.NewCandidate(g.content).WithScore(g.score)
	}
	return accuracytype.NewGenerationResult(candidates, "fixed"), nil
}

func simpleConfig(stages ...accuracytype.StageName) accuracytype.PipelineConfig {
	return accuracytype.PipelineConfig{Stages: stages}
}

func TestNewRejectsConfigWithoutGeneration(t *testing.T) {
	_, err := New(simpleConfig(accuracytype.StageCalibration))
	assert.ErrorIs(t, err, ErrMissingGenerationStage)
}

func TestNewAcceptsConfigWithGeneration(t *testing.T) {
	p, err := New(simpleConfig(accuracytype.StageGeneration))
	require.NoError(t, err)
	assert.NotNil(t, p.Difficulty)
	assert.NotNil(t, p.VerifyRunner)
}

func TestRunRejectsEmptyQuery(t *testing.T) {
	p, err := New(simpleConfig(accuracytype.StageGeneration))
	require.NoError(t, err)
	_, err = p.Run(context.Background(), "", RunOptions{Generator: fixedGenerator{content: "x", score: 0.5}})
	assert.ErrorIs(t, err, accuracytype.ErrEmptyQuery)
}

func TestRunRejectsNilGenerator(t *testing.T) {
	p, err := New(simpleConfig(accuracytype.StageGeneration))
	require.NoError(t, err)
	_, err = p.Run(context.Background(), "2+2?", RunOptions{})
	assert.ErrorIs(t, err, accuracytype.ErrInvalidGenerator)
}

func TestRunGenerationAndCalibrationEndToEnd(t *testing.T) {
	p, err := New(simpleConfig(accuracytype.StageGeneration, accuracytype.StageVerification, accuracytype.StageCalibration))
	require.NoError(t, err)

	result, err := p.Run(context.Background(), "What is 2+2?", RunOptions{
		Generator: fixedGenerator{content: "The answer is 4", score: 0.9},
	})
	require.NoError(t, err)
	assert.Equal(t, accuracytype.ActionDirect, result.Action)
	assert.Contains(t, result.Answer, "4")
	assert.ElementsMatch(t, []string{"generation", "verification", "calibration"}, result.Metadata["stages_completed"])
	assert.Equal(t, "direct", result.Metadata["calibration_action"])
}

func TestRunOptionalStageFailureIsTracedAndSkipped(t *testing.T) {
	cfg := simpleConfig(accuracytype.StageRAG, accuracytype.StageGeneration, accuracytype.StageCalibration)
	p, err := New(cfg)
	require.NoError(t, err)

	result, err := p.Run(context.Background(), "2+2?", RunOptions{
		Generator: fixedGenerator{content: "4", score: 0.9},
		// no Retriever supplied: :rag is optional and should be traced :error, not fatal
	})
	require.NoError(t, err)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, accuracytype.StageRAG, result.Trace[0].Stage)
	assert.Equal(t, accuracytype.StageError, result.Trace[0].Status)
	assert.Equal(t, accuracytype.StageGeneration, result.Trace[1].Stage)
	assert.Equal(t, accuracytype.StageOK, result.Trace[1].Status)
	assert.Equal(t, accuracytype.StageCalibration, result.Trace[2].Stage)
	assert.Equal(t, accuracytype.StageOK, result.Trace[2].Status)
}

func TestRunRequiredStageFailureAbortsWithoutRunningLaterStages(t *testing.T) {
	p, err := New(simpleConfig(accuracytype.StageGeneration, accuracytype.StageCalibration))
	require.NoError(t, err)
	p.VerifyRunner = nil // unrelated to this test; generation itself must fail

	_, err = p.Run(context.Background(), "2+2?", RunOptions{
		Generator: erroringGenerator{},
	})
	require.Error(t, err)
}

func TestRunLowConfidenceRoutesToAbstainByDefault(t *testing.T) {
	p, err := New(simpleConfig(accuracytype.StageGeneration, accuracytype.StageCalibration))
	require.NoError(t, err)

	result, err := p.Run(context.Background(), "2+2?", RunOptions{
		Generator: fixedGenerator{content: "maybe 4?", score: 0.1},
	})
	require.NoError(t, err)
	assert.Equal(t, accuracytype.ActionAbstain, result.Action)
}

type slowGenerator struct{ delay time.Duration }

func (g slowGenerator) Generate(ctx context.Context, req accuracytype.GenerateRequest) (*accuracytype.GenerationResult, error) {
	select {
	case <-time.After(g.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return fixedGenerator{content: "late", score: 0.5}.Generate(ctx, req)
}

func TestRunSurfacesTimeoutWhenStageExceedsItsBudget(t *testing.T) {
	p, err := New(simpleConfig(accuracytype.StageGeneration, accuracytype.StageCalibration))
	require.NoError(t, err)
	p.StageTimeouts = map[accuracytype.StageName]time.Duration{
		accuracytype.StageGeneration: 5 * time.Millisecond,
	}

	_, err = p.Run(context.Background(), "2+2?", RunOptions{
		Generator: slowGenerator{delay: 50 * time.Millisecond},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, accuracytype.ErrTimeout)
}

func TestRunFailsWithBudgetExhaustedWhenGlobalLimitTooLow(t *testing.T) {
	p, err := New(simpleConfig(accuracytype.StageGeneration, accuracytype.StageCalibration))
	require.NoError(t, err)
	p.Budgeter = budget.New().WithGlobalLimit(5.0) // medium preset costs 8.5

	_, err = p.Run(context.Background(), "2+2?", RunOptions{
		Generator: fixedGenerator{content: "4", score: 0.9},
	})
	assert.ErrorIs(t, err, accuracytype.ErrBudgetExhausted)
}

type fixedLevelEstimator struct{}

func (fixedLevelEstimator) Estimate(context.Context, string, map[string]interface{}) (*accuracytype.DifficultyEstimate, error) {
	return accuracytype.NewDifficultyEstimate(0, 0.9, "trivially easy"), nil // score 0 -> DifficultyEasy
}

func TestRunTracesSearchAsSkippedWhenBudgetDisablesIt(t *testing.T) {
	// Default medium budget has UseSearch=false.
	p, err := New(simpleConfig(accuracytype.StageGeneration, accuracytype.StageSearch, accuracytype.StageCalibration))
	require.NoError(t, err)

	result, err := p.Run(context.Background(), "2+2?", RunOptions{
		Generator: fixedGenerator{content: "4", score: 0.9},
	})
	require.NoError(t, err)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, accuracytype.StageSearch, result.Trace[1].Stage)
	assert.Equal(t, accuracytype.StageSkipped, result.Trace[1].Status)
}

func TestRunTracesReflectionAsSkippedWhenBudgetAllocatesNoRefinements(t *testing.T) {
	cfg := simpleConfig(accuracytype.StageDifficultyEstimation, accuracytype.StageGeneration, accuracytype.StageReflection, accuracytype.StageCalibration)
	p, err := New(cfg)
	require.NoError(t, err)
	p.Difficulty = fixedLevelEstimator{} // EasyBudget has MaxRefinements=0
	p.ReflectCritique = fixedCritiquer{}
	p.ReflectRevise = fixedReviser{}

	result, err := p.Run(context.Background(), "2+2?", RunOptions{
		Generator: fixedGenerator{content: "4", score: 0.9},
	})
	require.NoError(t, err)
	require.Len(t, result.Trace, 4)
	assert.Equal(t, accuracytype.StageReflection, result.Trace[2].Stage)
	assert.Equal(t, accuracytype.StageSkipped, result.Trace[2].Status)
}

type fixedCritiquer struct{}

func (fixedCritiquer) Critique(context.Context, *accuracytype.Candidate, reflect.LoopContext) (*accuracytype.CritiqueResult, error) {
	return &accuracytype.CritiqueResult{Severity: 0.1, Feedback: "fine"}, nil
}

type fixedReviser struct{}

func (fixedReviser) Revise(_ context.Context, c *accuracytype.Candidate, _ *accuracytype.CritiqueResult, _ reflect.LoopContext) (*accuracytype.Candidate, error) {
	return c, nil
}

type erroringGenerator struct{}

func (erroringGenerator) Generate(_ context.Context, _ accuracytype.GenerateRequest) (*accuracytype.GenerationResult, error) {
	return nil, assertErr
}

var assertErr = assertError("generation backend unavailable")

type assertError string

func (e assertError) Error() string { return string(e) }
