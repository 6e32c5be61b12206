package difficulty

import (
	"context"
	"fmt"
	"time"

	"github.com/calibrateai/accuracy/accuracytype"
)

const defaultLLMTimeout = 10 * time.Second

const difficultyPrompt = "Rate the difficulty of the following query on a scale from 0 (trivial) to 1 (expert-level), " +
	"and briefly explain why. Query: %s"

// LLM delegates difficulty scoring to a Generator. In Simulate mode it never
// calls the Generator and always succeeds with a deterministic estimate
// derived from query length, matching the teacher's AI-client "test mode"
// convention of short-circuiting external calls in tests.
type LLM struct {
	Gen      accuracytype.Generator
	Timeout  time.Duration
	Simulate bool
}

// NewLLM constructs an LLM difficulty estimator backed by gen.
func NewLLM(gen accuracytype.Generator) *LLM {
	return &LLM{Gen: gen, Timeout: defaultLLMTimeout}
}

func (l *LLM) Estimate(ctx context.Context, query string, hints map[string]interface{}) (*accuracytype.DifficultyEstimate, error) {
	if query == "" {
		return nil, accuracytype.NewPipelineError("difficulty.LLM.Estimate", "difficulty", accuracytype.ErrInvalidQuery)
	}

	if l.Simulate {
		score := simulateScore(query)
		est := accuracytype.NewDifficultyEstimate(score, 0.5, "simulated LLM difficulty estimate")
		est.Metadata["simulated"] = true
		return est, nil
	}

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := accuracytype.GenerateRequest{
		Prompt:   fmt.Sprintf(difficultyPrompt, query),
		N:        1,
		Metadata: hints,
	}
	result, err := l.Gen.Generate(runCtx, req)
	if err != nil {
		return nil, accuracytype.NewPipelineError("difficulty.LLM.Estimate", "difficulty", accuracytype.ErrGeneratorFailed)
	}
	best := result.BestCandidate()
	if best == nil || best.Score == nil {
		return nil, accuracytype.NewPipelineError("difficulty.LLM.Estimate", "difficulty", accuracytype.ErrGeneratorFailed)
	}
	est := accuracytype.NewDifficultyEstimate(clamp01(*best.Score), 0.7, best.Reasoning)
	return est, nil
}

// simulateScore derives a deterministic placeholder score from query length
// alone, so tests exercise the LLM code path without a live model.
func simulateScore(query string) float64 {
	return clamp01(float64(len(query)) / 200.0)
}
