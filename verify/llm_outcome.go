package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/calibrateai/accuracy/accuracytype"
)

const outcomeVerifyPrompt = "Assess whether the following answer correctly and completely addresses the query. " +
	"Respond with a score between 0 and 1 and a brief justification.\nQuery: %s\nAnswer: %s"

const defaultOutcomeTimeout = 10 * time.Second

// LLMOutcomeVerifier delegates scoring to a Generator with an
// outcome-assessment prompt.
type LLMOutcomeVerifier struct {
	Gen     accuracytype.Generator
	Timeout time.Duration
}

func (v LLMOutcomeVerifier) Verify(ctx context.Context, candidate *accuracytype.Candidate, vctx Context) (*accuracytype.VerificationResult, error) {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = defaultOutcomeTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := accuracytype.GenerateRequest{
		Prompt: fmt.Sprintf(outcomeVerifyPrompt, vctx.Query, candidate.Content),
		N:      1,
	}
	result, err := v.Gen.Generate(runCtx, req)
	if err != nil {
		return nil, accuracytype.NewPipelineError("verify.LLMOutcomeVerifier.Verify", "verify", accuracytype.ErrVerificationFailed)
	}
	best := result.BestCandidate()
	if best == nil || best.Score == nil {
		return nil, accuracytype.NewPipelineError("verify.LLMOutcomeVerifier.Verify", "verify", accuracytype.ErrVerificationFailed)
	}

	out := accuracytype.NewVerificationResult()
	out.CandidateID = candidate.ID
	score := clamp01(*best.Score)
	confidence := 0.7
	out.Score = &score
	out.Confidence = &confidence
	out.Reasoning = best.Reasoning
	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
