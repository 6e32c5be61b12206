// Package verify implements §4.5: the Verifier contract, the built-in
// DeterministicVerifier/LLMOutcomeVerifier/LLMProcessRewardModel, and the
// VerificationRunner that composes multiple verifiers with weighted
// aggregation. Grounded on the pack's multi-verifier weighted-scoring
// reference and the teacher telemetry package's span-around-operation
// idiom for verification.start/.stop.
package verify

import (
	"context"

	"github.com/calibrateai/accuracy/accuracytype"
)

// Context carries the information a Verifier may need beyond the
// candidate itself: the original query, an optional ground truth, and
// caller-supplied extras.
type Context struct {
	Query       string
	GroundTruth string
	Extra       map[string]interface{}
}

// Verifier is the §4.5 verify contract.
type Verifier interface {
	Verify(ctx context.Context, candidate *accuracytype.Candidate, vctx Context) (*accuracytype.VerificationResult, error)
}

// BatchVerifier is an optional capability: verify many candidates at once
// (e.g. to share one model call). Callers probe for it with a type
// assertion before falling back to calling Verify in a loop.
type BatchVerifier interface {
	VerifyBatch(ctx context.Context, candidates []*accuracytype.Candidate, vctx Context) ([]*accuracytype.VerificationResult, error)
}
