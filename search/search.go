// Package search implements the §4.6 search strategies: BeamSearch, MCTS,
// and DiverseDecoding. Grounded on the pack's beam/MCTS search reference
// and planner implementation, with DiverseDecoding's MMR step built on this
// module's similarity package.
package search

import (
	"context"
	"time"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/calibrateai/accuracy/verify"
)

// Options configures one search call; every strategy honours Timeout.
type Options struct {
	Timeout time.Duration
}

// Strategy is the §4.6 search contract.
type Strategy interface {
	Search(ctx context.Context, prompt string, gen accuracytype.Generator, verifier verify.Verifier, opts Options) (*accuracytype.Candidate, error)
}

func scoreCandidate(ctx context.Context, verifier verify.Verifier, c *accuracytype.Candidate, vctx verify.Context) *accuracytype.Candidate {
	result, err := verifier.Verify(ctx, c, vctx)
	if err != nil || result.Score == nil {
		return c
	}
	return c.WithScore(*result.Score)
}

func boundedContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
