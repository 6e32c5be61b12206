package search

import (
	"context"
	"math"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/calibrateai/accuracy/verify"
)

// MCTS is a single-level (root-children-only) Monte Carlo tree search:
// root children are candidates sampled from the generator; each simulation
// selects a child via UCB1, scores it with the verifier, and backs up the
// result. Returns the most-visited child.
type MCTS struct {
	Simulations         int
	ExplorationConstant  float64
}

type mctsNode struct {
	candidate *accuracytype.Candidate
	visits    int
	totalValue float64
}

func (m MCTS) Search(ctx context.Context, prompt string, gen accuracytype.Generator, verifier verify.Verifier, opts Options) (*accuracytype.Candidate, error) {
	runCtx, cancel := boundedContext(ctx, opts.Timeout)
	defer cancel()

	simulations := m.Simulations
	if simulations < 1 {
		simulations = 1
	}
	exploration := m.ExplorationConstant
	if exploration <= 0 {
		exploration = math.Sqrt2
	}

	result, err := gen.Generate(runCtx, accuracytype.GenerateRequest{Prompt: prompt, N: simulations})
	if err != nil {
		return nil, accuracytype.NewPipelineError("search.MCTS.Search", "search", err)
	}
	if len(result.Candidates) == 0 {
		return nil, accuracytype.NewPipelineError("search.MCTS.Search", "search", accuracytype.ErrNoCandidates)
	}

	nodes := make([]*mctsNode, len(result.Candidates))
	for i, c := range result.Candidates {
		nodes[i] = &mctsNode{candidate: c}
	}

	totalVisits := 0
	for sim := 0; sim < simulations; sim++ {
		if runCtx.Err() != nil {
			break
		}
		selected := selectUCB1(nodes, totalVisits, exploration)
		vResult, err := verifier.Verify(runCtx, selected.candidate, verify.Context{Query: prompt})
		value := 0.0
		if err == nil && vResult.Score != nil {
			value = *vResult.Score
		}
		selected.visits++
		selected.totalValue += value
		totalVisits++
	}

	best := nodes[0]
	for _, n := range nodes[1:] {
		if n.visits > best.visits {
			best = n
		}
	}
	if best.visits > 0 {
		avg := best.totalValue / float64(best.visits)
		return best.candidate.WithScore(avg), nil
	}
	return best.candidate, nil
}

// selectUCB1 picks the child maximizing the UCB1 bound, visiting
// never-visited children first.
func selectUCB1(nodes []*mctsNode, totalVisits int, exploration float64) *mctsNode {
	for _, n := range nodes {
		if n.visits == 0 {
			return n
		}
	}
	best := nodes[0]
	bestScore := ucb1(best, totalVisits, exploration)
	for _, n := range nodes[1:] {
		if s := ucb1(n, totalVisits, exploration); s > bestScore {
			best = n
			bestScore = s
		}
	}
	return best
}

func ucb1(n *mctsNode, totalVisits int, exploration float64) float64 {
	exploit := n.totalValue / float64(n.visits)
	explore := exploration * math.Sqrt(math.Log(float64(totalVisits))/float64(n.visits))
	return exploit + explore
}
