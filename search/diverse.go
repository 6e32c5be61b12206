package search

import (
	"context"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/calibrateai/accuracy/similarity"
	"github.com/calibrateai/accuracy/verify"
)

// DiverseDecoding samples NumCandidates candidates, then greedily
// MMR-selects the most relevance-and-diversity-balanced one: at each step
// it picks the candidate maximizing
// λ·relevance(c) − (1−λ)·max_{c'∈S} similarity(c,c'), returning the first
// (highest-priority) pick.
type DiverseDecoding struct {
	NumCandidates int
	Lambda        float64
}

func (d DiverseDecoding) Search(ctx context.Context, prompt string, gen accuracytype.Generator, verifier verify.Verifier, opts Options) (*accuracytype.Candidate, error) {
	runCtx, cancel := boundedContext(ctx, opts.Timeout)
	defer cancel()

	n := d.NumCandidates
	if n < 1 {
		n = 1
	}
	lambda := d.Lambda
	if lambda == 0 {
		lambda = 0.5
	}

	result, err := gen.Generate(runCtx, accuracytype.GenerateRequest{Prompt: prompt, N: n})
	if err != nil {
		return nil, accuracytype.NewPipelineError("search.DiverseDecoding.Search", "search", err)
	}
	if len(result.Candidates) == 0 {
		return nil, accuracytype.NewPipelineError("search.DiverseDecoding.Search", "search", accuracytype.ErrNoCandidates)
	}

	scored := scoreAll(runCtx, verifier, result.Candidates, verify.Context{Query: prompt})

	var selected []*accuracytype.Candidate
	remaining := make([]*accuracytype.Candidate, len(scored))
	copy(remaining, scored)

	for len(remaining) > 0 {
		bestIdx := 0
		bestMMR := mmrScore(remaining[0], selected, lambda)
		for i, c := range remaining[1:] {
			if s := mmrScore(c, selected, lambda); s > bestMMR {
				bestIdx = i + 1
				bestMMR = s
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected[0], nil
}

func mmrScore(c *accuracytype.Candidate, selected []*accuracytype.Candidate, lambda float64) float64 {
	relevance := scoreOf(c)
	maxSim := 0.0
	for _, s := range selected {
		if sim := similarity.Combined(c.Content, s.Content, 0.5, 0.5); sim > maxSim {
			maxSim = sim
		}
	}
	return lambda*relevance - (1-lambda)*maxSim
}
