package search

import (
	"context"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/calibrateai/accuracy/verify"
)

// BeamSearch expands beam_width candidates at each of depth levels,
// sampling branching_factor continuations per beam and keeping the top
// beam_width by verifier score.
type BeamSearch struct {
	BeamWidth       int
	Depth           int
	BranchingFactor int
}

func (b BeamSearch) Search(ctx context.Context, prompt string, gen accuracytype.Generator, verifier verify.Verifier, opts Options) (*accuracytype.Candidate, error) {
	runCtx, cancel := boundedContext(ctx, opts.Timeout)
	defer cancel()

	width := b.BeamWidth
	if width < 1 {
		width = 1
	}
	branching := b.BranchingFactor
	if branching < 1 {
		branching = 1
	}

	initial, err := gen.Generate(runCtx, accuracytype.GenerateRequest{Prompt: prompt, N: width})
	if err != nil {
		return nil, accuracytype.NewPipelineError("search.BeamSearch.Search", "search", err)
	}
	if len(initial.Candidates) == 0 {
		return nil, accuracytype.NewPipelineError("search.BeamSearch.Search", "search", accuracytype.ErrNoCandidates)
	}

	beams := scoreAll(runCtx, verifier, initial.Candidates, verify.Context{Query: prompt})
	beams = topK(beams, width)

	for depth := 1; depth < b.Depth; depth++ {
		if runCtx.Err() != nil {
			break
		}
		var expanded []*accuracytype.Candidate
		for _, beam := range beams {
			cont, err := gen.Generate(runCtx, accuracytype.GenerateRequest{
				Prompt: prompt + "\n" + beam.Content,
				N:      branching,
			})
			if err != nil || runCtx.Err() != nil {
				continue
			}
			expanded = append(expanded, cont.Candidates...)
		}
		if len(expanded) == 0 {
			break
		}
		scored := scoreAll(runCtx, verifier, expanded, verify.Context{Query: prompt})
		beams = topK(scored, width)
	}

	if len(beams) == 0 {
		return nil, accuracytype.NewPipelineError("search.BeamSearch.Search", "search", accuracytype.ErrNoCandidates)
	}
	return beams[0], nil
}

func scoreAll(ctx context.Context, verifier verify.Verifier, candidates []*accuracytype.Candidate, vctx verify.Context) []*accuracytype.Candidate {
	out := make([]*accuracytype.Candidate, len(candidates))
	for i, c := range candidates {
		out[i] = scoreCandidate(ctx, verifier, c, vctx)
	}
	return out
}

// topK returns the k highest-scoring candidates (nil score treated as -1),
// sorted descending.
func topK(candidates []*accuracytype.Candidate, k int) []*accuracytype.Candidate {
	sorted := make([]*accuracytype.Candidate, len(candidates))
	copy(sorted, candidates)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && scoreOf(sorted[j]) > scoreOf(sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}

func scoreOf(c *accuracytype.Candidate) float64 {
	if c.Score == nil {
		return -1
	}
	return *c.Score
}
