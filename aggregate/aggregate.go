package aggregate

import "github.com/calibrateai/accuracy/accuracytype"

// Aggregator is the §4.4 contract every aggregation strategy implements.
type Aggregator interface {
	Aggregate(candidates []*accuracytype.Candidate) (*accuracytype.Candidate, map[string]interface{}, error)
	Distribution(candidates []*accuracytype.Candidate) map[string]int
}

// MajorityVote picks the candidate whose normalized answer has the most
// votes, breaking ties by first occurrence.
type MajorityVote struct{}

func (MajorityVote) Aggregate(candidates []*accuracytype.Candidate) (*accuracytype.Candidate, map[string]interface{}, error) {
	if len(candidates) == 0 {
		return nil, nil, accuracytype.NewPipelineError("aggregate.MajorityVote.Aggregate", "aggregate", accuracytype.ErrNoCandidates)
	}

	winner, votes, total := modeFirstSeen(candidates)
	var best *accuracytype.Candidate
	for _, c := range candidates {
		if NormalizeAnswer(c.Content) == winner {
			best = c
			break
		}
	}

	meta := map[string]interface{}{
		"confidence":       float64(votes) / float64(total),
		"winning_votes":    votes,
		"total_votes":      total,
		"vote_distribution": Distribution(candidates),
	}
	return best, meta, nil
}

func (MajorityVote) Distribution(candidates []*accuracytype.Candidate) map[string]int {
	return Distribution(candidates)
}

// BestOfN picks the candidate with the maximum score, treating a nil score
// as negative infinity.
type BestOfN struct{}

func (BestOfN) Aggregate(candidates []*accuracytype.Candidate) (*accuracytype.Candidate, map[string]interface{}, error) {
	if len(candidates) == 0 {
		return nil, nil, accuracytype.NewPipelineError("aggregate.BestOfN.Aggregate", "aggregate", accuracytype.ErrNoCandidates)
	}
	best := candidates[0]
	bestScore := scoreOrNegInf(best)
	for _, c := range candidates[1:] {
		if s := scoreOrNegInf(c); s > bestScore {
			best = c
			bestScore = s
		}
	}
	return best, map[string]interface{}{"score": bestScore}, nil
}

func (BestOfN) Distribution(candidates []*accuracytype.Candidate) map[string]int {
	return Distribution(candidates)
}

func scoreOrNegInf(c *accuracytype.Candidate) float64 {
	if c.Score == nil {
		return negInf
	}
	return *c.Score
}

const negInf = -1 << 62 // finite sentinel well below any realistic [0,1] score, avoids math.Inf comparisons edge cases

// Weighted combines each candidate's score with optional extra signals via
// a linear combination. With no signal weights configured, it behaves
// identically to BestOfN (default weights equivalent to BestOfN per spec).
type Weighted struct {
	// SignalWeight maps a Candidate.Metadata key (expected to hold a
	// float64) to its linear weight. ScoreWeight weights the base score;
	// it defaults to 1.0 when unset via NewWeighted.
	ScoreWeight  float64
	SignalWeight map[string]float64
}

// NewWeighted constructs a Weighted aggregator with ScoreWeight=1 and no
// extra signals, i.e. equivalent to BestOfN.
func NewWeighted() Weighted {
	return Weighted{ScoreWeight: 1.0}
}

func (w Weighted) Aggregate(candidates []*accuracytype.Candidate) (*accuracytype.Candidate, map[string]interface{}, error) {
	if len(candidates) == 0 {
		return nil, nil, accuracytype.NewPipelineError("aggregate.Weighted.Aggregate", "aggregate", accuracytype.ErrNoCandidates)
	}
	scoreWeight := w.ScoreWeight
	if scoreWeight == 0 && len(w.SignalWeight) == 0 {
		scoreWeight = 1.0
	}

	best := candidates[0]
	bestCombined := w.combined(best, scoreWeight)
	for _, c := range candidates[1:] {
		if combined := w.combined(c, scoreWeight); combined > bestCombined {
			best = c
			bestCombined = combined
		}
	}
	return best, map[string]interface{}{"combined_score": bestCombined}, nil
}

func (w Weighted) combined(c *accuracytype.Candidate, scoreWeight float64) float64 {
	total := scoreOrNegInf(c) * scoreWeight
	if total == negInf*scoreWeight {
		return negInf
	}
	for key, weight := range w.SignalWeight {
		if v, ok := c.Metadata[key]; ok {
			if f, ok := v.(float64); ok {
				total += f * weight
			}
		}
	}
	return total
}

func (w Weighted) Distribution(candidates []*accuracytype.Candidate) map[string]int {
	return Distribution(candidates)
}
