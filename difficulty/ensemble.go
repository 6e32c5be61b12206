package difficulty

import (
	"context"
	"sort"

	"github.com/calibrateai/accuracy/accuracytype"
)

// CombinationMode selects how Ensemble merges its sub-estimators' results.
type CombinationMode string

const (
	WeightedAverage CombinationMode = "weighted_average"
	MajorityVote    CombinationMode = "majority_vote"
	MaxConfidence   CombinationMode = "max_confidence"
	Average         CombinationMode = "average"
)

// Ensemble composes N estimators into a single estimate.
type Ensemble struct {
	Estimators []Estimator
	Weights    []float64 // optional; must match len(Estimators) if set
	Mode       CombinationMode
	// Fallback is used when every sub-estimator fails; nil surfaces the
	// first sub-estimator's error instead.
	Fallback Estimator
}

// NewEnsemble constructs an Ensemble in WeightedAverage mode.
func NewEnsemble(estimators ...Estimator) *Ensemble {
	return &Ensemble{Estimators: estimators, Mode: WeightedAverage}
}

func (e *Ensemble) Estimate(ctx context.Context, query string, hints map[string]interface{}) (*accuracytype.DifficultyEstimate, error) {
	if len(e.Weights) > 0 && len(e.Weights) != len(e.Estimators) {
		return nil, accuracytype.NewPipelineError("difficulty.Ensemble.Estimate", "difficulty", accuracytype.ErrInvalidThresholds)
	}

	type outcome struct {
		est    *accuracytype.DifficultyEstimate
		weight float64
	}
	var ok []outcome
	var firstErr error

	weights := e.normalizedWeights()
	for i, est := range e.Estimators {
		result, err := est.Estimate(ctx, query, hints)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		ok = append(ok, outcome{est: result, weight: weights[i]})
	}

	if len(ok) == 0 {
		if e.Fallback != nil {
			return e.Fallback.Estimate(ctx, query, hints)
		}
		return nil, firstErr
	}

	mode := e.Mode
	if mode == "" {
		mode = WeightedAverage
	}

	switch mode {
	case MaxConfidence:
		best := ok[0]
		for _, o := range ok[1:] {
			if o.est.Confidence > best.est.Confidence {
				best = o
			}
		}
		return best.est, nil

	case MajorityVote:
		counts := map[accuracytype.DifficultyLevel]int{}
		order := []accuracytype.DifficultyLevel{}
		for _, o := range ok {
			if counts[o.est.Level] == 0 {
				order = append(order, o.est.Level)
			}
			counts[o.est.Level]++
		}
		sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
		winner := order[0]
		var scoreSum, confSum float64
		n := 0
		for _, o := range ok {
			if o.est.Level == winner {
				scoreSum += o.est.Score
				confSum += o.est.Confidence
				n++
			}
		}
		est := accuracytype.NewDifficultyEstimate(scoreSum/float64(n), confSum/float64(n), "ensemble majority_vote")
		return est, nil

	case Average:
		var scoreSum, confSum float64
		for _, o := range ok {
			scoreSum += o.est.Score
			confSum += o.est.Confidence
		}
		n := float64(len(ok))
		est := accuracytype.NewDifficultyEstimate(scoreSum/n, confSum/n, "ensemble average")
		return est, nil

	default: // WeightedAverage
		var scoreSum, confSum, weightSum float64
		for _, o := range ok {
			scoreSum += o.est.Score * o.weight
			confSum += o.est.Confidence * o.weight
			weightSum += o.weight
		}
		if weightSum == 0 {
			weightSum = float64(len(ok))
			scoreSum, confSum = 0, 0
			for _, o := range ok {
				scoreSum += o.est.Score
				confSum += o.est.Confidence
			}
		}
		est := accuracytype.NewDifficultyEstimate(scoreSum/weightSum, confSum/weightSum, "ensemble weighted_average")
		return est, nil
	}
}

// normalizedWeights returns per-estimator weights summing to len(Estimators)
// worth of equal shares when e.Weights is unset, or the caller's weights
// normalized to sum to 1 otherwise.
func (e *Ensemble) normalizedWeights() []float64 {
	if len(e.Weights) == 0 {
		w := make([]float64, len(e.Estimators))
		for i := range w {
			w[i] = 1.0
		}
		return w
	}
	var sum float64
	for _, w := range e.Weights {
		sum += w
	}
	if sum == 0 {
		return e.normalizedWeightsEqual()
	}
	out := make([]float64, len(e.Weights))
	for i, w := range e.Weights {
		out[i] = w / sum
	}
	return out
}

func (e *Ensemble) normalizedWeightsEqual() []float64 {
	w := make([]float64, len(e.Estimators))
	for i := range w {
		w[i] = 1.0 / float64(len(e.Estimators))
	}
	return w
}

// EstimateBatch processes queries in order, aborting at the first invalid
// query (per spec §4.1's "aborts at first invalid query").
func (e *Ensemble) EstimateBatch(ctx context.Context, queries []string, hints map[string]interface{}) ([]*accuracytype.DifficultyEstimate, error) {
	out := make([]*accuracytype.DifficultyEstimate, 0, len(queries))
	for _, q := range queries {
		est, err := e.Estimate(ctx, q, hints)
		if err != nil {
			return nil, err
		}
		out = append(out, est)
	}
	return out, nil
}
