// Package generator implements the §4.3 Generator contract and
// AdaptiveSelfConsistency, the compute-aware batch sampling loop. Grounded
// on the batch-sampling/consensus-and-early-stop loop shown in the pack's
// ensemble-pipeline reference and the retry idiom of the teacher's
// resilience package for transient generator failures.
package generator

import (
	"context"
	"time"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/calibrateai/accuracy/aggregate"
	"github.com/calibrateai/accuracy/telemetry"
	"github.com/cenkalti/backoff/v5"
)

const defaultEarlyStopThreshold = 0.8

// perLevelN gives the initial and max sample counts for each difficulty
// level, per spec §4.3.
var perLevelN = map[accuracytype.DifficultyLevel][2]int{
	accuracytype.DifficultyEasy:   {3, 5},
	accuracytype.DifficultyMedium: {5, 10},
	accuracytype.DifficultyHard:   {10, 20},
}

func initialNForLevel(level accuracytype.DifficultyLevel) int {
	if v, ok := perLevelN[level]; ok {
		return v[0]
	}
	return perLevelN[accuracytype.DifficultyMedium][0]
}

func maxNForLevel(level accuracytype.DifficultyLevel) int {
	if v, ok := perLevelN[level]; ok {
		return v[1]
	}
	return perLevelN[accuracytype.DifficultyMedium][1]
}

// Config configures one AdaptiveSelfConsistency.Run call.
type Config struct {
	MinCandidates     int
	MaxCandidates     int
	BatchSize         int
	EarlyStopThreshold float64
	// RetryMaxElapsed bounds how long a single batch's failed generator
	// calls may be retried before surfacing the error. Zero disables
	// retry (a single attempt).
	RetryMaxElapsed int // milliseconds
}

// AdaptiveSelfConsistency implements the §4.3 sampling loop: generate
// candidates in batches, checking consensus agreement after each, stopping
// early once agreement is high enough.
type AdaptiveSelfConsistency struct {
	Gen accuracytype.Generator
	Cfg Config
}

// New constructs an AdaptiveSelfConsistency with defaults filled in for any
// zero-valued Config field. A zero MinCandidates/MaxCandidates/
// EarlyStopThreshold means "use the default", but an explicitly invalid
// combination (negative, or max below min, or a threshold outside [0,1]) is
// rejected rather than silently clamped.
func New(gen accuracytype.Generator, cfg Config) (*AdaptiveSelfConsistency, error) {
	if cfg.MinCandidates < 0 {
		return nil, accuracytype.NewPipelineError("generator.New", "generator", accuracytype.ErrMinMaxCandidates)
	}
	if cfg.MinCandidates == 0 {
		cfg.MinCandidates = 1
	}
	if cfg.MaxCandidates != 0 && cfg.MaxCandidates < cfg.MinCandidates {
		return nil, accuracytype.NewPipelineError("generator.New", "generator", accuracytype.ErrMinMaxCandidates)
	}
	if cfg.MaxCandidates == 0 {
		cfg.MaxCandidates = cfg.MinCandidates
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = cfg.MinCandidates
	}
	if cfg.EarlyStopThreshold != 0 && (cfg.EarlyStopThreshold < 0 || cfg.EarlyStopThreshold > 1) {
		return nil, accuracytype.NewPipelineError("generator.New", "generator", accuracytype.ErrInvalidEarlyStop)
	}
	if cfg.EarlyStopThreshold == 0 {
		cfg.EarlyStopThreshold = defaultEarlyStopThreshold
	}
	return &AdaptiveSelfConsistency{Gen: gen, Cfg: cfg}, nil
}

// consensus is the (winner, agreement, votes, total) tuple computed over a
// candidate set. agreement is the winner's relative vote frequency.
type consensus struct {
	winner    string
	agreement float64
	votes     int
	total     int
}

// checkConsensus computes the consensus agreement over candidates, failing
// with no_candidates on an empty set.
func checkConsensus(candidates []*accuracytype.Candidate) (consensus, error) {
	if len(candidates) == 0 {
		return consensus{}, accuracytype.NewPipelineError("generator.checkConsensus", "generator", accuracytype.ErrNoCandidates)
	}
	dist := aggregate.Distribution(candidates)
	winner := ""
	bestCount := -1
	seen := map[string]bool{}
	order := []string{}
	for _, c := range candidates {
		key := aggregate.NormalizeAnswer(c.Content)
		if !seen[key] {
			seen[key] = true
			order = append(order, key)
		}
	}
	for _, key := range order {
		if dist[key] > bestCount {
			winner = key
			bestCount = dist[key]
		}
	}
	return consensus{
		winner:    winner,
		agreement: float64(bestCount) / float64(len(candidates)),
		votes:     bestCount,
		total:     len(candidates),
	}, nil
}

// adjustN returns the next batch size given the level's max and the count
// already generated, clamped at zero.
func adjustN(batchSize, current, maxN int) int {
	remaining := maxN - current
	if remaining < 0 {
		remaining = 0
	}
	if batchSize < remaining {
		return batchSize
	}
	return remaining
}

// Run executes the adaptive self-consistency loop for query. levelHint may
// be empty, in which case medium is assumed.
func (a *AdaptiveSelfConsistency) Run(ctx context.Context, query string, levelHint accuracytype.DifficultyLevel) (*accuracytype.Candidate, map[string]interface{}, error) {
	if query == "" {
		return nil, nil, accuracytype.NewPipelineError("generator.Run", "generator", accuracytype.ErrEmptyQuery)
	}
	level := levelHint
	if level == "" {
		level = accuracytype.DifficultyMedium
	}

	initialN := initialNForLevel(level)
	maxN := maxNForLevel(level)
	if a.Cfg.MaxCandidates > 0 && maxN > a.Cfg.MaxCandidates {
		maxN = a.Cfg.MaxCandidates
	}
	if initialN > maxN {
		initialN = maxN
	}

	start := time.Now()
	ctx, span := telemetry.SelfConsistencyStart(ctx, string(level))

	var all []*accuracytype.Candidate
	earlyStopped := false
	var cons consensus

	target := initialN
	for len(all) < maxN {
		batch := adjustN(a.Cfg.BatchSize, len(all), target)
		if batch <= 0 {
			batch = adjustN(a.Cfg.BatchSize, len(all), maxN)
		}
		if batch <= 0 {
			break
		}

		result, err := a.generateWithRetry(ctx, query, batch)
		if err != nil {
			telemetry.SelfConsistencyException(span, start, err.Error())
			return nil, nil, accuracytype.NewPipelineError("generator.Run", "generator", err)
		}
		all = append(all, result.Candidates...)

		cons, err = checkConsensus(all)
		if err != nil {
			telemetry.SelfConsistencyException(span, start, err.Error())
			return nil, nil, err
		}

		if len(all) >= a.Cfg.MinCandidates && cons.agreement >= a.Cfg.EarlyStopThreshold {
			earlyStopped = true
			break
		}
		target = maxN
	}

	var best *accuracytype.Candidate
	for _, c := range all {
		if aggregate.NormalizeAnswer(c.Content) == cons.winner {
			best = c
			break
		}
	}

	meta := map[string]interface{}{
		"actual_n":         len(all),
		"early_stopped":    earlyStopped,
		"consensus":        cons.agreement,
		"initial_n":        initialN,
		"max_n":            maxN,
		"difficulty_level": string(level),
	}
	telemetry.SelfConsistencyStop(span, start, meta)
	return best, meta, nil
}

// generateWithRetry wraps a.Gen.Generate with bounded exponential-backoff
// retry, matching the teacher's resilience.Retry contract. Every error the
// generator returns is retried; none is treated as permanent.
func (a *AdaptiveSelfConsistency) generateWithRetry(ctx context.Context, query string, n int) (*accuracytype.GenerationResult, error) {
	req := accuracytype.GenerateRequest{Prompt: query, N: n}

	if a.Cfg.RetryMaxElapsed <= 0 {
		return a.Gen.Generate(ctx, req)
	}

	operation := func() (*accuracytype.GenerationResult, error) {
		result, err := a.Gen.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	b := backoff.NewExponentialBackOff()
	return backoff.Retry(ctx, operation, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(msToDuration(a.Cfg.RetryMaxElapsed)))
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
