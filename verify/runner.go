package verify

import (
	"context"
	"sync"
	"time"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/calibrateai/accuracy/telemetry"
	"github.com/cenkalti/backoff/v5"
)

// AggregationMode selects how per-verifier scores combine into one result.
type AggregationMode string

const (
	WeightedAvg AggregationMode = "weighted_avg"
	AggMax      AggregationMode = "max"
	AggMin      AggregationMode = "min"
	AggSum      AggregationMode = "sum"
	AggProduct  AggregationMode = "product"
)

// ErrorPolicy controls what happens when a verifier fails.
type ErrorPolicy string

const (
	OnErrorContinue ErrorPolicy = "continue"
	OnErrorHalt     ErrorPolicy = "halt"
)

const defaultRunnerTimeout = 30 * time.Second

// WeightedVerifier pairs a Verifier with its aggregation weight.
type WeightedVerifier struct {
	Verifier Verifier
	Weight   float64
	// Timeout, if set, overrides Runner.Timeout for this verifier.
	Timeout time.Duration
}

// Runner composes multiple verifiers and aggregates their results.
type Runner struct {
	Verifiers   []WeightedVerifier
	Parallel    bool
	Aggregation AggregationMode
	OnError     ErrorPolicy
	Timeout     time.Duration
	// RetryMaxElapsed bounds how long a single verifier's failed calls may
	// be retried before surfacing the error. Zero disables retry (a
	// single attempt), matching generator.Config.RetryMaxElapsed.
	RetryMaxElapsed int // milliseconds
}

// NewRunner constructs a Runner with spec defaults (weighted_avg
// aggregation, continue-on-error, 30s timeout).
func NewRunner(verifiers ...WeightedVerifier) *Runner {
	return &Runner{
		Verifiers:   verifiers,
		Aggregation: WeightedAvg,
		OnError:     OnErrorContinue,
		Timeout:     defaultRunnerTimeout,
	}
}

type runOutcome struct {
	result *accuracytype.VerificationResult
	weight float64
	err    error
}

// Verify adapts VerifyCandidate to the Verifier interface, letting a Runner
// stand in anywhere a single Verifier is expected (e.g. search strategies).
func (r *Runner) Verify(ctx context.Context, candidate *accuracytype.Candidate, vctx Context) (*accuracytype.VerificationResult, error) {
	return r.VerifyCandidate(ctx, candidate, vctx)
}

// VerifyCandidate runs every verifier against candidate and aggregates
// their results.
func (r *Runner) VerifyCandidate(ctx context.Context, candidate *accuracytype.Candidate, vctx Context) (*accuracytype.VerificationResult, error) {
	start := time.Now()
	ctx, span := telemetry.VerificationStart(ctx)
	defer telemetry.VerificationStop(span, start)

	if len(r.Verifiers) == 0 {
		score := 0.0
		result := accuracytype.NewVerificationResult()
		result.CandidateID = candidate.ID
		result.Score = &score
		result.Reasoning = "No verification results"
		result.Metadata["verifier_count"] = 0
		return result, nil
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultRunnerTimeout
	}

	outcomes := make([]runOutcome, len(r.Verifiers))
	run := func(i int) runOutcome {
		wv := r.Verifiers[i]
		vTimeout := wv.Timeout
		if vTimeout <= 0 {
			vTimeout = timeout
		}
		runCtx, cancel := context.WithTimeout(ctx, vTimeout)
		defer cancel()
		result, err := r.verifyWithRetry(runCtx, wv.Verifier, candidate, vctx)
		return runOutcome{result: result, weight: wv.Weight, err: err}
	}

	if r.Parallel {
		var wg sync.WaitGroup
		for i := range r.Verifiers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i] = run(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range r.Verifiers {
			outcomes[i] = run(i)
			if outcomes[i].err != nil && r.OnError == OnErrorHalt {
				break
			}
		}
	}

	if r.OnError == OnErrorHalt {
		for _, o := range outcomes {
			if o.err != nil {
				return nil, accuracytype.NewPipelineError("verify.VerifyCandidate", "verify", o.err)
			}
		}
	}

	return r.aggregate(candidate.ID, outcomes)
}

// verifyWithRetry wraps verifier.Verify with bounded exponential-backoff
// retry, matching the teacher's resilience.Retry contract and
// generator.AdaptiveSelfConsistency.generateWithRetry. Every error the
// verifier returns is retried; none is treated as permanent.
func (r *Runner) verifyWithRetry(ctx context.Context, verifier Verifier, candidate *accuracytype.Candidate, vctx Context) (*accuracytype.VerificationResult, error) {
	if r.RetryMaxElapsed <= 0 {
		return verifier.Verify(ctx, candidate, vctx)
	}

	operation := func() (*accuracytype.VerificationResult, error) {
		return verifier.Verify(ctx, candidate, vctx)
	}
	b := backoff.NewExponentialBackOff()
	return backoff.Retry(ctx, operation, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(time.Duration(r.RetryMaxElapsed)*time.Millisecond))
}

func (r *Runner) aggregate(candidateID string, outcomes []runOutcome) (*accuracytype.VerificationResult, error) {
	var ok []runOutcome
	errCount := 0
	for _, o := range outcomes {
		if o.err != nil || o.result == nil {
			errCount++
			continue
		}
		ok = append(ok, o)
	}

	result := accuracytype.NewVerificationResult()
	result.CandidateID = candidateID
	result.Metadata["verifier_count"] = len(ok)
	result.Metadata["error_count"] = errCount

	if len(ok) == 0 {
		score := 0.0
		result.Score = &score
		result.Reasoning = "No verification results"
		return result, nil
	}

	mode := r.Aggregation
	if mode == "" {
		mode = WeightedAvg
	}

	score := combineScores(mode, ok)
	confidence := meanConfidence(ok)
	result.Score = &score
	result.Confidence = &confidence
	result.Reasoning = "Combined verification"

	stepScores := map[string]float64{}
	for _, o := range ok {
		for k, v := range o.result.Metadata {
			result.Metadata[k] = v
		}
		for k, v := range o.result.StepScores {
			stepScores[k] = v
		}
	}
	if len(stepScores) > 0 {
		result.StepScores = stepScores
	}
	return result, nil
}

func combineScores(mode AggregationMode, outcomes []runOutcome) float64 {
	switch mode {
	case AggMax:
		best := scoreOf(outcomes[0])
		for _, o := range outcomes[1:] {
			if s := scoreOf(o); s > best {
				best = s
			}
		}
		return best
	case AggMin:
		worst := scoreOf(outcomes[0])
		for _, o := range outcomes[1:] {
			if s := scoreOf(o); s < worst {
				worst = s
			}
		}
		return worst
	case AggSum:
		var total float64
		for _, o := range outcomes {
			total += scoreOf(o)
		}
		return total
	case AggProduct:
		total := 1.0
		for _, o := range outcomes {
			total *= scoreOf(o)
		}
		return total
	default: // weighted_avg
		var weightedSum, weightSum float64
		for _, o := range outcomes {
			weightedSum += scoreOf(o) * o.weight
			weightSum += o.weight
		}
		if weightSum == 0 {
			n := float64(len(outcomes))
			var sum float64
			for _, o := range outcomes {
				sum += scoreOf(o)
			}
			return sum / n
		}
		return weightedSum / weightSum
	}
}

func scoreOf(o runOutcome) float64 {
	if o.result.Score == nil {
		return 0
	}
	return *o.result.Score
}

func meanConfidence(outcomes []runOutcome) float64 {
	var sum float64
	n := 0
	for _, o := range outcomes {
		if o.result.Confidence != nil {
			sum += *o.result.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// VerifyAllCandidates verifies each candidate in order, never dropping a
// candidate: a candidate whose verifier crashes contributes an error
// result at its index instead of being omitted.
func (r *Runner) VerifyAllCandidates(ctx context.Context, candidates []*accuracytype.Candidate, vctx Context) []*accuracytype.VerificationResult {
	out := make([]*accuracytype.VerificationResult, len(candidates))
	for i, c := range candidates {
		result, err := r.VerifyCandidate(ctx, c, vctx)
		if err != nil {
			errResult := accuracytype.NewVerificationResult()
			errResult.CandidateID = c.ID
			errResult.Reasoning = err.Error()
			out[i] = errResult
			continue
		}
		out[i] = result
	}
	return out
}
