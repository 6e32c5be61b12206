// Package reflect implements §4.7/§4.8: the critique/revise ReflectionLoop
// and the keyword-indexed ReflexionMemory. Grounded almost directly on the
// pack's generate→critique→refine orchestrator (its ReflectionOption
// functional options, Execute loop, and extractQualityScore/normalizeScore
// fallback chain), generalized from a fixed runtime-call dispatch to this
// module's Critiquer/Reviser interfaces.
package reflect

import (
	"context"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/calibrateai/accuracy/similarity"
)

const (
	defaultMaxIterations        = 3
	defaultConvergenceThreshold = 0.1
	memorySeverityThreshold     = 0.6
)

// Critiquer produces a CritiqueResult for a candidate.
type Critiquer interface {
	Critique(ctx context.Context, candidate *accuracytype.Candidate, loopCtx LoopContext) (*accuracytype.CritiqueResult, error)
}

// Reviser produces a revised candidate from the previous one and its
// critique.
type Reviser interface {
	Revise(ctx context.Context, candidate *accuracytype.Candidate, critique *accuracytype.CritiqueResult, loopCtx LoopContext) (*accuracytype.Candidate, error)
}

// LoopContext is passed to Critiquer/Reviser/Memory on every call; Iteration
// increases monotonically starting at 0 for the initial candidate's
// critique.
type LoopContext struct {
	Prompt    string
	Iteration int
}

// Config configures one ReflectionLoop.Run call.
type Config struct {
	MaxIterations        int
	ConvergenceThreshold float64
}

// Result is the outcome of ReflectionLoop.Run.
type Result struct {
	BestCandidate   *accuracytype.Candidate
	Iterations      int
	Converged       bool
	Reason          string
	TotalIterations int
}

// Loop runs the critique/revise/converge cycle.
type Loop struct {
	Critiquer Critiquer
	Reviser   Reviser
	Memory    *Memory // optional
	Cfg       Config
}

// New constructs a Loop with spec defaults filled in for zero-valued Config
// fields.
func New(critiquer Critiquer, reviser Reviser, cfg Config) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.ConvergenceThreshold == 0 {
		cfg.ConvergenceThreshold = defaultConvergenceThreshold
	}
	return &Loop{Critiquer: critiquer, Reviser: reviser, Cfg: cfg}
}

type historyEntry struct {
	candidate *accuracytype.Candidate
	score     float64
}

// Run executes the reflection loop starting from initial.
func (l *Loop) Run(ctx context.Context, prompt string, initial *accuracytype.Candidate) (*Result, error) {
	history := []historyEntry{{candidate: initial, score: scoreOf(initial)}}
	current := initial
	converged := false
	iteration := 0

	for iteration = 0; iteration < l.Cfg.MaxIterations; iteration++ {
		loopCtx := LoopContext{Prompt: prompt, Iteration: iteration}

		critique, err := l.Critiquer.Critique(ctx, current, loopCtx)
		if err != nil {
			return nil, accuracytype.NewPipelineError("reflect.Loop.Run", "reflect", err)
		}

		if l.Memory != nil && critique.Severity > memorySeverityThreshold {
			_ = l.Memory.Store(ctx, accuracytype.ReflexionMemoryEntry{
				Prompt:  prompt,
				Mistake: critique.Feedback,
			})
		}

		revised, err := l.Reviser.Revise(ctx, current, critique, loopCtx)
		if err != nil {
			return nil, accuracytype.NewPipelineError("reflect.Loop.Run", "reflect", err)
		}

		converged = l.checkConvergence(current, revised, critique)
		history = append(history, historyEntry{candidate: revised, score: scoreOf(revised)})
		current = revised

		if converged {
			iteration++
			break
		}
	}

	reason := "max_iterations"
	if converged {
		reason = "converged"
	}

	best := bestOf(history)
	return &Result{
		BestCandidate:   best,
		Iterations:      iteration,
		Converged:       converged,
		Reason:          reason,
		TotalIterations: iteration,
	}, nil
}

// checkConvergence implements the three-way OR from spec §4.7.
func (l *Loop) checkConvergence(prev, curr *accuracytype.Candidate, critique *accuracytype.CritiqueResult) bool {
	if critique.Severity <= l.Cfg.ConvergenceThreshold {
		return true
	}
	contentSim := similarity.Combined(prev.Content, curr.Content, 0.5, 0.5)
	if (1 - contentSim) < l.Cfg.ConvergenceThreshold {
		return true
	}
	if absDiff(scoreOf(curr), scoreOf(prev)) < l.Cfg.ConvergenceThreshold {
		return true
	}
	return false
}

// bestOf returns the history entry with the maximum score, ties broken by
// latest occurrence.
func bestOf(history []historyEntry) *accuracytype.Candidate {
	best := history[0]
	for _, h := range history[1:] {
		if h.score >= best.score {
			best = h
		}
	}
	return best.candidate
}

// ImprovementScore computes improvement_score(prev, curr, critique) per
// spec §4.7: 1 - critique.Severity when critique is non-nil, else the raw
// score delta, else 0.
func ImprovementScore(prev, curr *accuracytype.Candidate, critique *accuracytype.CritiqueResult) float64 {
	if critique != nil {
		return 1 - critique.Severity
	}
	if prev != nil && curr != nil && prev.Score != nil && curr.Score != nil {
		return *curr.Score - *prev.Score
	}
	return 0
}

func scoreOf(c *accuracytype.Candidate) float64 {
	if c == nil || c.Score == nil {
		return 0
	}
	return *c.Score
}

func absDiff(a, b float64) float64 {
	if a < b {
		return b - a
	}
	return a - b
}
