// Package budget implements the ComputeBudgeter of spec §4.2: mapping
// difficulty levels to compute budgets, enforcing an optional global
// allocation limit, and reporting usage statistics. Grounded on the
// teacher's resilience.CircuitBreakerConfig validate-then-apply idiom and
// core.Config's value-threading style — Budgeter is passed and returned by
// value, never mutated through a shared global.
package budget

import (
	"github.com/calibrateai/accuracy/accuracytype"
)

// CustomOptions configures a bespoke (non-preset) allocation.
type CustomOptions struct {
	UsePRM           bool
	UseSearch        bool
	MaxRefinements   int
	SearchIterations int
}

// Budgeter tracks allocation usage against an optional global limit. The
// zero value is usable (unbounded, zero usage).
type Budgeter struct {
	GlobalLimit     float64 // only enforced when HasGlobalLimit is true
	HasGlobalLimit  bool
	UsedBudget      float64
	AllocationCount int
	CustomTable     map[string]accuracytype.ComputeBudget
}

// New constructs an unbounded Budgeter.
func New() Budgeter {
	return Budgeter{CustomTable: map[string]accuracytype.ComputeBudget{}}
}

// WithGlobalLimit returns a copy of b bounded by limit.
func (b Budgeter) WithGlobalLimit(limit float64) Budgeter {
	b.HasGlobalLimit = true
	b.GlobalLimit = limit
	return b
}

// WithCustomTag registers a named custom allocation, resolvable by
// AllocateForTag.
func (b Budgeter) WithCustomTag(tag string, budget accuracytype.ComputeBudget) Budgeter {
	table := make(map[string]accuracytype.ComputeBudget, len(b.CustomTable)+1)
	for k, v := range b.CustomTable {
		table[k] = v
	}
	table[tag] = budget
	b.CustomTable = table
	return b
}

// AllocateForLevel resolves the canonical preset for level and attempts to
// apply it against b's global limit.
func (b Budgeter) AllocateForLevel(level accuracytype.DifficultyLevel) (accuracytype.ComputeBudget, Budgeter, error) {
	preset, ok := accuracytype.BudgetForLevel(level)
	if !ok {
		return accuracytype.ComputeBudget{}, b, accuracytype.NewPipelineError("budget.AllocateForLevel", "budget", accuracytype.ErrUnknownLevel)
	}
	return b.apply(preset)
}

// AllocateForTag resolves a custom allocation tag registered via
// WithCustomTag.
func (b Budgeter) AllocateForTag(tag string) (accuracytype.ComputeBudget, Budgeter, error) {
	preset, ok := b.CustomTable[tag]
	if !ok {
		return accuracytype.ComputeBudget{}, b, accuracytype.NewPipelineError("budget.AllocateForTag", "budget", accuracytype.ErrUnknownLevel)
	}
	return b.apply(preset)
}

// CustomAllocation builds a bespoke budget for N candidates and attempts to
// apply it against b's global limit.
func (b Budgeter) CustomAllocation(n int, opts CustomOptions) (accuracytype.ComputeBudget, Budgeter, error) {
	if n <= 0 {
		return accuracytype.ComputeBudget{}, b, accuracytype.NewPipelineError("budget.CustomAllocation", "budget", accuracytype.ErrInvalidNumCandidates)
	}
	budget := accuracytype.ComputeBudget{
		NumCandidates:    n,
		UsePRM:           opts.UsePRM,
		UseSearch:        opts.UseSearch,
		MaxRefinements:   opts.MaxRefinements,
		SearchIterations: opts.SearchIterations,
	}
	return b.apply(budget)
}

// apply checks budget.Cost() against the global limit and, on success,
// returns the updated Budgeter. On failure b is returned unchanged.
func (b Budgeter) apply(cb accuracytype.ComputeBudget) (accuracytype.ComputeBudget, Budgeter, error) {
	cost := cb.Cost()
	if b.HasGlobalLimit && b.UsedBudget+cost > b.GlobalLimit {
		return accuracytype.ComputeBudget{}, b, accuracytype.NewPipelineError("budget.apply", "budget", accuracytype.ErrBudgetExhausted)
	}
	next := b
	next.UsedBudget = b.UsedBudget + cost
	next.AllocationCount = b.AllocationCount + 1
	return cb, next, nil
}

// CheckBudget reports whether cost could be allocated without exceeding the
// global limit, without mutating b.
func (b Budgeter) CheckBudget(cost float64) bool {
	if !b.HasGlobalLimit {
		return true
	}
	return b.UsedBudget+cost <= b.GlobalLimit
}

// RemainingBudget reports the unused portion of the global limit. The
// second return is false when the budgeter is unbounded ("unbounded" per
// spec wording).
func (b Budgeter) RemainingBudget() (float64, bool) {
	if !b.HasGlobalLimit {
		return 0, false
	}
	remaining := b.GlobalLimit - b.UsedBudget
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// BudgetExhausted reports whether b has no remaining budget under its
// global limit; always false when unbounded.
func (b Budgeter) BudgetExhausted() bool {
	remaining, bounded := b.RemainingBudget()
	return bounded && remaining <= 0
}

// TrackUsage records cost against b without the allocate/apply guard
// (bookkeeping-only path used when the caller has already decided to
// spend, e.g. recording a retry's incurred cost).
func (b Budgeter) TrackUsage(cost float64) Budgeter {
	b.UsedBudget += cost
	b.AllocationCount++
	return b
}

// ResetBudget clears usage while preserving the global limit and custom
// table.
func (b Budgeter) ResetBudget() Budgeter {
	b.UsedBudget = 0
	b.AllocationCount = 0
	return b
}

// Stats summarizes a Budgeter's usage.
type Stats struct {
	UsedBudget      float64
	AllocationCount int
	AverageCost     float64
	Remaining       float64
	Unbounded       bool
}

// GetUsageStats reports b's usage summary. AverageCost is 0 with no
// allocations.
func (b Budgeter) GetUsageStats() Stats {
	avg := 0.0
	if b.AllocationCount > 0 {
		avg = b.UsedBudget / float64(b.AllocationCount)
	}
	remaining, bounded := b.RemainingBudget()
	return Stats{
		UsedBudget:      b.UsedBudget,
		AllocationCount: b.AllocationCount,
		AverageCost:     avg,
		Remaining:       remaining,
		Unbounded:       !bounded,
	}
}
