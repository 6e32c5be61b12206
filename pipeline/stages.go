package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/calibrateai/accuracy/calibrate"
	"github.com/calibrateai/accuracy/generator"
	"github.com/calibrateai/accuracy/reflect"
	"github.com/calibrateai/accuracy/search"
	"github.com/calibrateai/accuracy/verify"
)

// errStageSkipped signals that a stage decided, at run time, that it had
// nothing to do (e.g. the allocated compute budget did not call for it at
// this difficulty level) rather than that it failed. Run() traces this as
// accuracytype.StageSkipped instead of StageOK/StageError.
var errStageSkipped = errors.New("stage_skipped")

// GenerationSubConfig overrides the self-consistency configuration for one
// run's :generation stage.
type GenerationSubConfig struct {
	SelfConsistency generator.Config
}

// SearchSubConfig overrides the search strategy/options for one run's
// :search stage.
type SearchSubConfig struct {
	Strategy search.Strategy
	Options  search.Options
}

// ReflectionSubConfig overrides the reflection loop configuration for one
// run's :reflection stage.
type ReflectionSubConfig struct {
	Config reflect.Config
}

// CalibrationSubConfig overrides the gate thresholds for one run's
// :calibration stage.
type CalibrationSubConfig struct {
	Gate calibrate.Gate
}

func (p *Pipeline) runStage(ctx context.Context, stage accuracytype.StageName, state *runState, opts RunOptions) error {
	switch stage {
	case accuracytype.StageDifficultyEstimation:
		return p.runDifficulty(ctx, state)
	case accuracytype.StageRAG:
		return p.runRAG(ctx, state, opts)
	case accuracytype.StageGeneration:
		return p.runGeneration(ctx, state, opts)
	case accuracytype.StageVerification:
		return p.runVerification(ctx, state, opts)
	case accuracytype.StageSearch:
		return p.runSearch(ctx, state, opts)
	case accuracytype.StageReflection:
		return p.runReflection(ctx, state, opts)
	case accuracytype.StageCalibration:
		return p.runCalibration(ctx, state)
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
}

func (p *Pipeline) runDifficulty(ctx context.Context, state *runState) error {
	if p.Difficulty == nil {
		return fmt.Errorf("no difficulty estimator configured")
	}
	estimate, err := p.Difficulty.Estimate(ctx, state.query, nil)
	if err != nil {
		return err
	}
	state.difficulty = estimate
	state.levelHint = estimate.Level
	return nil
}

func (p *Pipeline) runRAG(ctx context.Context, state *runState, opts RunOptions) error {
	if opts.Retriever == nil {
		return fmt.Errorf("no retriever configured for :rag stage")
	}
	snippet, err := opts.Retriever.Retrieve(ctx, state.query)
	if err != nil {
		return err
	}
	state.ragContext = snippet
	return nil
}

func (p *Pipeline) runGeneration(ctx context.Context, state *runState, opts RunOptions) error {
	cfg := p.SelfConsistency
	if sub, ok := p.Config.SubConfigs[accuracytype.StageGeneration].(GenerationSubConfig); ok {
		cfg = sub.SelfConsistency
	}

	cb, nextBudgeter, err := p.Budgeter.AllocateForLevel(state.levelHint)
	if err != nil {
		return err
	}
	p.Budgeter = nextBudgeter
	state.budget = &cb
	if cfg.MinCandidates <= 0 {
		cfg.MinCandidates = cb.NumCandidates
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = cb.NumCandidates
	}

	sc, err := generator.New(opts.Generator, cfg)
	if err != nil {
		return err
	}
	prompt := state.query
	if state.ragContext != "" {
		prompt = state.ragContext + "\n\n" + state.query
	}

	best, _, err := sc.Run(ctx, prompt, state.levelHint)
	if err != nil {
		return err
	}
	if best == nil {
		return accuracytype.NewPipelineError("pipeline.generation", "generator", accuracytype.ErrNoCandidates)
	}
	state.candidates = []*accuracytype.Candidate{best}
	state.best = best
	return nil
}

func (p *Pipeline) runVerification(ctx context.Context, state *runState, opts RunOptions) error {
	if state.best == nil {
		return fmt.Errorf("no candidate to verify")
	}
	runner := p.VerifyRunner
	if opts.Verifier != nil {
		runner = verify.NewRunner(verify.WeightedVerifier{Verifier: opts.Verifier, Weight: 1.0})
	}
	if runner == nil {
		return fmt.Errorf("no verifier configured for :verification stage")
	}

	vctx := verify.Context{Query: state.query}
	result, err := runner.VerifyCandidate(ctx, state.best, vctx)
	if err != nil {
		return err
	}
	state.verification = result
	// A result that no verifier contributed to (verifier_count 0) leaves the
	// candidate's own score in place.
	if n, _ := result.Metadata["verifier_count"].(int); result.Score != nil && n > 0 {
		state.best = state.best.WithScore(*result.Score)
		state.candidates[0] = state.best
	}
	return nil
}

func (p *Pipeline) runSearch(ctx context.Context, state *runState, opts RunOptions) error {
	if state.budget != nil && !state.budget.UseSearch {
		// Allocated budget did not enable search for this difficulty level;
		// leave the current best candidate untouched.
		return errStageSkipped
	}

	strategy := p.SearchStrategy
	searchOpts := search.Options{}
	if sub, ok := p.Config.SubConfigs[accuracytype.StageSearch].(SearchSubConfig); ok {
		if sub.Strategy != nil {
			strategy = sub.Strategy
		}
		searchOpts = sub.Options
	}
	if strategy == nil {
		return fmt.Errorf("no search strategy configured for :search stage")
	}
	verifier := p.verifierFor(opts)
	if verifier == nil {
		return fmt.Errorf("no verifier configured for :search stage")
	}

	winner, err := strategy.Search(ctx, state.query, opts.Generator, verifier, searchOpts)
	if err != nil {
		return err
	}
	state.searchResult = winner
	state.best = winner
	state.candidates = []*accuracytype.Candidate{winner}
	return nil
}

func (p *Pipeline) runReflection(ctx context.Context, state *runState, opts RunOptions) error {
	if p.ReflectCritique == nil || p.ReflectRevise == nil {
		return fmt.Errorf("no critiquer/reviser configured for :reflection stage")
	}
	if state.best == nil {
		return fmt.Errorf("no candidate to reflect on")
	}
	cfg := p.ReflectConfig
	if sub, ok := p.Config.SubConfigs[accuracytype.StageReflection].(ReflectionSubConfig); ok {
		cfg = sub.Config
	}
	if cfg.MaxIterations <= 0 && state.budget != nil {
		if state.budget.MaxRefinements <= 0 {
			// Allocated budget calls for zero refinement passes at this
			// difficulty level; leave the current best candidate untouched
			// rather than falling back to reflect.Loop's own default.
			return errStageSkipped
		}
		cfg.MaxIterations = state.budget.MaxRefinements
	}

	loop := reflect.New(p.ReflectCritique, p.ReflectRevise, cfg)
	loop.Memory = p.Memory

	result, err := loop.Run(ctx, state.query, state.best)
	if err != nil {
		return err
	}
	state.reflectResult = result
	state.best = result.BestCandidate
	state.candidates = []*accuracytype.Candidate{result.BestCandidate}
	return nil
}

func (p *Pipeline) runCalibration(_ context.Context, state *runState) error {
	if state.best == nil {
		return fmt.Errorf("no candidate to calibrate")
	}
	gate := p.Gate
	if sub, ok := p.Config.SubConfigs[accuracytype.StageCalibration].(CalibrationSubConfig); ok {
		gate = sub.Gate
	}

	score := 0.0
	if state.best.Score != nil {
		score = *state.best.Score
	}
	routing := gate.Route(state.best, score)
	state.routing = &routing
	return nil
}

func (p *Pipeline) verifierFor(opts RunOptions) verify.Verifier {
	if opts.Verifier != nil {
		return opts.Verifier
	}
	if p.VerifyRunner != nil {
		return p.VerifyRunner
	}
	return nil
}
