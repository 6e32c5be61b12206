// Package pipeline composes the accuracy components (difficulty, budget,
// generation, verification, search, reflection, calibration) into a single
// ordered run, threading state sequentially between stages and emitting the
// telemetry/trace surface described by the rest of the module. Grounded on
// the teacher's orchestration.SmartExecutor stage-sequencing idiom, reduced
// to sequential execution since the accumulated pipeline state is threaded
// by value rather than shared across goroutines.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/calibrateai/accuracy/budget"
	"github.com/calibrateai/accuracy/calibrate"
	"github.com/calibrateai/accuracy/difficulty"
	"github.com/calibrateai/accuracy/generator"
	"github.com/calibrateai/accuracy/reflect"
	"github.com/calibrateai/accuracy/search"
	"github.com/calibrateai/accuracy/telemetry"
	"github.com/calibrateai/accuracy/verify"
)

// ErrMissingGenerationStage extends the closed error-tag set for the one
// PipelineConfig validation failure the spec names without a literal tag:
// a config whose stage list omits :generation.
var ErrMissingGenerationStage = errors.New("invalid_pipeline_config")

// defaultStageTimeout bounds an individual stage when its StageTimeouts
// entry is unset, per the "per-stage default" wording alongside
// Pipeline.timeout.
const defaultStageTimeout = 10 * time.Second

// Retriever is the pluggable RAG lookup the :rag stage delegates to. No
// concrete retrieval backend ships with this module; callers supply one via
// RunOptions.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// RunOptions carries the per-run generator, optional collaborators, and
// preset label.
type RunOptions struct {
	Generator accuracytype.Generator
	Verifier  verify.Verifier
	Retriever Retriever
	Preset    string
	Extra     map[string]interface{}
}

// Pipeline composes one configured run of every stage named in its
// PipelineConfig. All fields besides Config have workable zero-value
// defaults; use the With* options to override them.
type Pipeline struct {
	Config accuracytype.PipelineConfig

	Difficulty      difficulty.Estimator
	Budgeter        budget.Budgeter
	SelfConsistency generator.Config
	VerifyRunner    *verify.Runner
	SearchStrategy  search.Strategy
	ReflectCritique reflect.Critiquer
	ReflectRevise   reflect.Reviser
	ReflectConfig   reflect.Config
	Memory          *reflect.Memory
	Gate            calibrate.Gate
	Selective       *calibrate.SelectiveGeneration
	Uncertainty     calibrate.UncertaintyQuantification

	// StageTimeouts overrides the per-stage default for individual stages.
	// A stage with no entry here runs under defaultStageTimeout.
	StageTimeouts map[accuracytype.StageName]time.Duration

	Logger accuracytype.Logger
}

func (p *Pipeline) stageTimeout(stage accuracytype.StageName) time.Duration {
	if d, ok := p.StageTimeouts[stage]; ok && d > 0 {
		return d
	}
	return defaultStageTimeout
}

// Opt configures a Pipeline at construction time.
type Opt func(*Pipeline)

func WithDifficultyEstimator(e difficulty.Estimator) Opt { return func(p *Pipeline) { p.Difficulty = e } }
func WithBudgeter(b budget.Budgeter) Opt                 { return func(p *Pipeline) { p.Budgeter = b } }
func WithVerifyRunner(r *verify.Runner) Opt              { return func(p *Pipeline) { p.VerifyRunner = r } }
func WithSearchStrategy(s search.Strategy) Opt           { return func(p *Pipeline) { p.SearchStrategy = s } }
func WithReflection(c reflect.Critiquer, r reflect.Reviser, cfg reflect.Config) Opt {
	return func(p *Pipeline) {
		p.ReflectCritique = c
		p.ReflectRevise = r
		p.ReflectConfig = cfg
	}
}
func WithMemory(m *reflect.Memory) Opt { return func(p *Pipeline) { p.Memory = m } }
func WithGate(g calibrate.Gate) Opt    { return func(p *Pipeline) { p.Gate = g } }
func WithSelective(sg calibrate.SelectiveGeneration) Opt {
	return func(p *Pipeline) { p.Selective = &sg }
}
func WithLogger(l accuracytype.Logger) Opt { return func(p *Pipeline) { p.Logger = l } }
func WithStageTimeouts(t map[accuracytype.StageName]time.Duration) Opt {
	return func(p *Pipeline) { p.StageTimeouts = t }
}

// New validates cfg and builds a Pipeline. :generation must appear in
// cfg.Stages; everything else defaults to a workable zero value and can be
// overridden with the With* options.
func New(cfg accuracytype.PipelineConfig, opts ...Opt) (*Pipeline, error) {
	if !cfg.HasStage(accuracytype.StageGeneration) {
		return nil, accuracytype.NewPipelineError("pipeline.New", "pipeline_config", ErrMissingGenerationStage)
	}

	p := &Pipeline{
		Config:          cfg,
		Difficulty:      difficulty.NewHeuristic(),
		Budgeter:        budget.New(),
		SelfConsistency: generator.Config{},
		VerifyRunner:    verify.NewRunner(),
		SearchStrategy:  search.BeamSearch{BeamWidth: 3, Depth: 1, BranchingFactor: 2},
		Gate:            calibrate.Gate{HighThreshold: 0.7, LowThreshold: 0.4},
		Uncertainty:     calibrate.NewUncertaintyQuantification(),
		Logger:          accuracytype.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// runState is the accumulated, sequentially-threaded state passed between
// stages. Only one goroutine ever touches it at a time, per §5.
type runState struct {
	query       string
	levelHint   accuracytype.DifficultyLevel
	difficulty  *accuracytype.DifficultyEstimate
	ragContext  string
	budget      *accuracytype.ComputeBudget
	candidates  []*accuracytype.Candidate
	best        *accuracytype.Candidate
	verification *accuracytype.VerificationResult
	searchResult *accuracytype.Candidate
	reflectResult *reflect.Result
	routing     *accuracytype.RoutingResult
	tokensIn    int
	tokensOut   int
}

// Run executes every configured stage in order and assembles the final
// PipelineResult.
func (p *Pipeline) Run(ctx context.Context, query string, opts RunOptions) (*accuracytype.PipelineResult, error) {
	if query == "" {
		return nil, accuracytype.NewPipelineError("pipeline.Run", "validation", accuracytype.ErrEmptyQuery)
	}
	if opts.Generator == nil {
		return nil, accuracytype.NewPipelineError("pipeline.Run", "validation", accuracytype.ErrInvalidGenerator)
	}

	pipelineStart := time.Now()
	ctx, pipelineSpan := telemetry.PipelineStart(ctx, query, opts.Preset)

	if p.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Config.Timeout)
		defer cancel()
	}

	state := &runState{query: query, levelHint: accuracytype.DifficultyMedium}
	trace := make([]accuracytype.TraceEntry, 0, len(p.Config.Stages))

	for _, stage := range p.Config.Stages {
		stageStart := time.Now()
		_, stageSpan := telemetry.StageStart(ctx, string(stage))

		stageCtx, cancelStage := context.WithTimeout(ctx, p.stageTimeout(stage))
		err := p.runStage(stageCtx, stage, state, opts)
		if stageCtx.Err() == context.DeadlineExceeded {
			err = accuracytype.NewPipelineError("pipeline.Run", "timeout", accuracytype.ErrTimeout)
		}
		cancelStage()
		durationMs := time.Since(stageStart).Milliseconds()

		if errors.Is(err, errStageSkipped) {
			telemetry.StageStop(stageSpan, stageStart, string(stage))
			trace = append(trace, accuracytype.TraceEntry{Stage: stage, Status: accuracytype.StageSkipped, DurationMs: durationMs})
			continue
		}

		if err != nil {
			telemetry.StageException(stageSpan, stageStart, string(stage), err)
			trace = append(trace, accuracytype.TraceEntry{Stage: stage, Status: accuracytype.StageError, DurationMs: durationMs})

			if isRequiredStage(stage) {
				telemetry.PipelineException(pipelineSpan, pipelineStart, "stage_failure", err.Error())
				return nil, err
			}
			p.Logger.WarnWithContext(ctx, "optional stage failed, continuing", map[string]interface{}{
				"stage": string(stage),
				"error": err.Error(),
			})
			continue
		}

		telemetry.StageStop(stageSpan, stageStart, string(stage))
		trace = append(trace, accuracytype.TraceEntry{Stage: stage, Status: accuracytype.StageOK, DurationMs: durationMs})
	}

	result := p.buildResult(state, trace, time.Since(pipelineStart))
	telemetry.PipelineStop(pipelineSpan, pipelineStart, map[string]interface{}{
		"query":       query,
		"answer":      result.Answer,
		"confidence":  result.Confidence,
		"num_candidates": len(state.candidates),
	})
	return result, nil
}

func isRequiredStage(stage accuracytype.StageName) bool {
	return stage == accuracytype.StageGeneration || stage == accuracytype.StageCalibration
}

func (p *Pipeline) buildResult(state *runState, trace []accuracytype.TraceEntry, totalDuration time.Duration) *accuracytype.PipelineResult {
	completed := make([]string, 0, len(trace))
	for _, t := range trace {
		if t.Status == accuracytype.StageOK {
			completed = append(completed, string(t.Stage))
		}
	}

	answer := ""
	confidence := 0.0
	var action accuracytype.RoutingAction
	if state.routing != nil {
		answer = state.routing.Candidate.Content
		confidence = state.routing.OriginalScore
		action = state.routing.Action
	} else if state.best != nil {
		answer = state.best.Content
		if state.best.Score != nil {
			confidence = *state.best.Score
		}
	}

	meta := map[string]interface{}{
		"stages_completed":   completed,
		"num_candidates":     len(state.candidates),
		"input_tokens":       state.tokensIn,
		"output_tokens":      state.tokensOut,
		"total_tokens":       state.tokensIn + state.tokensOut,
		"total_duration_ms":  totalDuration.Milliseconds(),
	}
	if state.verification != nil && state.verification.Score != nil {
		meta["verification_score"] = *state.verification.Score
	}
	if state.routing != nil {
		meta["calibration_action"] = string(state.routing.Action)
		meta["calibration_level"] = string(state.routing.ConfidenceLevel)
	}

	return &accuracytype.PipelineResult{
		Answer:     answer,
		Confidence: confidence,
		Action:     action,
		Trace:      trace,
		Metadata:   meta,
	}
}
