package telemetry

import (
	"context"
	"time"
)

// PipelineStart emits the accuracy.pipeline.start span/metadata and returns
// the span so the caller can End() it (directly, or via PipelineStop).
func PipelineStart(ctx context.Context, query, preset string) (context.Context, *Span) {
	ctx, span := StartSpan(ctx, "accuracy.pipeline.start")
	span.SetAttribute("query", SanitizePrompt(query))
	if preset != "" {
		span.SetAttribute("preset", preset)
	}
	Counter("accuracy.pipeline.start", "preset", preset)
	return ctx, span
}

// PipelineStop emits accuracy.pipeline.stop: duration plus the result
// metadata named in the spec (query/answer/confidence/token counts/etc).
func PipelineStop(span *Span, start time.Time, meta map[string]interface{}) {
	setAttributes(span, meta)
	Duration("accuracy.pipeline.stop", start)
	span.End()
}

// PipelineException emits accuracy.pipeline.exception.
func PipelineException(span *Span, start time.Time, kind, reason string) {
	span.SetAttribute("kind", kind)
	span.SetAttribute("reason", reason)
	Duration("accuracy.pipeline.exception", start, "kind", kind, "reason", reason)
	span.End()
}

// StageStart/StageStop/StageException emit accuracy.stage.{start,stop,exception}.
func StageStart(ctx context.Context, stageName string) (context.Context, *Span) {
	ctx, span := StartSpan(ctx, "accuracy.stage.start")
	span.SetAttribute("stage_name", stageName)
	return ctx, span
}

func StageStop(span *Span, start time.Time, stageName string) {
	Duration("accuracy.stage.stop", start, "stage_name", stageName)
	span.End()
}

func StageException(span *Span, start time.Time, stageName string, err error) {
	span.RecordError(err)
	Duration("accuracy.stage.exception", start, "stage_name", stageName, "reason", err.Error())
	span.End()
}

// CalibrationRoute emits accuracy.calibration.route.
func CalibrationRoute(start time.Time, action, confidenceLevel string, score float64) {
	Duration("accuracy.calibration.route", start,
		"action", action,
		"confidence_level", confidenceLevel,
	)
	Histogram("accuracy.calibration.score", score, "action", action)
}

// SelfConsistencyStart/Stop/Exception emit accuracy.self_consistency.*.
func SelfConsistencyStart(ctx context.Context, level string) (context.Context, *Span) {
	ctx, span := StartSpan(ctx, "accuracy.self_consistency.start")
	span.SetAttribute("difficulty_level", level)
	return ctx, span
}

func SelfConsistencyStop(span *Span, start time.Time, meta map[string]interface{}) {
	setAttributes(span, meta)
	Duration("accuracy.self_consistency.stop", start)
	span.End()
}

func SelfConsistencyException(span *Span, start time.Time, reason string) {
	Duration("accuracy.self_consistency.exception", start, "reason", reason)
	span.End()
}

// VerificationStart/Stop are standalone spans around verify_candidate.
func VerificationStart(ctx context.Context) (context.Context, *Span) {
	return StartSpan(ctx, "verification.start")
}

func VerificationStop(span *Span, start time.Time) {
	Duration("verification.stop", start)
	span.End()
}

func setAttributes(span *Span, meta map[string]interface{}) {
	for k, v := range meta {
		span.SetAttribute(k, v)
	}
}
