package accuracytype

import "context"

// Logger is the minimal structured-logging interface used throughout the
// pipeline. Mirrors the teacher framework's core.Logger.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})

	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
}

// ComponentAwareLogger extends Logger with a component identifier, so
// packages can tag their own log lines (e.g. "accuracy/difficulty",
// "accuracy/pipeline") without threading a name through every call.
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// Span represents one telemetry span.
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

// Telemetry is the optional telemetry sink the pipeline emits spans and
// metrics through.
type Telemetry interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	RecordMetric(name string, value float64, labels map[string]string)
}

// NoOpLogger is the default, zero-cost Logger implementation.
type NoOpLogger struct{}

func (NoOpLogger) Info(string, map[string]interface{})  {}
func (NoOpLogger) Error(string, map[string]interface{}) {}
func (NoOpLogger) Warn(string, map[string]interface{})  {}
func (NoOpLogger) Debug(string, map[string]interface{}) {}

func (NoOpLogger) InfoWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) ErrorWithContext(context.Context, string, map[string]interface{}) {}
func (NoOpLogger) WarnWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) DebugWithContext(context.Context, string, map[string]interface{}) {}

// NoOpTelemetry is the default, zero-cost Telemetry implementation.
type NoOpTelemetry struct{}

func (NoOpTelemetry) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, NoOpSpan{}
}
func (NoOpTelemetry) RecordMetric(string, float64, map[string]string) {}

// NoOpSpan is the default, zero-cost Span implementation.
type NoOpSpan struct{}

func (NoOpSpan) End()                             {}
func (NoOpSpan) SetAttribute(string, interface{}) {}
func (NoOpSpan) RecordError(error)                {}

// GenerateRequest is a single candidate-generation call: produce N
// candidates for Prompt. Metadata carries caller context (e.g. difficulty
// hints, conversation history) that a Generator implementation may use.
type GenerateRequest struct {
	Prompt   string
	N        int
	Metadata map[string]interface{}
}

// Generator is the pluggable "ask an LM for candidate completions"
// abstraction every candidate-producing component (difficulty estimation,
// self-consistency sampling, reflection revision) is built against. Real
// implementations wrap a model API client; test/simulation implementations
// return deterministic canned candidates.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerationResult, error)
}
