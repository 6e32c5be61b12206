package pipeline

import (
	"time"

	"github.com/calibrateai/accuracy/accuracytype"
)

const defaultRunTimeout = 30 * time.Second

// RunDirective is the pipeline-level command an inbound accuracy.run signal
// maps to.
type RunDirective struct {
	ID      string
	Query   string
	Preset  string
	Config  map[string]interface{}
	Timeout time.Duration
}

// RunSignal is the inbound accuracy.run wire shape.
type RunSignal struct {
	Query  string                 `json:"query"`
	Preset string                 `json:"preset,omitempty"`
	Config map[string]interface{} `json:"config,omitempty"`
}

// DirectiveFromSignal maps an inbound accuracy.run signal to a RunDirective,
// applying the default preset and timeout.
func DirectiveFromSignal(id string, sig RunSignal) RunDirective {
	preset := sig.Preset
	if preset == "" {
		preset = "balanced"
	}
	return RunDirective{
		ID:      id,
		Query:   sig.Query,
		Preset:  preset,
		Config:  sig.Config,
		Timeout: defaultRunTimeout,
	}
}

// ResultSignal is the accuracy.result output shape.
type ResultSignal struct {
	CallID     string                 `json:"call_id"`
	Query      string                 `json:"query"`
	Preset     string                 `json:"preset"`
	Answer     string                 `json:"answer"`
	Confidence float64                `json:"confidence"`
	Candidates int                    `json:"candidates"`
	DurationMs int64                  `json:"duration_ms"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// ErrorSignal is the accuracy.error output shape.
type ErrorSignal struct {
	CallID  string `json:"call_id"`
	Query   string `json:"query"`
	Preset  string `json:"preset"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

// ResultSignalFrom builds a ResultSignal from a completed PipelineResult.
func ResultSignalFrom(callID, query, preset string, result *accuracytype.PipelineResult) ResultSignal {
	numCandidates, _ := result.Metadata["num_candidates"].(int)
	durationMs, _ := result.Metadata["total_duration_ms"].(int64)
	return ResultSignal{
		CallID:     callID,
		Query:      query,
		Preset:     preset,
		Answer:     result.Answer,
		Confidence: result.Confidence,
		Candidates: numCandidates,
		DurationMs: durationMs,
		Metadata:   result.Metadata,
	}
}

// ErrorSignalFrom builds an ErrorSignal from a failed run.
func ErrorSignalFrom(callID, query, preset string, err error) ErrorSignal {
	sig := ErrorSignal{CallID: callID, Query: query, Preset: preset, Message: err.Error()}
	if perr, ok := err.(*accuracytype.PipelineError); ok {
		sig.Error = perr.Kind
		sig.Stage = perr.Op
	} else {
		sig.Error = "error"
	}
	return sig
}
