package accuracytype

import "time"

// StageName is one of the composable pipeline stages.
type StageName string

const (
	StageDifficultyEstimation StageName = "difficulty_estimation"
	StageRAG                  StageName = "rag"
	StageGeneration           StageName = "generation"
	StageVerification         StageName = "verification"
	StageSearch               StageName = "search"
	StageReflection           StageName = "reflection"
	StageCalibration          StageName = "calibration"
)

// StageStatus is the trace outcome of one attempted stage.
type StageStatus string

const (
	StageOK      StageStatus = "ok"
	StageError   StageStatus = "error"
	StageSkipped StageStatus = "skipped"
)

// TraceEntry is one per-stage record in PipelineResult.Trace.
type TraceEntry struct {
	Stage      StageName
	Status     StageStatus
	DurationMs int64
}

// PipelineConfig is the ordered stage list plus per-stage sub-configuration.
type PipelineConfig struct {
	Stages      []StageName
	SubConfigs  map[StageName]interface{}
	Timeout     time.Duration
}

// HasStage reports whether a stage tag appears in the configured order.
func (c PipelineConfig) HasStage(name StageName) bool {
	for _, s := range c.Stages {
		if s == name {
			return true
		}
	}
	return false
}

// PipelineResult is the final answer, routing decision, and telemetry trace
// of one pipeline run.
type PipelineResult struct {
	Answer     string
	Confidence float64
	Action     RoutingAction
	Trace      []TraceEntry
	Metadata   map[string]interface{}
}

// ReflexionMemoryEntry is one stored mistake/correction pair.
type ReflexionMemoryEntry struct {
	ID         string
	Prompt     string
	Mistake    string
	Correction string
	Severity   float64
	Keywords   []string
	Timestamp  time.Time
}
