// Package accuracytype defines the shared data model and error vocabulary
// for the accuracy pipeline: candidates, generation results, difficulty
// estimates, compute budgets, verification and calibration results, and the
// pipeline configuration/result types that compose them.
package accuracytype

import (
	"errors"
	"fmt"
)

// Sentinel errors for comparison via errors.Is(). These are the closed set
// of error tags named throughout the accuracy pipeline spec.
var (
	// Input validation
	ErrInvalidQuery            = errors.New("invalid_query")
	ErrQueryTooLong            = errors.New("query_too_long")
	ErrInvalidNumCandidates    = errors.New("invalid_num_candidates")
	ErrInvalidThresholds       = errors.New("invalid_thresholds")
	ErrInvalidAction           = errors.New("invalid_action")
	ErrInvalidScore            = errors.New("invalid_score")
	ErrInvalidConfidenceLevel  = errors.New("invalid_confidence_level")
	ErrMinMaxCandidates        = errors.New("min_candidates_must_be_less_than_max")
	ErrInvalidEarlyStop        = errors.New("early_stop_threshold_must_be_between_0_and_1")
	ErrUnknownLevel            = errors.New("unknown_level")
	ErrPromptRequired          = errors.New("prompt_required")
	ErrInvalidPatterns         = errors.New("invalid_patterns")
	ErrEmptyQuery              = errors.New("empty_query")
	ErrNoCandidates            = errors.New("no_candidates")

	// Resource exhaustion
	ErrBudgetExhausted = errors.New("budget_exhausted")
	ErrRateLimited      = errors.New("rate_limited")
	ErrTimeout          = errors.New("timeout")

	// Component failure
	ErrVerificationFailed   = errors.New("verification_failed")
	ErrBatchCritiqueFailed  = errors.New("batch_critique_failed")
	ErrGeneratorFailed      = errors.New("generator_failed")
	ErrInvalidGenerator     = errors.New("invalid_generator")

	// Infrastructure
	ErrDirectoryNotFound        = errors.New("directory_not_found")
	ErrForbiddenEnvironmentKey  = errors.New("forbidden_environment_key")
	ErrDockerNotAvailable       = errors.New("docker_not_available")
	ErrPodmanNotAvailable       = errors.New("podman_not_available")
	ErrCommandNotAllowed        = errors.New("command_not_allowed")
)

// PipelineError carries structured context around a sentinel error: which
// operation failed, what kind of error it was, and the entity ID involved.
// Modeled directly on the teacher framework's FrameworkError.
type PipelineError struct {
	Op      string // Operation that failed, e.g. "pipeline.Run"
	Kind    string // Error kind, e.g. "difficulty", "budget", "verification"
	ID      string // Optional ID of the entity involved
	Message string // Human-readable message
	Err     error  // Underlying sentinel error for wrapping
}

func (e *PipelineError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewPipelineError creates a new PipelineError wrapping a sentinel error.
func NewPipelineError(op, kind string, err error) *PipelineError {
	return &PipelineError{Op: op, Kind: kind, Err: err}
}

// IsValidation reports whether err is an input-validation error.
func IsValidation(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidQuery, ErrQueryTooLong, ErrInvalidNumCandidates,
		ErrInvalidThresholds, ErrInvalidAction, ErrInvalidScore,
		ErrInvalidConfidenceLevel, ErrMinMaxCandidates, ErrInvalidEarlyStop,
		ErrUnknownLevel, ErrPromptRequired, ErrInvalidPatterns, ErrEmptyQuery,
		ErrNoCandidates,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// IsResourceExhausted reports whether err signals resource exhaustion
// (budget, rate limit, or timeout).
func IsResourceExhausted(err error) bool {
	return errors.Is(err, ErrBudgetExhausted) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout)
}

// IsRetryable reports whether err is transient and safe to retry at the
// generator/verifier boundary.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrGeneratorFailed)
}
