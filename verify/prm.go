package verify

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/calibrateai/accuracy/accuracytype"
)

// stepIndexedScoreRe matches a "Step N:" index followed by "Score:",
// "Step Score:", or "Rating:" and a number; plainScoreRe matches the same
// labels and number without the index. Both are case-insensitive.
var stepIndexedScoreRe = regexp.MustCompile(`(?i)step\s+(\d+)\s*:\s*(?:step\s+score|score|rating)\s*:\s*(-?\d+(?:\.\d+)?)`)
var plainScoreRe = regexp.MustCompile(`(?i)(?:step\s+score|score|rating)\s*:\s*(-?\d+(?:\.\d+)?)`)

// Classification is the PRM's categorical judgement of a reasoning step.
type Classification string

const (
	ClassCorrect   Classification = "correct"
	ClassIncorrect Classification = "incorrect"
	ClassNeutral   Classification = "neutral"
)

// StepScore is one reasoning step's raw score and derived classification.
type StepScore struct {
	Score          float64
	Classification Classification
}

// LLMProcessRewardModel scores individual reasoning steps (and whole
// traces) via a Generator, extracting numeric scores from free text.
type LLMProcessRewardModel struct {
	Gen     accuracytype.Generator
	Min     float64
	Max     float64
	Timeout time.Duration
}

// NewPRM constructs a PRM scoring in [0,1].
func NewPRM(gen accuracytype.Generator) *LLMProcessRewardModel {
	return &LLMProcessRewardModel{Gen: gen, Min: 0, Max: 1, Timeout: 10 * time.Second}
}

func (p *LLMProcessRewardModel) midpoint() float64 {
	return (p.Min + p.Max) / 2
}

func (p *LLMProcessRewardModel) classify(score float64) Classification {
	rangeSize := p.Max - p.Min
	if rangeSize == 0 {
		return ClassNeutral
	}
	x := (score - p.Min) / rangeSize
	switch {
	case x >= 0.7:
		return ClassCorrect
	case x <= 0.3:
		return ClassIncorrect
	default:
		return ClassNeutral
	}
}

// ScoreStep scores a single reasoning step, returning a value in [Min,Max].
func (p *LLMProcessRewardModel) ScoreStep(ctx context.Context, step string) (StepScore, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := accuracytype.GenerateRequest{
		Prompt: fmt.Sprintf("Rate this reasoning step's correctness.\nStep: %s\nRespond with Score: <number>.", step),
		N:      1,
	}
	result, err := p.Gen.Generate(runCtx, req)
	if err != nil {
		return StepScore{}, accuracytype.NewPipelineError("verify.PRM.ScoreStep", "verify", accuracytype.ErrVerificationFailed)
	}
	best := result.BestCandidate()
	text := ""
	if best != nil {
		text = best.Reasoning + " " + best.Content
	}
	score := p.extractScore(text, 0)
	return StepScore{Score: score, Classification: p.classify(score)}, nil
}

// ScoreTrace scores every step in trace with a single Generate call,
// prompting the model to emit one "Step N: Score: X" line per step. The
// model's response is under no obligation to honor the requested shape: if
// it returns fewer score lines than there are steps, the remainder are
// padded with the midpoint; if it returns more, the excess are truncated.
func (p *LLMProcessRewardModel) ScoreTrace(ctx context.Context, trace []string) ([]StepScore, error) {
	if len(trace) == 0 {
		return nil, nil
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var prompt strings.Builder
	prompt.WriteString("Rate each reasoning step's correctness.\n")
	for i, step := range trace {
		fmt.Fprintf(&prompt, "Step %d: %s\n", i+1, step)
	}
	prompt.WriteString("Respond with exactly one line per step, in order: \"Step N: Score: <number>\".")

	result, err := p.Gen.Generate(runCtx, accuracytype.GenerateRequest{Prompt: prompt.String(), N: 1})
	if err != nil {
		return nil, accuracytype.NewPipelineError("verify.PRM.ScoreTrace", "verify", accuracytype.ErrVerificationFailed)
	}
	best := result.BestCandidate()
	text := ""
	if best != nil {
		text = best.Reasoning + " " + best.Content
	}

	return p.reconcileTraceScores(p.extractTraceScores(text), len(trace)), nil
}

// extractTraceScores pulls every scored line out of text, in the order they
// appear. It does not assume the count matches the number of requested
// steps; reconcileTraceScores handles the mismatch.
func (p *LLMProcessRewardModel) extractTraceScores(text string) []float64 {
	matches := plainScoreRe.FindAllStringSubmatch(text, -1)
	scores := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		scores = append(scores, clampRange(v, p.Min, p.Max))
	}
	return scores
}

// reconcileTraceScores pads scores with the midpoint up to n entries, or
// truncates it down to n, and classifies each resulting score.
func (p *LLMProcessRewardModel) reconcileTraceScores(scores []float64, n int) []StepScore {
	out := make([]StepScore, n)
	for i := 0; i < n; i++ {
		s := p.midpoint()
		if i < len(scores) {
			s = scores[i]
		}
		out[i] = StepScore{Score: s, Classification: p.classify(s)}
	}
	return out
}

// extractScore pulls a numeric score for stepIndex (1-based) out of free
// text. The step-indexed form "Step N: Score: X" wins when present;
// otherwise plain "Score:"/"Rating:" matches are used in order. Unparseable
// responses yield the midpoint.
func (p *LLMProcessRewardModel) extractScore(text string, stepIndex int) float64 {
	// The step-indexed form ("Step N: Score: X") wins whenever present and
	// an explicit match for stepIndex exists.
	if stepIndex > 0 {
		for _, m := range stepIndexedScoreRe.FindAllStringSubmatch(text, -1) {
			if idx, err := strconv.Atoi(m[1]); err == nil && idx == stepIndex {
				if v, err := strconv.ParseFloat(m[2], 64); err == nil {
					return clampRange(v, p.Min, p.Max)
				}
			}
		}
	}

	// Otherwise fall back to plain "Score:"/"Step Score:"/"Rating:" matches
	// in order, taking the stepIndex'th one (or the first, for a single
	// unindexed step).
	plain := plainScoreRe.FindAllStringSubmatch(text, -1)
	target := 0
	if stepIndex > 1 && stepIndex <= len(plain) {
		target = stepIndex - 1
	}
	if target < len(plain) {
		if v, err := strconv.ParseFloat(plain[target][1], 64); err == nil {
			return clampRange(v, p.Min, p.Max)
		}
	}

	return p.midpoint()
}

func clampRange(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Verify adapts the PRM to the Verifier contract: it scores candidate's
// reasoning trace (vctx.Extra["trace"], falling back to a single-step trace
// from candidate.Reasoning) and aggregates step scores into one result,
// with per-step scores preserved in StepScores.
func (p *LLMProcessRewardModel) Verify(ctx context.Context, candidate *accuracytype.Candidate, vctx Context) (*accuracytype.VerificationResult, error) {
	trace, _ := vctx.Extra["trace"].([]string)
	if len(trace) == 0 {
		trace = []string{candidate.Reasoning}
	}

	steps, err := p.ScoreTrace(ctx, trace)
	if err != nil {
		return nil, err
	}

	result := accuracytype.NewVerificationResult()
	result.CandidateID = candidate.ID

	var sum float64
	stepScores := make(map[string]float64, len(steps))
	for i, s := range steps {
		sum += s.Score
		stepScores[fmt.Sprintf("step_%d", i+1)] = s.Score
	}
	avg := sum / float64(len(steps))
	normalized := clamp01((avg - p.Min) / (p.Max - p.Min))

	confidence := 0.8
	result.Score = &normalized
	result.Confidence = &confidence
	result.StepScores = stepScores
	result.Reasoning = fmt.Sprintf("process reward model: %s", p.classify(avg))
	return result, nil
}
