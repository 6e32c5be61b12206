// Package difficulty implements the difficulty-estimation strategies of
// spec §4.1: a pure heuristic scorer, an LLM-delegating scorer, and an
// ensemble that composes several estimators. Grounded on the teacher's
// resilience error-classification idiom (deterministic, side-effect-free
// scoring functions) and telemetry's prompt-sanitization helper for safe
// logging of query text.
package difficulty

import (
	"context"
	"regexp"
	"strings"

	"github.com/calibrateai/accuracy/accuracytype"
)

const maxQueryBytes = 50000

var reasoningCueWords = []string{
	"why", "how", "prove", "explain", "derive", "analyze", "compare",
	"evaluate", "optimize", "design", "algorithm", "theorem", "because",
	"therefore", "trade-off", "tradeoff",
}

var domainKeywords = []string{
	"integral", "derivative", "matrix", "eigenvalue", "quantum", "polynomial",
	"asymptotic", "recursion", "concurrency", "distributed", "proof",
	"regression", "gradient", "architecture", "thermodynamics", "topology",
}

var specialCharRe = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

// Estimator is the §4.1 estimate contract: classify a query into a
// DifficultyEstimate, or fail validation.
type Estimator interface {
	Estimate(ctx context.Context, query string, hints map[string]interface{}) (*accuracytype.DifficultyEstimate, error)
}

// Heuristic is a pure, O(len(query)) difficulty scorer: no I/O, no
// randomness, deterministic for identical input and weights.
type Heuristic struct{}

// NewHeuristic constructs a Heuristic estimator.
func NewHeuristic() *Heuristic { return &Heuristic{} }

// Estimate scores query using length, token count, special-character
// density, domain-keyword hits, and reasoning-cue words. Always completes
// in time linear in the length of query (<1ms for typical ~100-char
// queries).
func (h *Heuristic) Estimate(_ context.Context, query string, _ map[string]interface{}) (*accuracytype.DifficultyEstimate, error) {
	if query == "" {
		return nil, accuracytype.NewPipelineError("difficulty.Estimate", "difficulty", accuracytype.ErrInvalidQuery)
	}
	if len(query) > maxQueryBytes {
		return nil, accuracytype.NewPipelineError("difficulty.Estimate", "difficulty", accuracytype.ErrQueryTooLong)
	}

	tokens := strings.Fields(query)
	tokenCount := len(tokens)
	lengthScore := clamp01(float64(len(query)) / 500.0)
	tokenScore := clamp01(float64(tokenCount) / 80.0)

	specialChars := specialCharRe.FindAllString(query, -1)
	specialDensity := 0.0
	if len([]rune(query)) > 0 {
		specialDensity = clamp01(float64(len(specialChars)) / float64(len([]rune(query))) * 4.0)
	}

	lower := strings.ToLower(query)
	domainHits := countHits(lower, domainKeywords)
	domainScore := clamp01(float64(domainHits) / 3.0)

	cueHits := countHits(lower, reasoningCueWords)
	cueScore := clamp01(float64(cueHits) / 3.0)

	score := clamp01(0.2*lengthScore + 0.2*tokenScore + 0.15*specialDensity + 0.25*domainScore + 0.2*cueScore)

	confidence := 0.6 + 0.4*clamp01(float64(tokenCount)/40.0)

	est := accuracytype.NewDifficultyEstimate(score, confidence, "heuristic: length/token/keyword composite")
	est.Metadata["token_count"] = tokenCount
	est.Metadata["domain_hits"] = domainHits
	est.Metadata["cue_hits"] = cueHits
	return est, nil
}

func countHits(lower string, words []string) int {
	hits := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			hits++
		}
	}
	return hits
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
