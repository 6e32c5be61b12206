package calibrate

import (
	"regexp"

	"github.com/calibrateai/accuracy/accuracytype"
)

var (
	defaultAleatoricPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(best|worst|favorite|greatest|most|least)\b`),
		regexp.MustCompile(`(?i)\b(i think|i believe|in my opinion|arguably)\b`),
		regexp.MustCompile(`(?i)\b(better|worse|nicer|prettier)\b`),
		regexp.MustCompile(`(?i)\b(it depends|could mean either|ambiguous|unclear which)\b`),
	}
	defaultEpistemicPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(will|going to|in the future|by 20\d\d)\b`),
		regexp.MustCompile(`(?i)\b(predict|forecast|speculat\w*|i'm not sure|i am not sure)\b`),
		regexp.MustCompile(`(?i)\b(might|may|possibly|perhaps|unconfirmed)\b`),
	}
)

// UncertaintyQuantification classifies a query/candidate's dominant source
// of uncertainty and recommends a follow-up action.
type UncertaintyQuantification struct {
	AleatoricPatterns []*regexp.Regexp
	EpistemicPatterns []*regexp.Regexp
}

// NewUncertaintyQuantification builds a classifier using the default
// pattern sets.
func NewUncertaintyQuantification() UncertaintyQuantification {
	return UncertaintyQuantification{
		AleatoricPatterns: defaultAleatoricPatterns,
		EpistemicPatterns: defaultEpistemicPatterns,
	}
}

// WithPatterns overrides the pattern sets. Passing a nil slice for one
// argument keeps that side's current patterns; passing nil for both returns
// ErrInvalidPatterns.
func (u UncertaintyQuantification) WithPatterns(aleatoric, epistemic []*regexp.Regexp) (UncertaintyQuantification, error) {
	if aleatoric == nil && epistemic == nil {
		return u, accuracytype.ErrInvalidPatterns
	}
	if aleatoric != nil {
		u.AleatoricPatterns = aleatoric
	}
	if epistemic != nil {
		u.EpistemicPatterns = epistemic
	}
	return u, nil
}

// Classify determines whether text exhibits aleatoric (inherent ambiguity,
// opinion, subjectivity) or epistemic (lack of knowledge, speculation about
// the future) uncertainty, and recommends a suggested action.
func (u UncertaintyQuantification) Classify(text string, confidence float64) accuracytype.UncertaintyResult {
	aleatoricHits := countMatches(u.AleatoricPatterns, text)
	epistemicHits := countMatches(u.EpistemicPatterns, text)

	switch {
	case aleatoricHits == 0 && epistemicHits == 0:
		return accuracytype.UncertaintyResult{
			Type:            accuracytype.UncertaintyNone,
			Confidence:      confidence,
			Reasoning:       "no ambiguity or speculation markers found",
			SuggestedAction: accuracytype.ActionAnswerDirectly,
		}
	case aleatoricHits >= epistemicHits:
		return accuracytype.UncertaintyResult{
			Type:            accuracytype.UncertaintyAleatoric,
			Confidence:      confidence,
			Reasoning:       "query contains subjective or ambiguous language",
			SuggestedAction: accuracytype.ActionProvideOptions,
		}
	default:
		action := accuracytype.ActionSuggestSource
		if confidence >= 0.5 {
			action = accuracytype.ActionAbstainSuggest
		}
		return accuracytype.UncertaintyResult{
			Type:            accuracytype.UncertaintyEpistemic,
			Confidence:      confidence,
			Reasoning:       "query requires knowledge the model may lack or involves speculation",
			SuggestedAction: action,
		}
	}
}

func countMatches(patterns []*regexp.Regexp, text string) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			n++
		}
	}
	return n
}
