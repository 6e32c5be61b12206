package calibrate

import (
	"regexp"
	"testing"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyNoneWhenNoMarkers(t *testing.T) {
	u := NewUncertaintyQuantification()
	result := u.Classify("What is the boiling point of water at sea level?", 0.9)
	assert.Equal(t, accuracytype.UncertaintyNone, result.Type)
	assert.Equal(t, accuracytype.ActionAnswerDirectly, result.SuggestedAction)
}

func TestClassifyAleatoricFromOpinionLanguage(t *testing.T) {
	u := NewUncertaintyQuantification()
	result := u.Classify("What is the best programming language?", 0.7)
	assert.Equal(t, accuracytype.UncertaintyAleatoric, result.Type)
	assert.Equal(t, accuracytype.ActionProvideOptions, result.SuggestedAction)
}

func TestClassifyEpistemicHighConfidenceSuggestsAbstain(t *testing.T) {
	u := NewUncertaintyQuantification()
	result := u.Classify("Who will win the election in 2028?", 0.6)
	assert.Equal(t, accuracytype.UncertaintyEpistemic, result.Type)
	assert.Equal(t, accuracytype.ActionAbstainSuggest, result.SuggestedAction)
}

func TestClassifyEpistemicLowConfidenceSuggestsSource(t *testing.T) {
	u := NewUncertaintyQuantification()
	result := u.Classify("Who might win the election in 2028?", 0.2)
	assert.Equal(t, accuracytype.UncertaintyEpistemic, result.Type)
	assert.Equal(t, accuracytype.ActionSuggestSource, result.SuggestedAction)
}

func TestWithPatternsRejectsBothNil(t *testing.T) {
	u := NewUncertaintyQuantification()
	_, err := u.WithPatterns(nil, nil)
	assert.ErrorIs(t, err, accuracytype.ErrInvalidPatterns)
}

func TestWithPatternsOverridesOneSide(t *testing.T) {
	u := NewUncertaintyQuantification()
	custom := []*regexp.Regexp{regexp.MustCompile(`(?i)\bfoo\b`)}
	updated, err := u.WithPatterns(custom, nil)
	require.NoError(t, err)
	assert.Len(t, updated.AleatoricPatterns, 1)
	assert.Equal(t, defaultEpistemicPatterns, updated.EpistemicPatterns)
}
