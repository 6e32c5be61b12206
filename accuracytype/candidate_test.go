package accuracytype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCandidateAutoID(t *testing.T) {
	c := NewCandidate("hello")
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "hello", c.Content)
	assert.Nil(t, c.Score)
}

func TestCandidateWithScoreIsImmutable(t *testing.T) {
	c := NewCandidate("x")
	c2 := c.WithScore(0.9)
	require.Nil(t, c.Score)
	require.NotNil(t, c2.Score)
	assert.Equal(t, 0.9, *c2.Score)
}

func TestCandidateRoundTrip(t *testing.T) {
	score := 0.75
	tokens := 42
	c := &Candidate{
		ID:        "abc",
		Content:   "the answer is 42",
		Reasoning: "because",
		Score:     &score,
		TokensUsed: &tokens,
		Model:     "test-model",
		Metadata:  map[string]interface{}{"k": "v"},
	}
	m := c.ToMap()
	c2 := CandidateFromMap(m)

	assert.Equal(t, c.ID, c2.ID)
	assert.Equal(t, c.Content, c2.Content)
	assert.Equal(t, c.Reasoning, c2.Reasoning)
	require.NotNil(t, c2.Score)
	assert.Equal(t, *c.Score, *c2.Score)
	require.NotNil(t, c2.TokensUsed)
	assert.Equal(t, *c.TokensUsed, *c2.TokensUsed)
	assert.Equal(t, c.Model, c2.Model)
}

func TestGenerationResultTotalTokens(t *testing.T) {
	t1, t2 := 10, 20
	g := NewGenerationResult([]*Candidate{
		{TokensUsed: &t1},
		{TokensUsed: &t2},
		{},
	}, "majority")
	assert.Equal(t, 30, g.TotalTokens())
}

func TestGenerationResultBestCandidate(t *testing.T) {
	s1, s2 := 0.4, 0.9
	best := &Candidate{ID: "b", Score: &s2}
	g := NewGenerationResult([]*Candidate{
		{ID: "a", Score: &s1},
		best,
	}, "best_of_n")
	assert.Equal(t, "b", g.BestCandidate().ID)
}

func TestGenerationResultBestCandidateAllAbsent(t *testing.T) {
	g := NewGenerationResult([]*Candidate{{ID: "a"}, {ID: "b"}}, "majority")
	assert.Nil(t, g.BestCandidate())
}
