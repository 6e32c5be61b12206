package accuracytype

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is one generator output together with its metadata. Score
// updates never mutate in place — WithScore returns a new value, matching
// the spec's "mutated only by replacement" lifecycle rule.
type Candidate struct {
	ID         string
	Content    string
	Reasoning  string
	Score      *float64
	TokensUsed *int
	Model      string
	Timestamp  time.Time
	Metadata   map[string]interface{}
}

// NewCandidate builds a Candidate with an auto-generated ID and timestamp.
func NewCandidate(content string) *Candidate {
	return &Candidate{
		ID:        uuid.NewString(),
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  map[string]interface{}{},
	}
}

// WithScore returns a copy of the candidate with an updated score.
func (c Candidate) WithScore(score float64) *Candidate {
	c.Score = &score
	return &c
}

// ToMap renders the candidate as a string-keyed map.
func (c *Candidate) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":        c.ID,
		"content":   c.Content,
		"reasoning": c.Reasoning,
		"model":     c.Model,
		"timestamp": c.Timestamp,
		"metadata":  c.Metadata,
	}
	if c.Score != nil {
		m["score"] = *c.Score
	}
	if c.TokensUsed != nil {
		m["tokens_used"] = *c.TokensUsed
	}
	return m
}

// CandidateFromMap parses a Candidate back out of a string-keyed map,
// generating an ID if one isn't present.
func CandidateFromMap(m map[string]interface{}) *Candidate {
	c := &Candidate{Metadata: map[string]interface{}{}}
	if v, ok := m["id"].(string); ok && v != "" {
		c.ID = v
	} else {
		c.ID = uuid.NewString()
	}
	if v, ok := m["content"].(string); ok {
		c.Content = v
	}
	if v, ok := m["reasoning"].(string); ok {
		c.Reasoning = v
	}
	if v, ok := m["model"].(string); ok {
		c.Model = v
	}
	if v, ok := m["score"]; ok {
		if f, ok := toFloat(v); ok {
			c.Score = &f
		}
	}
	if v, ok := m["tokens_used"]; ok {
		if f, ok := toFloat(v); ok {
			n := int(f)
			c.TokensUsed = &n
		}
	}
	if v, ok := m["timestamp"].(time.Time); ok {
		c.Timestamp = v
	} else {
		c.Timestamp = time.Now()
	}
	if v, ok := m["metadata"].(map[string]interface{}); ok {
		c.Metadata = v
	}
	return c
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// GenerationResult is an ordered set of Candidates produced by a single
// generation round, plus derived aggregates.
type GenerationResult struct {
	Candidates        []*Candidate
	AggregationMethod string
	Metadata          map[string]interface{}
}

// NewGenerationResult builds a GenerationResult from a candidate slice.
func NewGenerationResult(candidates []*Candidate, method string) *GenerationResult {
	return &GenerationResult{
		Candidates:        candidates,
		AggregationMethod: method,
		Metadata:          map[string]interface{}{},
	}
}

// TotalTokens sums TokensUsed over all candidates, treating an absent value
// as zero.
func (g *GenerationResult) TotalTokens() int {
	total := 0
	for _, c := range g.Candidates {
		if c.TokensUsed != nil {
			total += *c.TokensUsed
		}
	}
	return total
}

// BestCandidate returns the candidate with the greatest score, or nil if no
// candidate carries a score (or the set is empty).
func (g *GenerationResult) BestCandidate() *Candidate {
	var best *Candidate
	var bestScore float64
	for _, c := range g.Candidates {
		if c.Score == nil {
			continue
		}
		if best == nil || *c.Score > bestScore {
			best = c
			bestScore = *c.Score
		}
	}
	return best
}
