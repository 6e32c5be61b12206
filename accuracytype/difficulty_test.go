package accuracytype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForScoreBoundaries(t *testing.T) {
	assert.Equal(t, DifficultyEasy, LevelForScore(0.0))
	assert.Equal(t, DifficultyEasy, LevelForScore(0.349))
	assert.Equal(t, DifficultyMedium, LevelForScore(0.35))
	assert.Equal(t, DifficultyMedium, LevelForScore(0.65))
	assert.Equal(t, DifficultyHard, LevelForScore(0.651))
	assert.Equal(t, DifficultyHard, LevelForScore(1.0))
}

func TestCanonicalBudgetCosts(t *testing.T) {
	assert.Equal(t, 3.0, EasyBudget().Cost())
	assert.Equal(t, 8.5, MediumBudget().Cost())
	assert.Equal(t, 17.5, HardBudget().Cost())
}

func TestBudgetCostFormula(t *testing.T) {
	b := ComputeBudget{NumCandidates: 4, UsePRM: true, UseSearch: true, SearchIterations: 100, MaxRefinements: 3}
	// 4 + 0.5*4 + 0.01*100 + 3 = 4+2+1+3=10
	assert.Equal(t, 10.0, b.Cost())
}

func TestBudgetForLevelUnknown(t *testing.T) {
	_, ok := BudgetForLevel("")
	assert.False(t, ok)
}
