package accuracytype

// DifficultyLevel classifies a query's estimated difficulty.
type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// LevelForScore derives the canonical level for a score, per spec §3:
// easy iff score<0.35, hard iff score>0.65, medium otherwise.
func LevelForScore(score float64) DifficultyLevel {
	switch {
	case score < 0.35:
		return DifficultyEasy
	case score > 0.65:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// DifficultyEstimate is the result of a difficulty estimator.
type DifficultyEstimate struct {
	Level      DifficultyLevel
	Score      float64
	Confidence float64
	Reasoning  string
	Metadata   map[string]interface{}
}

// NewDifficultyEstimate builds an estimate, deriving Level from Score. Callers
// that compute Level separately should obey the same banding (producers must
// obey the score<->level correspondence; this constructor enforces it).
func NewDifficultyEstimate(score, confidence float64, reasoning string) *DifficultyEstimate {
	return &DifficultyEstimate{
		Level:      LevelForScore(score),
		Score:      score,
		Confidence: confidence,
		Reasoning:  reasoning,
		Metadata:   map[string]interface{}{},
	}
}

// ComputeBudget is the sampling/verification budget allocated for a query.
type ComputeBudget struct {
	NumCandidates    int
	UsePRM           bool
	UseSearch        bool
	MaxRefinements   int
	SearchIterations int
	PRMThreshold     float64
}

// Cost computes the canonical budget cost per spec §3:
// cost = num_candidates + (use_prm?num_candidates*0.5:0) +
//
//	(use_search?search_iterations*0.01:0) + max_refinements
func (b ComputeBudget) Cost() float64 {
	cost := float64(b.NumCandidates)
	if b.UsePRM {
		cost += float64(b.NumCandidates) * 0.5
	}
	if b.UseSearch {
		cost += float64(b.SearchIterations) * 0.01
	}
	cost += float64(b.MaxRefinements)
	return cost
}

// Canonical presets (spec §3): easy (3,no,no,0)->3.0, medium
// (5,yes,no,1)->8.5, hard (10,yes,yes@50,2)->17.5.
func EasyBudget() ComputeBudget {
	return ComputeBudget{NumCandidates: 3}
}

func MediumBudget() ComputeBudget {
	return ComputeBudget{NumCandidates: 5, UsePRM: true, MaxRefinements: 1}
}

func HardBudget() ComputeBudget {
	return ComputeBudget{
		NumCandidates: 10, UsePRM: true, UseSearch: true,
		SearchIterations: 50, MaxRefinements: 2,
	}
}

func BudgetForLevel(level DifficultyLevel) (ComputeBudget, bool) {
	switch level {
	case DifficultyEasy:
		return EasyBudget(), true
	case DifficultyMedium:
		return MediumBudget(), true
	case DifficultyHard:
		return HardBudget(), true
	default:
		return ComputeBudget{}, false
	}
}
