package scoring

import (
	"math"

	"github.com/vibecope/vibecope/internal/features"
)

// Aggregation constants.
const (
	// MinPatternScoreForBoost is the pattern score from which structural signal
	// amplifies the result. Weaker pattern matches are never boosted.
	MinPatternScoreForBoost = 8.0

	// StructuralMaxBoost caps the structural amplification at +50%.
	StructuralMaxBoost = 0.5

	// StructuralFloor scales the structural sum when no pattern feature fired.
	StructuralFloor = 5.0
)

// Branch names the rule that produced the raw score.
type Branch string

const (
	BranchBoost   Branch = "boost"
	BranchPattern Branch = "pattern"
	BranchFloor   Branch = "floor"
)

// Result is the outcome of scoring one post.
type Result struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Breakdown exposes the intermediate values of a heuristic score.
type Breakdown struct {
	PatternScore  float64 `json:"pattern_score"`
	StructuralSum float64 `json:"structural_sum"`
	Raw           float64 `json:"raw"`
	Branch        Branch  `json:"branch"`
}

// Aggregate combines a feature set into a 0..100 score and its reasons.
func Aggregate(set *features.Set) Result {
	r, _ := Explain(set)
	return r
}

// Explain is Aggregate that also returns the intermediate values.
//
// Reasons follow feature declaration order, so pattern reasons always precede
// structural ones. Reasons is never nil.
func Explain(set *features.Set) (Result, Breakdown) {
	var b Breakdown
	reasons := make([]string, 0, 4)

	for _, k := range features.All() {
		r := set.Get(k)
		switch k.Group() {
		case features.PatternGroup:
			b.PatternScore += r.Value * k.Weight() * 100
		case features.StructuralGroup:
			b.StructuralSum += r.Value * k.Weight()
		}
		if r.Fired() {
			reasons = append(reasons, r.Reason)
		}
	}

	switch {
	case b.PatternScore >= MinPatternScoreForBoost:
		b.Raw = b.PatternScore * (1 + b.StructuralSum*StructuralMaxBoost)
		b.Branch = BranchBoost
	case b.PatternScore > 0:
		b.Raw = b.PatternScore
		b.Branch = BranchPattern
	default:
		b.Raw = b.StructuralSum * StructuralFloor
		b.Branch = BranchFloor
	}

	return Result{Score: clampScore(b.Raw), Reasons: reasons}, b
}

func clampScore(raw float64) int {
	s := math.Round(raw)
	switch {
	case math.IsNaN(s) || s < 0:
		return 0
	case s > 100:
		return 100
	default:
		return int(s)
	}
}
