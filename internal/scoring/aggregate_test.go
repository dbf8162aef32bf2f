package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vibecope/vibecope/internal/features"
)

func setOf(values map[features.Kind]float64) *features.Set {
	var s features.Set
	for k, v := range values {
		s[k] = features.Result{Value: v, Reason: k.String() + " fired"}
	}
	return &s
}

func TestExplain_Branches(t *testing.T) {
	tests := []struct {
		name       string
		set        *features.Set
		wantBranch Branch
		wantScore  int
	}{
		{
			name:       "nothing fired",
			set:        setOf(nil),
			wantBranch: BranchFloor,
			wantScore:  0,
		},
		{
			name:       "structural only uses the floor",
			set:        setOf(map[features.Kind]float64{features.FormatBro: 1, features.ListicleFormat: 1}),
			wantBranch: BranchFloor,
			wantScore:  2, // (0.15 + 0.20) * 5 = 1.75
		},
		{
			name:       "weak pattern is not boosted",
			set:        setOf(map[features.Kind]float64{features.TimeframeClaim: 0.3, features.ListicleFormat: 1}),
			wantBranch: BranchPattern,
			wantScore:  6,
		},
		{
			name:       "boost above threshold",
			set:        setOf(map[features.Kind]float64{features.AIReplacement: 0.8, features.ListicleFormat: 1}),
			wantBranch: BranchBoost,
			wantScore:  18, // 16 * 1.1 = 17.6
		},
		{
			name: "clamped at 100",
			set: setOf(map[features.Kind]float64{
				features.TimeframeClaim: 1, features.BuzzwordDensity: 1, features.SelfHypeCombo: 1,
				features.MonetaryClaims: 1, features.EngagementBait: 1, features.AIReplacement: 1,
				features.FormatBro: 1, features.CapsIntensity: 1, features.ExclamationDensity: 1,
				features.ListicleFormat: 1, features.RhetoricalHooks: 1, features.SuperlativeDensity: 1,
				features.HypeEmoji: 1,
			}),
			wantBranch: BranchBoost,
			wantScore:  100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, b := Explain(tt.set)
			assert.Equal(t, tt.wantBranch, b.Branch)
			assert.Equal(t, tt.wantScore, r.Score)
			assert.NotNil(t, r.Reasons)
		})
	}
}

func TestExplain_BoostThreshold(t *testing.T) {
	structural := map[features.Kind]float64{features.RhetoricalHooks: 0.7, features.HypeEmoji: 1}

	at := map[features.Kind]float64{features.TimeframeClaim: 0.4}
	for k, v := range structural {
		at[k] = v
	}
	_, b := Explain(setOf(at))
	assert.InDelta(t, MinPatternScoreForBoost, b.PatternScore, 1e-9)
	assert.Equal(t, BranchBoost, b.Branch)
	assert.InDelta(t, 0.255, b.StructuralSum, 1e-9)
	assert.InDelta(t, b.PatternScore*(1+b.StructuralSum*StructuralMaxBoost), b.Raw, 1e-9)
	assert.Greater(t, b.Raw, b.PatternScore)

	below := map[features.Kind]float64{features.TimeframeClaim: 0.39}
	for k, v := range structural {
		below[k] = v
	}
	_, b = Explain(setOf(below))
	assert.Equal(t, BranchPattern, b.Branch)
	assert.InDelta(t, b.PatternScore, b.Raw, 1e-9)
}

func TestExplain_ReasonOrder(t *testing.T) {
	var s features.Set
	s[features.HypeEmoji] = features.Result{Value: 1, Reason: "emoji"}
	s[features.FormatBro] = features.Result{Value: 1, Reason: "format"}
	s[features.AIReplacement] = features.Result{Value: 0.8, Reason: "ai"}
	s[features.TimeframeClaim] = features.Result{Value: 0.3, Reason: "timeframe"}

	r := Aggregate(&s)
	assert.Equal(t, []string{"timeframe", "ai", "format", "emoji"}, r.Reasons)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-3))
	assert.Equal(t, 0, clampScore(0.49))
	assert.Equal(t, 1, clampScore(0.5))
	assert.Equal(t, 100, clampScore(100.4))
	assert.Equal(t, 100, clampScore(250))
}
