// Package features extracts the thirteen hype signals from post text.
//
// Every feature maps text to a Result whose Value is in [0, 1]. Features never
// fail: a trigger that does not fire yields the zero Result.
package features

import "fmt"

// Kind identifies one feature.
type Kind int

// Pattern-group kinds come first, then structural-group kinds. Aggregation and
// reason ordering follow this declaration order.
const (
	TimeframeClaim Kind = iota
	BuzzwordDensity
	SelfHypeCombo
	MonetaryClaims
	EngagementBait
	AIReplacement

	FormatBro
	CapsIntensity
	ExclamationDensity
	ListicleFormat
	RhetoricalHooks
	SuperlativeDensity
	HypeEmoji

	numKinds
)

// Group is the aggregation group of a kind.
type Group int

const (
	// PatternGroup kinds form the base score.
	PatternGroup Group = iota
	// StructuralGroup kinds boost the base score or set the floor.
	StructuralGroup
)

func (g Group) String() string {
	if g == PatternGroup {
		return "pattern"
	}
	return "structural"
}

type kindInfo struct {
	name   string
	group  Group
	weight float64
}

// kinds is the single place where a feature is bound to its name, group and weight.
var kinds = [numKinds]kindInfo{
	TimeframeClaim:  {"timeframeClaim", PatternGroup, 0.20},
	BuzzwordDensity: {"buzzwordDensity", PatternGroup, 0.15},
	SelfHypeCombo:   {"selfHypeCombo", PatternGroup, 0.15},
	MonetaryClaims:  {"monetaryClaims", PatternGroup, 0.18},
	EngagementBait:  {"engagementBait", PatternGroup, 0.12},
	AIReplacement:   {"aiReplacement", PatternGroup, 0.20},

	FormatBro:          {"formatBro", StructuralGroup, 0.15},
	CapsIntensity:      {"capsIntensity", StructuralGroup, 0.10},
	ExclamationDensity: {"exclamationDensity", StructuralGroup, 0.10},
	ListicleFormat:     {"listicleFormat", StructuralGroup, 0.20},
	RhetoricalHooks:    {"rhetoricalHooks", StructuralGroup, 0.15},
	SuperlativeDensity: {"superlativeDensity", StructuralGroup, 0.15},
	HypeEmoji:          {"hypeEmoji", StructuralGroup, 0.15},
}

// String returns the feature name.
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kinds[k].name
}

// Group returns the aggregation group.
func (k Kind) Group() Group {
	return kinds[k].group
}

// Weight returns the aggregation weight.
func (k Kind) Weight() float64 {
	return kinds[k].weight
}

func (k Kind) valid() bool {
	return k >= 0 && k < numKinds
}

// All returns every kind in declaration order.
func All() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// InGroup returns the kinds of g in declaration order.
func InGroup(g Group) []Kind {
	var out []Kind
	for _, k := range All() {
		if k.Group() == g {
			out = append(out, k)
		}
	}
	return out
}

// Result is the output of one feature. An empty Reason means the feature did not fire.
type Result struct {
	Value  float64 `json:"value"`
	Reason string  `json:"reason,omitempty"`
}

// Fired reports whether the feature contributed a signal.
func (r Result) Fired() bool {
	return r.Reason != ""
}

// Set holds one Result per kind.
type Set [numKinds]Result

// Get returns the result for k.
func (s *Set) Get(k Kind) Result {
	return s[k]
}

// Map returns the results keyed by feature name.
func (s *Set) Map() map[string]Result {
	m := make(map[string]Result, numKinds)
	for _, k := range All() {
		m[k.String()] = s[k]
	}
	return m
}

// fired builds a Result, collapsing zero values to the empty Result so that a
// reason is never reported for a feature that adds nothing.
func fired(value float64, reason string) Result {
	value = clamp01(value)
	if value == 0 {
		return Result{}
	}
	return Result{Value: value, Reason: reason}
}

func clamp01(n float64) float64 {
	switch {
	case n < 0:
		return 0
	case n > 1:
		return 1
	default:
		return n
	}
}
