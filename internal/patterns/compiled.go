// Package patterns compiles locale phrase tables into case-insensitive matchers.
//
// A Compiled value is an immutable snapshot for one enabled-locale set. The Cache
// swaps snapshots atomically so scoring calls never see a half-built set.
package patterns

import (
	"regexp"

	"github.com/vibecope/vibecope/internal/locale"
)

// Compiled holds the matchers for one enabled-locale set.
//
// A nil matcher matches nothing.
type Compiled struct {
	// ID identifies this compilation, mostly for logs.
	ID string
	// Locales is the set of locale ids that contributed phrases, in store order.
	Locales []string

	TimeFrame        *regexp.Regexp
	TechContext      *regexp.Regexp
	Buzzwords        *regexp.Regexp
	SelfHypeVerbs    *regexp.Regexp
	EffortMinimizers *regexp.Regexp
	AIReplacement    *regexp.Regexp
	EngagementBait   *regexp.Regexp

	// Per-phrase matchers. Nothing reads them during scoring yet; they back
	// PhraseCounts.
	BuzzwordPatterns        []*regexp.Regexp
	SelfHypeVerbPatterns    []*regexp.Regexp
	EffortMinimizerPatterns []*regexp.Regexp

	// Phrases is the merged, validated phrase set per category.
	Phrases map[locale.Category][]string
	// Rejected lists phrases that failed validation.
	Rejected []Rejection
}

// Rejection records a phrase that was dropped during compilation.
type Rejection struct {
	Locale   string
	Category locale.Category
	Phrase   string
	Reason   string
}

// Matcher returns the combined matcher for a category, or nil.
func (c *Compiled) Matcher(cat locale.Category) *regexp.Regexp {
	switch cat {
	case locale.TimeFrame:
		return c.TimeFrame
	case locale.TechContext:
		return c.TechContext
	case locale.Buzzwords:
		return c.Buzzwords
	case locale.SelfHypeVerbs:
		return c.SelfHypeVerbs
	case locale.EffortMinimizers:
		return c.EffortMinimizers
	case locale.AIReplacementClaims:
		return c.AIReplacement
	case locale.EngagementBait:
		return c.EngagementBait
	default:
		return nil
	}
}

// PhraseCounts returns how often each individual phrase of cat matches text.
// Only buzzwords, self-hype verbs and effort minimizers keep per-phrase matchers;
// other categories return nil.
func (c *Compiled) PhraseCounts(cat locale.Category, text string) map[string]int {
	var individual []*regexp.Regexp
	switch cat {
	case locale.Buzzwords:
		individual = c.BuzzwordPatterns
	case locale.SelfHypeVerbs:
		individual = c.SelfHypeVerbPatterns
	case locale.EffortMinimizers:
		individual = c.EffortMinimizerPatterns
	default:
		return nil
	}

	phrases := c.Phrases[cat]
	counts := make(map[string]int)
	for i, re := range individual {
		if n := Count(re, text); n > 0 {
			counts[phrases[i]] = n
		}
	}
	return counts
}

// Match reports whether re matches text. A nil re never matches.
func Match(re *regexp.Regexp, text string) bool {
	if re == nil {
		return false
	}
	return re.MatchString(text)
}

// Count returns the number of non-overlapping matches of re in text.
func Count(re *regexp.Regexp, text string) int {
	if re == nil {
		return 0
	}
	return len(re.FindAllStringIndex(text, -1))
}
