package features

import (
	"fmt"

	"github.com/vibecope/vibecope/internal/patterns"
)

// Extractor computes every feature against one compiled pattern snapshot.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	patterns *patterns.Compiled
}

// NewExtractor binds an extractor to a snapshot. A nil snapshot behaves like one
// with no enabled locales.
func NewExtractor(p *patterns.Compiled) *Extractor {
	if p == nil {
		p = &patterns.Compiled{}
	}
	return &Extractor{patterns: p}
}

// Extract computes all thirteen features for text.
func (e *Extractor) Extract(text string) Set {
	wc := WordCount(text)

	var s Set
	s[TimeframeClaim] = e.TimeframeClaim(text)
	s[BuzzwordDensity] = e.BuzzwordDensity(text, wc)
	s[SelfHypeCombo] = e.SelfHypeCombo(text)
	s[MonetaryClaims] = MonetaryClaimsFeature(text)
	s[EngagementBait] = e.EngagementBait(text)
	s[AIReplacement] = e.AIReplacement(text)

	s[FormatBro] = FormatBroFeature(text)
	s[CapsIntensity] = CapsIntensityFeature(text)
	s[ExclamationDensity] = ExclamationDensityFeature(text)
	s[ListicleFormat] = ListicleFormatFeature(text)
	s[RhetoricalHooks] = RhetoricalHooksFeature(text)
	s[SuperlativeDensity] = SuperlativeDensityFeature(text)
	s[HypeEmoji] = HypeEmojiFeature(text, wc)
	return s
}

// TimeframeClaim detects "in 3 days"-style promises, stronger with a tech context.
func (e *Extractor) TimeframeClaim(text string) Result {
	if !patterns.Match(e.patterns.TimeFrame, text) {
		return Result{}
	}
	if patterns.Match(e.patterns.TechContext, text) {
		return fired(1.0, "Timeframe claim with tech context")
	}
	return fired(0.3, "Timeframe claim (no tech context)")
}

// BuzzwordDensity measures buzzword matches per word.
func (e *Extractor) BuzzwordDensity(text string, wordCount int) Result {
	if wordCount == 0 {
		return Result{}
	}
	n := patterns.Count(e.patterns.Buzzwords, text)
	density := float64(n) / float64(wordCount)
	if density <= 0.01 {
		return Result{}
	}
	return fired(density/0.06, fmt.Sprintf("Buzzword density %.1f%% (%dx)", density*100, n))
}

// SelfHypeCombo fires when a bragging verb meets an effort minimizer.
func (e *Extractor) SelfHypeCombo(text string) Result {
	if patterns.Match(e.patterns.SelfHypeVerbs, text) && patterns.Match(e.patterns.EffortMinimizers, text) {
		return fired(0.9, "Self-hype verb + effort minimizer combo")
	}
	return Result{}
}

// EngagementBait detects "comment X below"-style asks.
func (e *Extractor) EngagementBait(text string) Result {
	if patterns.Match(e.patterns.EngagementBait, text) {
		return fired(0.7, "Engagement bait detected")
	}
	return Result{}
}

// AIReplacement detects "AI will replace you" narratives.
func (e *Extractor) AIReplacement(text string) Result {
	if patterns.Match(e.patterns.AIReplacement, text) {
		return fired(0.8, "AI replacement narrative detected")
	}
	return Result{}
}
