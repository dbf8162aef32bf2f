package patterns

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vibecope/vibecope/internal/locale"
)

// maxPhraseLen bounds a single phrase fragment.
const maxPhraseLen = 256

// compiledCategories are the categories consumed by feature extraction.
// BioSignals is carried by the locale tables but has no consumer.
var compiledCategories = []locale.Category{
	locale.TimeFrame,
	locale.TechContext,
	locale.Buzzwords,
	locale.SelfHypeVerbs,
	locale.EffortMinimizers,
	locale.AIReplacementClaims,
	locale.EngagementBait,
}

// Compiler turns locale tables into Compiled snapshots.
type Compiler struct {
	store   *locale.Store
	logger  *zap.Logger
	metrics *Metrics
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for rejected phrases.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(c *Compiler) {
		c.metrics = m
	}
}

// NewCompiler creates a compiler over store.
func NewCompiler(store *locale.Store, opts ...Option) *Compiler {
	c := &Compiler{
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the locale store the compiler reads from.
func (c *Compiler) Store() *locale.Store {
	return c.store
}

// Compile builds matchers for the locales in ids. Unknown ids are ignored, an
// empty selection yields a snapshot whose matchers are all nil.
//
// Compile never fails: invalid phrases are dropped and recorded in Rejected, and a
// category whose combined matcher cannot be built ends up nil.
func (c *Compiler) Compile(ids []string) *Compiled {
	start := time.Now()
	active := c.store.Select(ids)

	out := &Compiled{
		ID:      uuid.NewString(),
		Locales: make([]string, 0, len(active)),
		Phrases: make(map[locale.Category][]string, len(compiledCategories)),
	}
	for _, t := range active {
		out.Locales = append(out.Locales, t.Locale)
	}

	for _, cat := range compiledCategories {
		phrases, rejected := mergeCategory(active, cat)
		out.Phrases[cat] = phrases
		out.Rejected = append(out.Rejected, rejected...)
		for _, r := range rejected {
			c.logger.Warn("rejected locale phrase",
				zap.String("locale", r.Locale),
				zap.Stringer("category", r.Category),
				zap.String("phrase", r.Phrase),
				zap.String("reason", r.Reason),
			)
		}

		combined, err := buildCombined(phrases)
		if err != nil {
			c.logger.Warn("category disabled, combined matcher failed to compile",
				zap.Stringer("category", cat),
				zap.Int("phrases", len(phrases)),
				zap.Error(err),
			)
		}
		out.setMatcher(cat, combined)

		if c.metrics != nil {
			c.metrics.SetPhraseCount(cat.String(), len(phrases))
			c.metrics.RecordRejected(cat.String(), len(rejected))
		}
	}

	out.BuzzwordPatterns = buildIndividual(out.Phrases[locale.Buzzwords])
	out.SelfHypeVerbPatterns = buildIndividual(out.Phrases[locale.SelfHypeVerbs])
	out.EffortMinimizerPatterns = buildIndividual(out.Phrases[locale.EffortMinimizers])

	if c.metrics != nil {
		c.metrics.RecordCompile(time.Since(start).Seconds())
	}
	c.logger.Debug("patterns compiled",
		zap.String("generation", out.ID),
		zap.Strings("locales", out.Locales),
		zap.Int("rejected", len(out.Rejected)),
		zap.Duration("duration", time.Since(start)),
	)
	return out
}

func (c *Compiled) setMatcher(cat locale.Category, re *regexp.Regexp) {
	switch cat {
	case locale.TimeFrame:
		c.TimeFrame = re
	case locale.TechContext:
		c.TechContext = re
	case locale.Buzzwords:
		c.Buzzwords = re
	case locale.SelfHypeVerbs:
		c.SelfHypeVerbs = re
	case locale.EffortMinimizers:
		c.EffortMinimizers = re
	case locale.AIReplacementClaims:
		c.AIReplacement = re
	case locale.EngagementBait:
		c.EngagementBait = re
	}
}

// mergeCategory unions the phrases of cat across tables in first-seen order and
// drops the ones that fail validation.
func mergeCategory(tables []*locale.Data, cat locale.Category) ([]string, []Rejection) {
	seen := make(map[string]struct{})
	var merged []string
	var rejected []Rejection

	for _, t := range tables {
		for _, phrase := range t.Phrases(cat) {
			if _, dup := seen[phrase]; dup {
				continue
			}
			seen[phrase] = struct{}{}

			if err := ValidatePhrase(phrase); err != nil {
				rejected = append(rejected, Rejection{
					Locale:   t.Locale,
					Category: cat,
					Phrase:   phrase,
					Reason:   err.Error(),
				})
				continue
			}
			merged = append(merged, phrase)
		}
	}
	return merged, rejected
}

// ValidatePhrase checks that a phrase can be safely joined into an alternation.
func ValidatePhrase(phrase string) error {
	if strings.TrimSpace(phrase) == "" {
		return fmt.Errorf("empty phrase")
	}
	if len(phrase) > maxPhraseLen {
		return fmt.Errorf("phrase too long: %d bytes (max %d)", len(phrase), maxPhraseLen)
	}
	re, err := regexp.Compile("(?i)" + phrase)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	if re.MatchString("") {
		return fmt.Errorf("pattern matches the empty string")
	}
	return nil
}

func buildCombined(phrases []string) (*regexp.Regexp, error) {
	if len(phrases) == 0 {
		return nil, nil
	}
	var b strings.Builder
	b.WriteString("(?i)")
	for i, p := range phrases {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString("(?:")
		b.WriteString(p)
		b.WriteByte(')')
	}
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, err
	}
	return re, nil
}

func buildIndividual(phrases []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		// Already validated by mergeCategory.
		out = append(out, regexp.MustCompile("(?i)"+p))
	}
	return out
}
