package patterns

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vibecope/vibecope/internal/locale"
)

func newTestCompiler(t *testing.T, tables ...*locale.Data) *Compiler {
	t.Helper()
	store, err := locale.NewStore(tables...)
	require.NoError(t, err)
	return NewCompiler(store)
}

func TestCompile_DefaultLocales(t *testing.T) {
	c := NewCompiler(locale.MustDefaultStore())
	p := c.Compile(locale.DefaultEnabled)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, []string{"en", "pl"}, p.Locales)
	assert.Empty(t, p.Rejected, "builtin phrases must all be valid")

	for _, cat := range compiledCategories {
		assert.NotNil(t, p.Matcher(cat), "matcher for %s", cat)
	}
	assert.Nil(t, p.Matcher(locale.BioSignals))
	_, hasBio := p.Phrases[locale.BioSignals]
	assert.False(t, hasBio)

	assert.Len(t, p.BuzzwordPatterns, len(p.Phrases[locale.Buzzwords]))
	assert.Len(t, p.SelfHypeVerbPatterns, len(p.Phrases[locale.SelfHypeVerbs]))
	assert.Len(t, p.EffortMinimizerPatterns, len(p.Phrases[locale.EffortMinimizers]))

	assert.True(t, Match(p.AIReplacement, "AI will replace your job"))
	assert.True(t, Match(p.Buzzwords, "prawdziwa REWOLUCJA"), "matchers are case-insensitive")
}

func TestCompile_UnionDeduplicates(t *testing.T) {
	c := newTestCompiler(t,
		&locale.Data{Locale: "a", Buzzwords: []string{"hustle", "grind"}},
		&locale.Data{Locale: "b", Buzzwords: []string{"grind", "mindset"}},
	)
	p := c.Compile([]string{"a", "b"})

	assert.Equal(t, []string{"hustle", "grind", "mindset"}, p.Phrases[locale.Buzzwords])
	assert.Equal(t, 1, Count(p.Buzzwords, "daily grind"), "shared phrase must not double count")
}

func TestCompile_Monotonic(t *testing.T) {
	c := NewCompiler(locale.MustDefaultStore())
	en := c.Compile([]string{"en"})
	both := c.Compile([]string{"en", "pl"})

	for _, cat := range compiledCategories {
		sub := en.Phrases[cat]
		super := both.Phrases[cat]
		assert.GreaterOrEqual(t, len(super), len(sub), "category %s", cat)
		for _, phrase := range sub {
			assert.Contains(t, super, phrase, "category %s", cat)
		}
	}
}

func TestCompile_EmptySelection(t *testing.T) {
	c := NewCompiler(locale.MustDefaultStore())
	p := c.Compile(nil)

	assert.Empty(t, p.Locales)
	for _, cat := range compiledCategories {
		assert.Nil(t, p.Matcher(cat))
	}
	assert.False(t, Match(p.Buzzwords, "hustle"))
	assert.Zero(t, Count(p.Buzzwords, "hustle"))
	assert.Empty(t, p.BuzzwordPatterns)
}

func TestCompile_UnknownLocaleIgnored(t *testing.T) {
	c := NewCompiler(locale.MustDefaultStore())
	p := c.Compile([]string{"xx", "en"})
	assert.Equal(t, []string{"en"}, p.Locales)
}

func TestCompile_MalformedPhrases(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store, err := locale.NewStore(&locale.Data{
		Locale: "bad",
		Buzzwords: []string{
			"hustle",
			"(unclosed",
			"",
			"a*",
			"x)|(?:y",
			strings.Repeat("z", maxPhraseLen+1),
		},
		TimeFramePhrases: []string{"[z-a]"},
		EngagementBait:   []string{"follow for more"},
	})
	require.NoError(t, err)

	p := NewCompiler(store, WithLogger(zap.New(core))).Compile([]string{"bad"})

	assert.Equal(t, []string{"hustle"}, p.Phrases[locale.Buzzwords])
	assert.Nil(t, p.TimeFrame, "category with no valid phrase degrades to nil")
	assert.NotNil(t, p.EngagementBait, "other categories are unaffected")
	assert.Len(t, p.Rejected, 6)
	assert.Equal(t, 6, logs.FilterMessage("rejected locale phrase").Len())

	assert.Equal(t, 1, Count(p.Buzzwords, "hustle hard"))
	assert.Zero(t, Count(p.Buzzwords, "nothing here"), "empty-matching phrases would count every position")
}

func TestValidatePhrase(t *testing.T) {
	tests := []struct {
		name    string
		phrase  string
		wantErr string
	}{
		{name: "plain", phrase: "side hustle"},
		{name: "regex fragment", phrase: `in \d+ days`},
		{name: "unicode", phrase: "przełom"},
		{name: "blank", phrase: "   ", wantErr: "empty"},
		{name: "unbalanced", phrase: "(foo", wantErr: "invalid pattern"},
		{name: "lookahead unsupported", phrase: "foo(?=bar)", wantErr: "invalid pattern"},
		{name: "empty match", phrase: "(?:foo)?", wantErr: "empty string"},
		{name: "too long", phrase: strings.Repeat("a", maxPhraseLen+1), wantErr: "too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePhrase(tt.phrase)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPhraseCounts(t *testing.T) {
	c := newTestCompiler(t, &locale.Data{
		Locale:    "x",
		Buzzwords: []string{"hustle", "grind"},
		TechContext: []string{
			"ai",
		},
	})
	p := c.Compile([]string{"x"})

	got := p.PhraseCounts(locale.Buzzwords, "Hustle, hustle and grind. No rest.")
	assert.Equal(t, map[string]int{"hustle": 2, "grind": 1}, got)
	assert.Nil(t, p.PhraseCounts(locale.TechContext, "ai"))
}

func TestCount_NonOverlapping(t *testing.T) {
	c := newTestCompiler(t, &locale.Data{Locale: "x", Buzzwords: []string{"aa"}})
	p := c.Compile([]string{"x"})
	assert.Equal(t, 2, Count(p.Buzzwords, "aaaaa"))
}

func TestCache(t *testing.T) {
	c := NewCompiler(locale.MustDefaultStore())

	t.Run("lazy default compile", func(t *testing.T) {
		cache := NewCache(c)
		p := cache.Get()
		assert.Equal(t, []string{"en", "pl"}, p.Locales)
		assert.Same(t, p, cache.Get(), "Get must return the memoized snapshot")
	})

	t.Run("recompile replaces snapshot", func(t *testing.T) {
		cache := NewCache(c)
		before := cache.Get()

		after := cache.Recompile([]string{"en"})
		assert.NotSame(t, before, after)
		assert.Same(t, after, cache.Get())
		assert.Equal(t, []string{"en", "pl"}, before.Locales, "old snapshot is never mutated")
		assert.Equal(t, []string{"en"}, after.Locales)
	})

	t.Run("polish buzzword disappears when pl is disabled", func(t *testing.T) {
		cache := NewCache(c)
		text := "Ta rewolucja zmienia wszystko"
		assert.Equal(t, 1, Count(cache.Get().Buzzwords, text))

		cache.Recompile([]string{"en"})
		assert.Zero(t, Count(cache.Get().Buzzwords, text))
	})

	t.Run("lazy default does not overwrite a finished recompile", func(t *testing.T) {
		cache := NewCache(c)
		// The lazy compile started before Recompile and finishes after it.
		lazy := c.Compile([]string{"en", "pl"})
		recompiled := cache.Recompile([]string{"pl"})

		got := cache.publishDefault(lazy)
		assert.Same(t, recompiled, got)
		assert.Same(t, recompiled, cache.Get())
		assert.Equal(t, []string{"pl"}, cache.Get().Locales)
	})

	t.Run("lazy default installs into an empty cache", func(t *testing.T) {
		cache := NewCache(c)
		lazy := c.Compile([]string{"en", "pl"})
		assert.Same(t, lazy, cache.publishDefault(lazy))
		assert.Same(t, lazy, cache.Get())
	})
}

func TestCache_ConcurrentReaders(t *testing.T) {
	cache := NewCache(NewCompiler(locale.MustDefaultStore()))
	sets := [][]string{{"en"}, {"pl"}, {"en", "pl"}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if i%2 == 0 {
					cache.Recompile(sets[(i+j)%len(sets)])
					continue
				}
				p := cache.Get()
				// A snapshot is always internally consistent.
				assert.Len(t, p.BuzzwordPatterns, len(p.Phrases[locale.Buzzwords]))
			}
		}(i)
	}
	wg.Wait()
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	assert.Same(t, m, NewMetrics(), "metrics are registered once")

	store, err := locale.NewStore(&locale.Data{Locale: "m", Buzzwords: []string{"ok", "(bad"}})
	require.NoError(t, err)
	cache := NewCache(NewCompiler(store, WithMetrics(m)))

	compiles := testutil.ToFloat64(m.CompilesTotal)
	recompiles := testutil.ToFloat64(m.RecompilesTotal)
	rejected := testutil.ToFloat64(m.RejectedTotal.WithLabelValues("buzzwords"))

	cache.Recompile([]string{"m"})

	assert.Equal(t, compiles+1, testutil.ToFloat64(m.CompilesTotal))
	assert.Equal(t, recompiles+1, testutil.ToFloat64(m.RecompilesTotal))
	assert.Equal(t, rejected+1, testutil.ToFloat64(m.RejectedTotal.WithLabelValues("buzzwords")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Phrases.WithLabelValues("buzzwords")))
}
