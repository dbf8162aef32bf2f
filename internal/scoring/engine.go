// Package scoring turns post text into a hype score.
//
// Engine is the single entry point: it prefers the ML classifier when a model is
// loaded and otherwise aggregates the heuristic features extracted against the
// current locale patterns.
package scoring

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/vibecope/vibecope/internal/features"
	"github.com/vibecope/vibecope/internal/locale"
	"github.com/vibecope/vibecope/internal/patterns"
)

// Path names the scoring strategy used for a post.
type Path string

const (
	PathML        Path = "ml"
	PathHeuristic Path = "heuristic"
)

// previewRunes bounds post text in log lines.
const previewRunes = 80

// Classifier is the ML fast path.
type Classifier interface {
	IsLoaded() bool
	Classify(text string) int
}

// LocaleSource supplies the enabled locale set and notifies about changes.
type LocaleSource interface {
	// EnabledLocales returns the currently enabled locale ids.
	EnabledLocales(ctx context.Context) ([]string, error)

	// WatchLocales registers fn to be called with the new set after every
	// change. Callbacks stop when ctx is done.
	WatchLocales(ctx context.Context, fn func(ids []string)) error
}

// Explanation is a heuristic score together with everything that produced it.
type Explanation struct {
	Result     Result                     `json:"result"`
	Breakdown  Breakdown                  `json:"breakdown"`
	Features   map[string]features.Result `json:"features"`
	Locales    []string                   `json:"locales"`
	Generation string                     `json:"generation"`
}

// Engine scores posts. It is safe for concurrent use.
type Engine struct {
	cache *patterns.Cache
	// localeMu orders the initial locale read against watch callbacks so an
	// older read never replaces a newer recompile.
	localeMu sync.Mutex

	model   Classifier
	logger  *zap.Logger
	metrics *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithClassifier enables the ML path when c reports a loaded model.
func WithClassifier(c Classifier) Option {
	return func(e *Engine) {
		e.model = c
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an engine reading patterns from cache.
func NewEngine(cache *patterns.Cache, opts ...Option) *Engine {
	e := &Engine{
		cache:  cache,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Path reports which strategy ScorePost uses.
func (e *Engine) Path() Path {
	if e.model != nil && e.model.IsLoaded() {
		return PathML
	}
	return PathHeuristic
}

// ScorePost scores text. It never fails; the worst outcome is a zero score
// without reasons.
func (e *Engine) ScorePost(text string) Result {
	start := time.Now()
	path := e.Path()

	var r Result
	if path == PathML {
		score := clampScore(float64(e.model.Classify(text)))
		r = Result{Score: score, Reasons: []string{fmt.Sprintf("ML confidence: %d%%", score)}}
	} else {
		set := features.NewExtractor(e.cache.Get()).Extract(text)
		r = Aggregate(&set)
	}

	if e.metrics != nil {
		e.metrics.RecordScore(path, r.Score, time.Since(start).Seconds())
	}
	if ce := e.logger.Check(zap.DebugLevel, "scored post"); ce != nil {
		ce.Write(
			zap.String("path", string(path)),
			zap.Int("score", r.Score),
			zap.Int("reasons", len(r.Reasons)),
			zap.String("preview", Preview(text)),
		)
	}
	return r
}

// Explain runs the heuristic path and returns its full breakdown, whether or
// not a model is loaded.
func (e *Engine) Explain(text string) Explanation {
	snap := e.cache.Get()
	set := features.NewExtractor(snap).Extract(text)
	r, b := Explain(&set)
	return Explanation{
		Result:     r,
		Breakdown:  b,
		Features:   set.Map(),
		Locales:    snap.Locales,
		Generation: snap.ID,
	}
}

// InitPatterns reads the enabled locales from src and compiles them. When src
// fails the default locale set is compiled instead.
func (e *Engine) InitPatterns(ctx context.Context, src LocaleSource) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.localeMu.Lock()
	defer e.localeMu.Unlock()

	ids, err := src.EnabledLocales(ctx)
	if err != nil {
		e.logger.Warn("reading enabled locales failed, using defaults",
			zap.Strings("locales", locale.DefaultEnabled),
			zap.Error(err),
		)
		ids = locale.DefaultEnabled
	}

	snap := e.cache.Recompile(ids)
	e.logger.Info("patterns compiled",
		zap.Strings("locales", snap.Locales),
		zap.String("generation", snap.ID),
		zap.Int("rejected", len(snap.Rejected)),
	)
	return nil
}

// WatchLocaleChanges recompiles patterns whenever src reports a new locale set.
func (e *Engine) WatchLocaleChanges(ctx context.Context, src LocaleSource) error {
	err := src.WatchLocales(ctx, func(ids []string) {
		e.localeMu.Lock()
		defer e.localeMu.Unlock()
		snap := e.cache.Recompile(ids)
		e.logger.Info("patterns recompiled after locale change",
			zap.Strings("locales", snap.Locales),
			zap.String("generation", snap.ID),
		)
	})
	if err != nil {
		return fmt.Errorf("watching locale changes: %w", err)
	}
	return nil
}

// SyncLocales subscribes to src and then compiles its current locale set, so
// a change committed between the two steps is not lost.
func (e *Engine) SyncLocales(ctx context.Context, src LocaleSource) error {
	if err := e.WatchLocaleChanges(ctx, src); err != nil {
		return err
	}
	return e.InitPatterns(ctx, src)
}

// AvailableLocales lists every locale the engine can compile.
func (e *Engine) AvailableLocales() []locale.Info {
	return e.cache.Compiler().Store().Available()
}

// EnabledLocales returns the locale set of the current patterns.
func (e *Engine) EnabledLocales() []string {
	return e.cache.Get().Locales
}

// Preview shortens text for log output.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	n := 0
	for i := range text {
		if n == previewRunes {
			return text[:i] + "..."
		}
		n++
	}
	return text
}
