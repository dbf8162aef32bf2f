package logging

import (
	"sort"

	"go.uber.org/zap/zapcore"
)

// newSampledCore wraps core with level-aware sampling. Every level listed in
// cfg.Levels gets its own sampler; levels without an entry, and Error and above,
// pass through unsampled.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	levels := make([]zapcore.Level, 0, len(cfg.Levels))
	for lvl := range cfg.Levels {
		if lvl < zapcore.ErrorLevel {
			levels = append(levels, lvl)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	cores := make([]zapcore.Core, 0, len(levels)+1)
	sampled := make(map[zapcore.Level]bool, len(levels))
	for _, lvl := range levels {
		rate := cfg.Levels[lvl]
		cores = append(cores, zapcore.NewSamplerWithOptions(
			&levelFilterCore{Core: core, match: func(l zapcore.Level) bool { return l == lvl }},
			cfg.Tick.Duration(),
			rate.Initial,
			rate.Thereafter,
		))
		sampled[lvl] = true
	}
	cores = append(cores, &levelFilterCore{
		Core:  core,
		match: func(l zapcore.Level) bool { return !sampled[l] },
	})

	return zapcore.NewTee(cores...)
}

// levelFilterCore passes only the levels accepted by match.
type levelFilterCore struct {
	zapcore.Core
	match func(zapcore.Level) bool
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return c.match(lvl) && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// With creates a child core that preserves level filtering.
func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{
		Core:  c.Core.With(fields),
		match: c.match,
	}
}
