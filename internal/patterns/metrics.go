package patterns

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for pattern compilation.
type Metrics struct {
	CompilesTotal   prometheus.Counter
	RecompilesTotal prometheus.Counter
	CompileDuration prometheus.Histogram
	Phrases         *prometheus.GaugeVec
	RejectedTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers the pattern metrics once per process.
//
// Metrics:
//   - patterns_compiles_total - compilations, including the lazy first one
//   - patterns_recompiles_total - explicit recompilations after a locale change
//   - patterns_compile_duration_seconds - compilation time
//   - patterns_phrases{category} - merged phrase count of the current snapshot
//   - patterns_rejected_phrases_total{category} - phrases dropped by validation
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			CompilesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "patterns_compiles_total",
					Help: "Total number of pattern compilations",
				},
			),
			RecompilesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "patterns_recompiles_total",
					Help: "Total number of recompilations triggered by locale changes",
				},
			),
			CompileDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "patterns_compile_duration_seconds",
					Help:    "Duration of pattern compilation in seconds",
					Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
				},
			),
			Phrases: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "patterns_phrases",
					Help: "Number of merged phrases per category in the current snapshot",
				},
				[]string{"category"},
			),
			RejectedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "patterns_rejected_phrases_total",
					Help: "Total number of locale phrases rejected during compilation",
				},
				[]string{"category"},
			),
		}
	})

	return globalMetrics
}

// RecordCompile records one compilation.
func (m *Metrics) RecordCompile(durationSeconds float64) {
	m.CompilesTotal.Inc()
	m.CompileDuration.Observe(durationSeconds)
}

// RecordRecompile records a locale-change recompilation.
func (m *Metrics) RecordRecompile() {
	m.RecompilesTotal.Inc()
}

// SetPhraseCount updates the phrase gauge for a category.
func (m *Metrics) SetPhraseCount(category string, n int) {
	m.Phrases.WithLabelValues(category).Set(float64(n))
}

// RecordRejected adds n rejected phrases for a category.
func (m *Metrics) RecordRejected(category string, n int) {
	if n > 0 {
		m.RejectedTotal.WithLabelValues(category).Add(float64(n))
	}
}
