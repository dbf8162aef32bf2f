package scoring

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for scoring.
type Metrics struct {
	PostsTotal    *prometheus.CounterVec
	Scores        *prometheus.HistogramVec
	ScoreDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the scoring metrics once per process.
//
// Metrics:
//   - scoring_posts_total{path} - scored posts by path (ml or heuristic)
//   - scoring_score{path} - distribution of final scores
//   - scoring_duration_seconds{path} - time spent scoring one post
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			PostsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "scoring_posts_total",
					Help: "Total number of scored posts",
				},
				[]string{"path"},
			),
			Scores: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "scoring_score",
					Help:    "Distribution of post scores",
					Buckets: prometheus.LinearBuckets(10, 10, 10),
				},
				[]string{"path"},
			),
			ScoreDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "scoring_duration_seconds",
					Help:    "Duration of scoring one post in seconds",
					Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14),
				},
				[]string{"path"},
			),
		}
	})

	return globalMetrics
}

// RecordScore records one scored post.
func (m *Metrics) RecordScore(path Path, score int, durationSeconds float64) {
	m.PostsTotal.WithLabelValues(string(path)).Inc()
	m.Scores.WithLabelValues(string(path)).Observe(float64(score))
	m.ScoreDuration.WithLabelValues(string(path)).Observe(durationSeconds)
}
