package http

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *HTTPMetrics
	metricsOnce   sync.Once
)

// HTTPMetrics holds all HTTP-related metrics.
type HTTPMetrics struct {
	requestsTotal  *prometheus.CounterVec
	requestDur     *prometheus.HistogramVec
	responseSize   *prometheus.HistogramVec
	activeRequests prometheus.Gauge
}

// NewHTTPMetrics creates and registers the HTTP metrics once per process.
//
// Metrics:
//   - http_requests_total{method,endpoint,status}
//   - http_request_duration_seconds{method,endpoint,status}
//   - http_response_size_bytes{method,endpoint,status}
//   - http_active_requests
func NewHTTPMetrics() *HTTPMetrics {
	metricsOnce.Do(func() {
		labels := []string{"method", "endpoint", "status"}
		globalMetrics = &HTTPMetrics{
			requestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total HTTP requests by method, endpoint and status code",
				},
				labels,
			),
			requestDur: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request duration in seconds",
					Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
				},
				labels,
			),
			responseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response body size in bytes",
					Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
				},
				labels,
			),
			activeRequests: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "http_active_requests",
					Help: "Number of currently active HTTP requests",
				},
			),
		}
	})
	return globalMetrics
}

// MetricsMiddleware returns an Echo middleware that records HTTP metrics.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			m.activeRequests.Inc()
			defer m.activeRequests.Dec()

			err := next(c)
			if err != nil {
				// Let echo write the error response so the recorded status is final.
				c.Error(err)
			}

			status := strconv.Itoa(c.Response().Status)
			endpoint := normalizePath(c.Path())
			method := c.Request().Method

			m.requestsTotal.WithLabelValues(method, endpoint, status).Inc()
			m.requestDur.WithLabelValues(method, endpoint, status).Observe(time.Since(start).Seconds())
			m.responseSize.WithLabelValues(method, endpoint, status).Observe(float64(c.Response().Size))
			return nil
		}
	}
}

// normalizePath maps the matched route to a label value. Every route is
// fixed, so only unmatched requests need folding.
func normalizePath(path string) string {
	if path == "" {
		return "unmatched"
	}
	return path
}
