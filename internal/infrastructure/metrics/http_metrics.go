package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics holds the Prometheus instruments for the REST surface.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewHTTPMetrics creates the HTTP request instruments on the default registerer.
func NewHTTPMetrics() *HTTPMetrics {
	return newHTTPMetricsWith(prometheus.DefaultRegisterer)
}

func newHTTPMetricsWith(registerer prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(registerer)

	return &HTTPMetrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagekeep_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "pattern", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagekeep_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"method", "pattern"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagekeep_http_errors_total",
				Help: "Total number of HTTP responses with status >= 500",
			},
			[]string{"method", "pattern"},
		),
	}
}

// RecordRequest records one completed HTTP request.
func (m *HTTPMetrics) RecordRequest(method, pattern string, status int, duration time.Duration) {
	m.requests.WithLabelValues(method, pattern, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, pattern).Observe(duration.Seconds())

	if status >= 500 {
		m.errors.WithLabelValues(method, pattern).Inc()
	}
}
