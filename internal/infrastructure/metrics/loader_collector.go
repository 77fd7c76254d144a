// Package metrics exposes application metrics in Prometheus format: the
// relationship loader's fetch counts and durations, and HTTP request metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pagekeep/pagekeep/relate"
)

// loaderLabels is the fixed label schema for loader metrics. The loader
// reports varying label subsets per call; Prometheus vectors need a constant
// set, so missing labels are filled with an empty value.
var loaderLabels = []string{"operation", "status", "error_type"}

// LoaderCollector implements relate.MetricsCollector on Prometheus
// instruments, created on demand per metric name and registered with the
// given registerer.
type LoaderCollector struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewLoaderCollector creates a collector registering its instruments with the
// given registerer (use prometheus.DefaultRegisterer in production).
func NewLoaderCollector(registerer prometheus.Registerer) *LoaderCollector {
	return &LoaderCollector{
		registerer: registerer,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// RecordDuration records a duration as histogram seconds.
func (c *LoaderCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	c.histogram(metric).With(normalizeLabels(labels)).Observe(duration.Seconds())
}

// IncrementCounter increments a monotonic counter.
func (c *LoaderCollector) IncrementCounter(metric string, labels map[string]string) {
	c.counter(metric).With(normalizeLabels(labels)).Inc()
}

// RecordValue records a current value as a gauge.
func (c *LoaderCollector) RecordValue(metric string, value float64, labels map[string]string) {
	c.gauge(metric).With(normalizeLabels(labels)).Set(value)
}

func (c *LoaderCollector) histogram(name string) *prometheus.HistogramVec {
	c.mu.Lock()
	defer c.mu.Unlock()

	if vec, exists := c.histograms[name]; exists {
		return vec
	}

	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name,
			Help:    "Relationship loader operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		loaderLabels,
	)
	c.registerer.MustRegister(vec)
	c.histograms[name] = vec

	return vec
}

func (c *LoaderCollector) counter(name string) *prometheus.CounterVec {
	c.mu.Lock()
	defer c.mu.Unlock()

	if vec, exists := c.counters[name]; exists {
		return vec
	}

	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: "Relationship loader operation counter",
		},
		loaderLabels,
	)
	c.registerer.MustRegister(vec)
	c.counters[name] = vec

	return vec
}

func (c *LoaderCollector) gauge(name string) *prometheus.GaugeVec {
	c.mu.Lock()
	defer c.mu.Unlock()

	if vec, exists := c.gauges[name]; exists {
		return vec
	}

	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: "Relationship loader current value",
		},
		loaderLabels,
	)
	c.registerer.MustRegister(vec)
	c.gauges[name] = vec

	return vec
}

func normalizeLabels(labels map[string]string) prometheus.Labels {
	normalized := prometheus.Labels{}
	for _, key := range loaderLabels {
		normalized[key] = labels[key]
	}

	return normalized
}

var _ relate.MetricsCollector = (*LoaderCollector)(nil)
