package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LoaderCollector_NormalizesVaryingLabelSets(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	collector := NewLoaderCollector(registry)

	// act: the same metric reported with and without an error_type label
	collector.RecordDuration("relate_resolve_duration_seconds", 50*time.Millisecond,
		map[string]string{"operation": "resolve", "status": "success"})
	collector.RecordDuration("relate_resolve_duration_seconds", 10*time.Millisecond,
		map[string]string{"operation": "resolve", "status": "error", "error_type": "storage_unavailable"})

	collector.IncrementCounter("relate_bulk_fetches_total",
		map[string]string{"operation": "resolve", "status": "success"})
	collector.IncrementCounter("relate_bulk_fetches_total",
		map[string]string{"operation": "resolve", "status": "success"})

	collector.RecordValue("relate_entities_loaded", 42,
		map[string]string{"operation": "resolve", "status": "success"})

	// assert
	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}

	assert.True(t, names["relate_resolve_duration_seconds"])
	assert.True(t, names["relate_bulk_fetches_total"])
	assert.True(t, names["relate_entities_loaded"])

	for _, family := range families {
		if family.GetName() != "relate_bulk_fetches_total" {
			continue
		}

		require.Len(t, family.GetMetric(), 1, "identical label sets must share one series")
		assert.Equal(t, float64(2), family.GetMetric()[0].GetCounter().GetValue())
	}
}

func Test_HTTPMetrics_CountsServerErrors(t *testing.T) {
	registry := prometheus.NewRegistry()
	httpMetrics := newHTTPMetricsWith(registry)

	httpMetrics.RecordRequest("GET", "/api/books", 200, 5*time.Millisecond)
	httpMetrics.RecordRequest("GET", "/api/books", 503, 2*time.Millisecond)

	families, err := registry.Gather()
	require.NoError(t, err)

	var sawRequests, sawErrors bool
	for _, family := range families {
		switch family.GetName() {
		case "pagekeep_http_requests_total":
			sawRequests = true
			assert.Len(t, family.GetMetric(), 2, "one series per status")
		case "pagekeep_http_errors_total":
			sawErrors = true
			require.Len(t, family.GetMetric(), 1)
			assert.Equal(t, float64(1), family.GetMetric()[0].GetCounter().GetValue())
		}
	}

	assert.True(t, sawRequests)
	assert.True(t, sawErrors)
}
