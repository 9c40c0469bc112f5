package metricsink

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesWithPrefix(t *testing.T) {
	names := NamesWithPrefix("myapp")
	assert.Equal(t, "myapp_http_requests_total", names.RequestsTotal)
	assert.Equal(t, "myapp_http_requests_pending", names.RequestsPending)
	assert.Equal(t, "myapp_http_requests_failed", names.RequestsFailed)
	assert.Equal(t, "myapp_http_requests_duration_seconds", names.RequestDuration)
	assert.Equal(t, "myapp_http_response_body_size", names.ResponseBodySize)

	assert.Equal(t, DefaultNames(), NamesWithPrefix(""))
}

func TestPrometheusRecords(t *testing.T) {
	sink, err := NewPrometheus(DefaultNames())
	require.NoError(t, err)

	labels := Labels{Method: "GET", Endpoint: "/fast"}
	sink.IncrementCounter(sink.names.RequestsTotal, labels)
	sink.IncrementCounter(sink.names.RequestsTotal, labels)
	sink.AddGauge(sink.names.RequestsPending, 1, labels)
	sink.AddGauge(sink.names.RequestsPending, -1, labels)
	sink.ObserveHistogram(sink.names.RequestDuration, 0.01, Labels{Method: "GET", Status: "200", Endpoint: "/fast"})

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.total.WithLabelValues("GET", "/fast")))
	assert.Equal(t, 0.0, testutil.ToFloat64(sink.pending.WithLabelValues("GET", "/fast")))

	count, err := testutil.GatherAndCount(sink.Registry(), DefaultNames().RequestDuration)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheusIgnoresUnknownNames(t *testing.T) {
	sink, err := NewPrometheus(DefaultNames())
	require.NoError(t, err)

	sink.IncrementCounter("someone_elses_counter", Labels{Method: "GET", Endpoint: "/"})
	sink.AddGauge("someone_elses_gauge", 1, Labels{Method: "GET", Endpoint: "/"})
	sink.ObserveHistogram("someone_elses_histogram", 1, Labels{Method: "GET", Endpoint: "/"})

	families, err := sink.Registry().Gather()
	require.NoError(t, err)
	// Nothing was recorded, so no family has samples to expose.
	assert.Empty(t, families)
}

func TestPrometheusHandlerExposition(t *testing.T) {
	sink, err := NewPrometheus(NamesWithPrefix("expo"))
	require.NoError(t, err)
	sink.IncrementCounter("expo_http_requests_total", Labels{Method: "GET", Endpoint: "/fast"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	sink.Handler().ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), `expo_http_requests_total{endpoint="/fast",method="GET"} 1`)
}

func TestPrometheusSharedRegistryConflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(DefaultNames(), WithRegistry(reg))
	require.NoError(t, err)

	_, err = NewPrometheus(DefaultNames(), WithRegistry(reg))
	assert.Error(t, err)
}

func TestNopSink(t *testing.T) {
	sink := Nop()
	// Must not panic; there is nothing else to observe.
	sink.IncrementCounter("x", Labels{})
	sink.AddGauge("x", 1, Labels{})
	sink.ObserveHistogram("x", 1, Labels{})
}
