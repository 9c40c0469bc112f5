package httpmetrics

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reqlife/reqlife/pkg/classify"
	"github.com/reqlife/reqlife/pkg/lifecycle"
	"github.com/reqlife/reqlife/pkg/metricsink"
	"github.com/reqlife/reqlife/pkg/routelabel"
)

// countingSink tallies sink operations per metric family name.
type countingSink struct {
	mu         sync.Mutex
	counters   map[string]int
	gauges     map[string]float64
	histograms map[string]int
}

func newCountingSink() *countingSink {
	return &countingSink{
		counters:   map[string]int{},
		gauges:     map[string]float64{},
		histograms: map[string]int{},
	}
}

func (s *countingSink) IncrementCounter(name string, _ metricsink.Labels) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name]++
}

func (s *countingSink) AddGauge(name string, delta float64, _ metricsink.Labels) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gauges[name] += delta
}

func (s *countingSink) ObserveHistogram(name string, _ float64, _ metricsink.Labels) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histograms[name]++
}

func newTestTraffic(sink metricsink.Sink, opts ...routelabel.Option) *Traffic {
	return NewTraffic(sink, metricsink.DefaultNames(), routelabel.New(opts...), true)
}

func prepare(traffic *Traffic, path string) any {
	return traffic.Prepare(httptest.NewRequest(http.MethodGet, path, nil))
}

func TestTrafficReadyResponseSettlesImmediately(t *testing.T) {
	sink := newCountingSink()
	traffic := newTestTraffic(sink)
	names := metricsink.DefaultNames()

	data := prepare(traffic, "/fast")
	assert.Equal(t, 1, sink.counters[names.RequestsTotal])
	assert.Equal(t, 1.0, sink.gauges[names.RequestsPending])

	traffic.OnResponse(http.StatusOK, http.Header{}, classify.Classification{}, data)
	assert.Equal(t, 0.0, sink.gauges[names.RequestsPending])
	assert.Equal(t, 1, sink.histograms[names.RequestDuration])
}

func TestTrafficDeferredSettlesAtEOS(t *testing.T) {
	sink := newCountingSink()
	traffic := newTestTraffic(sink)
	names := metricsink.DefaultNames()

	data := prepare(traffic, "/stream")
	traffic.OnResponse(http.StatusOK, http.Header{}, classify.Classification{RequiresEOS: true}, data)

	// The stream is still in flight after the response hook.
	assert.Equal(t, 1.0, sink.gauges[names.RequestsPending])
	assert.Equal(t, 0, sink.histograms[names.RequestDuration])

	traffic.OnEOS(http.Header{}, nil, data)
	assert.Equal(t, 0.0, sink.gauges[names.RequestsPending])
	assert.Equal(t, 1, sink.histograms[names.RequestDuration])
}

func TestTrafficFailureReleasesGauge(t *testing.T) {
	sink := newCountingSink()
	traffic := newTestTraffic(sink)
	names := metricsink.DefaultNames()

	data := prepare(traffic, "/fast")
	traffic.OnFailure(lifecycle.FailedAtResponse, nil, data)

	assert.Equal(t, 0.0, sink.gauges[names.RequestsPending])
	assert.Equal(t, 1, sink.counters[names.RequestsFailed])
	assert.Equal(t, 0, sink.histograms[names.RequestDuration])
}

func TestTrafficIgnoredRouteSentinel(t *testing.T) {
	sink := newCountingSink()
	traffic := newTestTraffic(sink, routelabel.WithIgnorePatterns("/metrics"))

	data := prepare(traffic, "/metrics")
	assert.Nil(t, data)

	// Every hook must tolerate the sentinel and record nothing.
	traffic.OnResponse(http.StatusOK, http.Header{}, classify.Classification{}, data)
	traffic.OnEOS(http.Header{}, nil, data)
	traffic.OnFailure(lifecycle.FailedAtBody, nil, data)
	traffic.OnBodyChunk(128, -1, data)
	traffic.OnExactBodySize(128, data)

	assert.Empty(t, sink.counters)
	assert.Empty(t, sink.gauges)
	assert.Empty(t, sink.histograms)
}

func TestTrafficExactSizeSuppressesChunkSamples(t *testing.T) {
	sink := newCountingSink()
	traffic := newTestTraffic(sink)
	names := metricsink.DefaultNames()

	data := prepare(traffic, "/payload")
	traffic.OnResponse(http.StatusOK, http.Header{}, classify.Classification{}, data)

	traffic.OnExactBodySize(2048, data)
	traffic.OnBodyChunk(1024, 2048, data)
	traffic.OnBodyChunk(1024, 2048, data)

	assert.Equal(t, 1, sink.histograms[names.ResponseBodySize])
}
