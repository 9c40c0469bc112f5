// Package httpmetrics wires the lifecycle instrumentation to a metrics
// sink. Traffic is the standard Callbacks implementation recording request
// totals, an in-flight gauge, latency and body size histograms; Builder
// assembles a ready-to-use middleware and Prometheus exporter pair.
package httpmetrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/reqlife/reqlife/pkg/classify"
	"github.com/reqlife/reqlife/pkg/lifecycle"
	"github.com/reqlife/reqlife/pkg/metricsink"
	"github.com/reqlife/reqlife/pkg/routelabel"
)

// Traffic records standard HTTP traffic metrics from lifecycle events.
//
// Prepare increments the total counter and the in-flight gauge; whichever
// terminal hook fires decrements the gauge again, so the gauge nets to zero
// for every completed request. Latency is observed at the terminal hook:
// OnResponse for final classifications, OnEOS for streamed ones. Failures
// at any stage increment the failed counter instead of recording latency.
//
// Requests on ignored routes get a nil sentinel state from Prepare and
// produce no samples at all.
type Traffic struct {
	sink     metricsink.Sink
	names    metricsink.Names
	resolver *routelabel.Resolver
	bodySize bool
}

// NewTraffic creates a Traffic callback set recording into sink under the
// given family names. A nil resolver reports every route under its exact
// path.
func NewTraffic(sink metricsink.Sink, names metricsink.Names, resolver *routelabel.Resolver, recordBodySize bool) *Traffic {
	if resolver == nil {
		resolver = routelabel.New()
	}
	return &Traffic{sink: sink, names: names, resolver: resolver, bodySize: recordBodySize}
}

// requestData is the per-request state threaded through the hooks.
type requestData struct {
	start     time.Time
	method    string
	endpoint  string
	status    string
	bodyBytes int64
	sized     bool
}

// Prepare implements lifecycle.Callbacks.
func (t *Traffic) Prepare(r *http.Request) any {
	endpoint, ignored := t.resolver.Resolve(r)
	if ignored {
		return nil
	}
	labels := metricsink.Labels{Method: r.Method, Endpoint: endpoint}
	t.sink.IncrementCounter(t.names.RequestsTotal, labels)
	t.sink.AddGauge(t.names.RequestsPending, 1, labels)
	return &requestData{
		start:    time.Now(),
		method:   r.Method,
		endpoint: endpoint,
	}
}

// OnResponse implements lifecycle.Callbacks.
func (t *Traffic) OnResponse(status int, _ http.Header, class classify.Classification, data any) {
	d, ok := data.(*requestData)
	if !ok {
		return
	}
	d.status = strconv.Itoa(status)
	if class.RequiresEOS {
		// The stream is still running; OnEOS settles the request.
		return
	}
	t.settle(d)
}

// OnEOS implements lifecycle.Callbacks.
func (t *Traffic) OnEOS(_ http.Header, _ any, data any) {
	d, ok := data.(*requestData)
	if !ok {
		return
	}
	t.settle(d)
}

// OnFailure implements lifecycle.Callbacks.
func (t *Traffic) OnFailure(_ lifecycle.FailedAt, _ any, data any) {
	d, ok := data.(*requestData)
	if !ok {
		return
	}
	labels := metricsink.Labels{Method: d.method, Endpoint: d.endpoint}
	t.sink.AddGauge(t.names.RequestsPending, -1, labels)
	t.sink.IncrementCounter(t.names.RequestsFailed, labels)
}

// settle records latency and releases the in-flight slot.
func (t *Traffic) settle(d *requestData) {
	t.sink.AddGauge(t.names.RequestsPending, -1, metricsink.Labels{
		Method:   d.method,
		Endpoint: d.endpoint,
	})
	t.sink.ObserveHistogram(t.names.RequestDuration, time.Since(d.start).Seconds(), metricsink.Labels{
		Method:   d.method,
		Status:   d.status,
		Endpoint: d.endpoint,
	})
}

// OnBodyChunk implements lifecycle.BodyObserver. Body production outlives
// the response hook, so the size histogram is fed from here: every chunk
// re-observes the accumulated size, and the sample recorded last carries
// the full body size. Bodies whose exact size was announced up front were
// already observed by OnExactBodySize and are skipped.
func (t *Traffic) OnBodyChunk(n int, _ int64, data any) {
	d, ok := data.(*requestData)
	if !ok || d.sized || !t.bodySize {
		return
	}
	d.bodyBytes += int64(n)
	t.sink.ObserveHistogram(t.names.ResponseBodySize, float64(d.bodyBytes), metricsink.Labels{
		Method:   d.method,
		Status:   d.status,
		Endpoint: d.endpoint,
	})
}

// OnExactBodySize implements lifecycle.BodyObserver. A known exact size is
// authoritative, so it is observed once and per-chunk accounting is
// suppressed; a body the caller abandons halfway is still reported at its
// transmitted size.
func (t *Traffic) OnExactBodySize(size int64, data any) {
	d, ok := data.(*requestData)
	if !ok || d.sized {
		return
	}
	d.sized = true
	d.bodyBytes = size
	if t.bodySize {
		t.sink.ObserveHistogram(t.names.ResponseBodySize, float64(size), metricsink.Labels{
			Method:   d.method,
			Status:   d.status,
			Endpoint: d.endpoint,
		})
	}
}
