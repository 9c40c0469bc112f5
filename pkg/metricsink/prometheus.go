package metricsink

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultDurationBuckets are latency buckets in seconds, tailored to
// broadly cover the response times of a network service.
var DefaultDurationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// DefaultSizeBuckets are response body size buckets in bytes, from 64B to
// about 1GB.
var DefaultSizeBuckets = prometheus.ExponentialBuckets(64, 4, 13)

// Prometheus is a Sink backed by a prometheus/client_golang registry. The
// four metric families are registered up front with fixed label sets;
// samples recorded under any other name are discarded.
type Prometheus struct {
	registry *prometheus.Registry
	names    Names

	total    *prometheus.CounterVec
	failed   *prometheus.CounterVec
	pending  *prometheus.GaugeVec
	duration *prometheus.HistogramVec
	bodySize *prometheus.HistogramVec
}

type promConfig struct {
	registry        *prometheus.Registry
	durationBuckets []float64
	sizeBuckets     []float64
}

// PrometheusOption configures the Prometheus sink.
type PrometheusOption func(*promConfig)

// WithRegistry registers the metric families on an existing registry
// instead of a fresh one.
func WithRegistry(reg *prometheus.Registry) PrometheusOption {
	return func(c *promConfig) { c.registry = reg }
}

// WithDurationBuckets overrides the latency histogram buckets.
func WithDurationBuckets(buckets []float64) PrometheusOption {
	return func(c *promConfig) { c.durationBuckets = buckets }
}

// WithSizeBuckets overrides the body size histogram buckets.
func WithSizeBuckets(buckets []float64) PrometheusOption {
	return func(c *promConfig) { c.sizeBuckets = buckets }
}

// NewPrometheus creates a Prometheus sink recording the families named by
// names.
func NewPrometheus(names Names, opts ...PrometheusOption) (*Prometheus, error) {
	cfg := promConfig{
		durationBuckets: DefaultDurationBuckets,
		sizeBuckets:     DefaultSizeBuckets,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = prometheus.NewRegistry()
	}

	p := &Prometheus{
		registry: cfg.registry,
		names:    names,
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: names.RequestsTotal,
			Help: "Total number of HTTP requests observed.",
		}, []string{"method", "endpoint"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: names.RequestsFailed,
			Help: "Number of HTTP requests that errored before completing.",
		}, []string{"method", "endpoint"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: names.RequestsPending,
			Help: "Number of HTTP requests currently in flight.",
		}, []string{"method", "endpoint"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    names.RequestDuration,
			Help:    "HTTP request latency in seconds.",
			Buckets: cfg.durationBuckets,
		}, []string{"method", "status", "endpoint"}),
		bodySize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    names.ResponseBodySize,
			Help:    "HTTP response body size in bytes.",
			Buckets: cfg.sizeBuckets,
		}, []string{"method", "status", "endpoint"}),
	}

	for _, c := range []prometheus.Collector{p.total, p.failed, p.pending, p.duration, p.bodySize} {
		if err := cfg.registry.Register(c); err != nil {
			return nil, fmt.Errorf("registering metric family: %w", err)
		}
	}
	return p, nil
}

// IncrementCounter implements Sink.
func (p *Prometheus) IncrementCounter(name string, labels Labels) {
	switch name {
	case p.names.RequestsTotal:
		p.total.WithLabelValues(labels.Method, labels.Endpoint).Inc()
	case p.names.RequestsFailed:
		p.failed.WithLabelValues(labels.Method, labels.Endpoint).Inc()
	}
}

// AddGauge implements Sink.
func (p *Prometheus) AddGauge(name string, delta float64, labels Labels) {
	if name == p.names.RequestsPending {
		p.pending.WithLabelValues(labels.Method, labels.Endpoint).Add(delta)
	}
}

// ObserveHistogram implements Sink.
func (p *Prometheus) ObserveHistogram(name string, value float64, labels Labels) {
	switch name {
	case p.names.RequestDuration:
		p.duration.WithLabelValues(labels.Method, labels.Status, labels.Endpoint).Observe(value)
	case p.names.ResponseBodySize:
		p.bodySize.WithLabelValues(labels.Method, labels.Status, labels.Endpoint).Observe(value)
	}
}

// Registry returns the underlying registry, for registering additional
// collectors next to the request metrics.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler returns the text exposition handler for the registry. The caller
// decides on which route to serve it.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
