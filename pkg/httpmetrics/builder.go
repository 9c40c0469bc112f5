package httpmetrics

import (
	"fmt"
	"net/http"

	"github.com/reqlife/reqlife/pkg/classify"
	"github.com/reqlife/reqlife/pkg/lifecycle"
	"github.com/reqlife/reqlife/pkg/metricsink"
	"github.com/reqlife/reqlife/pkg/routelabel"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Builder assembles the standard request-metrics middleware. All methods
// return the builder for chaining; the zero configuration produces a
// middleware with the default prefix, 4xx/5xx failure classification,
// route-template endpoint labels and body size recording enabled.
//
//	mw, exporter, err := httpmetrics.NewBuilder().
//		WithIgnorePatterns("/metrics").
//		WithGroupPatterns("/foo", "/foo/{bar}", "/foo/{bar}/{baz}").
//		BuildPair()
type Builder struct {
	prefix          string
	resolverOpts    []routelabel.Option
	makeClassifier  classify.MakeClassifier
	durationBuckets []float64
	sizeBuckets     []float64
	bodySize        bool
}

// NewBuilder creates a Builder with defaults.
func NewBuilder() *Builder {
	return &Builder{bodySize: true}
}

// WithPrefix renames the metric families from the default "reqlife" prefix.
func (b *Builder) WithPrefix(prefix string) *Builder {
	b.prefix = prefix
	return b
}

// WithIgnorePatterns skips every hook and every sample for requests
// matching one of the patterns. Checked before any grouping rule.
func (b *Builder) WithIgnorePatterns(patterns ...string) *Builder {
	b.resolverOpts = append(b.resolverOpts, routelabel.WithIgnorePatterns(patterns...))
	return b
}

// WithGroupPatterns reports all routes matching the patterns under one
// endpoint label.
func (b *Builder) WithGroupPatterns(label string, patterns ...string) *Builder {
	b.resolverOpts = append(b.resolverOpts, routelabel.WithGroupPatterns(label, patterns...))
	return b
}

// WithExactEndpointLabels reports the exact requested path instead of the
// matched route template.
func (b *Builder) WithExactEndpointLabels() *Builder {
	b.resolverOpts = append(b.resolverOpts, routelabel.WithLabelMode(routelabel.ModeExact))
	return b
}

// WithEndpointFallback sets the label function used when a request matched
// no route template.
func (b *Builder) WithEndpointFallback(fn func(path string) string) *Builder {
	b.resolverOpts = append(b.resolverOpts, routelabel.WithFallback(fn))
	return b
}

// WithClassifier replaces the default 4xx/5xx status-range classifier.
func (b *Builder) WithClassifier(mc classify.MakeClassifier) *Builder {
	b.makeClassifier = mc
	return b
}

// WithDurationBuckets overrides the latency histogram buckets.
func (b *Builder) WithDurationBuckets(buckets []float64) *Builder {
	b.durationBuckets = buckets
	return b
}

// WithSizeBuckets overrides the body size histogram buckets.
func (b *Builder) WithSizeBuckets(buckets []float64) *Builder {
	b.sizeBuckets = buckets
	return b
}

// WithoutBodySize disables the response body size histogram.
func (b *Builder) WithoutBodySize() *Builder {
	b.bodySize = false
	return b
}

// Names returns the metric family names the built middleware records under.
func (b *Builder) Names() metricsink.Names {
	return metricsink.NamesWithPrefix(b.prefix)
}

func (b *Builder) classifier() classify.MakeClassifier {
	if b.makeClassifier != nil {
		return b.makeClassifier
	}
	return classify.Shared(classify.ClientAndServerErrorsAsFailures())
}

func (b *Builder) traffic(sink metricsink.Sink) *Traffic {
	return NewTraffic(sink, b.Names(), routelabel.New(b.resolverOpts...), b.bodySize)
}

// Build returns a middleware recording into the given sink.
func (b *Builder) Build(sink metricsink.Sink) Middleware {
	traffic := b.traffic(sink)
	mw := lifecycle.NewMiddleware(b.classifier(), traffic, traffic)
	return func(next http.Handler) http.Handler {
		return withRoutePattern(next, mw.Wrap(next))
	}
}

// withRoutePattern resolves the route template before the lifecycle hooks
// run. The mux only fills in Request.Pattern once it dispatches, which is
// after Prepare resolved the endpoint label, so when wrapping a ServeMux
// directly the pattern is looked up ahead of time.
func withRoutePattern(next http.Handler, wrapped http.Handler) http.Handler {
	mux, ok := next.(*http.ServeMux)
	if !ok {
		return wrapped
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Pattern == "" {
			_, r.Pattern = mux.Handler(r)
		}
		wrapped.ServeHTTP(w, r)
	})
}

// BuildPair builds a Prometheus sink alongside the middleware and returns
// both. Serve exporter.Handler() on a route of your choosing (and usually
// ignore that route via WithIgnorePatterns).
func (b *Builder) BuildPair() (Middleware, *metricsink.Prometheus, error) {
	var opts []metricsink.PrometheusOption
	if b.durationBuckets != nil {
		opts = append(opts, metricsink.WithDurationBuckets(b.durationBuckets))
	}
	if b.sizeBuckets != nil {
		opts = append(opts, metricsink.WithSizeBuckets(b.sizeBuckets))
	}
	exporter, err := metricsink.NewPrometheus(b.Names(), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("building prometheus sink: %w", err)
	}
	return b.Build(exporter), exporter, nil
}

// Transport returns an http.RoundTripper instrumenting client requests
// with the same metrics. A nil inner uses http.DefaultTransport.
func (b *Builder) Transport(inner http.RoundTripper, sink metricsink.Sink) http.RoundTripper {
	traffic := b.traffic(sink)
	return lifecycle.NewTransport(inner, b.classifier(), traffic, traffic)
}
