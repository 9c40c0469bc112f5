package metricsink

// DefaultPrefix is the metric family prefix used when none is configured.
const DefaultPrefix = "reqlife"

// Names holds the metric family names used by the instrumentation layer.
// It is built once at startup and passed into every component that records
// samples; there is no ambient global to mutate.
type Names struct {
	// RequestsTotal counts observed requests.
	// Labels: method, endpoint.
	RequestsTotal string
	// RequestsPending gauges requests currently in flight.
	// Labels: method, endpoint.
	RequestsPending string
	// RequestsFailed counts requests that errored before completing.
	// Labels: method, endpoint.
	RequestsFailed string
	// RequestDuration is the request latency histogram in seconds.
	// Labels: method, status, endpoint.
	RequestDuration string
	// ResponseBodySize is the response body size histogram in bytes.
	// Labels: method, status, endpoint.
	ResponseBodySize string
}

// NamesWithPrefix derives the metric family names from a prefix. An empty
// prefix falls back to DefaultPrefix.
func NamesWithPrefix(prefix string) Names {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Names{
		RequestsTotal:    prefix + "_http_requests_total",
		RequestsPending:  prefix + "_http_requests_pending",
		RequestsFailed:   prefix + "_http_requests_failed",
		RequestDuration:  prefix + "_http_requests_duration_seconds",
		ResponseBodySize: prefix + "_http_response_body_size",
	}
}

// DefaultNames returns the names derived from DefaultPrefix.
func DefaultNames() Names {
	return NamesWithPrefix(DefaultPrefix)
}
