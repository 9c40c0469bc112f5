// Package metricsink abstracts the metrics backend behind a small
// capability interface so that the instrumentation layer stays decoupled
// from any specific provider. A Prometheus implementation ships in this
// package; a no-op implementation is available for tests and for disabling
// metrics wholesale.
package metricsink

// Labels is the label set attached to a sample. Counters and gauges use
// {method, endpoint}; histograms additionally carry the status.
type Labels struct {
	Method   string
	Endpoint string
	Status   string
}

// Sink records metric samples. Implementations must tolerate concurrent
// calls from independent request goroutines without external locking.
type Sink interface {
	// IncrementCounter adds 1 to the named counter.
	IncrementCounter(name string, labels Labels)
	// AddGauge adds delta (possibly negative) to the named gauge.
	AddGauge(name string, delta float64, labels Labels)
	// ObserveHistogram records value into the named histogram.
	ObserveHistogram(name string, value float64, labels Labels)
}

type nopSink struct{}

func (nopSink) IncrementCounter(string, Labels)          {}
func (nopSink) AddGauge(string, float64, Labels)         {}
func (nopSink) ObserveHistogram(string, float64, Labels) {}

// Nop returns a Sink that discards everything.
func Nop() Sink { return nopSink{} }
