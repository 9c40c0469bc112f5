package lifecycle

import (
	"net/http"

	"github.com/reqlife/reqlife/pkg/classify"
)

// Transport instruments an http.RoundTripper. Each round trip runs
// Callbacks.Prepare, obtains a classifier for the request, performs the
// inner round trip and classifies the outcome:
//
//   - a transport error fires OnFailure(FailedAtResponse, ...) and is
//     returned unchanged;
//   - a response with a final classification fires OnResponse and has its
//     body replaced with a pass-through wrapper that only feeds the chunk
//     observer;
//   - a response with a deferred classification fires OnResponse with the
//     verdict erased and hands the end-of-stream classifier, the callbacks
//     and the per-request state to the body wrapper, which fires exactly
//     one of OnEOS or OnFailure when the stream terminates.
type Transport struct {
	inner     http.RoundTripper
	make      classify.MakeClassifier
	callbacks Callbacks
	observer  BodyObserver
}

// NewTransport wraps inner. A nil inner uses http.DefaultTransport; nil
// callbacks or observer default to their no-op implementations.
func NewTransport(inner http.RoundTripper, mc classify.MakeClassifier, cb Callbacks, obs BodyObserver) *Transport {
	if inner == nil {
		inner = http.DefaultTransport
	}
	if cb == nil {
		cb = NopCallbacks{}
	}
	if obs == nil {
		obs = NopBodyObserver{}
	}
	return &Transport{inner: inner, make: mc, callbacks: cb, observer: obs}
}

// Inner returns the wrapped round tripper.
func (t *Transport) Inner() http.RoundTripper { return t.inner }

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	data := t.callbacks.Prepare(req)
	classifier := t.make.MakeClassifier(req)

	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		t.callbacks.OnFailure(FailedAtResponse, classifier.ClassifyError(err), data)
		return nil, err
	}

	class := classifier.ClassifyResponse(resp.StatusCode, resp.Header)
	body := observingBody{
		inner:    resp.Body,
		observer: t.observer,
		data:     data,
		exact:    exactBodySize(resp),
	}

	if !class.RequiresEOS {
		t.callbacks.OnResponse(resp.StatusCode, resp.Header, class, data)
		resp.Body = &body
		return resp, nil
	}

	// The verdict is not known yet; expose only that fact to the hook and
	// transfer the classifier into the body wrapper.
	eos := class.EOS
	t.callbacks.OnResponse(resp.StatusCode, resp.Header, classify.Classification{RequiresEOS: true}, data)
	resp.Body = &classifyingBody{
		observingBody: body,
		trailer:       func() http.Header { return resp.Trailer },
		terminal: &terminalState{
			eos:       eos,
			callbacks: t.callbacks,
			data:      data,
		},
	}
	return resp, nil
}
