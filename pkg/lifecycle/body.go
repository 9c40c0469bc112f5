package lifecycle

import (
	"errors"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/reqlife/reqlife/pkg/classify"
)

// ErrClosedEarly is the error classified when a response body with a
// deferred classification is closed before the stream reached its end.
var ErrClosedEarly = errors.New("response body closed before end of stream")

// terminalState holds everything needed to fire the terminal hook of a
// streamed request. It can be taken exactly once; the atomic guard makes
// OnEOS and OnFailure mutually exclusive even if Close races a final Read
// from another goroutine.
type terminalState struct {
	taken     atomic.Bool
	eos       classify.EOSClassifier
	callbacks Callbacks
	data      any
}

// take claims the terminal slot. It returns false if it was already taken.
func (s *terminalState) take() bool {
	return s.taken.CompareAndSwap(false, true)
}

// observingBody forwards chunks from the inner body unchanged while feeding
// the chunk observer. It fires no Callbacks hooks: it is the pass-through
// wrapper for responses whose classification was final at the headers.
type observingBody struct {
	inner    io.ReadCloser
	observer BodyObserver
	data     any

	// exact is the total body size when known up front, else -1.
	exact     int64
	sizeFired bool
}

func (b *observingBody) observe(n int) {
	if !b.sizeFired {
		b.sizeFired = true
		if b.exact >= 0 {
			b.observer.OnExactBodySize(b.exact, b.data)
		}
	}
	if n > 0 {
		b.observer.OnBodyChunk(n, b.exact, b.data)
	}
}

func (b *observingBody) Read(p []byte) (int, error) {
	n, err := b.inner.Read(p)
	b.observe(n)
	return n, err
}

func (b *observingBody) Close() error {
	return b.inner.Close()
}

// classifyingBody additionally owns the end-of-stream classification of a
// streamed response. When the inner body reaches its natural end it
// classifies the trailers and fires OnEOS; when a read fails it classifies
// the error and fires OnFailure(FailedAtBody). Closing the body before the
// end of the stream also fires OnFailure, so in-flight accounting always
// terminates even if the caller abandons the stream.
type classifyingBody struct {
	observingBody
	trailer  func() http.Header
	terminal *terminalState
}

func (b *classifyingBody) Read(p []byte) (int, error) {
	n, err := b.inner.Read(p)
	b.observe(n)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		if b.terminal.take() {
			trailers := b.trailer()
			b.terminal.callbacks.OnEOS(trailers, b.terminal.eos.ClassifyEOS(trailers), b.terminal.data)
		}
	default:
		if b.terminal.take() {
			b.terminal.callbacks.OnFailure(FailedAtBody, b.terminal.eos.ClassifyError(err), b.terminal.data)
		}
	}
	return n, err
}

func (b *classifyingBody) Close() error {
	err := b.inner.Close()
	if b.terminal.take() {
		b.terminal.callbacks.OnFailure(FailedAtBody, b.terminal.eos.ClassifyError(ErrClosedEarly), b.terminal.data)
	}
	return err
}

// exactBodySize reports the response body size when it is known ahead of
// time, or -1. HEAD responses and status codes without a body advertise a
// Content-Length that no chunk will ever be read for, so they are treated
// as unknown.
func exactBodySize(resp *http.Response) int64 {
	if resp.Request != nil && resp.Request.Method == http.MethodHead {
		return -1
	}
	if resp.ContentLength < 0 {
		return -1
	}
	return resp.ContentLength
}
