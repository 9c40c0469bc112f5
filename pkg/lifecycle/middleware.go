package lifecycle

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/reqlife/reqlife/pkg/classify"
)

// Middleware instruments http.Handlers. It is the server-side counterpart
// of Transport: the response writer handed to the wrapped handler captures
// the status code for classification, feeds every written chunk to the
// observer and fires the terminal hook once the handler returns. A panic in
// the handler fires OnFailure and is re-raised unchanged.
type Middleware struct {
	make      classify.MakeClassifier
	callbacks Callbacks
	observer  BodyObserver
}

// NewMiddleware creates a Middleware. Nil callbacks or observer default to
// their no-op implementations.
func NewMiddleware(mc classify.MakeClassifier, cb Callbacks, obs BodyObserver) *Middleware {
	if cb == nil {
		cb = NopCallbacks{}
	}
	if obs == nil {
		obs = NopBodyObserver{}
	}
	return &Middleware{make: mc, callbacks: cb, observer: obs}
}

// Wrap returns a handler that instruments next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := m.callbacks.Prepare(r)
		rec := &recorder{
			ResponseWriter: w,
			classifier:     m.make.MakeClassifier(r),
			callbacks:      m.callbacks,
			observer:       m.observer,
			data:           data,
		}

		defer func() {
			if p := recover(); p != nil {
				rec.abort(p)
				panic(p)
			}
			rec.finish()
		}()

		next.ServeHTTP(rec, r)
	})
}

// recorder wraps http.ResponseWriter for one request. The first header or
// body write classifies the response and fires OnResponse; writes feed the
// chunk observer; the terminal slot, populated only for deferred
// classifications, is consumed exactly once by finish or abort.
type recorder struct {
	http.ResponseWriter
	classifier classify.Classifier
	callbacks  Callbacks
	observer   BodyObserver
	data       any

	responded bool
	status    int
	term      *terminalState
	writeErr  error
	exact     int64
	sizeFired bool
}

// WriteHeader captures the status code and classifies the response before
// delegating to the underlying ResponseWriter.
func (rec *recorder) WriteHeader(code int) {
	rec.respond(code)
	rec.ResponseWriter.WriteHeader(code)
}

// Write delegates to the underlying ResponseWriter, implying a 200 status
// for the first write, and observes the written chunk.
func (rec *recorder) Write(b []byte) (int, error) {
	rec.respond(http.StatusOK)
	if !rec.sizeFired {
		rec.sizeFired = true
		if rec.exact >= 0 {
			rec.observer.OnExactBodySize(rec.exact, rec.data)
		}
	}
	n, err := rec.ResponseWriter.Write(b)
	if err != nil && rec.writeErr == nil {
		rec.writeErr = err
	}
	if n > 0 {
		rec.observer.OnBodyChunk(n, rec.exact, rec.data)
	}
	return n, err
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it.
func (rec *recorder) Flush() {
	if flusher, ok := rec.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap exposes the underlying ResponseWriter to http.ResponseController.
func (rec *recorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// respond fires OnResponse exactly once, on the first header or body write.
func (rec *recorder) respond(code int) {
	if rec.responded {
		return
	}
	rec.responded = true
	rec.status = code
	rec.exact = contentLength(rec.Header())

	class := rec.classifier.ClassifyResponse(code, rec.Header())
	if !class.RequiresEOS {
		rec.callbacks.OnResponse(code, rec.Header(), class, rec.data)
		return
	}
	rec.term = &terminalState{
		eos:       class.EOS,
		callbacks: rec.callbacks,
		data:      rec.data,
	}
	rec.callbacks.OnResponse(code, rec.Header(), classify.Classification{RequiresEOS: true}, rec.data)
}

// finish fires the terminal hook after the handler returned normally. A
// handler that wrote nothing still produced an implicit 200.
func (rec *recorder) finish() {
	rec.respond(http.StatusOK)
	if rec.term == nil || !rec.term.take() {
		return
	}
	if rec.writeErr != nil {
		rec.callbacks.OnFailure(FailedAtBody, rec.term.eos.ClassifyError(rec.writeErr), rec.data)
		return
	}
	trailers := rec.trailers()
	rec.callbacks.OnEOS(trailers, rec.term.eos.ClassifyEOS(trailers), rec.data)
}

// abort fires the failure hook for a handler panic. Before any response was
// started the failure is at the response stage; after that, only a deferred
// classification still has a terminal hook to consume.
func (rec *recorder) abort(p any) {
	if !rec.responded {
		rec.responded = true
		rec.callbacks.OnFailure(FailedAtResponse, rec.classifier.ClassifyError(panicError(p)), rec.data)
		return
	}
	if rec.term != nil && rec.term.take() {
		rec.callbacks.OnFailure(FailedAtBody, rec.term.eos.ClassifyError(panicError(p)), rec.data)
	}
}

// trailers collects the trailer fields the handler produced, both the ones
// declared in the Trailer header and the ones set with http.TrailerPrefix.
func (rec *recorder) trailers() http.Header {
	trailers := http.Header{}
	for _, field := range rec.Header().Values("Trailer") {
		for _, name := range strings.Split(field, ",") {
			name = http.CanonicalHeaderKey(strings.TrimSpace(name))
			if vals := rec.Header().Values(name); len(vals) > 0 {
				trailers[name] = vals
			}
		}
	}
	for name, vals := range rec.Header() {
		if strings.HasPrefix(name, http.TrailerPrefix) {
			trailers[strings.TrimPrefix(name, http.TrailerPrefix)] = vals
		}
	}
	return trailers
}

func panicError(p any) error {
	if err, ok := p.(error); ok {
		return err
	}
	return fmt.Errorf("handler panic: %v", p)
}

func contentLength(h http.Header) int64 {
	v := h.Get("Content-Length")
	if v == "" {
		return -1
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
