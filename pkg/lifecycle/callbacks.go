package lifecycle

import (
	"net/http"

	"github.com/reqlife/reqlife/pkg/classify"
)

// FailedAt identifies where in the request lifecycle an error was observed.
type FailedAt int

const (
	// FailedAtResponse means the response could not be produced at all.
	FailedAtResponse FailedAt = iota
	// FailedAtBody means producing a body chunk failed mid-stream.
	FailedAtBody
	// FailedAtTrailers means producing the trailers failed. net/http folds
	// malformed trailers into the final body read error, so on the standard
	// transport these surface as FailedAtBody; the value exists for custom
	// body implementations with a distinct trailer stage.
	FailedAtTrailers
)

func (f FailedAt) String() string {
	switch f {
	case FailedAtResponse:
		return "response"
	case FailedAtBody:
		return "body"
	case FailedAtTrailers:
		return "trailers"
	default:
		return "unknown"
	}
}

// Callbacks receives the lifecycle events of a single request.
//
// Prepare runs once per request before the wrapped handler and returns
// per-request state that is handed back on every later hook. For every
// request exactly one of OnResponse or OnFailure(FailedAtResponse, ...)
// fires; if the response classification was deferred to end of stream,
// exactly one of OnEOS or OnFailure(FailedAtBody|FailedAtTrailers, ...)
// fires afterwards. No hook fires twice and none is skipped.
//
// A Callbacks implementation that wants to skip certain requests entirely
// should return a nil Data from Prepare and treat nil as a no-op sentinel
// in every other hook.
type Callbacks interface {
	// Prepare creates the per-request state.
	Prepare(r *http.Request) any

	// OnResponse is invoked once response headers are available. If the
	// classification is deferred, class.RequiresEOS is true and nothing
	// else about the verdict is exposed yet.
	OnResponse(status int, header http.Header, class classify.Classification, data any)

	// OnEOS is invoked when a stream with a deferred classification ends
	// normally. failure is nil when the trailers classified as success.
	// It consumes the per-request state.
	OnEOS(trailers http.Header, failure any, data any)

	// OnFailure is invoked when the request errored at the given stage.
	// It consumes the per-request state.
	OnFailure(at FailedAt, class any, data any)
}

// BodyObserver is invoked for every response body chunk, independent of the
// Callbacks terminal hooks. exactSize is the total body size if it was
// known ahead of time, or -1. Observation must not alter the chunk and must
// not block.
type BodyObserver interface {
	// OnBodyChunk is invoked once per produced chunk with its size in bytes.
	OnBodyChunk(n int, exactSize int64, data any)

	// OnExactBodySize is invoked at most once per request, before the first
	// chunk observation, when the exact total body size is known up front.
	OnExactBodySize(size int64, data any)
}

// NopCallbacks is a Callbacks implementation that does nothing. Embed it to
// implement only the hooks you care about.
type NopCallbacks struct{}

func (NopCallbacks) Prepare(*http.Request) any { return nil }

func (NopCallbacks) OnResponse(int, http.Header, classify.Classification, any) {}

func (NopCallbacks) OnEOS(http.Header, any, any) {}

func (NopCallbacks) OnFailure(FailedAt, any, any) {}

// NopBodyObserver is a BodyObserver that does nothing.
type NopBodyObserver struct{}

func (NopBodyObserver) OnBodyChunk(int, int64, any) {}

func (NopBodyObserver) OnExactBodySize(int64, any) {}
