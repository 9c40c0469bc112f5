package lifecycle

import (
	"net/http"

	"github.com/reqlife/reqlife/pkg/classify"
)

// event records a single hook invocation.
type event struct {
	kind    string
	status  int
	class   classify.Classification
	at      FailedAt
	failure any
	data    any
}

// recordingCallbacks captures every hook invocation for assertions.
type recordingCallbacks struct {
	events []event
	token  *struct{}
}

func newRecordingCallbacks() *recordingCallbacks {
	return &recordingCallbacks{token: &struct{}{}}
}

func (c *recordingCallbacks) Prepare(*http.Request) any {
	c.events = append(c.events, event{kind: "prepare", data: c.token})
	return c.token
}

func (c *recordingCallbacks) OnResponse(status int, _ http.Header, class classify.Classification, data any) {
	c.events = append(c.events, event{kind: "response", status: status, class: class, data: data})
}

func (c *recordingCallbacks) OnEOS(_ http.Header, failure any, data any) {
	c.events = append(c.events, event{kind: "eos", failure: failure, data: data})
}

func (c *recordingCallbacks) OnFailure(at FailedAt, class any, data any) {
	c.events = append(c.events, event{kind: "failure", at: at, failure: class, data: data})
}

func (c *recordingCallbacks) kinds() []string {
	kinds := make([]string, len(c.events))
	for i, e := range c.events {
		kinds[i] = e.kind
	}
	return kinds
}

func (c *recordingCallbacks) find(kind string) (event, bool) {
	for _, e := range c.events {
		if e.kind == kind {
			return e, true
		}
	}
	return event{}, false
}

// recordingObserver captures chunk and exact-size observations.
type recordingObserver struct {
	chunks []int
	exact  []int64
	sizes  []int64
}

func (o *recordingObserver) OnBodyChunk(n int, exactSize int64, _ any) {
	o.chunks = append(o.chunks, n)
	o.exact = append(o.exact, exactSize)
}

func (o *recordingObserver) OnExactBodySize(size int64, _ any) {
	o.sizes = append(o.sizes, size)
}

func (o *recordingObserver) total() int {
	sum := 0
	for _, n := range o.chunks {
		sum += n
	}
	return sum
}
