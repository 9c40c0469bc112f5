package classify

import (
	"fmt"
	"net/http"
)

// StatusRangeFailure is the failure class reported by StatusInRange for
// responses whose status code falls inside the configured range.
type StatusRangeFailure struct {
	Status int
}

func (f StatusRangeFailure) String() string {
	return fmt.Sprintf("status %d classified as failure", f.Status)
}

// StatusInRange classifies responses whose status code falls within
// [From, To] as failures. The verdict is always available from the status
// line, so it never defers to end of stream.
type StatusInRange struct {
	From int
	To   int
}

// ServerErrorsAsFailures classifies 5xx responses as failures.
func ServerErrorsAsFailures() StatusInRange {
	return StatusInRange{From: 500, To: 599}
}

// ClientAndServerErrorsAsFailures classifies 4xx and 5xx responses as
// failures.
func ClientAndServerErrorsAsFailures() StatusInRange {
	return StatusInRange{From: 400, To: 599}
}

// ClassifyResponse reports a StatusRangeFailure for in-range status codes.
func (c StatusInRange) ClassifyResponse(status int, _ http.Header) Classification {
	if status >= c.From && status <= c.To {
		return Classification{Failure: StatusRangeFailure{Status: status}}
	}
	return Classification{}
}

// ClassifyError wraps the error in an ErrorClass.
func (c StatusInRange) ClassifyError(err error) any {
	return ErrorClass{Err: err}
}

// StatusInRangeStreaming classifies like StatusInRange but withholds the
// verdict for responses without a Content-Length until the stream has ended,
// so a chunked response that dies mid-stream counts as a failure rather than
// a success that happened to match the status line.
type StatusInRangeStreaming struct {
	From int
	To   int
}

// ClassifyResponse returns a final verdict when the body length is declared
// and defers to end of stream otherwise.
func (c StatusInRangeStreaming) ClassifyResponse(status int, header http.Header) Classification {
	if header.Get("Content-Length") == "" {
		return Classification{RequiresEOS: true, EOS: statusEOS{status: status, from: c.From, to: c.To}}
	}
	return StatusInRange{From: c.From, To: c.To}.ClassifyResponse(status, header)
}

// ClassifyError wraps the error in an ErrorClass.
func (c StatusInRangeStreaming) ClassifyError(err error) any {
	return ErrorClass{Err: err}
}

type statusEOS struct {
	status   int
	from, to int
}

func (c statusEOS) ClassifyEOS(http.Header) any {
	if c.status >= c.from && c.status <= c.to {
		return StatusRangeFailure{Status: c.status}
	}
	return nil
}

func (c statusEOS) ClassifyError(err error) any {
	return ErrorClass{Err: err}
}
