package classify

import (
	"fmt"
	"net/http"
	"strconv"
)

// GRPCFailure is the failure class reported by GRPCErrors for non-OK
// grpc-status codes.
type GRPCFailure struct {
	Code int
}

func (f GRPCFailure) String() string {
	return fmt.Sprintf("grpc-status %d classified as failure", f.Code)
}

// GRPCErrors classifies gRPC-over-HTTP responses. gRPC carries its status
// in the grpc-status trailer, so unless the server used a trailers-only
// response the verdict is deferred until the stream ends.
type GRPCErrors struct{}

// ClassifyResponse returns a final verdict for trailers-only responses
// (grpc-status present in the headers) and defers to end of stream
// otherwise.
func (c GRPCErrors) ClassifyResponse(_ int, header http.Header) Classification {
	if v := header.Get("Grpc-Status"); v != "" {
		return Classification{Failure: classifyGRPCStatus(v)}
	}
	return Classification{RequiresEOS: true, EOS: grpcEOS{}}
}

// ClassifyError wraps the error in an ErrorClass.
func (c GRPCErrors) ClassifyError(err error) any {
	return ErrorClass{Err: err}
}

type grpcEOS struct{}

func (grpcEOS) ClassifyEOS(trailers http.Header) any {
	return classifyGRPCStatus(trailers.Get("Grpc-Status"))
}

func (grpcEOS) ClassifyError(err error) any {
	return ErrorClass{Err: err}
}

// classifyGRPCStatus treats a missing or zero grpc-status as success.
// A status that does not parse is reported as code 2 (UNKNOWN).
func classifyGRPCStatus(v string) any {
	if v == "" || v == "0" {
		return nil
	}
	code, err := strconv.Atoi(v)
	if err != nil {
		code = 2
	}
	return GRPCFailure{Code: code}
}
