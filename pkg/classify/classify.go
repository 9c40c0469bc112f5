package classify

import "net/http"

// Classification is the verdict reached from a response's status and headers.
//
// When RequiresEOS is false the verdict is final: Failure is nil for a
// success and holds a classifier-defined failure class otherwise. When
// RequiresEOS is true the verdict is deferred; EOS carries the classifier
// that will decide once the body stream ends. The lifecycle machinery
// consumes EOS itself and clears it before handing the classification to
// any callback.
type Classification struct {
	RequiresEOS bool
	Failure     any
	EOS         EOSClassifier
}

// Classifier classifies responses and transport errors for a single request.
type Classifier interface {
	// ClassifyResponse inspects the status code and headers of a response.
	ClassifyResponse(status int, header http.Header) Classification

	// ClassifyError classifies an error that prevented a response from
	// being produced at all.
	ClassifyError(err error) any
}

// EOSClassifier reaches a verdict once the response stream has ended.
type EOSClassifier interface {
	// ClassifyEOS inspects the trailers available at end of stream.
	// A nil return means success.
	ClassifyEOS(trailers http.Header) any

	// ClassifyError classifies an error observed while streaming.
	ClassifyError(err error) any
}

// MakeClassifier produces a classifier for each incoming request.
type MakeClassifier interface {
	MakeClassifier(r *http.Request) Classifier
}

// MakeClassifierFunc adapts a function to the MakeClassifier interface.
type MakeClassifierFunc func(r *http.Request) Classifier

// MakeClassifier calls f.
func (f MakeClassifierFunc) MakeClassifier(r *http.Request) Classifier { return f(r) }

// Shared returns a MakeClassifier that hands out the same classifier for
// every request. The classifier must be safe for concurrent use.
func Shared(c Classifier) MakeClassifier {
	return MakeClassifierFunc(func(*http.Request) Classifier { return c })
}

// ErrorClass is the failure class produced for transport-level errors by
// the classifiers in this package.
type ErrorClass struct {
	Err error
}

func (c ErrorClass) Error() string { return c.Err.Error() }

// Unwrap returns the underlying error.
func (c ErrorClass) Unwrap() error { return c.Err }
