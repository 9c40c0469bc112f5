// Package lifecycle instruments the life of an HTTP request without
// changing its observable behavior. It wraps a handler (server side) or a
// round tripper (client side), threads caller-supplied per-request state
// through every stage, and guarantees that each accounting event fires
// exactly once per request: one Prepare, one OnResponse or
// OnFailure(FailedAtResponse), and - for responses whose classification is
// deferred to end of stream - exactly one of OnEOS or OnFailure afterwards.
//
// The package holds no locks, spawns no goroutines, and never swallows or
// rewrites errors: every error and every body chunk reaches the original
// caller unchanged. Hook implementations are expected to be infallible and
// non-blocking.
package lifecycle
