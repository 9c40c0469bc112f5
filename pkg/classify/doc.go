// Package classify decides whether a response counts as a success or a
// failure. A classifier inspects the status line and headers; when that is
// not enough (trailer-based protocols such as gRPC), it defers the verdict
// until the end of the response stream and hands back an EOSClassifier that
// makes the final call.
package classify
