package httpx

import (
	"net/http"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Guard wraps a mutating route, keyed by a stable route name.
type Guard func(route string) func(http.Handler) http.Handler

// NoGuard leaves every route unwrapped.
func NoGuard(string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

// Fail records err on span and writes the error envelope.
func Fail(w http.ResponseWriter, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	WriteError(w, err)
}
