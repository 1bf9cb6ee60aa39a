package idempotency

import (
	"log/slog"
	"net/http"

	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
	"github.com/dmehra2102/order-fulfillment/pkg/httpx"
)

const Header = "Idempotency-Key"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware rejects a repeated Idempotency-Key on the same route with 409.
// Requests without the header pass through. A key whose request failed is released.
func Middleware(log *slog.Logger, store *Store, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := r.Header.Get(Header)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := store.RequestKey(route, k)
			seen, err := store.Seen(r.Context(), key)
			if err != nil {
				log.ErrorContext(r.Context(), "idempotency check failed", "key", key, "err", err)
				httpx.WriteError(w, apperr.TransportFailure(err, "idempotency store unavailable"))
				return
			}
			if seen {
				log.InfoContext(r.Context(), "duplicate request rejected", "key", key)
				httpx.WriteError(w, apperr.Conflicting("request with %s %q already processed", Header, k))
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status >= 400 {
				if err := store.Forget(r.Context(), key); err != nil {
					log.ErrorContext(r.Context(), "idempotency release failed", "key", key, "err", err)
				}
			}
		})
	}
}
