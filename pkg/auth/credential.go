// Package auth carries the caller's bearer credential from the edge to outbound calls.
//
// The token is opaque here: it is never parsed or validated, only forwarded.
package auth

import (
	"context"
	"net/http"
	"strings"
)

type Credential string

type ctxKey struct{}

func WithCredential(ctx context.Context, c Credential) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func FromContext(ctx context.Context) (Credential, bool) {
	c, ok := ctx.Value(ctxKey{}).(Credential)
	return c, ok && c != ""
}

// Apply sets the Authorization header on an outbound request when a credential is present.
func Apply(ctx context.Context, req *http.Request) {
	if c, ok := FromContext(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+string(c))
	}
}

func Bearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(h, "Bearer "); ok && token != "" {
			r = r.WithContext(WithCredential(r.Context(), Credential(token)))
		}
		next.ServeHTTP(w, r)
	})
}
