package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerPassesTokenThrough(t *testing.T) {
	var got Credential
	h := Bearer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer opaque.token.value")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, Credential("opaque.token.value"), got)
}

func TestApplyForwardsHeader(t *testing.T) {
	ctx := WithCredential(context.Background(), "abc")
	out, _ := http.NewRequest(http.MethodGet, "http://catalog/products/p1", nil)
	Apply(ctx, out)
	assert.Equal(t, "Bearer abc", out.Header.Get("Authorization"))

	bare, _ := http.NewRequest(http.MethodGet, "http://catalog/products/p1", nil)
	Apply(context.Background(), bare)
	assert.Empty(t, bare.Header.Get("Authorization"))
}

func TestBearerIgnoresOtherSchemes(t *testing.T) {
	var ok bool
	h := Bearer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, ok)
}
