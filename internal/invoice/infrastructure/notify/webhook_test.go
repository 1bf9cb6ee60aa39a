package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/order-fulfillment/internal/invoice/application"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

func TestWebhookPostsMessage(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhook(slog.New(slog.NewTextHandler(io.Discard, nil)), srv.URL, time.Second)
	err := n.Send(context.Background(), application.Message{
		Channel: "email", Address: "asha@example.com", Subject: "Invoice INV-000001",
		FileName: "invoice-O1.pdf", Attachment: []byte("%PDF"),
	})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", got.To)
	assert.Equal(t, []byte("%PDF"), got.Attachment)
}

func TestWebhookFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n := NewWebhook(slog.New(slog.NewTextHandler(io.Discard, nil)), srv.URL, time.Second)
	err := n.Send(context.Background(), application.Message{Channel: "sms"})
	assert.ErrorIs(t, err, apperr.Transport)
}
