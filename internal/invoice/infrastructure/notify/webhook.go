// Package notify forwards rendered invoices to the customer's contact channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmehra2102/order-fulfillment/internal/invoice/application"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

// Webhook posts each message as JSON to a mail/SMS gateway. The attachment is base64 encoded.
type Webhook struct {
	log  *slog.Logger
	url  string
	http *http.Client
}

func NewWebhook(log *slog.Logger, url string, timeout time.Duration) *Webhook {
	return &Webhook{
		log: log,
		url: url,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type payload struct {
	Channel    string `json:"channel"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	FileName   string `json:"fileName"`
	Attachment []byte `json:"attachment"`
}

func (n *Webhook) Send(ctx context.Context, m application.Message) error {
	body, err := json.Marshal(payload{
		Channel:    m.Channel,
		To:         m.Address,
		Subject:    m.Subject,
		FileName:   m.FileName,
		Attachment: m.Attachment,
	})
	if err != nil {
		return fmt.Errorf("notify: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return apperr.TransportFailure(err, "notify: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return apperr.TransportFailure(err, "notify: POST %s", n.url)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return apperr.TransportFailure(fmt.Errorf("status %d", resp.StatusCode), "notify: POST %s", n.url)
	}
	n.log.InfoContext(ctx, "invoice forwarded", "channel", m.Channel, "file", m.FileName)
	return nil
}

// Log only records the delivery; used when no gateway is configured.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log { return &Log{log: log} }

func (n *Log) Send(ctx context.Context, m application.Message) error {
	n.log.InfoContext(ctx, "invoice delivery skipped, no gateway configured",
		"channel", m.Channel, "file", m.FileName, "bytes", len(m.Attachment))
	return nil
}
