package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/order-fulfillment/internal/invoice/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
	"github.com/dmehra2102/order-fulfillment/pkg/idempotency"
	"github.com/dmehra2102/order-fulfillment/pkg/tracing"
)

type Deliverer interface {
	Deliver(ctx context.Context, ev domain.InvoiceSendRequested) error
}

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer forwards invoices whose send was requested. Other invoice events on the
// topic are committed and ignored.
type Consumer struct {
	log    *slog.Logger
	reader Reader
	svc    Deliverer
	idem   *idempotency.Store
	tracer trace.Tracer

	backOff func() backoff.BackOff
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader Reader, svc Deliverer, idem *idempotency.Store) *Consumer {
	return &Consumer{
		log:     log,
		reader:  reader,
		svc:     svc,
		idem:    idem,
		tracer:  otel.Tracer("invoice-consumer"),
		backOff: retryBackOff,
	}
}

func retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 30 * time.Second
	return b
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if err := c.Handle(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// Handle processes one message and commits it. A transport failure is retried with
// backoff before the next message is fetched, since committing a later offset would
// skip this one. It returns an error only when ctx ends first; the message then stays
// uncommitted.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) error {
	if tracing.HeaderValue(msg.Headers, "event_type") != (domain.InvoiceSendRequested{}).Type() {
		c.commit(ctx, msg)
		return nil
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "DeliverInvoice")
	defer span.End()

	var ev domain.InvoiceSendRequested
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.log.ErrorContext(msgCtx, "unmarshal failed", "err", err)
		c.commit(ctx, msg)
		return nil
	}
	span.SetAttributes(attribute.String("invoice.id", ev.InvoiceID), attribute.String("invoice.channel", ev.Channel))

	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := ctx.Err(); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, c.deliverOnce(msgCtx, key, ev)
	}, backoff.WithBackOff(c.backOff()), backoff.WithMaxElapsedTime(0))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	c.commit(ctx, msg)
	return nil
}

// deliverOnce marks the message seen and forwards the invoice. Transport failures
// release the key and come back retryable; anything else is permanent.
func (c *Consumer) deliverOnce(ctx context.Context, key string, ev domain.InvoiceSendRequested) error {
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		c.log.ErrorContext(ctx, "idempotency check failed", "key", key, "err", err)
		return err
	}
	if seen {
		c.log.InfoContext(ctx, "duplicate message skipped", "key", key)
		return nil
	}

	err = c.svc.Deliver(ctx, ev)
	if err == nil {
		return nil
	}
	c.log.ErrorContext(ctx, "invoice delivery failed", "invoice_id", ev.InvoiceID, "err", err)
	if !errors.Is(err, apperr.Transport) {
		return backoff.Permanent(err)
	}
	if ferr := c.idem.Forget(context.WithoutCancel(ctx), key); ferr != nil {
		c.log.ErrorContext(ctx, "idempotency release failed", "key", key, "err", ferr)
	}
	return err
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.log.ErrorContext(ctx, "commit failed", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
	}
}
