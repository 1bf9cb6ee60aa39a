package outbox

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/dmehra2102/order-fulfillment/pkg/tracing"
)

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Dispatcher publishes outbox events, choosing the topic by aggregate type.
type Dispatcher struct {
	log          *slog.Logger
	producer     Producer
	topics       map[string]string
	defaultTopic string
}

func NewDispatcher(log *slog.Logger, producer Producer, defaultTopic string, topics map[string]string) *Dispatcher {
	return &Dispatcher{log: log, producer: producer, topics: topics, defaultTopic: defaultTopic}
}

func (d *Dispatcher) Topic(aggregateType string) string {
	if t, ok := d.topics[aggregateType]; ok {
		return t
	}
	return d.defaultTopic
}

func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	headers := make([]kafka.Header, 0, len(event.Headers)+2)

	for k, v := range event.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	headers = append(headers, kafka.Header{Key: "event_type", Value: []byte(event.Type)})
	if event.Traceparent != "" {
		headers = append(headers, kafka.Header{Key: tracing.TraceparentHeader, Value: []byte(event.Traceparent)})
	}

	msg := kafka.Message{
		Topic:   d.Topic(event.AggregateType),
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	}
	if err := d.producer.WriteMessages(ctx, msg); err != nil {
		d.log.ErrorContext(ctx, "outbox dispatch failed", "event_id", event.ID, "err", err)
		return err
	}
	d.log.InfoContext(ctx, "outbox dispatched", "event_id", event.ID, "type", event.Type, "topic", msg.Topic)
	return nil
}
