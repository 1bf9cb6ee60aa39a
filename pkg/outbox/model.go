package outbox

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Message is a row to be written in the same transaction as the aggregate change.
type Message struct {
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
}

// Event is a stored outbox row as seen by the relay.
type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RelayID       string
	RetryCount    int
	LastError     *string
}

func NewMessage(aggregateType, aggregateID, eventType string, v any) (Message, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       payload,
		Headers:       map[string]string{},
	}, nil
}

type typed interface {
	Type() string
}

// Encode turns recorded aggregate events into outbox messages sharing one trace parent.
func Encode[E typed](aggregateType, aggregateID, traceparent string, events []E) ([]Message, error) {
	msgs := make([]Message, 0, len(events))
	for _, e := range events {
		m, err := NewMessage(aggregateType, aggregateID, e.Type(), e)
		if err != nil {
			return nil, err
		}
		m.Traceparent = traceparent
		msgs = append(msgs, m)
	}
	return msgs, nil
}
