package outbox

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process outbox used by the memory persistence mode and tests.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.nextID++
		s.events = append(s.events, Event{
			ID:            s.nextID,
			AggregateType: m.AggregateType,
			AggregateID:   m.AggregateID,
			Type:          m.Type,
			Payload:       m.Payload,
			Headers:       m.Headers,
			Traceparent:   m.Traceparent,
			CreatedAt:     time.Now().UTC(),
			Status:        StatusPending,
		})
	}
}

// LockBatch claims pending events and failed ones still under the retry limit.
func (s *MemoryStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for i := range s.events {
		if len(out) == batchSize {
			break
		}
		e := &s.events[i]
		if e.Status != StatusPending && (e.Status != StatusFailed || e.RetryCount >= maxRetries) {
			continue
		}
		e.Status = StatusInProgress
		e.RelayID = relayID
		out = append(out, *e)
	}
	return out, nil
}

// MarkSent drops published events.
func (s *MemoryStore) MarkSent(ctx context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sent := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		sent[id] = struct{}{}
	}
	kept := s.events[:0]
	for _, e := range s.events {
		if _, ok := sent[e.ID]; !ok {
			kept = append(kept, e)
		}
	}
	clear(s.events[len(kept):])
	s.events = kept
	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	return s.mark([]int64{id}, func(e *Event) {
		e.Status = StatusFailed
		e.RetryCount++
		e.LastError = &errMsg
	})
}

func (s *MemoryStore) mark(ids []int64, fn func(*Event)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for i := range s.events {
		if _, ok := want[s.events[i].ID]; ok {
			fn(&s.events[i])
		}
	}
	return nil
}

// Events returns a snapshot of the events not yet sent.
func (s *MemoryStore) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Types returns the unsent event types in insertion order.
func (s *MemoryStore) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}
