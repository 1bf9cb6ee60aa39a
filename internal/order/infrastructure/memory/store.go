package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dmehra2102/order-fulfillment/internal/order/application"
	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
	"github.com/dmehra2102/order-fulfillment/pkg/outbox"
	"github.com/dmehra2102/order-fulfillment/pkg/tracing"
)

const AggregateType = "order"

// Store keeps orders in process. Mutations run on clones and replace the stored
// values only when every step succeeded.
type Store struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	seq    map[string]int
	next   int
	outbox *outbox.MemoryStore
}

func NewStore(ob *outbox.MemoryStore) *Store {
	return &Store{
		orders: make(map[string]*domain.Order),
		seq:    make(map[string]int),
		outbox: ob,
	}
}

func (s *Store) Create(ctx context.Context, o *domain.Order) error {
	msgs, err := outbox.Encode(AggregateType, o.ID, tracing.Traceparent(ctx), o.PullEvents())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return apperr.Conflicting("order %s already exists", o.ID)
	}
	s.orders[o.ID] = o.Clone()
	s.seq[o.ID] = s.next
	s.next++
	s.outbox.Append(msgs...)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, apperr.Missing("order %s not found", id)
	}
	return o.Clone(), nil
}

func (s *Store) GetMany(ctx context.Context, ids []string) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneAll(ids)
}

// List returns matching orders oldest first.
func (s *Store) List(ctx context.Context, f application.OrderFilter) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if f.Match(*o) {
			out = append(out, *o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out, nil
}

func (s *Store) Update(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error) {
	out, err := s.UpdateMany(ctx, []string{id}, func(os []*domain.Order) error { return fn(os[0]) })
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *Store) UpdateMany(ctx context.Context, ids []string, fn func([]*domain.Order) error) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	work, err := s.cloneAll(ids)
	if err != nil {
		return nil, err
	}
	if err := fn(work); err != nil {
		return nil, err
	}

	tp := tracing.Traceparent(ctx)
	var msgs []outbox.Message
	for _, o := range work {
		m, err := outbox.Encode(AggregateType, o.ID, tp, o.PullEvents())
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m...)
	}
	out := make([]*domain.Order, len(work))
	for i, o := range work {
		s.orders[o.ID] = o
		out[i] = o.Clone()
	}
	s.outbox.Append(msgs...)
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string, fn func(*domain.Order) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work, err := s.cloneAll([]string{id})
	if err != nil {
		return err
	}
	if err := fn(work[0]); err != nil {
		return err
	}
	msgs, err := outbox.Encode(AggregateType, id, tracing.Traceparent(ctx), work[0].PullEvents())
	if err != nil {
		return err
	}
	delete(s.orders, id)
	delete(s.seq, id)
	s.outbox.Append(msgs...)
	return nil
}

func (s *Store) cloneAll(ids []string) ([]*domain.Order, error) {
	out := make([]*domain.Order, 0, len(ids))
	for _, id := range ids {
		o, ok := s.orders[id]
		if !ok {
			return nil, apperr.Missing("order %s not found", id)
		}
		out = append(out, o.Clone())
	}
	return out, nil
}
