package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmehra2102/order-fulfillment/internal/invoice/application"
	"github.com/dmehra2102/order-fulfillment/internal/invoice/domain"
	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	ordermemory "github.com/dmehra2102/order-fulfillment/internal/order/infrastructure/memory"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
	"github.com/dmehra2102/order-fulfillment/pkg/outbox"
	"github.com/dmehra2102/order-fulfillment/pkg/tracing"
)

const AggregateType = "invoice"

// Store keeps invoices next to the in-process order store whose latch it closes.
// mu is always taken before the order store's lock.
type Store struct {
	mu       sync.Mutex
	orders   *ordermemory.Store
	outbox   *outbox.MemoryStore
	invoices map[string]domain.Invoice
	byOrder  map[string]string
	number   int64
}

func NewStore(orders *ordermemory.Store, ob *outbox.MemoryStore) *Store {
	return &Store{
		orders:   orders,
		outbox:   ob,
		invoices: make(map[string]domain.Invoice),
		byOrder:  make(map[string]string),
	}
}

func (s *Store) Issue(ctx context.Context, req application.IssueRequest) (domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inv domain.Invoice
	_, err := s.orders.Update(ctx, req.OrderID, func(o *orderdomain.Order) error {
		if err := o.MarkInvoiced(req.At); err != nil {
			return err
		}
		s.number++
		inv = domain.Invoice{
			ID:           req.InvoiceID,
			Number:       s.number,
			OrderID:      o.ID,
			CustomerID:   o.CustomerID,
			CustomerName: o.CustomerName,
			Amount:       o.TotalAmount,
			CreatedAt:    req.At,
		}
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	ev := domain.InvoiceIssued{InvoiceID: inv.ID, Number: inv.Number, OrderID: inv.OrderID, Amount: inv.Amount}
	msgs, err := outbox.Encode(AggregateType, inv.ID, tracing.Traceparent(ctx), []domain.InvoiceIssued{ev})
	if err != nil {
		return domain.Invoice{}, err
	}
	s.invoices[inv.ID] = inv
	s.byOrder[inv.OrderID] = inv.ID
	s.outbox.Append(msgs...)
	return inv, nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return domain.Invoice{}, apperr.Missing("invoice %s not found", id)
	}
	return inv, nil
}

func (s *Store) ByOrder(ctx context.Context, orderID string) (domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byOrder[orderID]
	if !ok {
		return domain.Invoice{}, apperr.Missing("no invoice for order %s", orderID)
	}
	return s.invoices[id], nil
}

// List returns matching invoices, newest number first.
func (s *Store) List(ctx context.Context, q string) ([]domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Invoice
	for _, inv := range s.invoices {
		if inv.Matches(q) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out, nil
}

func (s *Store) RequestSend(ctx context.Context, id string, at time.Time, ev domain.InvoiceSendRequested) (domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return domain.Invoice{}, apperr.Missing("invoice %s not found", id)
	}
	msgs, err := outbox.Encode(AggregateType, id, tracing.Traceparent(ctx), []domain.InvoiceSendRequested{ev})
	if err != nil {
		return domain.Invoice{}, err
	}
	inv.SentAt = &at
	s.invoices[id] = inv
	s.outbox.Append(msgs...)
	return inv, nil
}
