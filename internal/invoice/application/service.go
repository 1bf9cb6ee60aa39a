package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/order-fulfillment/internal/invoice/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

type Service struct {
	log       *slog.Logger
	repo      Repository
	orders    Orders
	customers Customers
	renderer  Renderer
	notifier  Notifier
	currency  string
	now       func() time.Time
}

func NewService(log *slog.Logger, repo Repository, orders Orders, customers Customers, renderer Renderer, notifier Notifier, currency string) *Service {
	return &Service{
		log:       log,
		repo:      repo,
		orders:    orders,
		customers: customers,
		renderer:  renderer,
		notifier:  notifier,
		currency:  currency,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateInvoice issues the single invoice of an order. A second call is a conflict and
// leaves the first invoice untouched.
func (s *Service) CreateInvoice(ctx context.Context, orderID string) (domain.Invoice, error) {
	if orderID == "" {
		return domain.Invoice{}, apperr.Invalid("orderId", "is required")
	}
	inv, err := s.repo.Issue(ctx, IssueRequest{InvoiceID: uuid.NewString(), OrderID: orderID, At: s.now()})
	if err != nil {
		s.log.WarnContext(ctx, "invoice not issued", "order_id", orderID, "err", err)
		return domain.Invoice{}, err
	}
	s.log.InfoContext(ctx, "invoice issued", "order_id", orderID, "invoice_id", inv.ID, "number", inv.DisplayNumber())
	return inv, nil
}

func (s *Service) GetInvoice(ctx context.Context, id string) (domain.Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetInvoiceByOrder(ctx context.Context, orderID string) (domain.Invoice, error) {
	return s.repo.ByOrder(ctx, orderID)
}

func (s *Service) ListInvoices(ctx context.Context, q string) ([]domain.Invoice, error) {
	return s.repo.List(ctx, q)
}

// InvoiceArtifact renders the PDF of an order's invoice. Orders whose latch is open have none.
func (s *Service) InvoiceArtifact(ctx context.Context, orderID string) (domain.Invoice, []byte, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Invoice{}, nil, err
	}
	if !o.InvoiceCreated {
		return domain.Invoice{}, nil, apperr.Missing("order %s has no invoice yet", orderID)
	}
	inv, err := s.repo.ByOrder(ctx, orderID)
	if err != nil {
		return domain.Invoice{}, nil, err
	}
	pdf, err := s.render(ctx, inv)
	return inv, pdf, err
}

func (s *Service) InvoiceArtifactByID(ctx context.Context, id string) (domain.Invoice, []byte, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Invoice{}, nil, err
	}
	pdf, err := s.render(ctx, inv)
	return inv, pdf, err
}

// SendInvoice queues the artifact for the customer's recorded contact. Email is
// preferred over phone.
func (s *Service) SendInvoice(ctx context.Context, id string) (domain.Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	c, err := s.customers.Customer(ctx, inv.CustomerID)
	if err != nil {
		return domain.Invoice{}, err
	}
	ev := domain.InvoiceSendRequested{InvoiceID: inv.ID, OrderID: inv.OrderID}
	switch {
	case c.Email != "":
		ev.Channel, ev.Address = ChannelEmail, c.Email
	case c.Phone != "":
		ev.Channel, ev.Address = ChannelSMS, c.Phone
	default:
		return domain.Invoice{}, apperr.Invalid("contact", "customer %s has no email or phone", c.ID)
	}

	inv, err = s.repo.RequestSend(ctx, id, s.now(), ev)
	if err != nil {
		return domain.Invoice{}, err
	}
	s.log.InfoContext(ctx, "invoice send requested", "invoice_id", id, "channel", ev.Channel)
	return inv, nil
}

// Deliver renders and forwards one queued invoice.
func (s *Service) Deliver(ctx context.Context, ev domain.InvoiceSendRequested) error {
	inv, pdf, err := s.InvoiceArtifactByID(ctx, ev.InvoiceID)
	if err != nil {
		return err
	}
	err = s.notifier.Send(ctx, Message{
		Channel:    ev.Channel,
		Address:    ev.Address,
		Subject:    "Invoice " + inv.DisplayNumber(),
		FileName:   inv.FileName(),
		Attachment: pdf,
	})
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "invoice delivered", "invoice_id", inv.ID, "channel", ev.Channel)
	return nil
}

func (s *Service) render(ctx context.Context, inv domain.Invoice) ([]byte, error) {
	o, err := s.orders.Get(ctx, inv.OrderID)
	if err != nil {
		return nil, err
	}
	c, err := s.customers.Customer(ctx, inv.CustomerID)
	if err != nil {
		if !errors.Is(err, apperr.NotFound) {
			return nil, err
		}
		c.ID, c.Name = inv.CustomerID, inv.CustomerName
	}
	return s.renderer.Render(Document{Invoice: inv, Order: o, Customer: c, Currency: s.currency})
}
