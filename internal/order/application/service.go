package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

type Service struct {
	log       *slog.Logger
	repo      OrderRepository
	customers CustomerLookup
	products  ProductLookup
	users     UserDirectory
	now       func() time.Time
	newID     func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(log *slog.Logger, repo OrderRepository, customers CustomerLookup, products ProductLookup, users UserDirectory, opts ...Option) *Service {
	s := &Service{
		log:       log,
		repo:      repo,
		customers: customers,
		products:  products,
		users:     users,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type LineInput struct {
	ProductID   string           `json:"productId"`
	Quantity    int              `json:"qty"`
	DiscountPct decimal.Decimal  `json:"offer"`
	UnitPrice   *decimal.Decimal `json:"unitPrice,omitempty"`
}

type CreateOrderInput struct {
	CustomerID    string      `json:"customerId"`
	Items         []LineInput `json:"items"`
	PaymentMethod string      `json:"paymentMethod"`
}

type UpdateOrderInput struct {
	Items         *[]LineInput `json:"items,omitempty"`
	PaymentMethod *string      `json:"paymentMethod,omitempty"`
	Status        *string      `json:"status,omitempty"`
}

func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if in.CustomerID == "" {
		return nil, apperr.Invalid("customerId", "is required")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Invalid("items", "an order needs at least one line item")
	}
	method := domain.PaymentCash
	if in.PaymentMethod != "" {
		m, err := domain.ParsePaymentMethod(in.PaymentMethod)
		if err != nil {
			return nil, err
		}
		method = m
	}

	customer, err := s.customers.Customer(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	lines, err := s.priceLines(ctx, in.Items, false)
	if err != nil {
		return nil, err
	}

	o, err := domain.NewOrder(s.newID(), customer.ID, lines, method, s.now())
	if err != nil {
		return nil, err
	}
	o.CustomerName = customer.Name

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "order created", "order_id", o.ID, "customer_id", o.CustomerID, "total", o.TotalAmount.StringFixed(2))
	return o, nil
}

// UpdateOrder applies the fields present in in. New lines capture the current catalog
// price unless the caller pins UnitPrice.
func (s *Service) UpdateOrder(ctx context.Context, id string, in UpdateOrderInput) (*domain.Order, error) {
	var (
		lines  []domain.LineItem
		method domain.PaymentMethod
		status domain.OrderStatus
		err    error
	)
	if in.Items != nil {
		if len(*in.Items) == 0 {
			return nil, apperr.Invalid("items", "an order needs at least one line item")
		}
		if lines, err = s.priceLines(ctx, *in.Items, true); err != nil {
			return nil, err
		}
	}
	if in.PaymentMethod != nil {
		if method, err = domain.ParsePaymentMethod(*in.PaymentMethod); err != nil {
			return nil, err
		}
	}
	if in.Status != nil {
		if status, err = domain.ParseOrderStatus(*in.Status); err != nil {
			return nil, err
		}
	}

	now := s.now()
	o, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		if lines != nil {
			if err := o.ReplaceLines(lines, now); err != nil {
				return err
			}
		}
		if method != "" {
			o.SetPaymentMethod(method, now)
		}
		if status != "" {
			o.SetStatus(status, now)
		}
		return o.CheckInvariants()
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "order updated", "order_id", id, "total", o.TotalAmount.StringFixed(2))
	return o, nil
}

func (s *Service) SetOrderStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	st, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return s.repo.Update(ctx, id, func(o *domain.Order) error {
		o.SetStatus(st, now)
		return nil
	})
}

func (s *Service) MarkOutForDelivery(ctx context.Context, id string) (*domain.Order, error) {
	now := s.now()
	o, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		return o.MarkOutForDelivery(now)
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "order out for delivery", "order_id", id, "agent_id", o.DeliveryUserID)
	return o, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id, func(o *domain.Order) error { return o.Remove() }); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "order deleted", "order_id", id)
	return nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.Get(ctx, id)
}

// ListOrders returns the matching orders ranked by delivery status.
func (s *Service) ListOrders(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	orders, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	domain.SortByDeliveryRank(orders)
	return orders, nil
}

func (s *Service) priceLines(ctx context.Context, in []LineInput, allowPinned bool) ([]domain.LineItem, error) {
	lines := make([]domain.LineItem, 0, len(in))
	for i, li := range in {
		if li.ProductID == "" {
			return nil, apperr.Invalid(fmt.Sprintf("items[%d].productId", i), "is required")
		}
		p, err := s.products.Product(ctx, li.ProductID)
		if err != nil {
			return nil, err
		}
		price := p.Price
		if allowPinned && li.UnitPrice != nil {
			price = *li.UnitPrice
		}
		line, err := domain.NewLineItem(p.ID, p.Name, price, li.Quantity, li.DiscountPct)
		if err != nil {
			return nil, lineError(i, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func lineError(i int, err error) error {
	var e *apperr.Error
	if errors.As(err, &e) && e.Kind == apperr.Validation {
		return apperr.Invalid(fmt.Sprintf("items[%d].%s", i, e.Field), "%s", e.Msg)
	}
	return err
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
