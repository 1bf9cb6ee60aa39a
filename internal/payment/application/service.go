package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

type Service struct {
	log    *slog.Logger
	orders Orders
	payee  domain.Payee
	now    func() time.Time
}

func NewService(log *slog.Logger, orders Orders, payee domain.Payee, now func() time.Time) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{log: log, orders: orders, payee: payee, now: now}
}

// QuoteTotal sums the totals of unpaid orders. Any missing or paid order fails the quote.
func (s *Service) QuoteTotal(ctx context.Context, ids []string) (decimal.Decimal, error) {
	if err := domain.ValidateOrderIDs(ids); err != nil {
		return decimal.Zero, err
	}
	orders, err := s.orders.GetMany(ctx, ids)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, o := range orders {
		if o.DeliveryStatus == orderdomain.DeliveryPaid {
			return decimal.Zero, apperr.Missing("order %s is already paid", o.ID)
		}
		total = total.Add(o.TotalAmount)
	}
	return total, nil
}

// BuildUPIRequest quotes the batch and returns a deep link for it. Empty payee fields
// fall back to the configured payee.
func (s *Service) BuildUPIRequest(ctx context.Context, ids []string, payeeID, payeeName string) (domain.BulkPaymentRequest, error) {
	total, err := s.QuoteTotal(ctx, ids)
	if err != nil {
		return domain.BulkPaymentRequest{}, err
	}
	payee := s.payee
	if payeeID != "" {
		payee.ID = payeeID
	}
	if payeeName != "" {
		payee.Name = payeeName
	}

	ref := domain.Reference(s.now())
	link, err := domain.UPILink(payee, total, ref)
	if err != nil {
		return domain.BulkPaymentRequest{}, err
	}
	s.log.InfoContext(ctx, "upi request built", "orders", len(ids), "total", total.StringFixed(2), "reference", ref)
	return domain.BulkPaymentRequest{
		OrderIDs:  ids,
		Total:     total,
		Method:    orderdomain.PaymentUPI,
		Reference: ref,
		DeepLink:  link,
	}, nil
}

// Settle marks every listed order Paid with method, or none of them. Only Assigned and
// OutForDelivery orders can be settled.
func (s *Service) Settle(ctx context.Context, ids []string, method orderdomain.PaymentMethod) (domain.BulkPaymentRequest, []orderdomain.Order, error) {
	if err := domain.ValidateOrderIDs(ids); err != nil {
		return domain.BulkPaymentRequest{}, nil, err
	}
	now := s.now()
	ref := domain.Reference(now)

	var total decimal.Decimal
	settled, err := s.orders.UpdateMany(ctx, ids, func(orders []*orderdomain.Order) error {
		total = decimal.Zero
		for _, o := range orders {
			if err := o.Settle(method, ref, now); err != nil {
				return err
			}
			total = total.Add(o.TotalAmount)
		}
		return nil
	})
	if err != nil {
		s.log.WarnContext(ctx, "bulk settlement rejected", "orders", ids, "method", method, "err", err)
		return domain.BulkPaymentRequest{}, nil, err
	}

	out := make([]orderdomain.Order, len(settled))
	for i, o := range settled {
		out[i] = *o
	}
	orderdomain.SortByDeliveryRank(out)

	s.log.InfoContext(ctx, "orders settled", "orders", len(ids), "method", method, "total", total.StringFixed(2), "reference", ref)
	return domain.BulkPaymentRequest{OrderIDs: ids, Total: total, Method: method, Reference: ref}, out, nil
}

func (s *Service) ConfirmCash(ctx context.Context, ids []string) (domain.BulkPaymentRequest, []orderdomain.Order, error) {
	return s.Settle(ctx, ids, orderdomain.PaymentCash)
}

func (s *Service) ConfirmUPI(ctx context.Context, ids []string) (domain.BulkPaymentRequest, []orderdomain.Order, error) {
	return s.Settle(ctx, ids, orderdomain.PaymentUPI)
}
