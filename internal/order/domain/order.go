package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusCompleted OrderStatus = "Completed"
	StatusCancelled OrderStatus = "Cancelled"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range []OrderStatus{StatusPending, StatusCompleted, StatusCancelled} {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", apperr.Invalid("status", "unknown order status %q", s)
}

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "Cash"
	PaymentUPI  PaymentMethod = "UPI"
	PaymentCard PaymentMethod = "Card"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	for _, m := range []PaymentMethod{PaymentCash, PaymentUPI, PaymentCard} {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", apperr.Invalid("paymentMethod", "unknown payment method %q", s)
}

type Order struct {
	ID             string          `json:"id"`
	CustomerID     string          `json:"customerId"`
	CustomerName   string          `json:"customerName,omitempty"`
	Items          []LineItem      `json:"items"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	Status         OrderStatus     `json:"status"`
	DeliveryStatus DeliveryStatus  `json:"deliveryStatus"`
	DeliveryUserID string          `json:"deliveryUserId,omitempty"`
	InvoiceCreated bool            `json:"invoiceCreated"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`

	events []Event
}

func NewOrder(id, customerID string, items []LineItem, method PaymentMethod, now time.Time) (*Order, error) {
	if customerID == "" {
		return nil, apperr.Invalid("customerId", "is required")
	}
	if len(items) == 0 {
		return nil, apperr.Invalid("items", "an order needs at least one line item")
	}
	if method == "" {
		method = PaymentCash
	}
	o := &Order{
		ID:             id,
		CustomerID:     customerID,
		Items:          items,
		PaymentMethod:  method,
		Status:         StatusPending,
		DeliveryStatus: DeliveryUnassigned,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	o.Recalculate()
	o.record(OrderCreated{OrderID: id, CustomerID: customerID, TotalAmount: o.TotalAmount, Lines: len(items)})
	return o, nil
}

func (o *Order) Recalculate() {
	o.TotalAmount = SumLines(o.Items)
}

// ReplaceLines swaps the line items of an unsettled order and recomputes the total.
func (o *Order) ReplaceLines(items []LineItem, now time.Time) error {
	if o.DeliveryStatus == DeliveryPaid {
		return apperr.Conflicting("order %s is paid; its lines are frozen", o.ID)
	}
	if o.InvoiceCreated {
		return apperr.Conflicting("order %s is invoiced; its lines are frozen", o.ID)
	}
	if len(items) == 0 {
		return apperr.Invalid("items", "an order needs at least one line item")
	}
	o.Items = items
	o.Recalculate()
	o.touch(now)
	o.record(OrderLinesChanged{OrderID: o.ID, TotalAmount: o.TotalAmount, Lines: len(items)})
	return nil
}

func (o *Order) SetPaymentMethod(m PaymentMethod, now time.Time) {
	o.PaymentMethod = m
	o.touch(now)
}

// SetStatus writes the order status; any of Pending, Completed, Cancelled may follow any other.
func (o *Order) SetStatus(s OrderStatus, now time.Time) {
	if o.Status == s {
		return
	}
	from := o.Status
	o.Status = s
	o.touch(now)
	o.record(OrderStatusChanged{OrderID: o.ID, From: from, To: s})
}

func (o *Order) Assign(agentID string, now time.Time) error {
	if agentID == "" {
		return apperr.Invalid("deliveryUserId", "is required")
	}
	if o.DeliveryStatus != DeliveryUnassigned {
		return apperr.Conflicting("order %s is already %s", o.ID, o.DeliveryStatus)
	}
	o.DeliveryUserID = agentID
	o.DeliveryStatus = DeliveryAssigned
	o.touch(now)
	o.record(OrderAssigned{OrderID: o.ID, DeliveryUserID: agentID})
	return nil
}

func (o *Order) MarkOutForDelivery(now time.Time) error {
	if !o.DeliveryStatus.CanTransition(DeliveryOutForDelivery) {
		return apperr.Conflicting("order %s cannot go out for delivery from %s", o.ID, o.DeliveryStatus)
	}
	o.DeliveryStatus = DeliveryOutForDelivery
	o.touch(now)
	o.record(OrderOutForDelivery{OrderID: o.ID, DeliveryUserID: o.DeliveryUserID})
	return nil
}

// Settle moves an assigned or in-delivery order to Paid.
func (o *Order) Settle(method PaymentMethod, reference string, now time.Time) error {
	if !o.DeliveryStatus.Settleable() {
		return apperr.Missing("order %s is not awaiting payment (delivery status %s)", o.ID, o.DeliveryStatus)
	}
	o.DeliveryStatus = DeliveryPaid
	o.PaymentMethod = method
	o.touch(now)
	o.record(OrderPaid{OrderID: o.ID, PaymentMethod: method, Amount: o.TotalAmount, Reference: reference})
	return nil
}

// MarkInvoiced closes the invoice latch; it can only close once.
func (o *Order) MarkInvoiced(now time.Time) error {
	if o.InvoiceCreated {
		return apperr.Conflicting("invoice already created for order %s", o.ID)
	}
	if o.Status == StatusCancelled {
		return apperr.Conflicting("order %s is cancelled", o.ID)
	}
	o.InvoiceCreated = true
	o.touch(now)
	return nil
}

func (o *Order) CheckDeletable() error {
	if o.DeliveryStatus == DeliveryPaid {
		return apperr.Conflicting("order %s is paid and cannot be deleted", o.ID)
	}
	if o.InvoiceCreated {
		return apperr.Conflicting("order %s has an issued invoice and cannot be deleted", o.ID)
	}
	return nil
}

// Remove records the deletion; the store drops the row after it succeeds.
func (o *Order) Remove() error {
	if err := o.CheckDeletable(); err != nil {
		return err
	}
	o.record(OrderDeleted{OrderID: o.ID})
	return nil
}

// CheckInvariants verifies the cached total and the agent/status pairing.
func (o *Order) CheckInvariants() error {
	if !o.TotalAmount.Equal(SumLines(o.Items)) {
		return apperr.Invalid("totalAmount", "cached total %s does not match lines %s", o.TotalAmount, SumLines(o.Items))
	}
	if (o.DeliveryUserID != "") != (o.DeliveryStatus != DeliveryUnassigned) {
		return apperr.Invalid("deliveryUserId", "agent %q inconsistent with delivery status %s", o.DeliveryUserID, o.DeliveryStatus)
	}
	return nil
}

func (o *Order) Events() []Event { return o.events }

// PullEvents returns the recorded events and clears them.
func (o *Order) PullEvents() []Event {
	ev := o.events
	o.events = nil
	return ev
}

// Clone returns a deep copy without pending events.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]LineItem(nil), o.Items...)
	c.events = nil
	return &c
}

func (o *Order) touch(now time.Time) { o.UpdatedAt = now }

func (o *Order) record(e Event) { o.events = append(o.events, e) }

type InvoiceAction string

const (
	InvoiceActionCreate   InvoiceAction = "create"
	InvoiceActionDownload InvoiceAction = "download"
)

// InvoiceAction tells a caller which invoice operation applies, decided by the latch alone.
func (o *Order) InvoiceAction() InvoiceAction {
	if o.InvoiceCreated {
		return InvoiceActionDownload
	}
	return InvoiceActionCreate
}
