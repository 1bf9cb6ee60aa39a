package domain

import "github.com/shopspring/decimal"

type Event interface {
	Type() string
}

type OrderCreated struct {
	OrderID     string
	CustomerID  string
	TotalAmount decimal.Decimal
	Lines       int
}

func (OrderCreated) Type() string { return "OrderCreated" }

type OrderLinesChanged struct {
	OrderID     string
	TotalAmount decimal.Decimal
	Lines       int
}

func (OrderLinesChanged) Type() string { return "OrderLinesChanged" }

type OrderStatusChanged struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
}

func (OrderStatusChanged) Type() string { return "OrderStatusChanged" }

type OrderAssigned struct {
	OrderID        string
	DeliveryUserID string
}

func (OrderAssigned) Type() string { return "OrderAssigned" }

type OrderOutForDelivery struct {
	OrderID        string
	DeliveryUserID string
}

func (OrderOutForDelivery) Type() string { return "OrderOutForDelivery" }

type OrderPaid struct {
	OrderID       string
	PaymentMethod PaymentMethod
	Amount        decimal.Decimal
	Reference     string
}

func (OrderPaid) Type() string { return "OrderPaid" }

type OrderDeleted struct {
	OrderID string
}

func (OrderDeleted) Type() string { return "OrderDeleted" }
