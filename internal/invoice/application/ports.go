package application

import (
	"context"
	"time"

	catalog "github.com/dmehra2102/order-fulfillment/internal/catalog/domain"
	"github.com/dmehra2102/order-fulfillment/internal/invoice/domain"
	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
)

type IssueRequest struct {
	InvoiceID string
	OrderID   string
	At        time.Time
}

// Repository stores invoices. Issue closes the order's invoice latch, allocates the next
// number and stores the invoice in one commit; a closed latch is apperr.Conflict.
type Repository interface {
	Issue(ctx context.Context, req IssueRequest) (domain.Invoice, error)
	Get(ctx context.Context, id string) (domain.Invoice, error)
	ByOrder(ctx context.Context, orderID string) (domain.Invoice, error)
	List(ctx context.Context, q string) ([]domain.Invoice, error)
	RequestSend(ctx context.Context, id string, at time.Time, ev domain.InvoiceSendRequested) (domain.Invoice, error)
}

type Orders interface {
	Get(ctx context.Context, id string) (*orderdomain.Order, error)
}

type Customers interface {
	Customer(ctx context.Context, id string) (catalog.Customer, error)
}

// Document is everything a renderer needs to lay out one invoice.
type Document struct {
	Invoice  domain.Invoice
	Order    *orderdomain.Order
	Customer catalog.Customer
	Currency string
}

type Renderer interface {
	Render(doc Document) ([]byte, error)
}

type Message struct {
	Channel    string
	Address    string
	Subject    string
	FileName   string
	Attachment []byte
}

type Notifier interface {
	Send(ctx context.Context, m Message) error
}
