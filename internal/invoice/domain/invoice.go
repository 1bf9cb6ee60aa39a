package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Invoice struct {
	ID           string          `json:"id"`
	Number       int64           `json:"number"`
	OrderID      string          `json:"orderId"`
	CustomerID   string          `json:"customerId"`
	CustomerName string          `json:"customerName"`
	Amount       decimal.Decimal `json:"amount"`
	CreatedAt    time.Time       `json:"createdAt"`
	SentAt       *time.Time      `json:"sentAt,omitempty"`
}

func FormatNumber(n int64) string { return fmt.Sprintf("INV-%06d", n) }

func (i Invoice) DisplayNumber() string { return FormatNumber(i.Number) }

func (i Invoice) FileName() string { return "invoice-" + i.OrderID + ".pdf" }

// Matches reports whether q occurs, ignoring case, in the invoice number, order id or customer name.
func (i Invoice) Matches(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, s := range []string{i.DisplayNumber(), fmt.Sprint(i.Number), i.OrderID, i.CustomerName} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

type InvoiceIssued struct {
	InvoiceID string
	Number    int64
	OrderID   string
	Amount    decimal.Decimal
}

func (InvoiceIssued) Type() string { return "InvoiceIssued" }

// InvoiceSendRequested asks the delivery worker to forward the artifact to Address.
type InvoiceSendRequested struct {
	InvoiceID string
	OrderID   string
	Channel   string
	Address   string
}

func (InvoiceSendRequested) Type() string { return "InvoiceSendRequested" }
