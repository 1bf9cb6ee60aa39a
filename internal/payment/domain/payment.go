package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

// BulkPaymentRequest groups the orders of one settlement. It is never persisted.
type BulkPaymentRequest struct {
	OrderIDs  []string                  `json:"orderIds"`
	Total     decimal.Decimal           `json:"total"`
	Method    orderdomain.PaymentMethod `json:"paymentMethod"`
	Reference string                    `json:"reference"`
	DeepLink  string                    `json:"deepLink,omitempty"`
}

type Payee struct {
	ID       string
	Name     string
	Currency string
}

// ValidateOrderIDs rejects an empty batch and repeated ids.
func ValidateOrderIDs(ids []string) error {
	if len(ids) == 0 {
		return apperr.Invalid("orderIds", "at least one order id is required")
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return apperr.Invalid("orderIds", "order ids must not be empty")
		}
		if _, dup := seen[id]; dup {
			return apperr.Invalid("orderIds", "order %s is listed twice", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Reference derives a per-request transaction note from the request instant.
func Reference(at time.Time) string {
	return fmt.Sprintf("BulkOrders_%d", at.UnixMilli())
}

var upiEscaper = strings.NewReplacer("+", "%20", "%40", "@")

// upiParam query-escapes v with %20 for spaces, which wallet apps expect, and keeps the
// @ of a VPA literal.
func upiParam(v string) string {
	return upiEscaper.Replace(url.QueryEscape(v))
}

// UPILink builds upi://pay with pa, pn, am, cu, tn in that order.
func UPILink(payee Payee, amount decimal.Decimal, reference string) (string, error) {
	if payee.ID == "" {
		return "", apperr.Invalid("payeeId", "is required")
	}
	if payee.Currency == "" {
		return "", apperr.Invalid("currency", "is required")
	}
	return fmt.Sprintf("upi://pay?pa=%s&pn=%s&am=%s&cu=%s&tn=%s",
		upiParam(payee.ID), upiParam(payee.Name), amount.StringFixed(2), payee.Currency, url.QueryEscape(reference)), nil
}
