package domain

import (
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

var hundred = decimal.NewFromInt(100)

// PriceLine returns unitPrice × quantity × (1 − discountPct/100), rounded to 2 places.
func PriceLine(unitPrice decimal.Decimal, quantity int, discountPct decimal.Decimal) (decimal.Decimal, error) {
	if !unitPrice.IsPositive() {
		return decimal.Zero, apperr.Invalid("unitPrice", "must be positive, got %s", unitPrice)
	}
	if quantity <= 0 {
		return decimal.Zero, apperr.Invalid("quantity", "must be a positive integer, got %d", quantity)
	}
	if discountPct.IsNegative() || discountPct.GreaterThan(hundred) {
		return decimal.Zero, apperr.Invalid("discountPct", "must be within [0,100], got %s", discountPct)
	}
	gross := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	factor := hundred.Sub(discountPct).Div(hundred)
	return gross.Mul(factor).Round(2), nil
}

type LineItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"qty"`
	DiscountPct decimal.Decimal `json:"offer"`
	Amount      decimal.Decimal `json:"amount"`
}

// NewLineItem prices a line with the unit price captured now; the amount never follows later price changes.
func NewLineItem(productID, productName string, unitPrice decimal.Decimal, quantity int, discountPct decimal.Decimal) (LineItem, error) {
	if productID == "" {
		return LineItem{}, apperr.Invalid("productId", "is required")
	}
	amount, err := PriceLine(unitPrice, quantity, discountPct)
	if err != nil {
		return LineItem{}, err
	}
	return LineItem{
		ProductID:   productID,
		ProductName: productName,
		UnitPrice:   unitPrice,
		Quantity:    quantity,
		DiscountPct: discountPct,
		Amount:      amount,
	}, nil
}

func SumLines(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}
