package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumberFormatting(t *testing.T) {
	inv := Invoice{Number: 42, OrderID: "O1"}
	assert.Equal(t, "INV-000042", inv.DisplayNumber())
	assert.Equal(t, "invoice-O1.pdf", inv.FileName())
}

func TestMatches(t *testing.T) {
	inv := Invoice{Number: 7, OrderID: "ord-77", CustomerName: "Asha Rao"}
	assert.True(t, inv.Matches(""))
	assert.True(t, inv.Matches("inv-000007"))
	assert.True(t, inv.Matches("ORD-7"))
	assert.True(t, inv.Matches("asha"))
	assert.False(t, inv.Matches("meena"))
}
