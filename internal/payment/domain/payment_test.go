package domain

import (
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

func TestUPILinkFormat(t *testing.T) {
	at := time.UnixMilli(1760432400123)
	link, err := UPILink(Payee{ID: "shop@okaxis", Name: "Annapurna Foods & Co", Currency: "INR"},
		decimal.RequireFromString("420"), Reference(at))
	require.NoError(t, err)

	assert.Equal(t,
		"upi://pay?pa=shop@okaxis&pn=Annapurna%20Foods%20%26%20Co&am=420.00&cu=INR&tn=BulkOrders_1760432400123",
		link)
}

func TestUPILinkEscapesPayeeID(t *testing.T) {
	link, err := UPILink(Payee{ID: "shop&am=1#x@upi", Name: "Shop", Currency: "INR"}, decimal.NewFromInt(5), "BulkOrders_1")
	require.NoError(t, err)
	assert.Equal(t, "upi://pay?pa=shop%26am%3D1%23x@upi&pn=Shop&am=5.00&cu=INR&tn=BulkOrders_1", link)

	u, err := url.Parse(link)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "shop&am=1#x@upi", q.Get("pa"))
	assert.Equal(t, []string{"5.00"}, q["am"])
}

func TestUPILinkRequiresPayee(t *testing.T) {
	_, err := UPILink(Payee{Currency: "INR"}, decimal.NewFromInt(1), "r")
	assert.Equal(t, "payeeId", apperr.FieldOf(err))
}

func TestReferenceIsPerInstant(t *testing.T) {
	a := Reference(time.UnixMilli(1))
	b := Reference(time.UnixMilli(2))
	assert.NotEqual(t, a, b)
}

func TestValidateOrderIDs(t *testing.T) {
	assert.ErrorIs(t, ValidateOrderIDs(nil), apperr.Validation)
	assert.ErrorIs(t, ValidateOrderIDs([]string{"O1", "O1"}), apperr.Validation)
	assert.ErrorIs(t, ValidateOrderIDs([]string{""}), apperr.Validation)
	assert.NoError(t, ValidateOrderIDs([]string{"O1", "O2"}))
}
