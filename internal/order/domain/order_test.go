package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

var now = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func line(t *testing.T, id, price string, qty int, discount string) LineItem {
	t.Helper()
	li, err := NewLineItem(id, id, dec(price), qty, dec(discount))
	require.NoError(t, err)
	return li
}

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder("o1", "c1", []LineItem{line(t, "p1", "100", 3, "10"), line(t, "p2", "50", 3, "0")}, "", now)
	require.NoError(t, err)
	return o
}

func TestNewOrderDefaults(t *testing.T) {
	o := newTestOrder(t)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, DeliveryUnassigned, o.DeliveryStatus)
	assert.Equal(t, PaymentCash, o.PaymentMethod)
	assert.False(t, o.InvoiceCreated)
	assert.Equal(t, "420.00", o.TotalAmount.StringFixed(2))
	require.NoError(t, o.CheckInvariants())

	require.Len(t, o.Events(), 1)
	_, ok := o.Events()[0].(OrderCreated)
	assert.True(t, ok)
}

func TestNewOrderRejectsEmptyLines(t *testing.T) {
	_, err := NewOrder("o1", "c1", nil, PaymentCash, now)
	require.ErrorIs(t, err, apperr.Validation)
	assert.Equal(t, "items", apperr.FieldOf(err))
}

func TestTotalFollowsLineChanges(t *testing.T) {
	o := newTestOrder(t)

	require.NoError(t, o.ReplaceLines([]LineItem{line(t, "p1", "100", 1, "0")}, now))
	assert.Equal(t, "100.00", o.TotalAmount.StringFixed(2))
	require.NoError(t, o.CheckInvariants())

	lines := append(o.Items, line(t, "p3", "25.50", 2, "50"))
	require.NoError(t, o.ReplaceLines(lines, now))
	assert.Equal(t, "125.50", o.TotalAmount.StringFixed(2))
	require.NoError(t, o.CheckInvariants())

	assert.ErrorIs(t, o.ReplaceLines(nil, now), apperr.Validation)
}

func TestOrderStatusIsFreeForm(t *testing.T) {
	o := newTestOrder(t)
	o.PullEvents()

	for _, s := range []OrderStatus{StatusCancelled, StatusCompleted, StatusPending, StatusCancelled} {
		o.SetStatus(s, now)
		assert.Equal(t, s, o.Status)
	}
	assert.Len(t, o.PullEvents(), 4)

	o.SetStatus(StatusCancelled, now)
	assert.Empty(t, o.Events())
}

func TestDeliveryMovesForwardOnly(t *testing.T) {
	o := newTestOrder(t)

	err := o.Settle(PaymentCash, "ref", now)
	require.ErrorIs(t, err, apperr.NotFound, "Unassigned must not skip into Paid")

	assert.ErrorIs(t, o.MarkOutForDelivery(now), apperr.Conflict)

	require.NoError(t, o.Assign("a1", now))
	assert.Equal(t, DeliveryAssigned, o.DeliveryStatus)
	assert.Equal(t, "a1", o.DeliveryUserID)
	require.NoError(t, o.CheckInvariants())

	assert.ErrorIs(t, o.Assign("a2", now), apperr.Conflict)
	assert.Equal(t, "a1", o.DeliveryUserID)

	require.NoError(t, o.MarkOutForDelivery(now))
	assert.ErrorIs(t, o.MarkOutForDelivery(now), apperr.Conflict)

	require.NoError(t, o.Settle(PaymentUPI, "ref", now))
	assert.Equal(t, DeliveryPaid, o.DeliveryStatus)
	assert.Equal(t, PaymentUPI, o.PaymentMethod)

	assert.ErrorIs(t, o.Settle(PaymentCash, "ref", now), apperr.NotFound)
	assert.ErrorIs(t, o.Assign("a2", now), apperr.Conflict)
	assert.ErrorIs(t, o.MarkOutForDelivery(now), apperr.Conflict)
	assert.ErrorIs(t, o.CheckDeletable(), apperr.Conflict)
	assert.ErrorIs(t, o.ReplaceLines([]LineItem{line(t, "p1", "1", 1, "0")}, now), apperr.Conflict)
}

func TestAssignRequiresAgent(t *testing.T) {
	o := newTestOrder(t)
	err := o.Assign("", now)
	assert.Equal(t, "deliveryUserId", apperr.FieldOf(err))
	assert.Equal(t, DeliveryUnassigned, o.DeliveryStatus)
}

func TestTransitionTable(t *testing.T) {
	all := []DeliveryStatus{DeliveryUnassigned, DeliveryAssigned, DeliveryOutForDelivery, DeliveryPaid}
	for _, from := range all {
		for _, to := range all {
			if from.CanTransition(to) {
				assert.Greater(t, to.Rank(), from.Rank(), "%s -> %s goes backward", from, to)
			}
		}
	}
	assert.False(t, DeliveryUnassigned.CanTransition(DeliveryPaid))
	assert.False(t, DeliveryPaid.CanTransition(DeliveryAssigned))
}

func TestInvoiceLatch(t *testing.T) {
	o := newTestOrder(t)
	assert.Equal(t, InvoiceActionCreate, o.InvoiceAction())

	require.NoError(t, o.MarkInvoiced(now))
	assert.Equal(t, InvoiceActionDownload, o.InvoiceAction())
	assert.ErrorIs(t, o.MarkInvoiced(now), apperr.Conflict)
	assert.True(t, o.InvoiceCreated)
}

func TestInvoicedLinesAreFrozen(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkInvoiced(now))
	o.PullEvents()

	err := o.ReplaceLines([]LineItem{line(t, "p1", "999", 1, "0")}, now)
	assert.ErrorIs(t, err, apperr.Conflict)
	assert.Equal(t, "420.00", o.TotalAmount.StringFixed(2))
	assert.Len(t, o.Items, 2)
	assert.Empty(t, o.Events())
}

func TestRemove(t *testing.T) {
	o := newTestOrder(t)
	o.PullEvents()
	require.NoError(t, o.Remove())
	require.Len(t, o.Events(), 1)
	assert.Equal(t, "OrderDeleted", o.Events()[0].Type())

	invoiced := newTestOrder(t)
	require.NoError(t, invoiced.MarkInvoiced(now))
	assert.ErrorIs(t, invoiced.Remove(), apperr.Conflict)
}

func TestInvoiceLatchRejectsCancelled(t *testing.T) {
	o := newTestOrder(t)
	o.SetStatus(StatusCancelled, now)
	assert.ErrorIs(t, o.MarkInvoiced(now), apperr.Conflict)
	assert.False(t, o.InvoiceCreated)
}

func TestSortByDeliveryRankIsStable(t *testing.T) {
	orders := []Order{
		{ID: "paid-1", DeliveryStatus: DeliveryPaid},
		{ID: "ofd-1", DeliveryStatus: DeliveryOutForDelivery},
		{ID: "asg-1", DeliveryStatus: DeliveryAssigned},
		{ID: "paid-2", DeliveryStatus: DeliveryPaid},
		{ID: "asg-2", DeliveryStatus: DeliveryAssigned},
	}
	SortByDeliveryRank(orders)

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	assert.Equal(t, []string{"asg-1", "asg-2", "ofd-1", "paid-1", "paid-2"}, ids)
}

func TestParsers(t *testing.T) {
	m, err := ParsePaymentMethod("upi")
	require.NoError(t, err)
	assert.Equal(t, PaymentUPI, m)

	_, err = ParsePaymentMethod("cheque")
	assert.Equal(t, "paymentMethod", apperr.FieldOf(err))

	s, err := ParseOrderStatus("completed")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s)

	d, err := ParseDeliveryStatus("outfordelivery")
	require.NoError(t, err)
	assert.Equal(t, DeliveryOutForDelivery, d)
}

func TestCloneIsIndependent(t *testing.T) {
	o := newTestOrder(t)
	c := o.Clone()
	c.Items[0].Amount = decimal.NewFromInt(1)
	assert.Equal(t, "270.00", o.Items[0].Amount.StringFixed(2))
	assert.Empty(t, c.Events())
}
