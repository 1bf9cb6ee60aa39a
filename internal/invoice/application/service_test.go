package application_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "github.com/dmehra2102/order-fulfillment/internal/catalog/domain"
	catalogmem "github.com/dmehra2102/order-fulfillment/internal/catalog/infrastructure/memory"
	"github.com/dmehra2102/order-fulfillment/internal/invoice/application"
	"github.com/dmehra2102/order-fulfillment/internal/invoice/domain"
	"github.com/dmehra2102/order-fulfillment/internal/invoice/infrastructure/memory"
	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	ordermemory "github.com/dmehra2102/order-fulfillment/internal/order/infrastructure/memory"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
	"github.com/dmehra2102/order-fulfillment/pkg/outbox"
)

type stubRenderer struct{ docs []application.Document }

func (r *stubRenderer) Render(doc application.Document) ([]byte, error) {
	r.docs = append(r.docs, doc)
	return []byte("%PDF-" + doc.Invoice.DisplayNumber()), nil
}

type recordingNotifier struct{ sent []application.Message }

func (n *recordingNotifier) Send(ctx context.Context, m application.Message) error {
	n.sent = append(n.sent, m)
	return nil
}

type fixture struct {
	svc      *application.Service
	orders   *ordermemory.Store
	outbox   *outbox.MemoryStore
	renderer *stubRenderer
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ob := outbox.NewMemoryStore()
	orders := ordermemory.NewStore(ob)
	cat := catalogmem.NewReader(catalogmem.Seed{Customers: []catalog.Customer{
		{ID: "c1", Name: "Asha Rao", Email: "asha@example.com"},
		{ID: "c2", Name: "Dev", Phone: "+91 98000 00000"},
		{ID: "c3", Name: "Nobody"},
	}})
	f := &fixture{orders: orders, outbox: ob, renderer: &stubRenderer{}, notifier: &recordingNotifier{}}
	f.svc = application.NewService(slog.New(slog.NewTextHandler(io.Discard, nil)),
		memory.NewStore(orders, ob), orders, cat, f.renderer, f.notifier, "INR")
	return f
}

func (f *fixture) seed(t *testing.T, id, customerID string) {
	t.Helper()
	line, err := orderdomain.NewLineItem("p1", "Thali", decimal.NewFromInt(100), 3, decimal.NewFromInt(10))
	require.NoError(t, err)
	o, err := orderdomain.NewOrder(id, customerID, []orderdomain.LineItem{line}, "", time.Now())
	require.NoError(t, err)
	require.NoError(t, f.orders.Create(context.Background(), o))
}

func TestCreateInvoiceOnceScenarioE(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "O1", "c1")

	first, err := f.svc.CreateInvoice(ctx, "O1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Number)
	assert.Equal(t, "270.00", first.Amount.StringFixed(2))

	_, err = f.svc.CreateInvoice(ctx, "O1")
	require.ErrorIs(t, err, apperr.Conflict)

	o, err := f.orders.Get(ctx, "O1")
	require.NoError(t, err)
	assert.True(t, o.InvoiceCreated)
	assert.Equal(t, orderdomain.InvoiceActionDownload, o.InvoiceAction())

	got, err := f.svc.GetInvoiceByOrder(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.Number, got.Number)

	all, err := f.svc.ListInvoices(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestInvoiceNumbersIncrease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "O1", "c1")
	f.seed(t, "O2", "c2")

	a, err := f.svc.CreateInvoice(ctx, "O1")
	require.NoError(t, err)
	b, err := f.svc.CreateInvoice(ctx, "O2")
	require.NoError(t, err)
	assert.Greater(t, b.Number, a.Number)

	found, err := f.svc.ListInvoices(ctx, "dev")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "O2", found[0].OrderID)
}

func TestCreateInvoiceErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "O1", "c1")

	_, err := f.svc.CreateInvoice(ctx, "")
	assert.ErrorIs(t, err, apperr.Validation)

	_, err = f.svc.CreateInvoice(ctx, "O404")
	assert.ErrorIs(t, err, apperr.NotFound)

	_, err = f.orders.Update(ctx, "O1", func(o *orderdomain.Order) error {
		o.SetStatus(orderdomain.StatusCancelled, time.Now())
		return nil
	})
	require.NoError(t, err)
	_, err = f.svc.CreateInvoice(ctx, "O1")
	assert.ErrorIs(t, err, apperr.Conflict)

	o, err := f.orders.Get(ctx, "O1")
	require.NoError(t, err)
	assert.False(t, o.InvoiceCreated)
}

func TestArtifactRequiresLatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "O1", "c1")

	_, _, err := f.svc.InvoiceArtifact(ctx, "O1")
	require.ErrorIs(t, err, apperr.NotFound)

	inv, err := f.svc.CreateInvoice(ctx, "O1")
	require.NoError(t, err)

	got, pdf, err := f.svc.InvoiceArtifact(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
	assert.Equal(t, "%PDF-INV-000001", string(pdf))
	require.Len(t, f.renderer.docs, 1)
	assert.Equal(t, "Asha Rao", f.renderer.docs[0].Customer.Name)
	assert.Equal(t, "INR", f.renderer.docs[0].Currency)
}

func TestSendInvoiceQueuesAndDelivers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "O1", "c1")
	inv, err := f.svc.CreateInvoice(ctx, "O1")
	require.NoError(t, err)

	sent, err := f.svc.SendInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, sent.SentAt)
	assert.Equal(t, inv.Number, sent.Number)
	assert.Contains(t, f.outbox.Types(), "InvoiceSendRequested")

	err = f.svc.Deliver(ctx, domain.InvoiceSendRequested{InvoiceID: inv.ID, OrderID: "O1", Channel: application.ChannelEmail, Address: "asha@example.com"})
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "invoice-O1.pdf", f.notifier.sent[0].FileName)
	assert.Equal(t, "Invoice INV-000001", f.notifier.sent[0].Subject)

	_, err = f.svc.CreateInvoice(ctx, "O1")
	assert.ErrorIs(t, err, apperr.Conflict, "sending never reopens the latch")
}

func TestSendInvoiceChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "O2", "c2")
	f.seed(t, "O3", "c3")

	inv, err := f.svc.CreateInvoice(ctx, "O2")
	require.NoError(t, err)
	_, err = f.svc.SendInvoice(ctx, inv.ID)
	require.NoError(t, err)

	var ev domain.InvoiceSendRequested
	for _, e := range f.outbox.Events() {
		if e.Type == "InvoiceSendRequested" {
			require.NoError(t, json.Unmarshal(e.Payload, &ev))
		}
	}
	assert.Equal(t, application.ChannelSMS, ev.Channel)

	inv3, err := f.svc.CreateInvoice(ctx, "O3")
	require.NoError(t, err)
	_, err = f.svc.SendInvoice(ctx, inv3.ID)
	assert.Equal(t, "contact", apperr.FieldOf(err))

	_, err = f.svc.SendInvoice(ctx, "missing")
	assert.ErrorIs(t, err, apperr.NotFound)
}
