package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/order-fulfillment/internal/invoice/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
	"github.com/dmehra2102/order-fulfillment/pkg/idempotency"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	commitErr error
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		return kafka.Message{}, context.Canceled
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if r.commitErr != nil {
		return r.commitErr
	}
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeDeliverer struct {
	got []string
	// err is returned by every call once failures transport errors are used up.
	err       error
	failures  int
	onDeliver func(calls int)
}

func (d *fakeDeliverer) Deliver(ctx context.Context, ev domain.InvoiceSendRequested) error {
	d.got = append(d.got, ev.InvoiceID)
	if d.onDeliver != nil {
		d.onDeliver(len(d.got))
	}
	if d.failures > 0 {
		d.failures--
		return apperr.TransportFailure(errors.New("gateway down"), "notify")
	}
	return d.err
}

func sendMsg(t *testing.T, offset int64, eventType, invoiceID string) kafka.Message {
	t.Helper()
	b, err := json.Marshal(domain.InvoiceSendRequested{InvoiceID: invoiceID, OrderID: "O1", Channel: "email", Address: "a@example.com"})
	require.NoError(t, err)
	return kafka.Message{
		Topic:   "invoice.events",
		Offset:  offset,
		Value:   b,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(eventType)}},
	}
}

func newConsumer(t *testing.T, r *fakeReader, d *fakeDeliverer) *Consumer {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	c := NewConsumer(slog.New(slog.NewTextHandler(io.Discard, nil)), r, d, idempotency.NewStore(rdb, time.Minute))
	c.backOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func TestRunDeliversSendRequestsOnce(t *testing.T) {
	dup := sendMsg(t, 1, "InvoiceSendRequested", "i1")
	r := &fakeReader{msgs: []kafka.Message{
		sendMsg(t, 0, "InvoiceIssued", "i0"),
		dup,
		dup,
	}}
	d := &fakeDeliverer{}

	require.NoError(t, newConsumer(t, r, d).Run(context.Background()))

	assert.Equal(t, []string{"i1"}, d.got)
	assert.Equal(t, []int64{0, 1, 1}, r.committed)
}

func TestRunRetriesTransportFailureBeforeNextMessage(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		sendMsg(t, 7, "InvoiceSendRequested", "i7"),
		sendMsg(t, 8, "InvoiceSendRequested", "i8"),
	}}
	d := &fakeDeliverer{failures: 2}

	require.NoError(t, newConsumer(t, r, d).Run(context.Background()))

	assert.Equal(t, []string{"i7", "i7", "i7", "i8"}, d.got)
	assert.Equal(t, []int64{7, 8}, r.committed)
}

func TestRunLeavesFailingMessageUncommittedOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	failing := sendMsg(t, 7, "InvoiceSendRequested", "i7")
	r := &fakeReader{msgs: []kafka.Message{failing, sendMsg(t, 8, "InvoiceSendRequested", "i8")}}
	d := &fakeDeliverer{
		err: apperr.TransportFailure(errors.New("gateway down"), "notify"),
		onDeliver: func(calls int) {
			if calls == 2 {
				cancel()
			}
		},
	}
	c := newConsumer(t, r, d)

	require.NoError(t, c.Run(ctx))

	assert.Equal(t, []string{"i7", "i7"}, d.got)
	assert.Empty(t, r.committed)

	seen, err := c.idem.Seen(context.Background(), c.idem.Key(failing.Topic, failing.Partition, failing.Offset))
	require.NoError(t, err)
	assert.False(t, seen, "dedupe key must be released so a restart redelivers")
}

func TestPermanentFailureIsCommitted(t *testing.T) {
	r := &fakeReader{}
	d := &fakeDeliverer{err: apperr.Missing("invoice i1 not found")}

	err := newConsumer(t, r, d).Handle(context.Background(), sendMsg(t, 3, "InvoiceSendRequested", "i1"))

	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, d.got)
	assert.Equal(t, []int64{3}, r.committed)
}

func TestCommitFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	r := &fakeReader{
		msgs:      []kafka.Message{sendMsg(t, 4, "InvoiceIssued", "i4")},
		commitErr: errors.New("coordinator not available"),
	}
	c := newConsumer(t, r, &fakeDeliverer{})
	c.log = slog.New(slog.NewTextHandler(&buf, nil))

	require.NoError(t, c.Run(context.Background()))

	assert.Contains(t, buf.String(), "commit failed")
	assert.Contains(t, buf.String(), "coordinator not available")
	assert.Contains(t, buf.String(), "offset=4")
}
