package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/order-fulfillment/internal/invoice/application"
	"github.com/dmehra2102/order-fulfillment/internal/invoice/domain"
	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
	"github.com/dmehra2102/order-fulfillment/pkg/outbox"
	"github.com/dmehra2102/order-fulfillment/pkg/pg"
	"github.com/dmehra2102/order-fulfillment/pkg/tracing"
)

const AggregateType = "invoice"

const invoiceColumns = `id, number, order_id, customer_id, customer_name, amount, created_at, sent_at`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// Issue locks the order row, so two concurrent issues for one order serialise and the
// second one sees the closed latch.
func (r *Repository) Issue(ctx context.Context, req application.IssueRequest) (domain.Invoice, error) {
	var inv domain.Invoice
	err := pg.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var o orderdomain.Order
		var status string
		err := tx.QueryRow(ctx, `SELECT id, customer_id, customer_name, status, invoice_created, total_amount
			FROM orders WHERE id = $1 FOR UPDATE`, req.OrderID).
			Scan(&o.ID, &o.CustomerID, &o.CustomerName, &status, &o.InvoiceCreated, &o.TotalAmount)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.Missing("order %s not found", req.OrderID)
		}
		if err != nil {
			return apperr.TransportFailure(err, "postgres: lock order %s", req.OrderID)
		}
		o.Status = orderdomain.OrderStatus(status)
		if err := o.MarkInvoiced(req.At); err != nil {
			return err
		}

		var number int64
		if err := tx.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&number); err != nil {
			return apperr.TransportFailure(err, "postgres: allocate invoice number")
		}
		inv = domain.Invoice{
			ID:           req.InvoiceID,
			Number:       number,
			OrderID:      o.ID,
			CustomerID:   o.CustomerID,
			CustomerName: o.CustomerName,
			Amount:       o.TotalAmount,
			CreatedAt:    req.At,
		}
		_, err = tx.Exec(ctx, `INSERT INTO invoices (`+invoiceColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,NULL)`,
			inv.ID, inv.Number, inv.OrderID, inv.CustomerID, inv.CustomerName, inv.Amount, inv.CreatedAt)
		if pg.IsUniqueViolation(err) {
			return apperr.Conflicting("invoice already created for order %s", o.ID)
		}
		if err != nil {
			return apperr.TransportFailure(err, "postgres: insert invoice for %s", o.ID)
		}
		if _, err := tx.Exec(ctx, `UPDATE orders SET invoice_created = true, updated_at = $2, version = version + 1 WHERE id = $1`,
			o.ID, req.At); err != nil {
			return apperr.TransportFailure(err, "postgres: close invoice latch of %s", o.ID)
		}

		ev := domain.InvoiceIssued{InvoiceID: inv.ID, Number: inv.Number, OrderID: inv.OrderID, Amount: inv.Amount}
		msgs, err := outbox.Encode(AggregateType, inv.ID, tracing.Traceparent(ctx), []domain.InvoiceIssued{ev})
		if err != nil {
			return err
		}
		return outbox.Insert(ctx, tx, msgs...)
	})
	if err != nil {
		return domain.Invoice{}, err
	}
	return inv, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Invoice, error) {
	return r.one(ctx, r.pool, `id = $1`, "invoice "+id+" not found", id)
}

func (r *Repository) ByOrder(ctx context.Context, orderID string) (domain.Invoice, error) {
	return r.one(ctx, r.pool, `order_id = $1`, "no invoice for order "+orderID, orderID)
}

// List returns matching invoices, newest number first.
func (r *Repository) List(ctx context.Context, q string) ([]domain.Invoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices
		WHERE $1 = ''
		   OR number::text ILIKE '%' || $1 || '%'
		   OR 'INV-' || lpad(number::text, 6, '0') ILIKE '%' || $1 || '%'
		   OR order_id ILIKE '%' || $1 || '%'
		   OR customer_name ILIKE '%' || $1 || '%'
		ORDER BY number DESC`, q)
	if err != nil {
		return nil, apperr.TransportFailure(err, "postgres: query invoices")
	}
	defer rows.Close()

	var out []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.TransportFailure(err, "postgres: read invoices")
	}
	return out, nil
}

func (r *Repository) RequestSend(ctx context.Context, id string, at time.Time, ev domain.InvoiceSendRequested) (domain.Invoice, error) {
	var inv domain.Invoice
	err := pg.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		inv, err = r.one(ctx, tx, `id = $1 FOR UPDATE`, "invoice "+id+" not found", id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE invoices SET sent_at = $2 WHERE id = $1`, id, at); err != nil {
			return apperr.TransportFailure(err, "postgres: mark invoice %s sent", id)
		}
		inv.SentAt = &at

		msgs, err := outbox.Encode(AggregateType, id, tracing.Traceparent(ctx), []domain.InvoiceSendRequested{ev})
		if err != nil {
			return err
		}
		return outbox.Insert(ctx, tx, msgs...)
	})
	if err != nil {
		return domain.Invoice{}, err
	}
	return inv, nil
}

func (r *Repository) one(ctx context.Context, q pg.DBTX, cond, missing string, arg any) (domain.Invoice, error) {
	inv, err := scanInvoice(q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE `+cond, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Invoice{}, apperr.Missing("%s", missing)
	}
	return inv, err
}

func scanInvoice(row pgx.Row) (domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.OrderID, &inv.CustomerID, &inv.CustomerName, &inv.Amount, &inv.CreatedAt, &inv.SentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Invoice{}, err
	}
	if err != nil {
		return domain.Invoice{}, apperr.TransportFailure(err, "postgres: scan invoice")
	}
	return inv, nil
}
