package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/order-fulfillment/internal/order/application"
	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
	"github.com/dmehra2102/order-fulfillment/pkg/outbox"
	"github.com/dmehra2102/order-fulfillment/pkg/pg"
	"github.com/dmehra2102/order-fulfillment/pkg/tracing"
)

const AggregateType = "order"

const orderColumns = `id, customer_id, customer_name, payment_method, status, delivery_status,
	delivery_user_id, invoice_created, total_amount, version, created_at, updated_at`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// loaded pairs an order with the row version it was read at.
type loaded struct {
	order   *domain.Order
	version int64
}

func (r *Repository) Create(ctx context.Context, o *domain.Order) error {
	msgs, err := outbox.Encode(AggregateType, o.ID, tracing.Traceparent(ctx), o.PullEvents())
	if err != nil {
		return err
	}
	return pg.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO orders (`+orderColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,1,$10,$11)`,
			o.ID, o.CustomerID, o.CustomerName, string(o.PaymentMethod), string(o.Status), string(o.DeliveryStatus),
			nullable(o.DeliveryUserID), o.InvoiceCreated, o.TotalAmount, o.CreatedAt, o.UpdatedAt)
		if pg.IsUniqueViolation(err) {
			return apperr.Conflicting("order %s already exists", o.ID)
		}
		if err != nil {
			return apperr.TransportFailure(err, "postgres: insert order %s", o.ID)
		}
		if err := insertItems(ctx, tx, o); err != nil {
			return err
		}
		return outbox.Insert(ctx, tx, msgs...)
	})
}

func (r *Repository) Get(ctx context.Context, id string) (*domain.Order, error) {
	rows, err := r.load(ctx, r.pool, `id = $1`, false, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.Missing("order %s not found", id)
	}
	return rows[0].order, nil
}

func (r *Repository) GetMany(ctx context.Context, ids []string) ([]*domain.Order, error) {
	rows, err := r.load(ctx, r.pool, `id = ANY($1)`, false, ids)
	if err != nil {
		return nil, err
	}
	ordered, err := inIDOrder(rows, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Order, len(ordered))
	for i, l := range ordered {
		out[i] = l.order
	}
	return out, nil
}

func (r *Repository) List(ctx context.Context, f application.OrderFilter) ([]domain.Order, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.PaymentMethod != "" {
		add("payment_method = $%d", string(f.PaymentMethod))
	}
	if f.DeliveryStatus != "" {
		add("delivery_status = $%d", string(f.DeliveryStatus))
	}
	if f.DeliveryUserID != "" {
		add("delivery_user_id = $%d", f.DeliveryUserID)
	}
	if f.IDContains != "" {
		add("id ILIKE '%%' || $%d || '%%'", f.IDContains)
	}
	cond := "true"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	rows, err := r.load(ctx, r.pool, cond, false, args...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Order, len(rows))
	for i, l := range rows {
		out[i] = *l.order
	}
	return out, nil
}

// Update reads the order without a lock and writes it back only if its version is unchanged.
func (r *Repository) Update(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error) {
	rows, err := r.load(ctx, r.pool, `id = $1`, false, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.Missing("order %s not found", id)
	}
	l := rows[0]
	if err := fn(l.order); err != nil {
		return nil, err
	}

	err = pg.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		return r.save(ctx, tx, l)
	})
	if err != nil {
		return nil, err
	}
	return l.order, nil
}

// UpdateMany locks every row of the batch, so fn sees a consistent set and the write is all-or-nothing.
func (r *Repository) UpdateMany(ctx context.Context, ids []string, fn func([]*domain.Order) error) ([]*domain.Order, error) {
	var out []*domain.Order
	err := pg.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := r.load(ctx, tx, `id = ANY($1)`, true, ids)
		if err != nil {
			return err
		}
		ordered, err := inIDOrder(rows, ids)
		if err != nil {
			return err
		}
		orders := make([]*domain.Order, len(ordered))
		for i, l := range ordered {
			orders[i] = l.order
		}
		if err := fn(orders); err != nil {
			return err
		}
		for _, l := range ordered {
			if err := r.save(ctx, tx, l); err != nil {
				return err
			}
		}
		out = orders
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) Delete(ctx context.Context, id string, fn func(*domain.Order) error) error {
	return pg.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := r.load(ctx, tx, `id = $1`, true, id)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return apperr.Missing("order %s not found", id)
		}
		o := rows[0].order
		if err := fn(o); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
			return apperr.TransportFailure(err, "postgres: delete order %s", id)
		}
		msgs, err := outbox.Encode(AggregateType, id, tracing.Traceparent(ctx), o.PullEvents())
		if err != nil {
			return err
		}
		return outbox.Insert(ctx, tx, msgs...)
	})
}

func (r *Repository) save(ctx context.Context, tx pgx.Tx, l loaded) error {
	o := l.order
	ct, err := tx.Exec(ctx, `UPDATE orders SET
			payment_method=$2, status=$3, delivery_status=$4, delivery_user_id=$5, invoice_created=$6,
			total_amount=$7, updated_at=$8, version=version+1
		WHERE id=$1 AND version=$9`,
		o.ID, string(o.PaymentMethod), string(o.Status), string(o.DeliveryStatus), nullable(o.DeliveryUserID),
		o.InvoiceCreated, o.TotalAmount, o.UpdatedAt, l.version)
	if err != nil {
		return apperr.TransportFailure(err, "postgres: update order %s", o.ID)
	}
	if ct.RowsAffected() == 0 {
		r.log.WarnContext(ctx, "order version moved", "order_id", o.ID, "version", l.version)
		return apperr.Conflicting("order %s was modified concurrently", o.ID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, o.ID); err != nil {
		return apperr.TransportFailure(err, "postgres: clear items of %s", o.ID)
	}
	if err := insertItems(ctx, tx, o); err != nil {
		return err
	}

	msgs, err := outbox.Encode(AggregateType, o.ID, tracing.Traceparent(ctx), o.PullEvents())
	if err != nil {
		return err
	}
	return outbox.Insert(ctx, tx, msgs...)
}

func insertItems(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	batch := &pgx.Batch{}
	for i, it := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, position, product_id, product_name, unit_price, quantity, discount_pct, amount)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			o.ID, i, it.ProductID, it.ProductName, it.UnitPrice, it.Quantity, it.DiscountPct, it.Amount)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return apperr.TransportFailure(err, "postgres: insert items of %s", o.ID)
	}
	return nil
}

func (r *Repository) load(ctx context.Context, q pg.DBTX, cond string, lock bool, args ...any) ([]loaded, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE ` + cond + ` ORDER BY created_at, id`
	if lock {
		sql += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.TransportFailure(err, "postgres: query orders")
	}
	defer rows.Close()

	var (
		out   []loaded
		ids   []string
		index = map[string]*domain.Order{}
	)
	for rows.Next() {
		var (
			o                        domain.Order
			method, status, delivery string
			agent                    *string
			version                  int64
		)
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.CustomerName, &method, &status, &delivery,
			&agent, &o.InvoiceCreated, &o.TotalAmount, &version, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, apperr.TransportFailure(err, "postgres: scan order")
		}
		o.PaymentMethod = domain.PaymentMethod(method)
		o.Status = domain.OrderStatus(status)
		o.DeliveryStatus = domain.DeliveryStatus(delivery)
		if agent != nil {
			o.DeliveryUserID = *agent
		}
		out = append(out, loaded{order: &o, version: version})
		ids = append(ids, o.ID)
		index[o.ID] = &o
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.TransportFailure(err, "postgres: read orders")
	}
	rows.Close()
	if len(ids) == 0 {
		return nil, nil
	}

	items, err := q.Query(ctx, `SELECT order_id, product_id, product_name, unit_price, quantity, discount_pct, amount
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, apperr.TransportFailure(err, "postgres: query items")
	}
	defer items.Close()
	for items.Next() {
		var (
			orderID string
			it      domain.LineItem
		)
		if err := items.Scan(&orderID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity, &it.DiscountPct, &it.Amount); err != nil {
			return nil, apperr.TransportFailure(err, "postgres: scan item")
		}
		if o, ok := index[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := items.Err(); err != nil {
		return nil, apperr.TransportFailure(err, "postgres: read items")
	}
	return out, nil
}

func inIDOrder(rows []loaded, ids []string) ([]loaded, error) {
	byID := make(map[string]loaded, len(rows))
	for _, l := range rows {
		byID[l.order.ID] = l
	}
	out := make([]loaded, 0, len(ids))
	var missing []string
	for _, id := range ids {
		l, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, l)
	}
	if len(missing) > 0 {
		return nil, apperr.Missing("orders not found: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
