package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/order-fulfillment/internal/catalog/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

// Reader serves the catalog straight from the admin console's tables.
type Reader struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewReader(log *slog.Logger, pool *pgxpool.Pool) *Reader {
	return &Reader{log: log, pool: pool}
}

func (r *Reader) Customer(ctx context.Context, id string) (domain.Customer, error) {
	var c domain.Customer
	err := r.pool.QueryRow(ctx, `SELECT id, name, phone, email, address FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Customer{}, apperr.Missing("customer %s not found", id)
	}
	if err != nil {
		return domain.Customer{}, apperr.TransportFailure(err, "postgres: customer %s", id)
	}
	return c, nil
}

func (r *Reader) Product(ctx context.Context, id string) (domain.Product, error) {
	var (
		p        domain.Product
		category *string
	)
	err := r.pool.QueryRow(ctx, `SELECT id, name, price, category_id FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Price, &category)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, apperr.Missing("product %s not found", id)
	}
	if err != nil {
		return domain.Product{}, apperr.TransportFailure(err, "postgres: product %s", id)
	}
	if category != nil {
		p.CategoryID = *category
	}
	return p, nil
}

// Users returns the users holding role, or all users when role is RoleUnknown.
// Role names are compared without regard to case.
func (r *Reader) Users(ctx context.Context, role domain.Role) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.name, u.email, COALESCE(ro.name, '')
		FROM admin_users u
		LEFT JOIN roles ro ON ro.id = u.role_id
		WHERE $1 = '' OR lower(ro.name) = lower($1)
		ORDER BY u.name, u.id`, string(role))
	if err != nil {
		return nil, apperr.TransportFailure(err, "postgres: query users")
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var (
			u        domain.User
			roleName string
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &roleName); err != nil {
			return nil, apperr.TransportFailure(err, "postgres: scan user")
		}
		u.Role = domain.ParseRole(roleName)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.TransportFailure(err, "postgres: read users")
	}
	return out, nil
}

func (r *Reader) MenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, COALESCE(parent_id, ''), label, path, roles FROM menu_items ORDER BY position, id`)
	if err != nil {
		return nil, apperr.TransportFailure(err, "postgres: query menu")
	}
	defer rows.Close()

	var out []domain.MenuItem
	for rows.Next() {
		var (
			it    domain.MenuItem
			roles []string
		)
		if err := rows.Scan(&it.ID, &it.ParentID, &it.Label, &it.Path, &roles); err != nil {
			return nil, apperr.TransportFailure(err, "postgres: scan menu item")
		}
		for _, name := range roles {
			if role := domain.ParseRole(name); role != domain.RoleUnknown {
				it.Roles = append(it.Roles, role)
			}
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.TransportFailure(err, "postgres: read menu")
	}
	return out, nil
}
