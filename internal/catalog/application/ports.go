package application

import (
	"context"

	"github.com/dmehra2102/order-fulfillment/internal/catalog/domain"
)

// Reader is the read-only view of the catalog. Lookups of unknown ids return apperr.NotFound.
type Reader interface {
	Customer(ctx context.Context, id string) (domain.Customer, error)
	Product(ctx context.Context, id string) (domain.Product, error)
	Users(ctx context.Context, role domain.Role) ([]domain.User, error)
	MenuItems(ctx context.Context) ([]domain.MenuItem, error)
}
