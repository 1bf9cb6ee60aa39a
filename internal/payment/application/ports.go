package application

import (
	"context"

	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
)

// Orders is the slice of the order store a settlement needs. UpdateMany commits all
// orders or none.
type Orders interface {
	GetMany(ctx context.Context, ids []string) ([]*orderdomain.Order, error)
	UpdateMany(ctx context.Context, ids []string, fn func([]*orderdomain.Order) error) ([]*orderdomain.Order, error)
}
