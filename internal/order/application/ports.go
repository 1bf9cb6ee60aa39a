package application

import (
	"context"

	catalog "github.com/dmehra2102/order-fulfillment/internal/catalog/domain"
	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
)

type OrderFilter struct {
	Status         domain.OrderStatus
	PaymentMethod  domain.PaymentMethod
	DeliveryStatus domain.DeliveryStatus
	DeliveryUserID string
	IDContains     string
}

func (f OrderFilter) Match(o domain.Order) bool {
	switch {
	case f.Status != "" && o.Status != f.Status:
		return false
	case f.PaymentMethod != "" && o.PaymentMethod != f.PaymentMethod:
		return false
	case f.DeliveryStatus != "" && o.DeliveryStatus != f.DeliveryStatus:
		return false
	case f.DeliveryUserID != "" && o.DeliveryUserID != f.DeliveryUserID:
		return false
	case f.IDContains != "" && !containsFold(o.ID, f.IDContains):
		return false
	}
	return true
}

// OrderRepository persists orders. Update, UpdateMany and Delete apply fn to the loaded
// aggregates and commit the result, together with the events fn recorded, only when fn
// returns nil. Unknown ids are apperr.NotFound.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	GetMany(ctx context.Context, ids []string) ([]*domain.Order, error)
	List(ctx context.Context, f OrderFilter) ([]domain.Order, error)
	Update(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error)
	UpdateMany(ctx context.Context, ids []string, fn func([]*domain.Order) error) ([]*domain.Order, error)
	Delete(ctx context.Context, id string, fn func(*domain.Order) error) error
}

type CustomerLookup interface {
	Customer(ctx context.Context, id string) (catalog.Customer, error)
}

type ProductLookup interface {
	Product(ctx context.Context, id string) (catalog.Product, error)
}

type UserDirectory interface {
	Users(ctx context.Context, role catalog.Role) ([]catalog.User, error)
}
