package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dmehra2102/order-fulfillment/internal/catalog/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

// Seed is the on-disk shape of a catalog snapshot.
type Seed struct {
	Customers []domain.Customer `json:"customers"`
	Products  []domain.Product  `json:"products"`
	Users     []domain.User     `json:"users"`
	Menu      []domain.MenuItem `json:"menu"`
}

type Reader struct {
	mu        sync.RWMutex
	customers map[string]domain.Customer
	products  map[string]domain.Product
	users     []domain.User
	menu      []domain.MenuItem
}

func NewReader(seed Seed) *Reader {
	r := &Reader{
		customers: make(map[string]domain.Customer, len(seed.Customers)),
		products:  make(map[string]domain.Product, len(seed.Products)),
	}
	for _, c := range seed.Customers {
		r.customers[c.ID] = c
	}
	for _, p := range seed.Products {
		r.products[p.ID] = p
	}
	r.users = append(r.users, seed.Users...)
	r.menu = append(r.menu, seed.Menu...)
	return r
}

// LoadSeed reads a JSON snapshot; an empty path yields an empty catalog.
func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return Seed{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("catalog seed: %w", err)
	}
	var s Seed
	if err := json.Unmarshal(b, &s); err != nil {
		return Seed{}, fmt.Errorf("catalog seed %s: %w", path, err)
	}
	return s, nil
}

func (r *Reader) PutProduct(p domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
}

func (r *Reader) Customer(ctx context.Context, id string) (domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return domain.Customer{}, apperr.Missing("customer %s not found", id)
	}
	return c, nil
}

func (r *Reader) Product(ctx context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, apperr.Missing("product %s not found", id)
	}
	return p, nil
}

// Users returns the users holding role, or all users when role is RoleUnknown.
func (r *Reader) Users(ctx context.Context, role domain.Role) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.User
	for _, u := range r.users {
		if role == domain.RoleUnknown || u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *Reader) MenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.MenuItem(nil), r.menu...), nil
}
