package application

import (
	"context"
	"fmt"

	"github.com/dmehra2102/order-fulfillment/internal/catalog/domain"
)

type Service struct {
	reader Reader
}

func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

type MenuEntry struct {
	domain.MenuItem
	Depth int `json:"depth"`
}

// Menu returns the entries visible to role in display order.
func (s *Service) Menu(ctx context.Context, role domain.Role) ([]MenuEntry, error) {
	items, err := s.reader.MenuItems(ctx)
	if err != nil {
		return nil, err
	}
	tree, err := domain.BuildMenuTree(items)
	if err != nil {
		return nil, fmt.Errorf("menu: %w", err)
	}

	visible := tree.Visible(role)
	out := make([]MenuEntry, 0, len(visible))
	for _, id := range visible {
		item, _ := tree.Item(id)
		ancestors, err := tree.Ancestors(id)
		if err != nil {
			return nil, err
		}
		out = append(out, MenuEntry{MenuItem: item, Depth: len(ancestors)})
	}
	return out, nil
}
