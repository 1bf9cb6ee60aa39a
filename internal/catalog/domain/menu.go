package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMenuCycle       = errors.New("menu tree contains a cycle")
	ErrMenuParent      = errors.New("menu node references an unknown parent")
	ErrMenuDuplicateID = errors.New("menu node id is duplicated")
)

type MenuItem struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId,omitempty"`
	Label    string `json:"label"`
	Path     string `json:"path,omitempty"`
	Roles    []Role `json:"roles,omitempty"`
}

type menuNode struct {
	item     MenuItem
	children []string
}

// MenuTree is a parent-indexed arena; nodes refer to each other by id only.
type MenuTree struct {
	nodes map[string]*menuNode
	roots []string
}

// BuildMenuTree keeps sibling order as given and rejects unknown parents and cycles.
func BuildMenuTree(items []MenuItem) (*MenuTree, error) {
	t := &MenuTree{nodes: make(map[string]*menuNode, len(items))}
	for _, it := range items {
		if _, dup := t.nodes[it.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrMenuDuplicateID, it.ID)
		}
		t.nodes[it.ID] = &menuNode{item: it}
	}
	for _, it := range items {
		if it.ParentID == "" {
			t.roots = append(t.roots, it.ID)
			continue
		}
		parent, ok := t.nodes[it.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: %s -> %s", ErrMenuParent, it.ID, it.ParentID)
		}
		parent.children = append(parent.children, it.ID)
	}
	for id := range t.nodes {
		if _, err := t.Ancestors(id); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *MenuTree) Roots() []string { return append([]string(nil), t.roots...) }

func (t *MenuTree) Item(id string) (MenuItem, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return MenuItem{}, false
	}
	return n.item, true
}

func (t *MenuTree) Children(id string) []string {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	return append([]string(nil), n.children...)
}

// Ancestors returns the ids from the root down to id's parent.
func (t *MenuTree) Ancestors(id string) ([]string, error) {
	var chain []string
	seen := map[string]struct{}{id: {}}
	cur := t.nodes[id]
	for cur != nil && cur.item.ParentID != "" {
		p := cur.item.ParentID
		if _, loop := seen[p]; loop {
			return nil, fmt.Errorf("%w at %s", ErrMenuCycle, p)
		}
		seen[p] = struct{}{}
		chain = append(chain, p)
		cur = t.nodes[p]
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Visible returns the ids a role may see, depth-first. A node with no roles is visible to all,
// and a hidden node hides its subtree.
func (t *MenuTree) Visible(role Role) []string {
	var out []string
	var walk func(ids []string)
	walk = func(ids []string) {
		for _, id := range ids {
			n := t.nodes[id]
			if !allows(n.item.Roles, role) {
				continue
			}
			out = append(out, id)
			walk(n.children)
		}
	}
	walk(t.roots)
	return out
}

func allows(roles []Role, role Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
