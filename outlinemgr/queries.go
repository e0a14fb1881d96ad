package outlinemgr

import (
	"context"
	"fmt"
	"slices"

	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/divisionstore"
	"github.com/wkalt/outline/nestedset"
)

// Get returns a division by ID.
func (m *Manager) Get(ctx context.Context, id division.ID) (division.Division, error) {
	return m.lookup(ctx, id)
}

// Books lists the books that have divisions.
func (m *Manager) Books(ctx context.Context) ([]string, error) {
	books, err := m.store.Books(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// List returns every division of book in pre-order. The caller owns the
// returned slice.
func (m *Manager) List(ctx context.Context, book string) ([]division.Division, error) {
	if m.cache == nil {
		return m.scan(ctx, book)
	}
	if divs, ok := m.cache.Get(book); ok {
		m.metrics.cache.WithLabelValues("hit").Inc()
		return slices.Clone(divs), nil
	}
	m.metrics.cache.WithLabelValues("miss").Inc()
	gen := m.generation(book)
	divs, err := m.scan(ctx, book)
	if err != nil {
		return nil, err
	}
	m.fill(book, gen, divs)
	return divs, nil
}

func (m *Manager) scan(ctx context.Context, book string) ([]division.Division, error) {
	divs, err := m.store.Scan(ctx, book, divisionstore.ByLeft)
	if err != nil {
		return nil, fmt.Errorf("failed to scan book: %w", err)
	}
	return divs, nil
}

// Hierarchy reconstructs the navigable hierarchy of book.
func (m *Manager) Hierarchy(ctx context.Context, book string) (*nestedset.Hierarchy, error) {
	divs, err := m.List(ctx, book)
	if err != nil {
		return nil, err
	}
	return nestedset.Reconstruct(divs)
}

// GetHierarchy returns the forest of book with children nested.
func (m *Manager) GetHierarchy(ctx context.Context, book string) ([]*nestedset.Node, error) {
	h, err := m.Hierarchy(ctx, book)
	if err != nil {
		return nil, err
	}
	return h.Tree(), nil
}

// Children returns the direct children of id in order.
func (m *Manager) Children(ctx context.Context, id division.ID) ([]division.Division, error) {
	d, err := m.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	subtree, err := m.store.Within(ctx, d.Book, nestedset.SpanOf(d))
	if err != nil {
		return nil, fmt.Errorf("failed to read subtree: %w", err)
	}
	children := []division.Division{}
	for _, c := range subtree {
		if c.ParentID == d.ID {
			children = append(children, c)
		}
	}
	return children, nil
}

// Descendants returns every division below id in pre-order.
func (m *Manager) Descendants(ctx context.Context, id division.ID) ([]division.Division, error) {
	d, err := m.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	subtree, err := m.store.Within(ctx, d.Book, nestedset.SpanOf(d))
	if err != nil {
		return nil, fmt.Errorf("failed to read subtree: %w", err)
	}
	descendants := []division.Division{}
	for _, c := range subtree {
		if c.ID != d.ID {
			descendants = append(descendants, c)
		}
	}
	return descendants, nil
}

// Ancestors returns the ancestors of id from the root inwards.
func (m *Manager) Ancestors(ctx context.Context, id division.ID) ([]division.Division, error) {
	d, err := m.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	divs, err := m.List(ctx, d.Book)
	if err != nil {
		return nil, err
	}
	ancestors := []division.Division{}
	for _, a := range divs {
		if a.Left >= d.Left {
			break
		}
		if a.StrictlyContains(d) {
			ancestors = append(ancestors, a)
		}
	}
	return ancestors, nil
}

// Verify checks every invariant over the stored contents of book.
func (m *Manager) Verify(ctx context.Context, book string) error {
	divs, err := m.scan(ctx, book)
	if err != nil {
		return err
	}
	return nestedset.Validate(book, divs)
}
