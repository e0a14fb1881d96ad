package outlinemgr

import (
	"context"
	"fmt"

	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/divisionstore"
	"github.com/wkalt/outline/nestedset"
	"github.com/wkalt/outline/util/log"
)

// Create inserts a new division titled title at p and returns it.
func (m *Manager) Create(ctx context.Context, title string, p nestedset.Placement) (division.Division, error) {
	if err := division.ValidateTitle(title); err != nil {
		return division.Division{}, err
	}
	if err := p.Validate(); err != nil {
		return division.Division{}, invalidPlacement(err)
	}
	book := p.Book
	if p.Kind == nestedset.Root {
		if err := division.ValidateBook(book); err != nil {
			return division.Division{}, err
		}
	} else {
		a, err := m.lookupAnchor(ctx, p.Anchor)
		if err != nil {
			return division.Division{}, err
		}
		book = a.Book
	}
	var created division.Division
	err := m.mutate(ctx, "create", book, func(ctx context.Context, tx divisionstore.Tx) error {
		var a division.Division
		var siblings nestedset.Siblings
		var err error
		if p.Kind == nestedset.Root {
			siblings, err = tx.Siblings(ctx, "", "")
		} else {
			a, err = anchor(ctx, tx, p.Anchor)
			if err == nil && p.Kind == nestedset.LastChild {
				siblings, err = tx.Siblings(ctx, a.ID, "")
			}
		}
		if err != nil {
			return err
		}
		a.Book = book
		slot, err := nestedset.ResolveSlot(p, a, siblings)
		if err != nil {
			return err
		}
		log.Debugw(ctx, "computed slot",
			"placement", p.String(),
			"left", slot.Left,
			"right", slot.Right,
			"depth", slot.Depth,
			"order", slot.Order,
		)
		if err := tx.Displace(ctx, slot.Displacement); err != nil {
			return err
		}
		if slot.Reorder != nil {
			if err := tx.ShiftOrder(ctx, *slot.Reorder); err != nil {
				return err
			}
		}
		created = slot.Apply(division.Division{
			ID:    division.NewID(),
			Book:  book,
			Title: title,
		})
		if err := tx.Insert(ctx, created); err != nil {
			return fmt.Errorf("failed to insert division: %w", err)
		}
		return nil
	})
	if err != nil {
		return division.Division{}, err
	}
	return created, nil
}

// CreateRoot appends a root division to book.
func (m *Manager) CreateRoot(ctx context.Context, book string, title string) (division.Division, error) {
	return m.Create(ctx, title, nestedset.AsRoot(book))
}

// CreateChild inserts a division under parent. kind must be FirstChild or
// LastChild.
func (m *Manager) CreateChild(
	ctx context.Context,
	parent division.ID,
	title string,
	kind nestedset.Kind,
) (division.Division, error) {
	if kind != nestedset.FirstChild && kind != nestedset.LastChild {
		return division.Division{}, division.InvalidArgumentError{
			Field:  "placement",
			Reason: fmt.Sprintf("%s is not a child placement", kind),
		}
	}
	return m.Create(ctx, title, nestedset.Placement{Kind: kind, Anchor: parent})
}

// CreateSibling inserts a division next to sibling. side must be Before or
// After.
func (m *Manager) CreateSibling(
	ctx context.Context,
	sibling division.ID,
	title string,
	side nestedset.Kind,
) (division.Division, error) {
	if side != nestedset.Before && side != nestedset.After {
		return division.Division{}, division.InvalidArgumentError{
			Field:  "placement",
			Reason: fmt.Sprintf("%s is not a sibling placement", side),
		}
	}
	return m.Create(ctx, title, nestedset.Placement{Kind: side, Anchor: sibling})
}

// Rename changes a division's title. Boundaries are untouched.
func (m *Manager) Rename(ctx context.Context, id division.ID, title string) (division.Division, error) {
	if err := division.ValidateTitle(title); err != nil {
		return division.Division{}, err
	}
	d, err := m.lookup(ctx, id)
	if err != nil {
		return division.Division{}, err
	}
	var renamed division.Division
	err = m.mutate(ctx, "rename", d.Book, func(ctx context.Context, tx divisionstore.Tx) error {
		current, err := node(ctx, tx, id)
		if err != nil {
			return err
		}
		current.Title = title
		renamed = current
		return tx.Update(ctx, current)
	})
	if err != nil {
		return division.Division{}, err
	}
	return renamed, nil
}
