package outlinemgr

import (
	"context"

	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/divisionstore"
	"github.com/wkalt/outline/nestedset"
	"github.com/wkalt/outline/util/log"
)

/*
A move relocates a whole subtree in three bulk updates planned by
nestedset.Relocate, then fixes up sibling orders on both ends: the siblings
the division leaves behind close ranks, and the siblings at the destination
make room for it. The moved division's own row is written last with its new
parent and order.
*/

////////////////////////////////////////////////////////////////////////////////

// Move relocates id and its subtree to p and returns the moved division.
// Moving a division to where it already is changes nothing.
func (m *Manager) Move(ctx context.Context, id division.ID, p nestedset.Placement) (division.Division, error) {
	if err := p.Validate(); err != nil {
		return division.Division{}, invalidPlacement(err)
	}
	d, err := m.lookup(ctx, id)
	if err != nil {
		return division.Division{}, err
	}
	if p.Kind == nestedset.Root {
		if p.Book != d.Book {
			return division.Division{}, division.CrossGroupMoveError{ID: id, Book: d.Book, AnchorBook: p.Book}
		}
	} else {
		a, err := m.lookupAnchor(ctx, p.Anchor)
		if err != nil {
			return division.Division{}, err
		}
		if a.Book != d.Book {
			return division.Division{}, division.CrossGroupMoveError{ID: id, Book: d.Book, AnchorBook: a.Book}
		}
	}
	var moved division.Division
	err = m.mutate(ctx, "move", d.Book, func(ctx context.Context, tx divisionstore.Tx) error {
		var err error
		moved, err = relocate(ctx, tx, id, p)
		return err
	})
	if err != nil {
		return division.Division{}, err
	}
	return moved, nil
}

// MoveToChildOf makes id the last child of parent.
func (m *Manager) MoveToChildOf(ctx context.Context, id division.ID, parent division.ID) (division.Division, error) {
	return m.Move(ctx, id, nestedset.AsLastChild(parent))
}

// MoveBefore places id immediately before sibling, adopting sibling's parent.
func (m *Manager) MoveBefore(ctx context.Context, id division.ID, sibling division.ID) (division.Division, error) {
	return m.Move(ctx, id, nestedset.BeforeSibling(sibling))
}

// MoveAfter places id immediately after sibling, adopting sibling's parent.
func (m *Manager) MoveAfter(ctx context.Context, id division.ID, sibling division.ID) (division.Division, error) {
	return m.Move(ctx, id, nestedset.AfterSibling(sibling))
}

func relocate(
	ctx context.Context,
	tx divisionstore.Tx,
	id division.ID,
	p nestedset.Placement,
) (division.Division, error) {
	d, err := node(ctx, tx, id)
	if err != nil {
		return d, err
	}
	var a division.Division
	parent := division.ID("")
	if p.Kind != nestedset.Root {
		a, err = anchor(ctx, tx, p.Anchor)
		if err != nil {
			return d, err
		}
		if d.Contains(a) {
			return d, division.CycleDetectedError{ID: d.ID, Anchor: a.ID}
		}
		parent = a.ID
		if p.Sibling() {
			parent = a.ParentID
		}
	}
	roots, err := tx.Siblings(ctx, "", d.ID)
	if err != nil {
		return d, err
	}
	target, err := nestedset.ResolveTarget(p, a, roots)
	if err != nil {
		return d, invalidPlacement(err)
	}
	plan, err := nestedset.Relocate(d, target)
	if err != nil {
		return d, err
	}
	if plan.IsNoop() && parent == d.ParentID {
		log.Debugw(ctx, "division already in place", "id", d.ID, "placement", p.String())
		return d, nil
	}
	log.Debugw(ctx, "computed relocation",
		"id", d.ID,
		"placement", p.String(),
		"position", target.Position,
		"offset", plan.Net,
		"depthDelta", plan.DepthDelta,
	)

	if err := tx.ShiftOrder(ctx, nestedset.Remove(d).Compact); err != nil {
		return d, err
	}
	order, err := destinationOrder(ctx, tx, p, a, d.ID)
	if err != nil {
		return d, err
	}
	if err := tx.ShiftOrder(ctx, nestedset.OrderShift{
		Parent:  parent,
		From:    order,
		To:      nestedset.MaxOrder,
		Delta:   1,
		Exclude: d.ID,
	}); err != nil {
		return d, err
	}

	if err := tx.Displace(ctx, plan.Open); err != nil {
		return d, err
	}
	if err := tx.ShiftSpan(ctx, plan.Span, plan.Offset, plan.DepthDelta); err != nil {
		return d, err
	}
	if err := tx.Displace(ctx, plan.Close); err != nil {
		return d, err
	}

	moved, err := node(ctx, tx, d.ID)
	if err != nil {
		return d, err
	}
	moved.ParentID = parent
	moved.Order = order
	if err := tx.Update(ctx, moved); err != nil {
		return d, err
	}
	return moved, nil
}

// destinationOrder computes the moved division's order after its old
// siblings have been compacted.
func destinationOrder(
	ctx context.Context,
	tx divisionstore.Tx,
	p nestedset.Placement,
	a division.Division,
	moving division.ID,
) (int, error) {
	switch p.Kind {
	case nestedset.FirstChild:
		return 0, nil
	case nestedset.Root, nestedset.LastChild:
		siblings, err := tx.Siblings(ctx, a.ID, moving)
		if err != nil {
			return 0, err
		}
		return siblings.NextOrder(), nil
	default:
		// The anchor's order may have dropped during compaction.
		current, err := anchor(ctx, tx, a.ID)
		if err != nil {
			return 0, err
		}
		if p.Kind == nestedset.Before {
			return current.Order, nil
		}
		return current.Order + 1, nil
	}
}
