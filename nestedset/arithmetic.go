package nestedset

import (
	"fmt"
	"math"

	"github.com/wkalt/outline/division"
)

/*
Boundary arithmetic for inserts. Each function takes the anchor as it is
before the insert and returns the new division's slot together with the bulk
shifts that make room for it. Nothing here performs I/O; the outline manager
applies the shifts through the store and then writes the new row.

Every displacement follows one rule: all boundaries at or beyond At move by
By. Applied to both columns of every division in a book, that rule opens (or,
with a negative By, closes) a gap without ever producing overlapping
intervals.
*/

////////////////////////////////////////////////////////////////////////////////

// MaxOrder is an open upper bound for order ranges.
const MaxOrder = math.MaxInt32

// Displacement shifts every left and right boundary >= At by By.
type Displacement struct {
	At int
	By int
}

// IsZero reports whether the displacement moves nothing.
func (d Displacement) IsZero() bool {
	return d.By == 0
}

// Apply returns the shifted value of a single boundary.
func (d Displacement) Apply(v int) int {
	if v >= d.At {
		return v + d.By
	}
	return v
}

// Span is a closed interval of boundary values.
type Span struct {
	Left  int
	Right int
}

// SpanOf returns the interval occupied by d's subtree.
func SpanOf(d division.Division) Span {
	return Span{Left: d.Left, Right: d.Right}
}

// Contains reports whether the interval [left, right] lies within s.
func (s Span) Contains(left, right int) bool {
	return s.Left <= left && right <= s.Right
}

// OrderShift adds Delta to the order of each division under Parent whose
// order lies in [From, To]. A zero Parent addresses the roots. Exclude, if
// set, is never shifted.
type OrderShift struct {
	Parent  division.ID
	From    int
	To      int
	Delta   int
	Exclude division.ID
}

// Matches reports whether d is affected by the shift.
func (s OrderShift) Matches(d division.Division) bool {
	return d.ParentID == s.Parent &&
		d.ID != s.Exclude &&
		d.Order >= s.From &&
		d.Order <= s.To
}

// Siblings summarizes the existing children of a parent, or the roots of a
// book.
type Siblings struct {
	Count    int
	MaxRight int
	MaxOrder int
}

// NextOrder is the order a division appended after the siblings receives.
func (s Siblings) NextOrder() int {
	if s.Count == 0 {
		return 0
	}
	return s.MaxOrder + 1
}

// Slot is the computed position of a new division.
type Slot struct {
	ParentID     division.ID
	Left         int
	Right        int
	Depth        int
	Order        int
	Displacement Displacement
	Reorder      *OrderShift
}

// Check rejects slots that would break the interval invariants.
func (s Slot) Check() error {
	switch {
	case s.Left < 1:
		return fmt.Errorf("left boundary %d below 1", s.Left)
	case s.Right <= s.Left:
		return fmt.Errorf("right boundary %d not after left %d", s.Right, s.Left)
	case (s.Right-s.Left)%2 == 0:
		return fmt.Errorf("interval [%d,%d] has even width", s.Left, s.Right)
	case s.Depth < 0:
		return fmt.Errorf("negative depth %d", s.Depth)
	case s.Order < 0:
		return fmt.Errorf("negative order %d", s.Order)
	}
	return nil
}

// Apply stamps the slot onto d.
func (s Slot) Apply(d division.Division) division.Division {
	d.ParentID = s.ParentID
	d.Left = s.Left
	d.Right = s.Right
	d.Depth = s.Depth
	d.Order = s.Order
	return d
}

// RootSlot appends a root after the existing roots of a book.
func RootSlot(roots Siblings) Slot {
	if roots.Count == 0 {
		return Slot{Left: 1, Right: 2}
	}
	return Slot{
		Left:         roots.MaxRight + 1,
		Right:        roots.MaxRight + 2,
		Order:        roots.NextOrder(),
		Displacement: Displacement{At: roots.MaxRight + 1, By: 2},
	}
}

// FirstChildSlot positions a new division before parent's children.
func FirstChildSlot(parent division.Division) Slot {
	return Slot{
		ParentID:     parent.ID,
		Left:         parent.Left + 1,
		Right:        parent.Left + 2,
		Depth:        parent.Depth + 1,
		Order:        0,
		Displacement: Displacement{At: parent.Left + 1, By: 2},
		Reorder:      &OrderShift{Parent: parent.ID, From: 0, To: MaxOrder, Delta: 1},
	}
}

// LastChildSlot positions a new division after parent's children.
func LastChildSlot(parent division.Division, children Siblings) Slot {
	return Slot{
		ParentID:     parent.ID,
		Left:         parent.Right,
		Right:        parent.Right + 1,
		Depth:        parent.Depth + 1,
		Order:        children.NextOrder(),
		Displacement: Displacement{At: parent.Right, By: 2},
	}
}

// BeforeSlot positions a new division immediately before sibling.
func BeforeSlot(sibling division.Division) Slot {
	return Slot{
		ParentID:     sibling.ParentID,
		Left:         sibling.Left,
		Right:        sibling.Left + 1,
		Depth:        sibling.Depth,
		Order:        sibling.Order,
		Displacement: Displacement{At: sibling.Left, By: 2},
		Reorder:      &OrderShift{Parent: sibling.ParentID, From: sibling.Order, To: MaxOrder, Delta: 1},
	}
}

// AfterSlot positions a new division immediately after sibling.
func AfterSlot(sibling division.Division) Slot {
	return Slot{
		ParentID:     sibling.ParentID,
		Left:         sibling.Right + 1,
		Right:        sibling.Right + 2,
		Depth:        sibling.Depth,
		Order:        sibling.Order + 1,
		Displacement: Displacement{At: sibling.Right + 1, By: 2},
		Reorder:      &OrderShift{Parent: sibling.ParentID, From: sibling.Order + 1, To: MaxOrder, Delta: 1},
	}
}

// Removal is the plan for deleting d's subtree: drop every division inside
// Span, close the gap it leaves, and compact the orders of later siblings.
type Removal struct {
	Span    Span
	Close   Displacement
	Compact OrderShift
}

// Remove plans deleting d's subtree.
func Remove(d division.Division) Removal {
	return Removal{
		Span:  SpanOf(d),
		Close: Displacement{At: d.Right + 1, By: -d.Size()},
		Compact: OrderShift{
			Parent:  d.ParentID,
			From:    d.Order + 1,
			To:      MaxOrder,
			Delta:   -1,
			Exclude: d.ID,
		},
	}
}

// ResolveSlot computes the slot for an insert at p. The anchor is ignored for
// root placements. Siblings describes the roots for Root and the anchor's
// children for LastChild; other kinds ignore it.
func ResolveSlot(p Placement, anchor division.Division, siblings Siblings) (Slot, error) {
	var slot Slot
	switch p.Kind {
	case Root:
		slot = RootSlot(siblings)
	case FirstChild:
		slot = FirstChildSlot(anchor)
	case LastChild:
		slot = LastChildSlot(anchor, siblings)
	case Before:
		slot = BeforeSlot(anchor)
	case After:
		slot = AfterSlot(anchor)
	default:
		return Slot{}, fmt.Errorf("unrecognized placement %s", p.Kind)
	}
	if err := slot.Check(); err != nil {
		return Slot{}, division.InvariantViolationError{
			Book:   anchor.Book,
			ID:     anchor.ID,
			Reason: fmt.Sprintf("computed slot for %s: %s", p, err),
		}
	}
	return slot, nil
}
