package nestedset

import (
	"fmt"

	"github.com/wkalt/outline/division"
)

/*
Relocation moves a whole subtree to another boundary position. The plan is
computed up front from the subtree's interval and the destination, then
applied as three bulk updates inside one transaction:

 1. Open a gap of the subtree's size at the destination.
 2. Shift the subtree's span into the gap and adjust its depth.
 3. Close the interval the subtree vacated.

The gap is empty when step 2 runs and the vacated interval is empty when step
3 runs, so no intermediate state ever holds two overlapping intervals and no
temporary renumbering is needed.
*/

////////////////////////////////////////////////////////////////////////////////

// Relocation is the plan for moving one subtree.
type Relocation struct {
	Open       Displacement
	Span       Span
	Offset     int
	DepthDelta int
	Close      Displacement
	Net        int
}

// Target is where a moved subtree lands: the boundary its left edge is
// inserted at, and the depth of its root afterwards.
type Target struct {
	Position int
	Depth    int
}

// ResolveTarget computes the landing position for moving a subtree to p.
// Siblings describes the roots for Root placements and is otherwise unused.
func ResolveTarget(p Placement, anchor division.Division, roots Siblings) (Target, error) {
	switch p.Kind {
	case Root:
		if roots.Count == 0 {
			return Target{Position: 1, Depth: 0}, nil
		}
		return Target{Position: roots.MaxRight + 1, Depth: 0}, nil
	case FirstChild:
		return Target{Position: anchor.Left + 1, Depth: anchor.Depth + 1}, nil
	case LastChild:
		return Target{Position: anchor.Right, Depth: anchor.Depth + 1}, nil
	case Before:
		return Target{Position: anchor.Left, Depth: anchor.Depth}, nil
	case After:
		return Target{Position: anchor.Right + 1, Depth: anchor.Depth}, nil
	default:
		return Target{}, fmt.Errorf("unrecognized placement %s", p.Kind)
	}
}

// Relocate plans moving node's subtree to target. The target position must
// not fall strictly inside the subtree.
func Relocate(node division.Division, target Target) (Relocation, error) {
	if target.Position > node.Left && target.Position <= node.Right {
		return Relocation{}, division.CycleDetectedError{ID: node.ID}
	}
	size := node.Size()
	span := SpanOf(node)
	if target.Position <= node.Left {
		span.Left += size
		span.Right += size
	}
	return Relocation{
		Open:       Displacement{At: target.Position, By: size},
		Span:       span,
		Offset:     target.Position - span.Left,
		DepthDelta: target.Depth - node.Depth,
		Close:      Displacement{At: span.Right + 1, By: -size},
		Net:        NetOffset(node, target.Position),
	}, nil
}

// NetOffset is the total shift a subtree at node receives when relocated to
// position. It equals the combined effect of a Relocation's three steps.
func NetOffset(node division.Division, position int) int {
	offset := position - node.Left
	if position > node.Right {
		offset -= node.Size()
	}
	return offset
}

// IsNoop reports whether the relocation leaves every boundary in place.
func (r Relocation) IsNoop() bool {
	return r.Net == 0 && r.DepthDelta == 0
}

// Apply returns d as it is after all three steps of the relocation.
func (r Relocation) Apply(d division.Division) division.Division {
	d.Left = r.Open.Apply(d.Left)
	d.Right = r.Open.Apply(d.Right)
	if r.Span.Contains(d.Left, d.Right) {
		d.Left += r.Offset
		d.Right += r.Offset
		d.Depth += r.DepthDelta
	}
	d.Left = r.Close.Apply(d.Left)
	d.Right = r.Close.Apply(d.Right)
	return d
}
