package nestedset

import (
	"fmt"

	"github.com/wkalt/outline/division"
)

/*
Hierarchy is the navigable form of a book's outline. Divisions are held in a
flat arena keyed by ID and the parent/child structure is kept as ID
references, so the hierarchy has no pointer cycles and is cheap to copy out of.

Reconstruct builds a hierarchy from divisions sorted by left boundary in one
linear pass. It relies on the defining property of the nested-set order: an
ancestor is visited before its descendants and its interval strictly
contains theirs. A stack holds the chain of intervals still open at the
current position; each incoming division closes every interval that ended
before it begins and becomes a child of whatever remains on top.
*/

////////////////////////////////////////////////////////////////////////////////

// Hierarchy is a forest of divisions from one book.
type Hierarchy struct {
	roots    []division.ID
	nodes    map[division.ID]division.Division
	children map[division.ID][]division.ID
	parents  map[division.ID]division.ID
	order    []division.ID
}

// Node is a nested rendering of a hierarchy, used for serialization.
type Node struct {
	division.Division
	Children []*Node `json:"children,omitempty"`
}

// Reconstruct builds the hierarchy of divisions sorted by ascending left
// boundary. It fails if the input is unsorted, spans more than one book, or
// contains intervals that partially overlap.
func Reconstruct(divs []division.Division) (*Hierarchy, error) {
	h := &Hierarchy{
		roots:    []division.ID{},
		nodes:    make(map[division.ID]division.Division, len(divs)),
		children: make(map[division.ID][]division.ID),
		parents:  make(map[division.ID]division.ID, len(divs)),
		order:    make([]division.ID, 0, len(divs)),
	}
	stack := make([]division.Division, 0, 16)
	for i, d := range divs {
		if i > 0 {
			prev := divs[i-1]
			if d.Book != prev.Book {
				return nil, division.InvariantViolationError{
					Book:   prev.Book,
					ID:     d.ID,
					Reason: fmt.Sprintf("division belongs to book %s", d.Book),
				}
			}
			if d.Left <= prev.Left {
				return nil, division.InvariantViolationError{
					Book:   d.Book,
					ID:     d.ID,
					Reason: fmt.Sprintf("left boundary %d does not follow %d", d.Left, prev.Left),
				}
			}
		}
		if d.Right <= d.Left {
			return nil, division.InvariantViolationError{
				Book:   d.Book,
				ID:     d.ID,
				Reason: fmt.Sprintf("empty interval [%d,%d]", d.Left, d.Right),
			}
		}
		if _, ok := h.nodes[d.ID]; ok {
			return nil, division.InvariantViolationError{Book: d.Book, ID: d.ID, Reason: "duplicate division"}
		}
		for len(stack) > 0 && stack[len(stack)-1].Right < d.Left {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			h.roots = append(h.roots, d.ID)
		} else {
			top := stack[len(stack)-1]
			if d.Right >= top.Right {
				return nil, division.InvariantViolationError{
					Book:   d.Book,
					ID:     d.ID,
					Reason: fmt.Sprintf("interval [%d,%d] overlaps %s", d.Left, d.Right, top),
				}
			}
			h.children[top.ID] = append(h.children[top.ID], d.ID)
			h.parents[d.ID] = top.ID
		}
		h.nodes[d.ID] = d
		h.order = append(h.order, d.ID)
		stack = append(stack, d)
	}
	return h, nil
}

// Len returns the number of divisions in the hierarchy.
func (h *Hierarchy) Len() int {
	return len(h.order)
}

// Get returns the division with the given ID.
func (h *Hierarchy) Get(id division.ID) (division.Division, bool) {
	d, ok := h.nodes[id]
	return d, ok
}

// Roots returns the root divisions in order.
func (h *Hierarchy) Roots() []division.Division {
	return h.resolve(h.roots)
}

// Children returns the direct children of id in order.
func (h *Hierarchy) Children(id division.ID) []division.Division {
	return h.resolve(h.children[id])
}

// Parent returns the structural parent of id, if any.
func (h *Hierarchy) Parent(id division.ID) (division.Division, bool) {
	parent, ok := h.parents[id]
	if !ok {
		return division.Division{}, false
	}
	return h.nodes[parent], true
}

// Ancestors returns the ancestors of id from the outermost inwards.
func (h *Hierarchy) Ancestors(id division.ID) []division.Division {
	var chain []division.ID
	for p, ok := h.parents[id]; ok; p, ok = h.parents[p] {
		chain = append(chain, p)
	}
	result := make([]division.Division, len(chain))
	for i, p := range chain {
		result[len(chain)-1-i] = h.nodes[p]
	}
	return result
}

// Flatten returns every division in pre-order, which is the input order.
func (h *Hierarchy) Flatten() []division.Division {
	return h.resolve(h.order)
}

// Walk calls f for each division in pre-order.
func (h *Hierarchy) Walk(f func(division.Division) error) error {
	for _, id := range h.order {
		if err := f(h.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

// Tree returns the nested rendering of the forest.
func (h *Hierarchy) Tree() []*Node {
	result := make([]*Node, 0, len(h.roots))
	for _, id := range h.roots {
		result = append(result, h.subtree(id))
	}
	return result
}

func (h *Hierarchy) subtree(id division.ID) *Node {
	node := &Node{Division: h.nodes[id]}
	for _, child := range h.children[id] {
		node.Children = append(node.Children, h.subtree(child))
	}
	return node
}

func (h *Hierarchy) resolve(ids []division.ID) []division.Division {
	result := make([]division.Division, len(ids))
	for i, id := range ids {
		result[i] = h.nodes[id]
	}
	return result
}
