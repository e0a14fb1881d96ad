package nestedset

import (
	"cmp"
	"slices"

	"github.com/wkalt/outline/division"
)

/*
Number computes canonical nested-set values for a book from parent references
and sibling order alone, ignoring whatever boundaries are currently stored.
It is the reference numbering: a pre-order depth-first traversal that hands
out left boundaries from 1, assigns right boundaries on the way back up and
visits siblings by ascending order.

Siblings with equal order are tied by ID. Orders are renumbered densely from
zero. Divisions that cannot be reached from a root, because their parent is
missing or the parent references form a cycle, are promoted to roots after the
existing ones.
*/

////////////////////////////////////////////////////////////////////////////////

// Numbering is the result of Number.
type Numbering struct {
	// Divisions in pre-order with canonical values.
	Divisions []division.Division
	// Promoted lists divisions that were detached into roots.
	Promoted []division.ID
}

func bySiblingOrder(a, b division.Division) int {
	if c := cmp.Compare(a.Order, b.Order); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Number renumbers divs, which must all belong to one book.
func Number(divs []division.Division) Numbering {
	byID := make(map[division.ID]division.Division, len(divs))
	for _, d := range divs {
		byID[d.ID] = d
	}
	children := make(map[division.ID][]division.Division)
	roots := []division.Division{}
	for _, d := range divs {
		if d.IsRoot() {
			roots = append(roots, d)
			continue
		}
		children[d.ParentID] = append(children[d.ParentID], d)
	}
	for _, list := range children {
		slices.SortFunc(list, bySiblingOrder)
	}
	slices.SortFunc(roots, bySiblingOrder)

	n := &numberer{
		children: children,
		visited:  make(map[division.ID]bool, len(divs)),
		result:   make([]division.Division, 0, len(divs)),
		next:     1,
	}
	for _, root := range roots {
		n.visit(root, "", n.rootOrder, 0)
		n.rootOrder++
	}

	// Whatever is left is unreachable. Promote the shallowest first, so a
	// detached subtree keeps as much of its shape as possible.
	rest := make([]division.Division, 0)
	for _, d := range divs {
		if !n.visited[d.ID] {
			rest = append(rest, d)
		}
	}
	slices.SortFunc(rest, func(a, b division.Division) int {
		if c := cmp.Compare(a.Depth, b.Depth); c != 0 {
			return c
		}
		return bySiblingOrder(a, b)
	})
	var promoted []division.ID
	for _, d := range rest {
		if n.visited[d.ID] {
			continue
		}
		promoted = append(promoted, d.ID)
		n.visit(d, "", n.rootOrder, 0)
		n.rootOrder++
	}
	return Numbering{Divisions: n.result, Promoted: promoted}
}

type numberer struct {
	children  map[division.ID][]division.Division
	visited   map[division.ID]bool
	result    []division.Division
	next      int
	rootOrder int
}

func (n *numberer) visit(d division.Division, parent division.ID, order int, depth int) {
	n.visited[d.ID] = true
	d.ParentID = parent
	d.Order = order
	d.Depth = depth
	d.Left = n.next
	n.next++
	idx := len(n.result)
	n.result = append(n.result, d)
	childOrder := 0
	for _, child := range n.children[d.ID] {
		if n.visited[child.ID] {
			continue
		}
		n.visit(child, d.ID, childOrder, depth+1)
		childOrder++
	}
	n.result[idx].Right = n.next
	n.next++
}
