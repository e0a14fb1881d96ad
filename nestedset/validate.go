package nestedset

import (
	"fmt"
	"slices"

	"github.com/wkalt/outline/division"
)

// Validate checks every nested-set invariant over the complete contents of
// one book:
//
//   - intervals are non-empty, odd-width and either nested or disjoint
//   - boundaries use each value in 1..2n exactly once
//   - parent references agree with interval containment
//   - depth equals the number of enclosing intervals
//   - sibling orders run 0..k-1 in ascending left order
//
// The first violation found is returned as an InvariantViolationError.
func Validate(book string, divs []division.Division) error {
	sorted := slices.Clone(divs)
	slices.SortFunc(sorted, func(a, b division.Division) int { return a.Left - b.Left })

	seen := make([]bool, 2*len(sorted)+1)
	for _, d := range sorted {
		if d.Book != book {
			return division.InvariantViolationError{Book: book, ID: d.ID, Reason: "division belongs to book " + d.Book}
		}
		if (d.Right-d.Left)%2 == 0 {
			return division.InvariantViolationError{
				Book: book, ID: d.ID, Reason: fmt.Sprintf("interval [%d,%d] has even width", d.Left, d.Right),
			}
		}
		for _, v := range []int{d.Left, d.Right} {
			if v < 1 || v >= len(seen) {
				return division.InvariantViolationError{
					Book: book, ID: d.ID, Reason: fmt.Sprintf("boundary %d outside 1..%d", v, len(seen)-1),
				}
			}
			if seen[v] {
				return division.InvariantViolationError{
					Book: book, ID: d.ID, Reason: fmt.Sprintf("boundary %d used twice", v),
				}
			}
			seen[v] = true
		}
	}

	h, err := Reconstruct(sorted)
	if err != nil {
		return err
	}
	check := func(parent division.ID, siblings []division.Division) error {
		for i, d := range siblings {
			if d.ParentID != parent {
				return division.InvariantViolationError{
					Book: book, ID: d.ID, Reason: fmt.Sprintf("parent is %q but interval nests under %q", d.ParentID, parent),
				}
			}
			if d.Order != i {
				return division.InvariantViolationError{
					Book: book, ID: d.ID, Reason: fmt.Sprintf("order %d at sibling position %d", d.Order, i),
				}
			}
			if want := len(h.Ancestors(d.ID)); d.Depth != want {
				return division.InvariantViolationError{
					Book: book, ID: d.ID, Reason: fmt.Sprintf("depth %d with %d ancestors", d.Depth, want),
				}
			}
		}
		return nil
	}
	if err := check("", h.Roots()); err != nil {
		return err
	}
	for _, d := range sorted {
		if err := check(d.ID, h.Children(d.ID)); err != nil {
			return err
		}
	}
	return nil
}
