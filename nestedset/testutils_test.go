package nestedset_test

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/nestedset"
)

const testBook = "book"

// outline builds a canonical book from (id, parent) pairs. Siblings are
// ordered by their position in the argument list.
func outline(pairs ...string) []division.Division {
	if len(pairs)%2 != 0 {
		panic("outline requires id/parent pairs")
	}
	counts := map[string]int{}
	divs := make([]division.Division, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		id, parent := pairs[i], pairs[i+1]
		divs = append(divs, division.Division{
			ID:       division.ID(id),
			Book:     testBook,
			ParentID: division.ID(parent),
			Order:    counts[parent],
			Title:    id,
		})
		counts[parent]++
	}
	return nestedset.Number(divs).Divisions
}

// randomOutline builds a canonical book of n divisions with random shape.
func randomOutline(r *rand.Rand, n int) []division.Division {
	pairs := make([]string, 0, 2*n)
	for i := 0; i < n; i++ {
		parent := ""
		if i > 0 && r.Intn(4) != 0 {
			parent = fmt.Sprintf("n%d", r.Intn(i))
		}
		pairs = append(pairs, fmt.Sprintf("n%d", i), parent)
	}
	return outline(pairs...)
}

func find(divs []division.Division, id string) division.Division {
	for _, d := range divs {
		if d.ID == division.ID(id) {
			return d
		}
	}
	panic("division not found: " + id)
}

// insert applies a computed slot to divs the way the outline manager applies
// it through a store.
func insert(divs []division.Division, id string, slot nestedset.Slot) []division.Division {
	result := make([]division.Division, 0, len(divs)+1)
	for _, d := range divs {
		d.Left = slot.Displacement.Apply(d.Left)
		d.Right = slot.Displacement.Apply(d.Right)
		if slot.Reorder != nil && slot.Reorder.Matches(d) {
			d.Order += slot.Reorder.Delta
		}
		result = append(result, d)
	}
	return append(result, slot.Apply(division.Division{ID: division.ID(id), Book: testBook, Title: id}))
}

func sortByLeft(divs []division.Division) []division.Division {
	sorted := slices.Clone(divs)
	slices.SortFunc(sorted, func(a, b division.Division) int { return a.Left - b.Left })
	return sorted
}

func bounds(divs []division.Division) map[string][2]int {
	result := make(map[string][2]int, len(divs))
	for _, d := range divs {
		result[string(d.ID)] = [2]int{d.Left, d.Right}
	}
	return result
}
