package outlinemgr_test

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/divisionstore"
	"github.com/wkalt/outline/nestedset"
	"github.com/wkalt/outline/outlinemgr"
	"github.com/wkalt/outline/util/testutils"
)

type storeCase struct {
	assertion string
	f         func(*testing.T) divisionstore.Store
}

func storeCases() []storeCase {
	return []storeCase{
		{"mem", func(*testing.T) divisionstore.Store { return divisionstore.NewMemStore() }},
		{"sql", func(t *testing.T) divisionstore.Store {
			t.Helper()
			store, err := divisionstore.NewSQLStore(context.Background(), testutils.NewSQLiteDB(t))
			require.NoError(t, err)
			return store
		}},
	}
}

func newManager(t *testing.T, store divisionstore.Store, opts ...outlinemgr.Option) *outlinemgr.Manager {
	t.Helper()
	return outlinemgr.NewManager(store, append([]outlinemgr.Option{outlinemgr.WithInvariantChecks(true)}, opts...)...)
}

// state returns the stored row of id.
func state(t *testing.T, m *outlinemgr.Manager, id division.ID) division.Division {
	t.Helper()
	d, err := m.Get(context.Background(), id)
	require.NoError(t, err)
	return d
}

func interval(d division.Division) [2]int {
	return [2]int{d.Left, d.Right}
}

func titles(divs []division.Division) []string {
	result := make([]string, len(divs))
	for i, d := range divs {
		result[i] = d.Title
	}
	return result
}

// requireCanonical asserts that book is valid and already numbered the way
// a rebuild would number it.
func requireCanonical(t *testing.T, m *outlinemgr.Manager, book string) []division.Division {
	t.Helper()
	divs, err := m.List(context.Background(), book)
	require.NoError(t, err)
	require.NoError(t, nestedset.Validate(book, divs))
	require.Equal(t, divs, nestedset.Number(slices.Clone(divs)).Divisions)
	return divs
}

// model is a plain parent/children representation of an outline that the
// engine's results are checked against.
type model struct {
	children map[division.ID][]division.ID
	parents  map[division.ID]division.ID
}

func newModel() *model {
	return &model{
		children: map[division.ID][]division.ID{},
		parents:  map[division.ID]division.ID{},
	}
}

func (m *model) ids() []division.ID {
	result := []division.ID{}
	var walk func(parent division.ID)
	walk = func(parent division.ID) {
		for _, id := range m.children[parent] {
			result = append(result, id)
			walk(id)
		}
	}
	walk("")
	return result
}

// within reports whether id is node or one of its descendants.
func (m *model) within(id division.ID, node division.ID) bool {
	for cur := id; cur != ""; cur = m.parents[cur] {
		if cur == node {
			return true
		}
	}
	return false
}

func (m *model) place(id division.ID, p nestedset.Placement) {
	var parent division.ID
	var idx int
	switch p.Kind {
	case nestedset.Root:
		idx = len(m.children[""])
	case nestedset.FirstChild:
		parent, idx = p.Anchor, 0
	case nestedset.LastChild:
		parent, idx = p.Anchor, len(m.children[p.Anchor])
	case nestedset.Before, nestedset.After:
		parent = m.parents[p.Anchor]
		idx = slices.Index(m.children[parent], p.Anchor)
		if p.Kind == nestedset.After {
			idx++
		}
	}
	m.children[parent] = slices.Insert(m.children[parent], idx, id)
	m.parents[id] = parent
}

func (m *model) detach(id division.ID) {
	parent := m.parents[id]
	m.children[parent] = slices.DeleteFunc(m.children[parent], func(c division.ID) bool { return c == id })
}

func (m *model) remove(id division.ID) {
	m.detach(id)
	var drop func(division.ID)
	drop = func(id division.ID) {
		for _, c := range m.children[id] {
			drop(c)
		}
		delete(m.children, id)
		delete(m.parents, id)
	}
	drop(id)
}

// shape is the structural projection of a division compared against the
// model.
type shape struct {
	ID     division.ID
	Parent division.ID
	Depth  int
	Order  int
}

func (m *model) shapes() []shape {
	result := []shape{}
	var walk func(parent division.ID, depth int)
	walk = func(parent division.ID, depth int) {
		for i, id := range m.children[parent] {
			result = append(result, shape{id, parent, depth, i})
			walk(id, depth+1)
		}
	}
	walk("", 0)
	return result
}

func shapes(divs []division.Division) []shape {
	result := make([]shape, len(divs))
	for i, d := range divs {
		result[i] = shape{d.ID, d.ParentID, d.Depth, d.Order}
	}
	return result
}
