package divisionstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/nestedset"
	"golang.org/x/exp/maps"
)

/*
memstore is an in-memory implementation of the division store. Each book has
its own writer lock. A transaction works on a private copy of the book's rows
and publishes it at commit by swapping the book's map, so readers holding the
previous map never see a partial update.
*/

////////////////////////////////////////////////////////////////////////////////

type memBook struct {
	mtx  sync.Mutex // serializes transactions on the book
	rows map[division.ID]division.Division
}

type memStore struct {
	mtx   sync.RWMutex
	books map[string]*memBook
	index map[division.ID]string
}

// NewMemStore returns an empty in-memory division store.
func NewMemStore() Store {
	return &memStore{
		books: make(map[string]*memBook),
		index: make(map[division.ID]string),
	}
}

func (s *memStore) rows(book string) map[division.ID]division.Division {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if b, ok := s.books[book]; ok {
		return b.rows
	}
	return nil
}

func (s *memStore) Lookup(_ context.Context, id division.ID) (division.Division, error) {
	s.mtx.RLock()
	book, ok := s.index[id]
	s.mtx.RUnlock()
	if !ok {
		return division.Division{}, ErrNotFound
	}
	d, ok := s.rows(book)[id]
	if !ok {
		return division.Division{}, ErrNotFound
	}
	return d, nil
}

func (s *memStore) Get(_ context.Context, book string, id division.ID) (division.Division, error) {
	d, ok := s.rows(book)[id]
	if !ok {
		return division.Division{}, ErrNotFound
	}
	return d, nil
}

func (s *memStore) Scan(_ context.Context, book string, ordering Ordering) ([]division.Division, error) {
	return sortRows(maps.Values(s.rows(book)), ordering), nil
}

func (s *memStore) Within(_ context.Context, book string, span nestedset.Span) ([]division.Division, error) {
	result := []division.Division{}
	for _, d := range s.rows(book) {
		if span.Contains(d.Left, d.Right) {
			result = append(result, d)
		}
	}
	return sortRows(result, ByLeft), nil
}

func (s *memStore) Books(_ context.Context) ([]string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	books := []string{}
	for name, b := range s.books {
		if len(b.rows) > 0 {
			books = append(books, name)
		}
	}
	slices.Sort(books)
	return books, nil
}

func (s *memStore) WithTx(ctx context.Context, book string, f func(tx Tx) error) error {
	s.mtx.Lock()
	b, ok := s.books[book]
	if !ok {
		b = &memBook{rows: make(map[division.ID]division.Division)}
		s.books[book] = b
	}
	s.mtx.Unlock()

	b.mtx.Lock()
	defer b.mtx.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{
		store:    s,
		book:     book,
		rows:     maps.Clone(b.rows),
		inserted: make(map[division.ID]bool),
	}
	if err := f(tx); err != nil {
		return err
	}
	return s.commit(b, tx)
}

func (s *memStore) commit(b *memBook, tx *memTx) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for id := range tx.inserted {
		if owner, ok := s.index[id]; ok && owner != tx.book {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
	}
	for id := range b.rows {
		if _, ok := tx.rows[id]; !ok {
			delete(s.index, id)
		}
	}
	for id := range tx.rows {
		s.index[id] = tx.book
	}
	b.rows = tx.rows
	return nil
}

type memTx struct {
	store    *memStore
	book     string
	rows     map[division.ID]division.Division
	inserted map[division.ID]bool
}

func (tx *memTx) Book() string {
	return tx.book
}

func (tx *memTx) Get(_ context.Context, id division.ID) (division.Division, error) {
	d, ok := tx.rows[id]
	if !ok {
		return division.Division{}, ErrNotFound
	}
	return d, nil
}

func (tx *memTx) Scan(_ context.Context, ordering Ordering) ([]division.Division, error) {
	return sortRows(maps.Values(tx.rows), ordering), nil
}

func (tx *memTx) Siblings(_ context.Context, parent division.ID, exclude division.ID) (nestedset.Siblings, error) {
	var result nestedset.Siblings
	for _, d := range tx.rows {
		if d.ParentID != parent || d.ID == exclude {
			continue
		}
		result.Count++
		result.MaxRight = max(result.MaxRight, d.Right)
		result.MaxOrder = max(result.MaxOrder, d.Order)
	}
	return result, nil
}

func (tx *memTx) Displace(_ context.Context, disp nestedset.Displacement) error {
	if disp.IsZero() {
		return nil
	}
	for id, d := range tx.rows {
		d.Left = disp.Apply(d.Left)
		d.Right = disp.Apply(d.Right)
		tx.rows[id] = d
	}
	return nil
}

func (tx *memTx) ShiftSpan(_ context.Context, span nestedset.Span, offset int, depthDelta int) error {
	for id, d := range tx.rows {
		if !span.Contains(d.Left, d.Right) {
			continue
		}
		d.Left += offset
		d.Right += offset
		d.Depth += depthDelta
		tx.rows[id] = d
	}
	return nil
}

func (tx *memTx) ShiftOrder(_ context.Context, shift nestedset.OrderShift) error {
	for id, d := range tx.rows {
		if shift.Matches(d) {
			d.Order += shift.Delta
			tx.rows[id] = d
		}
	}
	return nil
}

func (tx *memTx) Insert(_ context.Context, d division.Division) error {
	if _, ok := tx.rows[d.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
	}
	tx.store.mtx.RLock()
	owner, ok := tx.store.index[d.ID]
	tx.store.mtx.RUnlock()
	if ok && owner != tx.book {
		return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
	}
	d.Book = tx.book
	tx.rows[d.ID] = d
	tx.inserted[d.ID] = true
	return nil
}

func (tx *memTx) Update(_ context.Context, d division.Division) error {
	if _, ok := tx.rows[d.ID]; !ok {
		return ErrNotFound
	}
	d.Book = tx.book
	tx.rows[d.ID] = d
	return nil
}

func (tx *memTx) DeleteSpan(_ context.Context, span nestedset.Span) (int, error) {
	count := 0
	for id, d := range tx.rows {
		if span.Contains(d.Left, d.Right) {
			delete(tx.rows, id)
			delete(tx.inserted, id)
			count++
		}
	}
	return count, nil
}

func sortRows(divs []division.Division, ordering Ordering) []division.Division {
	if divs == nil {
		divs = []division.Division{}
	}
	switch ordering {
	case ByDepthOrder:
		slices.SortFunc(divs, func(a, b division.Division) int {
			if c := cmp.Compare(a.Depth, b.Depth); c != 0 {
				return c
			}
			if c := cmp.Compare(a.Order, b.Order); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	default:
		slices.SortFunc(divs, func(a, b division.Division) int {
			if c := cmp.Compare(a.Left, b.Left); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	}
	return divs
}
