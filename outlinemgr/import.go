package outlinemgr

import (
	"context"
	"fmt"

	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/divisionstore"
	"github.com/wkalt/outline/outlineql"
	"github.com/wkalt/outline/util/log"
)

// Import appends the divisions of an outline document to book as new roots
// after the existing ones, in one transaction. If book is empty the
// document's own book name is used. It returns the inserted divisions in
// pre-order.
func (m *Manager) Import(ctx context.Context, book string, doc *outlineql.Document) ([]division.Division, error) {
	if book == "" && doc.Book != nil {
		book = *doc.Book
	}
	if err := division.ValidateBook(book); err != nil {
		return nil, err
	}
	if err := validateEntries(doc.Entries); err != nil {
		return nil, err
	}
	var inserted []division.Division
	err := m.mutate(ctx, "import", book, func(ctx context.Context, tx divisionstore.Tx) error {
		roots, err := tx.Siblings(ctx, "", "")
		if err != nil {
			return err
		}
		l := &layout{book: book, next: roots.MaxRight + 1}
		l.place(doc.Entries, "", 0, roots.NextOrder())
		for _, d := range l.result {
			if err := tx.Insert(ctx, d); err != nil {
				return fmt.Errorf("failed to insert division: %w", err)
			}
		}
		inserted = l.result
		log.Infow(ctx, "imported outline", "divisions", len(inserted))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// ImportText parses text as an outline document and imports it.
func (m *Manager) ImportText(ctx context.Context, book string, name string, text string) ([]division.Division, error) {
	doc, err := outlineql.Parse(name, text)
	if err != nil {
		return nil, division.InvalidArgumentError{Field: "outline", Reason: err.Error()}
	}
	return m.Import(ctx, book, doc)
}

func validateEntries(entries []*outlineql.Entry) error {
	for _, e := range entries {
		if err := division.ValidateTitle(e.Title); err != nil {
			return fmt.Errorf("entry %q: %w", e.Title, err)
		}
		if err := validateEntries(e.Children); err != nil {
			return err
		}
	}
	return nil
}

// layout numbers document entries in pre-order starting at next.
type layout struct {
	book   string
	next   int
	result []division.Division
}

func (l *layout) place(entries []*outlineql.Entry, parent division.ID, depth int, firstOrder int) {
	for i, e := range entries {
		idx := len(l.result)
		d := division.Division{
			ID:       division.NewID(),
			Book:     l.book,
			ParentID: parent,
			Left:     l.next,
			Depth:    depth,
			Order:    firstOrder + i,
			Title:    e.Title,
		}
		l.next++
		l.result = append(l.result, d)
		l.place(e.Children, d.ID, depth+1, 0)
		l.result[idx].Right = l.next
		l.next++
	}
}
