package outlineql

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

/*
This file contains a participle grammar for outline documents, a plain-text
form of a book's division tree. A document optionally names its book and then
lists root divisions. Each division is a quoted title, optionally followed by
its children in braces:

	book "moby-dick"

	"Part One" {
		"Loomings"
		"The Carpet-Bag" { "Arrival" }
	}
	"Epilogue" # comments run to the end of the line

Titles use Go string syntax, so quotes and non-printing characters are
written with backslash escapes.
*/

////////////////////////////////////////////////////////////////////////////////

var (
	Options = []participle.Option{ // nolint:gochecknoglobals
		participle.Lexer(
			lexer.MustSimple([]lexer.SimpleRule{
				{Name: "comment", Pattern: `#[^\n]*`},
				{Name: "Keyword", Pattern: `book\b`},
				{Name: "QuotedString", Pattern: `"(?:\\.|[^"\\])*"`},
				{Name: "Punct", Pattern: `[{}]`},
				{Name: "whitespace", Pattern: `\s+`},
			}),
		),
		participle.Unquote("QuotedString"),
	}
)

// Document is a parsed outline document.
type Document struct {
	Book    *string  `parser:"( \"book\" @QuotedString )?"`
	Entries []*Entry `parser:"@@*"`
}

// Entry is one division and its children.
type Entry struct {
	Title    string   `parser:"@QuotedString"`
	Children []*Entry `parser:"( \"{\" @@* \"}\" )?"`
}

// Count returns the number of entries in the document, at every depth.
func (d *Document) Count() int {
	return countEntries(d.Entries)
}

func countEntries(entries []*Entry) int {
	n := len(entries)
	for _, e := range entries {
		n += countEntries(e.Children)
	}
	return n
}

// NewParser returns a new outline document parser.
func NewParser() *participle.Parser[Document] {
	return participle.MustBuild[Document](Options...)
}

// Parse parses an outline document.
func Parse(name string, text string) (*Document, error) {
	doc, err := NewParser().ParseString(name, text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse outline: %w", err)
	}
	return doc, nil
}
