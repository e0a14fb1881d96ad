package nestedset

import (
	"fmt"

	"github.com/wkalt/outline/division"
)

/*
Placements describe where a division goes relative to an anchor. They are a
closed set: every insert and every move is expressed as one of them and
resolved by the same arithmetic.
*/

////////////////////////////////////////////////////////////////////////////////

// Kind enumerates placements.
type Kind uint8

const (
	// Root appends after the last root of a book.
	Root Kind = iota
	// FirstChild positions before every existing child of the anchor.
	FirstChild
	// LastChild positions after every existing child of the anchor.
	LastChild
	// Before positions immediately before the anchor, under the anchor's parent.
	Before
	// After positions immediately after the anchor, under the anchor's parent.
	After
)

var kindNames = map[Kind]string{
	Root:       "root",
	FirstChild: "first-child",
	LastChild:  "last-child",
	Before:     "before",
	After:      "after",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind parses the string form of a placement kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unrecognized placement %q", s)
}

// Placement is a kind plus the anchor it is relative to. Root placements
// carry the book instead of an anchor.
type Placement struct {
	Kind   Kind
	Anchor division.ID
	Book   string
}

// AsRoot appends a root to book.
func AsRoot(book string) Placement {
	return Placement{Kind: Root, Book: book}
}

// AsFirstChild places under parent, before its other children.
func AsFirstChild(parent division.ID) Placement {
	return Placement{Kind: FirstChild, Anchor: parent}
}

// AsLastChild places under parent, after its other children.
func AsLastChild(parent division.ID) Placement {
	return Placement{Kind: LastChild, Anchor: parent}
}

// BeforeSibling places immediately before sibling.
func BeforeSibling(sibling division.ID) Placement {
	return Placement{Kind: Before, Anchor: sibling}
}

// AfterSibling places immediately after sibling.
func AfterSibling(sibling division.ID) Placement {
	return Placement{Kind: After, Anchor: sibling}
}

// Child reports whether the anchor becomes the parent.
func (p Placement) Child() bool {
	return p.Kind == FirstChild || p.Kind == LastChild
}

// Sibling reports whether the anchor becomes a sibling.
func (p Placement) Sibling() bool {
	return p.Kind == Before || p.Kind == After
}

// Validate checks that the placement is well formed.
func (p Placement) Validate() error {
	switch p.Kind {
	case Root:
		if p.Book == "" {
			return fmt.Errorf("root placement requires a book")
		}
	case FirstChild, LastChild, Before, After:
		if p.Anchor == "" {
			return fmt.Errorf("%s placement requires an anchor", p.Kind)
		}
	default:
		return fmt.Errorf("unrecognized placement %s", p.Kind)
	}
	return nil
}

func (p Placement) String() string {
	if p.Kind == Root {
		return fmt.Sprintf("root of %s", p.Book)
	}
	return fmt.Sprintf("%s %s", p.Kind, p.Anchor)
}
