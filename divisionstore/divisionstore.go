package divisionstore

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/nestedset"
)

/*
The division store is the durable home of every book's outline. It knows
nothing about nested-set rules; it offers point reads, ordered scans and the
bulk conditional updates that the outline manager composes into structural
mutations.

All writes go through a transaction scoped to a single book. Transactions on
the same book are serialized by the store itself, so the outline manager needs
no locks of its own, and a transaction either commits every statement it ran
or none of them. Readers outside a transaction observe a book either before or
after a commit, never in between.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrNotFound is returned when a division does not exist in the addressed
// book.
var ErrNotFound = errors.New("division not found")

// ErrDuplicateID is returned when an insert reuses an existing division ID.
var ErrDuplicateID = errors.New("duplicate division id")

// Ordering selects the sort order of a scan.
type Ordering uint8

const (
	// ByLeft sorts by ascending left boundary, which is pre-order.
	ByLeft Ordering = iota
	// ByDepthOrder sorts by depth, then sibling order, then ID.
	ByDepthOrder
)

func (o Ordering) String() string {
	switch o {
	case ByLeft:
		return "left"
	case ByDepthOrder:
		return "depth-order"
	default:
		return fmt.Sprintf("ordering(%d)", uint8(o))
	}
}

// Store is the division store.
type Store interface {
	// Lookup resolves a division by ID in any book.
	Lookup(ctx context.Context, id division.ID) (division.Division, error)
	// Get resolves a division within a book.
	Get(ctx context.Context, book string, id division.ID) (division.Division, error)
	// Scan returns every division of a book.
	Scan(ctx context.Context, book string, ordering Ordering) ([]division.Division, error)
	// Within returns the divisions of a book whose interval lies inside span,
	// by ascending left boundary.
	Within(ctx context.Context, book string, span nestedset.Span) ([]division.Division, error)
	// Books lists the books that have at least one division, sorted.
	Books(ctx context.Context) ([]string, error)
	// WithTx runs f in a transaction on book. If f returns an error the
	// transaction is rolled back and the error returned unchanged.
	WithTx(ctx context.Context, book string, f func(tx Tx) error) error
}

// Tx is a transaction on one book. Every method is scoped to that book.
type Tx interface {
	Book() string
	Get(ctx context.Context, id division.ID) (division.Division, error)
	Scan(ctx context.Context, ordering Ordering) ([]division.Division, error)
	// Siblings summarizes the children of parent, or the roots if parent is
	// empty, leaving out exclude.
	Siblings(ctx context.Context, parent division.ID, exclude division.ID) (nestedset.Siblings, error)
	// Displace shifts every left and right boundary at or beyond d.At.
	Displace(ctx context.Context, d nestedset.Displacement) error
	// ShiftSpan moves every division inside span by offset and adds
	// depthDelta to its depth.
	ShiftSpan(ctx context.Context, span nestedset.Span, offset int, depthDelta int) error
	// ShiftOrder applies an order shift to the matching siblings.
	ShiftOrder(ctx context.Context, shift nestedset.OrderShift) error
	Insert(ctx context.Context, d division.Division) error
	// Update overwrites the stored fields of an existing division.
	Update(ctx context.Context, d division.Division) error
	// DeleteSpan removes every division inside span and returns how many
	// were removed.
	DeleteSpan(ctx context.Context, span nestedset.Span) (int, error)
}

// All is the span covering every division of a book.
var All = nestedset.Span{Left: math.MinInt32, Right: math.MaxInt32}
