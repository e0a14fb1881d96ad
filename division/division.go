package division

import (
	"fmt"

	"github.com/google/uuid"
)

/*
A division is one node of a book's outline: a part, section, chapter or any
other level. Divisions are stored under the nested-set model. Each one carries
a [Left, Right] interval, and the intervals of a book nest exactly like the
tree they encode, so ancestry reduces to integer comparisons.

Only the outline manager writes Left, Right, Depth and Order.
*/

////////////////////////////////////////////////////////////////////////////////

// ID identifies a division. IDs are UUIDv7 strings, so they are globally
// unique and sort by creation time.
type ID string

// NewID returns a fresh division ID.
func NewID() ID {
	return ID(uuid.Must(uuid.NewV7()).String())
}

// ParseID validates s as a division ID.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid division id %q: %w", s, err)
	}
	return ID(u.String()), nil
}

func (id ID) String() string {
	return string(id)
}

// Division is a node of an outline. A zero ParentID marks a root.
type Division struct {
	ID       ID     `json:"id"`
	Book     string `json:"book"`
	ParentID ID     `json:"parentId,omitempty"`
	Left     int    `json:"left"`
	Right    int    `json:"right"`
	Depth    int    `json:"depth"`
	Order    int    `json:"order"`
	Title    string `json:"title"`
}

// IsRoot reports whether d has no parent.
func (d Division) IsRoot() bool {
	return d.ParentID == ""
}

// IsLeaf reports whether d has no descendants.
func (d Division) IsLeaf() bool {
	return d.Right-d.Left == 1
}

// DescendantCount is the number of divisions nested under d.
func (d Division) DescendantCount() int {
	return (d.Right - d.Left - 1) / 2
}

// Size is the number of boundary slots d's subtree occupies.
func (d Division) Size() int {
	return d.Right - d.Left + 1
}

// Contains reports whether other's interval lies within d's, inclusive.
func (d Division) Contains(other Division) bool {
	return d.Left <= other.Left && other.Right <= d.Right
}

// StrictlyContains reports whether other is a proper descendant of d.
func (d Division) StrictlyContains(other Division) bool {
	return d.Left < other.Left && other.Right < d.Right
}

func (d Division) String() string {
	return fmt.Sprintf("%s[%d,%d]@%d#%d", d.ID, d.Left, d.Right, d.Depth, d.Order)
}
