package division

import "fmt"

// AnchorNotFoundError is returned when the parent or sibling a division is
// positioned against does not resolve.
type AnchorNotFoundError struct {
	Anchor ID
}

func (e AnchorNotFoundError) Error() string {
	return fmt.Sprintf("anchor division %s not found", e.Anchor)
}

func (e AnchorNotFoundError) Is(target error) bool {
	_, ok := target.(AnchorNotFoundError)
	return ok
}

// NodeNotFoundError is returned when the target of an operation does not
// resolve.
type NodeNotFoundError struct {
	ID ID
}

func (e NodeNotFoundError) Error() string {
	return fmt.Sprintf("division %s not found", e.ID)
}

func (e NodeNotFoundError) Is(target error) bool {
	_, ok := target.(NodeNotFoundError)
	return ok
}

// CrossGroupMoveError is returned when a division would be moved under an
// anchor that belongs to another book.
type CrossGroupMoveError struct {
	ID         ID
	Book       string
	AnchorBook string
}

func (e CrossGroupMoveError) Error() string {
	return fmt.Sprintf("cannot move division %s from book %s into book %s", e.ID, e.Book, e.AnchorBook)
}

func (e CrossGroupMoveError) Is(target error) bool {
	_, ok := target.(CrossGroupMoveError)
	return ok
}

// CycleDetectedError is returned when a division would be moved into its own
// subtree.
type CycleDetectedError struct {
	ID     ID
	Anchor ID
}

func (e CycleDetectedError) Error() string {
	return fmt.Sprintf("cannot move division %s relative to %s inside its own subtree", e.ID, e.Anchor)
}

func (e CycleDetectedError) Is(target error) bool {
	_, ok := target.(CycleDetectedError)
	return ok
}

// InvariantViolationError reports a nested-set invariant that does not hold.
// It indicates a bug or a corrupted book; RebuildTree repairs the latter.
type InvariantViolationError struct {
	Book   string
	ID     ID
	Reason string
}

func (e InvariantViolationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invariant violation in book %s: %s", e.Book, e.Reason)
	}
	return fmt.Sprintf("invariant violation in book %s at %s: %s", e.Book, e.ID, e.Reason)
}

func (e InvariantViolationError) Is(target error) bool {
	_, ok := target.(InvariantViolationError)
	return ok
}

// InvalidArgumentError is returned when a title, book name or placement is
// malformed.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e InvalidArgumentError) Is(target error) bool {
	_, ok := target.(InvalidArgumentError)
	return ok
}
