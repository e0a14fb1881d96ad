package division

import (
	"strings"
	"unicode/utf8"
)

// MaxTitleLength is the longest title a division may carry, in characters.
const MaxTitleLength = 255

// MaxBookLength is the longest book name, in characters.
const MaxBookLength = 255

// ValidateTitle checks a division title.
func ValidateTitle(title string) error {
	switch {
	case strings.TrimSpace(title) == "":
		return InvalidArgumentError{Field: "title", Reason: "must not be empty"}
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return InvalidArgumentError{Field: "title", Reason: "longer than 255 characters"}
	}
	return nil
}

// ValidateBook checks a book name. Book names appear in snapshot keys, so
// they may not contain slashes.
func ValidateBook(book string) error {
	switch {
	case book == "":
		return InvalidArgumentError{Field: "book", Reason: "must not be empty"}
	case utf8.RuneCountInString(book) > MaxBookLength:
		return InvalidArgumentError{Field: "book", Reason: "longer than 255 characters"}
	case strings.ContainsAny(book, "/\\"):
		return InvalidArgumentError{Field: "book", Reason: "must not contain slashes"}
	}
	return nil
}
