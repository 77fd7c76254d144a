// Package entities defines the domain model of the library: authors, books,
// members and loans, together with the relationship schema the loader
// resolves against.
package entities

import "strconv"

// Entity type names as declared in the domain schema.
const (
	TypeAuthor = "author"
	TypeBook   = "book"
	TypeMember = "member"
	TypeLoan   = "loan"
)

// Relationship names as declared in the domain schema.
const (
	RelAuthor = "author"
	RelBooks  = "books"
	RelLoans  = "loans"
	RelBook   = "book"
	RelMember = "member"
)

// FormatID renders a numeric primary key as the string id used on the wire
// and inside the loader.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseID parses a string id back into a numeric primary key.
func ParseID(id string) (int64, error) {
	return strconv.ParseInt(id, 10, 64)
}
