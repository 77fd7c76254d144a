// Package repositories defines the data-access interfaces of the library
// domain. PostgreSQL implementations live in the postgres subpackage.
package repositories

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrNoActiveLoan is returned when a return or extension targets a loan that
// is not open.
var ErrNoActiveLoan = errors.New("no active loan found")

// ListOptions carries offset pagination for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

const defaultListLimit = 100

// EffectiveLimit returns the limit to apply, falling back to the default
// when the caller did not set one.
func (o ListOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return defaultListLimit
	}

	return o.Limit
}
