package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/testsupport"
	"github.com/pagekeep/pagekeep/relate"
)

// newTestService wires a LibraryService over an in-memory store and a real
// loader resolving against the domain schema.
func newTestService(t *testing.T, store *testsupport.MemStore, options ...Option) *LibraryService {
	t.Helper()

	loader, err := relate.NewLoader(store, entities.Schema())
	require.NoError(t, err)

	return NewLibraryService(
		store.AuthorRepo(), store.BookRepo(), store.MemberRepo(), store.LoanRepo(),
		loader, options...)
}

func fixedClock(t time.Time) func() time.Time {
	return testsupport.FixedClock(t)
}
