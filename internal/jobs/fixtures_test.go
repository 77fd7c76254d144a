package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/metadata"
	"github.com/pagekeep/pagekeep/internal/testsupport"
	"github.com/pagekeep/pagekeep/relate"
)

func newTestLoader(t *testing.T, store *testsupport.MemStore) relate.Loader {
	t.Helper()

	loader, err := relate.NewLoader(store, entities.Schema())
	require.NoError(t, err)

	return loader
}

type fakeFetcher struct {
	byISBN map[string]*metadata.BookMetadata
}

func (f *fakeFetcher) FetchByISBN(_ context.Context, isbn string) (*metadata.BookMetadata, error) {
	found, ok := f.byISBN[isbn]
	if !ok {
		return nil, metadata.ErrNotFound
	}

	return found, nil
}
