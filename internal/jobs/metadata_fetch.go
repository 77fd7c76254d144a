package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pagekeep/pagekeep/internal/metadata"
	"github.com/pagekeep/pagekeep/internal/repositories"
)

const metadataBatchSize = 50

// MetadataFetch fills in missing book metadata from the external catalog, one
// batch of books per run.
type MetadataFetch struct {
	books   repositories.BookRepository
	fetcher metadata.Fetcher
	logger  *slog.Logger
}

// NewMetadataFetch creates the job.
func NewMetadataFetch(
	books repositories.BookRepository,
	fetcher metadata.Fetcher,
	logger *slog.Logger,
) *MetadataFetch {

	return &MetadataFetch{books: books, fetcher: fetcher, logger: defaultLogger(logger)}
}

// MetadataFetchResult reports the outcome of one metadata-fetch run.
type MetadataFetchResult struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Run fetches metadata for up to one batch of books that still miss it.
// Unknown ISBNs are skipped, lookup failures are counted and logged; the run
// only fails when the context is cancelled or the store errors.
func (j *MetadataFetch) Run(ctx context.Context) (MetadataFetchResult, error) {
	books, err := j.books.ListMissingMetadata(ctx, repositories.ListOptions{Limit: metadataBatchSize})
	if err != nil {
		return MetadataFetchResult{}, fmt.Errorf("failed to list books missing metadata: %w", err)
	}

	var result MetadataFetchResult

	for _, book := range books {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		result.Checked++

		if book.ISBN == "" {
			result.Skipped++
			continue
		}

		fetched, err := j.fetcher.FetchByISBN(ctx, book.ISBN)
		if errors.Is(err, metadata.ErrNotFound) {
			result.Skipped++
			continue
		}
		if err != nil {
			result.Failed++
			j.logger.WarnContext(ctx, "metadata lookup failed",
				"book_id", book.ID, "isbn", book.ISBN, "error", err)
			continue
		}

		if err := j.books.SetMetadata(ctx, book.ID, fetched.Publisher, fetched.PageCount); err != nil {
			return result, fmt.Errorf("failed to store metadata for book %d: %w", book.ID, err)
		}

		result.Updated++
	}

	j.logger.InfoContext(ctx, "metadata fetch finished",
		"checked", result.Checked, "updated", result.Updated,
		"skipped", result.Skipped, "failed", result.Failed)

	return result, nil
}
