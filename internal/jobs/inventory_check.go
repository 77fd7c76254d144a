package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pagekeep/pagekeep/internal/repositories"
)

const inventoryPageSize = 500

// InventoryCheck verifies that every book's available copies line up with its
// total copies minus the open loans, and reports the books that don't.
type InventoryCheck struct {
	books  repositories.BookRepository
	loans  repositories.LoanRepository
	logger *slog.Logger
}

// NewInventoryCheck creates the job.
func NewInventoryCheck(
	books repositories.BookRepository,
	loans repositories.LoanRepository,
	logger *slog.Logger,
) *InventoryCheck {

	return &InventoryCheck{books: books, loans: loans, logger: defaultLogger(logger)}
}

// InventoryMismatch describes one book whose copy counts are inconsistent.
type InventoryMismatch struct {
	BookID            int64  `json:"book_id"`
	Title             string `json:"title"`
	TotalCopies       int    `json:"total_copies"`
	AvailableCopies   int    `json:"available_copies"`
	OpenLoans         int    `json:"open_loans"`
	ExpectedAvailable int    `json:"expected_available"`
}

// InventoryCheckResult reports the outcome of one inventory check run.
type InventoryCheckResult struct {
	BooksChecked int                 `json:"books_checked"`
	Mismatches   []InventoryMismatch `json:"mismatches"`
}

// Run walks the whole catalog page by page and compares each book's counts
// against the open-loan tally.
func (j *InventoryCheck) Run(ctx context.Context) (InventoryCheckResult, error) {
	openByBook, err := j.loans.CountOpenByBook(ctx)
	if err != nil {
		return InventoryCheckResult{}, fmt.Errorf("failed to count open loans: %w", err)
	}

	result := InventoryCheckResult{Mismatches: []InventoryMismatch{}}

	for offset := 0; ; offset += inventoryPageSize {
		page, err := j.books.List(ctx, repositories.ListOptions{Limit: inventoryPageSize, Offset: offset})
		if err != nil {
			return InventoryCheckResult{}, fmt.Errorf("failed to list books: %w", err)
		}

		for _, book := range page {
			result.BooksChecked++

			openLoans := openByBook[book.ID]
			expected := book.TotalCopies - openLoans

			if book.AvailableCopies == expected {
				continue
			}

			result.Mismatches = append(result.Mismatches, InventoryMismatch{
				BookID:            book.ID,
				Title:             book.Title,
				TotalCopies:       book.TotalCopies,
				AvailableCopies:   book.AvailableCopies,
				OpenLoans:         openLoans,
				ExpectedAvailable: expected,
			})
		}

		if len(page) < inventoryPageSize {
			break
		}
	}

	if len(result.Mismatches) > 0 {
		j.logger.WarnContext(ctx, "inventory mismatches found",
			"books_checked", result.BooksChecked, "mismatches", len(result.Mismatches))
	} else {
		j.logger.InfoContext(ctx, "inventory consistent", "books_checked", result.BooksChecked)
	}

	return result, nil
}
