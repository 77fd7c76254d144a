package repositories

import (
	"context"

	"github.com/pagekeep/pagekeep/internal/entities"
)

// BookRepository defines the interface for book data access.
type BookRepository interface {
	// Create inserts a new book and fills in its generated id.
	Create(ctx context.Context, book *entities.Book) error

	// GetByID retrieves one book, ErrNotFound when missing.
	GetByID(ctx context.Context, id int64) (*entities.Book, error)

	// List retrieves books ordered by id.
	List(ctx context.Context, opts ListOptions) ([]*entities.Book, error)

	// Update overwrites an existing book, ErrNotFound when missing.
	Update(ctx context.Context, book *entities.Book) error

	// Delete removes a book, ErrNotFound when missing.
	Delete(ctx context.Context, id int64) error

	// AdjustAvailableCopies adds delta to a book's available copies.
	// The count never drops below zero.
	AdjustAvailableCopies(ctx context.Context, id int64, delta int) error

	// ListMissingMetadata retrieves books the metadata-fetch job still has to fill in.
	ListMissingMetadata(ctx context.Context, opts ListOptions) ([]*entities.Book, error)

	// SetMetadata stores externally fetched metadata for a book.
	SetMetadata(ctx context.Context, id int64, publisher string, pageCount int) error
}
