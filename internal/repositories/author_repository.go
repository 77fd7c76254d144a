package repositories

import (
	"context"

	"github.com/pagekeep/pagekeep/internal/entities"
)

// AuthorRepository defines the interface for author data access.
type AuthorRepository interface {
	// Create inserts a new author and fills in its generated id.
	Create(ctx context.Context, author *entities.Author) error

	// GetByID retrieves one author, ErrNotFound when missing.
	GetByID(ctx context.Context, id int64) (*entities.Author, error)

	// List retrieves authors ordered by id.
	List(ctx context.Context, opts ListOptions) ([]*entities.Author, error)

	// Update overwrites an existing author, ErrNotFound when missing.
	Update(ctx context.Context, author *entities.Author) error

	// Delete removes an author, ErrNotFound when missing.
	Delete(ctx context.Context, id int64) error
}
