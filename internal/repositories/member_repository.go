package repositories

import (
	"context"

	"github.com/pagekeep/pagekeep/internal/entities"
)

// MemberRepository defines the interface for member data access.
type MemberRepository interface {
	// Create inserts a new member and fills in its generated id.
	Create(ctx context.Context, member *entities.Member) error

	// GetByID retrieves one member, ErrNotFound when missing.
	GetByID(ctx context.Context, id int64) (*entities.Member, error)

	// List retrieves members ordered by id.
	List(ctx context.Context, opts ListOptions) ([]*entities.Member, error)

	// Update overwrites an existing member, ErrNotFound when missing.
	Update(ctx context.Context, member *entities.Member) error

	// Delete removes a member, ErrNotFound when missing.
	Delete(ctx context.Context, id int64) error
}
