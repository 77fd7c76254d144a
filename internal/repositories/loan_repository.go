package repositories

import (
	"context"
	"time"

	"github.com/pagekeep/pagekeep/internal/entities"
)

// LoanRepository defines the interface for loan data access.
type LoanRepository interface {
	// Create inserts a new loan and fills in its generated id.
	Create(ctx context.Context, loan *entities.Loan) error

	// GetByID retrieves one loan, ErrNotFound when missing.
	GetByID(ctx context.Context, id int64) (*entities.Loan, error)

	// List retrieves loans ordered by id.
	List(ctx context.Context, opts ListOptions) ([]*entities.Loan, error)

	// Update overwrites an existing loan, ErrNotFound when missing.
	Update(ctx context.Context, loan *entities.Loan) error

	// GetOpenLoan retrieves the open loan of a book/member pair,
	// ErrNoActiveLoan when there is none.
	GetOpenLoan(ctx context.Context, bookID, memberID int64) (*entities.Loan, error)

	// ListOpen retrieves all loans that have not been returned yet.
	ListOpen(ctx context.Context) ([]*entities.Loan, error)

	// ListOverdue retrieves open loans whose due date lies before the given day.
	ListOverdue(ctx context.Context, asOf time.Time) ([]*entities.Loan, error)

	// ListLoanedBetween retrieves loans opened in the half-open interval [from, to).
	ListLoanedBetween(ctx context.Context, from, to time.Time) ([]*entities.Loan, error)

	// CountOpenByBook returns the number of open loans per book id.
	CountOpenByBook(ctx context.Context) (map[int64]int, error)
}
