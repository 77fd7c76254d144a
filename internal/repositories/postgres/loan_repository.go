package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/repositories"
)

// PostgresLoanRepository implements LoanRepository using PostgreSQL.
type PostgresLoanRepository struct {
	db *sql.DB
}

// NewPostgresLoanRepository creates a new PostgreSQL loan repository.
func NewPostgresLoanRepository(db *sql.DB) repositories.LoanRepository {
	return &PostgresLoanRepository{db: db}
}

const loanColumns = `id, book_id, member_id, loan_date, return_date, is_returned, extension_days`

func scanLoan(scanner interface{ Scan(dest ...any) error }) (*entities.Loan, error) {
	var loan entities.Loan
	var returnDate sql.NullTime

	err := scanner.Scan(
		&loan.ID, &loan.BookID, &loan.MemberID, &loan.LoanDate,
		&returnDate, &loan.Returned, &loan.ExtensionDays,
	)
	if err != nil {
		return nil, err
	}

	if returnDate.Valid {
		loan.ReturnDate = &returnDate.Time
	}

	return &loan, nil
}

func nullableReturnDate(loan *entities.Loan) sql.NullTime {
	if loan.ReturnDate == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *loan.ReturnDate, Valid: true}
}

// Create inserts a new loan and fills in its generated id.
func (r *PostgresLoanRepository) Create(ctx context.Context, loan *entities.Loan) error {
	query := `
		INSERT INTO loans (book_id, member_id, loan_date, return_date, is_returned, extension_days)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		loan.BookID, loan.MemberID, loan.LoanDate,
		nullableReturnDate(loan), loan.Returned, loan.ExtensionDays,
	).Scan(&loan.ID)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}

	return nil
}

// GetByID retrieves one loan.
func (r *PostgresLoanRepository) GetByID(ctx context.Context, id int64) (*entities.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	loan, err := scanLoan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}

	return loan, nil
}

// List retrieves loans ordered by id.
func (r *PostgresLoanRepository) List(ctx context.Context, opts repositories.ListOptions) ([]*entities.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans ORDER BY id LIMIT $1 OFFSET $2`

	return r.queryLoans(ctx, "failed to list loans", query, opts.EffectiveLimit(), opts.Offset)
}

// Update overwrites an existing loan.
func (r *PostgresLoanRepository) Update(ctx context.Context, loan *entities.Loan) error {
	query := `
		UPDATE loans
		SET book_id = $2, member_id = $3, loan_date = $4,
			return_date = $5, is_returned = $6, extension_days = $7
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		loan.ID, loan.BookID, loan.MemberID, loan.LoanDate,
		nullableReturnDate(loan), loan.Returned, loan.ExtensionDays,
	)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}

	return requireOneAffected(result)
}

// GetOpenLoan retrieves the open loan of a book/member pair.
func (r *PostgresLoanRepository) GetOpenLoan(ctx context.Context, bookID, memberID int64) (*entities.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE book_id = $1 AND member_id = $2 AND is_returned = FALSE
		ORDER BY loan_date
		LIMIT 1
	`
	loan, err := scanLoan(r.db.QueryRowContext(ctx, query, bookID, memberID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNoActiveLoan
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open loan: %w", err)
	}

	return loan, nil
}

// ListOpen retrieves all loans that have not been returned yet.
func (r *PostgresLoanRepository) ListOpen(ctx context.Context) ([]*entities.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE is_returned = FALSE ORDER BY id`

	return r.queryLoans(ctx, "failed to list open loans", query)
}

// ListOverdue retrieves open loans whose due date lies before the given day.
// The due date is derived in SQL the same way Loan.DueDate derives it.
func (r *PostgresLoanRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]*entities.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE is_returned = FALSE
			AND loan_date + ($2 + extension_days) * INTERVAL '1 day' < $1::date
		ORDER BY id
	`

	return r.queryLoans(ctx, "failed to list overdue loans", query, asOf, entities.LoanDurationDays)
}

// ListLoanedBetween retrieves loans opened in the half-open interval [from, to).
func (r *PostgresLoanRepository) ListLoanedBetween(ctx context.Context, from, to time.Time) ([]*entities.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE loan_date >= $1 AND loan_date < $2
		ORDER BY id
	`

	return r.queryLoans(ctx, "failed to list loans in interval", query, from, to)
}

// CountOpenByBook returns the number of open loans per book id.
func (r *PostgresLoanRepository) CountOpenByBook(ctx context.Context) (map[int64]int, error) {
	query := `
		SELECT book_id, COUNT(*)
		FROM loans
		WHERE is_returned = FALSE
		GROUP BY book_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count open loans: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var bookID int64
		var count int
		if err := rows.Scan(&bookID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan open loan count: %w", err)
		}
		counts[bookID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating open loan counts: %w", err)
	}

	return counts, nil
}

func (r *PostgresLoanRepository) queryLoans(ctx context.Context, failMsg, query string, args ...any) ([]*entities.Loan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", failMsg, err)
	}
	defer rows.Close()

	var loans []*entities.Loan
	for rows.Next() {
		loan, scanErr := scanLoan(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", scanErr)
		}
		loans = append(loans, loan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating loans: %w", err)
	}

	return loans, nil
}
