package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/repositories"
)

// ErrNoAvailableCopies is returned when a loan is requested for a book with
// no copies left.
var ErrNoAvailableCopies = errors.New("no copies available for loan")

// DefaultExtensionDays is the extension granted when the caller does not
// specify one.
const DefaultExtensionDays = 7

// LoanBook opens a loan for the given book/member pair, decrements the book's
// available copies and sends a confirmation to the member. A failed
// confirmation does not fail the loan.
func (s *LibraryService) LoanBook(ctx context.Context, bookID, memberID int64) (*entities.Loan, error) {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	if book.AvailableCopies <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoAvailableCopies, book.Title)
	}

	loan := &entities.Loan{
		BookID:   bookID,
		MemberID: memberID,
		LoanDate: s.now(),
	}

	if err := s.loans.Create(ctx, loan); err != nil {
		return nil, err
	}

	if err := s.books.AdjustAvailableCopies(ctx, bookID, -1); err != nil {
		return nil, err
	}

	s.notify(ctx, member.Email,
		"Loan confirmation",
		fmt.Sprintf("You borrowed %q, due on %s.", book.Title, loan.DueDate().Format("2006-01-02")))

	return loan, nil
}

// ReturnBook closes the open loan of the given book/member pair and increments
// the book's available copies. ErrNoActiveLoan when there is no open loan.
func (s *LibraryService) ReturnBook(ctx context.Context, bookID, memberID int64) (*entities.Loan, error) {
	loan, err := s.loans.GetOpenLoan(ctx, bookID, memberID)
	if err != nil {
		return nil, err
	}

	returnDate := s.now()
	loan.ReturnDate = &returnDate
	loan.Returned = true

	if err := s.loans.Update(ctx, loan); err != nil {
		return nil, err
	}

	if err := s.books.AdjustAvailableCopies(ctx, bookID, 1); err != nil {
		return nil, err
	}

	return loan, nil
}

// ExtendDueDate grants an extension on the given loan by adding the days to
// its accumulated extensions. Zero days grants the default extension; negative
// days are rejected, and so is extending a loan that is already returned.
func (s *LibraryService) ExtendDueDate(ctx context.Context, loanID int64, extraDays int) (*entities.Loan, error) {
	if extraDays < 0 {
		return nil, fmt.Errorf("%w: extension days must not be negative, got %d", ErrValidation, extraDays)
	}

	if extraDays == 0 {
		extraDays = DefaultExtensionDays
	}

	loan, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if loan.Returned {
		return nil, fmt.Errorf("%w: loan %d is already returned", repositories.ErrNoActiveLoan, loanID)
	}

	loan.ExtensionDays += extraDays

	if err := s.loans.Update(ctx, loan); err != nil {
		return nil, err
	}

	return loan, nil
}

func (s *LibraryService) notify(ctx context.Context, recipient, subject, body string) {
	if err := s.notifier.Notify(ctx, recipient, subject, body); err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			"recipient", recipient, "subject", subject, "error", err)
	}
}
