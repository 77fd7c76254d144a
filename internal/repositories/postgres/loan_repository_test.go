package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/repositories"
)

func seedLoanFixtures(t *testing.T, db *sql.DB) (bookID, memberID int64) {
	t.Helper()
	ctx := context.Background()

	book := &entities.Book{Title: "Kindred", Genre: entities.GenreSciFi, TotalCopies: 2, AvailableCopies: 2}
	require.NoError(t, NewPostgresBookRepository(db).Create(ctx, book))

	member := &entities.Member{
		Name:           "Jo Reader",
		Email:          "jo@example.com",
		MembershipDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, NewPostgresMemberRepository(db).Create(ctx, member))

	return book.ID, member.ID
}

func Test_LoanRepository_OpenLoanLifecycle(t *testing.T) {
	// arrange
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := NewPostgresLoanRepository(db)
	ctx := context.Background()
	bookID, memberID := seedLoanFixtures(t, db)

	loan := &entities.Loan{
		BookID:   bookID,
		MemberID: memberID,
		LoanDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, loan))
	require.NotZero(t, loan.ID)

	// act: the open loan is found by its book/member pair
	open, err := repo.GetOpenLoan(ctx, bookID, memberID)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, open.ID)
	assert.Nil(t, open.ReturnDate)

	// act: returning it closes the pair
	returnDate := time.Date(2026, 4, 8, 0, 0, 0, 0, time.UTC)
	open.ReturnDate = &returnDate
	open.Returned = true
	require.NoError(t, repo.Update(ctx, open))

	// assert
	_, err = repo.GetOpenLoan(ctx, bookID, memberID)
	assert.ErrorIs(t, err, repositories.ErrNoActiveLoan)

	got, err := repo.GetByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.Returned)
	require.NotNil(t, got.ReturnDate)
	assert.True(t, got.ReturnDate.Equal(returnDate))
}

func Test_LoanRepository_ListOverdue_AppliesExtensionDays(t *testing.T) {
	// arrange
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := NewPostgresLoanRepository(db)
	ctx := context.Background()
	bookID, memberID := seedLoanFixtures(t, db)

	loanDate := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	plain := &entities.Loan{BookID: bookID, MemberID: memberID, LoanDate: loanDate}
	require.NoError(t, repo.Create(ctx, plain))

	extended := &entities.Loan{BookID: bookID, MemberID: memberID, LoanDate: loanDate, ExtensionDays: 7}
	require.NoError(t, repo.Create(ctx, extended))

	// act: one day past the plain due date, still inside the extension
	overdue, err := repo.ListOverdue(ctx, time.Date(2026, 4, 16, 0, 0, 0, 0, time.UTC))

	// assert
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, plain.ID, overdue[0].ID)
}

func Test_LoanRepository_ListLoanedBetween_UsesHalfOpenInterval(t *testing.T) {
	// arrange
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := NewPostgresLoanRepository(db)
	ctx := context.Background()
	bookID, memberID := seedLoanFixtures(t, db)

	inside := &entities.Loan{BookID: bookID, MemberID: memberID,
		LoanDate: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Create(ctx, inside))

	atUpperBound := &entities.Loan{BookID: bookID, MemberID: memberID,
		LoanDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Create(ctx, atUpperBound))

	// act
	loans, err := repo.ListLoanedBetween(ctx,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))

	// assert
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, inside.ID, loans[0].ID)
}

func Test_LoanRepository_CountOpenByBook(t *testing.T) {
	// arrange
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := NewPostgresLoanRepository(db)
	ctx := context.Background()
	bookID, memberID := seedLoanFixtures(t, db)

	loanDate := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &entities.Loan{BookID: bookID, MemberID: memberID, LoanDate: loanDate}))
	require.NoError(t, repo.Create(ctx, &entities.Loan{BookID: bookID, MemberID: memberID, LoanDate: loanDate}))

	returned := &entities.Loan{BookID: bookID, MemberID: memberID, LoanDate: loanDate, Returned: true}
	require.NoError(t, repo.Create(ctx, returned))

	// act
	counts, err := repo.CountOpenByBook(ctx)

	// assert
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{bookID: 2}, counts)
}
