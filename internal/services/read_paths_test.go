package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/repositories"
	"github.com/pagekeep/pagekeep/internal/testsupport"
)

func seedLibrary(store *testsupport.MemStore) {
	author := store.AddAuthor(&entities.Author{FirstName: "Octavia", LastName: "Butler"})

	kindred := store.AddBook(&entities.Book{
		Title: "Kindred", AuthorID: author.ID,
		ISBN: "9780807083697", Genre: entities.GenreSciFi, TotalCopies: 2, AvailableCopies: 2,
	})
	store.AddBook(&entities.Book{
		Title: "Parable of the Sower", AuthorID: author.ID,
		ISBN: "9780446675505", Genre: entities.GenreSciFi, TotalCopies: 1, AvailableCopies: 1,
	})
	store.AddBook(&entities.Book{
		Title: "Anonymous Pamphlet", Genre: entities.GenreNonFiction, TotalCopies: 1, AvailableCopies: 1,
	})

	member := store.AddMember(&entities.Member{
		Name: "Sam Reader", Email: "sam@example.com", MembershipDate: time.Now(),
	})

	store.AddLoan(&entities.Loan{BookID: kindred.ID, MemberID: member.ID, LoanDate: time.Now()})
}

func Test_ListBooks_ResolvesAuthorsWithOneFetch(t *testing.T) {
	// arrange
	store := testsupport.NewMemStore()
	seedLibrary(store)
	service := newTestService(t, store)
	store.FetchCalls = 0

	// act
	result, err := service.ListBooks(context.Background(), repositories.ListOptions{})

	// assert
	require.NoError(t, err)
	require.Equal(t, 3, result.Len())
	assert.Equal(t, 1, store.FetchCalls, "one author fetch for the whole batch")

	roots := result.Roots()

	first, ok := roots[0].One(entities.RelAuthor)
	require.True(t, ok)
	second, ok := roots[1].One(entities.RelAuthor)
	require.True(t, ok)
	assert.Same(t, first.Entity(), second.Entity(), "same author resolves to one shared value")

	_, ok = roots[2].One(entities.RelAuthor)
	assert.False(t, ok, "book without author resolves to absent")
	assert.True(t, roots[2].Resolved(entities.RelAuthor))
}

func Test_ListMembers_ResolvesLoansAndBooks(t *testing.T) {
	// arrange
	store := testsupport.NewMemStore()
	seedLibrary(store)
	service := newTestService(t, store)
	store.FetchCalls = 0

	// act
	result, err := service.ListMembers(context.Background(), repositories.ListOptions{})

	// assert
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())
	assert.Equal(t, 2, store.FetchCalls, "one fetch per plan segment: loans, loans.book")

	loans, ok := result.Roots()[0].Many(entities.RelLoans)
	require.True(t, ok)
	require.Len(t, loans, 1)

	book, ok := loans[0].One(entities.RelBook)
	require.True(t, ok)
	assert.Equal(t, "Kindred", book.Entity().(*entities.Book).Title)
}

func Test_ListLoans_ResolvesBookAuthorAndMember(t *testing.T) {
	// arrange
	store := testsupport.NewMemStore()
	seedLibrary(store)
	service := newTestService(t, store)
	store.FetchCalls = 0

	// act
	result, err := service.ListLoans(context.Background(), repositories.ListOptions{})

	// assert
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())
	assert.Equal(t, 3, store.FetchCalls, "one fetch per plan segment: book, book.author, member")

	loanNode := result.Roots()[0]

	book, ok := loanNode.One(entities.RelBook)
	require.True(t, ok)
	author, ok := book.One(entities.RelAuthor)
	require.True(t, ok)
	assert.Equal(t, "Octavia Butler", author.Entity().(*entities.Author).FullName())

	member, ok := loanNode.One(entities.RelMember)
	require.True(t, ok)
	assert.Equal(t, "sam@example.com", member.Entity().(*entities.Member).Email)
}

func Test_GetAuthor_ResolvesBooks(t *testing.T) {
	store := testsupport.NewMemStore()
	seedLibrary(store)
	service := newTestService(t, store)

	node, err := service.GetAuthor(context.Background(), 1)

	require.NoError(t, err)
	books, ok := node.Many(entities.RelBooks)
	require.True(t, ok)
	assert.Len(t, books, 2)
}

func Test_GetBook_When_Missing_ReturnsNotFound(t *testing.T) {
	store := testsupport.NewMemStore()
	service := newTestService(t, store)

	_, err := service.GetBook(context.Background(), 42)

	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func Test_CreateBook_When_GenreUnknown_Fails(t *testing.T) {
	store := testsupport.NewMemStore()
	service := newTestService(t, store)

	err := service.CreateBook(context.Background(), &entities.Book{Title: "X", Genre: "poetry"})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, store.Books)
}

func Test_CreateBook_DefaultsTotalCopies(t *testing.T) {
	store := testsupport.NewMemStore()
	service := newTestService(t, store)

	book := &entities.Book{Title: "X", Genre: entities.GenreFiction, AvailableCopies: 3}
	require.NoError(t, service.CreateBook(context.Background(), book))

	assert.Equal(t, 3, book.TotalCopies)
}

func Test_CreateMember_DefaultsMembershipDate(t *testing.T) {
	store := testsupport.NewMemStore()
	joined := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	service := newTestService(t, store, WithClock(fixedClock(joined)))

	member := &entities.Member{Name: "New Reader", Email: "new@example.com"}
	require.NoError(t, service.CreateMember(context.Background(), member))

	assert.Equal(t, joined, member.MembershipDate)
}
