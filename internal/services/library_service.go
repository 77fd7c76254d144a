// Package services implements the application operations of the library:
// catalog and membership management, circulation (loans, returns, due-date
// extensions) and the read paths that resolve entity relationships in bulk.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/repositories"
	"github.com/pagekeep/pagekeep/relate"
)

// ErrValidation wraps input validation failures so that the transport layer
// can map them to a client error uniformly.
var ErrValidation = errors.New("validation failed")

// Fetch plans of the read paths. Each list and get operation resolves the
// relationships its response embeds with one plan, so the number of queries
// stays constant regardless of the batch size.
var (
	authorPlan = relate.BuildFetchPlan().With("books").Finalize()
	bookPlan   = relate.BuildFetchPlan().With("author").Finalize()
	memberPlan = relate.BuildFetchPlan().With("loans.book").Finalize()
	loanPlan   = relate.BuildFetchPlan().With("book.author", "member").Finalize()
)

// LibraryService coordinates the repositories, the relationship loader and
// the notifier behind the REST and job surfaces.
type LibraryService struct {
	authors  repositories.AuthorRepository
	books    repositories.BookRepository
	members  repositories.MemberRepository
	loans    repositories.LoanRepository
	loader   relate.Loader
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// Option defines a functional option for configuring a LibraryService.
type Option func(*LibraryService)

// WithNotifier sets the notifier receiving loan and return confirmations.
func WithNotifier(notifier Notifier) Option {
	return func(s *LibraryService) {
		s.notifier = notifier
	}
}

// WithServiceLogger sets the logger for the service.
func WithServiceLogger(logger *slog.Logger) Option {
	return func(s *LibraryService) {
		s.logger = logger
	}
}

// WithClock overrides the time source, used by tests to pin "now".
func WithClock(now func() time.Time) Option {
	return func(s *LibraryService) {
		s.now = now
	}
}

// NewLibraryService creates the service with optional configuration.
func NewLibraryService(
	authors repositories.AuthorRepository,
	books repositories.BookRepository,
	members repositories.MemberRepository,
	loans repositories.LoanRepository,
	loader relate.Loader,
	options ...Option,
) *LibraryService {

	s := &LibraryService{
		authors: authors,
		books:   books,
		members: members,
		loans:   loans,
		loader:  loader,
		logger:  slog.Default(),
		now:     time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.notifier == nil {
		s.notifier = NewLogNotifier(s.logger)
	}

	return s
}

/***** authors *****/

// CreateAuthor validates and stores a new author.
func (s *LibraryService) CreateAuthor(ctx context.Context, author *entities.Author) error {
	if author.FirstName == "" || author.LastName == "" {
		return fmt.Errorf("%w: author needs a first and a last name", ErrValidation)
	}

	return s.authors.Create(ctx, author)
}

// GetAuthor retrieves one author with their books resolved.
func (s *LibraryService) GetAuthor(ctx context.Context, id int64) (relate.Node, error) {
	author, err := s.authors.GetByID(ctx, id)
	if err != nil {
		return relate.Node{}, err
	}

	return s.resolveOne(ctx, author, authorPlan)
}

// ListAuthors retrieves authors with their books resolved in bulk.
func (s *LibraryService) ListAuthors(ctx context.Context, opts repositories.ListOptions) (relate.Result, error) {
	authors, err := s.authors.List(ctx, opts)
	if err != nil {
		return relate.Result{}, err
	}

	return s.loader.Resolve(ctx, toRelateEntities(authors), authorPlan)
}

// UpdateAuthor overwrites an existing author.
func (s *LibraryService) UpdateAuthor(ctx context.Context, author *entities.Author) error {
	if author.FirstName == "" || author.LastName == "" {
		return fmt.Errorf("%w: author needs a first and a last name", ErrValidation)
	}

	return s.authors.Update(ctx, author)
}

// DeleteAuthor removes an author. Their books stay in the catalog without an
// author on record.
func (s *LibraryService) DeleteAuthor(ctx context.Context, id int64) error {
	return s.authors.Delete(ctx, id)
}

/***** books *****/

// CreateBook validates and stores a new book. A zero total-copies count
// defaults to the available copies.
func (s *LibraryService) CreateBook(ctx context.Context, book *entities.Book) error {
	if book.TotalCopies == 0 {
		book.TotalCopies = book.AvailableCopies
	}

	if err := validateBook(book); err != nil {
		return err
	}

	return s.books.Create(ctx, book)
}

// GetBook retrieves one book with its author resolved.
func (s *LibraryService) GetBook(ctx context.Context, id int64) (relate.Node, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return relate.Node{}, err
	}

	return s.resolveOne(ctx, book, bookPlan)
}

// ListBooks retrieves books with their authors resolved in bulk.
func (s *LibraryService) ListBooks(ctx context.Context, opts repositories.ListOptions) (relate.Result, error) {
	books, err := s.books.List(ctx, opts)
	if err != nil {
		return relate.Result{}, err
	}

	return s.loader.Resolve(ctx, toRelateEntities(books), bookPlan)
}

// UpdateBook overwrites an existing book.
func (s *LibraryService) UpdateBook(ctx context.Context, book *entities.Book) error {
	if err := validateBook(book); err != nil {
		return err
	}

	return s.books.Update(ctx, book)
}

// DeleteBook removes a book from the catalog.
func (s *LibraryService) DeleteBook(ctx context.Context, id int64) error {
	return s.books.Delete(ctx, id)
}

func validateBook(book *entities.Book) error {
	if book.Title == "" {
		return fmt.Errorf("%w: book needs a title", ErrValidation)
	}

	if !entities.ValidGenre(book.Genre) {
		return fmt.Errorf("%w: unknown genre %q", ErrValidation, book.Genre)
	}

	if book.AvailableCopies < 0 {
		return fmt.Errorf("%w: available copies must not be negative", ErrValidation)
	}

	if book.AvailableCopies > book.TotalCopies {
		return fmt.Errorf("%w: available copies exceed the %d total copies", ErrValidation, book.TotalCopies)
	}

	return nil
}

/***** members *****/

// CreateMember validates and stores a new member.
func (s *LibraryService) CreateMember(ctx context.Context, member *entities.Member) error {
	if member.Name == "" || member.Email == "" {
		return fmt.Errorf("%w: member needs a name and an email address", ErrValidation)
	}

	if member.MembershipDate.IsZero() {
		member.MembershipDate = s.now()
	}

	return s.members.Create(ctx, member)
}

// GetMember retrieves one member with their loans and the loaned books resolved.
func (s *LibraryService) GetMember(ctx context.Context, id int64) (relate.Node, error) {
	member, err := s.members.GetByID(ctx, id)
	if err != nil {
		return relate.Node{}, err
	}

	return s.resolveOne(ctx, member, memberPlan)
}

// ListMembers retrieves members with their loans and the loaned books
// resolved in bulk.
func (s *LibraryService) ListMembers(ctx context.Context, opts repositories.ListOptions) (relate.Result, error) {
	members, err := s.members.List(ctx, opts)
	if err != nil {
		return relate.Result{}, err
	}

	return s.loader.Resolve(ctx, toRelateEntities(members), memberPlan)
}

// UpdateMember overwrites an existing member.
func (s *LibraryService) UpdateMember(ctx context.Context, member *entities.Member) error {
	if member.Name == "" || member.Email == "" {
		return fmt.Errorf("%w: member needs a name and an email address", ErrValidation)
	}

	return s.members.Update(ctx, member)
}

// DeleteMember removes a member.
func (s *LibraryService) DeleteMember(ctx context.Context, id int64) error {
	return s.members.Delete(ctx, id)
}

/***** loans (read side) *****/

// GetLoan retrieves one loan with its book, the book's author and the member resolved.
func (s *LibraryService) GetLoan(ctx context.Context, id int64) (relate.Node, error) {
	loan, err := s.loans.GetByID(ctx, id)
	if err != nil {
		return relate.Node{}, err
	}

	return s.resolveOne(ctx, loan, loanPlan)
}

// ListLoans retrieves loans with their books, the books' authors and the
// members resolved in bulk.
func (s *LibraryService) ListLoans(ctx context.Context, opts repositories.ListOptions) (relate.Result, error) {
	loans, err := s.loans.List(ctx, opts)
	if err != nil {
		return relate.Result{}, err
	}

	return s.loader.Resolve(ctx, toRelateEntities(loans), loanPlan)
}

/***** helpers *****/

func (s *LibraryService) resolveOne(ctx context.Context, root relate.Entity, plan relate.Plan) (relate.Node, error) {
	result, err := s.loader.Resolve(ctx, []relate.Entity{root}, plan)
	if err != nil {
		return relate.Node{}, err
	}

	return result.Roots()[0], nil
}

func toRelateEntities[E relate.Entity](items []E) []relate.Entity {
	out := make([]relate.Entity, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}

	return out
}
