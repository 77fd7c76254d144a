// Package testsupport provides in-memory test doubles for the library's
// repositories and the relationship loader's bulk-fetch source, backed by one
// shared set of maps so service, job and handler tests can wire a full stack
// without a database.
package testsupport

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/repositories"
	"github.com/pagekeep/pagekeep/relate"
)

// MemStore holds the in-memory state. FetchCalls counts the bulk fetches the
// loader issued, so tests can assert the constant-query guarantee.
type MemStore struct {
	Authors map[int64]*entities.Author
	Books   map[int64]*entities.Book
	Members map[int64]*entities.Member
	Loans   map[int64]*entities.Loan

	FetchCalls int

	nextID int64
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		Authors: make(map[int64]*entities.Author),
		Books:   make(map[int64]*entities.Book),
		Members: make(map[int64]*entities.Member),
		Loans:   make(map[int64]*entities.Loan),
	}
}

func (s *MemStore) nextIdentity() int64 {
	s.nextID++
	return s.nextID
}

// AddAuthor stores an author, assigning its id.
func (s *MemStore) AddAuthor(author *entities.Author) *entities.Author {
	author.ID = s.nextIdentity()
	s.Authors[author.ID] = author
	return author
}

// AddBook stores a book, assigning its id.
func (s *MemStore) AddBook(book *entities.Book) *entities.Book {
	book.ID = s.nextIdentity()
	s.Books[book.ID] = book
	return book
}

// AddMember stores a member, assigning its id.
func (s *MemStore) AddMember(member *entities.Member) *entities.Member {
	member.ID = s.nextIdentity()
	s.Members[member.ID] = member
	return member
}

// AddLoan stores a loan, assigning its id.
func (s *MemStore) AddLoan(loan *entities.Loan) *entities.Loan {
	loan.ID = s.nextIdentity()
	s.Loans[loan.ID] = loan
	return loan
}

// AuthorRepo returns the store's AuthorRepository view.
func (s *MemStore) AuthorRepo() repositories.AuthorRepository { return authorRepo{s} }

// BookRepo returns the store's BookRepository view.
func (s *MemStore) BookRepo() repositories.BookRepository { return bookRepo{s} }

// MemberRepo returns the store's MemberRepository view.
func (s *MemStore) MemberRepo() repositories.MemberRepository { return memberRepo{s} }

// LoanRepo returns the store's LoanRepository view.
func (s *MemStore) LoanRepo() repositories.LoanRepository { return loanRepo{s} }

/***** AuthorRepository *****/

type authorRepo struct{ s *MemStore }

func (r authorRepo) Create(_ context.Context, author *entities.Author) error {
	r.s.AddAuthor(author)
	return nil
}

func (r authorRepo) GetByID(_ context.Context, id int64) (*entities.Author, error) {
	author, ok := r.s.Authors[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return author, nil
}

func (r authorRepo) List(_ context.Context, opts repositories.ListOptions) ([]*entities.Author, error) {
	all := make([]*entities.Author, 0, len(r.s.Authors))
	for _, author := range r.s.Authors {
		all = append(all, author)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, opts), nil
}

func (r authorRepo) Update(_ context.Context, author *entities.Author) error {
	if _, ok := r.s.Authors[author.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.s.Authors[author.ID] = author
	return nil
}

func (r authorRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.s.Authors[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.Authors, id)
	return nil
}

/***** BookRepository *****/

type bookRepo struct{ s *MemStore }

func (r bookRepo) Create(_ context.Context, book *entities.Book) error {
	r.s.AddBook(book)
	return nil
}

func (r bookRepo) GetByID(_ context.Context, id int64) (*entities.Book, error) {
	book, ok := r.s.Books[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return book, nil
}

func (r bookRepo) List(_ context.Context, opts repositories.ListOptions) ([]*entities.Book, error) {
	all := make([]*entities.Book, 0, len(r.s.Books))
	for _, book := range r.s.Books {
		all = append(all, book)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, opts), nil
}

func (r bookRepo) Update(_ context.Context, book *entities.Book) error {
	if _, ok := r.s.Books[book.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.s.Books[book.ID] = book
	return nil
}

func (r bookRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.s.Books[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.Books, id)
	return nil
}

func (r bookRepo) AdjustAvailableCopies(_ context.Context, id int64, delta int) error {
	book, ok := r.s.Books[id]
	if !ok {
		return repositories.ErrNotFound
	}
	book.AvailableCopies += delta
	if book.AvailableCopies < 0 {
		book.AvailableCopies = 0
	}
	return nil
}

func (r bookRepo) ListMissingMetadata(_ context.Context, opts repositories.ListOptions) ([]*entities.Book, error) {
	out := make([]*entities.Book, 0)
	for _, book := range r.s.Books {
		if !book.HasMetadata() {
			out = append(out, book)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, opts), nil
}

func (r bookRepo) SetMetadata(_ context.Context, id int64, publisher string, pageCount int) error {
	book, ok := r.s.Books[id]
	if !ok {
		return repositories.ErrNotFound
	}
	book.Publisher = publisher
	book.PageCount = pageCount
	return nil
}

/***** MemberRepository *****/

type memberRepo struct{ s *MemStore }

func (r memberRepo) Create(_ context.Context, member *entities.Member) error {
	r.s.AddMember(member)
	return nil
}

func (r memberRepo) GetByID(_ context.Context, id int64) (*entities.Member, error) {
	member, ok := r.s.Members[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return member, nil
}

func (r memberRepo) List(_ context.Context, opts repositories.ListOptions) ([]*entities.Member, error) {
	all := make([]*entities.Member, 0, len(r.s.Members))
	for _, member := range r.s.Members {
		all = append(all, member)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, opts), nil
}

func (r memberRepo) Update(_ context.Context, member *entities.Member) error {
	if _, ok := r.s.Members[member.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.s.Members[member.ID] = member
	return nil
}

func (r memberRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.s.Members[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.Members, id)
	return nil
}

/***** LoanRepository *****/

type loanRepo struct{ s *MemStore }

func (r loanRepo) Create(_ context.Context, loan *entities.Loan) error {
	r.s.AddLoan(loan)
	return nil
}

func (r loanRepo) GetByID(_ context.Context, id int64) (*entities.Loan, error) {
	loan, ok := r.s.Loans[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return loan, nil
}

func (r loanRepo) List(_ context.Context, opts repositories.ListOptions) ([]*entities.Loan, error) {
	return page(r.s.sortedLoans(func(*entities.Loan) bool { return true }), opts), nil
}

func (r loanRepo) Update(_ context.Context, loan *entities.Loan) error {
	if _, ok := r.s.Loans[loan.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.s.Loans[loan.ID] = loan
	return nil
}

func (r loanRepo) GetOpenLoan(_ context.Context, bookID, memberID int64) (*entities.Loan, error) {
	for _, loan := range r.s.sortedLoans(func(loan *entities.Loan) bool { return !loan.Returned }) {
		if loan.BookID == bookID && loan.MemberID == memberID {
			return loan, nil
		}
	}
	return nil, repositories.ErrNoActiveLoan
}

func (r loanRepo) ListOpen(_ context.Context) ([]*entities.Loan, error) {
	return r.s.sortedLoans(func(loan *entities.Loan) bool { return !loan.Returned }), nil
}

func (r loanRepo) ListOverdue(_ context.Context, asOf time.Time) ([]*entities.Loan, error) {
	return r.s.sortedLoans(func(loan *entities.Loan) bool { return loan.IsOverdue(asOf) }), nil
}

func (r loanRepo) ListLoanedBetween(_ context.Context, from, to time.Time) ([]*entities.Loan, error) {
	return r.s.sortedLoans(func(loan *entities.Loan) bool {
		return !loan.LoanDate.Before(from) && loan.LoanDate.Before(to)
	}), nil
}

func (r loanRepo) CountOpenByBook(_ context.Context) (map[int64]int, error) {
	counts := make(map[int64]int)
	for _, loan := range r.s.Loans {
		if !loan.Returned {
			counts[loan.BookID]++
		}
	}
	return counts, nil
}

func (s *MemStore) sortedLoans(keep func(*entities.Loan) bool) []*entities.Loan {
	out := make([]*entities.Loan, 0)
	for _, loan := range s.Loans {
		if keep(loan) {
			out = append(out, loan)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func page[E any](all []E, opts repositories.ListOptions) []E {
	if opts.Offset >= len(all) {
		return nil
	}
	all = all[opts.Offset:]
	if limit := opts.EffectiveLimit(); len(all) > limit {
		all = all[:limit]
	}
	return all
}

/***** relate.Source *****/

// FetchByIDs implements relate.Source.
func (s *MemStore) FetchByIDs(_ context.Context, entityType string, ids []string) ([]relate.Entity, error) {
	s.FetchCalls++

	out := make([]relate.Entity, 0, len(ids))
	for _, rawID := range ids {
		id, err := entities.ParseID(rawID)
		if err != nil {
			return nil, err
		}

		switch entityType {
		case entities.TypeAuthor:
			if author, ok := s.Authors[id]; ok {
				out = append(out, author)
			}
		case entities.TypeBook:
			if book, ok := s.Books[id]; ok {
				out = append(out, book)
			}
		case entities.TypeMember:
			if member, ok := s.Members[id]; ok {
				out = append(out, member)
			}
		case entities.TypeLoan:
			if loan, ok := s.Loans[id]; ok {
				out = append(out, loan)
			}
		default:
			return nil, fmt.Errorf("unknown entity type %q", entityType)
		}
	}

	return out, nil
}

// FetchByParentIDs implements relate.Source.
func (s *MemStore) FetchByParentIDs(
	_ context.Context,
	parentType string,
	relationship string,
	parentIDs []string,
) ([]relate.ParentLink, error) {
	s.FetchCalls++

	wanted := make(map[int64]struct{}, len(parentIDs))
	for _, rawID := range parentIDs {
		id, err := entities.ParseID(rawID)
		if err != nil {
			return nil, err
		}
		wanted[id] = struct{}{}
	}

	links := make([]relate.ParentLink, 0)

	switch {
	case parentType == entities.TypeAuthor && relationship == entities.RelBooks:
		for _, book := range s.Books {
			if _, ok := wanted[book.AuthorID]; ok {
				links = append(links, relate.ParentLink{ParentID: entities.FormatID(book.AuthorID), Entity: book})
			}
		}
	case parentType == entities.TypeBook && relationship == entities.RelLoans:
		for _, loan := range s.Loans {
			if _, ok := wanted[loan.BookID]; ok {
				links = append(links, relate.ParentLink{ParentID: entities.FormatID(loan.BookID), Entity: loan})
			}
		}
	case parentType == entities.TypeMember && relationship == entities.RelLoans:
		for _, loan := range s.Loans {
			if _, ok := wanted[loan.MemberID]; ok {
				links = append(links, relate.ParentLink{ParentID: entities.FormatID(loan.MemberID), Entity: loan})
			}
		}
	default:
		return nil, fmt.Errorf("unknown relationship %s.%s", parentType, relationship)
	}

	return links, nil
}

var (
	_ repositories.AuthorRepository = authorRepo{}
	_ repositories.BookRepository   = bookRepo{}
	_ repositories.MemberRepository = memberRepo{}
	_ repositories.LoanRepository   = loanRepo{}
	_ relate.Source                 = (*MemStore)(nil)
)

/***** observability doubles *****/

// RecordingNotifier captures notifications instead of delivering them.
type RecordingNotifier struct {
	Recipients []string
	Subjects   []string
	Bodies     []string
	FailWith   error
}

// Notify implements the services Notifier contract.
func (n *RecordingNotifier) Notify(_ context.Context, recipient, subject, body string) error {
	if n.FailWith != nil {
		return n.FailWith
	}

	n.Recipients = append(n.Recipients, recipient)
	n.Subjects = append(n.Subjects, subject)
	n.Bodies = append(n.Bodies, body)

	return nil
}

// FixedClock returns a clock pinned to the given time.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
