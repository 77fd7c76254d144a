package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/relate"
	relatepg "github.com/pagekeep/pagekeep/relate/postgres"
)

// NewRelateRegistry maps the library tables for the relationship loader's
// PostgreSQL source. Column order must match the scan destinations of the
// row factories.
func NewRelateRegistry() relatepg.Registry {
	return relatepg.NewRegistry().
		Map(entities.TypeAuthor, relatepg.Mapping{
			Table:    "authors",
			IDColumn: "id",
			Columns:  []string{"id", "first_name", "last_name", "biography"},
			NewRow: func() (relate.Entity, []any) {
				author := &entities.Author{}
				return author, []any{&author.ID, &author.FirstName, &author.LastName, &author.Biography}
			},
		}).
		Map(entities.TypeBook, relatepg.Mapping{
			Table:    "books",
			IDColumn: "id",
			Columns: []string{
				"id", "title", "author_id", "isbn", "genre",
				"total_copies", "available_copies", "publisher", "page_count",
			},
			NewRow: func() (relate.Entity, []any) {
				book := &entities.Book{}
				return book, []any{
					&book.ID, &book.Title, nullFK(&book.AuthorID), &book.ISBN, &book.Genre,
					&book.TotalCopies, &book.AvailableCopies, &book.Publisher, &book.PageCount,
				}
			},
		}).
		Map(entities.TypeMember, relatepg.Mapping{
			Table:    "members",
			IDColumn: "id",
			Columns:  []string{"id", "name", "email", "membership_date"},
			NewRow: func() (relate.Entity, []any) {
				member := &entities.Member{}
				return member, []any{&member.ID, &member.Name, &member.Email, &member.MembershipDate}
			},
		}).
		Map(entities.TypeLoan, relatepg.Mapping{
			Table:    "loans",
			IDColumn: "id",
			Columns: []string{
				"id", "book_id", "member_id", "loan_date",
				"return_date", "is_returned", "extension_days",
			},
			NewRow: func() (relate.Entity, []any) {
				loan := &entities.Loan{}
				return loan, []any{
					&loan.ID, &loan.BookID, &loan.MemberID, &loan.LoanDate,
					nullTime(&loan.ReturnDate), &loan.Returned, &loan.ExtensionDays,
				}
			},
		}).
		MapToMany(entities.TypeAuthor, entities.RelBooks,
			relatepg.ToManyMapping{Target: entities.TypeBook, FKColumn: "author_id"}).
		MapToMany(entities.TypeBook, entities.RelLoans,
			relatepg.ToManyMapping{Target: entities.TypeLoan, FKColumn: "book_id"}).
		MapToMany(entities.TypeMember, entities.RelLoans,
			relatepg.ToManyMapping{Target: entities.TypeLoan, FKColumn: "member_id"})
}

// fkScanner scans a nullable integer foreign-key column, mapping SQL NULL to
// the zero id.
type fkScanner struct {
	dst *int64
}

func nullFK(dst *int64) sql.Scanner {
	return &fkScanner{dst: dst}
}

func (s *fkScanner) Scan(value any) error {
	if value == nil {
		*s.dst = 0
		return nil
	}

	v, ok := value.(int64)
	if !ok {
		return fmt.Errorf("unexpected foreign-key column type %T", value)
	}

	*s.dst = v

	return nil
}

// timeScanner scans a nullable timestamp column into an optional time field.
type timeScanner struct {
	dst **time.Time
}

func nullTime(dst **time.Time) sql.Scanner {
	return &timeScanner{dst: dst}
}

func (s *timeScanner) Scan(value any) error {
	if value == nil {
		*s.dst = nil
		return nil
	}

	t, ok := value.(time.Time)
	if !ok {
		return fmt.Errorf("unexpected timestamp column type %T", value)
	}

	*s.dst = &t

	return nil
}
