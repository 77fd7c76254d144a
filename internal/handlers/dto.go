package handlers

import (
	"time"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/relate"
)

// The response shapes embed resolved relationships when the read path's fetch
// plan covered them and omit them otherwise.

type authorResponse struct {
	ID        int64          `json:"id"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Biography string         `json:"biography,omitempty"`
	Books     []bookResponse `json:"books,omitempty"`
}

type bookResponse struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	ISBN            string          `json:"isbn"`
	Genre           string          `json:"genre"`
	TotalCopies     int             `json:"total_copies"`
	AvailableCopies int             `json:"available_copies"`
	Publisher       string          `json:"publisher,omitempty"`
	PageCount       int             `json:"page_count,omitempty"`
	Author          *authorResponse `json:"author,omitempty"`
}

type memberResponse struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	MembershipDate string         `json:"membership_date"`
	Loans          []loanResponse `json:"loans,omitempty"`
}

type loanResponse struct {
	ID            int64           `json:"id"`
	BookID        int64           `json:"book_id"`
	MemberID      int64           `json:"member_id"`
	LoanDate      string          `json:"loan_date"`
	DueDate       string          `json:"due_date"`
	ReturnDate    *string         `json:"return_date,omitempty"`
	IsReturned    bool            `json:"is_returned"`
	ExtensionDays int             `json:"extension_days"`
	IsOverdue     bool            `json:"is_overdue"`
	DaysUntilDue  *int            `json:"days_until_due,omitempty"`
	Book          *bookResponse   `json:"book,omitempty"`
	Member        *memberResponse `json:"member,omitempty"`
}

const dateLayout = "2006-01-02"

func authorFromNode(node relate.Node, now time.Time) authorResponse {
	author := node.Entity().(*entities.Author)

	response := authorResponse{
		ID:        author.ID,
		FirstName: author.FirstName,
		LastName:  author.LastName,
		Biography: author.Biography,
	}

	if books, ok := node.Many(entities.RelBooks); ok {
		response.Books = make([]bookResponse, 0, len(books))
		for _, book := range books {
			response.Books = append(response.Books, bookFromNode(book, now))
		}
	}

	return response
}

func bookFromNode(node relate.Node, now time.Time) bookResponse {
	book := node.Entity().(*entities.Book)

	response := bookResponse{
		ID:              book.ID,
		Title:           book.Title,
		ISBN:            book.ISBN,
		Genre:           book.Genre,
		TotalCopies:     book.TotalCopies,
		AvailableCopies: book.AvailableCopies,
		Publisher:       book.Publisher,
		PageCount:       book.PageCount,
	}

	if authorNode, ok := node.One(entities.RelAuthor); ok {
		author := authorFromNode(authorNode, now)
		response.Author = &author
	}

	return response
}

func memberFromNode(node relate.Node, now time.Time) memberResponse {
	member := node.Entity().(*entities.Member)

	response := memberResponse{
		ID:             member.ID,
		Name:           member.Name,
		Email:          member.Email,
		MembershipDate: member.MembershipDate.Format(dateLayout),
	}

	if loans, ok := node.Many(entities.RelLoans); ok {
		response.Loans = make([]loanResponse, 0, len(loans))
		for _, loan := range loans {
			response.Loans = append(response.Loans, loanFromNode(loan, now))
		}
	}

	return response
}

func loanFromNode(node relate.Node, now time.Time) loanResponse {
	loan := node.Entity().(*entities.Loan)

	response := loanResponse{
		ID:            loan.ID,
		BookID:        loan.BookID,
		MemberID:      loan.MemberID,
		LoanDate:      loan.LoanDate.Format(dateLayout),
		DueDate:       loan.DueDate().Format(dateLayout),
		IsReturned:    loan.Returned,
		ExtensionDays: loan.ExtensionDays,
		IsOverdue:     loan.IsOverdue(now),
	}

	if loan.ReturnDate != nil {
		returned := loan.ReturnDate.Format(dateLayout)
		response.ReturnDate = &returned
	}

	if days, open := loan.DaysUntilDue(now); open {
		response.DaysUntilDue = &days
	}

	if bookNode, ok := node.One(entities.RelBook); ok {
		book := bookFromNode(bookNode, now)
		response.Book = &book
	}

	if memberNode, ok := node.One(entities.RelMember); ok {
		member := memberFromNode(memberNode, now)
		response.Member = &member
	}

	return response
}

func loanFromEntity(loan *entities.Loan, now time.Time) loanResponse {
	return loanFromNode(relate.NodeOf(loan), now)
}

/***** request payloads *****/

type authorRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Biography string `json:"biography"`
}

func (r authorRequest) toEntity(id int64) *entities.Author {
	return &entities.Author{ID: id, FirstName: r.FirstName, LastName: r.LastName, Biography: r.Biography}
}

type bookRequest struct {
	Title           string `json:"title"`
	AuthorID        int64  `json:"author_id"`
	ISBN            string `json:"isbn"`
	Genre           string `json:"genre"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
	Publisher       string `json:"publisher"`
	PageCount       int    `json:"page_count"`
}

func (r bookRequest) toEntity(id int64) *entities.Book {
	return &entities.Book{
		ID: id, Title: r.Title, AuthorID: r.AuthorID, ISBN: r.ISBN, Genre: r.Genre,
		TotalCopies: r.TotalCopies, AvailableCopies: r.AvailableCopies,
		Publisher: r.Publisher, PageCount: r.PageCount,
	}
}

type memberRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	MembershipDate string `json:"membership_date"`
}

func (r memberRequest) toEntity(id int64) (*entities.Member, error) {
	member := &entities.Member{ID: id, Name: r.Name, Email: r.Email}

	if r.MembershipDate != "" {
		parsed, err := time.Parse(dateLayout, r.MembershipDate)
		if err != nil {
			return nil, err
		}
		member.MembershipDate = parsed
	}

	return member, nil
}

type loanRequest struct {
	MemberID int64 `json:"member_id"`
}

type extendRequest struct {
	LoanID         int64 `json:"loan_id"`
	AdditionalDays int   `json:"additional_days"`
}
