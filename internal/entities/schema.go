package entities

import "github.com/pagekeep/pagekeep/relate"

// Schema declares the domain's relationship graph:
//
//	author --books--> book  (to-many)
//	book   --author-> author (to-one, absent when AuthorID is zero)
//	book   --loans--> loan  (to-many)
//	member --loans--> loan  (to-many)
//	loan   --book---> book  (to-one)
//	loan   --member-> member (to-one)
func Schema() relate.Schema {
	return relate.NewSchema().
		Declare(TypeAuthor,
			relate.ToMany(RelBooks, TypeBook)).
		Declare(TypeBook,
			relate.ToOne(RelAuthor, TypeAuthor, bookAuthorID),
			relate.ToMany(RelLoans, TypeLoan)).
		Declare(TypeMember,
			relate.ToMany(RelLoans, TypeLoan)).
		Declare(TypeLoan,
			relate.ToOne(RelBook, TypeBook, loanBookID),
			relate.ToOne(RelMember, TypeMember, loanMemberID))
}

func bookAuthorID(e relate.Entity) (string, bool) {
	book, ok := e.(*Book)
	if !ok || book.AuthorID == 0 {
		return "", false
	}

	return FormatID(book.AuthorID), true
}

func loanBookID(e relate.Entity) (string, bool) {
	loan, ok := e.(*Loan)
	if !ok || loan.BookID == 0 {
		return "", false
	}

	return FormatID(loan.BookID), true
}

func loanMemberID(e relate.Entity) (string, bool) {
	loan, ok := e.(*Loan)
	if !ok || loan.MemberID == 0 {
		return "", false
	}

	return FormatID(loan.MemberID), true
}
