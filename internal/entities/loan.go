package entities

import "time"

// LoanDurationDays is the standard loan period before extensions.
const LoanDurationDays = 14

// Loan represents a book loaned to a member. ReturnDate is nil while the loan
// is open. ExtensionDays accumulates granted due-date extensions.
type Loan struct {
	ID            int64
	BookID        int64
	MemberID      int64
	LoanDate      time.Time
	ReturnDate    *time.Time
	Returned      bool
	ExtensionDays int
}

// EntityType implements relate.Entity.
func (l *Loan) EntityType() string { return TypeLoan }

// EntityID implements relate.Entity.
func (l *Loan) EntityID() string { return FormatID(l.ID) }

// DueDate is the loan date plus the standard duration plus granted extensions.
func (l *Loan) DueDate() time.Time {
	return l.LoanDate.AddDate(0, 0, LoanDurationDays+l.ExtensionDays)
}

// IsOverdue reports whether the loan is past due at the given time.
// A returned loan is never overdue. The comparison works on calendar days:
// a loan becomes overdue the day after its due date.
func (l *Loan) IsOverdue(now time.Time) bool {
	if l.Returned {
		return false
	}

	return dateOnly(now).After(dateOnly(l.DueDate()))
}

// DaysUntilDue returns the calendar days remaining until the due date,
// negative when overdue. The second return value is false for returned loans,
// which have no due date anymore.
func (l *Loan) DaysUntilDue(now time.Time) (int, bool) {
	if l.Returned {
		return 0, false
	}

	days := int(dateOnly(l.DueDate()).Sub(dateOnly(now)).Hours() / 24)

	return days, true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
