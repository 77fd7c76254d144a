package entities_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pagekeep/pagekeep/internal/entities"
)

func day(year int, month time.Month, dayOfMonth int) time.Time {
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func Test_Loan_DueDate(t *testing.T) {
	tests := []struct {
		name     string
		loan     entities.Loan
		expected time.Time
	}{
		{
			name:     "standard_duration",
			loan:     entities.Loan{LoanDate: day(2026, time.March, 1)},
			expected: day(2026, time.March, 15),
		},
		{
			name:     "with_extension_days",
			loan:     entities.Loan{LoanDate: day(2026, time.March, 1), ExtensionDays: 7},
			expected: day(2026, time.March, 22),
		},
		{
			name:     "across_month_boundary",
			loan:     entities.Loan{LoanDate: day(2026, time.January, 25)},
			expected: day(2026, time.February, 8),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.loan.DueDate())
		})
	}
}

func Test_Loan_IsOverdue(t *testing.T) {
	loan := entities.Loan{LoanDate: day(2026, time.March, 1)} // due March 15

	assert.False(t, loan.IsOverdue(day(2026, time.March, 14)))
	assert.False(t, loan.IsOverdue(day(2026, time.March, 15)), "a loan is not overdue on its due date")
	assert.True(t, loan.IsOverdue(day(2026, time.March, 16)))
}

func Test_Loan_IsOverdue_When_Returned_IsAlwaysFalse(t *testing.T) {
	returnDate := day(2026, time.April, 1)
	loan := entities.Loan{
		LoanDate:   day(2026, time.March, 1),
		Returned:   true,
		ReturnDate: &returnDate,
	}

	assert.False(t, loan.IsOverdue(day(2026, time.May, 1)))
}

func Test_Loan_DaysUntilDue(t *testing.T) {
	loan := entities.Loan{LoanDate: day(2026, time.March, 1)} // due March 15

	days, ok := loan.DaysUntilDue(day(2026, time.March, 10))
	assert.True(t, ok)
	assert.Equal(t, 5, days)

	days, ok = loan.DaysUntilDue(day(2026, time.March, 20))
	assert.True(t, ok)
	assert.Equal(t, -5, days, "overdue loans report negative days")

	loan.Returned = true
	_, ok = loan.DaysUntilDue(day(2026, time.March, 10))
	assert.False(t, ok, "returned loans have no due date anymore")
}

func Test_Schema_DeclaresAllDomainRelationships(t *testing.T) {
	schema := entities.Schema()

	for _, entityType := range []string{
		entities.TypeAuthor, entities.TypeBook, entities.TypeMember, entities.TypeLoan,
	} {
		assert.True(t, schema.HasType(entityType), entityType)
	}

	rel, ok := schema.Relationship(entities.TypeBook, entities.RelAuthor)
	assert.True(t, ok)
	assert.Equal(t, entities.TypeAuthor, rel.Target())

	_, ok = schema.Relationship(entities.TypeMember, entities.RelLoans)
	assert.True(t, ok)
}

func Test_Entities_ImplementStringIdentity(t *testing.T) {
	book := &entities.Book{ID: 42}
	member := &entities.Member{ID: 7}

	assert.Equal(t, entities.TypeBook, book.EntityType())
	assert.Equal(t, "42", book.EntityID())
	assert.Equal(t, "7", member.EntityID())

	parsed, err := entities.ParseID(book.EntityID())
	assert.NoError(t, err)
	assert.Equal(t, int64(42), parsed)
}
