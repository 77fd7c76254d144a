package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/metadata"
	"github.com/pagekeep/pagekeep/internal/testsupport"
)

var testTime = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

func testClock() time.Time { return testTime }

func testLogger() *slog.Logger { return slog.Default() }

func Test_OverdueReminders_NotifiesOnlyOverdueMembers(t *testing.T) {
	// arrange
	store := testsupport.NewMemStore()
	author := store.AddAuthor(&entities.Author{FirstName: "Mary", LastName: "Shelley"})
	book := store.AddBook(&entities.Book{Title: "Frankenstein", AuthorID: author.ID, Genre: entities.GenreFiction})
	late := store.AddMember(&entities.Member{Name: "Late Reader", Email: "late@example.com"})
	punctual := store.AddMember(&entities.Member{Name: "Punctual Reader", Email: "punctual@example.com"})

	store.AddLoan(&entities.Loan{BookID: book.ID, MemberID: late.ID, LoanDate: testTime.AddDate(0, 0, -20)})
	store.AddLoan(&entities.Loan{BookID: book.ID, MemberID: punctual.ID, LoanDate: testTime.AddDate(0, 0, -3)})

	returnedDate := testTime.AddDate(0, 0, -25)
	store.AddLoan(&entities.Loan{
		BookID: book.ID, MemberID: punctual.ID,
		LoanDate: testTime.AddDate(0, 0, -40), ReturnDate: &returnedDate, Returned: true,
	})

	notifier := &testsupport.RecordingNotifier{}
	job := NewOverdueReminders(store.LoanRepo(), newTestLoader(t, store), notifier, testLogger(), testClock)

	// act
	result, err := job.Run(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.Overdue)
	assert.Equal(t, 1, result.RemindersSent)
	require.Equal(t, []string{"late@example.com"}, notifier.Recipients)
	assert.Contains(t, notifier.Bodies[0], `"Frankenstein" by Mary Shelley`)
	assert.Contains(t, notifier.Bodies[0], "6 day(s) overdue")
}

func Test_OverdueReminders_When_NotificationFails_ContinuesWithoutError(t *testing.T) {
	store := testsupport.NewMemStore()
	book := store.AddBook(&entities.Book{Title: "Dracula", Genre: entities.GenreFiction})
	member := store.AddMember(&entities.Member{Name: "Late Reader", Email: "late@example.com"})
	store.AddLoan(&entities.Loan{BookID: book.ID, MemberID: member.ID, LoanDate: testTime.AddDate(0, 0, -30)})

	notifier := &testsupport.RecordingNotifier{FailWith: errors.New("smtp down")}
	job := NewOverdueReminders(store.LoanRepo(), newTestLoader(t, store), notifier, testLogger(), testClock)

	result, err := job.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Overdue)
	assert.Equal(t, 0, result.RemindersSent)
}

func Test_MonthlyReport_AggregatesPreviousMonthByGenreAndAuthor(t *testing.T) {
	// arrange
	store := testsupport.NewMemStore()
	author := store.AddAuthor(&entities.Author{FirstName: "Mary", LastName: "Shelley"})
	gothic := store.AddBook(&entities.Book{Title: "Frankenstein", AuthorID: author.ID, Genre: entities.GenreFiction})
	anonymous := store.AddBook(&entities.Book{Title: "Beowulf", Genre: entities.GenreFiction})
	memoir := store.AddBook(&entities.Book{Title: "Some Life", Genre: entities.GenreBiography})
	member := store.AddMember(&entities.Member{Name: "Reader", Email: "reader@example.com"})

	march := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	store.AddLoan(&entities.Loan{BookID: gothic.ID, MemberID: member.ID, LoanDate: march})
	store.AddLoan(&entities.Loan{BookID: anonymous.ID, MemberID: member.ID, LoanDate: march.AddDate(0, 0, 10)})
	store.AddLoan(&entities.Loan{BookID: memoir.ID, MemberID: member.ID, LoanDate: march.AddDate(0, 0, 20)})

	// outside the report month
	store.AddLoan(&entities.Loan{BookID: gothic.ID, MemberID: member.ID, LoanDate: march.AddDate(0, -1, 0)})
	store.AddLoan(&entities.Loan{BookID: gothic.ID, MemberID: member.ID, LoanDate: testTime})

	job := NewMonthlyReport(store.LoanRepo(), newTestLoader(t, store), testLogger(), testClock)

	// act
	result, err := job.Run(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), result.From)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), result.To)
	assert.Equal(t, 3, result.TotalLoans)
	assert.Equal(t, map[string]int{entities.GenreFiction: 2, entities.GenreBiography: 1}, result.LoansByGenre)
	assert.Equal(t, map[string]int{"Mary Shelley": 1, unknownAuthor: 2}, result.LoansByAuthor)
}

func Test_MonthlyReport_When_NoLoans_ReturnsEmptyReport(t *testing.T) {
	store := testsupport.NewMemStore()
	job := NewMonthlyReport(store.LoanRepo(), newTestLoader(t, store), testLogger(), testClock)

	result, err := job.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, result.TotalLoans)
	assert.Empty(t, result.LoansByGenre)
}

func Test_InventoryCheck_FlagsInconsistentCopyCounts(t *testing.T) {
	// arrange
	store := testsupport.NewMemStore()
	consistent := store.AddBook(&entities.Book{
		Title: "Consistent", Genre: entities.GenreFiction, TotalCopies: 3, AvailableCopies: 2,
	})
	drifted := store.AddBook(&entities.Book{
		Title: "Drifted", Genre: entities.GenreFiction, TotalCopies: 2, AvailableCopies: 2,
	})
	member := store.AddMember(&entities.Member{Name: "Reader", Email: "reader@example.com"})

	store.AddLoan(&entities.Loan{BookID: consistent.ID, MemberID: member.ID, LoanDate: testTime})
	store.AddLoan(&entities.Loan{BookID: drifted.ID, MemberID: member.ID, LoanDate: testTime})

	job := NewInventoryCheck(store.BookRepo(), store.LoanRepo(), testLogger())

	// act
	result, err := job.Run(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, result.BooksChecked)
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, drifted.ID, result.Mismatches[0].BookID)
	assert.Equal(t, 1, result.Mismatches[0].ExpectedAvailable)
	assert.Equal(t, 2, result.Mismatches[0].AvailableCopies)
}

func Test_MetadataFetch_FillsMissingMetadata(t *testing.T) {
	// arrange
	store := testsupport.NewMemStore()
	known := store.AddBook(&entities.Book{Title: "Known", ISBN: "9780000000001", Genre: entities.GenreFiction})
	unknown := store.AddBook(&entities.Book{Title: "Unknown", ISBN: "9780000000002", Genre: entities.GenreFiction})
	complete := store.AddBook(&entities.Book{
		Title: "Complete", ISBN: "9780000000003", Genre: entities.GenreFiction,
		Publisher: "Existing", PageCount: 100,
	})

	fetcher := &fakeFetcher{byISBN: map[string]*metadata.BookMetadata{
		"9780000000001": {Publisher: "Orbit", PageCount: 320},
	}}
	job := NewMetadataFetch(store.BookRepo(), fetcher, testLogger())

	// act
	result, err := job.Run(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Failed)

	assert.Equal(t, "Orbit", known.Publisher)
	assert.Equal(t, 320, known.PageCount)
	assert.Empty(t, unknown.Publisher)
	assert.Equal(t, "Existing", complete.Publisher)
}

func Test_Scheduler_RunsJobsUntilCancelled(t *testing.T) {
	// arrange
	scheduler := NewScheduler(testLogger())

	var runs atomic.Int32
	scheduler.Register("counting", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	scheduler.Register("disabled", 0, func(context.Context) error {
		t.Error("disabled job must not run")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())

	// act
	scheduler.Start(ctx)

	assert.Eventually(t, func() bool { return runs.Load() >= 2 },
		2*time.Second, 5*time.Millisecond)

	cancel()
	scheduler.Wait()

	// assert: no further runs after the scheduler drained
	settled := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, runs.Load())
}
