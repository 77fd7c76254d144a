package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/jobs"
	"github.com/pagekeep/pagekeep/internal/metadata"
	"github.com/pagekeep/pagekeep/internal/services"
	"github.com/pagekeep/pagekeep/internal/testsupport"
	"github.com/pagekeep/pagekeep/relate"
)

var handlerTestTime = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

type testServer struct {
	store    *testsupport.MemStore
	notifier *testsupport.RecordingNotifier
	handler  http.Handler
	health   func(ctx context.Context) error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := testsupport.NewMemStore()
	notifier := &testsupport.RecordingNotifier{}
	clock := testsupport.FixedClock(handlerTestTime)

	loader, err := relate.NewLoader(store, entities.Schema())
	require.NoError(t, err)

	service := services.NewLibraryService(
		store.AuthorRepo(), store.BookRepo(), store.MemberRepo(), store.LoanRepo(),
		loader,
		services.WithClock(clock),
		services.WithNotifier(notifier),
	)

	server := &testServer{store: store, notifier: notifier}

	handler := NewHandler(Deps{
		Service:          service,
		OverdueReminders: jobs.NewOverdueReminders(store.LoanRepo(), loader, notifier, nil, clock),
		MonthlyReport:    jobs.NewMonthlyReport(store.LoanRepo(), loader, nil, clock),
		InventoryCheck:   jobs.NewInventoryCheck(store.BookRepo(), store.LoanRepo(), nil),
		MetadataFetch:    jobs.NewMetadataFetch(store.BookRepo(), &staticFetcher{}, nil),
		HealthCheck: func(ctx context.Context) error {
			if server.health != nil {
				return server.health(ctx)
			}
			return nil
		},
		Clock: clock,
	})

	server.handler = handler.Router()

	return server
}

type staticFetcher struct{}

func (f *staticFetcher) FetchByISBN(context.Context, string) (*metadata.BookMetadata, error) {
	return nil, metadata.ErrNotFound
}

func (s *testServer) request(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}

	request := httptest.NewRequest(method, target, reader)
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)

	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()

	var decoded T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded))

	return decoded
}

func seedCatalog(s *testServer) (bookID, memberID int64) {
	author := s.store.AddAuthor(&entities.Author{FirstName: "Mary", LastName: "Shelley"})
	book := s.store.AddBook(&entities.Book{
		Title: "Frankenstein", AuthorID: author.ID, ISBN: "9780141439471",
		Genre: entities.GenreFiction, TotalCopies: 1, AvailableCopies: 1,
	})
	member := s.store.AddMember(&entities.Member{
		Name: "Jo Reader", Email: "jo@example.com", MembershipDate: handlerTestTime,
	})

	return book.ID, member.ID
}

func Test_ListBooks_EmbedsResolvedAuthors(t *testing.T) {
	// arrange
	server := newTestServer(t)
	seedCatalog(server)

	// act
	recorder := server.request(t, http.MethodGet, "/api/books", "")

	// assert
	require.Equal(t, http.StatusOK, recorder.Code)

	books := decodeBody[[]bookResponse](t, recorder)
	require.Len(t, books, 1)
	assert.Equal(t, "Frankenstein", books[0].Title)
	require.NotNil(t, books[0].Author)
	assert.Equal(t, "Mary", books[0].Author.FirstName)
}

func Test_GetBook_When_Unknown_Returns404(t *testing.T) {
	server := newTestServer(t)

	recorder := server.request(t, http.MethodGet, "/api/books/99", "")

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func Test_GetBook_When_IDMalformed_Returns400(t *testing.T) {
	server := newTestServer(t)

	recorder := server.request(t, http.MethodGet, "/api/books/not-a-number", "")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func Test_CreateAuthor_Returns201WithBody(t *testing.T) {
	server := newTestServer(t)

	recorder := server.request(t, http.MethodPost, "/api/authors",
		`{"first_name": "Octavia", "last_name": "Butler"}`)

	require.Equal(t, http.StatusCreated, recorder.Code)

	created := decodeBody[authorResponse](t, recorder)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Octavia", created.FirstName)
}

func Test_CreateBook_When_GenreInvalid_Returns400(t *testing.T) {
	server := newTestServer(t)

	recorder := server.request(t, http.MethodPost, "/api/books",
		`{"title": "X", "isbn": "1", "genre": "poetry", "available_copies": 1}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func Test_LoanBook_CreatesLoanAndConflictsWhenExhausted(t *testing.T) {
	// arrange
	server := newTestServer(t)
	bookID, memberID := seedCatalog(server)
	otherMember := server.store.AddMember(&entities.Member{Name: "Other", Email: "other@example.com"})

	loanPath := fmt.Sprintf("/api/books/%d/loan", bookID)

	// act: first loan succeeds
	recorder := server.request(t, http.MethodPost, loanPath,
		fmt.Sprintf(`{"member_id": %d}`, memberID))

	// assert
	require.Equal(t, http.StatusCreated, recorder.Code)

	loan := decodeBody[loanResponse](t, recorder)
	assert.Equal(t, bookID, loan.BookID)
	assert.Equal(t, memberID, loan.MemberID)
	assert.Equal(t, "2026-04-24", loan.DueDate)
	assert.Equal(t, 0, server.store.Books[bookID].AvailableCopies)

	// act: no copies left for the second member
	recorder = server.request(t, http.MethodPost, loanPath,
		fmt.Sprintf(`{"member_id": %d}`, otherMember.ID))

	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func Test_ReturnBook_When_NoOpenLoan_Returns409(t *testing.T) {
	server := newTestServer(t)
	bookID, memberID := seedCatalog(server)

	recorder := server.request(t, http.MethodPost,
		fmt.Sprintf("/api/books/%d/return", bookID),
		fmt.Sprintf(`{"member_id": %d}`, memberID))

	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func Test_ExtendLoan_ExtendsTheRequestedLoan(t *testing.T) {
	// arrange
	server := newTestServer(t)
	bookID, memberID := seedCatalog(server)
	loan := server.store.AddLoan(&entities.Loan{
		BookID: bookID, MemberID: memberID, LoanDate: handlerTestTime.AddDate(0, 0, -3),
	})

	// act
	recorder := server.request(t, http.MethodPost, "/api/loans/extend",
		fmt.Sprintf(`{"loan_id": %d, "additional_days": 5}`, loan.ID))

	// assert
	require.Equal(t, http.StatusOK, recorder.Code)

	extended := decodeBody[loanResponse](t, recorder)
	assert.Equal(t, loan.ID, extended.ID)
	assert.Equal(t, 5, server.store.Loans[loan.ID].ExtensionDays)
}

func Test_ExtendLoan_When_DaysNegative_Returns400(t *testing.T) {
	server := newTestServer(t)
	bookID, memberID := seedCatalog(server)
	loan := server.store.AddLoan(&entities.Loan{
		BookID: bookID, MemberID: memberID, LoanDate: handlerTestTime,
	})

	recorder := server.request(t, http.MethodPost, "/api/loans/extend",
		fmt.Sprintf(`{"loan_id": %d, "additional_days": -2}`, loan.ID))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func Test_ListMembers_EmbedsLoansWithBooks(t *testing.T) {
	// arrange
	server := newTestServer(t)
	bookID, memberID := seedCatalog(server)
	server.store.AddLoan(&entities.Loan{
		BookID: bookID, MemberID: memberID, LoanDate: handlerTestTime.AddDate(0, 0, -3),
	})

	// act
	recorder := server.request(t, http.MethodGet, "/api/members", "")

	// assert
	require.Equal(t, http.StatusOK, recorder.Code)

	members := decodeBody[[]memberResponse](t, recorder)
	require.Len(t, members, 1)
	require.Len(t, members[0].Loans, 1)
	require.NotNil(t, members[0].Loans[0].Book)
	assert.Equal(t, "Frankenstein", members[0].Loans[0].Book.Title)

	require.NotNil(t, members[0].Loans[0].DaysUntilDue)
	assert.Equal(t, 11, *members[0].Loans[0].DaysUntilDue)
}

func Test_RunInventoryCheck_ReturnsReport(t *testing.T) {
	server := newTestServer(t)
	seedCatalog(server)

	recorder := server.request(t, http.MethodPost, "/api/tasks/inventory-check", "")

	require.Equal(t, http.StatusOK, recorder.Code)

	report := decodeBody[jobs.InventoryCheckResult](t, recorder)
	assert.Equal(t, 1, report.BooksChecked)
	assert.Empty(t, report.Mismatches)
}

func Test_RunOverdueReminders_SendsReminders(t *testing.T) {
	server := newTestServer(t)
	bookID, memberID := seedCatalog(server)
	server.store.AddLoan(&entities.Loan{
		BookID: bookID, MemberID: memberID, LoanDate: handlerTestTime.AddDate(0, 0, -30),
	})

	recorder := server.request(t, http.MethodPost, "/api/tasks/overdue-reminders", "")

	require.Equal(t, http.StatusOK, recorder.Code)

	result := decodeBody[jobs.OverdueRemindersResult](t, recorder)
	assert.Equal(t, 1, result.Overdue)
	assert.Equal(t, 1, result.RemindersSent)
	assert.Equal(t, []string{"jo@example.com"}, server.notifier.Recipients)
}

func Test_Healthz_ReflectsHealthCheck(t *testing.T) {
	server := newTestServer(t)

	recorder := server.request(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, recorder.Code)

	server.health = func(context.Context) error { return errors.New("db down") }

	recorder = server.request(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func Test_Responses_CarryRequestID(t *testing.T) {
	server := newTestServer(t)

	recorder := server.request(t, http.MethodGet, "/api/books", "")

	assert.NotEmpty(t, recorder.Header().Get("X-Request-Id"))
}
