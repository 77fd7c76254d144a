// Package handlers exposes the library over REST. Every list and detail
// endpoint responds with its relationships embedded, resolved by the
// relationship loader in a constant number of queries per request.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/infrastructure/metrics"
	"github.com/pagekeep/pagekeep/internal/jobs"
	"github.com/pagekeep/pagekeep/internal/repositories"
	"github.com/pagekeep/pagekeep/internal/services"
	"github.com/pagekeep/pagekeep/relate"
)

// Deps bundles what the handler needs. Logger and Clock default when unset;
// Metrics and HealthCheck may stay nil.
type Deps struct {
	Service          *services.LibraryService
	OverdueReminders *jobs.OverdueReminders
	MonthlyReport    *jobs.MonthlyReport
	InventoryCheck   *jobs.InventoryCheck
	MetadataFetch    *jobs.MetadataFetch
	HealthCheck      func(ctx context.Context) error
	Logger           *slog.Logger
	Metrics          *metrics.HTTPMetrics
	Clock            func() time.Time
}

// Handler serves the REST endpoints.
type Handler struct {
	service          *services.LibraryService
	overdueReminders *jobs.OverdueReminders
	monthlyReport    *jobs.MonthlyReport
	inventoryCheck   *jobs.InventoryCheck
	metadataFetch    *jobs.MetadataFetch
	health           func(ctx context.Context) error
	logger           *slog.Logger
	metrics          *metrics.HTTPMetrics
	now              func() time.Time
}

// NewHandler creates the handler from its dependencies.
func NewHandler(deps Deps) *Handler {
	h := &Handler{
		service:          deps.Service,
		overdueReminders: deps.OverdueReminders,
		monthlyReport:    deps.MonthlyReport,
		inventoryCheck:   deps.InventoryCheck,
		metadataFetch:    deps.MetadataFetch,
		health:           deps.HealthCheck,
		logger:           deps.Logger,
		metrics:          deps.Metrics,
		now:              deps.Clock,
	}

	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}

	return h
}

// Router builds the route table and wraps it with the observability middleware.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/authors", h.listAuthors)
	mux.HandleFunc("POST /api/authors", h.createAuthor)
	mux.HandleFunc("GET /api/authors/{id}", h.getAuthor)
	mux.HandleFunc("PUT /api/authors/{id}", h.updateAuthor)
	mux.HandleFunc("DELETE /api/authors/{id}", h.deleteAuthor)

	mux.HandleFunc("GET /api/books", h.listBooks)
	mux.HandleFunc("POST /api/books", h.createBook)
	mux.HandleFunc("GET /api/books/{id}", h.getBook)
	mux.HandleFunc("PUT /api/books/{id}", h.updateBook)
	mux.HandleFunc("DELETE /api/books/{id}", h.deleteBook)
	mux.HandleFunc("POST /api/books/{id}/loan", h.loanBook)
	mux.HandleFunc("POST /api/books/{id}/return", h.returnBook)

	mux.HandleFunc("GET /api/members", h.listMembers)
	mux.HandleFunc("POST /api/members", h.createMember)
	mux.HandleFunc("GET /api/members/{id}", h.getMember)
	mux.HandleFunc("PUT /api/members/{id}", h.updateMember)
	mux.HandleFunc("DELETE /api/members/{id}", h.deleteMember)

	mux.HandleFunc("GET /api/loans", h.listLoans)
	mux.HandleFunc("GET /api/loans/{id}", h.getLoan)
	mux.HandleFunc("POST /api/loans/extend", h.extendLoan)

	mux.HandleFunc("POST /api/tasks/overdue-reminders", h.runOverdueReminders)
	mux.HandleFunc("POST /api/tasks/monthly-report", h.runMonthlyReport)
	mux.HandleFunc("POST /api/tasks/inventory-check", h.runInventoryCheck)
	mux.HandleFunc("POST /api/tasks/fetch-metadata", h.runMetadataFetch)

	mux.HandleFunc("GET /healthz", h.healthz)

	return h.withObservability(mux)
}

/***** authors *****/

func (h *Handler) listAuthors(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListAuthors(r.Context(), listOptions(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, h.authorsOf(result))
}

func (h *Handler) createAuthor(w http.ResponseWriter, r *http.Request) {
	var request authorRequest
	if !h.decode(w, r, &request) {
		return
	}

	author := request.toEntity(0)
	if err := h.service.CreateAuthor(r.Context(), author); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, authorFromNode(relate.NodeOf(author), h.now()))
}

func (h *Handler) getAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	node, err := h.service.GetAuthor(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, authorFromNode(node, h.now()))
}

func (h *Handler) updateAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var request authorRequest
	if !h.decode(w, r, &request) {
		return
	}

	author := request.toEntity(id)
	if err := h.service.UpdateAuthor(r.Context(), author); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, authorFromNode(relate.NodeOf(author), h.now()))
}

func (h *Handler) deleteAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAuthor(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

/***** books *****/

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListBooks(r.Context(), listOptions(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	now := h.now()
	books := make([]bookResponse, 0, result.Len())
	for _, node := range result.Roots() {
		books = append(books, bookFromNode(node, now))
	}

	h.writeJSON(w, r, http.StatusOK, books)
}

func (h *Handler) createBook(w http.ResponseWriter, r *http.Request) {
	var request bookRequest
	if !h.decode(w, r, &request) {
		return
	}

	book := request.toEntity(0)
	if err := h.service.CreateBook(r.Context(), book); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, bookFromNode(relate.NodeOf(book), h.now()))
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	node, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, bookFromNode(node, h.now()))
}

func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var request bookRequest
	if !h.decode(w, r, &request) {
		return
	}

	book := request.toEntity(id)
	if err := h.service.UpdateBook(r.Context(), book); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, bookFromNode(relate.NodeOf(book), h.now()))
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

/***** circulation *****/

func (h *Handler) loanBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var request loanRequest
	if !h.decode(w, r, &request) {
		return
	}

	loan, err := h.service.LoanBook(r.Context(), bookID, request.MemberID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, loanFromEntity(loan, h.now()))
}

func (h *Handler) returnBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var request loanRequest
	if !h.decode(w, r, &request) {
		return
	}

	loan, err := h.service.ReturnBook(r.Context(), bookID, request.MemberID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, loanFromEntity(loan, h.now()))
}

func (h *Handler) extendLoan(w http.ResponseWriter, r *http.Request) {
	var request extendRequest
	if !h.decode(w, r, &request) {
		return
	}

	loan, err := h.service.ExtendDueDate(r.Context(), request.LoanID, request.AdditionalDays)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, loanFromEntity(loan, h.now()))
}

/***** members *****/

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListMembers(r.Context(), listOptions(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	now := h.now()
	members := make([]memberResponse, 0, result.Len())
	for _, node := range result.Roots() {
		members = append(members, memberFromNode(node, now))
	}

	h.writeJSON(w, r, http.StatusOK, members)
}

func (h *Handler) createMember(w http.ResponseWriter, r *http.Request) {
	var request memberRequest
	if !h.decode(w, r, &request) {
		return
	}

	member, err := request.toEntity(0)
	if err != nil {
		h.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid membership_date: " + err.Error()})
		return
	}

	if err := h.service.CreateMember(r.Context(), member); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, memberFromNode(relate.NodeOf(member), h.now()))
}

func (h *Handler) getMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	node, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, memberFromNode(node, h.now()))
}

func (h *Handler) updateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var request memberRequest
	if !h.decode(w, r, &request) {
		return
	}

	member, err := request.toEntity(id)
	if err != nil {
		h.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid membership_date: " + err.Error()})
		return
	}

	if err := h.service.UpdateMember(r.Context(), member); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, memberFromNode(relate.NodeOf(member), h.now()))
}

func (h *Handler) deleteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteMember(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

/***** loans (read side) *****/

func (h *Handler) listLoans(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListLoans(r.Context(), listOptions(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	now := h.now()
	loans := make([]loanResponse, 0, result.Len())
	for _, node := range result.Roots() {
		loans = append(loans, loanFromNode(node, now))
	}

	h.writeJSON(w, r, http.StatusOK, loans)
}

func (h *Handler) getLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	node, err := h.service.GetLoan(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, loanFromNode(node, h.now()))
}

/***** health *****/

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

/***** helpers *****/

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := entities.ParseID(r.PathValue("id"))
	if err != nil {
		h.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return 0, false
	}

	return id, true
}

func (h *Handler) authorsOf(result relate.Result) []authorResponse {
	now := h.now()
	authors := make([]authorResponse, 0, result.Len())
	for _, node := range result.Roots() {
		authors = append(authors, authorFromNode(node, now))
	}

	return authors
}

func listOptions(r *http.Request) repositories.ListOptions {
	var opts repositories.ListOptions

	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		opts.Offset = offset
	}

	return opts
}
