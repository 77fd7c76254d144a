package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/repositories"
	"github.com/pagekeep/pagekeep/relate"
)

var reportPlan = relate.BuildFetchPlan().With("book.author").Finalize()

const unknownAuthor = "unknown"

// MonthlyReport aggregates the loans opened in the previous calendar month by
// genre and by author.
type MonthlyReport struct {
	loans  repositories.LoanRepository
	loader relate.Loader
	logger *slog.Logger
	now    func() time.Time
}

// NewMonthlyReport creates the job. Logger and clock default when nil.
func NewMonthlyReport(
	loans repositories.LoanRepository,
	loader relate.Loader,
	logger *slog.Logger,
	now func() time.Time,
) *MonthlyReport {

	return &MonthlyReport{loans: loans, loader: loader, logger: defaultLogger(logger), now: defaultClock(now)}
}

// MonthlyReportResult is the aggregated loan report for one calendar month,
// the half-open interval [From, To).
type MonthlyReportResult struct {
	From          time.Time      `json:"from"`
	To            time.Time      `json:"to"`
	TotalLoans    int            `json:"total_loans"`
	LoansByGenre  map[string]int `json:"loans_by_genre"`
	LoansByAuthor map[string]int `json:"loans_by_author"`
}

// Run builds the report for the month before the current one.
func (j *MonthlyReport) Run(ctx context.Context) (MonthlyReportResult, error) {
	now := j.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from := monthStart.AddDate(0, -1, 0)

	loans, err := j.loans.ListLoanedBetween(ctx, from, monthStart)
	if err != nil {
		return MonthlyReportResult{}, fmt.Errorf("failed to list loans of the report month: %w", err)
	}

	result := MonthlyReportResult{
		From:          from,
		To:            monthStart,
		TotalLoans:    len(loans),
		LoansByGenre:  make(map[string]int),
		LoansByAuthor: make(map[string]int),
	}

	if len(loans) == 0 {
		return result, nil
	}

	resolved, err := j.loader.Resolve(ctx, toRelateEntities(loans), reportPlan)
	if err != nil {
		return MonthlyReportResult{}, fmt.Errorf("failed to resolve report loans: %w", err)
	}

	for _, node := range resolved.Roots() {
		bookNode, ok := node.One(entities.RelBook)
		if !ok {
			continue
		}

		book := bookNode.Entity().(*entities.Book)
		result.LoansByGenre[book.Genre]++

		author := unknownAuthor
		if authorNode, ok := bookNode.One(entities.RelAuthor); ok {
			author = authorNode.Entity().(*entities.Author).FullName()
		}
		result.LoansByAuthor[author]++
	}

	j.logger.InfoContext(ctx, "monthly report built",
		"from", from.Format("2006-01-02"),
		"to", monthStart.Format("2006-01-02"),
		"total_loans", result.TotalLoans)

	return result, nil
}
