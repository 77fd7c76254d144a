package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/repositories"
	"github.com/pagekeep/pagekeep/internal/services"
	"github.com/pagekeep/pagekeep/relate"
)

var overduePlan = relate.BuildFetchPlan().With("book.author", "member").Finalize()

// OverdueReminders sends one reminder per overdue loan to the borrowing
// member. The books, their authors and the members of the whole overdue batch
// are resolved with three bulk fetches.
type OverdueReminders struct {
	loans    repositories.LoanRepository
	loader   relate.Loader
	notifier services.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewOverdueReminders creates the job. Logger and clock default when nil.
func NewOverdueReminders(
	loans repositories.LoanRepository,
	loader relate.Loader,
	notifier services.Notifier,
	logger *slog.Logger,
	now func() time.Time,
) *OverdueReminders {

	return &OverdueReminders{
		loans: loans, loader: loader, notifier: notifier,
		logger: defaultLogger(logger), now: defaultClock(now),
	}
}

// OverdueRemindersResult reports how many overdue loans were found and how
// many reminders went out.
type OverdueRemindersResult struct {
	Overdue       int `json:"overdue"`
	RemindersSent int `json:"reminders_sent"`
}

// Run finds the overdue loans and notifies their members. A failed
// notification is logged and skipped, the remaining reminders still go out.
func (j *OverdueReminders) Run(ctx context.Context) (OverdueRemindersResult, error) {
	asOf := j.now()

	overdue, err := j.loans.ListOverdue(ctx, asOf)
	if err != nil {
		return OverdueRemindersResult{}, fmt.Errorf("failed to list overdue loans: %w", err)
	}

	result := OverdueRemindersResult{Overdue: len(overdue)}
	if len(overdue) == 0 {
		return result, nil
	}

	resolved, err := j.loader.Resolve(ctx, toRelateEntities(overdue), overduePlan)
	if err != nil {
		return OverdueRemindersResult{}, fmt.Errorf("failed to resolve overdue loans: %w", err)
	}

	for _, node := range resolved.Roots() {
		loan := node.Entity().(*entities.Loan)

		memberNode, ok := node.One(entities.RelMember)
		if !ok {
			j.logger.WarnContext(ctx, "overdue loan without member", "loan_id", loan.ID)
			continue
		}
		member := memberNode.Entity().(*entities.Member)

		if err := j.notifier.Notify(ctx, member.Email, "Overdue book reminder", j.reminderBody(node, loan)); err != nil {
			j.logger.ErrorContext(ctx, "failed to send overdue reminder",
				"loan_id", loan.ID, "recipient", member.Email, "error", err)
			continue
		}

		result.RemindersSent++
	}

	j.logger.InfoContext(ctx, "overdue reminders finished",
		"overdue", result.Overdue, "reminders_sent", result.RemindersSent)

	return result, nil
}

func (j *OverdueReminders) reminderBody(node relate.Node, loan *entities.Loan) string {
	title := "a borrowed book"
	if bookNode, ok := node.One(entities.RelBook); ok {
		book := bookNode.Entity().(*entities.Book)
		title = fmt.Sprintf("%q", book.Title)

		if authorNode, ok := bookNode.One(entities.RelAuthor); ok {
			title = fmt.Sprintf("%q by %s", book.Title, authorNode.Entity().(*entities.Author).FullName())
		}
	}

	daysOverdue := 0
	if days, open := loan.DaysUntilDue(j.now()); open && days < 0 {
		daysOverdue = -days
	}

	return fmt.Sprintf(
		"Your loan of %s is %d day(s) overdue. It was due on %s, please return it as soon as possible.",
		title, daysOverdue, loan.DueDate().Format("2006-01-02"))
}
