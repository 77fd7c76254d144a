package services

import (
	"context"
	"log/slog"
)

// Notifier delivers messages to members: loan confirmations and the overdue
// reminders of the background jobs.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// LogNotifier writes notifications to the log instead of delivering them.
// It stands in until a real delivery channel is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier logging at info level.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	n.logger.InfoContext(ctx, "notification",
		"recipient", recipient, "subject", subject, "body", body)

	return nil
}

var _ Notifier = (*LogNotifier)(nil)
