package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finboard/internal/core"
	"finboard/internal/tracker"
)

// ReminderLister is the read side of the reminder store.
type ReminderLister interface {
	ListReminders(ctx context.Context) ([]core.Reminder, error)
}

// ReminderNotifier announces a reminder that needs attention; *LedgerService
// implements it.
type ReminderNotifier interface {
	PublishReminderDue(ctx context.Context, r core.Reminder) error
}

// ReminderProcessor scans reminders for unpaid ones that are overdue or due
// soon. It only notifies: due dates and paid flags are never changed here.
type ReminderProcessor struct {
	reminders ReminderLister
	notifier  ReminderNotifier
	horizon   time.Duration
}

func NewReminderProcessor(reminders ReminderLister, notifier ReminderNotifier, horizon time.Duration) *ReminderProcessor {
	return &ReminderProcessor{
		reminders: reminders,
		notifier:  notifier,
		horizon:   horizon,
	}
}

// ProcessDueReminders publishes one reminder.due event per reminder needing
// attention at now and returns how many were published.
func (p *ReminderProcessor) ProcessDueReminders(ctx context.Context, now time.Time) (int, error) {
	if p.reminders == nil || p.notifier == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	reminders, err := p.reminders.ListReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list reminders: %w", err)
	}

	slog.InfoContext(ctx, "Processing reminders",
		"total", len(reminders),
		"processing_date", now.Format("2006-01-02"),
		"horizon", p.horizon)

	notified := 0
	for _, r := range reminders {
		overdue := tracker.IsOverdue(r, now)
		if !overdue && !tracker.DueWithin(r, now, p.horizon) {
			continue
		}
		if err := p.notifier.PublishReminderDue(ctx, r); err != nil {
			slog.ErrorContext(ctx, "Failed to publish reminder",
				"reminder_id", r.ID,
				"description", r.Description,
				"error", err)
			continue
		}
		notified++
		slog.InfoContext(ctx, "Reminder needs attention",
			"reminder_id", r.ID,
			"description", r.Description,
			"due_date", r.DueDate.Format("2006-01-02"),
			"amount_cents", r.Amount.Cents,
			"overdue", overdue)
	}

	slog.InfoContext(ctx, "Reminder processing complete",
		"notified", notified,
		"total_checked", len(reminders))

	return notified, nil
}
