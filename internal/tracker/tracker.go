package tracker

import (
	"errors"
	"time"

	"finboard/internal/core"
)

const (
	StatusOnTrack   = "on-track"
	StatusOverspent = "overspent"
)

// ErrNoRecurrence is returned when advancing a one-off reminder.
var ErrNoRecurrence = errors.New("reminder does not recur")

type Progress struct {
	BudgetID  string     `json:"budgetId,omitempty"`
	Category  string     `json:"category"`
	Amount    core.Money `json:"amount"`
	Spent     core.Money `json:"spent"`
	Remaining core.Money `json:"remaining"`
	Ratio     float64    `json:"ratio"`
	Status    string     `json:"status"`
}

// BudgetProgress compares spent with the budget ceiling. Status is overspent
// exactly when the ratio exceeds 1.
func BudgetProgress(b core.Budget, spent core.Money) (Progress, error) {
	if b.Amount.Cents <= 0 {
		return Progress{}, core.Invalid("amount", b.Amount, core.ErrInvalidAmount)
	}
	ratio := float64(spent.Cents) / float64(b.Amount.Cents)
	status := StatusOnTrack
	if ratio > 1.0 {
		status = StatusOverspent
	}
	return Progress{
		BudgetID:  b.ID,
		Category:  b.Category,
		Amount:    b.Amount,
		Spent:     spent,
		Remaining: core.Money{Cents: b.Amount.Cents - spent.Cents},
		Ratio:     ratio,
		Status:    status,
	}, nil
}

// ToggleReminderPaid flips the paid flag. Nothing else changes.
func ToggleReminderPaid(r core.Reminder) core.Reminder {
	r.IsPaid = !r.IsPaid
	return r
}

// NextDueDate returns the due date that follows r.DueDate for its frequency.
func NextDueDate(r core.Reminder) (time.Time, bool) {
	rule, err := RecurrenceFor(r.Frequency)
	if err != nil {
		return time.Time{}, false
	}
	return rule.Next(r.DueDate)
}

// Advance moves a recurring reminder to its next due date and marks it unpaid.
// It is only ever applied on explicit request.
func Advance(r core.Reminder) (core.Reminder, error) {
	next, ok := NextDueDate(r)
	if !ok {
		return r, core.Invalid("frequency", r.Frequency, ErrNoRecurrence)
	}
	r.DueDate = next
	r.IsPaid = false
	return r, nil
}

// IsOverdue reports an unpaid reminder whose due day is before now's day.
func IsOverdue(r core.Reminder, now time.Time) bool {
	return !r.IsPaid && core.DateOf(r.DueDate).Before(core.DateOf(now))
}

// DueWithin reports an unpaid reminder due between today and today+horizon,
// inclusive on both ends.
func DueWithin(r core.Reminder, now time.Time, horizon time.Duration) bool {
	if r.IsPaid {
		return false
	}
	due := core.DateOf(r.DueDate)
	today := core.DateOf(now)
	limit := core.DateOf(now.Add(horizon))
	return !due.Before(today) && !due.After(limit)
}
