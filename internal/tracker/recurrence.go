// Package tracker holds budget progress and reminder state transitions.
//
// This file implements one recurrence strategy per reminder frequency. Each
// strategy computes the next due date after a given one. The rule table is
// fixed at init and only read afterwards.
package tracker

import (
	"fmt"
	"time"

	"finboard/internal/core"
)

// Recurrence computes the due date that follows due.
type Recurrence interface {
	// Next returns the following due date, or false when the frequency has none.
	Next(due time.Time) (time.Time, bool)
}

type OnceRule struct{}

func (OnceRule) Next(time.Time) (time.Time, bool) { return time.Time{}, false }

type WeeklyRule struct{}

func (WeeklyRule) Next(due time.Time) (time.Time, bool) {
	return due.AddDate(0, 0, 7), true
}

// MonthlyRule keeps the day of month, clamped to the last day of shorter
// months (Jan 31 -> Feb 28).
type MonthlyRule struct{}

func (MonthlyRule) Next(due time.Time) (time.Time, bool) {
	return addMonthsClamped(due, 1), true
}

// YearlyRule keeps month and day; Feb 29 falls back to Feb 28.
type YearlyRule struct{}

func (YearlyRule) Next(due time.Time) (time.Time, bool) {
	return addMonthsClamped(due, 12), true
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > lastDay {
		d = lastDay
	}
	return first.AddDate(0, 0, d-1)
}

var recurrences = map[core.Frequency]Recurrence{
	core.Once:    OnceRule{},
	core.Weekly:  WeeklyRule{},
	core.Monthly: MonthlyRule{},
	core.Yearly:  YearlyRule{},
}

// RecurrenceFor returns the rule for a frequency.
func RecurrenceFor(f core.Frequency) (Recurrence, error) {
	r, ok := recurrences[f]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", f)
	}
	return r, nil
}
