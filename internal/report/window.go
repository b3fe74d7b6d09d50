// Package report derives time-bucketed views from a ledger snapshot. Every
// function is pure: the same transactions and window give the same output.
package report

import (
	"errors"
	"time"

	"finboard/internal/core"
)

// ErrWindowOrder is returned when a window ends before it starts.
var ErrWindowOrder = errors.New("window end is before start")

// maxWindowDays bounds per-day series so a typo in a query cannot allocate
// years of points.
const maxWindowDays = 3660

// Window is an inclusive range of calendar days.
type Window struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

func (w Window) Validate() error {
	if w.Start.IsZero() {
		return core.Invalid("from", w.Start, core.ErrZeroDate)
	}
	if w.End.IsZero() {
		return core.Invalid("to", w.End, core.ErrZeroDate)
	}
	if w.End.Before(w.Start) {
		return core.Invalid("to", w.End.String(), ErrWindowOrder)
	}
	if n := w.Len(); n > maxWindowDays {
		return core.Invalid("to", w.End.String(), errors.New("window longer than ten years"))
	}
	return nil
}

// Len is the number of days in the window.
func (w Window) Len() int {
	return int(w.End.Sub(w.Start.Time)/(24*time.Hour)) + 1
}

// Days lists every day in the window, ascending.
func (w Window) Days() []core.Date {
	if w.End.Before(w.Start) {
		return nil
	}
	out := make([]core.Date, 0, w.Len())
	for d := w.Start; !d.After(w.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

func (w Window) Contains(d core.Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// MonthWindow covers a whole calendar month.
func MonthWindow(year int, month time.Month) Window {
	start := core.NewDate(year, int(month), 1)
	end := core.Date{Time: start.AddDate(0, 1, -1)}
	return Window{Start: start, End: end}
}

// LastDays is the window of n days ending on end, as the reports page shows.
func LastDays(end core.Date, n int) Window {
	if n < 1 {
		n = 1
	}
	return Window{Start: end.AddDays(-(n - 1)), End: end}
}
