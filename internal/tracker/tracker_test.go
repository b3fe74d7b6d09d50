package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
)

func TestBudgetProgressOverspent(t *testing.T) {
	b := core.Budget{ID: "b1", Category: "Shopping", Amount: core.Money{Cents: 30000}}
	p, err := BudgetProgress(b, core.Money{Cents: 31000})
	require.NoError(t, err)
	assert.InDelta(t, 1.0333, p.Ratio, 0.0001)
	assert.Equal(t, StatusOverspent, p.Status)
	assert.Equal(t, int64(-1000), p.Remaining.Cents)
}

func TestBudgetProgressBoundary(t *testing.T) {
	b := core.Budget{Category: "Food", Amount: core.Money{Cents: 30000}}
	p, err := BudgetProgress(b, core.Money{Cents: 30000})
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Ratio)
	assert.Equal(t, StatusOnTrack, p.Status)
}

func TestBudgetProgressRejectsZeroAmount(t *testing.T) {
	_, err := BudgetProgress(core.Budget{Category: "Food"}, core.Money{Cents: 10})
	assert.True(t, core.IsValidation(err))
}

func TestBudgetRatioMonotonic(t *testing.T) {
	b := core.Budget{Category: "Food", Amount: core.Money{Cents: 777}}
	prev := -1.0
	for spent := int64(0); spent <= 2000; spent += 13 {
		p, err := BudgetProgress(b, core.Money{Cents: spent})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p.Ratio, prev)
		assert.Equal(t, p.Ratio > 1.0, p.Status == StatusOverspent)
		prev = p.Ratio
	}
}

func TestToggleReminderPaid(t *testing.T) {
	r := core.Reminder{ID: "r1", DueDate: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), Frequency: core.Monthly}
	paid := ToggleReminderPaid(r)
	assert.True(t, paid.IsPaid)
	assert.Equal(t, r.DueDate, paid.DueDate)
	assert.False(t, ToggleReminderPaid(paid).IsPaid)
}

func TestNextDueDate(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		name string
		freq core.Frequency
		due  time.Time
		want time.Time
		ok   bool
	}{
		{"once has no next", core.Once, day(2025, 1, 31), time.Time{}, false},
		{"weekly", core.Weekly, day(2025, 12, 29), day(2026, 1, 5), true},
		{"monthly clamps to february end", core.Monthly, day(2025, 1, 31), day(2025, 2, 28), true},
		{"monthly leap year", core.Monthly, day(2024, 1, 30), day(2024, 2, 29), true},
		{"monthly across year", core.Monthly, day(2025, 12, 15), day(2026, 1, 15), true},
		{"yearly from leap day", core.Yearly, day(2024, 2, 29), day(2025, 2, 28), true},
		{"unknown frequency", "daily", day(2025, 1, 1), time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextDueDate(core.Reminder{DueDate: tt.due, Frequency: tt.freq})
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestAdvance(t *testing.T) {
	r := core.Reminder{DueDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Frequency: core.Monthly, IsPaid: true}
	next, err := Advance(r)
	require.NoError(t, err)
	assert.Equal(t, time.April, next.DueDate.Month())
	assert.False(t, next.IsPaid)

	_, err = Advance(core.Reminder{Frequency: core.Once})
	assert.ErrorIs(t, err, ErrNoRecurrence)
}

func TestOverdueAndDueWithin(t *testing.T) {
	now := time.Date(2025, 5, 10, 15, 0, 0, 0, time.UTC)
	r := core.Reminder{DueDate: time.Date(2025, 5, 9, 0, 0, 0, 0, time.UTC)}
	assert.True(t, IsOverdue(r, now))
	assert.False(t, DueWithin(r, now, 72*time.Hour))

	r.DueDate = time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	assert.False(t, IsOverdue(r, now))
	assert.True(t, DueWithin(r, now, 0))

	r.DueDate = time.Date(2025, 5, 13, 0, 0, 0, 0, time.UTC)
	assert.True(t, DueWithin(r, now, 72*time.Hour))
	assert.False(t, DueWithin(r, now, 48*time.Hour))

	r.IsPaid = true
	assert.False(t, DueWithin(r, now, 72*time.Hour))
	r.DueDate = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, IsOverdue(r, now))
}

func TestRecurrenceForConcurrentLookups(t *testing.T) {
	freqs := []core.Frequency{core.Once, core.Weekly, core.Monthly, core.Yearly}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, f := range freqs {
				rule, err := RecurrenceFor(f)
				assert.NoError(t, err)
				assert.NotNil(t, rule)
			}
		}()
	}
	wg.Wait()

	_, err := RecurrenceFor("fortnightly")
	require.Error(t, err)
}
