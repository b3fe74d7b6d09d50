package report

import (
	"sort"

	"finboard/internal/core"
	"finboard/internal/replay"
	"finboard/internal/tracker"
)

type DailyTotal struct {
	Date    core.Date  `json:"date"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
}

type CategoryAmount struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
	Count    int        `json:"count"`
}

// Point is one day of a cumulative series.
type Point struct {
	Date  core.Date  `json:"date"`
	Value core.Money `json:"value"`
}

type AccountSeries struct {
	AccountID string  `json:"accountId"`
	Name      string  `json:"name"`
	Points    []Point `json:"points"`
}

type Summary struct {
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Net     core.Money `json:"net"`
	Count   int        `json:"count"`
}

// DailyTotals sums income and expense per day inside w, ascending. Days with
// no transactions appear as zero rows only when includeEmptyDays is set.
func DailyTotals(txs []core.Transaction, w Window, includeEmptyDays bool) []DailyTotal {
	byDay := map[core.Date]*DailyTotal{}
	for _, tx := range txs {
		day := tx.Day()
		if !w.Contains(day) {
			continue
		}
		row, ok := byDay[day]
		if !ok {
			row = &DailyTotal{Date: day}
			byDay[day] = row
		}
		if tx.Type == core.Income {
			row.Income.Cents += tx.Amount.Cents
		} else {
			row.Expense.Cents += tx.Amount.Cents
		}
	}
	var out []DailyTotal
	if includeEmptyDays {
		out = make([]DailyTotal, 0, w.Len())
		for _, d := range w.Days() {
			if row, ok := byDay[d]; ok {
				out = append(out, *row)
			} else {
				out = append(out, DailyTotal{Date: d})
			}
		}
		return out
	}
	out = make([]DailyTotal, 0, len(byDay))
	for _, row := range byDay {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// SpendingByCategory sums expenses per category inside w, largest first.
// Ties are ordered by category name.
func SpendingByCategory(txs []core.Transaction, w Window) []CategoryAmount {
	byCat := map[string]*CategoryAmount{}
	for _, tx := range txs {
		if tx.Type != core.Expense || !w.Contains(tx.Day()) {
			continue
		}
		row, ok := byCat[tx.Category]
		if !ok {
			row = &CategoryAmount{Category: tx.Category}
			byCat[tx.Category] = row
		}
		row.Amount.Cents += tx.Amount.Cents
		row.Count++
	}
	out := make([]CategoryAmount, 0, len(byCat))
	for _, row := range byCat {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// RunningBalance walks w ascending from opening, adding income and
// subtracting expense, and emits the closing value of every day.
func RunningBalance(txs []core.Transaction, w Window, opening core.Money) []Point {
	net := map[core.Date]int64{}
	for _, tx := range txs {
		if day := tx.Day(); w.Contains(day) {
			net[day] += tx.Signed()
		}
	}
	out := make([]Point, 0, w.Len())
	running := opening.Cents
	for _, d := range w.Days() {
		running += net[d]
		out = append(out, Point{Date: d, Value: core.Money{Cents: running}})
	}
	return out
}

// NetWorthSeries gives net worth at the end of every day in w. Transfer legs
// are skipped entirely since they move money between owned accounts.
func NetWorthSeries(accounts []core.Account, txs []core.Transaction, w Window) []Point {
	nonTransfers := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.IsTransfer() {
			nonTransfers = append(nonTransfers, tx)
		}
	}
	return walkBack(accounts, nonTransfers, w, func(b replay.Balances) int64 {
		return replay.NetWorth(b).Cents
	})
}

// AccountBalanceSeries gives every account's balance at the end of every day
// in w, transfers included.
func AccountBalanceSeries(accounts []core.Account, txs []core.Transaction, w Window) []AccountSeries {
	out := make([]AccountSeries, len(accounts))
	for i, a := range accounts {
		id := a.ID
		out[i] = AccountSeries{
			AccountID: id,
			Name:      a.Name,
			Points: walkBack(accounts, txs, w, func(b replay.Balances) int64 {
				return b[id]
			}),
		}
	}
	return out
}

// walkBack replays once to the window end, then steps backwards a day at a
// time reversing only that day's transactions.
func walkBack(accounts []core.Account, txs []core.Transaction, w Window, value func(replay.Balances) int64) []Point {
	days := w.Days()
	if len(days) == 0 {
		return nil
	}
	byDay := map[core.Date][]core.Transaction{}
	for _, tx := range txs {
		byDay[tx.Day()] = append(byDay[tx.Day()], tx)
	}
	b := replay.AsOf(accounts, txs, w.End)
	out := make([]Point, len(days))
	for i := len(days) - 1; i >= 0; i-- {
		out[i] = Point{Date: days[i], Value: core.Money{Cents: value(b)}}
		for _, tx := range byDay[days[i]] {
			if _, ok := b[tx.AccountID]; ok {
				b[tx.AccountID] -= tx.Signed()
			}
		}
	}
	return out
}

// BudgetsVsSpent computes progress for each budget over period. Spent is the
// sum of expenses in the budget's category; nothing is read from the budget.
func BudgetsVsSpent(budgets []core.Budget, txs []core.Transaction, period Window) ([]tracker.Progress, error) {
	spent := map[string]int64{}
	for _, tx := range txs {
		if tx.Type == core.Expense && period.Contains(tx.Day()) {
			spent[tx.Category] += tx.Amount.Cents
		}
	}
	out := make([]tracker.Progress, 0, len(budgets))
	for _, b := range budgets {
		p, err := tracker.BudgetProgress(b, core.Money{Cents: spent[b.Category]})
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Summarize totals income and expense inside w. Transfers are left out so the
// figures reflect money entering and leaving the household.
func Summarize(txs []core.Transaction, w Window) Summary {
	var s Summary
	for _, tx := range txs {
		if tx.IsTransfer() || !w.Contains(tx.Day()) {
			continue
		}
		if tx.Type == core.Income {
			s.Income.Cents += tx.Amount.Cents
		} else {
			s.Expense.Cents += tx.Amount.Cents
		}
		s.Count++
	}
	s.Net.Cents = s.Income.Cents - s.Expense.Cents
	return s
}
