package report

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"finboard/internal/core"
	"finboard/internal/ledger"
	"finboard/internal/replay"
	"finboard/internal/tracker"
)

// Request selects what Build computes.
type Request struct {
	Window           Window     `json:"window"`
	BudgetPeriod     Window     `json:"budgetPeriod"`
	Opening          core.Money `json:"opening"`
	IncludeEmptyDays bool       `json:"includeEmptyDays"`
}

// Dashboard bundles every report over one snapshot.
type Dashboard struct {
	Version         int64              `json:"version"`
	Window          Window             `json:"window"`
	NetWorth        replay.Breakdown   `json:"netWorth"`
	Summary         Summary            `json:"summary"`
	Daily           []DailyTotal       `json:"daily"`
	ByCategory      []CategoryAmount   `json:"byCategory"`
	RunningBalance  []Point            `json:"runningBalance"`
	NetWorthSeries  []Point            `json:"netWorthSeries"`
	AccountBalances []AccountSeries    `json:"accountBalances"`
	Budgets         []tracker.Progress `json:"budgets"`
}

// Build computes every report concurrently. The snapshot is only read, so the
// goroutines share it without locking.
func Build(ctx context.Context, snap ledger.Snapshot, req Request) (Dashboard, error) {
	if err := req.Window.Validate(); err != nil {
		return Dashboard{}, err
	}
	period := req.BudgetPeriod
	if period.Start.IsZero() || period.End.IsZero() {
		period = req.Window
	}
	if err := period.Validate(); err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{Version: snap.Version, Window: req.Window}
	txs := snap.Transactions
	g, ctx := errgroup.WithContext(ctx)

	run := func(name string, fn func()) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			fn()
			return nil
		})
	}

	run("net worth", func() {
		d.NetWorth = replay.Position(snap.Accounts, snap.TypeByID(), replay.Current(snap.Accounts))
	})
	run("summary", func() { d.Summary = Summarize(txs, req.Window) })
	run("daily", func() { d.Daily = DailyTotals(txs, req.Window, req.IncludeEmptyDays) })
	run("by category", func() { d.ByCategory = SpendingByCategory(txs, req.Window) })
	run("running balance", func() { d.RunningBalance = RunningBalance(txs, req.Window, req.Opening) })
	run("net worth series", func() { d.NetWorthSeries = NetWorthSeries(snap.Accounts, txs, req.Window) })
	run("account balances", func() { d.AccountBalances = AccountBalanceSeries(snap.Accounts, txs, req.Window) })
	g.Go(func() error {
		progress, err := BudgetsVsSpent(snap.Budgets, txs, period)
		if err != nil {
			return fmt.Errorf("budgets: %w", err)
		}
		d.Budgets = progress
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
