package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"finboard/internal/cache"
	"finboard/internal/core"
	"finboard/internal/ledger"
	"finboard/internal/replay"
	"finboard/internal/report"
	"finboard/internal/tracker"
)

// CacheRecorder receives report cache hits and misses.
type CacheRecorder interface {
	ObserveCache(hit bool)
}

type nopCacheRecorder struct{}

func (nopCacheRecorder) ObserveCache(bool) {}

// ReportService builds dashboards from store snapshots. Results are cached
// under the snapshot version, so a mutation makes every older entry
// unreachable and a cached dashboard is never stale.
type ReportService struct {
	store   ledger.Store
	cache   *cache.LRUCache[report.Dashboard]
	metrics CacheRecorder
	seen    atomic.Int64
}

func NewReportService(store ledger.Store, c *cache.LRUCache[report.Dashboard], rec CacheRecorder) *ReportService {
	if rec == nil {
		rec = nopCacheRecorder{}
	}
	s := &ReportService{store: store, cache: c, metrics: rec}
	s.seen.Store(-1)
	return s
}

// Dashboard returns every report for req over the current snapshot.
func (s *ReportService) Dashboard(ctx context.Context, req report.Request) (report.Dashboard, error) {
	if err := req.Window.Validate(); err != nil {
		return report.Dashboard{}, err
	}
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return report.Dashboard{}, fmt.Errorf("snapshot: %w", err)
	}

	key := cacheKey(snap.Version, req)
	if s.cache != nil {
		if d, ok := s.cache.Get(key); ok {
			s.metrics.ObserveCache(true)
			return d, nil
		}
		s.metrics.ObserveCache(false)
	}

	d, err := report.Build(ctx, snap, req)
	if err != nil {
		return report.Dashboard{}, err
	}
	if s.cache != nil {
		s.evictOlder(snap.Version)
		s.cache.Set(key, d)
	}
	return d, nil
}

// evictOlder drops entries from earlier versions the first time a new
// version is seen.
func (s *ReportService) evictOlder(version int64) {
	if old := s.seen.Swap(version); old == version {
		return
	}
	prefix := strconv.FormatInt(version, 10) + "|"
	s.cache.DeleteFunc(func(k string) bool { return !strings.HasPrefix(k, prefix) })
}

func cacheKey(version int64, req report.Request) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s|%d|%t",
		version,
		req.Window.Start, req.Window.End,
		req.BudgetPeriod.Start, req.BudgetPeriod.End,
		req.Opening.Cents, req.IncludeEmptyDays)
}

// DayView is the calendar view of one day: balances as of its end, the net
// worth breakdown and that day's transactions newest first.
type DayView struct {
	Date         core.Date               `json:"date"`
	Version      int64                   `json:"version"`
	Balances     []replay.AccountBalance `json:"balances"`
	NetWorth     replay.Breakdown        `json:"netWorth"`
	Transactions []core.Transaction      `json:"transactions"`
}

func (s *ReportService) BalancesOn(ctx context.Context, day core.Date) (DayView, error) {
	if day.IsZero() {
		return DayView{}, core.Invalid("date", day, core.ErrZeroDate)
	}
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return DayView{}, fmt.Errorf("snapshot: %w", err)
	}
	b := replay.AsOf(snap.Accounts, snap.Transactions, day)

	var sameDay []core.Transaction
	for _, tx := range snap.Transactions {
		if tx.Day().Equal(day) {
			sameDay = append(sameDay, tx)
		}
	}
	replay.SortNewestFirst(sameDay)
	if sameDay == nil {
		sameDay = []core.Transaction{}
	}

	return DayView{
		Date:         day,
		Version:      snap.Version,
		Balances:     replay.Listing(snap.Accounts, snap.TypeByID(), b),
		NetWorth:     replay.Position(snap.Accounts, snap.TypeByID(), b),
		Transactions: sameDay,
	}, nil
}

// BudgetProgress reports every budget against spending inside period.
func (s *ReportService) BudgetProgress(ctx context.Context, period report.Window) ([]tracker.Progress, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return report.BudgetsVsSpent(snap.Budgets, snap.Transactions, period)
}

// Today is the clock used for default report windows.
var Today = func() core.Date { return core.DateOf(time.Now()) }
