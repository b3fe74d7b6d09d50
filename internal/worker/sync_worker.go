package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/ledger"
	"finboard/internal/sheets"
)

const sheetDateLayout = "2006-01-02"

// Consumer is satisfied by *amqp.Client.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// SyncWorker mirrors the ledger into a spreadsheet. Ledger events trigger a
// full rewrite from a fresh snapshot, so duplicated or reordered events are
// harmless; reminder events append one row each.
type SyncWorker struct {
	store    ledger.Store
	mirror   sheets.Mirror
	interval time.Duration
	now      func() time.Time

	mu          sync.Mutex
	lastVersion int64
	synced      bool
}

func NewSyncWorker(store ledger.Store, mirror sheets.Mirror, interval time.Duration) *SyncWorker {
	return &SyncWorker{
		store:    store,
		mirror:   mirror,
		interval: interval,
		now:      time.Now,
	}
}

// HandleEvent processes a single ledger event from AMQP.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", ev.Kind,
		"transaction_ids", ev.TransactionIDs,
		"transfer_id", ev.TransferID,
		"reminder_id", ev.ReminderID)

	switch ev.Kind {
	case amqp.ReminderDue:
		return w.appendReminder(ctx, ev.ReminderID)
	case amqp.TransactionCreated, amqp.TransactionRemoved, amqp.TransferCreated, amqp.TransferRemoved:
		if _, err := w.Resync(ctx, true); err != nil {
			return fmt.Errorf("resync ledger: %w", err)
		}
		return nil
	default:
		slog.WarnContext(ctx, "Ignoring unknown event kind", "kind", ev.Kind)
		return nil
	}
}

// Resync rewrites the ledger sheet from the current snapshot. Unless force
// is set, it skips the write when the snapshot version has not moved since
// the last successful rewrite. It reports whether a write happened.
func (w *SyncWorker) Resync(ctx context.Context, force bool) (bool, error) {
	snap, err := w.store.Snapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("snapshot: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !force && w.synced && snap.Version == w.lastVersion {
		slog.DebugContext(ctx, "Ledger mirror up to date", "version", snap.Version)
		return false, nil
	}

	rows := LedgerRows(snap)
	if err := w.mirror.ReplaceLedger(ctx, rows); err != nil {
		return false, fmt.Errorf("write ledger sheet: %w", err)
	}
	w.lastVersion = snap.Version
	w.synced = true

	slog.InfoContext(ctx, "Ledger mirrored", "version", snap.Version, "rows", len(rows))
	return true, nil
}

func (w *SyncWorker) appendReminder(ctx context.Context, id string) error {
	r, err := w.store.GetReminder(ctx, id)
	if core.IsNotFound(err) {
		slog.WarnContext(ctx, "Reminder no longer exists, skipping", "reminder_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get reminder: %w", err)
	}

	name := ""
	if a, err := w.store.GetAccount(ctx, r.AccountID); err == nil {
		name = a.Name
	}
	if err := w.mirror.AppendReminder(ctx, ReminderRow(r, name, w.now())); err != nil {
		return fmt.Errorf("append reminder row: %w", err)
	}

	slog.InfoContext(ctx, "Reminder mirrored", "reminder_id", r.ID, "due_date", r.DueDate.Format(sheetDateLayout))
	return nil
}

// Run mirrors once at startup, then consumes events and resyncs every
// interval until ctx is done. A nil consumer leaves only the periodic resync.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer) error {
	if _, err := w.Resync(ctx, true); err != nil {
		slog.ErrorContext(ctx, "Startup sync failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error {
			return consumer.Consume(ctx, w.HandleEvent)
		})
	}
	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := w.Resync(ctx, false); err != nil {
					slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// LedgerRows renders every transaction oldest first, in sheets.LedgerHeader
// column order.
func LedgerRows(snap ledger.Snapshot) [][]string {
	names := make(map[string]string, len(snap.Accounts))
	for _, a := range snap.Accounts {
		names[a.ID] = a.Name
	}
	txs := append([]core.Transaction(nil), snap.Transactions...)
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})

	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, []string{
			tx.Date.Format(sheetDateLayout),
			tx.Description,
			tx.Category,
			tx.Subcategory,
			tx.Label,
			names[tx.AccountID],
			core.CentsDecimal(tx.Signed()),
			tx.TransferID,
			tx.ID,
		})
	}
	return rows
}

// ReminderRow renders a due reminder in sheets.ReminderHeader column order.
func ReminderRow(r core.Reminder, accountName string, notified time.Time) []string {
	return []string{
		notified.Format(sheetDateLayout),
		r.DueDate.Format(sheetDateLayout),
		r.Description,
		core.CentsDecimal(r.Amount.Cents),
		string(r.Frequency),
		accountName,
		r.ID,
	}
}
