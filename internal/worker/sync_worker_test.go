package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/ledger"
	ledgermem "finboard/internal/ledger/memory"
	sheetsmem "finboard/internal/sheets/memory"
)

func setup(t *testing.T) (*ledgermem.Store, *sheetsmem.Mirror, *SyncWorker) {
	t.Helper()
	store := ledgermem.New(ledger.DefaultCategories(), ledger.DefaultLabels())
	_, err := store.CreateAccount(context.Background(), core.Account{ID: "A", Name: "Checking", TypeID: "type_1", Balance: core.Money{Cents: 100000}})
	require.NoError(t, err)
	mirror := sheetsmem.New()
	w := NewSyncWorker(store, mirror, time.Hour)
	w.now = func() time.Time { return time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC) }
	return store, mirror, w
}

func addExpense(t *testing.T, store *ledgermem.Store, day int, desc string, cents int64) core.Transaction {
	t.Helper()
	tx, err := store.AddTransaction(context.Background(), core.Transaction{
		Date:        time.Date(2025, 6, day, 12, 0, 0, 0, time.UTC),
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Type:        core.Expense,
		Category:    "Food & Drink",
		AccountID:   "A",
	})
	require.NoError(t, err)
	return tx
}

func TestHandleEvent_RewritesLedger(t *testing.T) {
	ctx := context.Background()
	store, mirror, w := setup(t)

	later := addExpense(t, store, 12, "Dinner", 3000)
	earlier := addExpense(t, store, 11, `Lunch, "deluxe"`, 1250)

	require.NoError(t, w.HandleEvent(ctx, &amqp.LedgerEvent{Kind: amqp.TransactionCreated, TransactionIDs: []string{earlier.ID}}))

	rows := mirror.Ledger()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2025-06-11", `Lunch, "deluxe"`, "Food & Drink", "", "", "Checking", "-12.5", "", earlier.ID}, rows[0])
	assert.Equal(t, later.ID, rows[1][8])

	require.NoError(t, store.RemoveTransaction(ctx, later.ID))
	require.NoError(t, w.HandleEvent(ctx, &amqp.LedgerEvent{Kind: amqp.TransactionRemoved, TransactionIDs: []string{later.ID}}))
	assert.Len(t, mirror.Ledger(), 1)
}

func TestHandleEvent_TransferLegs(t *testing.T) {
	ctx := context.Background()
	store, mirror, w := setup(t)
	_, err := store.CreateAccount(ctx, core.Account{ID: "B", Name: "Savings", TypeID: "type_2"})
	require.NoError(t, err)

	tr, err := store.AddTransfer(ctx, ledger.TransferRequest{
		FromAccountID: "A",
		ToAccountID:   "B",
		Amount:        core.Money{Cents: 30000},
		Date:          time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, w.HandleEvent(ctx, &amqp.LedgerEvent{Kind: amqp.TransferCreated, TransferID: tr.ID}))
	rows := mirror.Ledger()
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, tr.ID, row[7])
	}
	amounts := []string{rows[0][6], rows[1][6]}
	assert.ElementsMatch(t, []string{"-300", "300"}, amounts)
}

func TestHandleEvent_ReminderDue(t *testing.T) {
	ctx := context.Background()
	store, mirror, w := setup(t)

	r, err := store.CreateReminder(ctx, core.Reminder{
		Description: "Rent",
		Amount:      core.Money{Cents: 90000},
		DueDate:     time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		Frequency:   core.Monthly,
		AccountID:   "A",
	})
	require.NoError(t, err)

	require.NoError(t, w.HandleEvent(ctx, &amqp.LedgerEvent{Kind: amqp.ReminderDue, ReminderID: r.ID}))
	require.NoError(t, w.HandleEvent(ctx, &amqp.LedgerEvent{Kind: amqp.ReminderDue, ReminderID: "gone"}))

	rows := mirror.Reminders()
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"2025-06-10", "2025-06-12", "Rent", "900", "monthly", "Checking", r.ID}, rows[0])
	assert.Zero(t, mirror.Writes(), "reminder events never rewrite the ledger")
}

func TestResync_SkipsUnchangedVersion(t *testing.T) {
	ctx := context.Background()
	store, mirror, w := setup(t)

	wrote, err := w.Resync(ctx, false)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = w.Resync(ctx, false)
	require.NoError(t, err)
	assert.False(t, wrote)

	addExpense(t, store, 11, "Coffee", 300)
	wrote, err = w.Resync(ctx, false)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, 2, mirror.Writes())
}

type failingMirror struct{ *sheetsmem.Mirror }

func (failingMirror) ReplaceLedger(context.Context, [][]string) error {
	return errors.New("quota exceeded")
}

func TestResync_MirrorFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	store, _, _ := setup(t)
	w := NewSyncWorker(store, failingMirror{sheetsmem.New()}, time.Hour)

	_, err := w.Resync(ctx, false)
	require.Error(t, err)
	assert.False(t, w.synced)

	err = w.HandleEvent(ctx, &amqp.LedgerEvent{Kind: amqp.TransactionCreated})
	assert.Error(t, err, "a failed rewrite is reported so the event is requeued")
}

type scriptedConsumer struct {
	events []*amqp.LedgerEvent
	done   chan struct{}
}

func (c *scriptedConsumer) Consume(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error {
	for _, ev := range c.events {
		if err := handler(ctx, ev); err != nil {
			return err
		}
	}
	close(c.done)
	<-ctx.Done()
	return ctx.Err()
}

func TestRun_ConsumesUntilCancelled(t *testing.T) {
	store, mirror, w := setup(t)
	addExpense(t, store, 11, "Coffee", 300)

	consumer := &scriptedConsumer{
		events: []*amqp.LedgerEvent{{Kind: amqp.TransactionCreated}},
		done:   make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx, consumer) }()

	select {
	case <-consumer.done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer never drained")
	}
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Equal(t, 2, mirror.Writes(), "startup sync plus one event")
	assert.Len(t, mirror.Ledger(), 1)
}
