package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/csvio"
	"finboard/internal/ledger"
	"finboard/internal/log"
	"finboard/internal/tracker"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.LedgerEvent) error
}

// Recorder receives mutation and event outcomes; *metrics.Collector
// implements it.
type Recorder interface {
	ObserveMutation(op string, err error)
	ObserveEvent(kind string, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveMutation(string, error) {}
func (nopRecorder) ObserveEvent(string, error)    {}

// LedgerService wraps a Store: it is itself a ledger.Store whose mutations
// are counted and, for transactions and transfers, announced on the event
// bus after they commit. Publishing is best-effort; a stored mutation is
// never rolled back because the broker is down.
type LedgerService struct {
	ledger.Store
	publisher EventPublisher
	metrics   Recorder
}

var _ ledger.Store = (*LedgerService)(nil)

func NewLedgerService(store ledger.Store, publisher EventPublisher, rec Recorder) *LedgerService {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &LedgerService{Store: store, publisher: publisher, metrics: rec}
}

func (s *LedgerService) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx, err := s.Store.AddTransaction(ctx, tx)
	s.metrics.ObserveMutation("add_transaction", err)
	if err != nil {
		return tx, err
	}
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogTransactionPosted(ctx, tx.ID, tx.AccountID, tx.Signed(), tx.Category)

	ev := amqp.NewLedgerEvent(amqp.TransactionCreated)
	ev.TransactionIDs = []string{tx.ID}
	s.publish(ctx, ev)
	return tx, nil
}

func (s *LedgerService) AddTransfer(ctx context.Context, req ledger.TransferRequest) (ledger.Transfer, error) {
	tr, err := s.Store.AddTransfer(ctx, req)
	s.metrics.ObserveMutation("add_transfer", err)
	if err != nil {
		return tr, err
	}
	slog.InfoContext(ctx, "Transfer recorded",
		"transfer_id", tr.ID,
		"from_account_id", req.FromAccountID,
		"to_account_id", req.ToAccountID,
		"amount_cents", req.Amount.Cents)

	ev := amqp.NewLedgerEvent(amqp.TransferCreated)
	ev.TransferID = tr.ID
	ev.TransactionIDs = []string{tr.Out.ID, tr.In.ID}
	s.publish(ctx, ev)
	return tr, nil
}

func (s *LedgerService) RemoveTransaction(ctx context.Context, id string) error {
	err := s.Store.RemoveTransaction(ctx, id)
	s.metrics.ObserveMutation("remove_transaction", err)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction removed", "transaction_id", id)

	ev := amqp.NewLedgerEvent(amqp.TransactionRemoved)
	ev.TransactionIDs = []string{id}
	s.publish(ctx, ev)
	return nil
}

func (s *LedgerService) RemoveTransfer(ctx context.Context, transferID string) error {
	err := s.Store.RemoveTransfer(ctx, transferID)
	s.metrics.ObserveMutation("remove_transfer", err)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transfer removed", "transfer_id", transferID)

	ev := amqp.NewLedgerEvent(amqp.TransferRemoved)
	ev.TransferID = transferID
	s.publish(ctx, ev)
	return nil
}

func (s *LedgerService) CreateAccountType(ctx context.Context, at core.AccountType) (core.AccountType, error) {
	at, err := s.Store.CreateAccountType(ctx, at)
	s.metrics.ObserveMutation("create_account_type", err)
	return at, err
}

func (s *LedgerService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a, err := s.Store.CreateAccount(ctx, a)
	s.metrics.ObserveMutation("create_account", err)
	return a, err
}

func (s *LedgerService) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b, err := s.Store.CreateBudget(ctx, b)
	s.metrics.ObserveMutation("create_budget", err)
	return b, err
}

func (s *LedgerService) DeleteBudget(ctx context.Context, id string) error {
	err := s.Store.DeleteBudget(ctx, id)
	s.metrics.ObserveMutation("delete_budget", err)
	return err
}

func (s *LedgerService) CreateReminder(ctx context.Context, r core.Reminder) (core.Reminder, error) {
	r, err := s.Store.CreateReminder(ctx, r)
	s.metrics.ObserveMutation("create_reminder", err)
	return r, err
}

func (s *LedgerService) UpdateReminder(ctx context.Context, r core.Reminder) (core.Reminder, error) {
	r, err := s.Store.UpdateReminder(ctx, r)
	s.metrics.ObserveMutation("update_reminder", err)
	return r, err
}

func (s *LedgerService) DeleteReminder(ctx context.Context, id string) error {
	err := s.Store.DeleteReminder(ctx, id)
	s.metrics.ObserveMutation("delete_reminder", err)
	return err
}

func (s *LedgerService) SaveCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c, err := s.Store.SaveCategory(ctx, c)
	s.metrics.ObserveMutation("save_category", err)
	return c, err
}

func (s *LedgerService) DeleteCategory(ctx context.Context, name string) error {
	err := s.Store.DeleteCategory(ctx, name)
	s.metrics.ObserveMutation("delete_category", err)
	return err
}

func (s *LedgerService) SaveLabel(ctx context.Context, l core.Label) (core.Label, error) {
	l, err := s.Store.SaveLabel(ctx, l)
	s.metrics.ObserveMutation("save_label", err)
	return l, err
}

func (s *LedgerService) DeleteLabel(ctx context.Context, name string) error {
	err := s.Store.DeleteLabel(ctx, name)
	s.metrics.ObserveMutation("delete_label", err)
	return err
}

// ToggleReminder flips the paid flag of a stored reminder.
func (s *LedgerService) ToggleReminder(ctx context.Context, id string) (core.Reminder, error) {
	r, err := s.Store.GetReminder(ctx, id)
	if err != nil {
		return r, err
	}
	return s.UpdateReminder(ctx, tracker.ToggleReminderPaid(r))
}

// AdvanceReminder moves a recurring reminder to its next due date.
func (s *LedgerService) AdvanceReminder(ctx context.Context, id string) (core.Reminder, error) {
	r, err := s.Store.GetReminder(ctx, id)
	if err != nil {
		return r, err
	}
	next, err := tracker.Advance(r)
	if err != nil {
		return r, err
	}
	return s.UpdateReminder(ctx, next)
}

// ImportRequest describes one CSV upload.
type ImportRequest struct {
	Mapping          string
	DefaultAccountID string
	DryRun           bool
	Options          csvio.Options
}

type ImportResult struct {
	Imported     int                `json:"imported"`
	DryRun       bool               `json:"dryRun"`
	Transactions []core.Transaction `json:"transactions"`
}

// ImportCSV parses r and, unless DryRun is set, stores every row in one
// batch. Either every row is stored or none is.
func (s *LedgerService) ImportCSV(ctx context.Context, r io.Reader, req ImportRequest) (ImportResult, error) {
	mapping, ok := csvio.MappingByName(req.Mapping)
	if !ok {
		return ImportResult{}, core.Invalid("mapping", req.Mapping, errors.New("unknown column mapping"))
	}
	accounts, err := s.Store.ListAccounts(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("list accounts: %w", err)
	}
	opts := req.Options
	if req.DefaultAccountID != "" {
		opts.DefaultAccountID = req.DefaultAccountID
	}

	txs, err := csvio.Import(r, mapping, accounts, opts)
	if err != nil {
		return ImportResult{}, err
	}
	if req.DryRun {
		return ImportResult{DryRun: true, Transactions: txs}, nil
	}

	stored, err := s.AddTransactions(ctx, txs)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import %d rows: %w", len(txs), err)
	}
	slog.InfoContext(ctx, "CSV import complete", "mapping", mapping.Name, "imported", len(stored))
	return ImportResult{Imported: len(stored), Transactions: stored}, nil
}

// AddTransactions stores the batch atomically and announces it as one event.
func (s *LedgerService) AddTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	stored, err := s.Store.AddTransactions(ctx, txs)
	s.metrics.ObserveMutation("add_transactions", err)
	if err != nil || len(stored) == 0 {
		return stored, err
	}
	ev := amqp.NewLedgerEvent(amqp.TransactionCreated)
	for _, tx := range stored {
		ev.TransactionIDs = append(ev.TransactionIDs, tx.ID)
	}
	s.publish(ctx, ev)
	return stored, nil
}

// ExportCSV writes the transactions matching f in the standard column layout.
func (s *LedgerService) ExportCSV(ctx context.Context, w io.Writer, f ledger.Filter, opts csvio.ExportOptions) error {
	txs, err := s.Store.ListTransactions(ctx, f)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	accounts, err := s.Store.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	return csvio.Export(w, txs, accounts, opts)
}

// PublishReminderDue announces a reminder that needs attention.
func (s *LedgerService) PublishReminderDue(ctx context.Context, r core.Reminder) error {
	ev := amqp.NewLedgerEvent(amqp.ReminderDue)
	ev.ReminderID = r.ID
	return s.send(ctx, ev)
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if err := s.send(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event", "kind", ev.Kind, "error", err)
	}
}

func (s *LedgerService) send(ctx context.Context, ev *amqp.LedgerEvent) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping ledger event", "kind", ev.Kind)
		return nil
	}
	err := s.publisher.Publish(ctx, ev)
	s.metrics.ObserveEvent(string(ev.Kind), err)
	return err
}

// Close releases the store and publisher when they hold resources.
func (s *LedgerService) Close() error {
	var errs []error
	if c, ok := s.Store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
