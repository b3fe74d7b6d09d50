// Package ledger defines the transaction store port shared by every backend,
// plus the transfer and filtering rules the backends must agree on.
package ledger

import (
	"context"
	"time"

	"finboard/internal/core"
)

// Store owns accounts, transactions, budgets, reminders and the category
// taxonomy. Every mutation is all-or-nothing and bumps the snapshot version.
type Store interface {
	AccountStore
	TransactionStore
	BudgetStore
	ReminderStore
	TaxonomyStore

	// Snapshot returns a consistent copy of the ledger for read-only computation.
	Snapshot(ctx context.Context) (Snapshot, error)
}

type (
	AccountStore interface {
		CreateAccountType(ctx context.Context, at core.AccountType) (core.AccountType, error)
		ListAccountTypes(ctx context.Context) ([]core.AccountType, error)
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		GetAccount(ctx context.Context, id string) (core.Account, error)
		ListAccounts(ctx context.Context) ([]core.Account, error)
	}

	TransactionStore interface {
		AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		// AddTransactions stores every tx or none of them.
		AddTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error)
		AddTransfer(ctx context.Context, req TransferRequest) (Transfer, error)
		// RemoveTransaction fails with a ConflictError for transfer legs.
		RemoveTransaction(ctx context.Context, id string) error
		RemoveTransfer(ctx context.Context, transferID string) error
		ListTransactions(ctx context.Context, f Filter) ([]core.Transaction, error)
	}

	BudgetStore interface {
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		ListBudgets(ctx context.Context) ([]core.Budget, error)
		DeleteBudget(ctx context.Context, id string) error
	}

	ReminderStore interface {
		CreateReminder(ctx context.Context, r core.Reminder) (core.Reminder, error)
		GetReminder(ctx context.Context, id string) (core.Reminder, error)
		// ListReminders returns reminders ordered by due date.
		ListReminders(ctx context.Context) ([]core.Reminder, error)
		UpdateReminder(ctx context.Context, r core.Reminder) (core.Reminder, error)
		DeleteReminder(ctx context.Context, id string) error
	}

	TaxonomyStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		SaveCategory(ctx context.Context, c core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, name string) error
		ListLabels(ctx context.Context) ([]core.Label, error)
		SaveLabel(ctx context.Context, l core.Label) (core.Label, error)
		DeleteLabel(ctx context.Context, name string) error
	}
)

// Snapshot is an immutable view of the ledger at one version.
type Snapshot struct {
	Version      int64
	AccountTypes []core.AccountType
	Accounts     []core.Account
	Transactions []core.Transaction
	Budgets      []core.Budget
}

// Filter narrows ListTransactions. Zero fields match everything; From and To
// are inclusive calendar days.
type Filter struct {
	AccountID  string
	Category   string
	Type       core.TransactionType
	From       core.Date
	To         core.Date
	TransferID string
}

func (f Filter) Match(tx core.Transaction) bool {
	if f.AccountID != "" && tx.AccountID != f.AccountID {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.TransferID != "" && tx.TransferID != f.TransferID {
		return false
	}
	day := tx.Day()
	if !f.From.IsZero() && day.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && day.After(f.To) {
		return false
	}
	return true
}

// Apply returns the transactions matching f, keeping their order.
func (f Filter) Apply(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// AccountByID indexes the snapshot accounts.
func (s Snapshot) AccountByID() map[string]core.Account {
	out := make(map[string]core.Account, len(s.Accounts))
	for _, a := range s.Accounts {
		out[a.ID] = a
	}
	return out
}

// TypeByID indexes the snapshot account types.
func (s Snapshot) TypeByID() map[string]core.AccountType {
	out := make(map[string]core.AccountType, len(s.AccountTypes))
	for _, at := range s.AccountTypes {
		out[at.ID] = at
	}
	return out
}

// Now is the clock used for defaulted transaction dates. Tests may replace it.
var Now = time.Now
