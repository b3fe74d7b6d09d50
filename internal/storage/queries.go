package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finboard/internal/core"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string { return t.Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func insertAccountType(ctx context.Context, q querier, at core.AccountType) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO account_types (id, name, classification, icon) VALUES (?, ?, ?, ?)`,
		at.ID, at.Name, string(at.Classification), at.Icon)
	if err != nil {
		return fmt.Errorf("insert account type: %w", err)
	}
	return nil
}

func listAccountTypes(ctx context.Context, q querier) ([]core.AccountType, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, classification, icon FROM account_types ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list account types: %w", err)
	}
	defer rows.Close()

	out := []core.AccountType{}
	for rows.Next() {
		var (
			at    core.AccountType
			class string
		)
		if err := rows.Scan(&at.ID, &at.Name, &class, &at.Icon); err != nil {
			return nil, fmt.Errorf("scan account type: %w", err)
		}
		at.Classification = core.Classification(class)
		out = append(out, at)
	}
	return out, rows.Err()
}

const accountColumns = `id, name, type_id, balance_cents`

func scanAccount(s interface{ Scan(...any) error }) (core.Account, error) {
	var a core.Account
	err := s.Scan(&a.ID, &a.Name, &a.TypeID, &a.Balance.Cents)
	return a, err
}

func getAccount(ctx context.Context, q querier, id string) (core.Account, error) {
	a, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.NotFound("account", id)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func listAccounts(ctx context.Context, q querier) ([]core.Account, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := []core.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func insertTransaction(ctx context.Context, q querier, t core.Transaction) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, occurred_at, day, description, amount_cents, type, category, subcategory, label, account_id, transfer_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, formatTime(t.Date), t.Day().String(), t.Description, t.Amount.Cents, string(t.Type),
		t.Category, t.Subcategory, t.Label, t.AccountID, t.TransferID)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// queryTransactions returns rows in insertion order. where may be empty.
func queryTransactions(ctx context.Context, q querier, where string, args ...any) ([]core.Transaction, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, occurred_at, description, amount_cents, type, category, subcategory, label, account_id, transfer_id
		 FROM transactions `+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var (
			t       core.Transaction
			when, k string
		)
		if err := rows.Scan(&t.ID, &when, &t.Description, &t.Amount.Cents, &k, &t.Category,
			&t.Subcategory, &t.Label, &t.AccountID, &t.TransferID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = parseTime(when); err != nil {
			return nil, err
		}
		t.Type = core.TransactionType(k)
		out = append(out, t)
	}
	return out, rows.Err()
}

func listBudgets(ctx context.Context, q querier) ([]core.Budget, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, category, amount_cents FROM budgets ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.Category, &b.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func queryReminders(ctx context.Context, q querier, where string, args ...any) ([]core.Reminder, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, description, amount_cents, due_date, frequency, account_id, is_paid
		 FROM reminders `+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	out := []core.Reminder{}
	for rows.Next() {
		var (
			r        core.Reminder
			due, frq string
		)
		if err := rows.Scan(&r.ID, &r.Description, &r.Amount.Cents, &due, &frq, &r.AccountID, &r.IsPaid); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		if r.DueDate, err = parseTime(due); err != nil {
			return nil, err
		}
		r.Frequency = core.Frequency(frq)
		out = append(out, r)
	}
	return out, rows.Err()
}

func upsertCategory(ctx context.Context, q querier, c core.Category) error {
	subs := c.Subcategories
	if subs == nil {
		subs = []string{}
	}
	raw, err := json.Marshal(subs)
	if err != nil {
		return fmt.Errorf("encode subcategories: %w", err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO categories (name, subcategories) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET subcategories = excluded.subcategories`,
		c.Name, string(raw))
	if err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	return nil
}

func listCategories(ctx context.Context, q querier) ([]core.Category, error) {
	rows, err := q.QueryContext(ctx, `SELECT name, subcategories FROM categories ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		var (
			c   core.Category
			raw string
		)
		if err := rows.Scan(&c.Name, &raw); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Subcategories = []string{}
		if err := json.Unmarshal([]byte(raw), &c.Subcategories); err != nil {
			return nil, fmt.Errorf("decode subcategories of %s: %w", c.Name, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func upsertLabel(ctx context.Context, q querier, l core.Label) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO labels (name, description) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET description = excluded.description`,
		l.Name, l.Description)
	if err != nil {
		return fmt.Errorf("save label: %w", err)
	}
	return nil
}

func listLabels(ctx context.Context, q querier) ([]core.Label, error) {
	rows, err := q.QueryContext(ctx, `SELECT name, description FROM labels ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	out := []core.Label{}
	for rows.Next() {
		var l core.Label
		if err := rows.Scan(&l.Name, &l.Description); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
