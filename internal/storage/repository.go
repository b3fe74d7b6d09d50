// Package storage is the SQLite ledger backend. The schema is managed by
// embedded golang-migrate migrations; every mutation runs in one SQL
// transaction that also bumps ledger_meta.version.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"finboard/internal/core"
	"finboard/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (or creates) the database at dbPath, migrates it
// and seeds account types and the taxonomy into empty tables. Nil cats or
// labels fall back to the built-in defaults.
func NewSQLiteRepository(dbPath string, cats []core.Category, labels []core.Label) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection serializes writers and keeps the pragma below in effect.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if cats == nil {
		cats = ledger.DefaultCategories()
	}
	if labels == nil {
		labels = ledger.DefaultLabels()
	}
	if err := repo.seed(context.Background(), ledger.DedupeCategories(cats), ledger.DedupeLabels(labels)); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed ledger: %w", err)
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) seed(ctx context.Context, cats []core.Category, labels []core.Label) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if n, err := count(ctx, tx, `SELECT COUNT(*) FROM account_types`); err != nil {
		return err
	} else if n == 0 {
		for _, at := range ledger.DefaultAccountTypes() {
			if err := insertAccountType(ctx, tx, at); err != nil {
				return err
			}
		}
	}
	if n, err := count(ctx, tx, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	} else if n == 0 {
		for _, c := range cats {
			if err := upsertCategory(ctx, tx, c); err != nil {
				return err
			}
		}
	}
	if n, err := count(ctx, tx, `SELECT COUNT(*) FROM labels`); err != nil {
		return err
	} else if n == 0 {
		for _, l := range labels {
			if err := upsertLabel(ctx, tx, l); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// mutate runs fn in one SQL transaction and bumps the ledger version when fn
// succeeds. Errors from fn are returned unchanged so domain errors survive.
func (r *SQLiteRepository) mutate(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE ledger_meta SET version = version + 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("%s: bump version: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	slog.DebugContext(ctx, "Ledger mutation committed", "operation", op)
	return nil
}

func (r *SQLiteRepository) CreateAccountType(ctx context.Context, at core.AccountType) (core.AccountType, error) {
	if err := at.Validate(); err != nil {
		return at, err
	}
	if at.ID == "" {
		at.ID = ledger.NewID()
	}
	err := r.mutate(ctx, "create account type", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM account_types WHERE id = ?`, at.ID)
		if err != nil {
			return err
		}
		if ok {
			return &core.ConflictError{Resource: "account type", ID: at.ID, Reason: "already exists"}
		}
		return insertAccountType(ctx, tx, at)
	})
	return at, err
}

func (r *SQLiteRepository) ListAccountTypes(ctx context.Context) ([]core.AccountType, error) {
	return listAccountTypes(ctx, r.db)
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return a, err
	}
	if a.ID == "" {
		a.ID = ledger.NewID()
	}
	err := r.mutate(ctx, "create account", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM account_types WHERE id = ?`, a.TypeID)
		if err != nil {
			return err
		}
		if !ok {
			return core.UnknownReference("typeId", "account type", a.TypeID)
		}
		if ok, err = exists(ctx, tx, `SELECT 1 FROM accounts WHERE id = ?`, a.ID); err != nil {
			return err
		} else if ok {
			return &core.ConflictError{Resource: "account", ID: a.ID, Reason: "already exists"}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO accounts (id, name, type_id, balance_cents) VALUES (?, ?, ?, ?)`,
			a.ID, a.Name, a.TypeID, a.Balance.Cents)
		if err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
		return nil
	})
	return a, err
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	return getAccount(ctx, r.db, id)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return listAccounts(ctx, r.db)
}

func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t, err := ledger.PrepareTransaction(t)
	if err != nil {
		return t, err
	}
	err = r.mutate(ctx, "add transaction", func(tx *sql.Tx) error {
		return addTransaction(ctx, tx, t)
	})
	return t, err
}

// AddTransactions inserts the batch in one SQL transaction.
func (r *SQLiteRepository) AddTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		t, err := ledger.PrepareTransaction(t)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return out, nil
	}
	err := r.mutate(ctx, "add transactions", func(tx *sql.Tx) error {
		for _, t := range out {
			if err := addTransaction(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func addTransaction(ctx context.Context, tx *sql.Tx, t core.Transaction) error {
	if _, err := getAccount(ctx, tx, t.AccountID); err != nil {
		if core.IsNotFound(err) {
			return core.UnknownReference("accountId", "account", t.AccountID)
		}
		return err
	}
	ok, err := exists(ctx, tx, `SELECT 1 FROM transactions WHERE id = ?`, t.ID)
	if err != nil {
		return err
	}
	if ok {
		return &core.ConflictError{Resource: "transaction", ID: t.ID, Reason: "already exists"}
	}
	if err := insertTransaction(ctx, tx, t); err != nil {
		return err
	}
	return adjustBalance(ctx, tx, t.AccountID, t.Signed())
}

func (r *SQLiteRepository) AddTransfer(ctx context.Context, req ledger.TransferRequest) (ledger.Transfer, error) {
	if err := req.Validate(); err != nil {
		return ledger.Transfer{}, err
	}
	var tr ledger.Transfer
	err := r.mutate(ctx, "add transfer", func(tx *sql.Tx) error {
		from, err := getAccount(ctx, tx, req.FromAccountID)
		if core.IsNotFound(err) {
			return core.UnknownReference("fromAccountId", "account", req.FromAccountID)
		} else if err != nil {
			return err
		}
		to, err := getAccount(ctx, tx, req.ToAccountID)
		if core.IsNotFound(err) {
			return core.UnknownReference("toAccountId", "account", req.ToAccountID)
		} else if err != nil {
			return err
		}
		tr = ledger.BuildTransfer(req, from, to)
		for _, leg := range []core.Transaction{tr.Out, tr.In} {
			if err := insertTransaction(ctx, tx, leg); err != nil {
				return err
			}
			if err := adjustBalance(ctx, tx, leg.AccountID, leg.Signed()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ledger.Transfer{}, err
	}
	return tr, nil
}

func (r *SQLiteRepository) RemoveTransaction(ctx context.Context, id string) error {
	return r.mutate(ctx, "remove transaction", func(tx *sql.Tx) error {
		txs, err := queryTransactions(ctx, tx, `WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if len(txs) == 0 {
			return core.NotFound("transaction", id)
		}
		t := txs[0]
		if t.TransferID != "" {
			return &core.ConflictError{Resource: "transaction", ID: id, Reason: ledger.ErrTransferLeg.Error()}
		}
		return deleteTransactions(ctx, tx, txs)
	})
}

func (r *SQLiteRepository) RemoveTransfer(ctx context.Context, transferID string) error {
	if transferID == "" {
		return core.NotFound("transfer", transferID)
	}
	return r.mutate(ctx, "remove transfer", func(tx *sql.Tx) error {
		legs, err := queryTransactions(ctx, tx, `WHERE transfer_id = ?`, transferID)
		if err != nil {
			return err
		}
		if len(legs) == 0 {
			return core.NotFound("transfer", transferID)
		}
		return deleteTransactions(ctx, tx, legs)
	})
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f ledger.Filter) ([]core.Transaction, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		conds = append(conds, cond)
		args = append(args, v)
	}
	if f.AccountID != "" {
		add("account_id = ?", f.AccountID)
	}
	if f.Category != "" {
		add("category = ?", f.Category)
	}
	if f.Type != "" {
		add("type = ?", string(f.Type))
	}
	if f.TransferID != "" {
		add("transfer_id = ?", f.TransferID)
	}
	if !f.From.IsZero() {
		add("day >= ?", f.From.String())
	}
	if !f.To.IsZero() {
		add("day <= ?", f.To.String())
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	return queryTransactions(ctx, r.db, where, args...)
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return b, err
	}
	if b.ID == "" {
		b.ID = ledger.NewID()
	}
	err := r.mutate(ctx, "create budget", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM categories WHERE name = ?`, b.Category)
		if err != nil {
			return err
		}
		if !ok {
			return core.NotFound("category", b.Category)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO budgets (id, category, amount_cents) VALUES (?, ?, ?)`,
			b.ID, b.Category, b.Amount.Cents)
		if err != nil {
			return fmt.Errorf("insert budget: %w", err)
		}
		return nil
	})
	return b, err
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return listBudgets(ctx, r.db)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	return r.mutate(ctx, "delete budget", func(tx *sql.Tx) error {
		return deleteOne(ctx, tx, "budget", id, `DELETE FROM budgets WHERE id = ?`)
	})
}

func (r *SQLiteRepository) CreateReminder(ctx context.Context, rem core.Reminder) (core.Reminder, error) {
	if err := rem.Validate(); err != nil {
		return rem, err
	}
	if rem.ID == "" {
		rem.ID = ledger.NewID()
	}
	err := r.mutate(ctx, "create reminder", func(tx *sql.Tx) error {
		if err := requireAccount(ctx, tx, rem.AccountID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO reminders (id, description, amount_cents, due_date, frequency, account_id, is_paid)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rem.ID, rem.Description, rem.Amount.Cents, formatTime(rem.DueDate), string(rem.Frequency), rem.AccountID, rem.IsPaid)
		if err != nil {
			return fmt.Errorf("insert reminder: %w", err)
		}
		return nil
	})
	return rem, err
}

func (r *SQLiteRepository) GetReminder(ctx context.Context, id string) (core.Reminder, error) {
	rems, err := queryReminders(ctx, r.db, `WHERE id = ?`, id)
	if err != nil {
		return core.Reminder{}, err
	}
	if len(rems) == 0 {
		return core.Reminder{}, core.NotFound("reminder", id)
	}
	return rems[0], nil
}

func (r *SQLiteRepository) ListReminders(ctx context.Context) ([]core.Reminder, error) {
	rems, err := queryReminders(ctx, r.db, "")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].DueDate.Before(rems[j].DueDate) })
	return rems, nil
}

func (r *SQLiteRepository) UpdateReminder(ctx context.Context, rem core.Reminder) (core.Reminder, error) {
	if err := rem.Validate(); err != nil {
		return rem, err
	}
	err := r.mutate(ctx, "update reminder", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM reminders WHERE id = ?`, rem.ID)
		if err != nil {
			return err
		}
		if !ok {
			return core.NotFound("reminder", rem.ID)
		}
		if err := requireAccount(ctx, tx, rem.AccountID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE reminders SET description = ?, amount_cents = ?, due_date = ?, frequency = ?, account_id = ?, is_paid = ?
			 WHERE id = ?`,
			rem.Description, rem.Amount.Cents, formatTime(rem.DueDate), string(rem.Frequency), rem.AccountID, rem.IsPaid, rem.ID)
		if err != nil {
			return fmt.Errorf("update reminder: %w", err)
		}
		return nil
	})
	return rem, err
}

func (r *SQLiteRepository) DeleteReminder(ctx context.Context, id string) error {
	return r.mutate(ctx, "delete reminder", func(tx *sql.Tx) error {
		return deleteOne(ctx, tx, "reminder", id, `DELETE FROM reminders WHERE id = ?`)
	})
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	return listCategories(ctx, r.db)
}

func (r *SQLiteRepository) SaveCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return c, err
	}
	c = ledger.DedupeCategories([]core.Category{c})[0]
	err := r.mutate(ctx, "save category", func(tx *sql.Tx) error {
		return upsertCategory(ctx, tx, c)
	})
	return c, err
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, name string) error {
	return r.mutate(ctx, "delete category", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM categories WHERE name = ?`, name)
		if err != nil {
			return err
		}
		if !ok {
			return core.NotFound("category", name)
		}
		if name == core.TransfersCategory {
			return &core.ConflictError{Resource: "category", ID: name, Reason: "reserved for transfers"}
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM categories WHERE name = ?`, name)
		return err
	})
}

func (r *SQLiteRepository) ListLabels(ctx context.Context) ([]core.Label, error) {
	return listLabels(ctx, r.db)
}

func (r *SQLiteRepository) SaveLabel(ctx context.Context, l core.Label) (core.Label, error) {
	if err := l.Validate(); err != nil {
		return l, err
	}
	l.Name = strings.TrimSpace(l.Name)
	err := r.mutate(ctx, "save label", func(tx *sql.Tx) error {
		return upsertLabel(ctx, tx, l)
	})
	return l, err
}

func (r *SQLiteRepository) DeleteLabel(ctx context.Context, name string) error {
	return r.mutate(ctx, "delete label", func(tx *sql.Tx) error {
		return deleteOne(ctx, tx, "label", name, `DELETE FROM labels WHERE name = ?`)
	})
}

// Snapshot reads every table inside one SQL transaction.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (ledger.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	var snap ledger.Snapshot
	if err := tx.QueryRowContext(ctx, `SELECT version FROM ledger_meta WHERE id = 1`).Scan(&snap.Version); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("snapshot: version: %w", err)
	}
	if snap.AccountTypes, err = listAccountTypes(ctx, tx); err != nil {
		return ledger.Snapshot{}, err
	}
	if snap.Accounts, err = listAccounts(ctx, tx); err != nil {
		return ledger.Snapshot{}, err
	}
	if snap.Transactions, err = queryTransactions(ctx, tx, ""); err != nil {
		return ledger.Snapshot{}, err
	}
	if snap.Budgets, err = listBudgets(ctx, tx); err != nil {
		return ledger.Snapshot{}, err
	}
	return snap, nil
}

func requireAccount(ctx context.Context, q querier, id string) error {
	ok, err := exists(ctx, q, `SELECT 1 FROM accounts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if !ok {
		return core.UnknownReference("accountId", "account", id)
	}
	return nil
}

func deleteTransactions(ctx context.Context, tx *sql.Tx, txs []core.Transaction) error {
	for _, t := range txs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, t.ID); err != nil {
			return fmt.Errorf("delete transaction %s: %w", t.ID, err)
		}
		if err := adjustBalance(ctx, tx, t.AccountID, -t.Signed()); err != nil {
			return err
		}
	}
	return nil
}

func deleteOne(ctx context.Context, tx *sql.Tx, resource, id, query string) error {
	res, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", resource, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", resource, err)
	}
	if n == 0 {
		return core.NotFound(resource, id)
	}
	return nil
}

func adjustBalance(ctx context.Context, tx *sql.Tx, accountID string, delta int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ?`, delta, accountID)
	if err != nil {
		return fmt.Errorf("adjust balance of %s: %w", accountID, err)
	}
	return nil
}

func count(ctx context.Context, q querier, query string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup: %w", err)
	}
	return true, nil
}
