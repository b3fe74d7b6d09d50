package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
	"finboard/internal/ledger"
)

func openRepo(t *testing.T, path string) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(path, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seededRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()
	repo := openRepo(t, filepath.Join(t.TempDir(), "data", "finboard.db"))
	_, err := repo.CreateAccount(ctx, core.Account{ID: "A", Name: "Checking", TypeID: "type_1", Balance: core.Money{Cents: 100000}})
	require.NoError(t, err)
	_, err = repo.CreateAccount(ctx, core.Account{ID: "B", Name: "Savings", TypeID: "type_2", Balance: core.Money{Cents: 50000}})
	require.NoError(t, err)
	return repo
}

func lunch(account string, cents int64) core.Transaction {
	return core.Transaction{
		Date:        time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC),
		Description: "Lunch",
		Amount:      core.Money{Cents: cents},
		Type:        core.Expense,
		Category:    "Food & Drink",
		Label:       "Personal",
		AccountID:   account,
	}
}

func balanceOf(t *testing.T, repo *SQLiteRepository, id string) int64 {
	t.Helper()
	a, err := repo.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.Balance.Cents
}

func TestSeedsDefaults(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, filepath.Join(t.TempDir(), "seed.db"))

	types, err := repo.ListAccountTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultAccountTypes(), types)

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultCategories(), cats)

	labels, err := repo.ListLabels(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultLabels(), labels)
}

func TestTransactionRoundTripAndBalance(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo(t)

	added, err := repo.AddTransaction(ctx, lunch("A", 1250))
	require.NoError(t, err)
	assert.Equal(t, int64(98750), balanceOf(t, repo, "A"))

	got, err := repo.ListTransactions(ctx, ledger.Filter{AccountID: "A"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, added, got[0])
	assert.True(t, got[0].Date.Equal(added.Date))

	require.NoError(t, repo.RemoveTransaction(ctx, added.ID))
	assert.Equal(t, int64(100000), balanceOf(t, repo, "A"))
	assert.True(t, core.IsNotFound(repo.RemoveTransaction(ctx, added.ID)))
}

func TestAddTransactionUnknownAccount(t *testing.T) {
	repo := seededRepo(t)
	_, err := repo.AddTransaction(context.Background(), lunch("nope", 100))
	assert.True(t, core.IsValidation(err))
	assert.True(t, core.IsNotFound(err))
}

func TestAddTransactionRejectsTransfersCategory(t *testing.T) {
	repo := seededRepo(t)
	lone := lunch("A", 20000)
	lone.Category = core.TransfersCategory
	_, err := repo.AddTransaction(context.Background(), lone)
	assert.ErrorIs(t, err, ledger.ErrTransferCategory)
	assert.Equal(t, int64(100000), balanceOf(t, repo, "A"))
}

func TestAddTransactionsRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo(t)

	_, err := repo.AddTransactions(ctx, []core.Transaction{lunch("A", 1000), lunch("nope", 500)})
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, int64(100000), balanceOf(t, repo, "A"))
	txs, err := repo.ListTransactions(ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Empty(t, txs)

	stored, err := repo.AddTransactions(ctx, []core.Transaction{lunch("A", 1000), lunch("B", 500)})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Equal(t, int64(99000), balanceOf(t, repo, "A"))
	assert.Equal(t, int64(49500), balanceOf(t, repo, "B"))
}

func TestTransferPairing(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo(t)

	tr, err := repo.AddTransfer(ctx, ledger.TransferRequest{
		FromAccountID: "A",
		ToAccountID:   "B",
		Amount:        core.Money{Cents: 30000},
		Date:          time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(70000), balanceOf(t, repo, "A"))
	assert.Equal(t, int64(80000), balanceOf(t, repo, "B"))
	assert.Equal(t, "Transfer to Savings", tr.Out.Description)
	assert.Equal(t, "Transfer from Checking", tr.In.Description)

	legs, err := repo.ListTransactions(ctx, ledger.Filter{TransferID: tr.ID})
	require.NoError(t, err)
	require.Len(t, legs, 2)
	for _, leg := range legs {
		assert.Equal(t, core.TransfersCategory, leg.Category)
	}

	err = repo.RemoveTransaction(ctx, tr.Out.ID)
	assert.True(t, core.IsConflict(err))

	require.NoError(t, repo.RemoveTransfer(ctx, tr.ID))
	assert.Equal(t, int64(100000), balanceOf(t, repo, "A"))
	assert.Equal(t, int64(50000), balanceOf(t, repo, "B"))
	assert.True(t, core.IsNotFound(repo.RemoveTransfer(ctx, tr.ID)))
}

func TestTransferRejectsSameAccount(t *testing.T) {
	repo := seededRepo(t)
	_, err := repo.AddTransfer(context.Background(), ledger.TransferRequest{
		FromAccountID: "A", ToAccountID: "A", Amount: core.Money{Cents: 100},
	})
	assert.True(t, core.IsValidation(err))
}

func TestListTransactionsFilters(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo(t)

	jan := lunch("A", 100)
	feb := lunch("B", 200)
	feb.Date = time.Date(2025, 2, 3, 12, 0, 0, 0, time.UTC)
	salary := lunch("A", 5000)
	salary.Type = core.Income
	salary.Category = "Salary"
	salary.Date = time.Date(2025, 2, 28, 8, 0, 0, 0, time.UTC)
	for _, tx := range []core.Transaction{jan, feb, salary} {
		_, err := repo.AddTransaction(ctx, tx)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter ledger.Filter
		want   int
	}{
		{"all", ledger.Filter{}, 3},
		{"account", ledger.Filter{AccountID: "A"}, 2},
		{"type", ledger.Filter{Type: core.Income}, 1},
		{"category", ledger.Filter{Category: "Food & Drink"}, 2},
		{"from", ledger.Filter{From: core.NewDate(2025, 2, 1)}, 2},
		{"range", ledger.Filter{From: core.NewDate(2025, 2, 1), To: core.NewDate(2025, 2, 3)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListTransactions(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestSnapshotVersionAndPersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	repo, err := NewSQLiteRepository(path, nil, nil)
	require.NoError(t, err)
	_, err = repo.CreateAccount(ctx, core.Account{ID: "A", Name: "Checking", TypeID: "type_1"})
	require.NoError(t, err)

	before, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	_, err = repo.AddTransaction(ctx, lunch("A", 500))
	require.NoError(t, err)
	after, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Version+1, after.Version)
	assert.Len(t, after.Transactions, 1)

	_, err = repo.AddTransaction(ctx, lunch("A", 0))
	require.Error(t, err)
	failed, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, after.Version, failed.Version)

	require.NoError(t, repo.Close())

	reopened := openRepo(t, path)
	snap, err := reopened.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, after.Version, snap.Version)
	require.Len(t, snap.Accounts, 1)
	assert.Equal(t, int64(-500), snap.Accounts[0].Balance.Cents)
	assert.Len(t, snap.AccountTypes, len(ledger.DefaultAccountTypes()))
}

func TestBudgetsAndReminders(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo(t)

	_, err := repo.CreateBudget(ctx, core.Budget{Category: "Nope", Amount: core.Money{Cents: 100}})
	assert.True(t, core.IsNotFound(err))
	b, err := repo.CreateBudget(ctx, core.Budget{Category: "Shopping", Amount: core.Money{Cents: 30000}})
	require.NoError(t, err)
	budgets, err := repo.ListBudgets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Budget{b}, budgets)
	require.NoError(t, repo.DeleteBudget(ctx, b.ID))
	assert.True(t, core.IsNotFound(repo.DeleteBudget(ctx, b.ID)))

	later, err := repo.CreateReminder(ctx, core.Reminder{
		Description: "Rent", Amount: core.Money{Cents: 90000}, AccountID: "A",
		DueDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Frequency: core.Monthly,
	})
	require.NoError(t, err)
	sooner, err := repo.CreateReminder(ctx, core.Reminder{
		Description: "Gym", Amount: core.Money{Cents: 3000}, AccountID: "A",
		DueDate: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), Frequency: core.Once,
	})
	require.NoError(t, err)

	list, err := repo.ListReminders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, sooner.ID, list[0].ID)

	later.IsPaid = true
	_, err = repo.UpdateReminder(ctx, later)
	require.NoError(t, err)
	got, err := repo.GetReminder(ctx, later.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	assert.True(t, got.DueDate.Equal(later.DueDate))

	_, err = repo.CreateReminder(ctx, core.Reminder{
		Description: "Ghost", Amount: core.Money{Cents: 1}, AccountID: "nope",
		DueDate: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), Frequency: core.Once,
	})
	assert.True(t, core.IsNotFound(err))

	require.NoError(t, repo.DeleteReminder(ctx, sooner.ID))
	_, err = repo.GetReminder(ctx, sooner.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestTaxonomy(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo(t)

	saved, err := repo.SaveCategory(ctx, core.Category{Name: " Pets ", Subcategories: []string{"Vet", "Vet", "Food"}})
	require.NoError(t, err)
	assert.Equal(t, core.Category{Name: "Pets", Subcategories: []string{"Vet", "Food"}}, saved)

	_, err = repo.SaveCategory(ctx, core.Category{Name: "Pets", Subcategories: []string{"Toys"}})
	require.NoError(t, err)
	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Toys"}, cats[len(cats)-1].Subcategories)

	assert.True(t, core.IsConflict(repo.DeleteCategory(ctx, core.TransfersCategory)))
	require.NoError(t, repo.DeleteCategory(ctx, "Pets"))
	assert.True(t, core.IsNotFound(repo.DeleteCategory(ctx, "Pets")))

	_, err = repo.SaveLabel(ctx, core.Label{Name: "Trip", Description: "Summer"})
	require.NoError(t, err)
	require.NoError(t, repo.DeleteLabel(ctx, "Trip"))
	assert.True(t, core.IsNotFound(repo.DeleteLabel(ctx, "Trip")))
}
