package replay

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"finboard/internal/core"
)

var today = core.NewDate(2025, 6, 15)

func at(d core.Date, hour int) time.Time {
	return d.Add(time.Duration(hour) * time.Hour)
}

func accountsAB() []core.Account {
	return []core.Account{
		{ID: "A", Name: "A", TypeID: "checking", Balance: core.Money{Cents: 100000}},
		{ID: "B", Name: "B", TypeID: "savings", Balance: core.Money{Cents: 50000}},
	}
}

func TestAsOfReversesLaterExpense(t *testing.T) {
	txs := []core.Transaction{{
		ID: "t1", Date: at(today, 10), Amount: core.Money{Cents: 20000},
		Type: core.Expense, Category: "Food", AccountID: "A",
	}}

	yesterday := AsOf(accountsAB(), txs, today.AddDays(-1))
	assert.Equal(t, int64(120000), yesterday["A"])
	assert.Equal(t, int64(50000), yesterday["B"])
	assert.Equal(t, int64(170000), NetWorth(yesterday).Cents)

	now := AsOf(accountsAB(), txs, today)
	assert.Equal(t, int64(100000), now["A"], "same-day transaction stays applied")
	assert.Equal(t, int64(150000), NetWorth(now).Cents)
}

func TestAsOfFutureDay(t *testing.T) {
	txs := []core.Transaction{
		{ID: "t1", Date: at(today, 9), Amount: core.Money{Cents: 100}, Type: core.Income, AccountID: "A"},
	}
	future := today.AddDays(30)
	assert.Equal(t, Current(accountsAB()), AsOf(accountsAB(), txs, future))

	scheduled := append(txs, core.Transaction{
		ID: "t2", Date: at(today.AddDays(40), 9), Amount: core.Money{Cents: 700}, Type: core.Income, AccountID: "B",
	})
	got := AsOf(accountsAB(), scheduled, future)
	assert.Equal(t, int64(49300), got["B"])
}

func TestAsOfNoTransactions(t *testing.T) {
	assert.Equal(t, Current(accountsAB()), AsOf(accountsAB(), nil, today.AddDays(-10)))
}

func TestAsOfIgnoresUnknownAccounts(t *testing.T) {
	txs := []core.Transaction{
		{ID: "t1", Date: at(today, 9), Amount: core.Money{Cents: 100}, Type: core.Income, AccountID: "ghost"},
	}
	got := AsOf(accountsAB(), txs, today.AddDays(-1))
	assert.Len(t, got, 2)
	assert.Equal(t, Current(accountsAB()), got)
}

func TestTransferIsNetWorthNeutral(t *testing.T) {
	txs := []core.Transaction{
		{ID: "out", Date: at(today, 9), Amount: core.Money{Cents: 30000}, Type: core.Expense, Category: core.TransfersCategory, AccountID: "A", TransferID: "x"},
		{ID: "in", Date: at(today, 9), Amount: core.Money{Cents: 30000}, Type: core.Income, Category: core.TransfersCategory, AccountID: "B", TransferID: "x"},
	}
	accounts := accountsAB()
	accounts[0].Balance.Cents -= 30000
	accounts[1].Balance.Cents += 30000

	before := AsOf(accounts, txs, today.AddDays(-1))
	assert.Equal(t, int64(100000), before["A"])
	assert.Equal(t, int64(50000), before["B"])
	assert.Equal(t, NetWorth(before), NetWorth(Current(accounts)))
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	accounts := accountsAB()
	var txs []core.Transaction
	for i := 0; i < 200; i++ {
		typ := core.Expense
		if rng.Intn(2) == 0 {
			typ = core.Income
		}
		acc := "A"
		if rng.Intn(2) == 0 {
			acc = "B"
		}
		txs = append(txs, core.Transaction{
			ID:        fmt.Sprintf("t%03d", i),
			Date:      at(today.AddDays(-rng.Intn(60)+5), rng.Intn(24)),
			Amount:    core.Money{Cents: int64(rng.Intn(50000) + 1)},
			Type:      typ,
			AccountID: acc,
		})
	}
	for _, offset := range []int{-70, -30, -1, 0, 3, 10} {
		day := today.AddDays(offset)
		past := AsOf(accounts, txs, day)
		assert.Equal(t, Current(accounts), Forward(past, txs, day), "offset %d", offset)
	}
}

func TestAfterOrdering(t *testing.T) {
	same := at(today, 12)
	txs := []core.Transaction{
		{ID: "a", Date: same},
		{ID: "c", Date: at(today, 18)},
		{ID: "b", Date: same},
		{ID: "old", Date: at(today.AddDays(-2), 1)},
	}
	got := After(txs, today.AddDays(-1))
	ids := make([]string, len(got))
	for i, tx := range got {
		ids[i] = tx.ID
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
}

func TestPositionGroupsWithoutSignFlip(t *testing.T) {
	accounts := []core.Account{
		{ID: "chk", TypeID: "type_1", Balance: core.Money{Cents: 523050}},
		{ID: "visa", TypeID: "type_3", Balance: core.Money{Cents: -89021}},
	}
	types := map[string]core.AccountType{
		"type_1": {ID: "type_1", Classification: core.Asset},
		"type_3": {ID: "type_3", Classification: core.Liability},
	}
	got := Position(accounts, types, Current(accounts))
	assert.Equal(t, int64(523050), got.Assets.Cents)
	assert.Equal(t, int64(-89021), got.Liabilities.Cents)
	assert.Equal(t, int64(434029), got.Total.Cents)
	assert.Equal(t, NetWorth(Current(accounts)), got.Total)

	rows := Listing(accounts, types, Current(accounts))
	assert.Equal(t, core.Liability, rows[1].Classification)
}
