// Package replay reconstructs historical account balances from current
// balances by reversing the transactions booked after a given day.
//
// Net worth is the plain sum of balances. Liability balances are summed as
// stored: a credit card carrying -890.21 already lowers net worth. The
// classification only groups accounts for display.
package replay

import (
	"sort"

	"finboard/internal/core"
)

// Balances maps account id to balance in cents.
type Balances map[string]int64

type AccountBalance struct {
	AccountID      string              `json:"accountId"`
	Name           string              `json:"name"`
	TypeID         string              `json:"typeId"`
	Classification core.Classification `json:"classification"`
	Balance        core.Money          `json:"balance"`
}

// Breakdown groups a net worth figure by classification.
type Breakdown struct {
	Assets      core.Money `json:"assets"`
	Liabilities core.Money `json:"liabilities"`
	Total       core.Money `json:"total"`
}

// Current returns the stored as-of-now balances.
func Current(accounts []core.Account) Balances {
	out := make(Balances, len(accounts))
	for _, a := range accounts {
		out[a.ID] = a.Balance.Cents
	}
	return out
}

// AsOf returns balances as they stood at the end of day. Transactions whose
// calendar day is strictly after day are reversed, most recent first; those on
// day itself stay applied. Transactions on unknown accounts are ignored.
func AsOf(accounts []core.Account, txs []core.Transaction, day core.Date) Balances {
	out := Current(accounts)
	for _, tx := range After(txs, day) {
		if _, ok := out[tx.AccountID]; ok {
			out[tx.AccountID] -= tx.Signed()
		}
	}
	return out
}

// Forward re-applies the transactions after day to as-of balances. It is the
// inverse of AsOf: Forward(AsOf(a, t, d), t, d) equals Current(a).
func Forward(b Balances, txs []core.Transaction, day core.Date) Balances {
	out := b.Clone()
	later := After(txs, day)
	for i := len(later) - 1; i >= 0; i-- {
		tx := later[i]
		if _, ok := out[tx.AccountID]; ok {
			out[tx.AccountID] += tx.Signed()
		}
	}
	return out
}

// After returns the transactions dated strictly after day, most recent first.
// Ties on the timestamp are broken by id so the order is stable across calls.
func After(txs []core.Transaction, day core.Date) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Day().After(day) {
			out = append(out, tx)
		}
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders txs by timestamp descending, then by id.
func SortNewestFirst(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].ID > txs[j].ID
	})
}

// NetWorth sums every balance with its stored sign.
func NetWorth(b Balances) core.Money {
	var total int64
	for _, v := range b {
		total += v
	}
	return core.Money{Cents: total}
}

// Position groups balances by account classification. Accounts whose type is
// unknown count as assets.
func Position(accounts []core.Account, types map[string]core.AccountType, b Balances) Breakdown {
	var out Breakdown
	for _, a := range accounts {
		v, ok := b[a.ID]
		if !ok {
			continue
		}
		if types[a.TypeID].Classification == core.Liability {
			out.Liabilities.Cents += v
		} else {
			out.Assets.Cents += v
		}
		out.Total.Cents += v
	}
	return out
}

// Listing renders balances per account in account order.
func Listing(accounts []core.Account, types map[string]core.AccountType, b Balances) []AccountBalance {
	out := make([]AccountBalance, 0, len(accounts))
	for _, a := range accounts {
		cls := types[a.TypeID].Classification
		if cls == "" {
			cls = core.Asset
		}
		out = append(out, AccountBalance{
			AccountID:      a.ID,
			Name:           a.Name,
			TypeID:         a.TypeID,
			Classification: cls,
			Balance:        core.Money{Cents: b[a.ID]},
		})
	}
	return out
}

func (b Balances) Clone() Balances {
	out := make(Balances, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
