package ledger

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"finboard/internal/core"
)

var (
	// ErrTransferLeg is the reason given when a single transfer leg is removed.
	ErrTransferLeg = errors.New("transaction is one leg of a transfer; remove the transfer instead")
	// ErrTransferCategory rejects single transactions filed under Transfers,
	// which every report treats as one side of a pair.
	ErrTransferCategory = errors.New(`category "Transfers" is reserved for transfers; use the transfer endpoint`)
)

type TransferRequest struct {
	FromAccountID string     `json:"fromAccountId"`
	ToAccountID   string     `json:"toAccountId"`
	Amount        core.Money `json:"amount"`
	Description   string     `json:"description,omitempty"`
	Date          time.Time  `json:"date"`
	Label         string     `json:"label,omitempty"`
}

// Transfer is the linked expense/income pair created for one TransferRequest.
type Transfer struct {
	ID  string           `json:"id"`
	Out core.Transaction `json:"out"`
	In  core.Transaction `json:"in"`
}

// Validate checks the request shape before any account lookup.
func (r TransferRequest) Validate() error {
	if strings.TrimSpace(r.FromAccountID) == "" {
		return core.Invalid("fromAccountId", r.FromAccountID, core.ErrEmptyAccount)
	}
	if strings.TrimSpace(r.ToAccountID) == "" {
		return core.Invalid("toAccountId", r.ToAccountID, core.ErrEmptyAccount)
	}
	if r.FromAccountID == r.ToAccountID {
		return core.Invalid("toAccountId", r.ToAccountID, core.ErrSameAccount)
	}
	if err := r.Amount.Validate(); err != nil {
		return core.Invalid("amount", r.Amount, err)
	}
	return nil
}

// BuildTransfer creates both legs. The expense leg sits on from, the income
// leg on to; both share a fresh transfer id and the Transfers category.
func BuildTransfer(r TransferRequest, from, to core.Account) Transfer {
	id := uuid.NewString()
	date := r.Date
	if date.IsZero() {
		date = Now()
	}
	outDesc, inDesc := r.Description, r.Description
	if strings.TrimSpace(r.Description) == "" {
		outDesc = "Transfer to " + to.Name
		inDesc = "Transfer from " + from.Name
	}
	leg := func(acc core.Account, t core.TransactionType, desc string) core.Transaction {
		return core.Transaction{
			ID:          uuid.NewString(),
			Date:        date,
			Description: desc,
			Amount:      r.Amount,
			Type:        t,
			Category:    core.TransfersCategory,
			Label:       r.Label,
			AccountID:   acc.ID,
			TransferID:  id,
		}
	}
	return Transfer{
		ID:  id,
		Out: leg(from, core.Expense, outDesc),
		In:  leg(to, core.Income, inDesc),
	}
}

// PrepareTransaction validates tx and fills its id. Transfer legs can only be
// created through AddTransfer.
func PrepareTransaction(tx core.Transaction) (core.Transaction, error) {
	if tx.TransferID != "" {
		return tx, core.Invalid("transferId", tx.TransferID, errors.New("transfers must be created as a pair"))
	}
	if tx.Category == core.TransfersCategory {
		return tx, core.Invalid("category", tx.Category, ErrTransferCategory)
	}
	if err := tx.Validate(); err != nil {
		return tx, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	return tx, nil
}

// NewID returns a fresh identifier for stored records.
func NewID() string {
	return uuid.NewString()
}
