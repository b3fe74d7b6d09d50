// Package sheets mirrors the ledger into a spreadsheet for people who would
// rather read it there. The mirror is write-only; the store stays the source
// of truth.
package sheets

import "context"

// LedgerHeader is the first row of the ledger tab.
var LedgerHeader = []string{"Date", "Description", "Category", "Subcategory", "Label", "Account", "Amount", "Transfer", "ID"}

// ReminderHeader describes the columns of an appended reminder row.
var ReminderHeader = []string{"Notified", "Due", "Description", "Amount", "Frequency", "Account", "ID"}

// Ports for outbound adapters.
type (
	// LedgerWriter replaces the ledger tab with header plus rows. A full
	// rewrite keeps removals in sync without tracking row positions.
	LedgerWriter interface {
		ReplaceLedger(ctx context.Context, rows [][]string) error
	}

	// ReminderWriter appends one row per due reminder notification.
	ReminderWriter interface {
		AppendReminder(ctx context.Context, row []string) error
	}

	Mirror interface {
		LedgerWriter
		ReminderWriter
	}
)
