package csvio

import (
	"bufio"
	"io"
	"strings"
	"time"

	"finboard/internal/core"
)

// ExportHeader is the first line of every export.
const ExportHeader = "Date,Description,Category,Account,Amount"

// DefaultExportDateLayout matches the en-US short locale date (6/15/2025).
const DefaultExportDateLayout = "1/2/2006"

type ExportOptions struct {
	DateLayout string
	// Location renders dates in a fixed zone. Nil keeps each timestamp's own zone.
	Location *time.Location
}

// ExportRow renders one transaction as the five export cells. Description and
// account name are always quoted; the amount is signed, negative for expenses.
func ExportRow(tx core.Transaction, accountName string, opts ExportOptions) []string {
	layout := opts.DateLayout
	if layout == "" {
		layout = DefaultExportDateLayout
	}
	date := tx.Date
	if opts.Location != nil {
		date = date.In(opts.Location)
	}
	return []string{
		date.Format(layout),
		quote(tx.Description),
		quoteIfNeeded(tx.Category),
		quote(accountName),
		core.CentsDecimal(tx.Signed()),
	}
}

// Export writes txs in the given order. Lines are separated by "\n" with no
// trailing newline. Unknown accounts render as an empty quoted name.
func Export(w io.Writer, txs []core.Transaction, accounts []core.Account, opts ExportOptions) error {
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(ExportHeader); err != nil {
		return err
	}
	for _, tx := range txs {
		if _, err := bw.WriteString("\n" + strings.Join(ExportRow(tx, names[tx.AccountID], opts), ",")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}
