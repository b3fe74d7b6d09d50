package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"finboard/internal/core"
	"finboard/internal/ledger"
)

var (
	ErrMissingColumns = errors.New("invalid CSV format")
	ErrTransfersRow   = errors.New(`CSV import for "Transfers" is not supported; add transfers manually`)
	ErrEmptyFile      = errors.New("file has no header row")
)

// DefaultDateLayouts are tried in order when Options.DateLayouts is empty.
var DefaultDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"1/2/2006",
	"2006/01/02",
}

type Options struct {
	// DefaultAccountID is used for rows with no account column or a blank
	// account when the mapping makes the column optional.
	DefaultAccountID string
	DateLayouts      []string
	// Location is used for layouts without a zone. Defaults to UTC.
	Location *time.Location
}

// RowError describes one rejected row. Row 1 is the header.
type RowError struct {
	Row int    `json:"row"`
	Msg string `json:"message"`
}

// ImportError lists every rejected row. Nothing is imported when it is returned.
type ImportError struct {
	Rows []RowError
}

func (e *ImportError) Error() string {
	lines := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		lines[i] = fmt.Sprintf("Row %d: %s", r.Row, r.Msg)
	}
	return strings.Join(lines, "\n")
}

// Import parses r under mapping and resolves account names against accounts
// by exact name. It returns either every row as a transaction or a
// ValidationError wrapping an ImportError; partial results are never returned.
func Import(r io.Reader, mapping ColumnMapping, accounts []core.Account, opts Options) ([]core.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, core.Invalid("file", nil, ErrEmptyFile)
	}
	if err != nil {
		return nil, core.Invalid("file", nil, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	cols, err := mapping.resolve(header)
	if err != nil {
		return nil, core.Invalid("header", strings.Join(header, ","), err)
	}

	byName := make(map[string]string, len(accounts))
	for _, a := range accounts {
		if _, dup := byName[a.Name]; !dup {
			byName[a.Name] = a.ID
		}
	}
	layouts := opts.DateLayouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	var (
		out  []core.Transaction
		errs []RowError
	)
	for index := 0; ; index++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row := index + 2
		if err != nil {
			errs = append(errs, RowError{Row: row, Msg: err.Error()})
			continue
		}
		if blank(rec) {
			continue
		}
		get := func(f Field) (string, bool) {
			i, ok := cols[f]
			if !ok {
				return "", false
			}
			if i >= len(rec) {
				return "", true
			}
			return strings.TrimSpace(rec[i]), true
		}
		tx, msg := parseRow(get, mapping, byName, layouts, loc, opts.DefaultAccountID)
		if msg != "" {
			errs = append(errs, RowError{Row: row, Msg: msg})
			continue
		}
		out = append(out, tx)
	}
	if len(errs) > 0 {
		return nil, core.Invalid("file", mapping.Name, &ImportError{Rows: errs})
	}
	return out, nil
}

func parseRow(get func(Field) (string, bool), m ColumnMapping, byName map[string]string, layouts []string, loc *time.Location, defaultAccount string) (core.Transaction, string) {
	accountName, _ := get(FieldAccount)
	accountID := byName[accountName]
	if accountName == "" && !m.required(FieldAccount) {
		accountID = defaultAccount
	}
	if accountID == "" {
		if accountName == "" {
			return core.Transaction{}, "no account given and no default account set"
		}
		return core.Transaction{}, fmt.Sprintf("Account %q not found.", accountName)
	}

	raw, hasAmount := get(FieldAmount)
	cost, hasCost := get(FieldCost)
	var cents int64
	var err error
	if hasAmount && (raw != "" || !hasCost) {
		cents, err = core.ParseSignedCents(raw)
	} else {
		raw = cost
		cents, err = core.ParseSignedCents(cost)
		cents = -cents
	}
	if err != nil {
		return core.Transaction{}, fmt.Sprintf("Invalid amount %q.", raw)
	}

	category, _ := get(FieldCategory)
	if category == "" {
		category = m.DefaultCategory
	}
	if category == core.TransfersCategory {
		return core.Transaction{}, ErrTransfersRow.Error()
	}

	rawDate, _ := get(FieldDate)
	date, ok := parseDate(rawDate, layouts, loc)
	if !ok {
		return core.Transaction{}, fmt.Sprintf("Invalid date %q.", rawDate)
	}
	description, _ := get(FieldDescription)

	tx := core.Transaction{
		ID:          ledger.NewID(),
		Date:        date,
		Description: description,
		Amount:      core.Money{Cents: abs(cents)},
		Type:        core.Income,
		Category:    category,
		AccountID:   accountID,
	}
	if cents < 0 {
		tx.Type = core.Expense
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err.Error()
	}
	return tx, ""
}

func (m ColumnMapping) required(f Field) bool {
	for _, c := range m.Columns {
		if c.Field == f {
			return c.Required
		}
	}
	return false
}

func parseDate(s string, layouts []string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
