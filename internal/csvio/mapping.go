// Package csvio reads and writes the ledger's CSV file interface.
//
// Imports are driven by a declared ColumnMapping instead of sniffing headers:
// each logical field lists the header names it accepts.
package csvio

import (
	"fmt"
	"strings"
)

type Field string

const (
	FieldDate        Field = "date"
	FieldDescription Field = "description"
	FieldCategory    Field = "category"
	FieldAccount     Field = "account"
	// FieldAmount is signed: positive is income, negative is expense.
	FieldAmount Field = "amount"
	// FieldCost is a spend: positive is expense, negative is a refund (income).
	FieldCost Field = "cost"
)

type Column struct {
	Field    Field
	Headers  []string
	Required bool
}

// ColumnMapping declares how header names map to logical fields.
type ColumnMapping struct {
	Name    string
	Columns []Column
	// OneOf lists field groups where at least one member must be present.
	OneOf [][]Field
	// DefaultCategory is used when the category column is absent or blank.
	DefaultCategory string
}

// StandardMapping is the export format read back: all five columns required.
var StandardMapping = ColumnMapping{
	Name: "standard",
	Columns: []Column{
		{Field: FieldDate, Headers: []string{"Date"}, Required: true},
		{Field: FieldDescription, Headers: []string{"Description"}, Required: true},
		{Field: FieldCategory, Headers: []string{"Category"}, Required: true},
		{Field: FieldAccount, Headers: []string{"Account"}, Required: true},
		{Field: FieldAmount, Headers: []string{"Amount"}, Required: true},
	},
}

// LooseMapping accepts bank-style files with only a date, a description and
// either a Cost or an Amount column. Rows without an account fall back to the
// import's default account.
var LooseMapping = ColumnMapping{
	Name: "loose",
	Columns: []Column{
		{Field: FieldDate, Headers: []string{"Date", "Booking Date", "Transaction Date"}, Required: true},
		{Field: FieldDescription, Headers: []string{"Description", "Details", "Memo", "Payee"}, Required: true},
		{Field: FieldCategory, Headers: []string{"Category"}},
		{Field: FieldAccount, Headers: []string{"Account"}},
		{Field: FieldAmount, Headers: []string{"Amount"}},
		{Field: FieldCost, Headers: []string{"Cost"}},
	},
	OneOf:           [][]Field{{FieldAmount, FieldCost}},
	DefaultCategory: "Other",
}

// MappingByName resolves the mapping names accepted by the API.
func MappingByName(name string) (ColumnMapping, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StandardMapping.Name:
		return StandardMapping, true
	case LooseMapping.Name:
		return LooseMapping, true
	}
	return ColumnMapping{}, false
}

// resolve maps each field to its column index in header. Header names match
// case-insensitively after trimming.
func (m ColumnMapping) resolve(header []string) (map[Field]int, error) {
	pos := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}
	out := map[Field]int{}
	var missing []string
	for _, col := range m.Columns {
		for _, h := range col.Headers {
			if i, ok := pos[strings.ToLower(h)]; ok {
				out[col.Field] = i
				break
			}
		}
		if _, ok := out[col.Field]; !ok && col.Required {
			missing = append(missing, col.Headers[0])
		}
	}
	for _, group := range m.OneOf {
		found := false
		names := make([]string, 0, len(group))
		for _, f := range group {
			if _, ok := out[f]; ok {
				found = true
			}
			names = append(names, m.headerFor(f))
		}
		if !found {
			missing = append(missing, strings.Join(names, " or "))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: required columns are %s; missing %s",
			ErrMissingColumns, strings.Join(m.requiredNames(), ", "), strings.Join(missing, ", "))
	}
	return out, nil
}

func (m ColumnMapping) headerFor(f Field) string {
	for _, col := range m.Columns {
		if col.Field == f && len(col.Headers) > 0 {
			return col.Headers[0]
		}
	}
	return string(f)
}

func (m ColumnMapping) requiredNames() []string {
	var out []string
	for _, col := range m.Columns {
		if col.Required {
			out = append(out, col.Headers[0])
		}
	}
	for _, group := range m.OneOf {
		names := make([]string, 0, len(group))
		for _, f := range group {
			names = append(names, m.headerFor(f))
		}
		out = append(out, strings.Join(names, "|"))
	}
	return out
}
