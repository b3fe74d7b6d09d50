// Package core holds the ledger domain types, their validation rules and the
// typed errors every layer returns.
//
// This file contains money parsing and the decimal rendering used by JSON and CSV.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseSignedCents parses an amount that may carry a sign, as found in bank
// exports ("-12.50", "1,234.56" is not accepted; "1234,56" is). Zero is an error.
func ParseSignedCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents, ok := toCents(d)
	if !ok || cents == 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// toCents rounds d half away from zero to cents, failing when the result
// does not fit in an int64.
func toCents(d decimal.Decimal) (int64, bool) {
	cents := d.Shift(2).Round(0)
	if !cents.BigInt().IsInt64() {
		return 0, false
	}
	return cents.IntPart(), true
}

// CentsDecimal renders cents with the minimal number of fraction digits
// (1250 -> "12.5", 1200 -> "12").
func CentsDecimal(cents int64) string {
	return decimal.New(cents, -2).String()
}

// Euros returns the value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) String() string {
	return CentsDecimal(m.Cents)
}

// MarshalJSON encodes the amount as a JSON number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(CentsDecimal(m.Cents)), nil
}

// UnmarshalJSON accepts a JSON number or numeric string in major units and
// rounds half-up to cents.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		m.Cents = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("money: %w", err)
	}
	cents, ok := toCents(d)
	if !ok {
		return fmt.Errorf("money: %w", ErrInvalidAmount)
	}
	m.Cents = cents
	return nil
}
