// Package http exposes the ledger, reports and advisor as a JSON API.
//
// This file implements the parsing of query parameters and JSON bodies into
// domain values. Malformed values are reported as validation errors naming
// the offending parameter.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finboard/internal/core"
	"finboard/internal/ledger"
	"finboard/internal/report"
	"finboard/internal/services"
)

const (
	maxJSONBody = 1 << 20
	maxCSVBody  = 5 << 20
)

var (
	errBadNumber = errors.New("not a number")
	errBadBool   = errors.New("expected true or false")
	errBadDate   = errors.New("expected YYYY-MM-DD")
	errBadTime   = errors.New("expected RFC3339 timestamp or YYYY-MM-DD")
	errHalfRange = errors.New("from and to must be given together")
	errBadMonth  = errors.New("month must be between 1 and 12")
)

// badBodyError marks a request body that could not be decoded at all.
type badBodyError struct{ err error }

func (e *badBodyError) Error() string { return "invalid request body: " + e.err.Error() }
func (e *badBodyError) Unwrap() error { return e.err }

// decodeJSON reads a single JSON value from the request body into v,
// rejecting unknown fields and bodies over 1 MiB.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &badBodyError{errors.New("empty body")}
		}
		return &badBodyError{err}
	}
	if dec.More() {
		return &badBodyError{errors.New("unexpected data after JSON value")}
	}
	return nil
}

// parseDateParam reads an optional YYYY-MM-DD parameter.
func parseDateParam(q url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.Invalid(key, v, errBadDate)
	}
	return d, nil
}

func parseIntParam(q url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.Invalid(key, v, errBadNumber)
	}
	return n, nil
}

func parseBoolParam(q url.Values, key string) (bool, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, core.Invalid(key, v, errBadBool)
	}
	return b, nil
}

// parseMoneyParam reads an optional signed decimal amount in major units.
func parseMoneyParam(q url.Values, key string) (core.Money, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return core.Money{}, nil
	}
	cents, err := core.ParseSignedCents(v)
	if err != nil {
		return core.Money{}, core.Invalid(key, v, err)
	}
	return core.Money{Cents: cents}, nil
}

// parseMonth reads year and month, defaulting to the month containing today.
func parseMonth(q url.Values, today core.Date) (report.Window, error) {
	year, err := parseIntParam(q, "year", today.Year())
	if err != nil {
		return report.Window{}, err
	}
	month, err := parseIntParam(q, "month", int(today.Month()))
	if err != nil {
		return report.Window{}, err
	}
	if month < 1 || month > 12 {
		return report.Window{}, core.Invalid("month", month, errBadMonth)
	}
	return report.MonthWindow(year, time.Month(month)), nil
}

// parseWindow reads from/to, falling back to year/month and then to the
// current month.
func parseWindow(q url.Values, today core.Date) (report.Window, error) {
	from, err := parseDateParam(q, "from")
	if err != nil {
		return report.Window{}, err
	}
	to, err := parseDateParam(q, "to")
	if err != nil {
		return report.Window{}, err
	}
	switch {
	case from.IsZero() && to.IsZero():
		return parseMonth(q, today)
	case from.IsZero() || to.IsZero():
		return report.Window{}, core.Invalid("from", q.Get("from"), errHalfRange)
	}
	w := report.Window{Start: from, End: to}
	return w, w.Validate()
}

// parseReportRequest builds a dashboard request from the query string. The
// budget period is always the calendar month of the window's last day.
func parseReportRequest(q url.Values, today core.Date) (report.Request, error) {
	w, err := parseWindow(q, today)
	if err != nil {
		return report.Request{}, err
	}
	opening, err := parseMoneyParam(q, "opening")
	if err != nil {
		return report.Request{}, err
	}
	empty, err := parseBoolParam(q, "empty_days")
	if err != nil {
		return report.Request{}, err
	}
	return report.Request{
		Window:           w,
		BudgetPeriod:     report.MonthWindow(w.End.Year(), w.End.Month()),
		Opening:          opening,
		IncludeEmptyDays: empty,
	}, nil
}

// parseFilter reads the transaction list filters.
func parseFilter(q url.Values) (ledger.Filter, error) {
	f := ledger.Filter{
		AccountID:  strings.TrimSpace(q.Get("account")),
		Category:   strings.TrimSpace(q.Get("category")),
		TransferID: strings.TrimSpace(q.Get("transfer")),
	}
	if t := strings.TrimSpace(q.Get("type")); t != "" {
		f.Type = core.TransactionType(t)
		if !f.Type.Valid() {
			return ledger.Filter{}, core.Invalid("type", t, core.ErrInvalidType)
		}
	}
	var err error
	if f.From, err = parseDateParam(q, "from"); err != nil {
		return ledger.Filter{}, err
	}
	if f.To, err = parseDateParam(q, "to"); err != nil {
		return ledger.Filter{}, err
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return ledger.Filter{}, core.Invalid("to", f.To, report.ErrWindowOrder)
	}
	return f, nil
}

// Timestamp accepts either an RFC3339 timestamp or a bare YYYY-MM-DD day,
// which is read as midnight UTC.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errBadTime
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		t.Time = ts
		return nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return fmt.Errorf("%w: %q", errBadTime, s)
	}
	t.Time = d.Time
	return nil
}

func today() core.Date {
	return services.Today()
}
