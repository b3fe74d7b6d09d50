package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
)

type recordedCall struct {
	method string
	path   string
	query  string
	values [][]any
}

// fakeSheets answers the three Values calls the client makes.
func fakeSheets(t *testing.T) (*httptest.Server, func() []recordedCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recordedCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		var body struct {
			Values [][]any `json:"values"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		call.values = body.Values
		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedCall(nil), calls...)
	}
}

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewWithOptions(context.Background(), Config{SpreadsheetID: "sheet-1"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	return c
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet-1"})
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewWithOptions_MissingSpreadsheetID(t *testing.T) {
	_, err := NewWithOptions(context.Background(), Config{}, goption.WithoutAuthentication())
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewWithOptions_DefaultSheetNames(t *testing.T) {
	srv, _ := fakeSheets(t)
	c := testClient(t, srv)
	if c.ledgerSheet != "Ledger" || c.remindersSheet != "Reminders" {
		t.Errorf("unexpected sheet names: %q %q", c.ledgerSheet, c.remindersSheet)
	}
}

func TestClient_ReplaceLedger(t *testing.T) {
	srv, calls := fakeSheets(t)
	c := testClient(t, srv)

	rows := [][]string{{"2025-06-15", "=SUM(A1)", "Food", "", "", "Checking", "-12.5", "", "tx-1"}}
	if err := c.ReplaceLedger(context.Background(), rows); err != nil {
		t.Fatalf("ReplaceLedger: %v", err)
	}

	got := calls()
	if len(got) != 2 {
		t.Fatalf("expected clear and update calls, got %d", len(got))
	}
	if got[0].method != http.MethodPost || !strings.HasSuffix(got[0].path, ":clear") {
		t.Errorf("first call should clear the sheet, got %s %s", got[0].method, got[0].path)
	}
	if !strings.Contains(got[0].path, "/v4/spreadsheets/sheet-1/values/Ledger!A:Z") {
		t.Errorf("unexpected clear path %s", got[0].path)
	}
	if got[1].method != http.MethodPut || !strings.Contains(got[1].query, "valueInputOption=RAW") {
		t.Errorf("second call should be a RAW update, got %s %s?%s", got[1].method, got[1].path, got[1].query)
	}
	if len(got[1].values) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(got[1].values))
	}
	if got[1].values[0][0] != "Date" || got[1].values[1][1] != "=SUM(A1)" {
		t.Errorf("unexpected values %v", got[1].values)
	}
}

func TestClient_AppendReminder(t *testing.T) {
	srv, calls := fakeSheets(t)
	c := testClient(t, srv)

	row := []string{"2025-06-10", "2025-06-12", "Rent", "900", "monthly", "Checking", "r-1"}
	if err := c.AppendReminder(context.Background(), row); err != nil {
		t.Fatalf("AppendReminder: %v", err)
	}

	got := calls()
	if len(got) != 1 {
		t.Fatalf("expected one call, got %d", len(got))
	}
	if !strings.HasSuffix(got[0].path, ":append") || !strings.Contains(got[0].path, "Reminders!A:G") {
		t.Errorf("unexpected append path %s", got[0].path)
	}
	if !strings.Contains(got[0].query, "insertDataOption=INSERT_ROWS") {
		t.Errorf("expected INSERT_ROWS, got %s", got[0].query)
	}
	if len(got[0].values) != 1 || got[0].values[0][2] != "Rent" {
		t.Errorf("unexpected values %v", got[0].values)
	}
}

func TestClient_UninitializedService(t *testing.T) {
	c := &Client{spreadsheetID: "sheet-1"}
	if err := c.ReplaceLedger(context.Background(), nil); err == nil {
		t.Error("expected error from ReplaceLedger")
	}
	if err := c.AppendReminder(context.Background(), nil); err == nil {
		t.Error("expected error from AppendReminder")
	}
}
