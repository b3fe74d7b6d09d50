package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	ports "finboard/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	ledgerSheet    string
	remindersSheet string
}

var _ ports.Mirror = (*Client)(nil)

// Config selects the spreadsheet, its tabs and the service account used to
// reach it. CredentialsJSON wins over CredentialsFile when both are set.
type Config struct {
	SpreadsheetID   string
	LedgerSheet     string
	RemindersSheet  string
	CredentialsFile string
	CredentialsJSON string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var auth goption.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		auth = goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		slog.InfoContext(ctx, "Using service account credentials file", "path", cfg.CredentialsFile)
		auth = goption.WithCredentialsFile(cfg.CredentialsFile)
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	return NewWithOptions(ctx, cfg, auth, goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions builds the client from explicit API options, for custom
// endpoints and tests.
func NewWithOptions(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if cfg.LedgerSheet == "" {
		cfg.LedgerSheet = "Ledger"
	}
	if cfg.RemindersSheet == "" {
		cfg.RemindersSheet = "Reminders"
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:            svc,
		spreadsheetID:  cfg.SpreadsheetID,
		ledgerSheet:    cfg.LedgerSheet,
		remindersSheet: cfg.RemindersSheet,
	}, nil
}

// ReplaceLedger clears the ledger tab and writes the header and rows from A1.
// Values are sent RAW so descriptions are never parsed as formulas.
func (c *Client) ReplaceLedger(ctx context.Context, rows [][]string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!A:Z", c.ledgerSheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear sheet %s: %w", c.ledgerSheet, err)
	}

	values := make([][]any, 0, len(rows)+1)
	values = append(values, toValues(ports.LedgerHeader))
	for _, row := range rows {
		values = append(values, toValues(row))
	}
	rng := fmt.Sprintf("%s!A1", c.ledgerSheet)
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to write sheet %s: %w", c.ledgerSheet, err)
	}

	slog.DebugContext(ctx, "Ledger sheet rewritten", "sheet", c.ledgerSheet, "rows", len(rows))
	return nil
}

// AppendReminder adds one row after the last used row of the reminders tab.
func (c *Client) AppendReminder(ctx context.Context, row []string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:G", c.remindersSheet)
	vr := &gsheet.ValueRange{Values: [][]any{toValues(row)}}
	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to append to sheet %s: %w", c.remindersSheet, err)
	}
	return nil
}

func toValues(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
