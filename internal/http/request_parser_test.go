package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
	"finboard/internal/report"
)

var june20 = core.NewDate(2025, 6, 20)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		query   string
		want    report.Window
		wantErr string
	}{
		{"", report.MonthWindow(2025, time.June), ""},
		{"year=2024&month=2", report.MonthWindow(2024, time.February), ""},
		{"from=2025-06-01&to=2025-06-07", report.Window{Start: core.NewDate(2025, 6, 1), End: core.NewDate(2025, 6, 7)}, ""},
		{"from=2025-06-01", report.Window{}, "from"},
		{"to=2025-06-01", report.Window{}, "from"},
		{"from=2025-06-07&to=2025-06-01", report.Window{}, "to"},
		{"month=0", report.Window{}, "month"},
		{"year=two", report.Window{}, "year"},
		{"from=06/01/2025&to=2025-06-07", report.Window{}, "from"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			got, err := parseWindow(q, june20)
			if tt.wantErr != "" {
				var verr *core.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantErr, verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseReportRequest(t *testing.T) {
	q, _ := url.ParseQuery("from=2025-05-20&to=2025-06-05&opening=-12.50&empty_days=1")
	req, err := parseReportRequest(q, june20)
	require.NoError(t, err)
	assert.Equal(t, int64(-1250), req.Opening.Cents)
	assert.True(t, req.IncludeEmptyDays)
	assert.Equal(t, report.MonthWindow(2025, time.June), req.BudgetPeriod, "budget period follows the window end")

	q, _ = url.ParseQuery("empty_days=maybe")
	_, err = parseReportRequest(q, june20)
	assert.True(t, core.IsValidation(err))
}

func TestParseFilter(t *testing.T) {
	q, _ := url.ParseQuery("account=A&category=Food&type=expense&from=2025-06-01&to=2025-06-30&transfer=t1")
	f, err := parseFilter(q)
	require.NoError(t, err)
	assert.Equal(t, "A", f.AccountID)
	assert.Equal(t, "Food", f.Category)
	assert.Equal(t, core.Expense, f.Type)
	assert.Equal(t, "t1", f.TransferID)
	assert.Equal(t, core.NewDate(2025, 6, 30), f.To)

	for _, bad := range []string{"type=gift", "from=yesterday", "from=2025-06-30&to=2025-06-01"} {
		q, _ := url.ParseQuery(bad)
		_, err := parseFilter(q)
		assert.True(t, core.IsValidation(err), bad)
	}
}

func TestTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{`"2025-06-15"`, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), false},
		{`"2025-06-15T09:30:00+02:00"`, time.Date(2025, 6, 15, 7, 30, 0, 0, time.UTC), false},
		{`""`, time.Time{}, false},
		{`"15/06/2025"`, time.Time{}, true},
		{`20250615`, time.Time{}, true},
	}
	for _, tt := range tests {
		var ts Timestamp
		err := json.Unmarshal([]byte(tt.in), &ts)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(ts.Time), "%s: got %v", tt.in, ts.Time)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		body    string
		wantErr bool
	}{
		{`{"name":"x"}`, false},
		{``, true},
		{`{"name":"x"} {"name":"y"}`, true},
		{`{"nome":"x"}`, true},
		{`{"name":` + strings.Repeat(" ", maxJSONBody) + `"x"}`, true},
	}
	for i, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
		var p payload
		err := decodeJSON(rec, req, &p)
		if tt.wantErr {
			require.Error(t, err, "case %d", i)
			status, kind := ErrorStatus(err)
			assert.Equal(t, KindBadRequest, kind)
			assert.Contains(t, []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge}, status)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, "x", p.Name)
	}
}
