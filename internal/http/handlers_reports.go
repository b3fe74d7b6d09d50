package http

import (
	"net/http"

	"finboard/internal/log"
)

// handleBalances serves the calendar view for ?date=, defaulting to today.
func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	day, err := parseDateParam(r.URL.Query(), "date")
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	if day.IsZero() {
		day = today()
	}
	view, err := s.reports.BalancesOn(r.Context(), day)
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r.URL.Query(), today())
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	dash, err := s.reports.Dashboard(r.Context(), req)
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	period, err := parseMonth(r.URL.Query(), today())
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	progress, err := s.reports.BudgetProgress(r.Context(), period)
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":  period,
		"budgets": progress,
	})
}
