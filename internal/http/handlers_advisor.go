package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"finboard/internal/advisor"
	"finboard/internal/core"
	"finboard/internal/ledger"
	"finboard/internal/log"
)

var errEmptyCategory = errors.New("category is required")

type estimateRequest struct {
	Category string          `json:"category"`
	History  json.RawMessage `json:"history,omitempty"`
}

type predictRequest struct {
	History []advisor.HistoryItem `json:"history,omitempty"`
}

type insightsRequest struct {
	Transactions json.RawMessage `json:"transactions,omitempty"`
}

// advisorAvailable writes a 503 and reports false when no advisor is wired.
func (s *Server) advisorAvailable(w http.ResponseWriter, r *http.Request) bool {
	if s.advisor != nil {
		return true
	}
	s.logger.WarnContext(r.Context(), "Advisor request without a configured advisor", log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusServiceUnavailable, KindUnavailable, "advisor is not configured").Write(w)
	return false
}

// handleEstimateBudget suggests a monthly budget for a category. Without an
// explicit history the category's recorded expenses are sent.
func (s *Server) handleEstimateBudget(w http.ResponseWriter, r *http.Request) {
	if !s.advisorAvailable(w, r) {
		return
	}
	var req estimateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpAdvise, err)
		return
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		writeError(w, r, log.OpAdvise, core.Invalid("category", req.Category, errEmptyCategory))
		return
	}

	history := rawJSON(req.History)
	if history == "" {
		var err error
		history, err = s.historyJSON(r.Context(), ledger.Filter{Category: category, Type: core.Expense})
		if err != nil {
			writeError(w, r, log.OpAdvise, err)
			return
		}
	}

	est, err := s.advisor.EstimateBudget(r.Context(), category, history)
	if err != nil {
		writeError(w, r, log.OpAdvise, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// handlePredict forecasts upcoming expenses from the given history, or from
// every recorded non-transfer expense.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if !s.advisorAvailable(w, r) {
		return
	}
	var req predictRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpAdvise, err)
		return
	}

	history := req.History
	if len(history) == 0 {
		txs, err := s.spendingHistory(r.Context(), ledger.Filter{Type: core.Expense})
		if err != nil {
			writeError(w, r, log.OpAdvise, err)
			return
		}
		history = advisor.HistoryFromTransactions(txs)
	}

	pred, err := s.advisor.PredictFutureExpenses(r.Context(), history)
	if err != nil {
		writeError(w, r, log.OpAdvise, err)
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if !s.advisorAvailable(w, r) {
		return
	}
	var req insightsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpAdvise, err)
		return
	}

	txsJSON := rawJSON(req.Transactions)
	if txsJSON == "" {
		var err error
		txsJSON, err = s.historyJSON(r.Context(), ledger.Filter{})
		if err != nil {
			writeError(w, r, log.OpAdvise, err)
			return
		}
	}

	insights, err := s.advisor.AnalyzeSpendingHabits(r.Context(), txsJSON)
	if err != nil {
		writeError(w, r, log.OpAdvise, err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

// spendingHistory lists the matching transactions, leaving transfer legs out.
func (s *Server) spendingHistory(ctx context.Context, f ledger.Filter) ([]core.Transaction, error) {
	txs, err := s.ledger.ListTransactions(ctx, f)
	if err != nil {
		return nil, err
	}
	out := txs[:0]
	for _, tx := range txs {
		if !tx.IsTransfer() {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Server) historyJSON(ctx context.Context, f ledger.Filter) (string, error) {
	txs, err := s.spendingHistory(ctx, f)
	if err != nil {
		return "", err
	}
	return advisor.HistoryJSON(advisor.HistoryFromTransactions(txs))
}

// rawJSON returns the raw value as text, treating an absent or null value
// as empty.
func rawJSON(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	return string(trimmed)
}
