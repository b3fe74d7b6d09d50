package http

import (
	"net/http"
	"strings"

	"finboard/internal/core"
	"finboard/internal/log"
)

type reminderRequest struct {
	Description string         `json:"description"`
	Amount      core.Money     `json:"amount"`
	DueDate     Timestamp      `json:"dueDate"`
	Frequency   core.Frequency `json:"frequency"`
	AccountID   string         `json:"accountId"`
	IsPaid      bool           `json:"isPaid"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.ledger.ListBudgets(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var b core.Budget
	if err := decodeJSON(w, r, &b); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	b.Category = strings.TrimSpace(b.Category)
	created, err := s.ledger.CreateBudget(r.Context(), b)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteBudget(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.ledger.ListReminders(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if reminders == nil {
		reminders = []core.Reminder{}
	}
	writeJSON(w, http.StatusOK, reminders)
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	created, err := s.ledger.CreateReminder(r.Context(), core.Reminder{
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		DueDate:     req.DueDate.Time,
		Frequency:   req.Frequency,
		AccountID:   req.AccountID,
		IsPaid:      req.IsPaid,
	})
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleToggleReminder(w http.ResponseWriter, r *http.Request) {
	updated, err := s.ledger.ToggleReminder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleAdvanceReminder moves a recurring reminder to its next due date and
// marks it unpaid. One-off reminders are rejected.
func (s *Server) handleAdvanceReminder(w http.ResponseWriter, r *http.Request) {
	updated, err := s.ledger.AdvanceReminder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteReminder(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
