package http

import (
	"net/http"
	"strings"

	"finboard/internal/core"
	"finboard/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.ledger.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// handleSaveCategory creates the category or replaces its subcategories.
func (s *Server) handleSaveCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	c.Name = strings.TrimSpace(c.Name)
	saved, err := s.ledger.SaveCategory(r.Context(), c)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteCategory(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.ledger.ListLabels(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, labels)
}

func (s *Server) handleSaveLabel(w http.ResponseWriter, r *http.Request) {
	var l core.Label
	if err := decodeJSON(w, r, &l); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	l.Name = strings.TrimSpace(l.Name)
	saved, err := s.ledger.SaveLabel(r.Context(), l)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteLabel(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteLabel(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
