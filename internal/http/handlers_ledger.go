package http

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"strings"

	"finboard/internal/core"
	"finboard/internal/csvio"
	"finboard/internal/ledger"
	"finboard/internal/log"
	"finboard/internal/replay"
	"finboard/internal/services"
)

type transactionRequest struct {
	Date        Timestamp            `json:"date"`
	Description string               `json:"description"`
	Amount      core.Money           `json:"amount"`
	Type        core.TransactionType `json:"type"`
	Category    string               `json:"category"`
	Subcategory string               `json:"subcategory"`
	Label       string               `json:"label"`
	AccountID   string               `json:"accountId"`
}

type transferRequest struct {
	FromAccountID string     `json:"fromAccountId"`
	ToAccountID   string     `json:"toAccountId"`
	Amount        core.Money `json:"amount"`
	Description   string     `json:"description"`
	Date          Timestamp  `json:"date"`
	Label         string     `json:"label"`
}

func (s *Server) handleListAccountTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.ledger.ListAccountTypes(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (s *Server) handleCreateAccountType(w http.ResponseWriter, r *http.Request) {
	var at core.AccountType
	if err := decodeJSON(w, r, &at); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	created, err := s.ledger.CreateAccountType(r.Context(), at)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var a core.Account
	if err := decodeJSON(w, r, &a); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	created, err := s.ledger.CreateAccount(r.Context(), a)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleListTransactions returns the filtered transactions newest first.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), f)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	replay.SortNewestFirst(txs)
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	tx, err := s.ledger.AddTransaction(r.Context(), core.Transaction{
		Date:        req.Date.Time,
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    strings.TrimSpace(req.Category),
		Subcategory: strings.TrimSpace(req.Subcategory),
		Label:       strings.TrimSpace(req.Label),
		AccountID:   req.AccountID,
	})
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemoveTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	tr, err := s.ledger.AddTransfer(r.Context(), ledger.TransferRequest{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Description:   strings.TrimSpace(req.Description),
		Date:          req.Date.Time,
		Label:         strings.TrimSpace(req.Label),
	})
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, tr)
}

func (s *Server) handleDeleteTransfer(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemoveTransfer(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImport accepts the CSV either as the raw body or as the "file" part
// of a multipart form. Nothing is stored when any row is rejected.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dryRun, err := parseBoolParam(q, "dry_run")
	if err != nil {
		writeError(w, r, log.OpImport, err)
		return
	}
	mapping := strings.TrimSpace(q.Get("mapping"))
	if mapping == "" {
		mapping = csvio.StandardMapping.Name
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCSVBody)
	body, err := csvBody(r)
	if err != nil {
		writeError(w, r, log.OpImport, err)
		return
	}
	defer body.Close()

	res, err := s.ledger.ImportCSV(r.Context(), body, services.ImportRequest{
		Mapping:          mapping,
		DefaultAccountID: strings.TrimSpace(q.Get("account")),
		DryRun:           dryRun,
	})
	if err != nil {
		writeError(w, r, log.OpImport, err)
		return
	}
	status := http.StatusCreated
	if res.DryRun {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func csvBody(r *http.Request) (io.ReadCloser, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, &badBodyError{err}
	}
	return file, nil
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := s.ledger.ExportCSV(r.Context(), &buf, f, csvio.ExportOptions{}); err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
