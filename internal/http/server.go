package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finboard/internal/advisor"
	"finboard/internal/log"
	"finboard/internal/metrics"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/services"
)

// Deps are the collaborators the API serves. Advisor and Ready may be nil.
type Deps struct {
	Ledger  *services.LedgerService
	Reports *services.ReportService
	Advisor advisor.Advisor
	Metrics *metrics.Collector
	Logger  *log.Logger

	// Ready reports whether the backing store can serve requests.
	Ready func(ctx context.Context) error

	RateLimitPerMinute int
}

// Server is the finboard JSON API.
type Server struct {
	http.Server

	ledger   *services.LedgerService
	reports  *services.ReportService
	advisor  advisor.Advisor
	metrics  *metrics.Collector
	logger   *log.Logger
	ready    func(ctx context.Context) error
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer registers every route and wraps the mux in tracing, security
// headers and rate limiting, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		ledger:   deps.Ledger,
		reports:  deps.Reports,
		advisor:  deps.Advisor,
		metrics:  deps.Metrics,
		logger:   logger,
		ready:    deps.Ready,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		detector: security.NewDetector(),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var observer trace.Observer
	if s.metrics != nil {
		observer = s.metrics
	}
	tracer := trace.NewMiddleware(logger, s.detector.ExtractClientIP, observer)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Middleware(s.detector.Middleware(headers.Middleware(limit(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /api/account-types", s.handleListAccountTypes)
	mux.HandleFunc("POST /api/account-types", s.handleCreateAccountType)
	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/import", s.handleImport)
	mux.HandleFunc("GET /api/transactions/export", s.handleExport)
	mux.HandleFunc("POST /api/transfers", s.handleCreateTransfer)
	mux.HandleFunc("DELETE /api/transfers/{id}", s.handleDeleteTransfer)

	mux.HandleFunc("GET /api/balances", s.handleBalances)
	mux.HandleFunc("GET /api/reports", s.handleReports)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)
	mux.HandleFunc("GET /api/budgets/progress", s.handleBudgetProgress)

	mux.HandleFunc("GET /api/reminders", s.handleListReminders)
	mux.HandleFunc("POST /api/reminders", s.handleCreateReminder)
	mux.HandleFunc("POST /api/reminders/{id}/toggle", s.handleToggleReminder)
	mux.HandleFunc("POST /api/reminders/{id}/advance", s.handleAdvanceReminder)
	mux.HandleFunc("DELETE /api/reminders/{id}", s.handleDeleteReminder)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleSaveCategory)
	mux.HandleFunc("DELETE /api/categories/{name}", s.handleDeleteCategory)
	mux.HandleFunc("GET /api/labels", s.handleListLabels)
	mux.HandleFunc("POST /api/labels", s.handleSaveLabel)
	mux.HandleFunc("DELETE /api/labels/{name}", s.handleDeleteLabel)

	mux.HandleFunc("POST /api/advisor/estimate-budget", s.handleEstimateBudget)
	mux.HandleFunc("POST /api/advisor/predict", s.handlePredict)
	mux.HandleFunc("POST /api/advisor/insights", s.handleInsights)
}

// Shutdown stops accepting requests, drains in-flight ones and stops the
// rate limiter. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, KindRateLimited, "rate limit exceeded, try again later").Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			ErrorResponse(http.StatusServiceUnavailable, KindUnavailable, "store not ready").Write(w)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
