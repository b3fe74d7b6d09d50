package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or one over slog.Default tagged
// "unknown" when none was injected.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return bind(slog.Default(), "unknown")
}

// Middleware injects logger into every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// ComponentMiddleware retags the request logger for one route group.
func ComponentMiddleware(component string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).WithComponent(component)
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger emits the fixed-shape records for requests, postings and
// failures.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, "", r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithClientIP(clientIP)
	sl.logger.WithComponent(ComponentHTTP).DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs a finished request: 4xx at warn, 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.Pattern, r.URL.RawQuery, "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)
	sl.logger.WithComponent(ComponentHTTP).Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogTransactionPosted(ctx context.Context, id, accountID string, amountCents int64, category string) {
	fields := NewFields().
		WithTransaction(id, accountID, amountCents, category).
		WithOperation(OpCreate)
	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Transaction posted", fields.ToSlice()...)
}

// LogError records err under component; fields may be nil.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, errorType, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields = fields.WithError(err, errorType).WithOperation(operation)
	sl.logger.WithComponent(component).ErrorContext(ctx, msg, fields.ToSlice()...)
}
