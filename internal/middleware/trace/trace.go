package trace

import (
	"context"
	"net/http"
	"time"
	"unicode"

	"github.com/google/uuid"

	"finboard/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// RequestIDHeader carries the request ID in and out.
	RequestIDHeader = "X-Request-ID"

	maxRequestIDLen = 128
	unmatchedRoute  = "unmatched"
)

// Observer receives one sample per completed request. It is satisfied by
// *metrics.Metrics.
type Observer interface {
	ObserveHTTP(route, method string, status int, d time.Duration)
}

// Middleware handles request tracing and logging
type Middleware struct {
	logger    *log.Logger
	extractIP func(*http.Request) string
	observer  Observer
}

// NewMiddleware creates a new trace middleware. extractIP and observer may be nil.
func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string, observer Observer) *Middleware {
	return &Middleware{
		logger:    logger.WithComponent(log.ComponentTrace),
		extractIP: extractIP,
		observer:  observer,
	}
}

// Middleware returns HTTP middleware for request tracing. The wrapped
// handler must not replace the request, so that the route pattern set by
// http.ServeMux is visible once it returns.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		reqLogger := m.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = log.NewContext(ctx, reqLogger)
		r = r.WithContext(ctx)

		sl := log.NewStructuredLogger(reqLogger)
		sl.LogHTTPStart(ctx, r, clientIP)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		sl.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)

		if m.observer != nil {
			route := r.Pattern
			if route == "" {
				route = unmatchedRoute
			}
			m.observer.ObserveHTTP(route, r.Method, rw.statusCode, duration)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		if c > unicode.MaxASCII || !unicode.IsPrint(c) || c == ' ' {
			return false
		}
	}
	return true
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
