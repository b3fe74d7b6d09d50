// Package http exposes the ledger, reports and advisor as a JSON API.
//
// This file implements the builder used by every handler to write JSON
// bodies, and the single mapping from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finboard/internal/core"
	"finboard/internal/csvio"
	"finboard/internal/log"
)

// Error kinds reported in the JSON error body.
const (
	KindValidation  = "validation"
	KindConflict    = "conflict"
	KindNotFound    = "not_found"
	KindUpstream    = "upstream"
	KindTimeout     = "upstream_timeout"
	KindUnavailable = "unavailable"
	KindBadRequest  = "bad_request"
	KindRateLimited = "rate_limited"
	KindInternal    = "internal"
)

// ErrorBody is the payload of every non-2xx response.
type ErrorBody struct {
	Kind    string           `json:"kind"`
	Message string           `json:"message"`
	Field   string           `json:"field,omitempty"`
	Value   any              `json:"value,omitempty"`
	Rows    []csvio.RowError `json:"rows,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body sends no
// content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"kind":"internal","message":"failed to encode response"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n"))
}

// ErrorResponse creates an error response with an explicit status and kind.
func ErrorResponse(statusCode int, kind, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorEnvelope{Error: ErrorBody{Kind: kind, Message: message}})
}

// ErrorStatus maps an error to its status code and kind. Undecodable bodies
// come first, then validation, so an unknown reference inside a request body
// reports 422 rather than 404.
func ErrorStatus(err error) (int, string) {
	var (
		upstream *core.UpstreamError
		tooLarge *http.MaxBytesError
		badBody  *badBodyError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, KindBadRequest
	case errors.As(err, &badBody):
		return http.StatusBadRequest, KindBadRequest
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity, KindValidation
	case core.IsConflict(err):
		return http.StatusConflict, KindConflict
	case core.IsNotFound(err):
		return http.StatusNotFound, KindNotFound
	case errors.As(err, &upstream):
		if upstream.Timeout {
			return http.StatusGatewayTimeout, KindTimeout
		}
		return http.StatusBadGateway, KindUpstream
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

// DomainError builds the response for err. Internal errors are not echoed
// to the client.
func DomainError(err error) *JSONResponseBuilder {
	status, kind := ErrorStatus(err)
	body := ErrorBody{Kind: kind, Message: err.Error()}

	var verr *core.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
		body.Value = verr.Value
	}
	var ierr *csvio.ImportError
	if errors.As(err, &ierr) {
		body.Rows = ierr.Rows
	}
	if status == http.StatusInternalServerError {
		body.Message = "internal server error"
	}
	return NewJSONResponse().Status(status).Body(errorEnvelope{Error: body})
}

// writeError logs err at a level matching its status and writes the
// mapped response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, kind := ErrorStatus(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, errorType(kind), log.ComponentHTTP, op, nil)
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldErrorType, errorType(kind),
			log.FieldError, err.Error())
	}
	DomainError(err).Write(w)
}

func errorType(kind string) string {
	switch kind {
	case KindValidation, KindBadRequest:
		return log.ErrorTypeValidation
	case KindConflict:
		return log.ErrorTypeConflict
	case KindNotFound:
		return log.ErrorTypeNotFound
	case KindUpstream:
		return log.ErrorTypeUpstream
	case KindTimeout:
		return log.ErrorTypeTimeout
	default:
		return log.ErrorTypeInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}
