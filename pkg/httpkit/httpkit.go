// Package httpkit holds the handler plumbing shared by the status API.
package httpkit

import (
	"context"
	"encoding/json"
	"net/http"
)

// HTTPError interface for HTTP-aware errors with detailed causes
type HTTPError interface {
	HTTPCode() int
	Cause() error
	error
}

// Header names
const (
	RequestIDHeader    = "X-Request-ID"
	contentTypeHeader  = "Content-Type"
	contentTypeOptions = "X-Content-Type-Options"
	cacheControlHeader = "Cache-Control"
)

var (
	jsonContentType           = []string{"application/json; charset=utf-8"}
	nosniffContentTypeOptions = []string{"nosniff"}
	noStore                   = []string{"no-store"}
)

func addHeaderIfNotSet(w http.ResponseWriter, key string, value []string) {
	header := w.Header()
	if val := header[key]; len(val) == 0 {
		header[key] = value
	}
}

// requestState is shared by the middleware and handlers of a single request
type requestState struct {
	err       error
	requestID string
}

type ctxKeyState struct{}

func stateFrom(ctx context.Context) *requestState {
	s, _ := ctx.Value(ctxKeyState{}).(*requestState)
	return s
}

// WithErrorTracking creates context with error tracking capability, or returns existing context if already present
func WithErrorTracking(ctx context.Context) context.Context {
	if stateFrom(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyState{}, &requestState{})
}

// SetError sets error in the context
func SetError(ctx context.Context, err error) {
	if s := stateFrom(ctx); s != nil {
		s.err = err
	}
}

// Error gets error from context
func Error(ctx context.Context) error {
	if s := stateFrom(ctx); s != nil {
		return s.err
	}
	return nil
}

// SetRequestID records the id the middleware assigned to the request
func SetRequestID(ctx context.Context, id string) {
	if s := stateFrom(ctx); s != nil {
		s.requestID = id
	}
}

// RequestID returns the id assigned to the request, empty outside the middleware
func RequestID(ctx context.Context) string {
	if s := stateFrom(ctx); s != nil {
		return s.requestID
	}
	return ""
}

// HandlerFunc returns the handler that writes the response, nil when it wrote one itself
type HandlerFunc func(http.ResponseWriter, *http.Request) http.HandlerFunc

func (h HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := WithErrorTracking(r.Context())
	r = r.WithContext(ctx)

	if handler := h(w, r); handler != nil {
		handler(w, r)
	}
}

// JSON creates a handler that returns a 200 JSON response
func JSON(data any) http.HandlerFunc {
	return Status(http.StatusOK, data)
}

// Status creates a handler that returns data as JSON with the given status code
func Status(code int, data any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, code, data)
	}
}

// JsonError creates a handler that sets an error in context and writes the error response
func JsonError(err HTTPError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Set error in context for middleware (if available)
		SetError(r.Context(), err)
		writeJSON(w, err.HTTPCode(), err)
	}
}

// writeJSON writes ledger state, which changes after every send, so nothing is cached
func writeJSON(w http.ResponseWriter, code int, data any) {
	addHeaderIfNotSet(w, contentTypeHeader, jsonContentType)
	addHeaderIfNotSet(w, contentTypeOptions, nosniffContentTypeOptions)
	addHeaderIfNotSet(w, cacheControlHeader, noStore)
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
