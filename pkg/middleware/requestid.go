// Package middleware provides the HTTP middleware chain of the API server:
// request IDs, request timeouts, per-client rate limits, CORS and Prometheus
// metrics.
package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/patrickoleary/vtkapi-mcp/pkg/logger"
)

// RequestIDHeader carries the request identifier in and out of the service.
const RequestIDHeader = "X-Request-ID"

// RequestID propagates the caller's X-Request-ID or assigns a fresh one, and
// stores it on the request context for logger.FromContext.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// GetRequestID returns the identifier assigned by RequestID, if any.
func GetRequestID(r *http.Request) string {
	return logger.RequestID(r.Context())
}
