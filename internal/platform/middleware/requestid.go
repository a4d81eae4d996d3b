// Package middleware carries the HTTP middlewares that feed request-scoped
// values into the context.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"riskgate/internal/platform/metrics"
	id "riskgate/pkg/domain"
	"riskgate/pkg/requestcontext"
)

const (
	headerRequestID = "X-Request-ID"
	headerTenantID  = "X-Tenant-ID"
)

// RequestID propagates the caller's request id, or mints one. The id is
// echoed back so callers can correlate logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(headerRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Tenant resolves the caller's tenant from the tenant header when present.
// Handlers still validate the tenant carried in the payload; the header only
// scopes cross-cutting concerns like logging.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tenant := r.Header.Get(headerTenantID); tenant != "" {
			ctx := requestcontext.WithTenantID(r.Context(), id.TenantID(tenant))
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Observe records request count and latency per route pattern.
func Observe(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.ObserveRequest(r.URL.Path, statusClass(rec.status), time.Since(start))
		})
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
