// Package httptransport is the thin HTTP shell. Handlers decode, delegate to
// domain services, and encode; no business logic lives here.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"riskgate/internal/platform/metrics"
	"riskgate/internal/platform/middleware"
	"riskgate/pkg/platform/middleware/metadata"
	"riskgate/pkg/platform/middleware/requesttime"
)

// NewRouter mounts all endpoints with the shared middleware chain.
func NewRouter(h *Handler, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(requesttime.Middleware)
	r.Use(middleware.RequestID)
	r.Use(middleware.Tenant)
	r.Use(metadata.ClientMetadata)
	if m != nil {
		r.Use(middleware.Observe(m))
	}

	r.Get("/healthz", h.HandleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/orders/evaluate", h.HandleEvaluateOrder)
		r.Get("/orders/{orderID}/decision", h.HandleGetDecision)
		r.Post("/dedupe/customers/match", h.HandleMatchCustomer)
		r.Post("/dedupe/addresses/match", h.HandleMatchAddress)
		r.Post("/dedupe/merge", h.HandleMerge)
		r.Post("/validate", h.HandleValidate)
	})

	return r
}
