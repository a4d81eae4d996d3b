package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"riskgate/pkg/platform/httputil"
	"riskgate/pkg/platform/middleware/metadata"
	"riskgate/pkg/requestcontext"
)

// Handler wires the public endpoints to the domain services.
type Handler struct {
	orders    OrderService
	deduper   DedupeService
	validator ValidationService
	logger    *slog.Logger
}

func NewHandler(orders OrderService, deduper DedupeService, validator ValidationService, logger *slog.Logger) *Handler {
	return &Handler{
		orders:    orders,
		deduper:   deduper,
		validator: validator,
		logger:    logger,
	}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleEvaluateOrder handles POST /v1/orders/evaluate.
func (h *Handler) HandleEvaluateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[*EvaluateOrderRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	payload := req.ToPayload()
	// Client metadata fills ip/user_agent when the caller did not.
	if payload.IP == "" {
		payload.IP = metadata.GetClientIP(ctx)
	}
	if payload.UserAgent == "" {
		payload.UserAgent = metadata.GetUserAgent(ctx)
	}

	decision, err := h.orders.EvaluateOrder(ctx, payload)
	if err != nil {
		h.logger.WarnContext(ctx, "order evaluation rejected",
			"request_id", requestID, "order_id", req.OrderID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "order evaluation served",
		"request_id", requestID,
		"order_id", decision.OrderID,
		"action", decision.Action,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, decision)
}

// HandleGetDecision handles GET /v1/orders/{orderID}/decision. The tenant
// comes from the tenant header.
func (h *Handler) HandleGetDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "orderID")
	tenantID := requestcontext.TenantID(ctx)

	decision, err := h.orders.GetDecision(ctx, tenantID, orderID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decision)
}

// HandleMatchCustomer handles POST /v1/dedupe/customers/match.
func (h *Handler) HandleMatchCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*MatchCustomerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.deduper.MatchCustomer(ctx, req.ToQuery())
	if err != nil {
		h.logger.ErrorContext(ctx, "customer match failed",
			"request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleMatchAddress handles POST /v1/dedupe/addresses/match.
func (h *Handler) HandleMatchAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*MatchAddressRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.deduper.MatchAddress(ctx, req.ToQuery())
	if err != nil {
		h.logger.ErrorContext(ctx, "address match failed",
			"request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleMerge handles POST /v1/dedupe/merge.
func (h *Handler) HandleMerge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*MergeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.deduper.MergeRecords(ctx, req.TenantID, req.ParsedRecordType(), req.IDs, req.CanonicalID); err != nil {
		h.logger.WarnContext(ctx, "merge rejected",
			"request_id", requestID, "record_type", req.RecordType, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":       "merged",
		"canonical_id": req.CanonicalID,
	})
}

// HandleValidate handles POST /v1/validate.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*ValidateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	bundle, err := h.validator.Validate(ctx, req.ToPayload(), req.ToOptions())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bundle)
}
