// Package httputil centralizes JSON encoding and domain error translation for
// HTTP handlers, so every endpoint speaks the same envelope.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "riskgate/pkg/domain-errors"
)

// Validatable is implemented by request types that can check themselves after
// decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a domain error into the JSON error envelope. Internal
// errors omit the description so implementation details never leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body["error_description"] = de.Message
		}
	}
	WriteJSON(w, statusFor(code), body)
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeInvalidIDs:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// DecodeAndPrepare decodes the request body into T and validates it. On
// failure it writes the error response and returns ok=false; the handler
// should simply return.
func DecodeAndPrepare[T Validatable](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "request decode failed",
				"request_id", requestID, "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "request body is not valid JSON"))
		return req, false
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return req, false
	}
	return req, true
}
