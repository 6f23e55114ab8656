package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"po-tracker/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps the domain error taxonomy to HTTP: validation → 400,
// not found → 404, upstream system failure → 502, everything else → 500 with
// the underlying message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		writeError(w, r, verr.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var nferr *core.NotFoundError
	if errors.As(err, &nferr) {
		writeError(w, r, nferr.Error(), "NOT_FOUND", http.StatusNotFound)
		return
	}
	var uperr *core.UpstreamError
	if errors.As(err, &uperr) {
		writeError(w, r, uperr.Error(), "UPSTREAM_ERROR", http.StatusBadGateway)
		return
	}
	writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
