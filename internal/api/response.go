package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ragbase/ragbase/internal/ai"
	"github.com/ragbase/ragbase/internal/document"
	"github.com/ragbase/ragbase/internal/ingest"
	"github.com/ragbase/ragbase/internal/search"
)

// writeJSON writes a JSON response with the given status code. Encoding
// failures after WriteHeader cannot reach the client; they are logged only.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// writeDomainError maps domain errors onto HTTP statuses:
// validation -> 400, not found -> 404, unconfigured service -> 503,
// upstream service failure -> 502, everything else -> 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		svcErr    *ai.ServiceError
		malformed *ingest.MalformedUploadError
	)
	switch {
	case errors.Is(err, ingest.ErrValidation),
		errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, ingest.ErrNoChunks),
		errors.As(err, &malformed):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, document.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ai.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.As(err, &svcErr):
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
