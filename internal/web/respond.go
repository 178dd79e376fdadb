package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zombor/receipt-ledger/internal/receipt"
)

type errorResponse struct {
	Error  string               `json:"error"`
	Fields []receipt.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError maps domain errors to status codes. Unknown errors are logged and
// reported without detail.
func writeError(w http.ResponseWriter, err error) {
	var verr *receipt.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: receipt.ErrValidation.Error(), Fields: verr.Fields})
	case errors.Is(err, receipt.ErrNotFound), errors.Is(err, receipt.ErrNoAttachment):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, receipt.ErrNoOwner):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
	default:
		slog.Error("Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}
