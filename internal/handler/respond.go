package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/flatmate/internal/complaint"
	"github.com/dukerupert/flatmate/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// writeServiceError maps complaint and store errors onto HTTP statuses.
// Unexpected errors are logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, complaint.ErrReputationCredit):
		logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, complaint.ErrReputationCredit.Error())
	case errors.Is(err, complaint.ErrValidation),
		errors.Is(err, complaint.ErrSelfVote),
		errors.Is(err, complaint.ErrDuplicateVote),
		errors.Is(err, complaint.ErrInvalidVoteType),
		errors.Is(err, complaint.ErrAlreadyResolved):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, complaint.ErrNotFound), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Complaint not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "Complaint was modified concurrently, retry")
	default:
		logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
