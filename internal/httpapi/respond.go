package httpapi

import (
	"encoding/json"
	"net/http"

	"stemsmith/internal/errs"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps an errs.Kind to the HTTP status a submission
// rejection should carry. Kinds that never originate from a submission
// path fall back to 500.
func statusForError(err error) int {
	switch errs.Of(err) {
	case errs.InvalidInput:
		return http.StatusBadRequest
	case errs.NotFound:
		return http.StatusNotFound
	case errs.Shutdown:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
