package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/rkuma140394/vox-Gaurd-detect/internal/domain/detection"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes the {status:"error", message} envelope.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, detection.ErrorEnvelope{Status: detection.StatusError, Message: msg})
}
