package middleware

import (
	"encoding/json"
	"net/http"

	"intervi-api/internal/model"
)

// writeError emits the shared error body for failures raised before a
// handler runs.
func writeError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{Code: code, Message: message})
}
