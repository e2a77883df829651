package middleware

import (
	"encoding/json"
	"net/http"
)

// respondError keeps middleware failures in the same JSON error shape
// the handlers use.
func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
