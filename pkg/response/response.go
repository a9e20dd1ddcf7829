// Package response writes the envelope every finance API endpoint shares:
// {"success": true, "data": ...} or {"success": false, "error": CODE,
// "message": ...}.
package response

import (
	"encoding/json"
	"net/http"
)

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}

// Error writes a failure envelope. code is a stable machine-readable
// identifier (e.g. STALE_BALANCE); message is for humans.
func Error(w http.ResponseWriter, status int, code string, message string) {
	JSON(w, status, map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	})
}
