package middleware

import (
	"encoding/json"
	"net/http"
)

// MsgUnauthorized is the body of every 401. Failures are not distinguished.
const MsgUnauthorized = "authentication credentials were not provided or are invalid"

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeError writes the failure envelope used across the API.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Success: false, Error: message})
}
