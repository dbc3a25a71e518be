package handler

import (
	"encoding/json"
	"net/http"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SendEnvelope wraps the send-code response.
type SendEnvelope struct {
	Succeeded bool   `json:"succeeded"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// VerifyEnvelope wraps the verify-code response. Message carries the error
// text on failure.
type VerifyEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
