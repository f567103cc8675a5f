// Package api provides the HTTP handlers for templates, training samples, the
// live session, word history and ad-hoc correction.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Timestamps in responses are RFC 3339.
const timeFormat = time.RFC3339

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// writeJSON encodes body as the response. A nil body sends only the status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("failed to write response", "status", status, "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// methodNotAllowed answers 405 and lists the accepted methods in Allow.
func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
