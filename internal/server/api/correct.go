package api

import (
	"net/http"

	"github.com/ayusman/mudra/internal/spell"
)

// CorrectHandler corrects a single word without touching the session.
type CorrectHandler struct {
	corrector *spell.Corrector
}

// NewCorrectHandler creates a CorrectHandler.
func NewCorrectHandler(c *spell.Corrector) *CorrectHandler {
	return &CorrectHandler{corrector: c}
}

// ServeHTTP handles GET /api/correct?word=W.
func (h *CorrectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	word := r.URL.Query().Get("word")
	if word == "" {
		writeError(w, http.StatusBadRequest, "word is required")
		return
	}

	writeJSON(w, http.StatusOK, h.corrector.Correct(word))
}
