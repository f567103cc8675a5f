package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/mudra/internal/store"
)

const defaultWordLimit = 50

// WordsHandler serves the committed word history.
type WordsHandler struct {
	store *store.Store
}

// NewWordsHandler creates a WordsHandler.
func NewWordsHandler(s *store.Store) *WordsHandler {
	return &WordsHandler{store: s}
}

type listWordsResponse struct {
	Words []*store.Word `json:"words"`
}

// ServeHTTP handles GET /api/words?limit=N&session=ID.
func (h *WordsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	limit := defaultWordLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var (
		words []*store.Word
		err   error
	)
	if sessionID := r.URL.Query().Get("session"); sessionID != "" {
		words, err = h.store.Words().ListBySession(sessionID)
	} else {
		words, err = h.store.Words().List(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list words")
		return
	}
	if words == nil {
		words = []*store.Word{}
	}

	writeJSON(w, http.StatusOK, listWordsResponse{Words: words})
}
