package api

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

// SessionHandler exposes the live session: its display state, an observation
// feed for external classifiers and the manual editing controls.
type SessionHandler struct {
	session   *session.Session
	store     *store.Store
	capturing func() bool
}

// NewSessionHandler creates a SessionHandler. When s is non-nil the
// autocorrect toggle is persisted to its settings. capturing, if set, reports
// whether the camera pipeline is feeding the session; the observation feed is
// refused while it does.
func NewSessionHandler(sess *session.Session, s *store.Store, capturing func() bool) *SessionHandler {
	return &SessionHandler{session: sess, store: s, capturing: capturing}
}

// ServeHTTP routes /api/session and its sub-resources.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/session")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, h.session.Snapshot())
	case "observations":
		h.post(w, r, h.observe)
	case "backspace":
		h.post(w, r, h.backspace)
	case "commit":
		h.post(w, r, h.commit)
	case "clear":
		h.post(w, r, h.clear)
	case "autocorrect":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, http.MethodPut)
			return
		}
		h.autocorrect(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) post(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	fn(w, r)
}

// observationRequest is one classifier frame. Absent frames carry no label.
type observationRequest struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
	Absent     bool     `json:"absent"`
}

type observationsRequest struct {
	observationRequest
	Observations []observationRequest `json:"observations"`
}

type tickResponse struct {
	Action string        `json:"action"`
	Symbol string        `json:"symbol,omitempty"`
	Word   *session.Word `json:"word,omitempty"`
}

type observationsResponse struct {
	Results  []tickResponse   `json:"results"`
	Snapshot session.Snapshot `json:"snapshot"`
}

func (o observationRequest) toObservation() (gesture.Observation, string) {
	if o.Absent {
		return gesture.NoHand(), ""
	}
	sym, ok := gesture.ParseLabel(o.Label)
	if !ok {
		return gesture.Observation{}, "Unknown label " + o.Label
	}
	if o.Confidence == nil {
		return gesture.Observation{}, "Confidence is required"
	}
	c := *o.Confidence
	if math.IsNaN(c) || c < 0 || c > 1 {
		return gesture.Observation{}, "Confidence must be in [0,1]"
	}
	return gesture.Observed(sym, c), ""
}

// observe handles POST /api/session/observations. The body is a single
// observation or {"observations": [...]}, applied in order. A batch is
// validated completely before the first tick.
func (h *SessionHandler) observe(w http.ResponseWriter, r *http.Request) {
	if h.capturing != nil && h.capturing() {
		writeError(w, http.StatusConflict, "Camera capture is feeding the session")
		return
	}

	var req observationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	batch := req.Observations
	if len(batch) == 0 {
		batch = []observationRequest{req.observationRequest}
	}

	observations := make([]gesture.Observation, len(batch))
	for i, o := range batch {
		obs, msg := o.toObservation()
		if msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		observations[i] = obs
	}

	response := observationsResponse{Results: make([]tickResponse, 0, len(observations))}
	for _, obs := range observations {
		ev := h.session.Tick(obs)
		res := tickResponse{Action: ev.Action.Kind.String(), Word: ev.Word}
		if ev.Action.Kind == gesture.ActionAppend {
			res.Symbol = ev.Action.Symbol.String()
		}
		response.Results = append(response.Results, res)
	}
	response.Snapshot = h.session.Snapshot()

	writeJSON(w, http.StatusOK, response)
}

// backspace handles POST /api/session/backspace.
func (h *SessionHandler) backspace(w http.ResponseWriter, r *http.Request) {
	h.session.Backspace()
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

type commitResponse struct {
	Word     *session.Word    `json:"word"`
	Snapshot session.Snapshot `json:"snapshot"`
}

// commit handles POST /api/session/commit.
func (h *SessionHandler) commit(w http.ResponseWriter, r *http.Request) {
	word := h.session.CommitNow()
	writeJSON(w, http.StatusOK, commitResponse{Word: word, Snapshot: h.session.Snapshot()})
}

// clear handles POST /api/session/clear.
func (h *SessionHandler) clear(w http.ResponseWriter, r *http.Request) {
	h.session.Clear()
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

type autocorrectRequest struct {
	Enabled *bool `json:"enabled"`
}

// autocorrect handles PUT /api/session/autocorrect.
func (h *SessionHandler) autocorrect(w http.ResponseWriter, r *http.Request) {
	var req autocorrectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	h.session.SetAutocorrect(*req.Enabled)
	if h.store != nil {
		if err := h.store.Settings().SetBool(store.SettingAutocorrect, *req.Enabled); err != nil {
			slog.Warn("failed to persist autocorrect setting", "err", err)
		}
	}

	writeJSON(w, http.StatusOK, h.session.Snapshot())
}
