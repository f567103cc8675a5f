package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/store"
)

// SamplesHandler records training samples and retrains the template.
type SamplesHandler struct {
	store     *store.Store
	trainer   *classify.Trainer
	onTrained func()
}

// NewSamplesHandler creates a SamplesHandler. onTrained, if set, runs after a
// template's landmarks have been recomputed.
func NewSamplesHandler(s *store.Store, onTrained func()) *SamplesHandler {
	return &SamplesHandler{store: s, trainer: classify.NewTrainer(), onTrained: onTrained}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/templates/{id}/samples
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/templates/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[0] == "" || parts[1] != "samples" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	templateID := parts[0]

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, templateID)
	case http.MethodPost:
		h.create(w, r, templateID)
	case http.MethodDelete:
		h.deleteAll(w, r, templateID)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

type createSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

type createSamplesResponse struct {
	Status  string `json:"status"`
	Samples int    `json:"samples"`
}

type sampleResponse struct {
	ID          int64           `json:"id"`
	TemplateID  string          `json:"template_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

// list handles GET /api/templates/{id}/samples
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request, templateID string) {
	samples, err := h.store.Samples().List(templateID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{
		Samples: make([]sampleResponse, 0, len(samples)),
	}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:          s.ID,
			TemplateID:  s.TemplateID,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   s.CreatedAt.Format(timeFormat),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/templates/{id}/samples. The new samples are
// validated by training on them together with the stored ones before
// anything is written.
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request, templateID string) {
	if _, err := h.store.Templates().GetByID(templateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify template")
		return
	}

	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	existing, err := h.store.Samples().List(templateID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load samples")
		return
	}
	all := make([]json.RawMessage, 0, len(existing)+len(req.Samples))
	for _, s := range existing {
		all = append(all, s.Data)
	}
	all = append(all, req.Samples...)

	averaged, err := h.trainer.Train(all)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sample: "+err.Error())
		return
	}

	total, err := h.store.Samples().Append(templateID, req.Samples)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	landmarks := make([]store.Landmark, len(averaged))
	for i, p := range averaged {
		landmarks[i] = store.Landmark{Index: i, X: p.X, Y: p.Y, Z: p.Z}
	}
	if err := h.store.Templates().SetLandmarks(templateID, landmarks); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save template")
		return
	}

	if h.onTrained != nil {
		h.onTrained()
	}

	writeJSON(w, http.StatusCreated, createSamplesResponse{Status: "ok", Samples: total})
}

// deleteAll handles DELETE /api/templates/{id}/samples. The trained
// landmarks are kept until new samples arrive.
func (h *SamplesHandler) deleteAll(w http.ResponseWriter, r *http.Request, templateID string) {
	if err := h.store.Samples().Clear(templateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
