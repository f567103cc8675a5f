package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// TemplateHandler handles HTTP requests for letter templates.
type TemplateHandler struct {
	store    *store.Store
	onChange func()
}

// NewTemplateHandler creates a TemplateHandler. onChange, if set, runs after
// every successful write so the classifier can reload.
func NewTemplateHandler(s *store.Store, onChange func()) *TemplateHandler {
	return &TemplateHandler{store: s, onChange: onChange}
}

// ServeHTTP routes /api/templates and /api/templates/{id}.
func (h *TemplateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/templates")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

type templateRequest struct {
	Label     string  `json:"label"`
	Tolerance float64 `json:"tolerance"`
}

type templateResponse struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Tolerance float64 `json:"tolerance"`
	Samples   int     `json:"samples"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type listTemplatesResponse struct {
	Templates []templateResponse `json:"templates"`
}

func toTemplateResponse(t *store.Template) templateResponse {
	return templateResponse{
		ID:        t.ID,
		Label:     t.Label,
		Tolerance: t.Tolerance,
		Samples:   t.Samples,
		CreatedAt: t.CreatedAt.Format(timeFormat),
		UpdatedAt: t.UpdatedAt.Format(timeFormat),
	}
}

// parseTemplateLabel accepts any recognised symbol and returns its canonical name.
func parseTemplateLabel(label string) (string, bool) {
	sym, ok := gesture.ParseLabel(label)
	if !ok {
		return "", false
	}
	return sym.String(), true
}

func (h *TemplateHandler) changed() {
	if h.onChange != nil {
		h.onChange()
	}
}

// list handles GET /api/templates.
func (h *TemplateHandler) list(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.Templates().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}

	response := listTemplatesResponse{
		Templates: make([]templateResponse, 0, len(templates)),
	}
	for _, t := range templates {
		response.Templates = append(response.Templates, toTemplateResponse(t))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/templates/{id}.
func (h *TemplateHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	t, err := h.store.Templates().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get template")
		return
	}

	writeJSON(w, http.StatusOK, toTemplateResponse(t))
}

// create handles POST /api/templates.
func (h *TemplateHandler) create(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "Label is required")
		return
	}
	label, ok := parseTemplateLabel(req.Label)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown label")
		return
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must not be negative")
		return
	}

	if _, err := h.store.Templates().GetByLabel(label); err == nil {
		writeError(w, http.StatusConflict, "A template for this label already exists")
		return
	}

	tolerance := req.Tolerance
	if tolerance == 0 {
		tolerance = classify.DefaultTolerance
	}

	t := &store.Template{
		ID:        uuid.New().String(),
		Label:     label,
		Tolerance: tolerance,
	}
	if err := h.store.Templates().Create(t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create template")
		return
	}

	writeJSON(w, http.StatusCreated, toTemplateResponse(t))
}

// update handles PUT /api/templates/{id}.
func (h *TemplateHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	t, err := h.store.Templates().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get template")
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Label != "" {
		label, ok := parseTemplateLabel(req.Label)
		if !ok {
			writeError(w, http.StatusBadRequest, "Unknown label")
			return
		}
		t.Label = label
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must not be negative")
		return
	}
	if req.Tolerance != 0 {
		t.Tolerance = req.Tolerance
	}

	if err := h.store.Templates().Update(t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update template")
		return
	}

	h.changed()
	writeJSON(w, http.StatusOK, toTemplateResponse(t))
}

// delete handles DELETE /api/templates/{id}.
func (h *TemplateHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Templates().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete template")
		return
	}

	h.changed()
	w.WriteHeader(http.StatusNoContent)
}
