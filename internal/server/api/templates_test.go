package api

import (
	"net/http"
	"testing"

	"github.com/ayusman/mudra/internal/store"
)

func TestTemplateHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewTemplateHandler(s, nil)

	if err := s.Templates().Create(&store.Template{ID: "tmpl-1", Label: "A", Tolerance: 1.5, Samples: 3}); err != nil {
		t.Fatalf("failed to create template: %v", err)
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/templates", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	response := decode[listTemplatesResponse](t, rec)
	if len(response.Templates) != 1 {
		t.Fatalf("expected 1 template, got %d", len(response.Templates))
	}
	if response.Templates[0].ID != "tmpl-1" || response.Templates[0].Samples != 3 {
		t.Errorf("unexpected template %+v", response.Templates[0])
	}
}

func TestTemplateHandler_Create(t *testing.T) {
	s := newTestStore(t)
	handler := NewTemplateHandler(s, nil)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantLabel  string
	}{
		{"letter", templateRequest{Label: "b"}, http.StatusCreated, "B"},
		{"control", templateRequest{Label: "delete", Tolerance: 0.9}, http.StatusCreated, "del"},
		{"duplicate", templateRequest{Label: "B"}, http.StatusConflict, ""},
		{"missing label", templateRequest{}, http.StatusBadRequest, ""},
		{"unknown label", templateRequest{Label: "AB"}, http.StatusBadRequest, ""},
		{"negative tolerance", templateRequest{Label: "C", Tolerance: -1}, http.StatusBadRequest, ""},
		{"invalid json", "{invalid", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, handler, http.MethodPost, "/api/templates", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusCreated {
				return
			}

			resp := decode[templateResponse](t, rec)
			if resp.Label != tt.wantLabel {
				t.Errorf("expected label %q, got %q", tt.wantLabel, resp.Label)
			}
			if resp.ID == "" {
				t.Error("expected generated ID")
			}
			if resp.Tolerance <= 0 {
				t.Errorf("expected positive tolerance, got %f", resp.Tolerance)
			}
		})
	}
}

func TestTemplateHandler_GetUpdateDelete(t *testing.T) {
	s := newTestStore(t)
	changes := 0
	handler := NewTemplateHandler(s, func() { changes++ })

	if err := s.Templates().Create(&store.Template{ID: "tmpl", Label: "A", Tolerance: 1.5}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/templates/tmpl", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/templates/tmpl", templateRequest{Tolerance: 0.7})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", rec.Code)
	}
	if resp := decode[templateResponse](t, rec); resp.Tolerance != 0.7 || resp.Label != "A" {
		t.Errorf("unexpected update response %+v", resp)
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/templates/tmpl", templateRequest{Label: "??"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("update with bad label: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/templates/tmpl", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	if changes != 2 {
		t.Errorf("expected 2 change notifications, got %d", changes)
	}

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		if rec := doJSON(t, handler, method, "/api/templates/tmpl", nil); rec.Code != http.StatusNotFound {
			t.Errorf("%s after delete: expected 404, got %d", method, rec.Code)
		}
	}
	if rec := doJSON(t, handler, http.MethodPut, "/api/templates/tmpl", templateRequest{}); rec.Code != http.StatusNotFound {
		t.Errorf("PUT after delete: expected 404, got %d", rec.Code)
	}
}

func TestTemplateHandler_MethodNotAllowed(t *testing.T) {
	handler := NewTemplateHandler(newTestStore(t), nil)

	if rec := doJSON(t, handler, http.MethodPatch, "/api/templates", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("collection: expected 405, got %d", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodPost, "/api/templates/x", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("item: expected 405, got %d", rec.Code)
	}
}
