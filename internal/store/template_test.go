package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTemplateRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Templates()

	tmpl := &Template{ID: "tmpl-a", Label: "A", Tolerance: 1.2}
	if err := repo.Create(tmpl); err != nil {
		t.Fatalf("failed to create template: %v", err)
	}
	if tmpl.CreatedAt.IsZero() || tmpl.UpdatedAt.IsZero() {
		t.Error("timestamps should be set on create")
	}

	got, err := repo.GetByID("tmpl-a")
	if err != nil {
		t.Fatalf("failed to get template: %v", err)
	}
	if got.Label != "A" || got.Tolerance != 1.2 || got.Samples != 0 {
		t.Errorf("unexpected template %+v", got)
	}

	byLabel, err := repo.GetByLabel("A")
	if err != nil {
		t.Fatalf("failed to get template by label: %v", err)
	}
	if byLabel.ID != "tmpl-a" {
		t.Errorf("expected ID tmpl-a, got %q", byLabel.ID)
	}
}

func TestTemplateRepository_Create_DuplicateLabel(t *testing.T) {
	s := newTestStore(t)
	repo := s.Templates()

	if err := repo.Create(&Template{ID: "one", Label: "B", Tolerance: 1.5}); err != nil {
		t.Fatalf("failed to create first template: %v", err)
	}
	if err := repo.Create(&Template{ID: "two", Label: "B", Tolerance: 1.5}); err == nil {
		t.Error("expected error for duplicate label")
	}
}

func TestTemplateRepository_ListOrderedByLabel(t *testing.T) {
	s := newTestStore(t)
	repo := s.Templates()

	for _, label := range []string{"C", "A", "B"} {
		if err := repo.Create(&Template{ID: "id-" + label, Label: label, Tolerance: 1.5}); err != nil {
			t.Fatalf("failed to create %s: %v", label, err)
		}
	}

	templates, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(templates) != 3 {
		t.Fatalf("expected 3 templates, got %d", len(templates))
	}
	for i, want := range []string{"A", "B", "C"} {
		if templates[i].Label != want {
			t.Errorf("templates[%d] = %q, want %q", i, templates[i].Label, want)
		}
	}
}

func TestTemplateRepository_Update(t *testing.T) {
	s := newTestStore(t)
	repo := s.Templates()

	tmpl := &Template{ID: "tmpl", Label: "D", Tolerance: 1.5}
	if err := repo.Create(tmpl); err != nil {
		t.Fatal(err)
	}

	tmpl.Tolerance = 0.8
	if err := repo.Update(tmpl); err != nil {
		t.Fatalf("failed to update: %v", err)
	}

	got, _ := repo.GetByID("tmpl")
	if got.Tolerance != 0.8 {
		t.Errorf("expected tolerance 0.8, got %f", got.Tolerance)
	}

	if err := repo.Update(&Template{ID: "missing", Label: "Z"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTemplateRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Templates()

	if err := repo.Create(&Template{ID: "tmpl", Label: "E", Tolerance: 1.5}); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetLandmarks("tmpl", []Landmark{{X: 1}, {X: 2}}); err != nil {
		t.Fatal(err)
	}

	if err := repo.Delete("tmpl"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if _, err := repo.GetByID("tmpl"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	var n int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM template_landmarks`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected landmarks to be deleted by cascade, found %d", n)
	}

	if err := repo.Delete("tmpl"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for second delete, got %v", err)
	}
}

func TestTemplateRepository_GetNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Templates().GetByID("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Templates().GetByLabel("Q"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByLabel: expected ErrNotFound, got %v", err)
	}
}

func TestTemplateRepository_Landmarks(t *testing.T) {
	s := newTestStore(t)
	repo := s.Templates()

	if err := repo.Create(&Template{ID: "tmpl", Label: "L", Tolerance: 1.5}); err != nil {
		t.Fatal(err)
	}

	empty, err := repo.GetLandmarks("tmpl")
	if err != nil {
		t.Fatalf("failed to get landmarks: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no landmarks for an untrained template, got %d", len(empty))
	}

	first := []Landmark{{X: 0.1, Y: 0.2, Z: 0.3}, {X: 0.4, Y: 0.5, Z: 0.6}}
	if err := repo.SetLandmarks("tmpl", first); err != nil {
		t.Fatalf("failed to set landmarks: %v", err)
	}

	second := []Landmark{{X: 1}, {X: 2}, {X: 3}}
	if err := repo.SetLandmarks("tmpl", second); err != nil {
		t.Fatalf("failed to replace landmarks: %v", err)
	}

	got, err := repo.GetLandmarks("tmpl")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected landmarks to be replaced, got %d", len(got))
	}
	for i, l := range got {
		if l.Index != i || l.X != float64(i+1) {
			t.Errorf("landmark %d = %+v", i, l)
		}
	}

	if err := repo.SetLandmarks("missing", first); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown template, got %v", err)
	}
}
