package store

import (
	"errors"
	"testing"
)

func TestSettingsRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if _, err := repo.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := repo.Set("theme", "dark"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if err := repo.Set("theme", "light"); err != nil {
		t.Fatalf("failed to overwrite: %v", err)
	}
	if v, err := repo.Get("theme"); err != nil || v != "light" {
		t.Errorf("expected light, got %q (%v)", v, err)
	}
}

func TestSettingsRepository_Bool(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	v, err := repo.GetBool(SettingAutocorrect, true)
	if err != nil || !v {
		t.Errorf("expected default true, got %v (%v)", v, err)
	}

	if err := repo.SetBool(SettingAutocorrect, false); err != nil {
		t.Fatal(err)
	}
	v, err = repo.GetBool(SettingAutocorrect, true)
	if err != nil || v {
		t.Errorf("expected stored false, got %v (%v)", v, err)
	}

	if err := repo.Set(SettingAutocorrect, "maybe"); err != nil {
		t.Fatal(err)
	}
	if v, _ := repo.GetBool(SettingAutocorrect, true); !v {
		t.Error("expected default for unparsable value")
	}
}
