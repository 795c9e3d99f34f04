//go:build !integration

package i18n

import (
	"testing"
	"testing/fstest"
)

func TestTranslator(t *testing.T) {
	// Arrange
	contentBytes := []byte("greeting: Olá\nwelcome_user: Olá %s")
	translator, err := newTranslatorFromBytes(contentBytes)
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		if got, want := translator.T("greeting"), "Olá"; got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got, want := translator.T("nonexistent_key"), "nonexistent_key"; got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		if got, want := translator.T("welcome_user", "Ana"), "Olá Ana"; got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})
}

func TestNewTranslatorFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.yaml": &fstest.MapFile{Data: []byte("sync.done: done")},
	}
	tr, err := NewTranslator(fsys, "en")
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if tr.T(KeySyncDone) != "done" || tr.Lang() != "en" {
		t.Errorf("unexpected translator state: %q %q", tr.T(KeySyncDone), tr.Lang())
	}
	if _, err := NewTranslator(fsys, "fr"); err == nil {
		t.Error("expected an error for a missing locale")
	}
}

func TestEmbeddedLocalesShareKeys(t *testing.T) {
	pt, err := NewTranslator(LocalesFS, "pt-BR")
	if err != nil {
		t.Fatalf("pt-BR: %v", err)
	}
	en, err := NewTranslator(LocalesFS, "en")
	if err != nil {
		t.Fatalf("en: %v", err)
	}
	for k := range pt.translations {
		if _, ok := en.translations[k]; !ok {
			t.Errorf("key %q missing from en locale", k)
		}
	}
	if got := pt.T(KeySyncNoCustomer); got != "Nenhum cliente Stripe associado" {
		t.Errorf("unexpected pt-BR message: %q", got)
	}
}
