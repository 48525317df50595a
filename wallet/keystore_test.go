package wallet

import (
	"path/filepath"
	"testing"
)

func TestSaveAndLoadKeyRoundTrip(t *testing.T) {
	w, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "validator.key")

	if err := SaveKey(path, "hunter2", w.PrivKey()); err != nil {
		t.Fatalf("SaveKey: %v", err)
	}
	loaded, err := LoadKey(path, "hunter2")
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if loaded.Public() != w.PublicKey() {
		t.Fatalf("loaded public key = %x, want %x", loaded.Public(), w.PublicKey())
	}
}

func TestLoadKeyRejectsWrongPassword(t *testing.T) {
	w, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "validator.key")
	if err := SaveKey(path, "correct", w.PrivKey()); err != nil {
		t.Fatalf("SaveKey: %v", err)
	}
	if _, err := LoadKey(path, "wrong"); err == nil {
		t.Fatalf("expected error for wrong password")
	}
}
