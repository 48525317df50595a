package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreForkApplyPersists(t *testing.T) {
	s := openTestStore(t)

	f, err := s.Fork()
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}
	f.Set("wallets", []byte("alice"), []byte("balance=100"))
	if err := s.Apply(f); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	defer snap.Close()

	v, err := snap.Get("wallets", []byte("alice"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(v) != "balance=100" {
		t.Fatalf("got %q", v)
	}
}

func TestStoreSnapshotIsolatedFromConcurrentFork(t *testing.T) {
	s := openTestStore(t)

	f1, err := s.Fork()
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}
	f1.Set("wallets", []byte("alice"), []byte("balance=100"))
	if err := s.Apply(f1); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	defer snap.Close()

	f2, err := s.Fork()
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}
	f2.Set("wallets", []byte("alice"), []byte("balance=999"))
	if err := s.Apply(f2); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// snap was taken before f2 committed, so it must still see the old value.
	v, err := snap.Get("wallets", []byte("alice"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(v) != "balance=100" {
		t.Fatalf("snapshot was not isolated: got %q", v)
	}
}

func TestStoreGetUnknownKey(t *testing.T) {
	s := openTestStore(t)
	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	defer snap.Close()

	if _, err := snap.Get("wallets", []byte("nobody")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v want ErrNotFound", err)
	}
}

func TestStoreApplyDelete(t *testing.T) {
	s := openTestStore(t)

	f, _ := s.Fork()
	f.Set("assets", []byte("gold"), []byte("total=1000"))
	if err := s.Apply(f); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	f2, _ := s.Fork()
	f2.Delete("assets", []byte("gold"))
	if err := s.Apply(f2); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	snap, _ := s.Snapshot()
	defer snap.Close()
	if _, err := snap.Get("assets", []byte("gold")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete did not persist, got %v", err)
	}
}
