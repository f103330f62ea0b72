package credstore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	store, err := Open(Config{Dir: filepath.Join(dir, "credentials"), KeyStorePath: filepath.Join(dir, "keys.bundle")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func TestStorePersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := openTestStore(t, dir)
	if got := store.Get("refresh_token"); got != "" {
		t.Fatalf("expected empty store, got %q", got)
	}
	store.Set("refresh_token", "secret-token")
	if err := store.Persist(DefaultNamespace); err != nil {
		t.Fatalf("persist: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "credentials", "user.enc"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if bytes.Contains(raw, []byte("secret-token")) {
		t.Fatalf("expected credentials to be encrypted at rest")
	}
	info, err := os.Stat(filepath.Join(dir, "credentials", "user.enc"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}

	reopened := openTestStore(t, dir)
	if got := reopened.Get("refresh_token"); got != "secret-token" {
		t.Fatalf("expected persisted token, got %q", got)
	}
}

func TestStoreEmptyValueRemovesKey(t *testing.T) {
	dir := t.TempDir()
	store := openTestStore(t, dir)
	store.Set("refresh_token", "x")
	if err := store.Persist(DefaultNamespace); err != nil {
		t.Fatalf("persist: %v", err)
	}
	store.Set("refresh_token", "")
	if err := store.Persist(DefaultNamespace); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if len(store.Keys()) != 0 {
		t.Fatalf("expected no keys, got %v", store.Keys())
	}
	reopened := openTestStore(t, dir)
	if got := reopened.Get("refresh_token"); got != "" {
		t.Fatalf("expected cleared token, got %q", got)
	}
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(Config{KeyStorePath: filepath.Join(t.TempDir(), "keys.bundle")}); err == nil {
		t.Fatalf("expected error without dir")
	}
}

func TestSanitize(t *testing.T) {
	if got := sanitize("../user ns"); got != ".._user_ns" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}
