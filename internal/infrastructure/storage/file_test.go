package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFile(path)
	ctx := context.Background()

	if err := store.Set(ctx, "token", "tok-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := store.Get(ctx, "token")
	if err != nil || !ok || got != "tok-1" {
		t.Fatalf("Get = (%q, %v, %v)", got, ok, err)
	}
}

func TestFile_MissingKey(t *testing.T) {
	store := NewFile(filepath.Join(t.TempDir(), "state.json"))

	_, ok, err := store.Get(context.Background(), "token")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("found a key in an empty store")
	}
}

func TestFile_Delete(t *testing.T) {
	store := NewFile(filepath.Join(t.TempDir(), "state.json"))
	ctx := context.Background()

	if err := store.Set(ctx, "token", "tok-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Delete(ctx, "token"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "token"); ok {
		t.Fatalf("key survived delete")
	}

	// Deleting an absent key is a no-op.
	if err := store.Delete(ctx, "token"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
}

func TestFile_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	ctx := context.Background()

	if err := NewFile(path).Set(ctx, "user", `{"id":7}`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := NewFile(path).Get(ctx, "user")
	if err != nil || !ok || got != `{"id":7}` {
		t.Fatalf("Get after reopen = (%q, %v, %v)", got, ok, err)
	}
}

func TestFile_CorruptFileFailsLoudly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if _, _, err := NewFile(path).Get(context.Background(), "token"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestMemory_RoundTrip(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if _, ok, _ := store.Get(ctx, "token"); ok {
		t.Fatalf("found a key in a fresh store")
	}
	if err := store.Set(ctx, "token", "tok-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := store.Get(ctx, "token")
	if err != nil || !ok || got != "tok-1" {
		t.Fatalf("Get = (%q, %v, %v)", got, ok, err)
	}
	if err := store.Delete(ctx, "token"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "token"); ok {
		t.Fatalf("key survived delete")
	}
}
