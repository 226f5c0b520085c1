// Package testutil provides shared test helpers for opening stores over
// throwaway substrates.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/starford/recipebox/internal/catalog"
	"github.com/starford/recipebox/internal/cookbook"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/storage"
)

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDataDir creates a temporary data directory with a file-backed substrate.
func TestDataDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// TestStore opens a store over kv with a catalog built from dict. A nil kv
// means a fresh in-memory substrate.
func TestStore(t *testing.T, kv storage.KV, dict map[string]models.Ingredient, opts ...cookbook.Option) *cookbook.Store {
	t.Helper()
	if kv == nil {
		kv = storage.NewMemory()
	}
	opts = append([]cookbook.Option{cookbook.WithLogger(QuietLogger())}, opts...)
	store, err := cookbook.Open(context.Background(), kv, catalog.FromMap(dict), opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}
