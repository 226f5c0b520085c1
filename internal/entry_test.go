package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/recipebox/internal/storage"
)

func TestOpenKV_Drivers(t *testing.T) {
	dir := t.TempDir()
	cases := []StorageConfig{
		{Driver: DriverMemory},
		{Driver: DriverFile, Path: filepath.Join(dir, "files", "nested")},
		{Driver: DriverSQLite, Path: filepath.Join(dir, "db", "recipes.db")},
	}
	for _, cfg := range cases {
		t.Run(cfg.Driver, func(t *testing.T) {
			kv, closeKV, err := openKV(cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer closeKV()

			ctx := context.Background()
			if err := kv.Set(ctx, storage.KeyRecipes, "[]"); err != nil {
				t.Fatal(err)
			}
			got, found, err := kv.Get(ctx, storage.KeyRecipes)
			if err != nil {
				t.Fatal(err)
			}
			if !found || got != "[]" {
				t.Errorf("get = %q, %v", got, found)
			}
		})
	}
}

func TestOpenStore_Memory(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage = StorageConfig{Driver: DriverMemory}

	var logs bytes.Buffer
	store, closeStore, err := OpenStore(context.Background(), WithConfig(cfg), WithLogOutput(&logs))
	if err != nil {
		t.Fatal(err)
	}
	defer closeStore()

	if n := len(store.Recipes()); n != 0 {
		t.Errorf("recipes = %d, want 0", n)
	}
	if len(store.Ingredients()) == 0 {
		t.Error("built-in catalog should be loaded")
	}
}

func TestOpenStore_FileSurvivesReopen(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage.Path = t.TempDir()
	ctx := context.Background()

	store, closeStore, err := OpenStore(ctx, WithConfig(cfg), WithLogOutput(&bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddCustomIngredient(ctx, "Tofu", 76, ""); err != nil {
		t.Fatal(err)
	}
	if err := closeStore(); err != nil {
		t.Fatal(err)
	}

	store, closeStore, err = OpenStore(ctx, WithConfig(cfg), WithLogOutput(&bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	defer closeStore()
	ing, ok := store.Ingredient("tofu")
	if !ok || ing.Kcal != 76 {
		t.Errorf("tofu = %+v, %v", ing, ok)
	}
}

func TestOpenStore_BadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingredients.yaml")
	if err := os.WriteFile(path, []byte("jajko: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	cfg.Storage = StorageConfig{Driver: DriverMemory}
	cfg.Catalog.Path = path

	_, _, err := OpenStore(context.Background(), WithConfig(cfg), WithLogOutput(&bytes.Buffer{}))
	if err == nil || !strings.Contains(err.Error(), "load catalog") {
		t.Errorf("err = %v, want load catalog failure", err)
	}
}

func TestOpenStore_RequiresConfig(t *testing.T) {
	if _, _, err := OpenStore(context.Background()); err == nil {
		t.Error("expected error without config")
	}
}
