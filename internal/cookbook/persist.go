package cookbook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/parser"
	"github.com/starford/recipebox/internal/storage"
	"github.com/starford/recipebox/internal/textnorm"
)

// loadRecipes reads the recipes record. A missing or malformed record yields
// an empty list; only substrate errors are returned.
func loadRecipes(ctx context.Context, kv storage.KV, logger *slog.Logger) ([]models.Recipe, error) {
	raw, found, err := kv.Get(ctx, storage.KeyRecipes)
	if err != nil {
		return nil, err
	}
	if !found || raw == "" {
		return []models.Recipe{}, nil
	}
	var out []models.Recipe
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logger.Warn("cookbook: malformed recipes record, starting empty",
			slog.String("error", err.Error()))
		return []models.Recipe{}, nil
	}
	for i := range out {
		out[i] = normalizeRecipe(out[i])
	}
	return out, nil
}

// loadCustom reads the custom ingredients record with the same degradation
// rules as loadRecipes. Keys are normalized; entries with a blank name or a
// non-positive kcal are skipped. When several stored names share a key, the
// one already in normalized form wins, otherwise the first in sorted order.
func loadCustom(ctx context.Context, kv storage.KV, logger *slog.Logger) (map[string]models.Ingredient, error) {
	raw, found, err := kv.Get(ctx, storage.KeyCustomIngredients)
	if err != nil {
		return nil, err
	}
	out := map[string]models.Ingredient{}
	if !found || raw == "" {
		return out, nil
	}
	var stored map[string]models.Ingredient
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		logger.Warn("cookbook: malformed custom ingredients record, starting empty",
			slog.String("error", err.Error()))
		return out, nil
	}

	names := make([]string, 0, len(stored))
	for name := range stored {
		names = append(names, name)
	}
	sort.Strings(names)

	exact := make(map[string]bool, len(names))
	for _, name := range names {
		ing := stored[name]
		key := textnorm.Key(name)
		if key == "" || !parser.Positive(ing.Kcal) {
			logger.Warn("cookbook: skipping invalid custom ingredient",
				slog.String("name", name),
				slog.Float64("kcal", ing.Kcal))
			continue
		}
		if _, dup := out[key]; dup {
			if exact[key] || name != key {
				logger.Warn("cookbook: duplicate custom ingredient ignored",
					slog.String("name", name),
					slog.String("key", key))
				continue
			}
		}
		out[key] = ing
		exact[key] = name == key
	}
	return out, nil
}

// snapshot is the encoded form of both records.
type snapshot struct {
	recipes string
	custom  string
}

func encode(recipes []models.Recipe, custom map[string]models.Ingredient) (snapshot, error) {
	rj, err := json.Marshal(recipes)
	if err != nil {
		return snapshot{}, fmt.Errorf("cookbook: encode recipes: %w", err)
	}
	cj, err := json.Marshal(custom)
	if err != nil {
		return snapshot{}, fmt.Errorf("cookbook: encode custom ingredients: %w", err)
	}
	return snapshot{recipes: string(rj), custom: string(cj)}, nil
}

// persist overwrites both records wholesale. If the second write fails the
// first record is restored from prev so the substrate never holds a mix of
// old and new state.
func persist(ctx context.Context, kv storage.KV, next, prev snapshot) error {
	if err := kv.Set(ctx, storage.KeyRecipes, next.recipes); err != nil {
		return fmt.Errorf("cookbook: persist recipes: %w", err)
	}
	if err := kv.Set(ctx, storage.KeyCustomIngredients, next.custom); err != nil {
		if rbErr := kv.Set(ctx, storage.KeyRecipes, prev.recipes); rbErr != nil {
			return fmt.Errorf("cookbook: persist custom ingredients: %w (restore recipes: %v)", err, rbErr)
		}
		return fmt.Errorf("cookbook: persist custom ingredients: %w", err)
	}
	return nil
}

// normalizeRecipe replaces nil slices from older records with empty ones so
// the JSON surface always carries arrays.
func normalizeRecipe(r models.Recipe) models.Recipe {
	if r.Categories == nil {
		r.Categories = []string{}
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Ingredients == nil {
		r.Ingredients = []models.IngredientLine{}
	}
	if r.Steps == nil {
		r.Steps = []string{}
	}
	return r
}
