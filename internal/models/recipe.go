// Package models defines the domain types for recipebox.
package models

import (
	"strconv"
	"time"
)

// Ingredient is a dictionary entry: calories per reference quantity.
type Ingredient struct {
	Kcal float64 `json:"kcal" yaml:"kcal"`
	Unit string  `json:"unit" yaml:"unit"`
}

// Source tells where a dictionary entry came from.
type Source string

// Ingredient sources.
const (
	SourceBuiltin Source = "builtin"
	SourceCustom  Source = "custom"
)

// NamedIngredient is a dictionary entry together with its key and provenance.
type NamedIngredient struct {
	Name   string  `json:"name"`
	Kcal   float64 `json:"kcal"`
	Unit   string  `json:"unit"`
	Source Source  `json:"source"`
}

// IngredientLine is one ingredient of a recipe.
// Amount is always scaled against a 100-unit reference when computing calories;
// Unit is a display label only.
type IngredientLine struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// Recipe is a committed recipe.
type Recipe struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Categories    []string         `json:"categories"`
	Tags          []string         `json:"tags"`
	Ingredients   []IngredientLine `json:"ingredients"`
	Steps         []string         `json:"steps"`
	TotalCalories int              `json:"totalCalories"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// IDString returns the id in decimal, the form used in URLs and events.
func (r Recipe) IDString() string {
	return strconv.FormatInt(r.ID, 10)
}

// Clone returns a deep copy of r.
func (r Recipe) Clone() Recipe {
	out := r
	out.Categories = cloneSlice(r.Categories)
	out.Tags = cloneSlice(r.Tags)
	out.Ingredients = cloneSlice(r.Ingredients)
	out.Steps = cloneSlice(r.Steps)
	return out
}

func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
