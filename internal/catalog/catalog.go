// Package catalog provides the read-only built-in ingredient dictionary.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/textnorm"
)

//go:embed ingredients.yaml
var builtinYAML []byte

// Catalog is an immutable lowercase-name → Ingredient mapping.
type Catalog struct {
	entries map[string]models.Ingredient
}

// Builtin returns the catalog embedded in the binary.
func Builtin() (*Catalog, error) {
	return Parse(builtinYAML)
}

// Load reads a catalog from a YAML file. An empty path yields the builtin catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Builtin()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML mapping of name → {kcal, unit}. Names are trimmed
// and lowercased; a negative kcal value fails the whole catalog.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]models.Ingredient
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	entries := make(map[string]models.Ingredient, len(raw))
	for name, ing := range raw {
		key := textnorm.Key(name)
		if key == "" {
			continue
		}
		if ing.Kcal < 0 {
			return nil, fmt.Errorf("catalog: %q has negative kcal", name)
		}
		entries[key] = ing
	}
	return &Catalog{entries: entries}, nil
}

// FromMap builds a catalog from an in-memory mapping. Used by tests and
// embedding callers.
func FromMap(m map[string]models.Ingredient) *Catalog {
	entries := make(map[string]models.Ingredient, len(m))
	for k, v := range m {
		entries[textnorm.Key(k)] = v
	}
	return &Catalog{entries: entries}
}

// Entries returns a copy of the mapping.
func (c *Catalog) Entries() map[string]models.Ingredient {
	out := make(map[string]models.Ingredient, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }
