// Package cookbook owns the recipe list and the merged ingredient dictionary.
package cookbook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/catalog"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/parser"
	"github.com/starford/recipebox/internal/storage"
	"github.com/starford/recipebox/internal/textnorm"
)

// All is the filter sentinel that matches every category or tag.
const All = "all"

// DefaultUnit labels custom ingredients saved without a unit.
const DefaultUnit = "100g"

// Change kinds passed to an EventCallback.
const (
	EventRecipeCreated   = "recipe.created"
	EventRecipeUpdated   = "recipe.updated"
	EventRecipeDeleted   = "recipe.deleted"
	EventIngredientAdded = "ingredient.added"
)

// EventCallback is called after a mutation has been persisted, while the
// store lock is still held, so calls arrive in commit order. subject is the
// recipe id or the ingredient key. The callback must not call back into the
// store and should return quickly.
type EventCallback func(kind, subject string)

// Mode selects whether Save creates a recipe or replaces an existing one.
type Mode struct {
	edit   bool
	target int64
}

// CreateMode saves a draft as a new recipe.
func CreateMode() Mode { return Mode{} }

// EditMode saves a draft over the recipe with the given id.
func EditMode(id int64) Mode { return Mode{edit: true, target: id} }

// Target returns the edited recipe id, if any.
func (m Mode) Target() (int64, bool) { return m.target, m.edit }

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithEventCallback registers a change listener.
func WithEventCallback(cb EventCallback) Option {
	return func(s *Store) { s.onChange = cb }
}

// Store is the authoritative recipe book. All methods are safe for
// concurrent use; each runs to completion before the next starts.
type Store struct {
	mu          sync.Mutex
	kv          storage.KV
	builtin     map[string]models.Ingredient
	custom      map[string]models.Ingredient
	ingredients map[string]models.Ingredient
	recipes     []models.Recipe
	saved       snapshot
	lastID      int64

	now      func() time.Time
	logger   *slog.Logger
	onChange EventCallback
}

// Open builds a store from the catalog and whatever the substrate holds.
// Missing or malformed records start empty; substrate errors are returned.
func Open(ctx context.Context, kv storage.KV, cat *catalog.Catalog, opts ...Option) (*Store, error) {
	s := &Store{
		kv:     kv,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cat != nil {
		s.builtin = cat.Entries()
	} else {
		s.builtin = map[string]models.Ingredient{}
	}

	custom, err := loadCustom(ctx, kv, s.logger)
	if err != nil {
		return nil, fmt.Errorf("cookbook: load custom ingredients: %w", err)
	}
	recipes, err := loadRecipes(ctx, kv, s.logger)
	if err != nil {
		return nil, fmt.Errorf("cookbook: load recipes: %w", err)
	}

	s.custom = custom
	s.ingredients = merge(s.builtin, s.custom)
	s.recipes = recipes
	for _, r := range recipes {
		if r.ID > s.lastID {
			s.lastID = r.ID
		}
	}
	if s.saved, err = encode(s.recipes, s.custom); err != nil {
		return nil, err
	}

	s.logger.Info("cookbook: loaded",
		slog.Int("recipes", len(s.recipes)),
		slog.Int("builtin_ingredients", len(s.builtin)),
		slog.Int("custom_ingredients", len(s.custom)))
	return s, nil
}

// CalculateCalories sums the calorie contribution of lines against the
// current dictionary. Unknown ingredients contribute 0.
func (s *Store) CalculateCalories(lines []models.IngredientLine) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Calories(MapLookup(s.ingredients), lines)
}

// LineCalories returns the rounded contribution of one line.
func (s *Store) LineCalories(line models.IngredientLine) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LineCalories(MapLookup(s.ingredients), line)
}

// Save commits d as a new recipe or over an existing one.
//
// Validation failures return *apperr.ValidationError; editing an unknown id
// returns apperr.ErrNotFound. In both cases, and on persistence failure, the
// store is left unchanged.
func (s *Store) Save(ctx context.Context, d *Draft, mode Mode) (models.Recipe, error) {
	if d == nil {
		d = NewDraft()
	}
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return models.Recipe{}, apperr.Invalid(apperr.KindEmptyName, "recipe name is required")
	}
	if len(d.Ingredients) == 0 {
		return models.Recipe{}, apperr.Invalid(apperr.KindNoIngredients, "add at least one ingredient")
	}
	lines := make([]models.IngredientLine, len(d.Ingredients))
	for i, l := range d.Ingredients {
		l.Name = strings.TrimSpace(l.Name)
		if l.Name == "" {
			return models.Recipe{}, apperr.Invalid(apperr.KindMissingFields, fmt.Sprintf("ingredient %d has no name", i+1))
		}
		if !parser.Positive(l.Amount) {
			return models.Recipe{}, apperr.Invalid(apperr.KindInvalidAmount, fmt.Sprintf("ingredient %q amount must be positive", l.Name))
		}
		lines[i] = l
	}

	s.mu.Lock()

	rec := models.Recipe{
		Name:        name,
		Categories:  dedupe(d.Categories),
		Tags:        dedupe(d.Tags),
		Ingredients: lines,
		Steps:       nonBlank(d.Steps),
	}
	rec.TotalCalories = Round(Calories(MapLookup(s.ingredients), lines))

	next := make([]models.Recipe, len(s.recipes), len(s.recipes)+1)
	copy(next, s.recipes)

	kind := EventRecipeCreated
	lastID := s.lastID
	if target, editing := mode.Target(); editing {
		idx := s.indexOf(target)
		if idx < 0 {
			s.mu.Unlock()
			return models.Recipe{}, apperr.ErrNotFound
		}
		rec.ID = next[idx].ID
		rec.CreatedAt = next[idx].CreatedAt
		next[idx] = rec
		kind = EventRecipeUpdated
	} else {
		now := s.now()
		rec.ID = now.UnixMilli()
		if rec.ID <= lastID {
			rec.ID = lastID + 1
		}
		lastID = rec.ID
		rec.CreatedAt = now.UTC().Truncate(time.Millisecond)
		next = append(next, rec)
	}

	if err := s.commit(ctx, next, s.custom); err != nil {
		s.mu.Unlock()
		return models.Recipe{}, err
	}
	s.lastID = lastID
	s.notify(kind, rec.IDString())
	s.mu.Unlock()

	s.logger.Debug("cookbook: recipe saved",
		slog.Int64("id", rec.ID),
		slog.String("name", rec.Name),
		slog.Int("total_calories", rec.TotalCalories))
	return rec.Clone(), nil
}

// Delete removes the recipe with the given id. It reports false, without
// error, when no such recipe exists.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	next := make([]models.Recipe, 0, len(s.recipes)-1)
	next = append(next, s.recipes[:idx]...)
	next = append(next, s.recipes[idx+1:]...)
	if err := s.commit(ctx, next, s.custom); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.notify(EventRecipeDeleted, strconv.FormatInt(id, 10))
	s.mu.Unlock()

	s.logger.Debug("cookbook: recipe deleted", slog.Int64("id", id))
	return true, nil
}

// Find returns a copy of the recipe with the given id.
func (s *Store) Find(id int64) (models.Recipe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return models.Recipe{}, false
	}
	return s.recipes[idx].Clone(), true
}

// Recipes returns a copy of every recipe in store order.
func (s *Store) Recipes() []models.Recipe {
	return s.Filter("", All, All)
}

// Filter returns recipes whose name or any ingredient name contains search
// (case-insensitive), restricted to category and tag unless they are All.
func (s *Store) Filter(search, category, tag string) []models.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Recipe, 0, len(s.recipes))
	for _, r := range s.recipes {
		if !matchesSearch(r, search) {
			continue
		}
		if category != All && !contains(r.Categories, category) {
			continue
		}
		if tag != All && !contains(r.Tags, tag) {
			continue
		}
		out = append(out, r.Clone())
	}
	return out
}

// Categories returns every distinct category, collated.
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.distinct(func(r models.Recipe) []string { return r.Categories })
}

// Tags returns every distinct tag, collated.
func (s *Store) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.distinct(func(r models.Recipe) []string { return r.Tags })
}

// Ingredient looks up a dictionary entry by name, ignoring case.
func (s *Store) Ingredient(name string) (models.Ingredient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ing, ok := s.ingredients[textnorm.Key(name)]
	return ing, ok
}

// Dictionary returns a copy of the merged dictionary.
func (s *Store) Dictionary() map[string]models.Ingredient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return merge(s.ingredients, nil)
}

// Ingredients returns the merged dictionary as a collated list.
func (s *Store) Ingredients() []models.NamedIngredient {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.NamedIngredient, 0, len(s.ingredients))
	for name, ing := range s.ingredients {
		src := models.SourceBuiltin
		if _, ok := s.custom[name]; ok {
			src = models.SourceCustom
		}
		out = append(out, models.NamedIngredient{Name: name, Kcal: ing.Kcal, Unit: ing.Unit, Source: src})
	}
	textnorm.SortFunc(out, func(n models.NamedIngredient) string { return n.Name })
	return out
}

// AddCustomIngredient inserts or overwrites a custom dictionary entry. The
// entry shadows any builtin one with the same key.
func (s *Store) AddCustomIngredient(ctx context.Context, name string, kcal float64, unit string) (models.Ingredient, error) {
	key := textnorm.Key(name)
	if key == "" || !parser.Positive(kcal) {
		return models.Ingredient{}, apperr.Invalid(apperr.KindMissingFields, "name and a positive kcal value are required")
	}
	unit = strings.TrimSpace(unit)
	if unit == "" {
		unit = DefaultUnit
	}
	ing := models.Ingredient{Kcal: kcal, Unit: unit}

	s.mu.Lock()
	custom := merge(s.custom, map[string]models.Ingredient{key: ing})
	if err := s.commit(ctx, s.recipes, custom); err != nil {
		s.mu.Unlock()
		return models.Ingredient{}, err
	}
	s.ingredients = merge(s.builtin, s.custom)
	s.notify(EventIngredientAdded, key)
	s.mu.Unlock()

	s.logger.Debug("cookbook: custom ingredient saved",
		slog.String("name", key),
		slog.Float64("kcal", kcal),
		slog.String("unit", unit))
	return ing, nil
}

// commit persists the next state and swaps it in. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, recipes []models.Recipe, custom map[string]models.Ingredient) error {
	snap, err := encode(recipes, custom)
	if err != nil {
		return err
	}
	if err := persist(ctx, s.kv, snap, s.saved); err != nil {
		s.logger.Error("cookbook: persist failed", slog.String("error", err.Error()))
		return err
	}
	s.recipes = recipes
	s.custom = custom
	s.saved = snap
	return nil
}

func (s *Store) indexOf(id int64) int {
	for i, r := range s.recipes {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) distinct(field func(models.Recipe) []string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range s.recipes {
		for _, v := range field(r) {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	textnorm.Sort(out)
	return out
}

// notify forwards a committed change. Callers hold s.mu.
func (s *Store) notify(kind, subject string) {
	if s.onChange != nil {
		s.onChange(kind, subject)
	}
}

func matchesSearch(r models.Recipe, search string) bool {
	if search == "" || textnorm.ContainsFold(r.Name, search) {
		return true
	}
	for _, l := range r.Ingredients {
		if textnorm.ContainsFold(l.Name, search) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// dedupe trims values, drops blanks and keeps the first occurrence of each.
func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		addUnique(&out, v)
	}
	return out
}

func nonBlank(steps []string) []string {
	out := make([]string, 0, len(steps))
	for _, st := range steps {
		if strings.TrimSpace(st) != "" {
			out = append(out, st)
		}
	}
	return out
}

// merge returns base overlaid with over as a new map.
func merge(base, over map[string]models.Ingredient) map[string]models.Ingredient {
	out := make(map[string]models.Ingredient, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
