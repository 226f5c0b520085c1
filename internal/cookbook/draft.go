package cookbook

import (
	"strings"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/parser"
)

// Draft is an editable working copy of a recipe. Abandoning a draft has no
// effect on the store; only Store.Save commits it.
type Draft struct {
	Name        string                  `json:"name"`
	Categories  []string                `json:"categories"`
	Tags        []string                `json:"tags"`
	Ingredients []models.IngredientLine `json:"ingredients"`
	Steps       []string                `json:"steps"`
}

// NewDraft returns an empty draft with a single empty step slot.
func NewDraft() *Draft {
	return &Draft{
		Categories:  []string{},
		Tags:        []string{},
		Ingredients: []models.IngredientLine{},
		Steps:       []string{""},
	}
}

// DraftFrom returns a draft pre-filled from r. The draft shares no memory with r.
func DraftFrom(r models.Recipe) *Draft {
	c := r.Clone()
	d := &Draft{
		Name:        c.Name,
		Categories:  c.Categories,
		Tags:        c.Tags,
		Ingredients: c.Ingredients,
		Steps:       c.Steps,
	}
	if len(d.Steps) == 0 {
		d.Steps = []string{""}
	}
	return d
}

// AddCategory appends a trimmed, non-empty category unless already present.
func (d *Draft) AddCategory(v string) bool {
	return addUnique(&d.Categories, v)
}

// RemoveCategory drops the category at index i.
func (d *Draft) RemoveCategory(i int) {
	removeAt(&d.Categories, i)
}

// AddTag appends a trimmed, non-empty tag unless already present.
func (d *Draft) AddTag(v string) bool {
	return addUnique(&d.Tags, v)
}

// RemoveTag drops the tag at index i.
func (d *Draft) RemoveTag(i int) {
	removeAt(&d.Tags, i)
}

// AddIngredient parses amountText and appends a line.
func (d *Draft) AddIngredient(name, amountText, unit string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Invalid(apperr.KindMissingFields, "ingredient name is required")
	}
	amount, err := parser.ParseAmount(amountText)
	if err != nil {
		return apperr.Invalid(apperr.KindInvalidAmount, err.Error())
	}
	d.Ingredients = append(d.Ingredients, models.IngredientLine{
		Name:   name,
		Amount: amount,
		Unit:   strings.TrimSpace(unit),
	})
	return nil
}

// RemoveIngredient drops the line at index i.
func (d *Draft) RemoveIngredient(i int) {
	removeAt(&d.Ingredients, i)
}

// AddStep appends an empty step slot.
func (d *Draft) AddStep() {
	d.Steps = append(d.Steps, "")
}

// UpdateStep sets the text of step i.
func (d *Draft) UpdateStep(i int, text string) {
	if i >= 0 && i < len(d.Steps) {
		d.Steps[i] = text
	}
}

// RemoveStep drops step i, keeping at least one slot.
func (d *Draft) RemoveStep(i int) {
	if len(d.Steps) > 1 {
		removeAt(&d.Steps, i)
	}
}

func addUnique(list *[]string, v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, existing := range *list {
		if existing == v {
			return false
		}
	}
	*list = append(*list, v)
	return true
}

func removeAt[T any](list *[]T, i int) {
	s := *list
	if i < 0 || i >= len(s) {
		return
	}
	*list = append(s[:i:i], s[i+1:]...)
}
