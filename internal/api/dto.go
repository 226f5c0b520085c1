package api

import (
	"encoding/json"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/cookbook"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/parser"
)

// Quantity accepts either a JSON number or a numeric string as typed in a
// form field ("150", "1,5"). A blank string decodes as zero.
type Quantity float64

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := parser.ParseAmount(s)
		switch {
		case errors.Is(err, parser.ErrEmpty):
			*q = 0
			return nil
		case err != nil:
			return apperr.Invalid(apperr.KindInvalidAmount, err.Error())
		}
		*q = Quantity(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*q = Quantity(v)
	return nil
}

// Kcal is a calorie value that, like Quantity, accepts a number or a string.
// Strings that do not parse to a positive number decode as zero so that
// validation reports the request as missing its kcal.
type Kcal float64

// UnmarshalJSON implements json.Unmarshaler.
func (k *Kcal) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := parser.ParseKcal(s)
		if err != nil {
			v = 0
		}
		*k = Kcal(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*k = Kcal(v)
	return nil
}

// IngredientLineRequest is one ingredient line in a recipe or calorie request.
type IngredientLineRequest struct {
	Name   string   `json:"name" example:"jajko" validate:"required"`
	Amount Quantity `json:"amount" example:"150" validate:"required"`
	Unit   string   `json:"unit" example:"g"`
}

// RecipeRequest is the request body for creating or replacing a recipe.
type RecipeRequest struct {
	Name        string                  `json:"name" example:"Jajecznica" validate:"required"`
	Categories  []string                `json:"categories" example:"śniadanie"`
	Tags        []string                `json:"tags" example:"szybkie"`
	Ingredients []IngredientLineRequest `json:"ingredients" validate:"required"`
	Steps       []string                `json:"steps"`
}

// Draft converts the request into a store draft. Field-level checks are left
// to the store so every surface reports the same validation kinds.
func (r RecipeRequest) Draft() *cookbook.Draft {
	d := cookbook.NewDraft()
	d.Name = r.Name
	for _, c := range r.Categories {
		d.AddCategory(c)
	}
	for _, t := range r.Tags {
		d.AddTag(t)
	}
	d.Ingredients = lines(r.Ingredients)
	if len(r.Steps) > 0 {
		d.Steps = append([]string(nil), r.Steps...)
	}
	return d
}

func lines(in []IngredientLineRequest) []models.IngredientLine {
	out := make([]models.IngredientLine, len(in))
	for i, l := range in {
		out[i] = models.IngredientLine{
			Name:   strings.TrimSpace(l.Name),
			Amount: float64(l.Amount),
			Unit:   strings.TrimSpace(l.Unit),
		}
	}
	return out
}

// RecipeListResponse wraps a filtered recipe listing.
type RecipeListResponse struct {
	Recipes []models.Recipe `json:"recipes" validate:"required"`
	Total   int             `json:"total" example:"12" validate:"required"`
}

// FiltersResponse lists the values offered by the category and tag filters.
type FiltersResponse struct {
	Categories []string `json:"categories" validate:"required"`
	Tags       []string `json:"tags" validate:"required"`
}

// IngredientListResponse wraps the merged dictionary.
type IngredientListResponse struct {
	Ingredients []models.NamedIngredient `json:"ingredients" validate:"required"`
}

// AddIngredientRequest is the request body for saving a custom ingredient.
type AddIngredientRequest struct {
	Name string `json:"name" example:"tofu" validate:"required"`
	Kcal Kcal   `json:"kcal" example:"76" validate:"required"`
	Unit string `json:"unit" example:"100g"`
}

// Validate checks that name and kcal are present.
func (r AddIngredientRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.By(notBlank)),
		validation.Field(&r.Kcal, validation.Required, validation.Min(Kcal(0)).Exclusive()),
	)
}

func notBlank(v interface{}) error {
	if s, _ := v.(string); strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

// IngredientResponse is a single dictionary entry.
type IngredientResponse = models.NamedIngredient

// CaloriesRequest asks for the calorie total of unsaved ingredient lines.
type CaloriesRequest struct {
	Ingredients []IngredientLineRequest `json:"ingredients" validate:"required"`
}

// LineCalories is the rounded contribution of one line.
type LineCalories struct {
	Name  string `json:"name" example:"jajko"`
	Kcal  int    `json:"kcal" example:"233"`
	Known bool   `json:"known" example:"true"`
}

// CaloriesResponse reports a draft's calorie total.
type CaloriesResponse struct {
	Total int            `json:"total" example:"310"`
	Exact float64        `json:"exact" example:"310.25"`
	Lines []LineCalories `json:"lines"`
}
