package cookbook

import (
	"math"

	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/textnorm"
)

// referenceQuantity is the fixed divisor applied to every line amount,
// whatever the line's display unit.
const referenceQuantity = 100.0

// Lookup resolves an ingredient by user-typed name.
type Lookup func(name string) (models.Ingredient, bool)

// MapLookup adapts a lowercase-keyed dictionary to Lookup.
func MapLookup(dict map[string]models.Ingredient) Lookup {
	return func(name string) (models.Ingredient, bool) {
		ing, ok := dict[textnorm.Key(name)]
		return ing, ok
	}
}

// Calories sums kcal × amount/100 over lines. Lines naming an unknown
// ingredient contribute nothing. The result is not rounded.
func Calories(lookup Lookup, lines []models.IngredientLine) float64 {
	var total float64
	for _, l := range lines {
		total += lineCalories(lookup, l)
	}
	return total
}

// LineCalories returns the rounded contribution of a single line.
func LineCalories(lookup Lookup, line models.IngredientLine) int {
	return Round(lineCalories(lookup, line))
}

// Round rounds half away from zero, the presentation rule for calorie values.
func Round(v float64) int {
	return int(math.Round(v))
}

func lineCalories(lookup Lookup, l models.IngredientLine) float64 {
	ing, ok := lookup(l.Name)
	if !ok {
		return 0
	}
	return ing.Kcal * (l.Amount / referenceQuantity)
}
