package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/starford/recipebox/internal/models"
)

// Sheet names in the exported workbook.
const (
	SheetRecipes     = "Recipes"
	SheetIngredients = "Ingredients"
)

var (
	recipeHeader     = []interface{}{"ID", "Name", "Categories", "Tags", "Ingredients", "Steps", "Total kcal", "Created"}
	ingredientHeader = []interface{}{"Name", "Kcal", "Unit", "Source"}
)

// Workbook writes every recipe and the ingredient dictionary to an XLSX
// workbook with one sheet each.
func Workbook(w io.Writer, recipes []models.Recipe, ingredients []models.NamedIngredient) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetRecipes); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetIngredients); err != nil {
		return fmt.Errorf("export: add sheet: %w", err)
	}

	if err := writeRecipes(f, recipes); err != nil {
		return err
	}
	if err := writeIngredients(f, ingredients); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func writeRecipes(f *excelize.File, recipes []models.Recipe) error {
	sw, err := f.NewStreamWriter(SheetRecipes)
	if err != nil {
		return fmt.Errorf("export: recipes sheet: %w", err)
	}
	if err := sw.SetColWidth(2, 2, 28); err != nil {
		return err
	}
	if err := sw.SetColWidth(5, 6, 60); err != nil {
		return err
	}
	if err := sw.SetRow("A1", recipeHeader); err != nil {
		return err
	}
	for i, r := range recipes {
		lines := make([]string, len(r.Ingredients))
		for j, ing := range r.Ingredients {
			lines[j] = fmt.Sprintf("%s %s%s", ing.Name, FormatAmount(ing.Amount), ing.Unit)
		}
		row := []interface{}{
			r.IDString(),
			r.Name,
			strings.Join(r.Categories, ", "),
			strings.Join(r.Tags, ", "),
			strings.Join(lines, "; "),
			strings.Join(r.Steps, "\n"),
			r.TotalCalories,
			r.CreatedAt.Format(time.RFC3339),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func writeIngredients(f *excelize.File, ingredients []models.NamedIngredient) error {
	sw, err := f.NewStreamWriter(SheetIngredients)
	if err != nil {
		return fmt.Errorf("export: ingredients sheet: %w", err)
	}
	if err := sw.SetColWidth(1, 1, 24); err != nil {
		return err
	}
	if err := sw.SetRow("A1", ingredientHeader); err != nil {
		return err
	}
	for i, ing := range ingredients {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{ing.Name, ing.Kcal, ing.Unit, string(ing.Source)}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}
