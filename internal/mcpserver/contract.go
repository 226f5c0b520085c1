package mcpserver

// RecipeFormatContract describes the recipe JSON accepted by save_recipe and
// the rules applied when it is stored.
const RecipeFormatContract = `# Recipe Format

Recipes are JSON objects:

` + "```" + `json
{
  "name": "Jajecznica",
  "categories": ["śniadanie"],
  "tags": ["szybkie"],
  "ingredients": [
    {"name": "jajko", "amount": 150, "unit": "g"},
    {"name": "masło", "amount": 10, "unit": "g"}
  ],
  "steps": ["Roztop masło.", "Wbij jajka i mieszaj."]
}
` + "```" + `

## Rules

1. **` + "`" + `name` + "`" + ` is required** and may not be blank.
2. **At least one ingredient** is required. Each line needs a ` + "`" + `name` + "`" + ` and a
   positive ` + "`" + `amount` + "`" + `.
3. **Calories** are computed on save as kcal × amount / 100 for every line whose
   name is in the dictionary (case-insensitive). The ` + "`" + `unit` + "`" + ` is a label only:
   2 "szt." of an ingredient counts as 2/100 of its reference quantity.
   Unknown ingredients count as 0; add them first with ` + "`" + `add_ingredient` + "`" + `.
4. **Categories and tags** are free text, trimmed and de-duplicated.
5. **Steps** are kept in order; blank steps are dropped.
6. ` + "`" + `id` + "`" + `, ` + "`" + `totalCalories` + "`" + ` and ` + "`" + `createdAt` + "`" + ` are assigned by the store and
   ignored on input. Replacing a recipe keeps its id and creation time.

## Errors

A rejected save reports one of: ` + "`" + `empty-name` + "`" + `, ` + "`" + `no-ingredients` + "`" + `,
` + "`" + `missing-fields` + "`" + `, ` + "`" + `invalid-amount` + "`" + `. Nothing is stored on rejection.
`
