package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/cookbook"
	"github.com/starford/recipebox/internal/export"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/textnorm"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	store *cookbook.Store
	pdf   export.PDFOptions
}

// NewHandler creates a new Handler.
func NewHandler(store *cookbook.Store, pdf export.PDFOptions) *Handler {
	return &Handler{store: store, pdf: pdf}
}

// recipeID parses the {id} URL parameter.
func recipeID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// filterParam returns a query value, or cookbook.All when absent.
func filterParam(q url.Values, key string) string {
	if v := q.Get(key); v != "" {
		return v
	}
	return cookbook.All
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if apperr.IsValidation(err, "") {
			return err
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, err error) {
	if apperr.IsValidation(err, "") {
		writeError(w, "decode", err)
		return
	}
	writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
}

// ListRecipes handles GET /api/recipes.
//
//	@Summary		List recipes matching a search term and filters
//	@Tags			recipes
//	@Produce		json
//	@Param			q			query		string	false	"Substring of the recipe or an ingredient name"
//	@Param			category	query		string	false	"Category, or all"
//	@Param			tag			query		string	false	"Tag, or all"
//	@Success		200			{object}	RecipeListResponse
//	@Success		304			"Not modified"
//	@Security		BearerAuth
//	@Router			/recipes [get]
func (h *Handler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	recipes := h.store.Filter(q.Get("q"), filterParam(q, "category"), filterParam(q, "tag"))
	writeTaggedJSON(w, r, RecipeListResponse{Recipes: recipes, Total: len(recipes)})
}

// GetRecipe handles GET /api/recipes/{id}.
//
//	@Summary		Get a single recipe
//	@Tags			recipes
//	@Produce		json
//	@Param			id	path		int	true	"Recipe id"
//	@Success		200	{object}	models.Recipe
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{id} [get]
func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := recipeID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	rec, found := h.store.Find(id)
	if !found {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CreateRecipe handles POST /api/recipes.
//
//	@Summary		Create a recipe
//	@Tags			recipes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RecipeRequest	true	"Recipe to create"
//	@Success		201		{object}	models.Recipe
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes [post]
func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req RecipeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	rec, err := h.store.Save(r.Context(), req.Draft(), cookbook.CreateMode())
	if err != nil {
		writeError(w, "create recipe", err)
		return
	}
	w.Header().Set("Location", "/api/recipes/"+rec.IDString())
	writeJSON(w, http.StatusCreated, rec)
}

// UpdateRecipe handles PUT /api/recipes/{id}.
//
//	@Summary		Replace a recipe, keeping its id and creation time
//	@Tags			recipes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Recipe id"
//	@Param			body	body		RecipeRequest	true	"Updated recipe"
//	@Success		200		{object}	models.Recipe
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{id} [put]
func (h *Handler) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := recipeID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	var req RecipeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	rec, err := h.store.Save(r.Context(), req.Draft(), cookbook.EditMode(id))
	if err != nil {
		writeError(w, "update recipe", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteRecipe handles DELETE /api/recipes/{id}.
//
//	@Summary		Delete a recipe
//	@Tags			recipes
//	@Param			id	path	int	true	"Recipe id"
//	@Success		204	"Recipe deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{id} [delete]
func (h *Handler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := recipeID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	removed, err := h.store.Delete(r.Context(), id)
	if err != nil {
		writeError(w, "delete recipe", err)
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecipePDF handles GET /api/recipes/{id}/pdf.
//
//	@Summary		Download a recipe as PDF
//	@Tags			export
//	@Produce		application/pdf
//	@Param			id	path		int	true	"Recipe id"
//	@Success		200	{file}		binary
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{id}/pdf [get]
func (h *Handler) RecipePDF(w http.ResponseWriter, r *http.Request) {
	id, ok := recipeID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	rec, found := h.store.Find(id)
	if !found {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	var buf bytes.Buffer
	if err := export.PDF(&buf, rec, h.store.Ingredient, h.pdf); err != nil {
		writeError(w, "render pdf", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", contentDisposition(export.FileName(rec)))
	_, _ = w.Write(buf.Bytes())
}

// ExportWorkbook handles GET /api/export.xlsx.
//
//	@Summary		Download every recipe and the ingredient dictionary as XLSX
//	@Tags			export
//	@Produce		application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//	@Success		200	{file}	binary
//	@Security		BearerAuth
//	@Router			/export.xlsx [get]
func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.Workbook(&buf, h.store.Recipes(), h.store.Ingredients()); err != nil {
		writeError(w, "export workbook", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", contentDisposition("recipes.xlsx"))
	_, _ = w.Write(buf.Bytes())
}

// Filters handles GET /api/filters.
//
//	@Summary		List distinct categories and tags
//	@Tags			recipes
//	@Produce		json
//	@Success		200	{object}	FiltersResponse
//	@Security		BearerAuth
//	@Router			/filters [get]
func (h *Handler) Filters(w http.ResponseWriter, r *http.Request) {
	writeTaggedJSON(w, r, FiltersResponse{
		Categories: h.store.Categories(),
		Tags:       h.store.Tags(),
	})
}

// ListIngredients handles GET /api/ingredients.
//
//	@Summary		List the merged ingredient dictionary
//	@Tags			ingredients
//	@Produce		json
//	@Success		200	{object}	IngredientListResponse
//	@Security		BearerAuth
//	@Router			/ingredients [get]
func (h *Handler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	writeTaggedJSON(w, r, IngredientListResponse{Ingredients: h.store.Ingredients()})
}

// AddIngredient handles POST /api/ingredients.
//
//	@Summary		Save a custom ingredient, overriding any entry with the same name
//	@Tags			ingredients
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddIngredientRequest	true	"Ingredient"
//	@Success		201		{object}	IngredientResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ingredients [post]
func (h *Handler) AddIngredient(w http.ResponseWriter, r *http.Request) {
	var req AddIngredientRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, "add ingredient", apperr.Invalid(apperr.KindMissingFields, err.Error()))
		return
	}
	ing, err := h.store.AddCustomIngredient(r.Context(), req.Name, float64(req.Kcal), req.Unit)
	if err != nil {
		writeError(w, "add ingredient", err)
		return
	}
	writeJSON(w, http.StatusCreated, IngredientResponse{
		Name:   textnorm.Key(req.Name),
		Kcal:   ing.Kcal,
		Unit:   ing.Unit,
		Source: models.SourceCustom,
	})
}

// Calories handles POST /api/calories.
//
//	@Summary		Calculate calories for unsaved ingredient lines
//	@Tags			ingredients
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CaloriesRequest	true	"Ingredient lines"
//	@Success		200		{object}	CaloriesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/calories [post]
func (h *Handler) Calories(w http.ResponseWriter, r *http.Request) {
	var req CaloriesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	in := lines(req.Ingredients)
	resp := CaloriesResponse{
		Exact: h.store.CalculateCalories(in),
		Lines: make([]LineCalories, len(in)),
	}
	resp.Total = cookbook.Round(resp.Exact)
	for i, l := range in {
		_, known := h.store.Ingredient(l.Name)
		resp.Lines[i] = LineCalories{Name: l.Name, Kcal: h.store.LineCalories(l), Known: known}
	}
	writeJSON(w, http.StatusOK, resp)
}

func contentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename))
}
