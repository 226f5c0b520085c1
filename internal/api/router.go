package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recipebox/internal/cookbook"
	"github.com/starford/recipebox/internal/export"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events and also accepts the
// token as an access_token query parameter.
func NewRouter(store *cookbook.Store, authEnabled bool, token string, sseHandler http.Handler, pdf export.PDFOptions) chi.Router {
	h := NewHandler(store, pdf)

	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token, ""))

		// Recipes.
		r.Get("/recipes", h.ListRecipes)
		r.Post("/recipes", h.CreateRecipe)
		r.Get("/recipes/{id}", h.GetRecipe)
		r.Put("/recipes/{id}", h.UpdateRecipe)
		r.Delete("/recipes/{id}", h.DeleteRecipe)
		r.Get("/filters", h.Filters)

		// Export.
		r.Get("/recipes/{id}/pdf", h.RecipePDF)
		r.Get("/export.xlsx", h.ExportWorkbook)

		// Ingredient dictionary.
		r.Get("/ingredients", h.ListIngredients)
		r.Post("/ingredients", h.AddIngredient)
		r.Post("/calories", h.Calories)
	})

	if sseHandler != nil {
		r.With(AuthMiddleware(authEnabled, token, tokenQueryParam)).Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
