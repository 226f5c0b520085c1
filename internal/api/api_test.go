package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/starford/recipebox/internal/cookbook"
	"github.com/starford/recipebox/internal/export"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/testutil"
)

// testEnv builds a store over an in-memory substrate and a router for it.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*cookbook.Store, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (*cookbook.Store, http.Handler) {
	t.Helper()

	store := testutil.TestStore(t, nil, map[string]models.Ingredient{
		"egg":       {Kcal: 155, Unit: "100g"},
		"chocolate": {Kcal: 546, Unit: "100g"},
	})
	router := NewRouter(store, authEnabled, token, sseHandler, export.PDFOptions{})
	return store, router
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func omeletteBody() map[string]any {
	return map[string]any{
		"name":        "Omelette",
		"categories":  []string{"breakfast"},
		"tags":        []string{"quick"},
		"ingredients": []map[string]any{{"name": "egg", "amount": 200, "unit": "g"}},
		"steps":       []string{"Beat eggs", "Fry"},
	}
}

func createRecipe(t *testing.T, h http.Handler, body any) models.Recipe {
	t.Helper()
	w := do(t, h, http.MethodPost, "/recipes", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var rec models.Recipe
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestCreateAndGetRecipe(t *testing.T) {
	_, router := testEnv(t, "")

	rec := createRecipe(t, router, omeletteBody())
	if rec.TotalCalories != 310 {
		t.Errorf("totalCalories = %d, want 310", rec.TotalCalories)
	}

	w := do(t, router, http.MethodGet, "/recipes/"+rec.IDString(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got models.Recipe
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Name != "Omelette" || got.ID != rec.ID {
		t.Errorf("got %+v", got)
	}
}

func TestCreateRecipe_StringAmount(t *testing.T) {
	_, router := testEnv(t, "")

	body := omeletteBody()
	body["ingredients"] = []map[string]any{{"name": "egg", "amount": "1,5", "unit": "szt."}}
	rec := createRecipe(t, router, body)
	if rec.Ingredients[0].Amount != 1.5 {
		t.Errorf("amount = %v, want 1.5", rec.Ingredients[0].Amount)
	}
}

func TestCreateRecipe_ValidationKinds(t *testing.T) {
	_, router := testEnv(t, "")

	cases := []struct {
		name string
		body map[string]any
		kind string
	}{
		{"empty name", map[string]any{"name": " ", "ingredients": []map[string]any{{"name": "egg", "amount": 1}}}, "empty-name"},
		{"no ingredients", map[string]any{"name": "Soup"}, "no-ingredients"},
		{"bad amount", map[string]any{"name": "Soup", "ingredients": []map[string]any{{"name": "egg", "amount": "abc"}}}, "invalid-amount"},
		{"zero amount", map[string]any{"name": "Soup", "ingredients": []map[string]any{{"name": "egg", "amount": 0}}}, "invalid-amount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/recipes", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var resp errResponse
			_ = json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Kind != tc.kind {
				t.Errorf("kind = %q, want %q", resp.Kind, tc.kind)
			}
		})
	}

	w := do(t, router, http.MethodGet, "/recipes", nil)
	var list RecipeListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 0 {
		t.Errorf("store changed after failed saves: %d recipes", list.Total)
	}
}

func TestCreateRecipe_InvalidJSON(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/recipes", strings.NewReader("{nope"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUpdateRecipe(t *testing.T) {
	_, router := testEnv(t, "")
	rec := createRecipe(t, router, omeletteBody())

	body := omeletteBody()
	body["name"] = "Big omelette"
	body["ingredients"] = []map[string]any{{"name": "egg", "amount": 300, "unit": "g"}}
	w := do(t, router, http.MethodPut, "/recipes/"+rec.IDString(), body)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	var got models.Recipe
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.ID != rec.ID || !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("identity changed: %+v", got)
	}
	if got.TotalCalories != 465 {
		t.Errorf("totalCalories = %d, want 465", got.TotalCalories)
	}
}

func TestUpdateRecipe_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/recipes/12345", omeletteBody())
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestDeleteRecipe(t *testing.T) {
	_, router := testEnv(t, "")
	rec := createRecipe(t, router, omeletteBody())

	w := do(t, router, http.MethodDelete, "/recipes/"+rec.IDString(), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/recipes/"+rec.IDString(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
	w = do(t, router, http.MethodGet, "/recipes/"+rec.IDString(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestGetRecipe_BadID(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/recipes/abc", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("bad id = %d, want 404", w.Code)
	}
}

func TestListRecipes_Filters(t *testing.T) {
	_, router := testEnv(t, "")
	createRecipe(t, router, omeletteBody())
	createRecipe(t, router, map[string]any{
		"name":        "Brownie",
		"categories":  []string{"dessert"},
		"tags":        []string{"sweet"},
		"ingredients": []map[string]any{{"name": "Chocolate", "amount": 100, "unit": "g"}},
	})

	cases := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"?q=CHOC", 1},
		{"?q=egg", 1},
		{"?category=dessert", 1},
		{"?category=all&tag=all", 2},
		{"?tag=quick&category=dessert", 0},
	}
	for _, tc := range cases {
		w := do(t, router, http.MethodGet, "/recipes"+tc.query, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tc.query, w.Code)
		}
		var list RecipeListResponse
		_ = json.Unmarshal(w.Body.Bytes(), &list)
		if list.Total != tc.want || len(list.Recipes) != tc.want {
			t.Errorf("%s: total = %d, want %d", tc.query, list.Total, tc.want)
		}
	}
}

func TestListRecipes_ETag(t *testing.T) {
	_, router := testEnv(t, "")
	createRecipe(t, router, omeletteBody())

	w := do(t, router, http.MethodGet, "/recipes", nil)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	w = do(t, router, http.MethodGet, "/recipes", nil, "If-None-Match", etag)
	if w.Code != http.StatusNotModified {
		t.Errorf("matching etag = %d, want 304", w.Code)
	}

	createRecipe(t, router, omeletteBody())
	w = do(t, router, http.MethodGet, "/recipes", nil, "If-None-Match", etag)
	if w.Code != http.StatusOK {
		t.Errorf("stale etag = %d, want 200", w.Code)
	}
}

func TestFilters(t *testing.T) {
	_, router := testEnv(t, "")
	createRecipe(t, router, omeletteBody())
	body := omeletteBody()
	body["categories"] = []string{"obiad", "breakfast"}
	body["tags"] = []string{"quick", "wege"}
	createRecipe(t, router, body)

	w := do(t, router, http.MethodGet, "/filters", nil)
	var resp FiltersResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if strings.Join(resp.Categories, ",") != "breakfast,obiad" {
		t.Errorf("categories = %v", resp.Categories)
	}
	if strings.Join(resp.Tags, ",") != "quick,wege" {
		t.Errorf("tags = %v", resp.Tags)
	}
}

func TestAddIngredient(t *testing.T) {
	store, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/ingredients", map[string]any{"name": " Tofu ", "kcal": "76", "unit": ""})
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body = %s", w.Code, w.Body.String())
	}
	var got IngredientResponse
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Name != "tofu" || got.Unit != "100g" || got.Source != models.SourceCustom {
		t.Errorf("got %+v", got)
	}
	if _, ok := store.Ingredient("TOFU"); !ok {
		t.Error("ingredient not in dictionary")
	}

	w = do(t, router, http.MethodGet, "/ingredients", nil)
	var list IngredientListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Ingredients) != 3 {
		t.Errorf("ingredients = %d, want 3", len(list.Ingredients))
	}
}

func TestAddIngredient_MissingFields(t *testing.T) {
	_, router := testEnv(t, "")

	for _, body := range []map[string]any{
		{"name": "", "kcal": 10},
		{"name": "   ", "kcal": 10},
		{"name": "tofu"},
		{"name": "tofu", "kcal": -1},
		{"name": "tofu", "kcal": ""},
		{"name": "tofu", "kcal": "abc"},
		{"name": "tofu", "kcal": "-1"},
		{"name": "tofu", "kcal": "0"},
	} {
		w := do(t, router, http.MethodPost, "/ingredients", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%v: status = %d, want 400", body, w.Code)
			continue
		}
		var resp errResponse
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Kind != "missing-fields" {
			t.Errorf("%v: kind = %q", body, resp.Kind)
		}
	}
}

func TestAddIngredient_StringKcal(t *testing.T) {
	store, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/ingredients", map[string]any{"name": "Tofu", "kcal": "7,5"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	ing, ok := store.Ingredient("tofu")
	if !ok || ing.Kcal != 7.5 {
		t.Errorf("tofu = %+v, %v", ing, ok)
	}
}

func TestCalories(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/calories", map[string]any{
		"ingredients": []map[string]any{
			{"name": "Egg", "amount": 150},
			{"name": "unicorn", "amount": 100},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp CaloriesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 233 {
		t.Errorf("total = %d, want 233", resp.Total)
	}
	if len(resp.Lines) != 2 || !resp.Lines[0].Known || resp.Lines[1].Known || resp.Lines[1].Kcal != 0 {
		t.Errorf("lines = %+v", resp.Lines)
	}
}

func TestRecipePDF(t *testing.T) {
	_, router := testEnv(t, "")
	rec := createRecipe(t, router, omeletteBody())

	w := do(t, router, http.MethodGet, "/recipes/"+rec.IDString()+"/pdf", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pdf status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "Omelette.pdf") {
		t.Errorf("content disposition = %q", cd)
	}

	w = do(t, router, http.MethodGet, "/recipes/"+strconv.FormatInt(rec.ID+1, 10)+"/pdf", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing pdf = %d, want 404", w.Code)
	}
}

func TestExportWorkbook(t *testing.T) {
	_, router := testEnv(t, "")
	createRecipe(t, router, omeletteBody())

	w := do(t, router, http.MethodGet, "/export.xlsx", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("xlsx status = %d", w.Code)
	}
	// XLSX is a zip container.
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("body is not a zip archive")
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodPost, "/recipes", omeletteBody(), "Authorization", "Bearer secret123")
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/recipes", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/recipes", nil, "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/recipes", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// Minimal SSE handler stub: writes headers and blocks until context done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "secret", sseStub)

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestSSEEvents_QueryToken(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?access_token=tok", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with query token = %d, want 200", w.Code)
	}

	w = do(t, router, http.MethodGet, "/events?access_token=nope", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE with wrong query token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_QueryTokenOnlyForEvents(t *testing.T) {
	_, router := testEnv(t, "tok")

	w := do(t, router, http.MethodGet, "/recipes?access_token=tok", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("query token on /recipes = %d, want 401", w.Code)
	}
}

func TestCreateRecipe_PersistsToDataDir(t *testing.T) {
	dir, fs := testutil.TestDataDir(t)
	dict := map[string]models.Ingredient{"egg": {Kcal: 155, Unit: "100g"}}

	store := testutil.TestStore(t, fs, dict)
	rec := createRecipe(t, NewRouter(store, false, "", nil, export.PDFOptions{}), omeletteBody())

	if _, err := os.Stat(filepath.Join(dir, "recipes.json")); err != nil {
		t.Fatalf("recipes record not written: %v", err)
	}

	reopened := testutil.TestStore(t, fs, dict)
	w := do(t, NewRouter(reopened, false, "", nil, export.PDFOptions{}), http.MethodGet, "/recipes/"+rec.IDString(), nil)
	if w.Code != http.StatusOK {
		t.Errorf("reopened get = %d, want 200", w.Code)
	}
}
