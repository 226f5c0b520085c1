// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes recipebox tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/cookbook"
	"github.com/starford/recipebox/internal/export"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/textnorm"
)

const formatURI = "recipebox://recipe-format"

// Server wraps the MCP server with recipebox tools.
type Server struct {
	mcp   *server.MCPServer
	store *cookbook.Store
	pdf   export.PDFOptions
}

// New creates a new MCP server with all recipebox tools registered.
func New(store *cookbook.Store, pdf export.PDFOptions) *Server {
	s := &Server{store: store, pdf: pdf}

	s.mcp = server.NewMCPServer(
		"recipebox",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_recipes",
		mcp.WithDescription("Find recipes whose name or any ingredient name contains the query (case-insensitive). "+
			"Optionally restrict to one category and one tag."),
		mcp.WithString("query", mcp.Description("Substring to search for (empty for all)")),
		mcp.WithString("category", mcp.Description("Category to restrict to (omit or \"all\" for any)")),
		mcp.WithString("tag", mcp.Description("Tag to restrict to (omit or \"all\" for any)")),
	), s.searchRecipes)

	s.mcp.AddTool(mcp.NewTool("get_recipe",
		mcp.WithDescription("Read a single recipe by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Recipe id")),
	), s.getRecipe)

	s.mcp.AddTool(mcp.NewTool("save_recipe",
		mcp.WithDescription("Create a recipe, or replace one when id is given. "+
			"The recipe MUST follow the format returned by get_recipe_format or the "+
			formatURI+" resource."),
		mcp.WithString("recipe", mcp.Required(), mcp.Description("Recipe as a JSON object")),
		mcp.WithString("id", mcp.Description("Id of the recipe to replace")),
	), s.saveRecipe)

	s.mcp.AddTool(mcp.NewTool("list_ingredients",
		mcp.WithDescription("List the ingredient dictionary with kcal per 100 units."),
	), s.listIngredients)

	s.mcp.AddTool(mcp.NewTool("add_ingredient",
		mcp.WithDescription("Save a custom ingredient. Overrides any entry with the same name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Ingredient name")),
		mcp.WithNumber("kcal", mcp.Required(), mcp.Description("Calories per 100 units")),
		mcp.WithString("unit", mcp.Description("Reference unit label, default 100g")),
	), s.addIngredient)

	s.mcp.AddTool(mcp.NewTool("calculate_calories",
		mcp.WithDescription("Total calories of ingredient lines against the dictionary. "+
			"Unknown ingredients count as 0."),
		mcp.WithString("ingredients", mcp.Required(),
			mcp.Description(`JSON array of lines, e.g. [{"name":"jajko","amount":150,"unit":"g"}]`)),
	), s.calculateCalories)

	s.mcp.AddTool(mcp.NewTool("export_recipe_pdf",
		mcp.WithDescription("Render a recipe as PDF. Returns the file name and base64 content."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Recipe id")),
	), s.exportRecipePDF)

	s.mcp.AddTool(mcp.NewTool("get_recipe_format",
		mcp.WithDescription("Returns the recipe JSON format. "+
			"Call this before saving recipes to ensure correct structure."),
	), s.getRecipeFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Recipe Format",
			mcp.WithResourceDescription("JSON shape of a recipe and the rules applied on save."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecipeFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func filterArg(req mcp.CallToolRequest, key string) string {
	if v := strings.TrimSpace(req.GetString(key, "")); v != "" {
		return v
	}
	return cookbook.All
}

func recipeIDArg(req mcp.CallToolRequest) (int64, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid recipe id %q", raw)
	}
	return id, nil
}

func (s *Server) searchRecipes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recipes := s.store.Filter(req.GetString("query", ""), filterArg(req, "category"), filterArg(req, "tag"))
	return jsonResult(recipes), nil
}

func (s *Server) getRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := recipeIDArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, ok := s.store.Find(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %d", id)), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) saveRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("recipe")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d := cookbook.NewDraft()
	if err := json.Unmarshal([]byte(raw), d); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recipe is not valid JSON: %v", err)), nil
	}

	mode := cookbook.CreateMode()
	if strings.TrimSpace(req.GetString("id", "")) != "" {
		id, err := recipeIDArg(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		mode = cookbook.EditMode(id)
	}

	rec, err := s.store.Save(ctx, d, mode)
	if err != nil {
		return mcp.NewToolResultError(describe(err)), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) listIngredients(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.store.Ingredients()), nil
}

func (s *Server) addIngredient(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kcal, err := req.RequireFloat("kcal")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ing, err := s.store.AddCustomIngredient(ctx, name, kcal, req.GetString("unit", ""))
	if err != nil {
		return mcp.NewToolResultError(describe(err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s (%s kcal / %s)",
		textnorm.Key(name), export.FormatAmount(ing.Kcal), ing.Unit)), nil
}

func (s *Server) calculateCalories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("ingredients")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var lines []models.IngredientLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ingredients is not a JSON array of lines: %v", err)), nil
	}
	exact := s.store.CalculateCalories(lines)
	return jsonResult(map[string]any{
		"total": cookbook.Round(exact),
		"exact": exact,
	}), nil
}

func (s *Server) getRecipeFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecipeFormatContract), nil
}

func (s *Server) readRecipeFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     RecipeFormatContract,
		},
	}, nil
}

// describe turns store errors into messages for the model.
func describe(err error) string {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		return fmt.Sprintf("rejected (%s): %s", ve.Kind, ve.Detail)
	case errors.Is(err, apperr.ErrNotFound):
		return "not found"
	default:
		return err.Error()
	}
}
