package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/recipebox/internal"
	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/cookbook"
	"github.com/starford/recipebox/internal/export"
	"github.com/starford/recipebox/internal/parser"
	pkgconfig "github.com/starford/recipebox/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

// withStore opens the configured store for a one-shot command. Logs go to
// stderr so stdout stays usable for output.
func withStore(ctx context.Context, cmd *cli.Command, fn func(*internal.Config, *cookbook.Store) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, closeStore, err := internal.OpenStore(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(cfg, store)
}

// writeOutput writes to path, or to stdout when path is "-".
func writeOutput(path string, render func(io.Writer) error) error {
	if path == "-" {
		return render(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func exportPDF(ctx context.Context, cmd *cli.Command) error {
	return withStore(ctx, cmd, func(cfg *internal.Config, store *cookbook.Store) error {
		id := int64(cmd.Int("id"))
		rec, ok := store.Find(id)
		if !ok {
			return fmt.Errorf("recipe %d not found", id)
		}
		out := cmd.String("out")
		if out == "" {
			out = export.FileName(rec)
		}
		return writeOutput(out, func(w io.Writer) error {
			return export.PDF(w, rec, store.Ingredient, cfg.Export.PDFOptions())
		})
	})
}

func exportXLSX(ctx context.Context, cmd *cli.Command) error {
	return withStore(ctx, cmd, func(cfg *internal.Config, store *cookbook.Store) error {
		return writeOutput(cmd.String("out"), func(w io.Writer) error {
			return export.Workbook(w, store.Recipes(), store.Ingredients())
		})
	})
}

// parseKcalFlag reads --kcal. Anything that is not a positive number is
// reported the same way the store reports it.
func parseKcalFlag(raw string) (float64, error) {
	kcal, err := parser.ParseKcal(raw)
	if err != nil {
		return 0, apperr.Invalid(apperr.KindMissingFields, fmt.Sprintf("kcal %q: %v", raw, err))
	}
	return kcal, nil
}

func addIngredient(ctx context.Context, cmd *cli.Command) error {
	kcal, err := parseKcalFlag(cmd.String("kcal"))
	if err != nil {
		return err
	}
	return withStore(ctx, cmd, func(cfg *internal.Config, store *cookbook.Store) error {
		ing, err := store.AddCustomIngredient(ctx, cmd.String("name"), kcal, cmd.String("unit"))
		if err != nil {
			return err
		}
		fmt.Printf("saved %s: %s kcal / %s\n", cmd.String("name"), export.FormatAmount(ing.Kcal), ing.Unit)
		return nil
	})
}

func listIngredients(ctx context.Context, cmd *cli.Command) error {
	return withStore(ctx, cmd, func(cfg *internal.Config, store *cookbook.Store) error {
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tKCAL\tUNIT\tSOURCE")
		for _, ing := range store.Ingredients() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ing.Name, export.FormatAmount(ing.Kcal), ing.Unit, ing.Source)
		}
		return tw.Flush()
	})
}

func main() {
	cmd := &cli.Command{
		Name:   "recipebox",
		Usage:  "Recipe book with calorie calculation, PDF export and an MCP tool server",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional; defaults apply when missing)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the recipe tools over MCP on stdin/stdout",
				Action: runMCP,
			},
			{
				Name:  "export",
				Usage: "Export recipes to files",
				Commands: []*cli.Command{
					{
						Name:   "pdf",
						Usage:  "Render one recipe as PDF",
						Action: exportPDF,
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "id", Usage: "Recipe id", Required: true},
							&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file, - for stdout (default: <recipe name>.pdf)"},
						},
					},
					{
						Name:   "xlsx",
						Usage:  "Write every recipe and the ingredient dictionary to a workbook",
						Action: exportXLSX,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file, - for stdout", Value: "recipes.xlsx"},
						},
					},
				},
			},
			{
				Name:  "ingredients",
				Usage: "Inspect or extend the ingredient dictionary",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "Print the merged dictionary",
						Action: listIngredients,
					},
					{
						Name:   "add",
						Usage:  "Save a custom ingredient",
						Action: addIngredient,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "name", Usage: "Ingredient name", Required: true},
							&cli.StringFlag{Name: "kcal", Usage: "Calories per 100 units, e.g. 76 or 7,5", Required: true},
							&cli.StringFlag{Name: "unit", Usage: "Reference unit label", Value: cookbook.DefaultUnit},
						},
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
