// Package export renders recipes into printable and spreadsheet formats.
package export

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/recipebox/internal/cookbook"
	"github.com/starford/recipebox/internal/models"
)

// Page geometry in millimetres.
const (
	marginLeft   = 20.0
	indentLeft   = 25.0
	topY         = 20.0
	pageBreakY   = 280.0
	wrapWidth    = 170.0
	bodyLineStep = 6.0
)

// Labels are the fixed headings printed on a recipe sheet.
type Labels struct {
	Categories  string
	Tags        string
	Ingredients string
	Total       string
	Steps       string
}

// DefaultLabels are the Polish headings the cookbook has always printed.
var DefaultLabels = Labels{
	Categories:  "Kategorie",
	Tags:        "Tagi",
	Ingredients: "Składniki",
	Total:       "Razem",
	Steps:       "Przygotowanie",
}

// PDFOptions tunes PDF rendering.
type PDFOptions struct {
	// FontPath points at a UTF-8 TrueType font. When empty the core
	// Helvetica font is used and accented letters lose their diacritics.
	FontPath string
	Labels   Labels
}

const fontFamily = "recipe"

// PDF writes a single-recipe A4 sheet to w.
func PDF(w io.Writer, r models.Recipe, lookup cookbook.Lookup, opts PDFOptions) error {
	doc, err := render(r, lookup, opts)
	if err != nil {
		return err
	}
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("export: write pdf: %w", err)
	}
	return nil
}

func render(r models.Recipe, lookup cookbook.Lookup, opts PDFOptions) (*fpdf.Fpdf, error) {
	labels := opts.Labels
	if labels == (Labels{}) {
		labels = DefaultLabels
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(false, 0)

	family := "Helvetica"
	cp1252 := doc.UnicodeTranslatorFromDescriptor("")
	tr := func(s string) string { return cp1252(asciiFold(s)) }
	if opts.FontPath != "" {
		data, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return nil, fmt.Errorf("export: read font: %w", err)
		}
		doc.AddUTF8FontFromBytes(fontFamily, "", data)
		family = fontFamily
		tr = func(s string) string { return s }
	}

	p := &page{doc: doc, tr: tr, family: family, y: topY}
	doc.AddPage()

	p.size(20)
	p.text(marginLeft, r.Name)
	p.y += 15

	p.size(10)
	if len(r.Categories) > 0 {
		p.text(marginLeft, labels.Categories+": "+strings.Join(r.Categories, ", "))
		p.y += 7
	}
	if len(r.Tags) > 0 {
		p.text(marginLeft, labels.Tags+": #"+strings.Join(r.Tags, ", #"))
		p.y += 10
	}

	p.size(14)
	p.line(marginLeft, labels.Ingredients+":")
	p.y += 7

	p.size(10)
	for _, ing := range r.Ingredients {
		kcal := cookbook.LineCalories(lookup, ing)
		p.line(indentLeft, fmt.Sprintf("- %s: %s%s (%d kcal)", ing.Name, FormatAmount(ing.Amount), ing.Unit, kcal))
		p.y += bodyLineStep
	}

	p.y += 5
	p.size(12)
	p.line(marginLeft, fmt.Sprintf("%s: %d kcal", labels.Total, r.TotalCalories))
	p.y += 10

	p.size(14)
	p.line(marginLeft, labels.Steps+":")
	p.y += 7

	p.size(10)
	for i, step := range r.Steps {
		for _, l := range p.wrap(fmt.Sprintf("%d. %s", i+1, step), wrapWidth) {
			p.line(marginLeft, l)
			p.y += bodyLineStep
		}
		p.y += 3
	}

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("export: render pdf: %w", err)
	}
	return doc, nil
}

type page struct {
	doc    *fpdf.Fpdf
	tr     func(string) string
	family string
	y      float64
}

func (p *page) size(pt float64) {
	p.doc.SetFont(p.family, "", pt)
}

func (p *page) text(x float64, s string) {
	p.doc.Text(x, p.y, p.tr(s))
}

// line prints s, first starting a new page when the cursor has run past
// the bottom of the current one.
func (p *page) line(x float64, s string) {
	if p.y > pageBreakY {
		p.doc.AddPage()
		p.y = topY
	}
	p.text(x, s)
}

// wrap splits s into lines no wider than width at the current font size.
// Words longer than a line are kept whole.
func (p *page) wrap(s string, width float64) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		candidate := cur + " " + w
		if p.doc.GetStringWidth(p.tr(candidate)) > width {
			lines = append(lines, cur)
			cur = w
			continue
		}
		cur = candidate
	}
	return append(lines, cur)
}

// FormatAmount prints an amount without trailing zeros: 200, 1.5.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var unsafeFileChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]+`)

// FileName returns a download name for r's PDF.
func FileName(r models.Recipe) string {
	name := strings.TrimSpace(unsafeFileChars.ReplaceAllString(r.Name, "_"))
	if name == "" {
		name = "recipe-" + r.IDString()
	}
	return name + ".pdf"
}

// ł and Ł have no canonical decomposition, so NFD leaves them intact.
var strokeReplacer = strings.NewReplacer("ł", "l", "Ł", "L")

// asciiFold strips diacritics for the core fonts.
func asciiFold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strokeReplacer.Replace(s))
	if err != nil {
		return s
	}
	return out
}
