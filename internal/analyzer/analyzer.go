// Package analyzer inspects captured configurator HTML and locates the form
// fields that likely hold the product dimensions, by multilingual label terms
// and label/ancestor proximity. It informs domain configuration authoring;
// the step engine itself never guesses selectors.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricewatch/competitor-price-watcher/internal/models"
)

// Field is one candidate form field for a dimension.
type Field struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Tag   string `json:"tag"`
}

type fieldSpec struct {
	name  string
	terms []string
	kind  string
}

// Thickness is usually a dropdown of stocked thicknesses while length and
// width are free inputs, so the specs search for different element kinds.
var fieldSpecs = []fieldSpec{
	{
		name:  models.DimThickness,
		terms: append(append([]string{}, models.ThicknessTerms...), "mm", "millimeter"),
		kind:  "select",
	},
	{
		name:  models.DimLength,
		terms: []string{"lengte", "length", "länge", "longueur"},
		kind:  "input",
	},
	{
		name:  models.DimWidth,
		terms: append(append([]string{}, models.WidthTerms...), "hoogte", "height", "höhe", "hauteur"),
		kind:  "input",
	},
}

func kindSelector(kind string) string {
	if kind == "select" {
		return `select, [class*="select"], [class*="dropdown"]`
	}
	return `input[type="text"], input[type="number"], input:not([type])`
}

// Analyze parses the page HTML and returns the best field candidate per
// dimension. Dimensions with no recognizable field are absent from the map.
func Analyze(html string) (map[string][]Field, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	fields := make(map[string][]Field)
	for _, spec := range fieldSpecs {
		if field, ok := findNearestField(doc, spec); ok {
			fields[spec.name] = []Field{field}
		}
	}
	return fields, nil
}

type candidate struct {
	field    Field
	distance int
}

// findNearestField walks label-bearing elements whose text mentions one of
// the terms and resolves the closest matching form field: an explicit
// label-for link wins, then a field in the same parent, then one in the
// grandparent.
func findNearestField(doc *goquery.Document, spec fieldSpec) (Field, bool) {
	var best *candidate

	doc.Find("label, span, div, p, legend, th, td").Each(func(_ int, sel *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		if text == "" || !containsAny(text, spec.terms) {
			return
		}

		if goquery.NodeName(sel) == "label" {
			if fieldID, ok := sel.Attr("for"); ok && fieldID != "" {
				target := doc.Find("#" + fieldID)
				if target.Length() > 0 && goquery.NodeName(target) == spec.kind {
					consider(&best, candidate{
						field:    Field{ID: fieldID, Label: text, Tag: spec.kind},
						distance: 0,
					})
					return
				}
			}
		}

		for depth, scope := range []*goquery.Selection{sel.Parent(), sel.Parent().Parent()} {
			scope.Find(kindSelector(spec.kind)).Each(func(_ int, field *goquery.Selection) {
				id, _ := field.Attr("id")
				consider(&best, candidate{
					field:    Field{ID: id, Label: text, Tag: spec.kind},
					distance: depth + 1,
				})
			})
		}
	})

	if best == nil {
		return Field{}, false
	}
	return best.field, true
}

func consider(best **candidate, c candidate) {
	if *best == nil || c.distance < (*best).distance {
		*best = &c
	}
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
