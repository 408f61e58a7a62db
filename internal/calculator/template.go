package calculator

import (
	"fmt"
	"strings"

	"github.com/pricewatch/competitor-price-watcher/internal/models"
	"github.com/pricewatch/competitor-price-watcher/internal/pricing"
)

// substitutePlaceholders replaces {thickness}, {width}, {length} and
// {quantity} placeholders in a selector or value template with the
// unit-converted dimension text. A placeholder whose dimension was not
// supplied is a hard failure: configuration and dimensions are assumed
// consistent, so a gap means a misconfigured domain.
func (r *run) substitutePlaceholders(template, unit, operation string) (string, error) {
	if !strings.Contains(template, "{") || !strings.Contains(template, "}") {
		return template, nil
	}

	original := template
	for _, field := range models.DimensionFields {
		placeholder := "{" + field + "}"
		if !strings.Contains(template, placeholder) {
			continue
		}

		value, ok := r.dims.Get(field)
		if !ok || value == 0 {
			r.report(fmt.Sprintf("Dimension %s not found for dynamic selector", field), "error", nil)
			return "", fmt.Errorf("%w: %s", ErrDimensionMissing, field)
		}

		rendered := pricing.ConvertAndFormat(value, unit)
		template = strings.ReplaceAll(template, placeholder, rendered)
		r.report(
			fmt.Sprintf("Dynamic selector: replaced %s with %s", placeholder, rendered),
			operation,
			map[string]string{"original_selector": original, "final_selector": template},
		)
	}

	return template, nil
}
