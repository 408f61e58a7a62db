package calculator

import (
	"fmt"
	"strconv"

	"github.com/pricewatch/competitor-price-watcher/internal/automation"
	"github.com/pricewatch/competitor-price-watcher/internal/models"
	"github.com/pricewatch/competitor-price-watcher/internal/pricing"
)

// handleReadPrice waits for the price element to become visible, normalizes
// its text to a number and applies the step's calculation expression when one
// is configured. The returned value is the raw scraped price before VAT.
func (r *run) handleReadPrice(step *models.Step) (float64, error) {
	element, err := r.page.WaitForSelector(step.Selector, automation.WaitOptions{State: automation.StateVisible})
	if err != nil {
		r.report(fmt.Sprintf("Could not find price element: %v", err), "warn",
			map[string]string{"selector": step.Selector})
		return 0, fmt.Errorf("%w: price element %q", ErrElementNotFound, step.Selector)
	}

	text, err := element.TextContent()
	if err != nil {
		return 0, fmt.Errorf("failed to read price element %q: %w", step.Selector, err)
	}
	if text == "" {
		r.report("Price element is empty", "warn", map[string]string{"selector": step.Selector})
		return 0, fmt.Errorf("price element %q is empty", step.Selector)
	}

	price := pricing.ExtractPrice(text)

	if step.Calculation != "" {
		computed, cerr := evalCalculation(step.Calculation, price, r.dims)
		if cerr != nil {
			r.report(fmt.Sprintf("Calculation failed: %v", cerr), "warn",
				map[string]string{"calculation": step.Calculation})
			return 0, cerr
		}
		price = computed
	}

	r.report("Successfully read price", "read_price", map[string]string{
		"selector": step.Selector,
		"price":    strconv.FormatFloat(price, 'f', -1, 64),
	})
	return price, nil
}
