package calculator

import (
	"fmt"
	"strings"
	"time"

	"github.com/pricewatch/competitor-price-watcher/internal/automation"
	"github.com/pricewatch/competitor-price-watcher/internal/models"
	"github.com/pricewatch/competitor-price-watcher/internal/pricing"
)

const inputMaxAttempts = 3

// inputStrategy is one way of getting a value into a form field. Strategies
// are tried in order until the field verifies.
type inputStrategy struct {
	name  string
	apply func(r *run, element automation.Element, value string) error
}

var inputStrategies = []inputStrategy{
	{name: "typeCharacters", apply: (*run).typeCharacters},
	{name: "assignValueDirectly", apply: (*run).assignValueDirectly},
}

// handleInput fills a form field. The value is resolved in priority order:
// dimension-derived when the selector names a known dimension field,
// generated when the step asks for a randomized value, otherwise the
// configured literal after placeholder substitution.
func (r *run) handleInput(step *models.Step) error {
	selector := step.Selector
	value, sensitive, err := r.resolveInputValue(step)
	if err != nil {
		return err
	}

	display := value
	if sensitive {
		display = "[HIDDEN]"
	}
	r.report(fmt.Sprintf("Setting input value to %s", display), "input",
		map[string]string{"selector": selector, "value": display})

	var lastErr error
	for attempt := 1; attempt <= inputMaxAttempts; attempt++ {
		element, werr := r.page.WaitForSelector(selector, automation.WaitOptions{})
		if werr != nil {
			lastErr = fmt.Errorf("%w: %s", ErrElementNotFound, selector)
			r.report(fmt.Sprintf("Error setting input (attempt %d/%d): %v", attempt, inputMaxAttempts, lastErr), "warn", nil)
			continue
		}

		r.highlight(element)
		_ = element.ScrollIntoView()
		_ = element.Focus()

		if step.ShouldClearFirst() {
			_, _ = element.Evaluate(`(el) => { el.value = ""; }`)
			_ = element.TripleClick()
			_ = element.Press("Backspace")
		}

		for _, strategy := range inputStrategies {
			if serr := strategy.apply(r, element, value); serr != nil {
				r.report(fmt.Sprintf("Error in %s: %v", strategy.name, serr), "warn", nil)
				lastErr = serr
				continue
			}
			ok, actual := r.verifyInputValue(element, value)
			if ok {
				r.report(fmt.Sprintf("Successfully set input to %s", display), "input",
					map[string]string{"status": "success", "strategy": strategy.name})
				return nil
			}
			actualDisplay := actual
			if sensitive {
				actualDisplay = "[HIDDEN]"
			}
			r.report(fmt.Sprintf("Value mismatch: expected '%s' not matching actual '%s'", display, actualDisplay), "warn", nil)
			lastErr = fmt.Errorf("field %q did not accept value via %s", selector, strategy.name)
		}
	}

	r.report(fmt.Sprintf("Failed to set input after %d attempts", inputMaxAttempts), "error", nil)
	if lastErr == nil {
		lastErr = fmt.Errorf("failed to set input %q", selector)
	}
	return lastErr
}

// typeCharacters types the value with a per-character delay then dispatches
// the events a real keyboard interaction would produce.
func (r *run) typeCharacters(element automation.Element, value string) error {
	if err := element.Type(value, 50*time.Millisecond); err != nil {
		return err
	}
	_, err := element.Evaluate(`(el) => {
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		el.dispatchEvent(new Event('blur', { bubbles: true }));
	}`)
	return err
}

// assignValueDirectly sets the field value from script, for widgets that
// intercept or mangle keyboard input.
func (r *run) assignValueDirectly(element automation.Element, value string) error {
	_, err := element.Evaluate(`(el, value) => {
		el.value = value;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
	}`, value)
	return err
}

// verifyInputValue reads the field back and accepts an exact match or a
// field that contains the typed value (sites may append a unit suffix).
func (r *run) verifyInputValue(element automation.Element, value string) (bool, string) {
	actual, err := element.InputValue()
	if err != nil {
		return false, ""
	}
	return actual == value || strings.Contains(actual, value), actual
}

// resolveInputValue determines what to type, in priority order.
func (r *run) resolveInputValue(step *models.Step) (value string, sensitive bool, err error) {
	selector := step.Selector

	if field := detectDimensionField(selector); field != "" {
		if dim, ok := r.dims.Get(field); ok && dim != 0 {
			unit := step.Unit
			if unit == "" {
				unit = "mm"
			}
			rendered := pricing.ConvertAndFormat(dim, step.Unit)
			r.report(fmt.Sprintf("Using %s from dimensions: %s %s", field, rendered, unit), "input",
				map[string]string{"selector": selector})
			return rendered, false, nil
		}
	}

	if step.IsRandomized() {
		generated, isSensitive := randomValue(r.rng, step)
		if isSensitive {
			r.report("Generated random password", "input",
				map[string]string{"selector": selector, "value": "[HIDDEN]"})
		} else {
			r.report(fmt.Sprintf("Using random %s: %s", strings.ToLower(step.RandomType), generated), "input",
				map[string]string{"selector": selector, "value": generated})
		}
		return generated, isSensitive, nil
	}

	if step.Value == "" {
		r.report("No value specified for input step and not a dimension/random field, using empty string", "warn", nil)
		return "", false, nil
	}

	substituted, err := r.substitutePlaceholders(step.Value, step.Unit, "input")
	if err != nil {
		return "", false, err
	}
	return substituted, false, nil
}

// detectDimensionField recognizes which dimension a form field represents
// from its selector, using multilingual name fragments plus the common
// suffix and class conventions.
func detectDimensionField(selector string) string {
	lower := strings.ToLower(selector)
	for _, field := range []string{models.DimLength, models.DimWidth, models.DimThickness, models.DimQuantity} {
		for _, term := range models.TermsFor(field) {
			if strings.Contains(lower, term) {
				return field
			}
		}
		if strings.HasSuffix(lower, "_"+field) {
			return field
		}
	}
	if lower == ".qty" {
		return models.DimQuantity
	}
	return ""
}

// highlight outlines an element briefly so a headed session shows what the
// run is touching. Best effort.
func (r *run) highlight(element automation.Element) {
	_, err := element.Evaluate(`(el) => {
		const originalOutline = el.style.outline;
		const originalOutlineOffset = el.style.outlineOffset;
		el.style.outline = '3px solid #2563eb';
		el.style.outlineOffset = '2px';
		setTimeout(() => {
			el.style.outline = originalOutline;
			el.style.outlineOffset = originalOutlineOffset;
		}, 2000);
	}`)
	if err != nil {
		r.report(fmt.Sprintf("Could not highlight element: %v", err), "warn", nil)
	}
}
