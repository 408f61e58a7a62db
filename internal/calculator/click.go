package calculator

import (
	"fmt"
	"strings"

	"github.com/pricewatch/competitor-price-watcher/internal/automation"
	"github.com/pricewatch/competitor-price-watcher/internal/models"
)

const clickMaxAttempts = 2

// forceClickScript lifts a stubborn element above any overlay and clicks it
// from script. Used for cart buttons, which shops love to cover with banners.
const forceClickScript = `(selector) => {
	const cart = document.querySelector(selector);
	if (cart) {
		cart.style.pointerEvents = 'auto';
		cart.style.opacity = '1';
		cart.style.visibility = 'visible';
		cart.style.display = 'block';
		cart.style.zIndex = '10000';
		cart.scrollIntoView({behavior: 'smooth', block: 'center'});
		cart.click();
	}
}`

const cartClickScript = `(selector) => {
	const element = document.querySelector(selector);
	if (element) {
		element.style.zIndex = '9999';
		element.style.position = 'relative';
		element.scrollIntoView({behavior: 'smooth', block: 'center'});
		element.click();
	}
}`

// handleClick resolves the selector and clicks the element. Cart selectors
// get a script-based click path because shop themes frequently render them
// behind overlays that swallow regular clicks.
func (r *run) handleClick(step *models.Step) error {
	selector, err := r.substitutePlaceholders(step.Selector, step.Unit, "click")
	if err != nil {
		return err
	}

	r.reportClickIntent(selector)

	var lastErr error
	for attempt := 1; attempt <= clickMaxAttempts; attempt++ {
		element, werr := r.page.WaitForSelector(selector, automation.WaitOptions{})
		if werr != nil {
			lastErr = fmt.Errorf("%w: %s", ErrElementNotFound, selector)
			r.report(fmt.Sprintf("Click failed (attempt %d/%d): %v", attempt, clickMaxAttempts, lastErr), "warn", nil)
			continue
		}

		r.highlight(element)

		if visible, verr := element.IsVisible(); verr == nil && !visible {
			r.report(fmt.Sprintf("Element %s is not visible, trying to scroll into view", selector), "warn", nil)
			_ = element.ScrollIntoView()
		}

		if cerr := r.clickElement(selector, element); cerr != nil {
			lastErr = cerr
			r.report(fmt.Sprintf("Click failed (attempt %d/%d): %v", attempt, clickMaxAttempts, cerr), "warn", nil)
			continue
		}

		r.report(fmt.Sprintf("Successfully clicked %s", selector), "click", map[string]string{"status": "success"})
		return nil
	}

	if isCartSelector(selector) {
		r.report(fmt.Sprintf("Trying alternative method to click %s", selector), "click", nil)
		if _, ferr := r.page.Evaluate(forceClickScript, selector); ferr == nil {
			r.report(fmt.Sprintf("Attempted alternative click on %s", selector), "click", nil)
			return nil
		} else {
			r.report(fmt.Sprintf("All click attempts failed: %v", ferr), "error", nil)
		}
	}

	r.report(fmt.Sprintf("Click failed after %d attempts", clickMaxAttempts), "error", nil)
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return lastErr
}

func (r *run) clickElement(selector string, element automation.Element) error {
	if isCartSelector(selector) {
		if _, err := r.page.Evaluate(cartClickScript, selector); err == nil {
			r.report(fmt.Sprintf("Clicked %s using JavaScript", selector), "click", map[string]string{"status": "success"})
			return nil
		} else {
			r.report(fmt.Sprintf("JavaScript click failed: %v", err), "warn", nil)
		}
	}
	return element.Click()
}

func (r *run) reportClickIntent(selector string) {
	lower := strings.ToLower(selector)
	switch {
	case strings.Contains(lower, "figure"):
		r.report("Selecting figure shape", "click", map[string]string{"selector": selector})
	case strings.Contains(lower, "calculator"):
		r.report("Opening calculator section", "click", map[string]string{"selector": selector})
	case isCartSelector(selector):
		r.report("Adding to shopping cart", "click", map[string]string{"selector": selector})
	case strings.Contains(selector, "data-key"):
		r.report("Selecting element with data-key", "click", map[string]string{"selector": selector})
	default:
		r.report(fmt.Sprintf("Clicking %s", selector), "click", map[string]string{"selector": selector})
	}
}

func isCartSelector(selector string) bool {
	lower := strings.ToLower(selector)
	return strings.Contains(lower, ".cart") || strings.Contains(lower, "winkelwagen")
}
