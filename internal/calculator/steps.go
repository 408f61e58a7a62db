package calculator

import (
	"fmt"
	"strings"
	"time"

	"github.com/pricewatch/competitor-price-watcher/internal/automation"
	"github.com/pricewatch/competitor-price-watcher/internal/models"
)

// waitDurations maps the named wait buckets to real delays.
var waitDurations = map[string]time.Duration{
	"short":   500 * time.Millisecond,
	"default": time.Second,
	"long":    1500 * time.Millisecond,
	"longer":  3 * time.Second,
	"longest": 5 * time.Second,
}

func (r *run) handleWait(step *models.Step) error {
	name := step.Duration
	if name == "" {
		name = "default"
	}
	r.report(fmt.Sprintf("Waiting for %s duration...", name), "wait", nil)

	d, ok := waitDurations[name]
	if !ok {
		d = waitDurations["default"]
	}
	return r.sleep(d)
}

// handleBlur removes focus from the selected element, or from whatever
// element currently holds focus when no selector is configured.
func (r *run) handleBlur(step *models.Step) error {
	if step.Selector == "" {
		r.report("Triggering blur on active element", "blur", nil)
		if _, err := r.page.Evaluate(`() => { document.activeElement?.blur(); }`); err != nil {
			r.report(fmt.Sprintf("Blur failed: %v", err), "error", nil)
			return fmt.Errorf("failed to blur active element: %w", err)
		}
		r.report("Blur completed on active element", "blur", map[string]string{"status": "success"})
		return nil
	}

	r.report(fmt.Sprintf("Triggering blur on %s", step.Selector), "blur", map[string]string{"selector": step.Selector})
	element, err := r.page.WaitForSelector(step.Selector, automation.WaitOptions{})
	if err != nil {
		r.report(fmt.Sprintf("Blur failed: %v", err), "error", nil)
		return fmt.Errorf("%w: %s", ErrElementNotFound, step.Selector)
	}
	if _, err := element.Evaluate(`(el) => { el.blur(); }`); err != nil {
		r.report(fmt.Sprintf("Blur failed: %v", err), "error", nil)
		return fmt.Errorf("failed to blur %q: %w", step.Selector, err)
	}
	r.report(fmt.Sprintf("Blur completed on %s", step.Selector), "blur",
		map[string]string{"selector": step.Selector, "status": "success"})
	return nil
}

// handleNavigate moves the page to a new URL. A URL starting with / is
// resolved against the current page's origin.
func (r *run) handleNavigate(step *models.Step) error {
	target := step.URL
	if strings.HasPrefix(target, "/") {
		current := r.page.URL()
		if parts := strings.SplitN(current, "/", 4); len(parts) >= 3 {
			target = strings.Join(parts[:3], "/") + target
		}
	}

	timeout := time.Duration(step.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.report(fmt.Sprintf("Navigating to %s", target), "navigate", map[string]string{"url": target})

	waitUntil := automation.LoadStateDOMContentLoaded
	if step.ShouldWaitForLoad() {
		waitUntil = automation.LoadStateNetworkIdle
	}
	if err := r.page.Goto(target, waitUntil, timeout); err != nil {
		r.report(fmt.Sprintf("Navigation failed: %v", err), "error", nil)
		return fmt.Errorf("failed to navigate to %q: %w", target, err)
	}
	if step.ShouldWaitForLoad() {
		if err := r.page.WaitForLoadState(automation.LoadStateLoad, timeout); err != nil {
			r.report(fmt.Sprintf("Navigation failed: %v", err), "error", nil)
			return fmt.Errorf("page load after navigating to %q: %w", target, err)
		}
	}

	r.report(fmt.Sprintf("Successfully navigated to %s", target), "navigate", map[string]string{"status": "success"})
	return nil
}

// handleReload reloads the page and then reuses the three-tier readiness
// strategy, so dynamic configurators get their chance to settle.
func (r *run) handleReload(step *models.Step) error {
	timeout := time.Duration(step.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.report("Reloading page", "reload", nil)

	if err := r.page.Reload(timeout); err != nil {
		r.report(fmt.Sprintf("Page reload failed: %v", err), "error", nil)
		return fmt.Errorf("failed to reload page: %w", err)
	}

	if !step.ShouldWaitForLoad() {
		r.report("Page reloaded (no wait)", "reload", map[string]string{"status": "success"})
		return nil
	}

	if err := r.page.WaitForLoadState(automation.LoadStateNetworkIdle, networkIdleTimeout); err == nil {
		r.report("Page reloaded successfully (networkidle)", "reload", map[string]string{"status": "success"})
		return nil
	}
	if err := r.page.WaitForLoadState(automation.LoadStateDOMContentLoaded, domContentTimeout); err == nil {
		_ = r.sleep(2 * time.Second)
		r.report("Page reloaded successfully (domcontentloaded)", "reload", map[string]string{"status": "success"})
		return nil
	}
	_ = r.sleep(3 * time.Second)
	r.report("Page reload timeout, proceeding anyway", "reload", map[string]string{"status": "timeout"})
	return nil
}

// handleModifyElement mutates an element from script: add a class, set its
// value or text, set attributes, or run a configured snippet against it.
func (r *run) handleModifyElement(step *models.Step) error {
	selector := step.Selector

	value := step.Value
	if value != "" {
		substituted, err := r.substitutePlaceholders(value, step.Unit, "modify")
		if err != nil {
			return err
		}
		value = substituted
	}

	r.report(fmt.Sprintf("Modifying element %s", selector), "modify",
		map[string]string{"selector": selector, "add_class": step.AddClass})

	element, err := r.page.WaitForSelector(selector, automation.WaitOptions{})
	if err != nil || element == nil {
		r.report(fmt.Sprintf("Element not found: %s", selector), "error", nil)
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}

	if step.AddClass != "" {
		if _, err := element.Evaluate(`(el, cls) => { el.classList.add(cls); }`, step.AddClass); err != nil {
			return r.modifyFailed(err)
		}
		r.report(fmt.Sprintf("Added class '%s' to %s", step.AddClass, selector), "modify", map[string]string{"status": "success"})
	}

	if value != "" {
		script := `(el, value) => {
			if (el.tagName === 'INPUT' || el.tagName === 'TEXTAREA' || el.tagName === 'SELECT') {
				el.value = value;
			} else {
				el.textContent = value;
			}
		}`
		if _, err := element.Evaluate(script, value); err != nil {
			return r.modifyFailed(err)
		}
		r.report(fmt.Sprintf("Set value of %s to '%s'", selector, value), "modify", map[string]string{"status": "success"})
	}

	if len(step.AddAttribute) > 0 {
		for name, attrValue := range step.AddAttribute {
			// Page scripts receive a single argument, so name and value
			// travel together in one object.
			attr := map[string]interface{}{"name": name, "value": attrValue}
			if _, err := element.Evaluate(`(el, attr) => { el.setAttribute(attr.name, attr.value); }`, attr); err != nil {
				return r.modifyFailed(err)
			}
		}
		r.report(fmt.Sprintf("Added attributes to %s", selector), "modify", map[string]string{"status": "success"})
	}

	if step.Script != "" {
		if _, err := element.Evaluate(step.Script); err != nil {
			return r.modifyFailed(err)
		}
		r.report(fmt.Sprintf("Executed custom script on %s", selector), "modify", map[string]string{"status": "success"})
	}

	return nil
}

func (r *run) modifyFailed(err error) error {
	r.report(fmt.Sprintf("Error modifying element: %v", err), "error", nil)
	return fmt.Errorf("failed to modify element: %w", err)
}
