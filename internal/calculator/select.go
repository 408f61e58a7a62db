package calculator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pricewatch/competitor-price-watcher/internal/automation"
	"github.com/pricewatch/competitor-price-watcher/internal/models"
	"github.com/pricewatch/competitor-price-watcher/internal/pricing"
)

// dropdownItemSelector matches the option elements of non-standard dropdown
// widgets once the container has been opened.
const dropdownItemSelector = `li, .option, .dropdown-item, [role="option"]`

// optionNumberPattern pulls the leading number, with an optional unit suffix,
// out of an option's text or value attribute.
var optionNumberPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:mm|cm)?`)

// handleSelect chooses an option of a select element, radio/checkbox group or
// custom dropdown. The target is an explicit value, an "index:N" directive or
// a numeric value matched against the options within a strict tolerance.
func (r *run) handleSelect(step *models.Step) error {
	value := step.Value
	if value == "" && step.UseIndex {
		value = fmt.Sprintf("index:%d", step.OptionIndex)
		r.report(fmt.Sprintf("Added value 'index:%d' based on option_index", step.OptionIndex), "select", nil)
	}

	selector, err := r.substitutePlaceholders(step.Selector, step.Unit, "select")
	if err != nil {
		return err
	}

	if strings.HasPrefix(value, "index:") {
		return r.selectByIndex(selector, value)
	}

	if value == "" {
		err := r.selectFirstOption(selector)
		if err != nil {
			r.report(fmt.Sprintf("Error selecting first option: %v", err), "error", nil)
		}
		return err
	}

	// Resolve dimension placeholders in the target value before deciding
	// between numeric and string matching.
	unit := step.Unit
	if unit == "" {
		unit = "mm"
	}
	for _, field := range models.DimensionFields {
		placeholder := "{" + field + "}"
		if !strings.Contains(value, placeholder) {
			continue
		}
		dim, ok := r.dims.Get(field)
		if !ok || dim == 0 {
			r.report(fmt.Sprintf("Dimension %s not found", field), "error", nil)
			return fmt.Errorf("%w: %s", ErrDimensionMissing, field)
		}
		rendered := pricing.ConvertAndFormat(dim, step.Unit)
		value = strings.ReplaceAll(value, placeholder, rendered)
		r.report(
			fmt.Sprintf("Setting %s to %s %s", field, rendered, unit),
			"select",
			map[string]string{"selector": selector, "value": rendered, "unit": unit},
		)
	}

	r.report(fmt.Sprintf("Handling select/input with value %s", value), "select",
		map[string]string{"selector": selector, "value": value})

	target, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return r.selectByText(selector, value)
	}
	return r.selectByNumber(step, selector, value, target)
}

// selectByIndex picks the N-th option of a select element, or the N-th item
// of an opened custom dropdown.
func (r *run) selectByIndex(selector, value string) error {
	index, err := strconv.Atoi(strings.TrimPrefix(value, "index:"))
	if err != nil {
		return fmt.Errorf("invalid index directive %q: %w", value, err)
	}

	element, err := r.page.WaitForSelector(selector, automation.WaitOptions{})
	if err != nil {
		r.report(fmt.Sprintf("Error with index-based selection: %v", err), "error", nil)
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}

	tag, err := element.TagName()
	if err != nil {
		return fmt.Errorf("failed to inspect element %q: %w", selector, err)
	}
	if tag == "select" {
		if err := element.SelectOption(automation.SelectTarget{Index: &index}); err != nil {
			return fmt.Errorf("failed to select option %d of %q: %w", index, selector, err)
		}
		return r.sleep(500 * time.Millisecond)
	}

	// Custom dropdown: open it, then click the N-th visible item.
	if err := element.Click(); err != nil {
		return fmt.Errorf("failed to open dropdown %q: %w", selector, err)
	}
	_ = r.sleep(500 * time.Millisecond)
	options, err := r.page.QuerySelectorAll(dropdownItemSelector)
	if err != nil || index >= len(options) {
		return fmt.Errorf("%w: index %d out of range for dropdown %q", ErrSelectionMismatch, index, selector)
	}
	if err := options[index].Click(); err != nil {
		return fmt.Errorf("failed to click dropdown option %d: %w", index, err)
	}
	return r.sleep(500 * time.Millisecond)
}

// selectFirstOption picks the first option when the step carries no target
// value at all.
func (r *run) selectFirstOption(selector string) error {
	element, err := r.page.WaitForSelector(selector, automation.WaitOptions{})
	if err != nil {
		r.report(fmt.Sprintf("Element not found: %s", selector), "error", nil)
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}

	tag, err := element.TagName()
	if err != nil {
		return err
	}
	if tag == "select" {
		zero := 0
		if err := element.SelectOption(automation.SelectTarget{Index: &zero}); err != nil {
			return err
		}
		r.report("Selected first option for empty value", "select", nil)
		return r.sleep(500 * time.Millisecond)
	}

	if err := element.Click(); err != nil {
		return err
	}
	_ = r.sleep(500 * time.Millisecond)
	options, err := r.page.QuerySelectorAll(dropdownItemSelector)
	if err != nil || len(options) == 0 {
		return fmt.Errorf("%w: no dropdown options under %q", ErrSelectionMismatch, selector)
	}
	if err := options[0].Click(); err != nil {
		return err
	}
	r.report("Selected first dropdown option for empty value", "select", nil)
	return r.sleep(500 * time.Millisecond)
}

// selectByText matches an option by its visible text.
func (r *run) selectByText(selector, value string) error {
	r.report(fmt.Sprintf("Using string-based selection with value: %s", value), "select", nil)

	element, err := r.page.WaitForSelector(selector, automation.WaitOptions{})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}

	tag, err := element.TagName()
	if err != nil {
		return err
	}
	if tag == "select" {
		if err := element.SelectOption(automation.SelectTarget{Label: &value}); err != nil {
			return fmt.Errorf("%w: no option labelled %q under %q", ErrSelectionMismatch, value, selector)
		}
		return r.sleep(500 * time.Millisecond)
	}

	if err := element.Click(); err != nil {
		return err
	}
	_ = r.sleep(500 * time.Millisecond)
	options, err := r.page.QuerySelectorAll(dropdownItemSelector)
	if err != nil {
		return err
	}
	for _, option := range options {
		text, terr := option.TextContent()
		if terr != nil {
			continue
		}
		if strings.Contains(strings.ToLower(text), strings.ToLower(value)) {
			if err := option.Click(); err != nil {
				return err
			}
			return r.sleep(500 * time.Millisecond)
		}
	}
	return fmt.Errorf("%w: no option found with text containing %q", ErrSelectionMismatch, value)
}

// selectByNumber walks all elements matching the selector and picks the one
// whose option value equals the target within 0.01, additionally requiring
// equal integer-digit length so 2 never matches 20.
func (r *run) selectByNumber(step *models.Step, selector, value string, target float64) error {
	if step.ContainerTrigger != "" {
		if trigger, err := r.page.WaitForSelector(step.ContainerTrigger, automation.WaitOptions{}); err == nil {
			_ = trigger.Click()
			_ = r.sleep(500 * time.Millisecond)
		}
	}

	elements, err := r.page.QuerySelectorAll(selector)
	if err != nil || len(elements) == 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}

	for _, element := range elements {
		tag, terr := element.TagName()
		if terr != nil {
			continue
		}

		switch {
		case tag == "select":
			options, oerr := element.Options()
			if oerr != nil {
				continue
			}
			for _, option := range options {
				optionValue, ok := parseOptionNumber(option.Text)
				if ok && numbersMatch(optionValue, target) {
					return r.commitSelection(element, tag, option.Value)
				}
			}

		case tag == "input" && isToggleInput(element):
			attr, found, aerr := element.GetAttribute("value")
			if aerr != nil || !found {
				continue
			}
			optionValue, ok := parseOptionNumber(attr)
			if ok && numbersMatch(optionValue, target) {
				return r.commitSelection(element, tag, "")
			}

		default:
			text, terr := element.TextContent()
			if terr != nil {
				continue
			}
			optionValue, ok := parseOptionNumber(text)
			if ok && numbersMatch(optionValue, target) {
				return r.commitSelection(element, tag, "")
			}
		}
	}

	return fmt.Errorf("%w: no option matching value %s under %q", ErrSelectionMismatch, value, selector)
}

// commitSelection activates the matched element and dispatches a change event
// so framework listeners recompute the price.
func (r *run) commitSelection(element automation.Element, tag, optionValue string) error {
	_ = element.ScrollIntoView()
	_ = r.sleep(500 * time.Millisecond)

	if tag == "select" {
		_ = element.Click()
		_ = r.sleep(200 * time.Millisecond)
		if err := element.SelectOption(automation.SelectTarget{Value: &optionValue}); err != nil {
			return fmt.Errorf("failed to select option %q: %w", optionValue, err)
		}
		_ = element.Click()
	} else {
		// Click the element center so overlaying labels receive the event.
		if box, err := element.BoundingBox(); err == nil && box != nil {
			if err := r.page.MouseClick(box.X+box.Width/2, box.Y+box.Height/2); err != nil {
				return err
			}
		} else if err := element.Click(); err != nil {
			return err
		}
	}

	if _, err := element.Evaluate(`(el) => el.dispatchEvent(new Event("change", { bubbles: true }))`); err != nil {
		return fmt.Errorf("failed to dispatch change event: %w", err)
	}
	return r.sleep(time.Second)
}

func parseOptionNumber(text string) (float64, bool) {
	match := optionNumberPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// numbersMatch requires near-equality plus equal integer-digit length.
func numbersMatch(option, target float64) bool {
	diff := option - target
	if diff < 0 {
		diff = -diff
	}
	if diff >= 0.01 {
		return false
	}
	return len(strconv.Itoa(int(option))) == len(strconv.Itoa(int(target)))
}

func isToggleInput(element automation.Element) bool {
	inputType, found, err := element.GetAttribute("type")
	if err != nil || !found {
		return false
	}
	return inputType == "radio" || inputType == "checkbox"
}
