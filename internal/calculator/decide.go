package calculator

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pricewatch/competitor-price-watcher/internal/automation"
	"github.com/pricewatch/competitor-price-watcher/internal/models"
)

const defaultDecideTimeout = 10 * time.Second

// handleDecideConfig probes for a marker element to choose between the
// current category and a fallback. It never fails: a missing marker is a
// decision, not an error.
func (r *run) handleDecideConfig(step *models.Step) (configDecision, error) {
	timeout := time.Duration(step.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultDecideTimeout
	}
	fallback := step.FallbackConfig
	if fallback == "" {
		fallback = "square_meter_price_2"
	}

	r.report(
		fmt.Sprintf("Checking if element '%s' is visible to decide configuration", step.Selector),
		"decide_config",
		map[string]string{
			"selector":        step.Selector,
			"timeout":         strconv.Itoa(int(timeout.Seconds())),
			"fallback_config": fallback,
		},
	)

	_, err := r.page.WaitForSelector(step.Selector, automation.WaitOptions{
		State:   automation.StateVisible,
		Timeout: timeout,
	})
	if err == nil {
		r.report(
			fmt.Sprintf("Element '%s' found - continuing with current configuration", step.Selector),
			"decide_config",
			map[string]string{"selector": step.Selector, "decision": "continue_current_config", "status": "success"},
		)
		return configDecision{Switch: false}, nil
	}

	r.report(
		fmt.Sprintf("Element '%s' not found within %ds - switching to '%s' configuration", step.Selector, int(timeout.Seconds()), fallback),
		"decide_config",
		map[string]string{
			"selector":        step.Selector,
			"timeout":         strconv.Itoa(int(timeout.Seconds())),
			"fallback_config": fallback,
			"decision":        "switch_config",
			"reason":          err.Error(),
			"status":          "config_switched",
		},
	)
	return configDecision{Switch: true, Target: fallback}, nil
}
