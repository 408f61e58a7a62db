package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Playwright only delivers one argument to a page script, so the adapters
// refuse extra arguments instead of silently dropping them.
func TestEvaluateRejectsMultipleArguments(t *testing.T) {
	_, err := (&pwElement{}).Evaluate("(el, attr) => { el.setAttribute(attr.name, attr.value); }", "data-test", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most one argument")

	_, err = (&pwPage{}).Evaluate("(value) => value", "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most one argument")
}
