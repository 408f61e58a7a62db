package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLastWriteWins(t *testing.T) {
	r := NewRegistry()

	r.Report("req-1", "Navigating to https://example.com", "navigation", nil)
	r.Report("req-1", "Price calculation completed", "complete", map[string]string{"price_excl_vat": "20.00"})

	update, ok := r.Get("req-1")
	require.True(t, ok)
	assert.Equal(t, "Price calculation completed", update.Message)
	assert.Equal(t, "complete", update.StepType)
	assert.Equal(t, "20.00", update.StepDetails["price_excl_vat"])
	assert.False(t, update.Timestamp.IsZero())
}

func TestRegistryIsolatesRequests(t *testing.T) {
	r := NewRegistry()

	r.Report("req-a", "step one", "click", nil)
	r.Report("req-b", "step two", "input", nil)

	a, ok := r.Get("req-a")
	require.True(t, ok)
	assert.Equal(t, "step one", a.Message)

	b, ok := r.Get("req-b")
	require.True(t, ok)
	assert.Equal(t, "step two", b.Message)
}

func TestRegistryIgnoresEmptyRequestID(t *testing.T) {
	r := NewRegistry()
	r.Report("", "orphan update", "click", nil)

	_, ok := r.Get("")
	assert.False(t, ok)
}

func TestRegistryRedactsPasswordValues(t *testing.T) {
	r := NewRegistry()

	r.Report("req-1", "Setting input value", "input", map[string]string{
		"selector": "#billing_password",
		"value":    "hunter2",
	})

	update, ok := r.Get("req-1")
	require.True(t, ok)
	assert.Equal(t, "[HIDDEN]", update.StepDetails["value"])
	assert.Equal(t, "#billing_password", update.StepDetails["selector"])

	// Non-password selectors keep their value.
	r.Report("req-2", "Setting input value", "input", map[string]string{
		"selector": "#length_field",
		"value":    "1000",
	})
	update, _ = r.Get("req-2")
	assert.Equal(t, "1000", update.StepDetails["value"])
}

func TestRegistryRedactDoesNotMutateCallerMap(t *testing.T) {
	r := NewRegistry()
	details := map[string]string{"selector": "input.password", "value": "secret"}

	r.Report("req-1", "Setting input value", "input", details)

	assert.Equal(t, "secret", details["value"])
}

func TestScheduleCleanupRemovesAfterRetention(t *testing.T) {
	r := NewRegistry()

	var delay time.Duration
	var cleanup func()
	r.afterFunc = func(d time.Duration, f func()) *time.Timer {
		delay = d
		cleanup = f
		return nil
	}

	r.Report("req-1", "Price calculation completed", "complete", nil)
	r.ScheduleCleanup("req-1")

	require.NotNil(t, cleanup)
	assert.Equal(t, DefaultRetention, delay)

	// Entry survives until the retention window elapses.
	_, ok := r.Get("req-1")
	assert.True(t, ok)

	cleanup()
	_, ok = r.Get("req-1")
	assert.False(t, ok)
}

func TestWithRetentionOverridesCleanupDelay(t *testing.T) {
	r := NewRegistry().WithRetention(5 * time.Second)

	var delay time.Duration
	r.afterFunc = func(d time.Duration, f func()) *time.Timer {
		delay = d
		return nil
	}

	r.Report("req-1", "Price calculation completed", "complete", nil)
	r.ScheduleCleanup("req-1")
	assert.Equal(t, 5*time.Second, delay)
}

func TestWithRetentionIgnoresNonpositive(t *testing.T) {
	r := NewRegistry().WithRetention(0)

	var delay time.Duration
	r.afterFunc = func(d time.Duration, f func()) *time.Timer {
		delay = d
		return nil
	}

	r.Report("req-1", "Price calculation completed", "complete", nil)
	r.ScheduleCleanup("req-1")
	assert.Equal(t, DefaultRetention, delay)
}

func TestCleanupRemovesImmediately(t *testing.T) {
	r := NewRegistry()
	r.Report("req-1", "working", "click", nil)

	r.Cleanup("req-1")

	_, ok := r.Get("req-1")
	assert.False(t, ok)
}

type captureMirror struct {
	requestIDs []string
	updates    []Update
}

func (m *captureMirror) Publish(requestID string, update Update) {
	m.requestIDs = append(m.requestIDs, requestID)
	m.updates = append(m.updates, update)
}

func TestRegistryForwardsToMirror(t *testing.T) {
	mirror := &captureMirror{}
	r := NewRegistry().WithMirror(mirror)

	r.Report("req-1", "Navigating", "navigation", map[string]string{"url": "https://example.com"})

	require.Len(t, mirror.updates, 1)
	assert.Equal(t, "req-1", mirror.requestIDs[0])
	assert.Equal(t, "Navigating", mirror.updates[0].Message)
	assert.Equal(t, "https://example.com", mirror.updates[0].StepDetails["url"])
}
