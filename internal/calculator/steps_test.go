package calculator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/competitor-price-watcher/internal/automation"
	"github.com/pricewatch/competitor-price-watcher/internal/models"
)

// statePage overrides navigation and load-state behavior of the shared fake.
type statePage struct {
	*fakePage
	gotoErr   error
	reloadErr error
	reloads   int
	stateErrs map[automation.LoadState]error
	waited    []automation.LoadState
}

func (p *statePage) Goto(url string, waitUntil automation.LoadState, timeout time.Duration) error {
	if p.gotoErr != nil {
		return p.gotoErr
	}
	return p.fakePage.Goto(url, waitUntil, timeout)
}

func (p *statePage) Reload(timeout time.Duration) error {
	p.reloads++
	return p.reloadErr
}

func (p *statePage) WaitForLoadState(state automation.LoadState, timeout time.Duration) error {
	p.waited = append(p.waited, state)
	return p.stateErrs[state]
}

// captureSleeps replaces the run's sleep with a recorder.
func captureSleeps(r *run) *[]time.Duration {
	var slept []time.Duration
	r.c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return &slept
}

func TestHandleWaitBuckets(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		expected time.Duration
	}{
		{name: "short", duration: "short", expected: 500 * time.Millisecond},
		{name: "default", duration: "default", expected: time.Second},
		{name: "long", duration: "long", expected: 1500 * time.Millisecond},
		{name: "longer", duration: "longer", expected: 3 * time.Second},
		{name: "longest", duration: "longest", expected: 5 * time.Second},
		{name: "empty falls back to default", duration: "", expected: time.Second},
		{name: "unknown falls back to default", duration: "forever", expected: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRun(newFakePage(), models.Dimensions{})
			slept := captureSleeps(r)

			err := r.handleWait(&models.Step{Type: models.StepWait, Duration: tt.duration})

			require.NoError(t, err)
			assert.Equal(t, []time.Duration{tt.expected}, *slept)
		})
	}
}

func TestHandleBlurActiveElement(t *testing.T) {
	page := newFakePage()
	r := newTestRun(page, models.Dimensions{})

	err := r.handleBlur(&models.Step{Type: models.StepBlur})

	require.NoError(t, err)
	require.Len(t, page.evaluated, 1)
	assert.Contains(t, page.evaluated[0], "document.activeElement")
}

func TestHandleBlurOnSelector(t *testing.T) {
	field := newFakeElement("input")
	page := newFakePage()
	page.elements["#lengte_field"] = field

	r := newTestRun(page, models.Dimensions{})
	err := r.handleBlur(&models.Step{Type: models.StepBlur, Selector: "#lengte_field"})

	require.NoError(t, err)
	require.Len(t, field.evaluated, 1)
	assert.Contains(t, field.evaluated[0], "el.blur()")
}

func TestHandleBlurMissingElement(t *testing.T) {
	r := newTestRun(newFakePage(), models.Dimensions{})

	err := r.handleBlur(&models.Step{Type: models.StepBlur, Selector: "#missing"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestHandleNavigateAbsoluteURL(t *testing.T) {
	page := &statePage{fakePage: newFakePage()}
	r := newTestRun(page, models.Dimensions{})

	err := r.handleNavigate(&models.Step{Type: models.StepNavigate, URL: "https://shop.example/cart"})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://shop.example/cart"}, page.gotoCalls)
	// wait_for_load defaults to true, so navigation blocks on the load state.
	assert.Equal(t, []automation.LoadState{automation.LoadStateLoad}, page.waited)
}

func TestHandleNavigateResolvesRelativeURL(t *testing.T) {
	page := &statePage{fakePage: newFakePage()}
	page.url = "https://shop.example/configurator/plexiglas"
	r := newTestRun(page, models.Dimensions{})

	err := r.handleNavigate(&models.Step{Type: models.StepNavigate, URL: "/checkout"})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://shop.example/checkout"}, page.gotoCalls)
}

func TestHandleNavigateWithoutWaitForLoad(t *testing.T) {
	page := &statePage{fakePage: newFakePage()}
	r := newTestRun(page, models.Dimensions{})

	f := false
	err := r.handleNavigate(&models.Step{Type: models.StepNavigate, URL: "https://shop.example", WaitForLoad: &f})

	require.NoError(t, err)
	assert.Empty(t, page.waited)
}

func TestHandleNavigateFailure(t *testing.T) {
	page := &statePage{fakePage: newFakePage(), gotoErr: errors.New("net::ERR_CONNECTION_REFUSED")}
	r := newTestRun(page, models.Dimensions{})

	err := r.handleNavigate(&models.Step{Type: models.StepNavigate, URL: "https://down.example"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "down.example")
}

func TestHandleReloadFailure(t *testing.T) {
	page := &statePage{fakePage: newFakePage(), reloadErr: errors.New("page crashed")}
	r := newTestRun(page, models.Dimensions{})

	err := r.handleReload(&models.Step{Type: models.StepReload})

	require.Error(t, err)
	assert.Equal(t, 1, page.reloads)
}

func TestHandleReloadWithoutWaitForLoad(t *testing.T) {
	page := &statePage{fakePage: newFakePage()}
	r := newTestRun(page, models.Dimensions{})

	f := false
	err := r.handleReload(&models.Step{Type: models.StepReload, WaitForLoad: &f})

	require.NoError(t, err)
	assert.Equal(t, 1, page.reloads)
	assert.Empty(t, page.waited)
}

func TestHandleReloadNetworkIdle(t *testing.T) {
	page := &statePage{fakePage: newFakePage()}
	r := newTestRun(page, models.Dimensions{})

	err := r.handleReload(&models.Step{Type: models.StepReload})

	require.NoError(t, err)
	assert.Equal(t, []automation.LoadState{automation.LoadStateNetworkIdle}, page.waited)
}

func TestHandleReloadFallsBackToDOMContentLoaded(t *testing.T) {
	page := &statePage{
		fakePage: newFakePage(),
		stateErrs: map[automation.LoadState]error{
			automation.LoadStateNetworkIdle: automation.ErrTimeout,
		},
	}
	r := newTestRun(page, models.Dimensions{})
	slept := captureSleeps(r)

	err := r.handleReload(&models.Step{Type: models.StepReload})

	require.NoError(t, err)
	assert.Equal(t, []automation.LoadState{
		automation.LoadStateNetworkIdle,
		automation.LoadStateDOMContentLoaded,
	}, page.waited)
	assert.Contains(t, *slept, 2*time.Second)
}

func TestHandleReloadProceedsAfterTimeout(t *testing.T) {
	page := &statePage{
		fakePage: newFakePage(),
		stateErrs: map[automation.LoadState]error{
			automation.LoadStateNetworkIdle:      automation.ErrTimeout,
			automation.LoadStateDOMContentLoaded: automation.ErrTimeout,
		},
	}
	r := newTestRun(page, models.Dimensions{})
	slept := captureSleeps(r)

	err := r.handleReload(&models.Step{Type: models.StepReload})

	require.NoError(t, err)
	assert.Contains(t, *slept, 3*time.Second)
}

func TestHandleModifyElementAddClass(t *testing.T) {
	el := newFakeElement("div")
	page := newFakePage()
	page.elements["#price-box"] = el

	r := newTestRun(page, models.Dimensions{})
	err := r.handleModifyElement(&models.Step{
		Type:     models.StepModifyElement,
		Selector: "#price-box",
		AddClass: "visible",
	})

	require.NoError(t, err)
	require.Len(t, el.evaluated, 1)
	assert.Contains(t, el.evaluated[0], "classList.add")
	assert.Equal(t, []interface{}{"visible"}, el.evalArgs[0])
}

func TestHandleModifyElementSetsValueFromDimension(t *testing.T) {
	el := newFakeElement("input")
	page := newFakePage()
	page.elements["#dikte_field"] = el

	r := newTestRun(page, models.Dimensions{Thickness: 2})
	err := r.handleModifyElement(&models.Step{
		Type:     models.StepModifyElement,
		Selector: "#dikte_field",
		Value:    "{thickness}",
		Unit:     "mm",
	})

	require.NoError(t, err)
	assert.Equal(t, "2", el.value)
}

func TestHandleModifyElementAddAttribute(t *testing.T) {
	el := newFakeElement("div")
	page := newFakePage()
	page.elements["#widget"] = el

	r := newTestRun(page, models.Dimensions{})
	err := r.handleModifyElement(&models.Step{
		Type:         models.StepModifyElement,
		Selector:     "#widget",
		AddAttribute: map[string]string{"data-ready": "true"},
	})

	require.NoError(t, err)
	require.Len(t, el.evalArgs, 1)

	// The attribute name and value travel as a single object argument, since
	// page scripts only receive one argument.
	require.Len(t, el.evalArgs[0], 1)
	attr, ok := el.evalArgs[0][0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "data-ready", attr["name"])
	assert.Equal(t, "true", attr["value"])
	assert.Contains(t, el.evaluated[0], "setAttribute(attr.name, attr.value)")
}

func TestHandleModifyElementRunsScript(t *testing.T) {
	el := newFakeElement("div")
	page := newFakePage()
	page.elements["#widget"] = el

	r := newTestRun(page, models.Dimensions{})
	err := r.handleModifyElement(&models.Step{
		Type:     models.StepModifyElement,
		Selector: "#widget",
		Script:   "(el) => { el.dataset.checked = 'yes'; }",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"(el) => { el.dataset.checked = 'yes'; }"}, el.evaluated)
}

func TestHandleModifyElementMissingElement(t *testing.T) {
	r := newTestRun(newFakePage(), models.Dimensions{})

	err := r.handleModifyElement(&models.Step{
		Type:     models.StepModifyElement,
		Selector: "#missing",
		AddClass: "visible",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestHandleModifyElementMissingDimension(t *testing.T) {
	el := newFakeElement("input")
	page := newFakePage()
	page.elements["#dikte_field"] = el

	r := newTestRun(page, models.Dimensions{})
	err := r.handleModifyElement(&models.Step{
		Type:     models.StepModifyElement,
		Selector: "#dikte_field",
		Value:    "{thickness}",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMissing)
}
