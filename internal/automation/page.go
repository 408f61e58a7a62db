// Package automation defines the page capability consumed by the step
// handlers. The interfaces mirror the browser-engine primitives (navigate,
// query, click, type, evaluate, wait) without binding the interpreter to a
// concrete engine, so handlers can run against a real browser session or a
// fake in tests.
package automation

import (
	"errors"
	"time"
)

var (
	// ErrElementNotFound is returned when a selector matches nothing within
	// its wait window.
	ErrElementNotFound = errors.New("element not found")
	// ErrTimeout is returned when a wait-for-condition exceeds its timeout.
	ErrTimeout = errors.New("operation timed out")
)

// ElementState is the visibility condition for WaitForSelector.
type ElementState string

const (
	StateAttached ElementState = "attached"
	StateVisible  ElementState = "visible"
)

// LoadState is the page readiness condition for WaitForLoadState.
type LoadState string

const (
	LoadStateLoad             LoadState = "load"
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"
	LoadStateNetworkIdle      LoadState = "networkidle"
)

// WaitOptions controls a WaitForSelector call. A zero Timeout means the
// page's default timeout.
type WaitOptions struct {
	State   ElementState
	Timeout time.Duration
}

// SelectTarget names one option of a select element, by exactly one of value,
// label or index.
type SelectTarget struct {
	Value *string
	Label *string
	Index *int
}

// Rect is an element bounding box in page coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// OptionInfo describes one option of a select element.
type OptionInfo struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Element is one resolved DOM element.
type Element interface {
	Click() error
	TextContent() (string, error)
	GetAttribute(name string) (string, bool, error)
	TagName() (string, error)
	InputValue() (string, error)
	IsVisible() (bool, error)
	ScrollIntoView() error
	Focus() error
	Press(key string) error
	TripleClick() error
	// Type types text into the element with a per-character delay.
	Type(text string, delay time.Duration) error
	// Fill replaces the element value in one operation.
	Fill(text string) error
	// Evaluate runs a script against the element. The script receives the
	// element as its argument.
	Evaluate(script string, args ...interface{}) (interface{}, error)
	// SelectOption selects an option of a select element.
	SelectOption(target SelectTarget) error
	// Options lists a select element's options.
	Options() ([]OptionInfo, error)
	BoundingBox() (*Rect, error)
}

// Page is one live page of an automation session.
type Page interface {
	Goto(url string, waitUntil LoadState, timeout time.Duration) error
	URL() string
	Content() (string, error)
	Reload(timeout time.Duration) error
	WaitForLoadState(state LoadState, timeout time.Duration) error
	WaitForSelector(selector string, opts WaitOptions) (Element, error)
	QuerySelector(selector string) (Element, error)
	QuerySelectorAll(selector string) ([]Element, error)
	// Evaluate runs a script in the page context.
	Evaluate(script string, args ...interface{}) (interface{}, error)
	// WaitForFunction polls a script until it returns a truthy value.
	WaitForFunction(script string, timeout time.Duration) (interface{}, error)
	MouseMove(x, y float64) error
	MouseClick(x, y float64) error
}
