package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/pricewatch/competitor-price-watcher/internal/automation"
)

// pwPage adapts a playwright page to the automation capability.
type pwPage struct {
	page playwright.Page
}

func waitUntilState(state automation.LoadState) *playwright.WaitUntilState {
	switch state {
	case automation.LoadStateDOMContentLoaded:
		return playwright.WaitUntilStateDomcontentloaded
	case automation.LoadStateNetworkIdle:
		return playwright.WaitUntilStateNetworkidle
	default:
		return playwright.WaitUntilStateLoad
	}
}

func loadState(state automation.LoadState) *playwright.LoadState {
	switch state {
	case automation.LoadStateDOMContentLoaded:
		return playwright.LoadStateDomcontentloaded
	case automation.LoadStateNetworkIdle:
		return playwright.LoadStateNetworkidle
	default:
		return playwright.LoadStateLoad
	}
}

func timeoutMillis(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}

func (p *pwPage) Goto(url string, waitUntil automation.LoadState, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: waitUntilState(waitUntil),
		Timeout:   timeoutMillis(timeout),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) Content() (string, error) {
	return p.page.Content()
}

func (p *pwPage) Reload(timeout time.Duration) error {
	_, err := p.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateCommit,
		Timeout:   timeoutMillis(timeout),
	})
	if err != nil {
		return fmt.Errorf("failed to reload page: %w", err)
	}
	return nil
}

func (p *pwPage) WaitForLoadState(state automation.LoadState, timeout time.Duration) error {
	err := p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   loadState(state),
		Timeout: timeoutMillis(timeout),
	})
	if err != nil {
		return fmt.Errorf("%w: load state %s", automation.ErrTimeout, state)
	}
	return nil
}

func (p *pwPage) WaitForSelector(selector string, opts automation.WaitOptions) (automation.Element, error) {
	pwOpts := playwright.PageWaitForSelectorOptions{
		Timeout: timeoutMillis(opts.Timeout),
	}
	if opts.State == automation.StateVisible {
		pwOpts.State = playwright.WaitForSelectorStateVisible
	}

	handle, err := p.page.WaitForSelector(selector, pwOpts)
	if err != nil || handle == nil {
		return nil, fmt.Errorf("%w: %s", automation.ErrElementNotFound, selector)
	}
	return &pwElement{handle: handle}, nil
}

func (p *pwPage) QuerySelector(selector string) (automation.Element, error) {
	handle, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	if handle == nil {
		return nil, nil
	}
	return &pwElement{handle: handle}, nil
}

func (p *pwPage) QuerySelectorAll(selector string) ([]automation.Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	elements := make([]automation.Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &pwElement{handle: h})
	}
	return elements, nil
}

func (p *pwPage) Evaluate(script string, args ...interface{}) (interface{}, error) {
	// Playwright passes a single argument to page scripts; callers bundle
	// multiple values into one object.
	if len(args) > 1 {
		return nil, fmt.Errorf("evaluate accepts at most one argument, got %d", len(args))
	}
	if len(args) == 1 {
		return p.page.Evaluate(script, args[0])
	}
	return p.page.Evaluate(script)
}

func (p *pwPage) WaitForFunction(script string, timeout time.Duration) (interface{}, error) {
	handle, err := p.page.WaitForFunction(script, nil, playwright.PageWaitForFunctionOptions{
		Timeout: timeoutMillis(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: wait for function", automation.ErrTimeout)
	}
	if handle == nil {
		return nil, nil
	}
	return handle.JSONValue()
}

func (p *pwPage) MouseMove(x, y float64) error {
	return p.page.Mouse().Move(x, y)
}

func (p *pwPage) MouseClick(x, y float64) error {
	return p.page.Mouse().Click(x, y)
}

// pwElement adapts a playwright element handle.
type pwElement struct {
	handle playwright.ElementHandle
}

func (e *pwElement) Click() error {
	return e.handle.Click()
}

func (e *pwElement) TripleClick() error {
	return e.handle.Click(playwright.ElementHandleClickOptions{
		ClickCount: playwright.Int(3),
	})
}

func (e *pwElement) TextContent() (string, error) {
	return e.handle.TextContent()
}

func (e *pwElement) GetAttribute(name string) (string, bool, error) {
	value, err := e.handle.GetAttribute(name)
	if err != nil {
		return "", false, err
	}
	return value, value != "", nil
}

func (e *pwElement) TagName() (string, error) {
	result, err := e.handle.Evaluate("el => el.tagName.toLowerCase()")
	if err != nil {
		return "", fmt.Errorf("failed to read tag name: %w", err)
	}
	tag, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected tag name result %T", result)
	}
	return tag, nil
}

func (e *pwElement) InputValue() (string, error) {
	return e.handle.InputValue()
}

func (e *pwElement) IsVisible() (bool, error) {
	return e.handle.IsVisible()
}

func (e *pwElement) ScrollIntoView() error {
	return e.handle.ScrollIntoViewIfNeeded()
}

func (e *pwElement) Focus() error {
	return e.handle.Focus()
}

func (e *pwElement) Press(key string) error {
	return e.handle.Press(key)
}

func (e *pwElement) Type(text string, delay time.Duration) error {
	return e.handle.Type(text, playwright.ElementHandleTypeOptions{
		Delay: playwright.Float(float64(delay.Milliseconds())),
	})
}

func (e *pwElement) Fill(text string) error {
	return e.handle.Fill(text)
}

func (e *pwElement) Evaluate(script string, args ...interface{}) (interface{}, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("evaluate accepts at most one argument, got %d", len(args))
	}
	if len(args) == 1 {
		return e.handle.Evaluate(script, args[0])
	}
	return e.handle.Evaluate(script)
}

func (e *pwElement) SelectOption(target automation.SelectTarget) error {
	values := playwright.SelectOptionValues{}
	switch {
	case target.Value != nil:
		values.Values = &[]string{*target.Value}
	case target.Label != nil:
		values.Labels = &[]string{*target.Label}
	case target.Index != nil:
		values.Indexes = &[]int{*target.Index}
	default:
		return fmt.Errorf("select target is empty")
	}
	_, err := e.handle.SelectOption(values)
	return err
}

func (e *pwElement) Options() ([]automation.OptionInfo, error) {
	result, err := e.handle.Evaluate(`(select) => {
		return Array.from(select.options).map(option => ({
			value: option.value,
			text: option.text.trim()
		}));
	}`)
	if err != nil {
		return nil, fmt.Errorf("failed to list options: %w", err)
	}

	raw, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected options result %T", result)
	}

	options := make([]automation.OptionInfo, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		opt := automation.OptionInfo{}
		if v, ok := m["value"].(string); ok {
			opt.Value = v
		}
		if t, ok := m["text"].(string); ok {
			opt.Text = t
		}
		options = append(options, opt)
	}
	return options, nil
}

func (e *pwElement) BoundingBox() (*automation.Rect, error) {
	box, err := e.handle.BoundingBox()
	if err != nil || box == nil {
		return nil, err
	}
	return &automation.Rect{
		X:      box.X,
		Y:      box.Y,
		Width:  box.Width,
		Height: box.Height,
	}, nil
}
