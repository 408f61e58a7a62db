package calculator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/competitor-price-watcher/internal/automation"
	"github.com/pricewatch/competitor-price-watcher/internal/models"
	"github.com/pricewatch/competitor-price-watcher/internal/status"
)

// fakeElement implements automation.Element against in-memory state.
type fakeElement struct {
	tag     string
	text    string
	value   string
	attrs   map[string]string
	visible bool
	options []automation.OptionInfo

	clicks    int
	selected  []automation.SelectTarget
	evaluated []string
	evalArgs  [][]interface{}
}

func newFakeElement(tag string) *fakeElement {
	return &fakeElement{tag: tag, attrs: map[string]string{}, visible: true}
}

func (e *fakeElement) Click() error { e.clicks++; return nil }

func (e *fakeElement) TextContent() (string, error) { return e.text, nil }

func (e *fakeElement) GetAttribute(name string) (string, bool, error) {
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *fakeElement) TagName() (string, error) { return e.tag, nil }

func (e *fakeElement) InputValue() (string, error) { return e.value, nil }

func (e *fakeElement) IsVisible() (bool, error) { return e.visible, nil }

func (e *fakeElement) ScrollIntoView() error { return nil }

func (e *fakeElement) Focus() error { return nil }

func (e *fakeElement) Press(key string) error { return nil }

func (e *fakeElement) TripleClick() error { return nil }

func (e *fakeElement) Type(text string, delay time.Duration) error {
	e.value = text
	return nil
}

func (e *fakeElement) Fill(text string) error { e.value = text; return nil }

func (e *fakeElement) Evaluate(script string, args ...interface{}) (interface{}, error) {
	e.evaluated = append(e.evaluated, script)
	e.evalArgs = append(e.evalArgs, args)
	if strings.Contains(script, "el.value = value") && len(args) > 0 {
		if s, ok := args[0].(string); ok {
			e.value = s
		}
	}
	if strings.Contains(script, `el.value = ""`) {
		e.value = ""
	}
	return nil, nil
}

func (e *fakeElement) SelectOption(target automation.SelectTarget) error {
	e.selected = append(e.selected, target)
	if target.Value != nil {
		e.value = *target.Value
	}
	return nil
}

func (e *fakeElement) Options() ([]automation.OptionInfo, error) { return e.options, nil }

func (e *fakeElement) BoundingBox() (*automation.Rect, error) { return nil, nil }

// fakePage implements automation.Page over a selector-keyed element map.
type fakePage struct {
	url      string
	content  string
	elements map[string]automation.Element
	lists    map[string][]automation.Element

	gotoCalls []string
	evaluated []string
}

func newFakePage() *fakePage {
	return &fakePage{
		elements: map[string]automation.Element{},
		lists:    map[string][]automation.Element{},
	}
}

func (p *fakePage) Goto(url string, waitUntil automation.LoadState, timeout time.Duration) error {
	p.gotoCalls = append(p.gotoCalls, url)
	p.url = url
	return nil
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Content() (string, error) { return p.content, nil }

func (p *fakePage) Reload(timeout time.Duration) error { return nil }

func (p *fakePage) WaitForLoadState(state automation.LoadState, timeout time.Duration) error {
	return nil
}

func (p *fakePage) WaitForSelector(selector string, opts automation.WaitOptions) (automation.Element, error) {
	if el, ok := p.elements[selector]; ok {
		return el, nil
	}
	return nil, fmt.Errorf("%w: %s", automation.ErrElementNotFound, selector)
}

func (p *fakePage) QuerySelector(selector string) (automation.Element, error) {
	if el, ok := p.elements[selector]; ok {
		return el, nil
	}
	return nil, fmt.Errorf("%w: %s", automation.ErrElementNotFound, selector)
}

func (p *fakePage) QuerySelectorAll(selector string) ([]automation.Element, error) {
	if list, ok := p.lists[selector]; ok {
		return list, nil
	}
	if el, ok := p.elements[selector]; ok {
		return []automation.Element{el}, nil
	}
	return nil, nil
}

func (p *fakePage) Evaluate(script string, args ...interface{}) (interface{}, error) {
	p.evaluated = append(p.evaluated, script)
	return nil, nil
}

func (p *fakePage) WaitForFunction(script string, timeout time.Duration) (interface{}, error) {
	return nil, nil
}

func (p *fakePage) MouseMove(x, y float64) error { return nil }

func (p *fakePage) MouseClick(x, y float64) error { return nil }

type fakeSession struct {
	page   automation.Page
	closed bool
}

func (s *fakeSession) Page() automation.Page { return s.page }

func (s *fakeSession) Close() error { s.closed = true; return nil }

// fakeConfigs implements ConfigSource from maps.
type fakeConfigs struct {
	domains   map[string]*models.DomainConfig
	countries map[string]*models.CountryConfig
	settings  map[string]string
}

func (f *fakeConfigs) DomainConfig(ctx context.Context, domain string) (*models.DomainConfig, error) {
	if cfg, ok := f.domains[domain]; ok {
		return cfg, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeConfigs) CountryConfig(ctx context.Context, code string) (*models.CountryConfig, error) {
	if cfg, ok := f.countries[code]; ok {
		return cfg, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeConfigs) Setting(ctx context.Context, key string) (string, error) {
	if v, ok := f.settings[key]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func dutchCountry() *models.CountryConfig {
	return &models.CountryConfig{
		CountryCode:        "nl",
		VATRate:            21,
		Currency:           "EUR",
		CurrencySymbol:     "€",
		CurrencyFormat:     "€ {amount}",
		DecimalSeparator:   ",",
		ThousandsSeparator: ".",
	}
}

// newTestCalculator wires a calculator against fakes with sleeping disabled.
func newTestCalculator(configs ConfigSource, page automation.Page) (*Calculator, *status.Registry) {
	registry := status.NewRegistry()
	factory := func(ctx context.Context, opts SessionOptions) (Session, error) {
		return &fakeSession{page: page}, nil
	}
	c := New(configs, factory, nil, registry)
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c, registry
}

// newTestRun builds a run for handler-level tests.
func newTestRun(page automation.Page, dims models.Dimensions) *run {
	c, _ := newTestCalculator(nil, page)
	return &run{
		c:         c,
		ctx:       context.Background(),
		page:      page,
		requestID: "test-request",
		dims:      dims,
		country:   dutchCountry(),
		cfg:       &models.DomainConfig{},
		rng:       rand.New(rand.NewSource(1)),
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{name: "https with www and path", url: "https://www.plexiglas.example/configurator", expected: "plexiglas.example"},
		{name: "http without www", url: "http://kunststof.example", expected: "kunststof.example"},
		{name: "schemeless", url: "plexiglas.example/page", expected: "plexiglas.example"},
		{name: "schemeless with www", url: "www.plexiglas.example", expected: "plexiglas.example"},
		{name: "with port", url: "https://plexiglas.example:8443/x", expected: "plexiglas.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDomain(tt.url))
		})
	}
}

func TestCalculateHappyPath(t *testing.T) {
	page := newFakePage()
	page.elements["#dikte_field"] = newFakeElement("input")
	priceEl := newFakeElement("span")
	priceEl.text = "€ 24,20"
	page.elements[".price"] = priceEl

	configs := &fakeConfigs{
		domains: map[string]*models.DomainConfig{
			"plexiglas.example": {
				Domain: "plexiglas.example",
				Categories: map[string]models.Category{
					"square_meter_price": {Steps: []models.Step{
						{Type: models.StepInput, Selector: "#dikte_field", Unit: "mm"},
						{Type: models.StepReadPrice, Selector: ".price", IncludesVAT: true},
					}},
				},
			},
		},
		countries: map[string]*models.CountryConfig{"nl": dutchCountry()},
	}

	c, registry := newTestCalculator(configs, page)
	result, err := c.Calculate(context.Background(), Request{
		RequestID:  "req-1",
		URL:        "https://www.plexiglas.example/configurator",
		Dimensions: models.Dimensions{Thickness: 2, Length: 1000, Width: 1000, Quantity: 1},
		Country:    "nl",
		Category:   "square_meter_price",
	})

	require.NoError(t, err)
	assert.InDelta(t, 20.00, result.ExclVAT, 1e-9)
	assert.InDelta(t, 24.20, result.InclVAT, 1e-9)

	// The thickness input was filled from the request dimensions.
	assert.Equal(t, "2", page.elements["#dikte_field"].(*fakeElement).value)
	assert.Equal(t, []string{"https://www.plexiglas.example/configurator"}, page.gotoCalls)

	update, ok := registry.Get("req-1")
	require.True(t, ok)
	assert.Equal(t, "Price calculation completed", update.Message)
	assert.Equal(t, "24.20", update.StepDetails["price_incl_vat"])
	assert.Equal(t, "€ 24,20", update.StepDetails["formatted_incl"])
}

func TestCalculateExclusivePriceAddsVAT(t *testing.T) {
	page := newFakePage()
	priceEl := newFakeElement("span")
	priceEl.text = "100,00"
	page.elements[".price"] = priceEl

	configs := &fakeConfigs{
		domains: map[string]*models.DomainConfig{
			"x.example": {
				Domain: "x.example",
				Categories: map[string]models.Category{
					"square_meter_price": {Steps: []models.Step{
						{Type: models.StepReadPrice, Selector: ".price"},
					}},
				},
			},
		},
		countries: map[string]*models.CountryConfig{"nl": dutchCountry()},
	}

	c, _ := newTestCalculator(configs, page)
	result, err := c.Calculate(context.Background(), Request{
		RequestID: "req-1",
		URL:       "https://x.example",
		Country:   "nl",
		Category:  "square_meter_price",
	})

	require.NoError(t, err)
	assert.InDelta(t, 100.00, result.ExclVAT, 1e-9)
	assert.InDelta(t, 121.00, result.InclVAT, 1e-9)
}

func TestCalculateMissingDomainConfig(t *testing.T) {
	configs := &fakeConfigs{countries: map[string]*models.CountryConfig{"nl": dutchCountry()}}
	c, registry := newTestCalculator(configs, newFakePage())

	_, err := c.Calculate(context.Background(), Request{
		RequestID: "req-1",
		URL:       "https://unknown.example",
		Country:   "nl",
		Category:  "square_meter_price",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigurationMissing)

	update, ok := registry.Get("req-1")
	require.True(t, ok)
	assert.Contains(t, update.Message, "Error calculating price")
}

func TestCalculateMissingCountryConfig(t *testing.T) {
	configs := &fakeConfigs{
		domains: map[string]*models.DomainConfig{
			"x.example": {Domain: "x.example", Categories: map[string]models.Category{
				"square_meter_price": {Steps: []models.Step{{Type: models.StepReadPrice, Selector: ".price"}}},
			}},
		},
	}
	c, _ := newTestCalculator(configs, newFakePage())

	_, err := c.Calculate(context.Background(), Request{
		RequestID: "req-1",
		URL:       "https://x.example",
		Country:   "zz",
		Category:  "square_meter_price",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigurationMissing)
}

func TestCalculateUnsupportedCategory(t *testing.T) {
	configs := &fakeConfigs{
		domains: map[string]*models.DomainConfig{
			"x.example": {Domain: "x.example", Categories: map[string]models.Category{
				"square_meter_price": {Steps: []models.Step{{Type: models.StepReadPrice, Selector: ".price"}}},
			}},
		},
		countries: map[string]*models.CountryConfig{"nl": dutchCountry()},
	}
	c, _ := newTestCalculator(configs, newFakePage())

	_, err := c.Calculate(context.Background(), Request{
		RequestID: "req-1",
		URL:       "https://x.example",
		Country:   "nl",
		Category:  "shipping",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigurationMissing)
	assert.Contains(t, err.Error(), "shipping")
}

func TestCalculateFailedReadPriceWithContinueOnError(t *testing.T) {
	page := newFakePage()

	configs := &fakeConfigs{
		domains: map[string]*models.DomainConfig{
			"x.example": {Domain: "x.example", Categories: map[string]models.Category{
				"square_meter_price": {Steps: []models.Step{
					{Type: models.StepReadPrice, Selector: ".missing", ContinueOnError: true},
				}},
			}},
		},
		countries: map[string]*models.CountryConfig{"nl": dutchCountry()},
	}

	c, registry := newTestCalculator(configs, page)
	result, err := c.Calculate(context.Background(), Request{
		RequestID: "req-1",
		URL:       "https://x.example",
		Country:   "nl",
		Category:  "square_meter_price",
	})

	require.NoError(t, err)
	assert.Equal(t, 0.0, result.ExclVAT)
	assert.Equal(t, 0.0, result.InclVAT)

	update, ok := registry.Get("req-1")
	require.True(t, ok)
	assert.Equal(t, "Returning 0.00 for failed price reading step", update.Message)
}

func TestCalculateFailedStepWithoutContinueOnError(t *testing.T) {
	page := newFakePage()

	configs := &fakeConfigs{
		domains: map[string]*models.DomainConfig{
			"x.example": {Domain: "x.example", Categories: map[string]models.Category{
				"square_meter_price": {Steps: []models.Step{
					{Type: models.StepClick, Selector: ".missing-button"},
					{Type: models.StepReadPrice, Selector: ".price"},
				}},
			}},
		},
		countries: map[string]*models.CountryConfig{"nl": dutchCountry()},
	}

	c, _ := newTestCalculator(configs, page)
	_, err := c.Calculate(context.Background(), Request{
		RequestID: "req-1",
		URL:       "https://x.example",
		Country:   "nl",
		Category:  "square_meter_price",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestCalculateFailedNonPriceStepWithContinueOnError(t *testing.T) {
	page := newFakePage()
	priceEl := newFakeElement("span")
	priceEl.text = "€ 12,10"
	page.elements[".price"] = priceEl

	configs := &fakeConfigs{
		domains: map[string]*models.DomainConfig{
			"x.example": {Domain: "x.example", Categories: map[string]models.Category{
				"square_meter_price": {Steps: []models.Step{
					{Type: models.StepClick, Selector: ".missing-button", ContinueOnError: true},
					{Type: models.StepReadPrice, Selector: ".price", IncludesVAT: true},
				}},
			}},
		},
		countries: map[string]*models.CountryConfig{"nl": dutchCountry()},
	}

	c, _ := newTestCalculator(configs, page)
	result, err := c.Calculate(context.Background(), Request{
		RequestID: "req-1",
		URL:       "https://x.example",
		Country:   "nl",
		Category:  "square_meter_price",
	})

	require.NoError(t, err)
	assert.InDelta(t, 12.10, result.InclVAT, 1e-9)
}

func TestCalculateSwitchesCategoryOnDecideConfig(t *testing.T) {
	page := newFakePage()
	// The marker element is absent, so the run switches to the fallback.
	priceEl := newFakeElement("span")
	priceEl.text = "€ 12,10"
	page.elements[".price-alt"] = priceEl

	configs := &fakeConfigs{
		domains: map[string]*models.DomainConfig{
			"x.example": {Domain: "x.example", Categories: map[string]models.Category{
				"square_meter_price": {Steps: []models.Step{
					{Type: models.StepDecideConfig, Selector: "#marker", FallbackConfig: "square_meter_price_2"},
					{Type: models.StepReadPrice, Selector: ".price"},
				}},
				"square_meter_price_2": {Steps: []models.Step{
					{Type: models.StepReadPrice, Selector: ".price-alt", IncludesVAT: true},
				}},
			}},
		},
		countries: map[string]*models.CountryConfig{"nl": dutchCountry()},
	}

	c, _ := newTestCalculator(configs, page)
	result, err := c.Calculate(context.Background(), Request{
		RequestID: "req-1",
		URL:       "https://x.example",
		Country:   "nl",
		Category:  "square_meter_price",
	})

	require.NoError(t, err)
	assert.InDelta(t, 10.00, result.ExclVAT, 1e-9)
	assert.InDelta(t, 12.10, result.InclVAT, 1e-9)
}

func TestCalculateKeepsCategoryWhenMarkerPresent(t *testing.T) {
	page := newFakePage()
	page.elements["#marker"] = newFakeElement("div")
	priceEl := newFakeElement("span")
	priceEl.text = "€ 24,20"
	page.elements[".price"] = priceEl

	configs := &fakeConfigs{
		domains: map[string]*models.DomainConfig{
			"x.example": {Domain: "x.example", Categories: map[string]models.Category{
				"square_meter_price": {Steps: []models.Step{
					{Type: models.StepDecideConfig, Selector: "#marker", FallbackConfig: "square_meter_price_2"},
					{Type: models.StepReadPrice, Selector: ".price", IncludesVAT: true},
				}},
				"square_meter_price_2": {Steps: []models.Step{
					{Type: models.StepReadPrice, Selector: ".price-alt"},
				}},
			}},
		},
		countries: map[string]*models.CountryConfig{"nl": dutchCountry()},
	}

	c, _ := newTestCalculator(configs, page)
	result, err := c.Calculate(context.Background(), Request{
		RequestID: "req-1",
		URL:       "https://x.example",
		Country:   "nl",
		Category:  "square_meter_price",
	})

	require.NoError(t, err)
	assert.InDelta(t, 24.20, result.InclVAT, 1e-9)
}

func TestCalculateUnknownFallbackContinuesCurrent(t *testing.T) {
	page := newFakePage()
	priceEl := newFakeElement("span")
	priceEl.text = "€ 24,20"
	page.elements[".price"] = priceEl

	configs := &fakeConfigs{
		domains: map[string]*models.DomainConfig{
			"x.example": {Domain: "x.example", Categories: map[string]models.Category{
				"square_meter_price": {Steps: []models.Step{
					{Type: models.StepDecideConfig, Selector: "#marker", FallbackConfig: "does_not_exist"},
					{Type: models.StepReadPrice, Selector: ".price", IncludesVAT: true},
				}},
			}},
		},
		countries: map[string]*models.CountryConfig{"nl": dutchCountry()},
	}

	c, _ := newTestCalculator(configs, page)
	result, err := c.Calculate(context.Background(), Request{
		RequestID: "req-1",
		URL:       "https://x.example",
		Country:   "nl",
		Category:  "square_meter_price",
	})

	require.NoError(t, err)
	assert.InDelta(t, 24.20, result.InclVAT, 1e-9)
}

func TestCalculateWithoutReadPriceStep(t *testing.T) {
	configs := &fakeConfigs{
		domains: map[string]*models.DomainConfig{
			"x.example": {Domain: "x.example", Categories: map[string]models.Category{
				"square_meter_price": {Steps: []models.Step{
					{Type: models.StepWait, Duration: "short"},
				}},
			}},
		},
		countries: map[string]*models.CountryConfig{"nl": dutchCountry()},
	}

	c, _ := newTestCalculator(configs, newFakePage())
	_, err := c.Calculate(context.Background(), Request{
		RequestID: "req-1",
		URL:       "https://x.example",
		Country:   "nl",
		Category:  "square_meter_price",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a read_price step")
}

func TestCalculateClosesSession(t *testing.T) {
	page := newFakePage()
	priceEl := newFakeElement("span")
	priceEl.text = "€ 24,20"
	page.elements[".price"] = priceEl

	session := &fakeSession{page: page}
	registry := status.NewRegistry()
	c := New(&fakeConfigs{
		domains: map[string]*models.DomainConfig{
			"x.example": {Domain: "x.example", Categories: map[string]models.Category{
				"square_meter_price": {Steps: []models.Step{
					{Type: models.StepReadPrice, Selector: ".price", IncludesVAT: true},
				}},
			}},
		},
		countries: map[string]*models.CountryConfig{"nl": dutchCountry()},
	}, func(ctx context.Context, opts SessionOptions) (Session, error) {
		return session, nil
	}, nil, registry)
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := c.Calculate(context.Background(), Request{
		RequestID: "req-1",
		URL:       "https://x.example",
		Country:   "nl",
		Category:  "square_meter_price",
	})

	require.NoError(t, err)
	assert.True(t, session.closed)
}
