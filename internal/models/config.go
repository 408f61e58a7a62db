package models

import (
	"encoding/json"
	"fmt"
)

// StepType identifies one automation action. The set is closed: config
// validation rejects anything else, and the interpreter switches over every
// variant exhaustively.
type StepType string

const (
	StepSelect        StepType = "select"
	StepInput         StepType = "input"
	StepClick         StepType = "click"
	StepWait          StepType = "wait"
	StepBlur          StepType = "blur"
	StepModifyElement StepType = "modify_element"
	StepReadPrice     StepType = "read_price"
	StepNavigate      StepType = "navigate"
	StepReload        StepType = "reload"
	StepCaptcha       StepType = "captcha"
	StepDecideConfig  StepType = "decide_config"
)

var stepTypes = map[StepType]bool{
	StepSelect:        true,
	StepInput:         true,
	StepClick:         true,
	StepWait:          true,
	StepBlur:          true,
	StepModifyElement: true,
	StepReadPrice:     true,
	StepNavigate:      true,
	StepReload:        true,
	StepCaptcha:       true,
	StepDecideConfig:  true,
}

// Step is one declarative automation action loaded verbatim from a domain
// configuration. Fields beyond the common set only apply to their variant;
// Validate enforces the per-variant requirements up front.
type Step struct {
	Type            StepType `json:"type"`
	Selector        string   `json:"selector,omitempty"`
	Value           string   `json:"value,omitempty"`
	Unit            string   `json:"unit,omitempty"`
	Description     string   `json:"description,omitempty"`
	ContinueOnError bool     `json:"continue_on_error,omitempty"`

	// select
	UseIndex         bool   `json:"use_index,omitempty"`
	OptionIndex      int    `json:"option_index,omitempty"`
	ContainerTrigger string `json:"container_trigger,omitempty"`

	// input
	ClearFirst             *bool  `json:"clear_first,omitempty"`
	Randomize              bool   `json:"randomize,omitempty"`
	InputMethod            string `json:"input_method,omitempty"`
	RandomType             string `json:"random_type,omitempty"`
	PasswordMinLength      int    `json:"password_min_length,omitempty"`
	PasswordMaxLength      int    `json:"password_max_length,omitempty"`
	PasswordIncludeUpper   *bool  `json:"password_include_uppercase,omitempty"`
	PasswordIncludeNumbers *bool  `json:"password_include_numbers,omitempty"`
	PasswordIncludeSpecial *bool  `json:"password_include_special,omitempty"`

	// wait
	Duration string `json:"duration,omitempty"`

	// modify_element
	Script       string            `json:"script,omitempty"`
	AddClass     string            `json:"add_class,omitempty"`
	AddAttribute map[string]string `json:"add_attribute,omitempty"`

	// read_price
	Calculation string `json:"calculation,omitempty"`
	IncludesVAT bool   `json:"includes_vat,omitempty"`

	// navigate / reload
	URL            string `json:"url,omitempty"`
	WaitForLoad    *bool  `json:"wait_for_load,omitempty"`
	TimeoutSeconds int    `json:"timeout,omitempty"`

	// captcha
	SolvingMethod string `json:"solving_method,omitempty"`
	CaptchaType   string `json:"captcha_type,omitempty"`
	FrameSelector string `json:"frame_selector,omitempty"`
	SkipOnFailure *bool  `json:"skip_on_failure,omitempty"`

	// decide_config
	FallbackConfig string `json:"fallback_config,omitempty"`
}

// ShouldClearFirst reports whether the input handler should empty the field
// before typing. Defaults to true when unset.
func (s *Step) ShouldClearFirst() bool {
	return s.ClearFirst == nil || *s.ClearFirst
}

// ShouldWaitForLoad reports whether navigate/reload should block on page load.
// Defaults to true when unset.
func (s *Step) ShouldWaitForLoad() bool {
	return s.WaitForLoad == nil || *s.WaitForLoad
}

// ShouldSkipOnFailure reports whether a captcha failure degrades to a warning.
// Defaults to true when unset.
func (s *Step) ShouldSkipOnFailure() bool {
	return s.SkipOnFailure == nil || *s.SkipOnFailure
}

// IsRandomized reports whether the input value should be generated.
func (s *Step) IsRandomized() bool {
	return s.Randomize || s.InputMethod == "randomize"
}

// Validate checks the per-variant required fields so that a malformed domain
// configuration fails at load time instead of mid-run against a live site.
func (s *Step) Validate() error {
	if !stepTypes[s.Type] {
		return fmt.Errorf("unknown step type %q", s.Type)
	}

	switch s.Type {
	case StepSelect:
		if s.Selector == "" {
			return fmt.Errorf("select step requires a selector")
		}
		if s.Value == "" && !(s.UseIndex && s.OptionIndex >= 0) {
			// An empty value is tolerated at runtime (first option is
			// chosen), but only when a selector exists to act on.
			break
		}
	case StepInput:
		if s.Selector == "" {
			return fmt.Errorf("input step requires a selector")
		}
	case StepClick:
		if s.Selector == "" {
			return fmt.Errorf("click step requires a selector")
		}
	case StepModifyElement:
		if s.Selector == "" {
			return fmt.Errorf("modify_element step requires a selector")
		}
	case StepReadPrice:
		if s.Selector == "" {
			return fmt.Errorf("read_price step requires a selector")
		}
	case StepNavigate:
		if s.URL == "" {
			return fmt.Errorf("navigate step requires a url")
		}
	case StepDecideConfig:
		if s.Selector == "" {
			return fmt.Errorf("decide_config step requires a selector")
		}
	}

	if s.Unit != "" && s.Unit != "mm" && s.Unit != "cm" {
		return fmt.Errorf("step unit must be mm or cm, got %q", s.Unit)
	}

	return nil
}

// Category is one named pricing scenario inside a domain configuration.
type Category struct {
	Steps []Step `json:"steps"`
}

// DomainConfig is the ordered automation recipe for one competitor website.
type DomainConfig struct {
	Domain             string              `json:"domain"`
	Categories         map[string]Category `json:"categories"`
	DisableCanvasWebGL bool                `json:"disable_canvas_webgl,omitempty"`
}

// Validate checks every category's step list.
func (dc *DomainConfig) Validate() error {
	if len(dc.Categories) == 0 {
		return fmt.Errorf("domain config for %q has no categories", dc.Domain)
	}
	for name, cat := range dc.Categories {
		if len(cat.Steps) == 0 {
			return fmt.Errorf("category %q has no steps", name)
		}
		for i := range cat.Steps {
			if err := cat.Steps[i].Validate(); err != nil {
				return fmt.Errorf("category %q step %d: %w", name, i, err)
			}
		}
	}
	return nil
}

// ParseDomainConfig decodes and validates a stored domain configuration.
func ParseDomainConfig(domain string, raw json.RawMessage) (*DomainConfig, error) {
	cfg := &DomainConfig{Domain: domain}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode domain config for %q: %w", domain, err)
	}
	cfg.Domain = domain
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CountryConfig carries the VAT and currency rules for one country code.
type CountryConfig struct {
	CountryCode        string  `json:"country_code"`
	VATRate            float64 `json:"vat_rate"`
	Currency           string  `json:"currency"`
	CurrencySymbol     string  `json:"currency_symbol"`
	CurrencyFormat     string  `json:"currency_format"`
	DecimalSeparator   string  `json:"decimal_separator"`
	ThousandsSeparator string  `json:"thousands_separator"`
}

// Validate checks the VAT range and the display format.
func (cc *CountryConfig) Validate() error {
	if cc.VATRate < 0 || cc.VATRate >= 100 {
		return fmt.Errorf("country %q: vat_rate must be in [0,100), got %v", cc.CountryCode, cc.VATRate)
	}
	if cc.CurrencyFormat == "" {
		cc.CurrencyFormat = "{amount}"
	}
	if cc.DecimalSeparator == "" {
		cc.DecimalSeparator = ","
	}
	if cc.ThousandsSeparator == "" {
		cc.ThousandsSeparator = "."
	}
	return nil
}

// ParseCountryConfig decodes and validates a stored country configuration.
func ParseCountryConfig(code string, raw json.RawMessage) (*CountryConfig, error) {
	cfg := &CountryConfig{CountryCode: code}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode country config for %q: %w", code, err)
	}
	cfg.CountryCode = code
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PackageConfig describes one predefined shipping package.
type PackageConfig struct {
	PackageID   string  `json:"package_id"`
	Length      float64 `json:"length"`
	Width       float64 `json:"width"`
	Thickness   float64 `json:"thickness"`
	Quantity    float64 `json:"quantity"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Display     string  `json:"display"`
}

// Validate checks the physical dimensions.
func (pc *PackageConfig) Validate() error {
	if pc.Length <= 0 || pc.Width <= 0 {
		return fmt.Errorf("package %q: length and width must be positive", pc.PackageID)
	}
	if pc.Quantity <= 0 {
		pc.Quantity = 1
	}
	return nil
}

// ParsePackageConfig decodes and validates a stored package configuration.
func ParsePackageConfig(id string, raw json.RawMessage) (*PackageConfig, error) {
	cfg := &PackageConfig{PackageID: id}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode package config for %q: %w", id, err)
	}
	cfg.PackageID = id
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
