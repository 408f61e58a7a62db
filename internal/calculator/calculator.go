// Package calculator drives a browser session through a domain's configured
// step list to obtain a VAT-aware price. The interpreter walks the active
// category's steps with a cursor, dispatching each step to its handler; a
// successful read_price terminates the run, a decide_config step may swap the
// active category mid-run.
package calculator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pricewatch/competitor-price-watcher/internal/automation"
	"github.com/pricewatch/competitor-price-watcher/internal/models"
	"github.com/pricewatch/competitor-price-watcher/internal/pricing"
	"github.com/pricewatch/competitor-price-watcher/internal/status"
)

const (
	defaultNavigationTimeout = 120 * time.Second
	networkIdleTimeout       = 15 * time.Second
	domContentTimeout        = 10 * time.Second
)

// ConfigSource supplies the per-domain and per-country configuration a
// calculation needs. Absent configuration is reported as an error wrapping
// the store's not-found sentinel; the calculator folds both cases into
// ErrConfigurationMissing.
type ConfigSource interface {
	DomainConfig(ctx context.Context, domain string) (*models.DomainConfig, error)
	CountryConfig(ctx context.Context, code string) (*models.CountryConfig, error)
	Setting(ctx context.Context, key string) (string, error)
}

// Session is one isolated automation session. Close releases the underlying
// browser resources.
type Session interface {
	Page() automation.Page
	Close() error
}

// SessionOptions carries the per-domain browser knobs.
type SessionOptions struct {
	DisableCanvasWebGL bool
}

// SessionFactory opens a fresh session per calculation.
type SessionFactory func(ctx context.Context, opts SessionOptions) (Session, error)

// CaptchaSolver submits a captcha to an external solving service and returns
// the solution token.
type CaptchaSolver interface {
	SolveRecaptchaV2(ctx context.Context, apiKey, siteKey, pageURL string) (string, error)
}

// Request describes one price calculation.
type Request struct {
	RequestID  string
	URL        string
	Dimensions models.Dimensions
	Country    string
	Category   string
}

// Calculator executes price calculations. It is safe for concurrent use; all
// per-calculation state lives in the run.
type Calculator struct {
	configs  ConfigSource
	sessions SessionFactory
	solver   CaptchaSolver
	status   *status.Registry
	logger   *slog.Logger

	// sleep is swapped in tests so handlers do not block on real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a calculator. The solver may be nil; captcha steps configured
// for external solving then fail (subject to skip_on_failure).
func New(configs ConfigSource, sessions SessionFactory, solver CaptchaSolver, registry *status.Registry) *Calculator {
	return &Calculator{
		configs:  configs,
		sessions: sessions,
		solver:   solver,
		status:   registry,
		logger:   slog.Default().With("component", "calculator"),
		sleep:    sleepContext,
	}
}

// run is the per-calculation state shared by the step handlers.
type run struct {
	c         *Calculator
	ctx       context.Context
	page      automation.Page
	requestID string
	dims      models.Dimensions
	country   *models.CountryConfig
	cfg       *models.DomainConfig
	rng       *rand.Rand
}

func (r *run) report(message, stepType string, details map[string]string) {
	r.c.status.Report(r.requestID, message, stepType, details)
}

func (r *run) sleep(d time.Duration) error {
	return r.c.sleep(r.ctx, d)
}

// stepOutcome carries a handler result that affects interpreter control flow.
type stepOutcome struct {
	price    *float64
	decision *configDecision
}

// configDecision is a decide_config handler's verdict.
type configDecision struct {
	Switch bool
	Target string
}

// NormalizeDomain reduces a URL to its bare host: schemeless URLs get an
// http:// prefix before parsing, and a leading www. is stripped.
func NormalizeDomain(rawURL string) string {
	candidate := rawURL
	if !strings.Contains(candidate, "://") {
		candidate = "http://" + candidate
	}
	parsed, err := url.Parse(candidate)
	if err != nil || parsed.Hostname() == "" {
		return strings.TrimPrefix(strings.TrimSpace(rawURL), "www.")
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

// Calculate resolves the domain's configuration, opens an isolated session
// and runs the requested category's step list until a read_price step
// produces a price. The returned result holds the VAT-exclusive and
// VAT-inclusive prices rounded to 2 decimals.
func (c *Calculator) Calculate(ctx context.Context, req Request) (*models.PriceResult, error) {
	defer c.status.ScheduleCleanup(req.RequestID)

	result, err := c.calculate(ctx, req)
	if err != nil {
		c.status.Report(req.RequestID, fmt.Sprintf("Error calculating price: %v", err), "error", nil)
		return nil, err
	}
	return result, nil
}

func (c *Calculator) calculate(ctx context.Context, req Request) (*models.PriceResult, error) {
	domain := NormalizeDomain(req.URL)

	cfg, err := c.configs.DomainConfig(ctx, domain)
	if err != nil || cfg == nil {
		c.status.Report(req.RequestID, fmt.Sprintf("No configuration found for domain: %s", domain), "error", nil)
		return nil, fmt.Errorf("%w: domain %q", ErrConfigurationMissing, domain)
	}

	country, err := c.configs.CountryConfig(ctx, req.Country)
	if err != nil || country == nil {
		c.status.Report(req.RequestID, fmt.Sprintf("No configuration found for country: %s", req.Country), "error", nil)
		return nil, fmt.Errorf("%w: country %q", ErrConfigurationMissing, req.Country)
	}

	category, ok := cfg.Categories[req.Category]
	if !ok {
		return nil, fmt.Errorf("%w: category %q not supported for domain %q", ErrConfigurationMissing, req.Category, domain)
	}

	c.status.Report(req.RequestID, fmt.Sprintf("Using configuration for %s", domain), "config", map[string]string{"domain": domain})
	c.status.Report(req.RequestID, fmt.Sprintf("Starting price calculation for %s", domain), "config", map[string]string{
		"url":       req.URL,
		"thickness": pricing.FormatValue(req.Dimensions.Thickness),
		"length":    pricing.FormatValue(req.Dimensions.Length),
		"width":     pricing.FormatValue(req.Dimensions.Width),
		"quantity":  pricing.FormatValue(req.Dimensions.Quantity),
		"country":   req.Country,
		"domain":    domain,
	})

	session, err := c.sessions(ctx, SessionOptions{DisableCanvasWebGL: cfg.DisableCanvasWebGL})
	if err != nil {
		return nil, fmt.Errorf("failed to open automation session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			c.logger.Warn("failed to close session", "error", cerr)
		}
	}()

	r := &run{
		c:         c,
		ctx:       ctx,
		page:      session.Page(),
		requestID: req.RequestID,
		dims:      req.Dimensions,
		country:   country,
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	r.report(fmt.Sprintf("Navigating to %s", req.URL), "navigation", map[string]string{"url": req.URL})
	if err := r.page.Goto(req.URL, automation.LoadStateLoad, defaultNavigationTimeout); err != nil {
		return nil, fmt.Errorf("failed to navigate to %q: %w", req.URL, err)
	}
	r.waitForPageReady()

	return r.execute(req.Category, category.Steps)
}

// execute walks the step list with a cursor. decide_config may reset the
// cursor against a different category's list; read_price terminates the walk.
func (r *run) execute(category string, steps []models.Step) (*models.PriceResult, error) {
	current := category
	cursor := 0

	for cursor < len(steps) {
		step := &steps[cursor]

		outcome, err := r.executeStep(step)
		if err != nil {
			if !step.ContinueOnError {
				return nil, fmt.Errorf("category %q step %d (%s): %w", current, cursor, step.Type, err)
			}
			r.report(fmt.Sprintf("Step failed but continuing: %v", err), "warn", map[string]string{
				"step_type": string(step.Type),
				"selector":  step.Selector,
				"error":     err.Error(),
			})
			if step.Type == models.StepReadPrice {
				r.report("Returning 0.00 for failed price reading step", "complete", map[string]string{
					"price_excl_vat": "0.00",
					"price_incl_vat": "0.00",
				})
				return &models.PriceResult{}, nil
			}
			cursor++
			continue
		}

		if outcome.decision != nil {
			if outcome.decision.Switch {
				target := outcome.decision.Target
				if next, ok := r.cfg.Categories[target]; ok {
					r.report(
						fmt.Sprintf("Switching from '%s' to '%s' configuration", current, target),
						"config_switch",
						map[string]string{"from_config": current, "to_config": target, "reason": "decide_config_triggered"},
					)
					current = target
					steps = next.Steps
					cursor = 0
					continue
				}
				r.report(fmt.Sprintf("Fallback configuration '%s' not found, continuing with current", target), "warn", nil)
			}
			cursor++
			continue
		}

		if outcome.price != nil {
			return r.finish(step, *outcome.price), nil
		}

		cursor++
	}

	return nil, fmt.Errorf("category %q finished without a read_price step", current)
}

// finish applies VAT and reports the terminal status with the formatted
// display prices.
func (r *run) finish(step *models.Step, raw float64) *models.PriceResult {
	excl, incl := pricing.ApplyVAT(raw, r.country.VATRate, step.IncludesVAT)
	result := &models.PriceResult{
		ExclVAT: pricing.Round2(excl),
		InclVAT: pricing.Round2(incl),
	}

	r.report("Price calculation completed", "complete", map[string]string{
		"price_excl_vat":      strconv.FormatFloat(result.ExclVAT, 'f', 2, 64),
		"price_incl_vat":      strconv.FormatFloat(result.InclVAT, 'f', 2, 64),
		"currency":            r.country.Currency,
		"currency_symbol":     r.country.CurrencySymbol,
		"currency_format":     r.country.CurrencyFormat,
		"decimal_separator":   r.country.DecimalSeparator,
		"thousands_separator": r.country.ThousandsSeparator,
		"formatted_excl":      pricing.FormatPrice(result.ExclVAT, r.country.CurrencyFormat, r.country.DecimalSeparator, r.country.ThousandsSeparator),
		"formatted_incl":      pricing.FormatPrice(result.InclVAT, r.country.CurrencyFormat, r.country.DecimalSeparator, r.country.ThousandsSeparator),
	})

	return result
}

// executeStep dispatches one step to its handler. The step set is closed;
// config validation rejects unknown types before a run starts.
func (r *run) executeStep(step *models.Step) (stepOutcome, error) {
	r.jiggleMouse(step)

	switch step.Type {
	case models.StepSelect:
		return stepOutcome{}, r.handleSelect(step)
	case models.StepInput:
		return stepOutcome{}, r.handleInput(step)
	case models.StepClick:
		return stepOutcome{}, r.handleClick(step)
	case models.StepWait:
		return stepOutcome{}, r.handleWait(step)
	case models.StepBlur:
		return stepOutcome{}, r.handleBlur(step)
	case models.StepModifyElement:
		return stepOutcome{}, r.handleModifyElement(step)
	case models.StepReadPrice:
		price, err := r.handleReadPrice(step)
		if err != nil {
			return stepOutcome{}, err
		}
		return stepOutcome{price: &price}, nil
	case models.StepNavigate:
		return stepOutcome{}, r.handleNavigate(step)
	case models.StepReload:
		return stepOutcome{}, r.handleReload(step)
	case models.StepCaptcha:
		return stepOutcome{}, r.handleCaptcha(step)
	case models.StepDecideConfig:
		decision, err := r.handleDecideConfig(step)
		if err != nil {
			return stepOutcome{}, err
		}
		return stepOutcome{decision: &decision}, nil
	default:
		return stepOutcome{}, fmt.Errorf("unknown step type %q", step.Type)
	}
}

// jiggleMouse moves the pointer somewhere random before interactive steps so
// the session produces pointer events like a human visitor would.
func (r *run) jiggleMouse(step *models.Step) {
	switch step.Type {
	case models.StepClick, models.StepInput, models.StepSelect:
		_ = r.page.MouseMove(r.rng.Float64()*1920, r.rng.Float64()*1080)
	}
}

// waitForPageReady tries three readiness strategies in order of strictness
// and proceeds regardless, so a slow third-party page never stalls the run.
func (r *run) waitForPageReady() {
	r.report("Waiting for page to load completely", "loading", nil)

	if err := r.page.WaitForLoadState(automation.LoadStateNetworkIdle, networkIdleTimeout); err == nil {
		r.report("Page loaded successfully (networkidle)", "loaded", nil)
		return
	}
	if err := r.page.WaitForLoadState(automation.LoadStateDOMContentLoaded, domContentTimeout); err == nil {
		_ = r.sleep(2 * time.Second)
		r.report("Page loaded successfully (domcontentloaded)", "loaded", nil)
		return
	}
	_ = r.sleep(3 * time.Second)
	r.report("Page load timeout, proceeding anyway", "loaded", nil)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
