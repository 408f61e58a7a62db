package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/pricewatch/competitor-price-watcher/internal/automation"
)

// Options configures one automation session.
type Options struct {
	Headless           bool
	Timeout            time.Duration
	UserAgent          string
	ViewportWidth      int
	ViewportHeight     int
	Locale             string
	TimezoneID         string
	DisableCanvasWebGL bool
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        120 * time.Second,
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Locale:         "nl-NL",
		TimezoneID:     "Europe/Amsterdam",
	}
}

// Session owns one isolated browser context and page for a single price
// calculation. Nothing is shared between sessions: each starts from empty
// storage and is torn down through Close once the step loop finishes.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	logger  *slog.Logger
}

const initScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['nl-NL', 'nl', 'en-US', 'en'] });
Object.defineProperty(screen, 'colorDepth', { get: () => 24 });

window.addEventListener('load', () => {
	localStorage.clear();
	sessionStorage.clear();
	indexedDB.deleteDatabase('_all_');
});
`

// NewSession launches a browser and opens a fresh context and page.
func NewSession(opts *Options) (*Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	args := []string{
		"--disable-blink-features=AutomationControlled",
		"--disable-features=IsolateOrigins,site-per-process",
		"--disable-application-cache",
		"--disable-cache",
		"--disable-offline-load-stale-cache",
		"--disk-cache-size=0",
		"--user-agent=" + opts.UserAgent,
	}
	if opts.DisableCanvasWebGL {
		args = append(args,
			"--disable-accelerated-2d-canvas",
			"--disable-webgl",
			"--disable-gpu",
			"--disable-software-rasterizer",
		)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     args,
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(opts.UserAgent),
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		Locale:            playwright.String(opts.Locale),
		TimezoneId:        playwright.String(opts.TimezoneID),
		Geolocation:       &playwright.Geolocation{Latitude: 52.3676, Longitude: 4.9041},
		Permissions:       []string{"geolocation"},
		ColorScheme:       playwright.ColorSchemeLight,
		HasTouch:          playwright.Bool(true),
		IsMobile:          playwright.Bool(false),
		DeviceScaleFactor: playwright.Float(2),
		JavaScriptEnabled: playwright.Bool(true),
		IgnoreHttpsErrors: playwright.Bool(true),
		BypassCSP:         playwright.Bool(true),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	if err := context.AddInitScript(playwright.Script{Content: playwright.String(initScript)}); err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to add init script: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	return &Session{
		pw:      pw,
		browser: browser,
		context: context,
		page:    page,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

// Page returns the session page behind the automation capability.
func (s *Session) Page() automation.Page {
	return &pwPage{page: s.page}
}

// Close releases the context, browser and driver. Safe to call from a defer
// on every exit path.
func (s *Session) Close() error {
	var errs []error

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}
