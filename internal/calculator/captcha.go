package calculator

import (
	"fmt"
	"strings"
	"time"

	"github.com/pricewatch/competitor-price-watcher/internal/models"
)

// captchaAPIKeySetting is the settings key holding the solving-service
// credential.
const captchaAPIKeySetting = "2captcha_api_key"

const siteKeyScript = `() => {
	for (const element of document.getElementsByTagName('div')) {
		if (element.getAttribute('data-sitekey')) {
			return element.getAttribute('data-sitekey');
		}
	}
	return null;
}`

const injectSolutionScript = `(response) => {
	document.getElementById('g-recaptcha-response').innerHTML = response;
	___grecaptcha_cfg.clients[0].K.K.callback(response);
}`

// handleCaptcha dispatches to manual solving (click and wait for the visitor
// or the site to resolve the challenge) or an external solving service.
// Failures degrade to a warning unless skip_on_failure is explicitly false.
func (r *run) handleCaptcha(step *models.Step) error {
	r.report("Handling captcha...", "captcha", nil)

	err := r.solveCaptcha(step)
	if err != nil {
		if step.ShouldSkipOnFailure() {
			r.report(fmt.Sprintf("Captcha handling failed: %v, continuing...", err), "warn", nil)
			return nil
		}
		r.report(fmt.Sprintf("Captcha handling failed: %v", err), "error", nil)
		return fmt.Errorf("%w: %v", ErrCaptchaFailed, err)
	}

	r.report("Captcha handled successfully", "captcha", map[string]string{"status": "success"})
	return nil
}

func (r *run) solveCaptcha(step *models.Step) error {
	if strings.Contains(strings.ToLower(step.SolvingMethod), "2captcha") {
		return r.solveExternally(step)
	}
	return r.solveManually(step)
}

// solveExternally fetches the site key from the page, submits it to the
// solving service and injects the returned token.
func (r *run) solveExternally(step *models.Step) error {
	apiKey, err := r.c.configs.Setting(r.ctx, captchaAPIKeySetting)
	if err != nil || apiKey == "" {
		r.report("No 2Captcha API key configured in settings", "error", nil)
		return fmt.Errorf("2Captcha API key not configured")
	}
	if r.c.solver == nil {
		return fmt.Errorf("no captcha solver configured")
	}

	if step.CaptchaType == "recaptcha_v2" {
		if step.FrameSelector != "" {
			if _, ferr := r.page.QuerySelector(step.FrameSelector); ferr != nil {
				return fmt.Errorf("captcha frame not found: %s", step.FrameSelector)
			}
		}

		raw, eerr := r.page.Evaluate(siteKeyScript)
		if eerr != nil {
			return fmt.Errorf("failed to look up sitekey: %w", eerr)
		}
		siteKey, _ := raw.(string)
		if siteKey == "" {
			return fmt.Errorf("reCAPTCHA sitekey not found")
		}

		token, serr := r.c.solver.SolveRecaptchaV2(r.ctx, apiKey, siteKey, r.page.URL())
		if serr != nil {
			return fmt.Errorf("failed to solve reCAPTCHA: %w", serr)
		}

		if _, ierr := r.page.Evaluate(injectSolutionScript, token); ierr != nil {
			return fmt.Errorf("failed to inject captcha solution: %w", ierr)
		}
		return nil
	}

	return r.clickCaptchaCheckbox(step)
}

// solveManually clicks the checkbox and, for reCAPTCHA v2, waits for the
// response field to populate.
func (r *run) solveManually(step *models.Step) error {
	if err := r.clickCaptchaCheckbox(step); err != nil {
		return err
	}

	if step.CaptchaType == "recaptcha_v2" {
		r.report("Waiting for manual captcha solution...", "captcha", nil)
		_, err := r.page.WaitForFunction(
			`() => document.querySelector('textarea#g-recaptcha-response')?.value`,
			60*time.Second,
		)
		if err != nil {
			return fmt.Errorf("captcha solution not provided in time: %w", err)
		}
	}
	return nil
}

func (r *run) clickCaptchaCheckbox(step *models.Step) error {
	selector := step.Selector
	if selector == "" {
		selector = `input[type="checkbox"]`
	}
	checkbox, err := r.page.QuerySelector(selector)
	if err != nil || checkbox == nil {
		return fmt.Errorf("captcha checkbox not found")
	}
	return checkbox.Click()
}
