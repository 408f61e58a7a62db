package calculator

import "errors"

var (
	// ErrConfigurationMissing means no domain, country or category
	// configuration exists for the request. Fatal, surfaced to the caller.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrElementNotFound means a selector matched nothing within its wait
	// window after handler-level retries.
	ErrElementNotFound = errors.New("element not found")

	// ErrSelectionMismatch means no option matched the target value within
	// the select tolerance.
	ErrSelectionMismatch = errors.New("no matching option")

	// ErrDimensionMissing means a selector or value template referenced a
	// dimension the request did not supply. Always fatal.
	ErrDimensionMissing = errors.New("dimension missing")

	// ErrCaptchaFailed means captcha handling did not produce a solution.
	ErrCaptchaFailed = errors.New("captcha handling failed")

	// ErrCalculationFailed means a read_price calculation expression could
	// not be evaluated.
	ErrCalculationFailed = errors.New("calculation expression failed")
)
