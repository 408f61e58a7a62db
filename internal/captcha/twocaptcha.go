// Package captcha implements the 2captcha solving-service client: submit a
// task, then poll for the solution with backoff until a total wait bound.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://2captcha.com"

	initialPollDelay = 5 * time.Second
	maxPollDelay     = 15 * time.Second
	pollBackoff      = 1.5
	totalWaitBound   = 120 * time.Second
)

// Solver talks to the 2captcha HTTP API.
type Solver struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	// sleep is swapped in tests so polling does not take real time.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSolver creates a solver against the public 2captcha endpoint.
func NewSolver() *Solver {
	return &Solver{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default().With("component", "captcha"),
		sleep:   sleepContext,
	}
}

type apiResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// SolveRecaptchaV2 submits a reCAPTCHA v2 task and polls until the service
// returns a token or the total wait bound expires.
func (s *Solver) SolveRecaptchaV2(ctx context.Context, apiKey, siteKey, pageURL string) (string, error) {
	taskID, err := s.submit(ctx, apiKey, siteKey, pageURL)
	if err != nil {
		return "", err
	}
	s.logger.Info("captcha task submitted", "task_id", taskID)
	return s.poll(ctx, apiKey, taskID)
}

func (s *Solver) submit(ctx context.Context, apiKey, siteKey, pageURL string) (string, error) {
	params := url.Values{}
	params.Set("key", apiKey)
	params.Set("method", "userrecaptcha")
	params.Set("googlekey", siteKey)
	params.Set("pageurl", pageURL)
	params.Set("invisible", "1")
	params.Set("json", "1")

	resp, err := s.get(ctx, s.baseURL+"/in.php?"+params.Encode())
	if err != nil {
		return "", fmt.Errorf("failed to submit captcha task: %w", err)
	}
	if resp.Status != 1 {
		return "", fmt.Errorf("captcha task rejected: %s", resp.Request)
	}
	return resp.Request, nil
}

func (s *Solver) poll(ctx context.Context, apiKey, taskID string) (string, error) {
	params := url.Values{}
	params.Set("key", apiKey)
	params.Set("action", "get")
	params.Set("id", taskID)
	params.Set("json", "1")
	endpoint := s.baseURL + "/res.php?" + params.Encode()

	deadline := time.Now().Add(totalWaitBound)
	delay := initialPollDelay

	for {
		if err := s.sleep(ctx, delay); err != nil {
			return "", err
		}

		resp, err := s.get(ctx, endpoint)
		if err != nil {
			return "", fmt.Errorf("failed to poll captcha task %s: %w", taskID, err)
		}
		if resp.Status == 1 {
			return resp.Request, nil
		}
		if !strings.Contains(resp.Request, "CAPCHA_NOT_READY") {
			return "", fmt.Errorf("captcha task %s failed: %s", taskID, resp.Request)
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("captcha task %s not solved within %s", taskID, totalWaitBound)
		}

		delay = time.Duration(float64(delay) * pollBackoff)
		if delay > maxPollDelay {
			delay = maxPollDelay
		}
	}
}

func (s *Solver) get(ctx context.Context, endpoint string) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response %q: %w", string(body), err)
	}
	return &parsed, nil
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
