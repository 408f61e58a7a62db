// Package status tracks per-request calculation progress. The registry is a
// last-write-wins register keyed by request id: only the most recent status
// per request is retained, and consumers poll rather than block.
package status

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultRetention is how long the final status stays readable after a
// calculation reaches a terminal state, so a late-attaching consumer still
// observes it.
const DefaultRetention = 30 * time.Second

// Update is one status snapshot for a request.
type Update struct {
	Message     string            `json:"message"`
	StepType    string            `json:"step_type,omitempty"`
	StepDetails map[string]string `json:"step_details,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Mirror receives every stored update, for fan-out to an external transport.
type Mirror interface {
	Publish(requestID string, update Update)
}

// Registry is the request-keyed status register shared between a calculation
// and its status consumers. Writes overwrite, reads poll.
type Registry struct {
	mu        sync.RWMutex
	updates   map[string]Update
	retention time.Duration
	mirror    Mirror
	logger    *slog.Logger

	// afterFunc is swapped in tests to make delayed cleanup synchronous.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// NewRegistry creates a registry with the default retention window.
func NewRegistry() *Registry {
	return &Registry{
		updates:   make(map[string]Update),
		retention: DefaultRetention,
		logger:    slog.Default().With("component", "status"),
		afterFunc: time.AfterFunc,
	}
}

// WithMirror attaches an external mirror receiving every update.
func (r *Registry) WithMirror(m Mirror) *Registry {
	r.mirror = m
	return r
}

// WithRetention overrides the retention window. Nonpositive values keep the
// default.
func (r *Registry) WithRetention(d time.Duration) *Registry {
	if d > 0 {
		r.retention = d
	}
	return r
}

// Report stores the latest status for a request, overwriting any prior entry.
// Values for selectors containing "password" are redacted before storage.
func (r *Registry) Report(requestID, message, stepType string, details map[string]string) {
	if requestID == "" {
		return
	}

	update := Update{
		Message:     message,
		StepType:    stepType,
		StepDetails: redact(stepType, details),
		Timestamp:   time.Now(),
	}

	r.mu.Lock()
	r.updates[requestID] = update
	r.mu.Unlock()

	r.log(update)

	if r.mirror != nil {
		r.mirror.Publish(requestID, update)
	}
}

// Get returns the latest status for a request.
func (r *Registry) Get(requestID string) (Update, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.updates[requestID]
	return u, ok
}

// ScheduleCleanup removes the request's entry after the retention window.
// Called once the calculation reaches a terminal state.
func (r *Registry) ScheduleCleanup(requestID string) {
	if requestID == "" {
		return
	}
	r.afterFunc(r.retention, func() {
		r.mu.Lock()
		delete(r.updates, requestID)
		r.mu.Unlock()
	})
}

// Cleanup removes the request's entry immediately.
func (r *Registry) Cleanup(requestID string) {
	r.mu.Lock()
	delete(r.updates, requestID)
	r.mu.Unlock()
}

func redact(stepType string, details map[string]string) map[string]string {
	if details == nil {
		return nil
	}
	safe := make(map[string]string, len(details))
	for k, v := range details {
		safe[k] = v
	}
	if stepType == "input" && strings.Contains(strings.ToLower(safe["selector"]), "password") {
		if _, ok := safe["value"]; ok {
			safe["value"] = "[HIDDEN]"
		}
	}
	return safe
}

// log renders the update as "[STEPTYPE] message (k='v', ...)", at a level
// inferred from the message.
func (r *Registry) log(u Update) {
	var parts []string
	if u.StepType != "" {
		parts = append(parts, "["+strings.ToUpper(u.StepType)+"]")
	}
	parts = append(parts, u.Message)

	if len(u.StepDetails) > 0 {
		keys := make([]string, 0, len(u.StepDetails))
		for k := range u.StepDetails {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s='%s'", k, u.StepDetails[k]))
		}
		parts = append(parts, "("+strings.Join(pairs, ", ")+")")
	}

	msg := strings.Join(parts, " ")
	lower := strings.ToLower(u.Message)
	switch {
	case strings.Contains(lower, "error"):
		r.logger.Error(msg)
	case strings.Contains(lower, "warn"), strings.Contains(lower, "could not"):
		r.logger.Warn(msg)
	default:
		r.logger.Info(msg)
	}
}
