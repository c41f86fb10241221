// Package health runs the dependency checks behind the liveness and
// readiness probes. Checks run concurrently, each under its own deadline.
// Components registered as optional can only degrade the service: the API
// answers without its analytics broker, but not without a usable index.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Status represents the health state of a component or the system overall.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// DefaultCheckTimeout bounds a single check.
const DefaultCheckTimeout = 2 * time.Second

// Check is a function that probes a single dependency and returns its status.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth holds the result of a single component check.
type ComponentHealth struct {
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// Report is the aggregated result of all component checks.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// PingCheck adapts a ping-style probe into a Check: any error reports the
// component as down.
func PingCheck(ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: StatusDown, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

type registration struct {
	check    Check
	optional bool
}

// Checker manages registered health checks and runs them concurrently.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]registration
	timeout time.Duration
	started time.Time
	logger  *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		checks:  make(map[string]registration),
		timeout: DefaultCheckTimeout,
		started: time.Now(),
		logger:  slog.Default().With("component", "health"),
	}
}

// SetTimeout changes the per-check deadline.
func (c *Checker) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// Register adds a check whose failure takes the service down.
func (c *Checker) Register(name string, check Check) {
	c.register(name, check, false)
}

// RegisterOptional adds a check whose failure only degrades the service.
func (c *Checker) RegisterOptional(name string, check Check) {
	c.register(name, check, true)
}

func (c *Checker) register(name string, check Check, optional bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registration{check: check, optional: optional}
}

// Run executes every check and reports the worst status, with an optional
// component's down counted as degraded.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]registration, len(c.checks))
	for name, reg := range c.checks {
		checks[name] = reg
	}
	timeout := c.timeout
	c.mu.RUnlock()

	results := make(chan struct {
		name string
		ComponentHealth
	}, len(checks))
	for name, reg := range checks {
		go func() {
			h := c.runOne(ctx, reg.check, timeout)
			h.Optional = reg.optional
			results <- struct {
				name string
				ComponentHealth
			}{name, h}
		}()
	}

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for range checks {
		r := <-results
		report.Components[r.name] = r.ComponentHealth
		report.Status = worse(report.Status, effective(r.ComponentHealth))
	}
	if report.Status != StatusUp {
		c.logger.Debug("health check not up", "status", report.Status)
	}
	return report
}

// runOne runs check under its own deadline. A check that overruns is
// reported down without waiting for it.
func (c *Checker) runOne(ctx context.Context, check Check, timeout time.Duration) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	done := make(chan ComponentHealth, 1)
	go func() { done <- check(ctx) }()

	var h ComponentHealth
	select {
	case h = <-done:
	case <-ctx.Done():
		h = ComponentHealth{Status: StatusDown, Message: fmt.Sprintf("check timed out after %s", timeout)}
	}
	h.Latency = time.Since(start).Round(time.Millisecond).String()
	return h
}

func effective(h ComponentHealth) Status {
	if h.Optional && h.Status == StatusDown {
		return StatusDegraded
	}
	return h.Status
}

func worse(a, b Status) Status {
	rank := map[Status]int{StatusUp: 0, StatusDegraded: 1, StatusDown: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// LiveHandler answers liveness probes: the process is serving.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler answers readiness probes. A degraded service still answers
// 200: an empty API index leaves validation running with every class
// unknown.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
