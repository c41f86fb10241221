// Package resilience provides the fault-tolerance primitives used around the
// remote index sources and the shared result cache: a circuit breaker and
// exponential-backoff retry.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current phase of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig controls failure thresholds and recovery timing.
// Zero values take the defaults.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int

	// IsFailure decides which errors count against the circuit. By default
	// every error does except context cancellation, which is the caller
	// giving up rather than the backend failing.
	IsFailure func(err error) bool

	// OnStateChange is called, with the breaker's lock held, on every
	// transition. It must not call back into the breaker.
	OnStateChange func(name string, from, to State)
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// CircuitBreaker trips open after FailureThreshold consecutive failures,
// rejects calls for ResetTimeout, then lets HalfOpenMaxRequests probes
// through: one success closes it again, one failure re-opens it.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	state       State
	failures    int
	openedAt    time.Time
	probes      int
	transitions int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = defaultIsFailure
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
		now:    time.Now,
	}
}

func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs fn if the circuit allows it and records the outcome. A
// rejected call returns an error wrapping ErrCircuitOpen without running fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

// GetState returns the current State, moving an expired open circuit to
// half-open first.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expireOpen()
	return cb.state
}

// Transitions counts state changes since creation.
func (cb *CircuitBreaker) Transitions() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.transitions
}

// Reset forces the circuit back to closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.setState(StateClosed, "manual reset")
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expireOpen()
	switch cb.state {
	case StateOpen:
		wait := cb.cfg.ResetTimeout - cb.now().Sub(cb.openedAt)
		return fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
	case StateHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenMaxRequests {
			return fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if !cb.cfg.IsFailure(err) {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.setState(StateClosed, "probe succeeded")
		}
		return
	}
	cb.failures++
	switch {
	case cb.state == StateHalfOpen:
		cb.setState(StateOpen, "probe failed")
	case cb.state == StateClosed && cb.failures >= cb.cfg.FailureThreshold:
		cb.setState(StateOpen, fmt.Sprintf("%d consecutive failures", cb.failures))
	}
}

// expireOpen moves an open circuit whose timeout has elapsed to half-open.
func (cb *CircuitBreaker) expireOpen() {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		cb.setState(StateHalfOpen, "reset timeout elapsed")
	}
}

func (cb *CircuitBreaker) setState(to State, reason string) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.transitions++
	switch to {
	case StateOpen:
		cb.openedAt = cb.now()
		cb.logger.Warn("circuit opened", "from", from.String(), "reason", reason)
	case StateHalfOpen:
		cb.probes = 0
		cb.logger.Info("circuit half-open", "reason", reason)
	case StateClosed:
		cb.probes = 0
		cb.logger.Info("circuit closed", "from", from.String(), "reason", reason)
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}
