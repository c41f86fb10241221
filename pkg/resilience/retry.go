package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Retry hands it back on the
// first occurrence; errors.Is still sees through it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, came from Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// RetryConfig shapes an exponential backoff. Zero fields take the defaults
// 3 attempts, 100ms initial delay, 10s cap, x2 growth and 10% jitter.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2
	}
	if c.JitterFraction <= 0 {
		c.JitterFraction = 0.1
	}
	return c
}

// backoff is the wait after the given failed attempt (1-based). u in [0,1)
// places the delay inside the jitter band.
func (c RetryConfig) backoff(attempt int, u float64) time.Duration {
	d := float64(c.InitialDelay)
	for i := 1; i < attempt && d < float64(c.MaxDelay); i++ {
		d *= c.Multiplier
	}
	d += d * c.JitterFraction * (2*u - 1)
	if d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	return time.Duration(d)
}

// ExhaustedError is returned once every attempt has failed.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Retry runs fn until it succeeds or one of these happens: fn returns a
// Permanent error (returned as is), ctx ends (its error is wrapped), or the
// attempts run out (an *ExhaustedError).
func Retry(ctx context.Context, op string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	log := slog.Default().With("component", "retry", "operation", op)

	for attempt := 1; ; attempt++ {
		err := fn()
		switch {
		case err == nil:
			if attempt > 1 {
				log.Info("recovered", "attempt", attempt)
			}
			return nil
		case IsPermanent(err):
			return err
		case attempt >= cfg.MaxAttempts:
			return &ExhaustedError{Op: op, Attempts: attempt, Err: err}
		}

		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w (last error: %v)", op, ctx.Err(), err)
		}
		wait := cfg.backoff(attempt, rand.Float64())
		log.Warn("attempt failed", "attempt", attempt, "of", cfg.MaxAttempts, "wait", wait, "error", err)
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%s: %w (last error: %v)", op, ctx.Err(), err)
		}
	}
}
