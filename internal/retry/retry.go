// Package retry runs a unit of work with a bounded number of attempts and a
// linear, jitter-free delay between them.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chronolookup-api/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Config holds the retry policy.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Default returns 3 attempts with delays of 1s then 2s.
func Default() Config {
	return Config{MaxAttempts: 3, BaseDelay: time.Second}
}

// ExhaustedError is returned after the final attempt fails.
type ExhaustedError struct {
	Operation string
	Attempts  int
	Last      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Operation, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// linearBackOff yields attempt*base after each failure and stops once the
// attempt budget is spent.
type linearBackOff struct {
	base     time.Duration
	max      int
	attempts int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempts++
	if b.attempts >= b.max {
		return backoff.Stop
	}
	return time.Duration(b.attempts) * b.base
}

func (b *linearBackOff) Reset() { b.attempts = 0 }

// Controller executes operations under the configured policy.
type Controller struct {
	cfg   Config
	timer func() backoff.Timer
	log   zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimer replaces the wall-clock timer used between attempts.
func WithTimer(newTimer func() backoff.Timer) Option {
	return func(c *Controller) { c.timer = newTimer }
}

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l.With().Str("component", "Retry").Logger() }
}

// NewController creates a controller. Non-positive attempts fall back to 1.
func NewController(cfg Config, opts ...Option) *Controller {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	c := &Controller{cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the active policy.
func (c *Controller) Config() Config { return c.cfg }

// Run invokes op until it succeeds or the attempts are exhausted. The caller
// blocks for the whole sequence. Cancelling ctx stops the wait between
// attempts; callers that need run-to-completion pass a detached context.
func (c *Controller) Run(ctx context.Context, name string, op func(ctx context.Context) error) error {
	attempts := 0
	var last error

	operation := func() error {
		attempts++
		err := op(ctx)
		if err != nil {
			last = err
			metrics.RetryAttempts.WithLabelValues(name, "failure").Inc()
			return err
		}
		metrics.RetryAttempts.WithLabelValues(name, "success").Inc()
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.log.Warn().Err(err).
			Str("operation", name).
			Int("attempt", attempts).
			Dur("wait", wait).
			Msg("attempt failed, retrying")
	}

	var timer backoff.Timer
	if c.timer != nil {
		timer = c.timer()
	}

	b := backoff.WithContext(&linearBackOff{base: c.cfg.BaseDelay, max: c.cfg.MaxAttempts}, ctx)
	err := backoff.RetryNotifyWithTimer(operation, b, notify, timer)
	if err == nil {
		return nil
	}
	if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) {
		return err
	}

	c.log.Error().Err(last).Str("operation", name).Int("attempts", attempts).Msg("retries exhausted")
	return &ExhaustedError{Operation: name, Attempts: attempts, Last: last}
}
