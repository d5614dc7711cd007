// Package retry runs one unit of bulk work (a chunk or a page) until it
// succeeds.
//
// Bulk retrieval is idempotent and read-only, so the default policy retries
// transient failures without an upper bound: a long download survives
// extended outages, at the cost of blocking for as long as the remote
// service keeps failing. Set Policy.MaxRetries to bound it.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/eutils-client/internal/clock"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eutils_retries_total",
		Help: "Total number of retry attempts by unit kind",
	}, []string{"unit"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eutils_retry_exhausted_total",
		Help: "Total number of units that exhausted a configured retry cap",
	}, []string{"unit"})

	unitsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eutils_units_completed_total",
		Help: "Total number of bulk units (chunks, pages) retrieved successfully",
	}, []string{"unit"})
)

// ErrRetryExhausted is returned when a capped policy runs out of attempts.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// Transient is implemented by errors worth retrying.
type Transient interface {
	Transient() bool
}

// IsTransient reports whether any error in err's chain is transient.
func IsTransient(err error) bool {
	var t Transient
	return errors.As(err, &t) && t.Transient()
}

// StatusError reports a response whose status code is not 200.
type StatusError struct {
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("status code != 200 (= %d)", e.StatusCode)
}

// Transient implements Transient.
func (e *StatusError) Transient() bool { return true }

// Policy configures the retry loop.
type Policy struct {
	// Interval is the pause between successful units; failed attempts wait
	// twice as long.
	Interval time.Duration

	// MaxRetries caps retries per unit; zero retries forever.
	MaxRetries int

	// Clock drives sleeps; nil uses the wall clock.
	Clock clock.Clock

	// Logger receives retry warnings; nil uses the global logger.
	Logger *zerolog.Logger
}

// Backoff returns the delay before retrying a failed unit.
func (p Policy) Backoff() time.Duration {
	return 2 * p.Interval
}

// Sleep pauses for d using the policy clock.
func (p Policy) Sleep(ctx context.Context, d time.Duration) error {
	return p.clock().Sleep(ctx, d)
}

func (p Policy) clock() clock.Clock {
	if p.Clock == nil {
		return clock.Real{}
	}
	return p.Clock
}

func (p Policy) logger() *zerolog.Logger {
	if p.Logger == nil {
		l := log.With().Str("component", "retry").Logger()
		return &l
	}
	return p.Logger
}

// Do calls fn until it returns a nil or non-transient error. After each
// transient failure it logs a warning naming the unit and its index, then
// sleeps Backoff. It returns the result and the number of retries made.
func Do[T any](ctx context.Context, p Policy, unit string, index int, fn func(ctx context.Context) (T, error)) (T, int, error) {
	var zero T
	logger := p.logger()

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			unitsCompletedTotal.WithLabelValues(unit).Inc()
			if attempt > 0 {
				logger.Info().
					Str("unit", unit).
					Int("index", index).
					Int("retries", attempt).
					Msg("Unit succeeded after retry")
			}
			return result, attempt, nil
		}

		if !IsTransient(err) {
			return zero, attempt, err
		}

		if p.MaxRetries > 0 && attempt >= p.MaxRetries {
			retryExhaustedTotal.WithLabelValues(unit).Inc()
			logger.Error().
				Str("unit", unit).
				Int("index", index).
				Int("max_retries", p.MaxRetries).
				Err(err).
				Msg("Retry attempts exhausted")
			return zero, attempt, fmt.Errorf("%s %d: %w after %d retries: %v", unit, index, ErrRetryExhausted, attempt, err)
		}

		backoff := p.Backoff()
		retriesTotal.WithLabelValues(unit).Inc()
		logger.Warn().
			Str("unit", unit).
			Int("index", index).
			Dur("retry_in", backoff).
			Str("reason", err.Error()).
			Msgf("Failed to fetch %d-th %s, retrying in %s", index, unit, backoff)

		if err := p.Sleep(ctx, backoff); err != nil {
			return zero, attempt, fmt.Errorf("%s %d: retry backoff: %w", unit, index, err)
		}
	}
}
