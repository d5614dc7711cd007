package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Sternrassler/eutils-client/internal/clock"
)

// DefaultMinInterval keeps requests just under three per second.
const DefaultMinInterval = 334 * time.Millisecond

// Prometheus metrics for request throttling.
var (
	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eutils_rate_limit_waits_total",
		Help: "Total number of requests delayed by the minimal interval throttle",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eutils_rate_limit_wait_seconds",
		Help:    "Time requests spent waiting for the minimal interval",
		Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.334, 0.5, 1, 2},
	})
)

// Limiter blocks callers so that consecutive dispatches are at least
// MinInterval apart. The first dispatch never waits.
//
// With a MemoryStore the spacing is a token bucket of burst one; the store
// only mirrors the dispatch time for State. Other stores, such as RedisStore,
// are read and written on every Wait.
type Limiter struct {
	// mu serialises Wait so one limiter never lets two callers through within
	// the same interval.
	mu          sync.Mutex
	minInterval time.Duration
	store       Store
	bucket      *rate.Limiter
	clock       clock.Clock
	logger      zerolog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithStore replaces the default MemoryStore.
func WithStore(s Store) Option {
	return func(l *Limiter) { l.store = s }
}

// WithClock replaces the wall clock (for testing).
func WithClock(c clock.Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithLogger sets the limiter's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// New creates a limiter. A negative interval is treated as zero.
func New(minInterval time.Duration, opts ...Option) *Limiter {
	if minInterval < 0 {
		minInterval = 0
	}
	l := &Limiter{
		minInterval: minInterval,
		store:       NewMemoryStore(),
		clock:       clock.Real{},
		logger:      log.With().Str("component", "ratelimit").Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if mem, ok := l.store.(*MemoryStore); ok {
		l.bucket = newBucket(l.minInterval, mem)
	}
	return l
}

// newBucket returns a burst-one bucket refilling every interval. A recorded
// dispatch consumes the token at that time.
func newBucket(interval time.Duration, mem *MemoryStore) *rate.Limiter {
	bucket := rate.NewLimiter(rate.Every(interval), 1)
	if last, ok, _ := mem.LastDispatch(context.Background()); ok {
		bucket.ReserveN(last, 1)
	}
	return bucket
}

// MinInterval returns the enforced spacing.
func (l *Limiter) MinInterval() time.Duration {
	return l.minInterval
}

// State returns a snapshot of the limiter state.
func (l *Limiter) State(ctx context.Context) (State, error) {
	last, _, err := l.store.LastDispatch(ctx)
	if err != nil {
		return State{}, err
	}
	return State{LastDispatch: last, MinInterval: l.minInterval}, nil
}

// Wait blocks until a request may be dispatched, then records the dispatch
// time. It must be called immediately before issuing the request, so slow
// responses do not add throttling on top of the interval. It returns how
// long the caller was held back.
func (l *Limiter) Wait(ctx context.Context) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	var (
		wait        time.Duration
		reservation *rate.Reservation
	)
	if l.bucket != nil {
		reservation = l.bucket.ReserveN(now, 1)
		// The bucket works in float tokens; sub-microsecond remainders are noise.
		wait = reservation.DelayFrom(now).Round(time.Microsecond)
	} else {
		state, err := l.State(ctx)
		if err != nil {
			return 0, fmt.Errorf("read rate limit state: %w", err)
		}
		wait = state.WaitAt(now)
	}

	if wait > 0 {
		l.logger.Debug().
			Dur("wait", wait).
			Dur("min_interval", l.minInterval).
			Msg("Throttling request")

		rateLimitWaitsTotal.Inc()
		rateLimitWaitSeconds.Observe(wait.Seconds())

		if err := l.clock.Sleep(ctx, wait); err != nil {
			if reservation != nil {
				reservation.CancelAt(l.clock.Now())
			}
			return 0, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	if err := l.store.SetLastDispatch(ctx, l.clock.Now()); err != nil {
		return wait, fmt.Errorf("record dispatch: %w", err)
	}
	return wait, nil
}

// Clone returns a limiter with the same settings and an independent copy of
// in-memory state. Limiters backed by a shared store keep sharing it.
func (l *Limiter) Clone() *Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	cp := &Limiter{
		minInterval: l.minInterval,
		store:       l.store,
		clock:       l.clock,
		logger:      l.logger,
	}
	if mem, ok := l.store.(*MemoryStore); ok {
		mem = mem.clone()
		cp.store = mem
		cp.bucket = newBucket(l.minInterval, mem)
	}
	return cp
}
