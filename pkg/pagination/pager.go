package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/eutils-client/internal/clock"
	"github.com/Sternrassler/eutils-client/pkg/retry"
)

// DefaultInterval is the pause between pages.
const DefaultInterval = 3 * time.Second

// progressEvery controls how often progress is logged.
const progressEvery = 50

// ErrInvalidPageSize is returned when a runner is used with a non-positive size.
var ErrInvalidPageSize = errors.New("page size must be positive")

// ProtocolError reports a page whose echoed offset or size does not match
// the request, or a later page that omits the total count. It is never
// retried.
type ProtocolError struct {
	Page  int
	Field string
	Want  int
	Got   int
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Field == "count" {
		return fmt.Sprintf("page %d: server omitted count, earlier pages reported %d", e.Page, e.Want)
	}
	return fmt.Sprintf("page %d: server echoed %s=%d, requested %d", e.Page, e.Field, e.Got, e.Want)
}

// MissingCountError is returned when no page reported a total count.
type MissingCountError struct {
	Pages int
}

// Error implements the error interface.
func (e *MissingCountError) Error() string {
	return fmt.Sprintf("no total count reported after %d page(s)", e.Pages)
}

// Unit is a response carrying an HTTP status code.
type Unit interface {
	StatusCode() int
}

// Op fetches the page starting at offset with at most size records.
type Op[R Unit] func(ctx context.Context, offset, size int) (R, error)

// MetaFunc extracts paging metadata from a successful page.
type MetaFunc[R Unit] func(R) (Meta, error)

// Config holds pagination runner configuration.
type Config struct {
	// Size is the page size requested from the server.
	Size int

	// Interval is the pause after each successful page.
	Interval time.Duration

	// MaxRetries caps retries per page; zero retries forever.
	MaxRetries int
}

// Runner drives paginated retrieval.
type Runner struct {
	config Config
	clock  clock.Clock
	logger zerolog.Logger
}

// NewRunner creates a runner.
func NewRunner(config Config) *Runner {
	return &Runner{
		config: config,
		clock:  clock.Real{},
		logger: log.With().Str("component", "pagination").Logger(),
	}
}

// WithClock returns a copy using c for sleeps (for testing).
func (r *Runner) WithClock(c clock.Clock) *Runner {
	cp := *r
	cp.clock = c
	return &cp
}

// WithLogger returns a copy logging to logger.
func (r *Runner) WithLogger(logger zerolog.Logger) *Runner {
	cp := *r
	cp.logger = logger
	return &cp
}

// Config returns the runner configuration.
func (r *Runner) Config() Config {
	return r.config
}

// Page is one retrieved page.
type Page[R any] struct {
	Index   int
	Offset  int
	Meta    Meta
	Result  R
	Retries int
}

// Result holds every page in index order.
type Result[R any] struct {
	Pages []Page[R]

	// Total is the last count reported by the server.
	Total int

	// Downloaded is the number of records requested so far (pages × size).
	Downloaded int
}

// Get returns the page with the given index.
func (r *Result[R]) Get(index int) (R, bool) {
	var zero R
	if index < 0 || index >= len(r.Pages) {
		return zero, false
	}
	return r.Pages[index].Result, true
}

// Len returns the number of pages.
func (r *Result[R]) Len() int {
	return len(r.Pages)
}

// Run fetches pages until the downloaded count reaches the reported total.
// Failed pages (transport errors or a status other than 200) are retried
// after twice the configured interval.
func Run[R Unit](ctx context.Context, r *Runner, op Op[R], meta MetaFunc[R]) (*Result[R], error) {
	size := r.config.Size
	if size <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidPageSize, size)
	}

	policy := retry.Policy{
		Interval:   r.config.Interval,
		MaxRetries: r.config.MaxRetries,
		Clock:      r.clock,
		Logger:     &r.logger,
	}

	result := &Result[R]{}
	haveTotal := false
	start := time.Now()

	for index := 0; ; index++ {
		offset := index * size

		resp, retries, err := retry.Do(ctx, policy, "page", index, func(ctx context.Context) (R, error) {
			resp, err := op(ctx, offset, size)
			if err != nil {
				return resp, err
			}
			if code := resp.StatusCode(); code != http.StatusOK {
				return resp, &retry.StatusError{StatusCode: code}
			}
			return resp, nil
		})
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", index, err)
		}

		m, err := meta(resp)
		if err != nil {
			return nil, fmt.Errorf("page %d: read paging metadata: %w", index, err)
		}

		if !m.HasCount && haveTotal {
			err := &ProtocolError{Page: index, Field: "count", Want: result.Total}
			r.logger.Error().
				Err(err).
				Int("page", index).
				Msg("Server violated paging contract")
			return nil, err
		}

		if m.HasCount {
			if err := checkEcho(index, offset, size, m); err != nil {
				r.logger.Error().
					Err(err).
					Int("page", index).
					Msg("Server violated paging contract")
				return nil, err
			}
			if !haveTotal {
				r.logger.Info().
					Int("total", m.Count).
					Int("size", size).
					Msg("Starting page retrieval")
			}
			result.Total = m.Count
			haveTotal = true
		}

		result.Downloaded += size
		result.Pages = append(result.Pages, Page[R]{
			Index:   index,
			Offset:  offset,
			Meta:    m,
			Result:  resp,
			Retries: retries,
		})

		if !haveTotal {
			return nil, &MissingCountError{Pages: len(result.Pages)}
		}

		if len(result.Pages)%progressEvery == 0 {
			r.logger.Info().
				Int("fetched", result.Downloaded).
				Int("total", result.Total).
				Float64("progress_pct", float64(result.Downloaded)/float64(result.Total)*100).
				Msg("Fetch progress")
		}

		if err := policy.Sleep(ctx, r.config.Interval); err != nil {
			return nil, fmt.Errorf("page %d: interval: %w", index, err)
		}

		if result.Downloaded >= result.Total {
			break
		}
	}

	r.logger.Info().
		Int("pages", len(result.Pages)).
		Int("total", result.Total).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return result, nil
}

// checkEcho compares the echoed offset and size with the request. The last
// page may echo fewer records than requested when the total is not a
// multiple of size.
func checkEcho(index, offset, size int, m Meta) error {
	if m.RetStart != offset {
		return &ProtocolError{Page: index, Field: "retstart", Want: offset, Got: m.RetStart}
	}
	if m.RetMax == size {
		return nil
	}
	if remaining := m.Count - offset; remaining >= 0 && remaining < size && m.RetMax == remaining {
		return nil
	}
	return &ProtocolError{Page: index, Field: "retmax", Want: size, Got: m.RetMax}
}
