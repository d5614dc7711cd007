// Package batch splits large identifier collections into bounded chunks and
// retrieves each chunk with the unlimited retry policy of package retry.
//
//	runner := batch.NewRunner(batch.Config{Size: 100, Interval: 3 * time.Second})
//	result, err := batch.Run(ctx, runner, ids, func(ctx context.Context, chunk []string) (*client.Response, error) {
//		return c.Summarize(ctx, query.SummaryParams{IDs: chunk, MaxResults: len(chunk)})
//	})
//
// client.Client.InBatchesOf wraps this for the esummary, efetch and elink
// operations.
package batch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/eutils-client/internal/clock"
	"github.com/Sternrassler/eutils-client/pkg/retry"
)

// DefaultInterval is the pause between chunks.
const DefaultInterval = 3 * time.Second

// Unit is a response carrying an HTTP status code.
type Unit interface {
	StatusCode() int
}

// Op retrieves one chunk.
type Op[R Unit] func(ctx context.Context, chunk []string) (R, error)

// Config holds batch runner configuration.
type Config struct {
	// Size is the chunk size; zero or negative disables chunking.
	Size int

	// Interval is the pause after each successful chunk.
	Interval time.Duration

	// MaxRetries caps retries per chunk; zero retries forever.
	MaxRetries int
}

// Enabled reports whether chunking is active.
func (c Config) Enabled() bool {
	return c.Size > 0
}

// Runner drives chunked retrieval.
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
		logger: log.With().Str("component", "batch").Logger(),
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

// Chunk is one retrieved batch unit.
type Chunk[R any] struct {
	Index  int
	IDs    []string
	Result R

	// Retries is the number of failed attempts before success.
	Retries int
}

// Result maps each chunk's identifier tuple to its response, in chunk order.
type Result[R any] struct {
	Chunks []Chunk[R]
	index  map[string]int
}

// Key renders an identifier tuple as a map key.
func Key(ids []string) string {
	return strings.Join(ids, ",")
}

// Get returns the response for the chunk with exactly ids.
func (r *Result[R]) Get(ids []string) (R, bool) {
	var zero R
	i, ok := r.index[Key(ids)]
	if !ok {
		return zero, false
	}
	return r.Chunks[i].Result, true
}

// Len returns the number of chunks.
func (r *Result[R]) Len() int {
	return len(r.Chunks)
}

// IDs returns every identifier across chunks in order.
func (r *Result[R]) IDs() []string {
	var ids []string
	for _, c := range r.Chunks {
		ids = append(ids, c.IDs...)
	}
	return ids
}

func (r *Result[R]) add(c Chunk[R]) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	r.index[Key(c.IDs)] = len(r.Chunks)
	r.Chunks = append(r.Chunks, c)
}

// Split cuts ids into ordered, non-overlapping chunks of size; the last
// chunk may be shorter. A non-positive size yields a single chunk.
func Split(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]string{ids}
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end:end])
	}
	return chunks
}

// Run retrieves ids chunk by chunk. Failed chunks (transport errors or a
// status other than 200) are retried after twice the configured interval
// until they succeed; successful chunks are followed by one interval. With
// chunking disabled op is called once with the whole collection.
// Non-transient errors abort the run.
func Run[R Unit](ctx context.Context, r *Runner, ids []string, op Op[R]) (*Result[R], error) {
	result := &Result[R]{}

	if !r.config.Enabled() {
		resp, err := op(ctx, ids)
		if err != nil {
			return nil, err
		}
		result.add(Chunk[R]{Index: 0, IDs: ids, Result: resp})
		return result, nil
	}

	policy := retry.Policy{
		Interval:   r.config.Interval,
		MaxRetries: r.config.MaxRetries,
		Clock:      r.clock,
		Logger:     &r.logger,
	}

	chunks := Split(ids, r.config.Size)
	start := time.Now()

	r.logger.Info().
		Int("ids", len(ids)).
		Int("chunks", len(chunks)).
		Int("size", r.config.Size).
		Msg("Starting batch retrieval")

	for i, chunk := range chunks {
		resp, retries, err := retry.Do(ctx, policy, "batch", i, func(ctx context.Context) (R, error) {
			resp, err := op(ctx, chunk)
			if err != nil {
				return resp, err
			}
			if code := resp.StatusCode(); code != http.StatusOK {
				return resp, &retry.StatusError{StatusCode: code}
			}
			return resp, nil
		})
		if err != nil {
			return nil, fmt.Errorf("batch %d of %d: %w", i+1, len(chunks), err)
		}

		result.add(Chunk[R]{Index: i, IDs: chunk, Result: resp, Retries: retries})

		r.logger.Debug().
			Int("chunk", i).
			Int("ids", len(chunk)).
			Int("retries", retries).
			Msg("Chunk retrieved")

		if err := policy.Sleep(ctx, r.config.Interval); err != nil {
			return nil, fmt.Errorf("batch %d of %d: interval: %w", i+1, len(chunks), err)
		}
	}

	r.logger.Info().
		Int("chunks", len(chunks)).
		Dur("duration", time.Since(start)).
		Msg("Batch retrieval complete")

	return result, nil
}
