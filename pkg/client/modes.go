package client

import (
	"context"
	"time"

	"github.com/Sternrassler/eutils-client/pkg/batch"
	"github.com/Sternrassler/eutils-client/pkg/pagination"
	"github.com/Sternrassler/eutils-client/pkg/query"
)

// BatchClient splits identifier lists into chunks and retrieves each chunk
// until it succeeds. Single-request operations of the embedded Client remain
// available.
type BatchClient struct {
	*Client
	runner *batch.Runner
}

// InBatchesOf returns a copy of c in batch mode. The copy has its own rate
// limiter state; c is not modified. A non-positive size disables chunking.
func (c *Client) InBatchesOf(size int, interval time.Duration) *BatchClient {
	return c.InBatches(batch.Config{Size: size, Interval: interval})
}

// InBatches is InBatchesOf with full runner configuration.
func (c *Client) InBatches(cfg batch.Config) *BatchClient {
	forked := c.fork(ModeBatched)
	runner := batch.NewRunner(cfg).
		WithClock(forked.clock).
		WithLogger(forked.logger.With().Str("mode", string(ModeBatched)).Logger())
	return &BatchClient{Client: forked, runner: runner}
}

// BatchConfig returns the runner configuration.
func (b *BatchClient) BatchConfig() batch.Config { return b.runner.Config() }

// chunked is a descriptor that can be re-addressed to a subset of its ids.
type chunked[D query.Descriptor] interface {
	query.Descriptor
	IDs() []string
	WithIDs(ids any) (D, error)
}

// runChunks validates d once, then dispatches a copy of it per chunk.
func runChunks[D chunked[D]](ctx context.Context, b *BatchClient, d D) (*batch.Result[*Response], error) {
	return batch.Run(ctx, b.runner, d.IDs(), func(ctx context.Context, chunk []string) (*Response, error) {
		part, err := d.WithIDs(chunk)
		if err != nil {
			return nil, err
		}
		return b.Client.Do(ctx, part, query.Params{})
	})
}

// Summarize runs esummary per chunk of p.IDs.
func (b *BatchClient) Summarize(ctx context.Context, p query.SummaryParams) (*batch.Result[*Response], error) {
	d, err := query.NewSummary(p)
	if err != nil {
		return nil, err
	}
	return runChunks(ctx, b, d)
}

// Fetch runs efetch per chunk of p.IDs.
func (b *BatchClient) Fetch(ctx context.Context, p query.FetchParams) (*batch.Result[*Response], error) {
	d, err := query.NewFetch(p)
	if err != nil {
		return nil, err
	}
	return runChunks(ctx, b, d)
}

// Link runs elink per chunk of p.IDs.
func (b *BatchClient) Link(ctx context.Context, p query.LinkParams) (*batch.Result[*Response], error) {
	d, err := query.NewLink(p)
	if err != nil {
		return nil, err
	}
	return runChunks(ctx, b, d)
}

// PageClient walks search results page by page.
type PageClient struct {
	*Client
	runner *pagination.Runner
}

// InPagesOf returns a copy of c in pagination mode. The copy has its own rate
// limiter state; c is not modified.
func (c *Client) InPagesOf(size int, interval time.Duration) *PageClient {
	return c.InPages(pagination.Config{Size: size, Interval: interval})
}

// InPages is InPagesOf with full runner configuration.
func (c *Client) InPages(cfg pagination.Config) *PageClient {
	forked := c.fork(ModePaginated)
	runner := pagination.NewRunner(cfg).
		WithClock(forked.clock).
		WithLogger(forked.logger.With().Str("mode", string(ModePaginated)).Logger())
	return &PageClient{Client: forked, runner: runner}
}

// PageConfig returns the runner configuration.
func (p *PageClient) PageConfig() pagination.Config { return p.runner.Config() }

// Search retrieves every page of the results. p.MaxResults and p.ResumeFrom
// are ignored: the page size and offsets are managed by the runner.
func (p *PageClient) Search(ctx context.Context, params query.SearchParams) (*pagination.Result[*Response], error) {
	size := p.runner.Config().Size
	params.MaxResults = size
	params.ResumeFrom = 0
	search, err := query.NewSearch(params)
	if err != nil {
		return nil, err
	}

	return pagination.Run(ctx, p.runner, func(ctx context.Context, offset, size int) (*Response, error) {
		page, err := search.Page(offset, size)
		if err != nil {
			return nil, err
		}
		return p.Client.Do(ctx, page, query.Params{})
	}, (*Response).SearchMeta)
}
