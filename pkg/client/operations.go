package client

import (
	"context"

	"github.com/Sternrassler/eutils-client/pkg/query"
)

// Search lists the UIDs matching a text query (esearch).
func (c *Client) Search(ctx context.Context, p query.SearchParams) (*Response, error) {
	d, err := query.NewSearch(p)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, d, query.Params{})
}

// Summarize retrieves document summaries (esummary).
func (c *Client) Summarize(ctx context.Context, p query.SummaryParams) (*Response, error) {
	d, err := query.NewSummary(p)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, d, query.Params{})
}

// Fetch retrieves formatted records (efetch).
func (c *Client) Fetch(ctx context.Context, p query.FetchParams) (*Response, error) {
	d, err := query.NewFetch(p)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, d, query.Params{})
}

// Link finds related records within or across databases (elink).
func (c *Client) Link(ctx context.Context, p query.LinkParams) (*Response, error) {
	d, err := query.NewLink(p)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, d, query.Params{})
}

// Info returns database statistics (einfo); an empty database lists all
// databases.
func (c *Client) Info(ctx context.Context, database string) (*Response, error) {
	d, err := query.NewInfo(database)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, d, query.Params{})
}

// FindCitations matches citation strings to PubMed IDs (ecitmatch).
func (c *Client) FindCitations(ctx context.Context, p query.CitationParams) (*Response, error) {
	d, err := query.NewCitation(p)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, d, query.Params{})
}
