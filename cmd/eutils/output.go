package main

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/Sternrassler/eutils-client/pkg/batch"
	"github.com/Sternrassler/eutils-client/pkg/client"
	"github.com/Sternrassler/eutils-client/pkg/pagination"
	"github.com/Sternrassler/eutils-client/pkg/query"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// unitLine is one JSON line of batch or page output.
type unitLine struct {
	Chunk   *int     `json:"chunk,omitempty"`
	Page    *int     `json:"page,omitempty"`
	Offset  *int     `json:"offset,omitempty"`
	IDs     []string `json:"ids,omitempty"`
	Status  int      `json:"status"`
	Retries int      `json:"retries"`

	// Body is embedded as JSON when the response is JSON, as a string otherwise.
	Body any `json:"body"`
}

func body(resp *client.Response) any {
	if ct, err := resp.ContentType(); err == nil && ct == query.ReturnJSON && jsoniter.Valid(resp.Body()) {
		return jsoniter.RawMessage(resp.Body())
	}
	return string(resp.Body())
}

func writeResponse(w io.Writer, resp *client.Response) error {
	if _, err := w.Write(resp.Body()); err != nil {
		return err
	}
	if n := len(resp.Body()); n > 0 && resp.Body()[n-1] != '\n' {
		_, err := fmt.Fprintln(w)
		return err
	}
	return nil
}

func writeLine(w io.Writer, line unitLine) error {
	encoded, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", encoded)
	return err
}

func writeChunks(w io.Writer, result *batch.Result[*client.Response]) error {
	for _, c := range result.Chunks {
		index := c.Index
		line := unitLine{
			Chunk:   &index,
			IDs:     c.IDs,
			Status:  c.Result.StatusCode(),
			Retries: c.Retries,
			Body:    body(c.Result),
		}
		if err := writeLine(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writePages(w io.Writer, result *pagination.Result[*client.Response]) error {
	for _, p := range result.Pages {
		index, offset := p.Index, p.Offset
		line := unitLine{
			Page:    &index,
			Offset:  &offset,
			Status:  p.Result.StatusCode(),
			Retries: p.Retries,
			Body:    body(p.Result),
		}
		if err := writeLine(w, line); err != nil {
			return err
		}
	}
	return nil
}
