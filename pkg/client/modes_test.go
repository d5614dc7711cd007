package client

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/Sternrassler/eutils-client/internal/clock"
	"github.com/Sternrassler/eutils-client/internal/testutil"
	"github.com/Sternrassler/eutils-client/pkg/query"
)

func countSleeps(sleeps []time.Duration, d time.Duration) int {
	n := 0
	for _, s := range sleeps {
		if s == d {
			n++
		}
	}
	return n
}

func TestModeBuilders_ReturnIndependentCopies(t *testing.T) {
	mock := testutil.NewMockEUtils()
	defer mock.Close()
	parent, _ := newTestClient(t, mock)

	batched := parent.InBatchesOf(10, time.Second)
	paged := parent.InPagesOf(20, 2*time.Second)

	if parent.Mode() != ModeNone || batched.Mode() != ModeBatched || paged.Mode() != ModePaginated {
		t.Errorf("modes = %q, %q, %q", parent.Mode(), batched.Mode(), paged.Mode())
	}
	if batched.BatchConfig().Size != 10 || paged.PageConfig().Size != 20 {
		t.Errorf("sizes = %d, %d", batched.BatchConfig().Size, paged.PageConfig().Size)
	}
	if batched.Limiter() == parent.Limiter() || paged.Limiter() == parent.Limiter() {
		t.Fatal("forked clients must not share the parent's limiter")
	}

	ctx := context.Background()
	if _, err := batched.Info(ctx, ""); err != nil {
		t.Fatalf("Info() error = %v", err)
	}

	state, err := parent.Limiter().State(ctx)
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if !state.LastDispatch.IsZero() {
		t.Error("a request through the batch client changed the parent's limiter state")
	}
}

func TestBatchClient_Summarize(t *testing.T) {
	mock := testutil.NewMockEUtils()
	defer mock.Close()
	mock.SetHandler("esummary", testutil.NewSummaryHandler())

	c, _ := newTestClient(t, mock)
	result, err := c.InBatchesOf(2, time.Second).Summarize(context.Background(), query.SummaryParams{
		IDs:        []int{1, 2, 3, 4, 5},
		MaxResults: 2,
	})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	var sent []string
	for _, req := range mock.Requests() {
		sent = append(sent, req.Params.Get("id"))
	}
	if want := []string{"1,2", "3,4", "5"}; !reflect.DeepEqual(sent, want) {
		t.Errorf("sent ids = %v, want %v", sent, want)
	}

	resp, ok := result.Get([]string{"3", "4"})
	if !ok {
		t.Fatal("missing chunk 3,4")
	}
	if resp.StatusCode() != http.StatusOK {
		t.Errorf("StatusCode() = %d", resp.StatusCode())
	}
	if result.Len() != 3 {
		t.Errorf("Len() = %d, want 3", result.Len())
	}
}

func TestBatchClient_RetriesUntilSuccess(t *testing.T) {
	mock := testutil.NewMockEUtils()
	defer mock.Close()
	mock.SetSequence("efetch", nil,
		testutil.NewServerErrorResponse(),
		testutil.NewRateLimitResponse(),
		testutil.NewXMLResponse("<PubmedArticleSet/>"),
	)

	c, fake := newTestClient(t, mock)
	result, err := c.InBatchesOf(10, 5*time.Second).Fetch(context.Background(), query.FetchParams{
		IDs:        []string{"1", "2"},
		MaxResults: 2,
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if mock.RequestCount() != 3 {
		t.Errorf("requests = %d, want 3", mock.RequestCount())
	}
	if result.Chunks[0].Retries != 2 {
		t.Errorf("Retries = %d, want 2", result.Chunks[0].Retries)
	}
	if n := countSleeps(fake.Sleeps(), 10*time.Second); n != 2 {
		t.Errorf("backoff sleeps = %d, want 2 (sleeps %v)", n, fake.Sleeps())
	}
	if n := countSleeps(fake.Sleeps(), 5*time.Second); n != 1 {
		t.Errorf("interval sleeps = %d, want 1", n)
	}
}

func TestBatchClient_RetriesPlainTransportErrors(t *testing.T) {
	calls := 0
	fake := clock.NewFake(time.Unix(1700000000, 0))
	cfg := DefaultConfig("tool", "me@example.com")
	cfg.Logger = nopLogger()
	cfg.Clock = fake
	cfg.Transport = TransportFunc(func(ctx context.Context, req Request) (*RawResponse, error) {
		calls++
		if calls <= 2 {
			return nil, errors.New("connection reset by peer")
		}
		return &RawResponse{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       []byte(`{"header":{"type":"esummary"}}`),
		}, nil
	})
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := c.InBatchesOf(2, time.Second).Summarize(context.Background(), query.SummaryParams{
		IDs:        []int{1, 2, 3},
		MaxResults: 2,
	})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	if result.Chunks[0].Retries != 2 || result.Chunks[1].Retries != 0 {
		t.Errorf("Retries = %d, %d, want 2, 0", result.Chunks[0].Retries, result.Chunks[1].Retries)
	}
	if n := countSleeps(fake.Sleeps(), 2*time.Second); n != 2 {
		t.Errorf("backoff sleeps = %d, want 2 (sleeps %v)", n, fake.Sleeps())
	}
}

func TestBatchClient_DisabledPassesThrough(t *testing.T) {
	mock := testutil.NewMockEUtils()
	defer mock.Close()
	mock.SetResponse("elink", testutil.NewServerErrorResponse())

	c, _ := newTestClient(t, mock)
	result, err := c.InBatchesOf(0, time.Second).Link(context.Background(), query.LinkParams{
		IDs:          []string{"1", "2", "3"},
		DatabaseFrom: "pubmed",
	})
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("requests = %d, want 1", mock.RequestCount())
	}
	if got := mock.Requests()[0].Params.Get("id"); got != "1,2,3" {
		t.Errorf("id = %q", got)
	}
	if resp, _ := result.Get([]string{"1", "2", "3"}); resp.StatusCode() != http.StatusInternalServerError {
		t.Error("pass-through should not retry")
	}
}

func TestBatchClient_RejectsAtomicIdentifiers(t *testing.T) {
	mock := testutil.NewMockEUtils()
	defer mock.Close()
	c, _ := newTestClient(t, mock)

	_, err := c.InBatchesOf(2, time.Second).Summarize(context.Background(), query.SummaryParams{IDs: "142"})
	if !errors.Is(err, query.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("requests = %d, want 0", mock.RequestCount())
	}
}

func TestPageClient_Search(t *testing.T) {
	for _, rt := range []query.ReturnType{query.ReturnJSON, query.ReturnXML} {
		t.Run(string(rt), func(t *testing.T) {
			mock := testutil.NewMockEUtils()
			defer mock.Close()
			mock.SetHandler("esearch", testutil.NewSearchHandler(250))

			c, _ := newTestClient(t, mock, func(cfg *Config) { cfg.ReturnType = rt })
			result, err := c.InPagesOf(100, time.Second).Search(context.Background(), query.SearchParams{
				Term:       "cancer",
				MaxResults: 5,
			})
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}

			var starts, maxes []string
			for _, req := range mock.Requests() {
				starts = append(starts, req.Params.Get("retstart"))
				maxes = append(maxes, req.Params.Get("retmax"))
			}
			if want := []string{"0", "100", "200"}; !reflect.DeepEqual(starts, want) {
				t.Errorf("retstart = %v, want %v", starts, want)
			}
			if want := []string{"100", "100", "100"}; !reflect.DeepEqual(maxes, want) {
				t.Errorf("retmax = %v, want %v (caller max results must be dropped)", maxes, want)
			}
			if result.Total != 250 || result.Len() != 3 {
				t.Errorf("result = total %d, %d pages", result.Total, result.Len())
			}
		})
	}
}

func TestPageClient_RetriesFailedPage(t *testing.T) {
	mock := testutil.NewMockEUtils()
	defer mock.Close()
	mock.SetSequence("esearch", testutil.NewSearchHandler(30), testutil.NewServerErrorResponse())

	c, fake := newTestClient(t, mock)
	result, err := c.InPagesOf(20, time.Second).Search(context.Background(), query.SearchParams{Term: "x"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if mock.RequestCount() != 3 {
		t.Errorf("requests = %d, want 3", mock.RequestCount())
	}
	if result.Pages[0].Retries != 1 {
		t.Errorf("Retries = %d, want 1", result.Pages[0].Retries)
	}
	if n := countSleeps(fake.Sleeps(), 2*time.Second); n != 1 {
		t.Errorf("backoff sleeps = %d, want 1", n)
	}
}

func TestPageClient_ProtocolViolation(t *testing.T) {
	mock := testutil.NewMockEUtils()
	defer mock.Close()
	mock.SetResponse("esearch", testutil.NewJSONResponse(
		`{"header":{"type":"esearch"},"esearchresult":{"count":"500","retmax":"100","retstart":"40"}}`,
	))

	c, _ := newTestClient(t, mock)
	_, err := c.InPagesOf(100, time.Second).Search(context.Background(), query.SearchParams{Term: "x"})
	if err == nil {
		t.Fatal("expected protocol error")
	}
	if mock.RequestCount() != 1 {
		t.Errorf("requests = %d, protocol errors must not be retried", mock.RequestCount())
	}
}
