package client

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/eutils-client/internal/clock"
	"github.com/Sternrassler/eutils-client/internal/testutil"
	"github.com/Sternrassler/eutils-client/pkg/query"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// newTestClient returns a client against mock with throttling driven by a
// fake clock.
func newTestClient(t *testing.T, mock *testutil.MockEUtils, mutate ...func(*Config)) (*Client, *clock.Fake) {
	t.Helper()

	fake := clock.NewFake(time.Unix(1700000000, 0))
	cfg := DefaultConfig("eutils-test", "test@example.com")
	cfg.Server = mock.URL()
	cfg.Clock = fake
	cfg.Logger = nopLogger()
	for _, m := range mutate {
		m(&cfg)
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, fake
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("tool", "me@example.com")

	if cfg.ReturnType != query.ReturnJSON {
		t.Errorf("ReturnType = %q, want json", cfg.ReturnType)
	}
	if cfg.MinimalInterval != 334*time.Millisecond {
		t.Errorf("MinimalInterval = %s, want 334ms", cfg.MinimalInterval)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %s, want 10s", cfg.Timeout)
	}
	if cfg.Server != "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/" {
		t.Errorf("Server = %q", cfg.Server)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "empty tool", mutate: func(c *Config) { c.Tool = "" }, errorMsg: "invalid tool: is required"},
		{name: "tool with spaces", mutate: func(c *Config) { c.Tool = "my tool" }, errorMsg: "invalid tool: must not contain spaces"},
		{name: "empty email", mutate: func(c *Config) { c.Email = "" }, errorMsg: "invalid email: is required"},
		{name: "bad return type", mutate: func(c *Config) { c.ReturnType = "csv" }, errorMsg: "invalid return_type"},
		{name: "negative interval", mutate: func(c *Config) { c.MinimalInterval = -time.Second }, errorMsg: "invalid minimal_interval"},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, errorMsg: "invalid timeout"},
		{name: "relative server", mutate: func(c *Config) { c.Server = "eutils/" }, errorMsg: "invalid server"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("tool", "me@example.com")
			tt.mutate(&cfg)

			c, err := New(cfg)
			if tt.errorMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if c.Mode() != ModeNone {
					t.Errorf("Mode() = %q, want none", c.Mode())
				}
				return
			}

			if err == nil {
				t.Fatal("expected error but got nil")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("error = %q, want containing %q", err, tt.errorMsg)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Error("error should wrap ErrConfiguration")
			}
		})
	}
}

func TestNew_AddsTrailingSlash(t *testing.T) {
	cfg := DefaultConfig("tool", "me@example.com")
	cfg.Server = "http://localhost:8080/eutils"

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := c.Config().Server; got != "http://localhost:8080/eutils/" {
		t.Errorf("Server = %q", got)
	}
}

func TestParams_Precedence(t *testing.T) {
	c, err := New(DefaultConfig("tool", "me@example.com"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	fetch, err := query.NewFetch(query.FetchParams{IDs: []string{"1"}, MaxResults: 10})
	if err != nil {
		t.Fatalf("NewFetch() error = %v", err)
	}

	// descriptor retmode=xml beats the client default of json
	got := c.Params(fetch, query.Params{}).Encode()
	want := "tool=tool&email=me@example.com&retmode=xml&db=pubmed&retmax=10&id=1"
	if got != want {
		t.Errorf("Params() = %q, want %q", got, want)
	}

	var override query.Params
	override.Set("retmode", "text")
	override.Set("rettype", "abstract")
	got = c.Params(fetch, override).Encode()
	want = "tool=tool&email=me@example.com&retmode=text&db=pubmed&retmax=10&id=1&rettype=abstract"
	if got != want {
		t.Errorf("Params() with override = %q, want %q", got, want)
	}
}

func TestParams_APIKey(t *testing.T) {
	cfg := DefaultConfig("tool", "me@example.com")
	cfg.APIKey = "secret"
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	info, _ := query.NewInfo("")
	if v, ok := c.Params(info, query.Params{}).Get("api_key"); !ok || v != "secret" {
		t.Errorf("api_key = %q, %v", v, ok)
	}

	c2, _ := New(DefaultConfig("tool", "me@example.com"))
	if _, ok := c2.Params(info, query.Params{}).Get("api_key"); ok {
		t.Error("api_key should be omitted when not configured")
	}
}

func TestSearch_SendsGET(t *testing.T) {
	mock := testutil.NewMockEUtils()
	defer mock.Close()
	mock.SetHandler("esearch", testutil.NewSearchHandler(3))

	c, _ := newTestClient(t, mock)
	resp, err := c.Search(context.Background(), query.SearchParams{Term: "cancer", MaxResults: 10})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Fatalf("StatusCode() = %d", resp.StatusCode())
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	req := reqs[0]
	if req.Method != http.MethodGet || req.Endpoint != "esearch" {
		t.Errorf("request = %s %s", req.Method, req.Endpoint)
	}
	want := map[string]string{
		"tool": "eutils-test", "email": "test@example.com", "retmode": "json",
		"db": "pubmed", "retmax": "10", "term": "cancer",
	}
	for k, v := range want {
		if got := req.Params.Get(k); got != v {
			t.Errorf("param %s = %q, want %q", k, got, v)
		}
	}
	if req.Params.Has("retstart") {
		t.Error("retstart should be omitted for a plain search")
	}

	meta, err := resp.SearchMeta()
	if err != nil {
		t.Fatalf("SearchMeta() error = %v", err)
	}
	if meta.Count != 3 {
		t.Errorf("Count = %d, want 3", meta.Count)
	}
}

func TestSummarize_SendsPOSTForm(t *testing.T) {
	mock := testutil.NewMockEUtils()
	defer mock.Close()
	mock.SetHandler("esummary", testutil.NewSummaryHandler())

	c, _ := newTestClient(t, mock)
	resp, err := c.Summarize(context.Background(), query.SummaryParams{IDs: []int{28197643, 29679305}, MaxResults: 2})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	req := mock.Requests()[0]
	if req.Method != http.MethodPost {
		t.Errorf("Method = %s, want POST", req.Method)
	}
	if !strings.HasPrefix(req.ContentType, "application/x-www-form-urlencoded") {
		t.Errorf("Content-Type = %q", req.ContentType)
	}
	if got := req.Params.Get("id"); got != "28197643,29679305" {
		t.Errorf("id = %q", got)
	}

	var body struct {
		Result struct {
			UIDs []string `json:"uids"`
		} `json:"result"`
	}
	if err := resp.JSON(&body); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if !reflect.DeepEqual(body.Result.UIDs, []string{"28197643", "29679305"}) {
		t.Errorf("uids = %v", body.Result.UIDs)
	}
}

func TestOperations_Endpoints(t *testing.T) {
	mock := testutil.NewMockEUtils()
	defer mock.Close()
	c, _ := newTestClient(t, mock)
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func() (*Response, error)
		endpoint string
		method   string
	}{
		{"fetch", func() (*Response, error) {
			return c.Fetch(ctx, query.FetchParams{IDs: []string{"1"}, MaxResults: 1})
		}, "efetch", http.MethodPost},
		{"link", func() (*Response, error) {
			return c.Link(ctx, query.LinkParams{IDs: []string{"1"}, DatabaseFrom: "pubmed", Database: "pmc"})
		}, "elink", http.MethodGet},
		{"info", func() (*Response, error) {
			return c.Info(ctx, "")
		}, "einfo", http.MethodGet},
		{"citations", func() (*Response, error) {
			return c.FindCitations(ctx, query.CitationParams{Citations: []query.CitationRecord{
				{Journal: "proc natl acad sci u s a", Year: 1991, Volume: 88, FirstPage: 3248, Author: "mann bj", Key: "Art1"},
			}})
		}, "ecitmatch", http.MethodGet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.Reset()
			resp, err := tt.call()
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if resp.StatusCode() != http.StatusOK {
				t.Errorf("StatusCode() = %d", resp.StatusCode())
			}
			req := mock.Requests()[0]
			if req.Endpoint != tt.endpoint || req.Method != tt.method {
				t.Errorf("request = %s %s, want %s %s", req.Method, req.Endpoint, tt.method, tt.endpoint)
			}
		})
	}
}

func TestOperations_ValidationErrorsSkipDispatch(t *testing.T) {
	mock := testutil.NewMockEUtils()
	defer mock.Close()
	c, _ := newTestClient(t, mock)

	_, err := c.Summarize(context.Background(), query.SummaryParams{IDs: "142", MaxResults: 1})
	if !errors.Is(err, query.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "list-like container of identifiers was expected") {
		t.Errorf("error = %q", err)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("requests = %d, want 0", mock.RequestCount())
	}
}

func TestDo_Throttles(t *testing.T) {
	calls := 0
	transport := TransportFunc(func(ctx context.Context, req Request) (*RawResponse, error) {
		calls++
		return &RawResponse{StatusCode: http.StatusOK}, nil
	})

	fake := clock.NewFake(time.Unix(0, 0))
	cfg := DefaultConfig("tool", "me@example.com")
	cfg.Transport = transport
	cfg.Clock = fake
	cfg.Logger = nopLogger()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	info, _ := query.NewInfo("pubmed")
	for i := 0; i < 3; i++ {
		if _, err := c.Do(context.Background(), info, query.Params{}); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
	}

	want := []time.Duration{334 * time.Millisecond, 334 * time.Millisecond}
	if got := fake.Sleeps(); !reflect.DeepEqual(got, want) {
		t.Errorf("sleeps = %v, want %v", got, want)
	}

	// a pause longer than the interval means no wait
	fake.Advance(time.Second)
	if _, err := c.Do(context.Background(), info, query.Params{}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got := len(fake.Sleeps()); got != 2 {
		t.Errorf("sleeps after idle = %d, want 2", got)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestDo_PassesRequest(t *testing.T) {
	var got Request
	cfg := DefaultConfig("tool", "me@example.com")
	cfg.Server = "http://eutils.test/base/"
	cfg.Timeout = 3 * time.Second
	cfg.Logger = nopLogger()
	cfg.Transport = TransportFunc(func(ctx context.Context, req Request) (*RawResponse, error) {
		got = req
		return &RawResponse{StatusCode: http.StatusOK}, nil
	})
	c, _ := New(cfg)

	link, _ := query.NewLink(query.LinkParams{IDs: []int{1}, DatabaseFrom: "gene"})
	if _, err := c.Do(context.Background(), link, query.Params{}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if got.URL != "http://eutils.test/base/elink.fcgi" {
		t.Errorf("URL = %q", got.URL)
	}
	if got.Method != http.MethodGet {
		t.Errorf("Method = %q", got.Method)
	}
	if got.Timeout != 3*time.Second {
		t.Errorf("Timeout = %s", got.Timeout)
	}
	if got.Params.Get("cmd") != "neighbor" || got.Params.Get("dbfrom") != "gene" {
		t.Errorf("Params = %v", got.Params)
	}
}

func TestDo_TransportError(t *testing.T) {
	cause := errors.New("connection reset")
	cfg := DefaultConfig("tool", "me@example.com")
	cfg.Logger = nopLogger()
	cfg.Transport = TransportFunc(func(ctx context.Context, req Request) (*RawResponse, error) {
		return nil, &TransportError{Method: req.Method, URL: req.URL, Err: cause}
	})
	c, _ := New(cfg)

	info, _ := query.NewInfo("")
	_, err := c.Do(context.Background(), info, query.Params{})

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
	if !errors.Is(err, cause) {
		t.Error("error should wrap the cause")
	}
}

func TestDo_WrapsPlainTransportErrors(t *testing.T) {
	cause := errors.New("connection reset by peer")
	cfg := DefaultConfig("tool", "me@example.com")
	cfg.Logger = nopLogger()
	cfg.Transport = TransportFunc(func(ctx context.Context, req Request) (*RawResponse, error) {
		return nil, cause
	})
	c, _ := New(cfg)

	info, _ := query.NewInfo("")
	_, err := c.Do(context.Background(), info, query.Params{})

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
	if !terr.Transient() {
		t.Error("wrapped transport error should be transient")
	}
	if terr.Method != "GET" || !strings.HasSuffix(terr.URL, "einfo.fcgi") {
		t.Errorf("TransportError = %s %s", terr.Method, terr.URL)
	}
	if !errors.Is(err, cause) {
		t.Error("error should wrap the cause")
	}
}

// putDescriptor reports an HTTP method the executor does not support.
type putDescriptor struct{ query.Descriptor }

func (putDescriptor) Method() query.Method { return "PUT" }

func TestDo_RejectsUnsupportedMethodBeforeThrottling(t *testing.T) {
	called := false
	cfg := DefaultConfig("tool", "me@example.com")
	cfg.Logger = nopLogger()
	cfg.Transport = TransportFunc(func(ctx context.Context, req Request) (*RawResponse, error) {
		called = true
		return &RawResponse{StatusCode: http.StatusOK}, nil
	})
	c, _ := New(cfg)

	info, _ := query.NewInfo("")
	_, err := c.Do(context.Background(), putDescriptor{info}, query.Params{})

	var cerr *ConfigurationError
	if !errors.As(err, &cerr) || cerr.Field != "method" {
		t.Fatalf("error = %v, want method ConfigurationError", err)
	}
	if called {
		t.Error("transport must not be called")
	}
	state, err := c.Limiter().State(context.Background())
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if !state.LastDispatch.IsZero() {
		t.Error("rejected request used a throttle slot")
	}
}

func TestDo_ErrorStatusIsAResponse(t *testing.T) {
	mock := testutil.NewMockEUtils()
	defer mock.Close()
	mock.SetResponse("einfo", testutil.NewServerErrorResponse())

	c, _ := newTestClient(t, mock)
	resp, err := c.Info(context.Background(), "")
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if resp.StatusCode() != http.StatusInternalServerError {
		t.Errorf("StatusCode() = %d, want 500", resp.StatusCode())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{200, ""},
		{304, ""},
		{400, ErrorClassClient},
		{429, ErrorClassClient},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classify(tt.status); got != tt.want {
			t.Errorf("classify(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
