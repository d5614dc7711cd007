// Package client provides the E-utilities HTTP client: request assembly,
// minimal-interval throttling, dispatch through a pluggable transport and the
// response envelope, plus batch and pagination modes for bulk retrieval.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/eutils-client/internal/clock"
	"github.com/Sternrassler/eutils-client/pkg/query"
	"github.com/Sternrassler/eutils-client/pkg/ratelimit"
)

// DefaultServer is the public E-utilities base address.
const DefaultServer = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

// DefaultTimeout bounds each request.
const DefaultTimeout = 10 * time.Second

// Prometheus metrics for E-utilities requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eutils_requests_total",
		Help: "Total E-utilities requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eutils_request_duration_seconds",
		Help:    "E-utilities request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eutils_errors_total",
		Help: "Total failed E-utilities requests by class",
	}, []string{"class"})
)

// Mode records whether a client issues single requests or bulk runs.
type Mode string

const (
	ModeNone      Mode = "none"
	ModeBatched   Mode = "batched"
	ModePaginated Mode = "paginated"
)

// Config holds the client configuration.
type Config struct {
	// Tool names the application making the calls (REQUIRED, no spaces).
	Tool string

	// Email is the contact address of the user (REQUIRED, no spaces).
	Email string

	// APIKey raises the server-side rate limit; empty omits the parameter.
	APIKey string

	// ReturnType is the default retmode (json or xml).
	ReturnType query.ReturnType

	// MinimalInterval is enforced between consecutive requests. The default
	// keeps under three requests per second; lower it only with an API key.
	MinimalInterval time.Duration

	// Timeout bounds each request.
	Timeout time.Duration

	// Server is the base address; a trailing slash is added when missing.
	Server string

	// Transport dispatches requests (default: HTTPTransport).
	Transport Transport

	// RateLimitStore holds the last dispatch time (default: in memory).
	// A ratelimit.RedisStore shares one throttle across processes.
	RateLimitStore ratelimit.Store

	// Clock drives throttling and bulk sleeps (default: wall clock).
	Clock clock.Clock

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns the recommended configuration for tool and email.
func DefaultConfig(tool, email string) Config {
	return Config{
		Tool:            tool,
		Email:           email,
		ReturnType:      query.ReturnJSON,
		MinimalInterval: ratelimit.DefaultMinInterval,
		Timeout:         DefaultTimeout,
		Server:          DefaultServer,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for _, field := range []struct{ name, value string }{{"tool", c.Tool}, {"email", c.Email}} {
		if field.value == "" {
			return &ConfigurationError{Field: field.name, Reason: "is required"}
		}
		if strings.ContainsAny(field.value, " \t\r\n") {
			return &ConfigurationError{Field: field.name, Reason: fmt.Sprintf("must not contain spaces (got %q)", field.value)}
		}
	}
	if !c.ReturnType.Valid() {
		return &ConfigurationError{Field: "return_type", Reason: fmt.Sprintf("must be json or xml (got %q)", c.ReturnType)}
	}
	if c.MinimalInterval < 0 {
		return &ConfigurationError{Field: "minimal_interval", Reason: fmt.Sprintf("must be >= 0 (got %s)", c.MinimalInterval)}
	}
	if c.Timeout < 0 {
		return &ConfigurationError{Field: "timeout", Reason: fmt.Sprintf("must be >= 0 (got %s)", c.Timeout)}
	}
	u, err := url.Parse(c.Server)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigurationError{Field: "server", Reason: fmt.Sprintf("must be an absolute URL (got %q)", c.Server)}
	}
	return nil
}

// Client is the E-utilities client. A Client is safe for concurrent use;
// requests are still spaced by MinimalInterval.
type Client struct {
	config    Config
	transport Transport
	limiter   *ratelimit.Limiter
	clock     clock.Clock
	logger    zerolog.Logger
	mode      Mode
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(cfg.Server, "/") {
		cfg.Server += "/"
	}

	logger := log.With().Str("component", "eutils-client").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	transport := cfg.Transport
	if transport == nil {
		transport = NewHTTPTransport(nil)
	}

	opts := []ratelimit.Option{ratelimit.WithClock(clk), ratelimit.WithLogger(logger)}
	if cfg.RateLimitStore != nil {
		opts = append(opts, ratelimit.WithStore(cfg.RateLimitStore))
	}

	return &Client{
		config:    cfg,
		transport: transport,
		limiter:   ratelimit.New(cfg.MinimalInterval, opts...),
		clock:     clk,
		logger:    logger,
		mode:      ModeNone,
	}, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.config }

// Mode returns the client's mode.
func (c *Client) Mode() Mode { return c.mode }

// Limiter returns the client's rate limiter.
func (c *Client) Limiter() *ratelimit.Limiter { return c.limiter }

// fork returns an independent copy with its own limiter state.
func (c *Client) fork(mode Mode) *Client {
	cp := *c
	cp.limiter = c.limiter.Clone()
	cp.mode = mode
	return &cp
}

func (c *Client) baseParams() query.Params {
	var p query.Params
	p.Set("tool", c.config.Tool)
	p.Set("email", c.config.Email)
	if c.config.APIKey != "" {
		p.Set("api_key", c.config.APIKey)
	}
	p.Set("retmode", string(c.config.ReturnType))
	return p
}

// Params returns the merged wire parameters for d: client defaults, then the
// descriptor's own parameters, then override. Later sources win.
func (c *Client) Params(d query.Descriptor, override query.Params) query.Params {
	merged := query.Merge(c.baseParams(), d.Params())
	if override.Len() > 0 {
		if keys := query.Collisions(merged, override); len(keys) > 0 {
			c.logger.Debug().
				Strs("keys", keys).
				Str("query", d.String()).
				Msg("Override replaces request parameters")
		}
		merged = query.Merge(merged, override)
	}
	return merged
}

// Do throttles, then dispatches d with the merged parameters. Any completed
// exchange yields a Response, whatever its status code.
func (c *Client) Do(ctx context.Context, d query.Descriptor, override query.Params) (*Response, error) {
	endpoint := d.Endpoint()
	target := c.config.Server + d.EndpointURI()
	params := c.Params(d, override)

	if m := d.Method(); m != query.MethodGet && m != query.MethodPost {
		return nil, &ConfigurationError{Field: "method", Reason: fmt.Sprintf("incorrect query method %q", m)}
	}

	wait, err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", string(d.Method())).
		Str("query", d.String()).
		Dur("throttled", wait).
		Msg("Executing E-utilities request")

	start := time.Now()
	raw, err := c.transport.Perform(ctx, Request{
		Method:  string(d.Method()),
		URL:     target,
		Params:  params.Values(),
		Timeout: c.config.Timeout,
	})
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		err = asTransportError(err, string(d.Method()), target)
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().
			Err(err).
			Str("endpoint", endpoint).
			Msg("E-utilities request failed")
		return nil, err
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(raw.StatusCode)).Inc()
	if class := classify(raw.StatusCode); class != "" {
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status_code", raw.StatusCode).
			Str("error_class", string(class)).
			Msg("E-utilities request error")
	}

	return NewResponse(d, raw), nil
}

// asTransportError wraps a plain error from a Transport so that bulk runners
// retry it. Configuration errors and existing TransportErrors pass unchanged.
func asTransportError(err error, method, target string) error {
	var terr *TransportError
	var cerr *ConfigurationError
	if errors.As(err, &terr) || errors.As(err, &cerr) {
		return err
	}
	return &TransportError{Method: method, URL: target, Err: err}
}
