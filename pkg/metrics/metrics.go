// Package metrics exposes the Prometheus registry used by the E-utilities
// client. All metrics are defined in their respective packages (client,
// ratelimit, retry) via promauto to maintain modularity and avoid circular
// dependencies.
//
// This package provides the scrape handler and documentation for all
// available metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the scrape handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - eutils_requests_total{endpoint, status} (Counter): Requests by E-utility and HTTP status
//   - eutils_request_duration_seconds{endpoint} (Histogram): Request duration by E-utility
//   - eutils_errors_total{class} (Counter): Failed requests by class (client, server, network)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - eutils_rate_limit_waits_total (Counter): Requests delayed by the minimal interval
//   - eutils_rate_limit_wait_seconds (Histogram): Time spent waiting for the interval
//
// Bulk Retrieval Metrics (pkg/retry):
//   - eutils_retries_total{unit} (Counter): Retries of failed chunks (unit="batch") or pages (unit="page")
//   - eutils_retry_exhausted_total{unit} (Counter): Units that hit a configured retry cap
//   - eutils_units_completed_total{unit} (Counter): Chunks or pages retrieved successfully
//
// Example Prometheus Queries:
//
//   # Share of requests that had to wait for the throttle
//   rate(eutils_rate_limit_waits_total[5m]) / sum(rate(eutils_requests_total[5m]))
//
//   # Retries per completed page
//   rate(eutils_retries_total{unit="page"}[5m]) / rate(eutils_units_completed_total{unit="page"}[5m])
//
//   # Server error rate
//   rate(eutils_errors_total{class="server"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(eutils_request_duration_seconds_bucket[5m]))
