// Package metrics exposes the Prometheus metrics of the genomics client.
// All metrics are defined in their respective packages and registered via
// promauto, to keep packages independent of each other.
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

// Registry is the default Prometheus registry used by the genomics client.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving all registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("component", "metrics").Str("addr", addr).Msg("Serving metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - genomics_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status ("cached", "rate_limited", "network_error" for requests without one)
//   - genomics_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - genomics_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - genomics_client_retries_total{error_class} (Counter): Transport retry attempts
//   - genomics_client_retry_backoff_seconds{error_class} (Histogram): Backoff duration
//   - genomics_client_retry_exhausted_total{error_class} (Counter): Requests that exhausted their retries
//
// Paging Metrics (pkg/pager, pkg/stream):
//   - genomics_pages_fetched_total{request} (Counter): Pages delivered by walkers
//   - genomics_page_retries_total{request} (Counter): Pages re-sent by a retry policy
//   - genomics_search_failures_total{request} (Counter): Searches that failed for good
//   - genomics_stream_items_filtered_total (Counter): Items dropped by shard boundary filters
//
// Sharding Metrics (pkg/shard, pkg/dispatch):
//   - genomics_shards_generated_total (Counter): Shards produced by the partitioner
//   - genomics_dispatch_shards_total{outcome} (Counter): Shards by outcome (ok, failed, skipped)
//   - genomics_dispatch_shard_duration_seconds (Histogram): Time per shard
//   - genomics_dispatch_shards_in_flight (Gauge): Shards being processed
//
// Cache Metrics (pkg/cache):
//   - genomics_cache_hits_total{layer="redis"} (Counter): Page cache hits
//   - genomics_cache_misses_total (Counter): Page cache misses
//   - genomics_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - genomics_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - genomics_rate_limit_remaining (Gauge): Requests left in the current window
//   - genomics_rate_limit_blocks_total (Counter): Requests blocked at the critical threshold
//   - genomics_rate_limit_throttles_total (Counter): Requests delayed at the warning threshold
//
// Example Prometheus Queries:
//
//   # Page Cache Hit Rate
//   sum(rate(genomics_cache_hits_total[5m])) /
//   (sum(rate(genomics_cache_hits_total[5m])) + sum(rate(genomics_cache_misses_total[5m])))
//
//   # Shard Failure Ratio
//   sum(rate(genomics_dispatch_shards_total{outcome="failed"}[15m])) /
//   sum(rate(genomics_dispatch_shards_total[15m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(genomics_request_duration_seconds_bucket[5m]))
