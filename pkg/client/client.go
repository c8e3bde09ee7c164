// Package client provides the HTTP transport for the genomics API with
// quota tracking, page caching and error classification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/Sternrassler/genomics-client/pkg/cache"
	"github.com/Sternrassler/genomics-client/pkg/errs"
	"github.com/Sternrassler/genomics-client/pkg/logging"
	"github.com/Sternrassler/genomics-client/pkg/ratelimit"
)

// DefaultBaseURL is the public genomics API endpoint.
const DefaultBaseURL = "https://genomics.googleapis.com"

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genomics_requests_total",
		Help: "Total genomics API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "genomics_request_duration_seconds",
		Help:    "Genomics API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genomics_errors_total",
		Help: "Total genomics API errors by class",
	}, []string{"class"})
)

// Client talks to the genomics API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API, without trailing /v1
	BaseURL string

	// User-Agent header sent with every request
	UserAgent string

	// Redis client for page caching and shared quota state (optional)
	Redis *redis.Client

	// TokenSource authorizes requests (optional)
	TokenSource oauth2.TokenSource

	// Timeout of a single HTTP attempt
	Timeout time.Duration

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration

	// CacheTTL applies to pages whose response has no Expires header
	CacheTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		UserAgent:      userAgent,
		Redis:          redis,
		Timeout:        30 * time.Second,
		MaxRetries:     2,
		InitialBackoff: 1 * time.Second,
		CacheTTL:       cache.DefaultTTL,
	}
}

// New creates a new genomics API client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, errs.Validation("user_agent", "is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errs.Validation("base_url", "%q is not an absolute URL", cfg.BaseURL)
	}
	if cfg.MaxRetries < 0 {
		return nil, errs.Validation("max_retries", "must be >= 0 (got %d)", cfg.MaxRetries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 1 * time.Second
	}

	logger := logging.NewLogger("genomics-client")

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.TokenSource != nil {
		transport = &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, cfg.TokenSource),
			Base:   http.DefaultTransport,
		}
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		config:  cfg,
		logger:  logger,
	}

	if cfg.Redis != nil {
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis, logger)
		c.cache = cache.NewManager(cfg.Redis)
	} else {
		logger.Debug().Msg("No redis configured, page cache and shared rate limit disabled")
	}

	return c, nil
}

// call describes one API request. endpoint labels metrics, e.g.
// "/v1/variantsets/get"; path is appended to the base URL and keys the cache.
type call struct {
	endpoint string
	method   string
	path     string
	query    url.Values
	body     []byte
	fields   string
}

// do serves a request from the cache, or performs it with quota gating and
// retries, and returns the successful response. Non-2xx answers are
// returned as *APIError.
func (c *Client) do(ctx context.Context, cl call) (*http.Response, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(cl.endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// keyed by path so that resources fetched by id cache separately
	cacheKey := cache.CacheKey{
		Endpoint:    cl.path,
		Fields:      cl.fields,
		QueryParams: cl.query,
		Body:        cl.body,
	}

	if c.cache != nil {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().Str("endpoint", cl.endpoint).Msg("Serving page from cache")
			requestsTotal.WithLabelValues(cl.endpoint, "cached").Inc()
			return cache.EntryToResponse(entry), nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", cl.endpoint).Msg("Cache get error")
		}
	}

	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Rate limit check failed")
			return nil, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			c.logger.Warn().
				Str("endpoint", cl.endpoint).
				Msg("Request blocked by rate limiter")
			requestsTotal.WithLabelValues(cl.endpoint, "rate_limited").Inc()
			return nil, ErrRateLimited
		}
	}

	target := c.baseURL + cl.path
	query := url.Values{}
	for k, v := range cl.query {
		query[k] = v
	}
	if cl.fields != "" {
		query.Set("fields", cl.fields)
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	c.logger.Debug().
		Str("endpoint", cl.endpoint).
		Str("method", cl.method).
		Msg("Executing genomics request")

	var resp *http.Response
	err := retryWithBackoff(ctx, c.logger, c.retryConfig, func() error {
		var err error
		resp, err = c.attempt(ctx, cl, target)
		return err
	}, classifyError)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", cl.endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// attempt sends one HTTP request. The body is rebuilt for every attempt.
func (c *Client) attempt(ctx context.Context, cl call, target string) (*http.Response, error) {
	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("endpoint", cl.endpoint).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(cl.endpoint, "network_error").Inc()
		return nil, err
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	requestsTotal.WithLabelValues(cl.endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()

		c.logger.Warn().
			Str("endpoint", cl.endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Genomics request error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    errorMessage(resp),
		}
	}

	return resp, nil
}

func (c *Client) retryConfig(class ErrorClass) RetryConfig {
	return RetryConfigForErrorClass(class, c.config.MaxRetries+1, c.config.InitialBackoff)
}

// errorMessage extracts error.message from a JSON error body, falling back
// to the status line.
func errorMessage(resp *http.Response) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && json.Unmarshal(data, &payload) == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return resp.Status
}

// Close releases idle connections. The redis client belongs to the caller.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil without redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
