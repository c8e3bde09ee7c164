package client

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genomics_client_retries_total",
		Help: "Total number of request retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "genomics_client_retry_backoff_seconds",
		Help:    "Backoff duration for request retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genomics_client_retry_exhausted_total",
		Help: "Total number of times request retries were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryConfigForErrorClass returns the retry configuration for an error
// class, scaled from base. A base of one second gives 1s/10s for server
// errors, 5s/60s for rate limiting and 2s/30s for network errors.
func RetryConfigForErrorClass(errorClass ErrorClass, maxAttempts int, base time.Duration) RetryConfig {
	cfg := RetryConfig{
		MaxAttempts:       maxAttempts,
		BackoffMultiplier: 2.0,
	}
	switch errorClass {
	case ErrorClassServer:
		cfg.InitialBackoff, cfg.MaxBackoff = base, 10*base
	case ErrorClassRateLimit:
		cfg.InitialBackoff, cfg.MaxBackoff = 5*base, 60*base
	case ErrorClassNetwork:
		cfg.InitialBackoff, cfg.MaxBackoff = 2*base, 30*base
	default:
		cfg.InitialBackoff, cfg.MaxBackoff = base, 30*base
	}
	return cfg
}

// backoffFor returns the jittered delay before attempt+1.
func backoffFor(cfg RetryConfig, attempt int) time.Duration {
	backoff := float64(cfg.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= cfg.BackoffMultiplier
		if backoff > float64(cfg.MaxBackoff) {
			backoff = float64(cfg.MaxBackoff)
			break
		}
	}
	// ±20% jitter
	return time.Duration(backoff * (0.8 + rand.Float64()*0.4))
}

// retryWithBackoff executes fn with exponential backoff. Each failure is
// classified; errors of a non-retriable class are returned immediately and
// the others are retried with the configuration configFor returns.
func retryWithBackoff(ctx context.Context, logger zerolog.Logger, configFor func(ErrorClass) RetryConfig, fn func() error, classify func(error) ErrorClass) error {
	var (
		lastErr    error
		errorClass ErrorClass
		attempt    int
	)

	for attempt = 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("error_class", string(errorClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		errorClass = classify(err)

		if !shouldRetry(errorClass) {
			return lastErr
		}

		config := configFor(errorClass)
		if attempt >= config.MaxAttempts {
			break
		}

		retriesTotal.WithLabelValues(string(errorClass)).Inc()

		wait := backoffFor(config, attempt)
		retryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(wait.Seconds())

		logger.Debug().
			Err(err).
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	retryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
	logger.Warn().
		Str("error_class", string(errorClass)).
		Int("attempts", attempt).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt, lastErr)
}
