package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/genomics-client/pkg/logging"
	"github.com/Sternrassler/genomics-client/pkg/shard"
)

var (
	shardsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genomics_dispatch_shards_total",
		Help: "Total shards processed by outcome",
	}, []string{"outcome"}) // "ok", "failed", "skipped"

	shardDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "genomics_dispatch_shard_duration_seconds",
		Help:    "Time spent on one shard",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})

	shardsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "genomics_dispatch_shards_in_flight",
		Help: "Shards currently being processed",
	})
)

// Config holds dispatcher configuration.
type Config struct {
	// MaxConcurrency is the maximum number of shards processed in parallel
	MaxConcurrency int
	// Timeout per shard; 0 disables it
	Timeout time.Duration
	// ProgressEvery logs progress after this many completed shards
	ProgressEvery int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
		Timeout:        5 * time.Minute,
		ProgressEvery:  50,
	}
}

// ShardFunc processes one shard and returns the number of items it produced.
type ShardFunc func(ctx context.Context, s shard.Shard) (int, error)

// Result is the outcome of one shard.
type Result struct {
	Shard    shard.Shard
	Items    int
	Err      error
	Duration time.Duration
	// Skipped is set for shards never started because ctx was cancelled
	Skipped bool
}

// Summary aggregates the results of a run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Items     int
	Duration  time.Duration
}

// OK reports whether every shard succeeded.
func (s Summary) OK() bool {
	return s.Succeeded == s.Total
}

// Dispatcher runs shard functions on a bounded worker pool.
type Dispatcher struct {
	config Config
	logger zerolog.Logger
}

// New creates a dispatcher, filling in defaults for unset fields.
func New(config Config) *Dispatcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if config.ProgressEvery <= 0 {
		config.ProgressEvery = 50
	}
	return &Dispatcher{
		config: config,
		logger: logging.NewLogger("dispatch"),
	}
}

// Run calls fn for every shard and returns the results in completion order.
// Shards not started before ctx is done are reported as skipped. A failing
// shard never cancels its siblings.
func (d *Dispatcher) Run(ctx context.Context, shards []shard.Shard, fn ShardFunc) ([]Result, Summary) {
	start := time.Now()

	d.logger.Info().
		Int("shards", len(shards)).
		Int("workers", d.config.MaxConcurrency).
		Msg("Starting shard dispatch")

	var (
		mu      sync.Mutex
		results = make([]Result, 0, len(shards))
		summary = Summary{Total: len(shards)}
	)

	record := func(r Result) {
		mu.Lock()
		defer mu.Unlock()

		results = append(results, r)
		switch {
		case r.Skipped:
			summary.Skipped++
			shardsTotal.WithLabelValues("skipped").Inc()
			return
		case r.Err != nil:
			summary.Failed++
			shardsTotal.WithLabelValues("failed").Inc()
			d.logger.Warn().
				Err(r.Err).
				Str("shard", r.Shard.String()).
				Int("items", r.Items).
				Msg("Shard failed")
		default:
			summary.Succeeded++
			summary.Items += r.Items
			shardsTotal.WithLabelValues("ok").Inc()
			d.logger.Debug().
				Str("shard", r.Shard.String()).
				Int("items", r.Items).
				Dur("duration", r.Duration).
				Msg("Shard complete")
		}

		done := summary.Succeeded + summary.Failed
		if done%d.config.ProgressEvery == 0 {
			d.logger.Info().
				Int("done", done).
				Int("total", summary.Total).
				Int("failed", summary.Failed).
				Float64("progress_pct", float64(done)/float64(summary.Total)*100).
				Msg("Dispatch progress")
		}
	}

	var g errgroup.Group
	g.SetLimit(d.config.MaxConcurrency)

	next := 0
	for ; next < len(shards); next++ {
		if ctx.Err() != nil {
			break
		}
		s := shards[next]
		g.Go(func() error {
			// g.Go may have waited for a free worker.
			if err := ctx.Err(); err != nil {
				record(Result{Shard: s, Err: err, Skipped: true})
				return nil
			}
			record(d.runShard(ctx, s, fn))
			return nil
		})
	}
	g.Wait()

	if next < len(shards) {
		d.logger.Warn().
			Err(ctx.Err()).
			Int("skipped", len(shards)-next).
			Msg("Context cancelled, remaining shards skipped")
		for _, s := range shards[next:] {
			record(Result{Shard: s, Err: ctx.Err(), Skipped: true})
		}
	}

	summary.Duration = time.Since(start)

	d.logger.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Int("items", summary.Items).
		Dur("duration", summary.Duration).
		Msg("Shard dispatch complete")

	return results, summary
}

func (d *Dispatcher) runShard(ctx context.Context, s shard.Shard, fn ShardFunc) Result {
	shardsInFlight.Inc()
	defer shardsInFlight.Dec()

	shardCtx := ctx
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		shardCtx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	items, err := fn(shardCtx, s)
	elapsed := time.Since(start)
	shardDuration.Observe(elapsed.Seconds())

	return Result{Shard: s, Items: items, Err: err, Duration: elapsed}
}

// Failed returns the shards whose run failed or was skipped, ready to be
// dispatched again.
func Failed(results []Result) []shard.Shard {
	var out []shard.Shard
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r.Shard)
		}
	}
	return out
}

// Err joins the errors of every failed shard, or returns nil.
func Err(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil && !r.Skipped {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}
