package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/Sternrassler/genomics-client/pkg/client"
	"github.com/Sternrassler/genomics-client/pkg/logging"
	"github.com/Sternrassler/genomics-client/pkg/metrics"
)

const defaultUserAgent = "genomics-shards/0.1.0"

type rootOptions struct {
	apiURL      string
	redisAddr   string
	userAgent   string
	accessToken string
	logLevel    string
	prettyLogs  bool
	metricsAddr string

	logger zerolog.Logger
}

var longRootCmdDescription = `genomics-shards splits genomic regions into shards and runs
reads or variants searches over every shard with a bounded worker pool.

Defaults for the global flags are read from GENOMICS_API_URL, REDIS_ADDR,
USER_AGENT, GENOMICS_ACCESS_TOKEN and LOG_LEVEL.
`

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "genomics-shards",
		Short:         "Shard and search genomic regions",
		Long:          longRootCmdDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.complete(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", getEnv("GENOMICS_API_URL", client.DefaultBaseURL), "base URL of the genomics API")
	flags.StringVar(&opts.redisAddr, "redis-addr", getEnv("REDIS_ADDR", ""), "redis address for the page cache and quota state; empty disables both")
	flags.StringVar(&opts.userAgent, "user-agent", getEnv("USER_AGENT", defaultUserAgent), "User-Agent sent with every request")
	flags.StringVar(&opts.accessToken, "access-token", getEnv("GENOMICS_ACCESS_TOKEN", ""), "OAuth2 bearer token")
	flags.StringVar(&opts.logLevel, "log-level", getEnv("LOG_LEVEL", "info"), "log level: debug, info, warn or error")
	flags.BoolVar(&opts.prettyLogs, "pretty", false, "human-readable log output")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")

	cmd.AddCommand(newShardsCmd(opts), newReadsCmd(opts), newVariantsCmd(opts))
	return cmd
}

// complete validates the global flags and configures logging.
func (o *rootOptions) complete(cmd *cobra.Command) error {
	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	o.logger = logging.Setup(logging.Config{
		Level:  level,
		Pretty: o.prettyLogs,
		Output: cmd.ErrOrStderr(),
	})

	if o.metricsAddr != "" {
		go func() {
			if err := metrics.Serve(cmd.Context(), o.metricsAddr); err != nil {
				o.logger.Error().Err(err).Str("addr", o.metricsAddr).Msg("Metrics server failed")
			}
		}()
	}
	return nil
}

// newClient builds the API client. The returned close function releases the
// redis connection, if any.
func (o *rootOptions) newClient(ctx context.Context) (*client.Client, func(), error) {
	var redisClient *redis.Client
	if o.redisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: o.redisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", o.redisAddr, err)
		}
		o.logger.Debug().Str("addr", o.redisAddr).Msg("Connected to Redis")
	}

	cfg := client.DefaultConfig(redisClient, o.userAgent)
	cfg.BaseURL = o.apiURL
	if o.accessToken != "" {
		cfg.TokenSource = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: o.accessToken})
	}

	c, err := client.New(cfg)
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, nil, err
	}
	return c, func() {
		c.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
