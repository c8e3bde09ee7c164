package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/genomics-client/pkg/boundary"
	"github.com/Sternrassler/genomics-client/pkg/dispatch"
	"github.com/Sternrassler/genomics-client/pkg/errs"
	"github.com/Sternrassler/genomics-client/pkg/query"
	"github.com/Sternrassler/genomics-client/pkg/region"
	"github.com/Sternrassler/genomics-client/pkg/retry"
	"github.com/Sternrassler/genomics-client/pkg/shard"
	"github.com/Sternrassler/genomics-client/pkg/stream"
)

type searchOptions struct {
	partitionOptions

	boundary    string
	fields      string
	pageSize    int
	retries     int
	concurrency int
	timeout     time.Duration
	refresh     bool
}

func (o *searchOptions) addFlags(cmd *cobra.Command, datasetHelp string) {
	o.partitionOptions.addFlags(cmd, datasetHelp)

	defaults := dispatch.DefaultConfig()
	flags := cmd.Flags()
	flags.StringVar(&o.boundary, "boundary", boundary.Overlaps.String(), "shard boundary policy: OVERLAPS, STRICT or NON_VARIANT_OVERLAPS")
	flags.StringVar(&o.fields, "fields", "", "partial-response field mask")
	flags.IntVar(&o.pageSize, "page-size", 0, "records per page; 0 leaves it to the server")
	flags.IntVar(&o.retries, "retries", 3, "retries per page after a failed search")
	flags.IntVar(&o.concurrency, "concurrency", defaults.MaxConcurrency, "shards searched in parallel")
	flags.DurationVar(&o.timeout, "shard-timeout", defaults.Timeout, "time limit per shard; 0 disables it")
	flags.BoolVar(&o.refresh, "refresh", false, "drop cached pages of this search before running")
}

func (o *searchOptions) queryOptions() (query.Options, error) {
	policy, err := boundary.ParsePolicy(o.boundary)
	if err != nil {
		return query.Options{}, err
	}
	if o.retries < 0 {
		return query.Options{}, fmt.Errorf("--retries must not be negative")
	}
	return query.Options{
		Fields:   o.fields,
		PageSize: o.pageSize,
		Boundary: policy,
		Retry:    retry.NTimes(o.retries),
	}, nil
}

// counter returns the per-shard work: stream the shard and count what the
// boundary policy keeps.
type counter func(api query.API, opts query.Options) dispatch.ShardFunc

func countReads(api query.API, opts query.Options) dispatch.ShardFunc {
	return func(ctx context.Context, s shard.Shard) (int, error) {
		reads, err := query.Reads(api, s, opts)
		if err != nil {
			return 0, err
		}
		return stream.Count(ctx, reads)
	}
}

func countVariants(api query.API, opts query.Options) dispatch.ShardFunc {
	return func(ctx context.Context, s shard.Shard) (int, error) {
		variants, err := query.Variants(api, s, opts)
		if err != nil {
			return 0, err
		}
		return stream.Count(ctx, variants)
	}
}

func newReadsCmd(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:     "reads",
		Short:   "Count the reads of every shard",
		Example: `  genomics-shards reads --datasets CMvnhpKTFhDnk4_9zcKO3_YB --regions 17:41196311:41277499 --shard-size 10000 --boundary STRICT`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, root, "/v1/reads/search", countReads, nil)
		},
	}

	opts.addFlags(cmd, "read group set ids (required)")
	cmd.MarkFlagRequired("datasets")
	return cmd
}

func newVariantsCmd(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "variants",
		Short: "Count the variants of every shard",
		Long: `Count the variants of every shard.

Without --regions the whole reference bounds of the first variant set are
searched.`,
		Example: `  genomics-shards variants --datasets 10473108253681171589 --shard-size 1000000 --sex-chromosomes excludeXY`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, root, "/v1/variants/search", countVariants, func(ctx context.Context, api query.API) ([]region.Region, error) {
				return query.VariantSetRegions(ctx, api, opts.datasets[0], opts.filter)
			})
		},
	}

	opts.addFlags(cmd, "variant set ids (required)")
	cmd.MarkFlagRequired("datasets")
	return cmd
}

// run partitions the regions, dispatches count over the shards and prints
// one line per shard followed by a total. endpoint names the cached pages
// --refresh drops. defaultRegions is used when --regions is empty; nil makes
// --regions required.
func (o *searchOptions) run(cmd *cobra.Command, root *rootOptions, endpoint string, count counter, defaultRegions func(context.Context, query.API) ([]region.Region, error)) error {
	if err := o.complete(cmd); err != nil {
		return err
	}
	if len(o.datasets) == 0 {
		return errs.Validation("datasets", "at least one dataset id is required")
	}
	qopts, err := o.queryOptions()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	api, closeClient, err := root.newClient(ctx)
	if err != nil {
		return err
	}
	defer closeClient()

	if o.refresh {
		if pages := api.GetCache(); pages != nil {
			removed, err := pages.Invalidate(ctx, endpoint)
			if err != nil {
				return fmt.Errorf("refresh cached pages: %w", err)
			}
			root.logger.Info().Str("endpoint", endpoint).Int("pages", removed).Msg("Dropped cached pages")
		}
	}

	var regions []region.Region
	if o.regions == "" && defaultRegions != nil {
		regions, err = defaultRegions(ctx, api)
	} else {
		regions, err = o.parseRegions()
	}
	if err != nil {
		return err
	}

	shards, err := o.shards(regions)
	if err != nil {
		return err
	}

	logger := root.logger
	qopts.Logger = &logger

	d := dispatch.New(dispatch.Config{
		MaxConcurrency: o.concurrency,
		Timeout:        o.timeout,
	})
	results, summary := d.Run(ctx, shards, count(api, qopts))

	slices.SortFunc(results, func(a, b dispatch.Result) int {
		return strings.Compare(a.Shard.String(), b.Shard.String())
	})

	out := cmd.OutOrStdout()
	for _, r := range results {
		switch {
		case r.Skipped:
			fmt.Fprintf(out, "%s\tskipped\n", r.Shard)
		case r.Err != nil:
			fmt.Fprintf(out, "%s\tfailed: %v\n", r.Shard, r.Err)
		default:
			fmt.Fprintf(out, "%s\t%d\n", r.Shard, r.Items)
		}
	}
	fmt.Fprintf(out, "total\t%d shards\t%d items\t%d failed\t%d skipped\n",
		summary.Total, summary.Items, summary.Failed, summary.Skipped)

	if summary.OK() {
		return nil
	}
	if err := dispatch.Err(results); err != nil {
		return fmt.Errorf("%d of %d shards failed: %w", summary.Failed, summary.Total, err)
	}
	return fmt.Errorf("%d of %d shards skipped: %w", summary.Skipped, summary.Total, ctx.Err())
}
