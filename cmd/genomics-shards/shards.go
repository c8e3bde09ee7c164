package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/genomics-client/pkg/region"
	"github.com/Sternrassler/genomics-client/pkg/shard"
)

// partitionOptions are shared by every command that partitions regions.
type partitionOptions struct {
	regions   string
	shardSize int64
	datasets  []string
	seed      uint64
	sexFilter string

	seeded bool
	filter shard.SexChromosomeFilter
}

func (o *partitionOptions) addFlags(cmd *cobra.Command, datasetHelp string) {
	flags := cmd.Flags()
	flags.StringVar(&o.regions, "regions", "", "comma separated name:start:end regions")
	flags.Int64Var(&o.shardSize, "shard-size", 1_000_000, "maximum bases per shard")
	flags.StringSliceVar(&o.datasets, "datasets", nil, datasetHelp)
	flags.Uint64Var(&o.seed, "seed", 0, "shuffle seed for a reproducible shard order")
	flags.StringVar(&o.sexFilter, "sex-chromosomes", shard.IncludeXY.String(), "includeXY or excludeXY")
}

func (o *partitionOptions) complete(cmd *cobra.Command) error {
	filter, err := shard.ParseSexChromosomeFilter(o.sexFilter)
	if err != nil {
		return err
	}
	o.filter = filter
	o.seeded = cmd.Flags().Changed("seed")
	return nil
}

func (o *partitionOptions) partitioner() *shard.Partitioner {
	if o.seeded {
		return shard.NewSeededPartitioner(o.seed)
	}
	return shard.NewPartitioner()
}

// parseRegions parses --regions and drops the references the sex chromosome
// filter excludes.
func (o *partitionOptions) parseRegions() ([]region.Region, error) {
	if o.regions == "" {
		return nil, fmt.Errorf("--regions is required")
	}
	regions, err := region.Parse(o.regions)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(regions, func(r region.Region) bool {
		return o.filter.Excludes(r.ReferenceName)
	}), nil
}

// shards partitions regions and, when datasets were given, crosses the
// result with them.
func (o *partitionOptions) shards(regions []region.Region) ([]shard.Shard, error) {
	p := o.partitioner()
	if len(o.datasets) > 0 {
		return p.PartitionForDatasets(regions, o.shardSize, o.datasets)
	}

	parts, err := p.Partition(regions, o.shardSize)
	if err != nil {
		return nil, err
	}
	out := make([]shard.Shard, len(parts))
	for i, r := range parts {
		out[i] = shard.Shard{Region: r}
	}
	return out, nil
}

func newShardsCmd(root *rootOptions) *cobra.Command {
	opts := &partitionOptions{}

	cmd := &cobra.Command{
		Use:   "shards",
		Short: "Print the shuffled shards of the given regions",
		Example: `  genomics-shards shards --regions 17:41196311:41277499 --shard-size 10000
  genomics-shards shards --regions 1:0:5000000,X:0:1000000 --datasets rgs1,rgs2 --sex-chromosomes excludeXY`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.complete(cmd); err != nil {
				return err
			}
			regions, err := opts.parseRegions()
			if err != nil {
				return err
			}
			shards, err := opts.shards(regions)
			if err != nil {
				return err
			}

			root.logger.Info().
				Int("regions", len(regions)).
				Int("shards", len(shards)).
				Int64("shard_size", opts.shardSize).
				Msg("Partitioned regions")

			out := cmd.OutOrStdout()
			for _, s := range shards {
				fmt.Fprintln(out, s)
			}
			return nil
		},
	}

	opts.addFlags(cmd, "dataset ids to cross with every shard")
	return cmd
}
