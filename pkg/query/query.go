// Package query turns shards and search parameters into item streams.
//
// Every function builds a fresh page walker with its own retry policy and
// flattens its pages into a stream. Reads and Variants additionally apply
// the shard boundary policy, so a sharded pull sees every record once.
//
//	api, _ := client.New(client.DefaultConfig(nil, "my-tool/1.0"))
//	for _, s := range shards {
//		reads, err := query.Reads(api, s, query.DefaultOptions())
//		if err != nil {
//			return err
//		}
//		for read, err := range reads.All(ctx) {
//			...
//		}
//	}
package query

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/genomics-client/pkg/boundary"
	"github.com/Sternrassler/genomics-client/pkg/errs"
	"github.com/Sternrassler/genomics-client/pkg/genomics"
	"github.com/Sternrassler/genomics-client/pkg/logging"
	"github.com/Sternrassler/genomics-client/pkg/pager"
	"github.com/Sternrassler/genomics-client/pkg/region"
	"github.com/Sternrassler/genomics-client/pkg/retry"
	"github.com/Sternrassler/genomics-client/pkg/shard"
	"github.com/Sternrassler/genomics-client/pkg/stream"
)

// API is the set of page fetches the queries need. *client.Client
// implements it.
type API interface {
	SearchReads(ctx context.Context, req *genomics.SearchReadsRequest) (*genomics.SearchReadsResponse, error)
	SearchVariants(ctx context.Context, req *genomics.SearchVariantsRequest) (*genomics.SearchVariantsResponse, error)
	SearchReferences(ctx context.Context, req *genomics.SearchReferencesRequest) (*genomics.SearchReferencesResponse, error)
	SearchReadGroupSets(ctx context.Context, req *genomics.SearchReadGroupSetsRequest) (*genomics.SearchReadGroupSetsResponse, error)
	SearchVariantSets(ctx context.Context, req *genomics.SearchVariantSetsRequest) (*genomics.SearchVariantSetsResponse, error)
	SearchCallSets(ctx context.Context, req *genomics.SearchCallSetsRequest) (*genomics.SearchCallSetsResponse, error)
	ListDatasets(ctx context.Context, req *genomics.ListDatasetsRequest) (*genomics.ListDatasetsResponse, error)
	GetVariantSet(ctx context.Context, id string) (*genomics.VariantSet, error)
}

// Options configures a query.
type Options struct {
	// Fields is the partial-response mask; "" returns every field
	Fields string

	// PageSize per request; 0 leaves it to the server
	PageSize int

	// Boundary decides which records of a shard are kept
	Boundary boundary.Policy

	// Retry supplies one policy per walk; nil never retries
	Retry retry.Factory

	// Logger for page events; nil uses the global logger
	Logger *zerolog.Logger
}

// DefaultOptions returns options that retry each page three times and keep
// every overlapping record.
func DefaultOptions() Options {
	return Options{
		Boundary: boundary.Overlaps,
		Retry:    retry.NTimes(3),
	}
}

func (o Options) policy() retry.Policy {
	if o.Retry == nil {
		return retry.Never
	}
	return o.Retry.New()
}

func (o Options) logger(search string) zerolog.Logger {
	if o.Logger != nil {
		return o.Logger.With().Str("search", search).Logger()
	}
	return logging.NewLogger("query").With().Str("search", search).Logger()
}

// walk builds the walker for req and flattens its pages.
func walk[Req pager.Request[Req], Resp pager.Response, T any](
	search string,
	req Req,
	send pager.SendFunc[Req, Resp],
	extract func(Resp) []T,
	filter boundary.Predicate[T],
	opts Options,
	extra ...pager.Option[Req],
) (*stream.Stream[T], error) {
	logger := opts.logger(search)
	walkerOpts := []pager.Option[Req]{pager.WithLogger[Req](logger)}
	if opts.Fields != "" {
		walkerOpts = append(walkerOpts, pager.WithFields[Req](opts.Fields))
	}
	walkerOpts = append(walkerOpts, extra...)

	walker, err := pager.New(req, send, opts.policy(), walkerOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", search, err)
	}

	var streamOpts []stream.Option[T]
	if filter != nil {
		streamOpts = append(streamOpts, stream.WithFilter[T](filter))
	}
	return stream.Flatten(walker, extract, streamOpts...), nil
}

// Reads streams the reads of one shard. With a Strict or NonVariantOverlaps
// boundary only reads whose alignment starts inside the shard are kept.
func Reads(api API, s shard.Shard, opts Options) (*stream.Stream[*genomics.Read], error) {
	filter, err := boundary.ForReads(opts.Boundary, s.Start, opts.Fields)
	if err != nil {
		return nil, err
	}
	return walk("reads", s.ReadsRequest(opts.PageSize), api.SearchReads,
		(*genomics.SearchReadsResponse).GetAlignments, filter, opts)
}

// Variants streams the variants of one shard, filtered by the boundary policy.
func Variants(api API, s shard.Shard, opts Options) (*stream.Stream[*genomics.Variant], error) {
	filter, err := boundary.ForVariants(opts.Boundary, s.Start, opts.Fields)
	if err != nil {
		return nil, err
	}
	return walk("variants", s.VariantsRequest(opts.PageSize), api.SearchVariants,
		(*genomics.SearchVariantsResponse).GetVariants, filter, opts)
}

// References streams the references of a reference set.
func References(api API, referenceSetID string, opts Options) (*stream.Stream[*genomics.Reference], error) {
	req := &genomics.SearchReferencesRequest{
		ReferenceSetID: referenceSetID,
		Paging:         genomics.Paging{PageSize: opts.PageSize},
	}
	return walk("references", req, api.SearchReferences,
		(*genomics.SearchReferencesResponse).GetReferences, nil, opts)
}

// ReadGroupSets streams the read group sets of datasets.
func ReadGroupSets(api API, datasetIDs []string, opts Options) (*stream.Stream[*genomics.ReadGroupSet], error) {
	if len(datasetIDs) == 0 {
		return nil, errs.Validation("datasetIds", "at least one dataset is required")
	}
	req := &genomics.SearchReadGroupSetsRequest{
		DatasetIDs: datasetIDs,
		Paging:     genomics.Paging{PageSize: opts.PageSize},
	}
	return walk("readgroupsets", req, api.SearchReadGroupSets,
		(*genomics.SearchReadGroupSetsResponse).GetReadGroupSets, nil, opts)
}

// VariantSets streams the variant sets of datasets.
func VariantSets(api API, datasetIDs []string, opts Options) (*stream.Stream[*genomics.VariantSet], error) {
	if len(datasetIDs) == 0 {
		return nil, errs.Validation("datasetIds", "at least one dataset is required")
	}
	req := &genomics.SearchVariantSetsRequest{
		DatasetIDs: datasetIDs,
		Paging:     genomics.Paging{PageSize: opts.PageSize},
	}
	return walk("variantsets", req, api.SearchVariantSets,
		(*genomics.SearchVariantSetsResponse).GetVariantSets, nil, opts)
}

// CallSets streams the call sets of variant sets.
func CallSets(api API, variantSetIDs []string, opts Options) (*stream.Stream[*genomics.CallSet], error) {
	req := &genomics.SearchCallSetsRequest{
		VariantSetIDs: variantSetIDs,
		Paging:        genomics.Paging{PageSize: opts.PageSize},
	}
	return walk("callsets", req, api.SearchCallSets,
		(*genomics.SearchCallSetsResponse).GetCallSets, nil, opts)
}

// Datasets streams the datasets of a project.
func Datasets(api API, projectID string, opts Options) (*stream.Stream[*genomics.Dataset], error) {
	if projectID == "" {
		return nil, errs.Validation("projectId", "is required")
	}
	req := &genomics.ListDatasetsRequest{
		ProjectID: projectID,
		Paging:    genomics.Paging{PageSize: opts.PageSize},
	}
	return walk("datasets", req, api.ListDatasets,
		(*genomics.ListDatasetsResponse).GetDatasets, nil, opts)
}

// VariantSetRegions returns one whole-reference region per reference bound
// of the variant set, after applying filter.
func VariantSetRegions(ctx context.Context, api API, variantSetID string, filter shard.SexChromosomeFilter) ([]region.Region, error) {
	vs, err := api.GetVariantSet(ctx, variantSetID)
	if err != nil {
		return nil, fmt.Errorf("get variant set %s: %w", variantSetID, err)
	}
	return shard.RegionsFromBounds(vs.ReferenceBounds, filter)
}

// ReferenceSetRegions returns one whole-reference region per reference of
// the reference set, after applying filter.
func ReferenceSetRegions(ctx context.Context, api API, referenceSetID string, filter shard.SexChromosomeFilter, opts Options) ([]region.Region, error) {
	refs, err := References(api, referenceSetID, opts)
	if err != nil {
		return nil, err
	}
	all, err := stream.Collect(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("list references of %s: %w", referenceSetID, err)
	}
	return shard.RegionsFromReferences(all, filter)
}
