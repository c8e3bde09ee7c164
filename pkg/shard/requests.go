package shard

import (
	"github.com/Sternrassler/genomics-client/pkg/genomics"
	"github.com/Sternrassler/genomics-client/pkg/region"
)

// ReadsRequest builds the reads search request covering the shard.
func (s Shard) ReadsRequest(pageSize int) *genomics.SearchReadsRequest {
	req := &genomics.SearchReadsRequest{
		ReferenceName: s.ReferenceName,
		Start:         s.Start,
		End:           s.End,
		Paging:        genomics.Paging{PageSize: pageSize},
	}
	if s.DatasetID != "" {
		req.ReadGroupSetIDs = []string{s.DatasetID}
	}
	return req
}

// VariantsRequest builds the variants search request covering the shard.
func (s Shard) VariantsRequest(pageSize int) *genomics.SearchVariantsRequest {
	req := &genomics.SearchVariantsRequest{
		ReferenceName: s.ReferenceName,
		Start:         s.Start,
		End:           s.End,
		Paging:        genomics.Paging{PageSize: pageSize},
	}
	if s.DatasetID != "" {
		req.VariantSetIDs = []string{s.DatasetID}
	}
	return req
}

// ReadsRequests partitions regions for the given read group sets and returns
// one request per shard, in shuffled order.
func (p *Partitioner) ReadsRequests(regions []region.Region, maxBasesPerShard int64, readGroupSetIDs []string, pageSize int) ([]*genomics.SearchReadsRequest, error) {
	shards, err := p.PartitionForDatasets(regions, maxBasesPerShard, readGroupSetIDs)
	if err != nil {
		return nil, err
	}
	reqs := make([]*genomics.SearchReadsRequest, len(shards))
	for i, s := range shards {
		reqs[i] = s.ReadsRequest(pageSize)
	}
	return reqs, nil
}

// VariantsRequests partitions regions for the given variant sets and returns
// one request per shard, in shuffled order.
func (p *Partitioner) VariantsRequests(regions []region.Region, maxBasesPerShard int64, variantSetIDs []string, pageSize int) ([]*genomics.SearchVariantsRequest, error) {
	shards, err := p.PartitionForDatasets(regions, maxBasesPerShard, variantSetIDs)
	if err != nil {
		return nil, err
	}
	reqs := make([]*genomics.SearchVariantsRequest, len(shards))
	for i, s := range shards {
		reqs[i] = s.VariantsRequest(pageSize)
	}
	return reqs, nil
}
