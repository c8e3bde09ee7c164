// Package shard splits genomic regions into bounded, randomly ordered shards
// that can be processed independently by parallel workers.
//
// Shards are shuffled on purpose: workers that consume shards in generation
// order would all hit the same reference at once and hot-spot the server.
package shard

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/Sternrassler/genomics-client/pkg/errs"
	"github.com/Sternrassler/genomics-client/pkg/genomics"
	"github.com/Sternrassler/genomics-client/pkg/region"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var shardsGenerated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "genomics_shards_generated_total",
	Help: "Total number of shards produced by the partitioner",
})

// Shard is a region combined with the dataset (read group set or variant
// set) it is requested from. DatasetID is empty for plain partitions.
type Shard struct {
	region.Region
	DatasetID string
}

// String renders the shard as datasetID/name:start:end.
func (s Shard) String() string {
	if s.DatasetID == "" {
		return s.Region.String()
	}
	return s.DatasetID + "/" + s.Region.String()
}

// Partitioner splits and shuffles regions. It is safe for concurrent use.
type Partitioner struct {
	mu  sync.Mutex
	rng *rand.Rand // nil selects the global source
}

// NewPartitioner returns a partitioner backed by the unseeded global source.
func NewPartitioner() *Partitioner {
	return &Partitioner{}
}

// NewSeededPartitioner returns a partitioner whose shuffles are reproducible
// for a given seed.
func NewSeededPartitioner(seed uint64) *Partitioner {
	return &Partitioner{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

var defaultPartitioner = NewPartitioner()

// Partition splits regions with the default unseeded partitioner.
func Partition(regions []region.Region, maxBasesPerShard int64) ([]region.Region, error) {
	return defaultPartitioner.Partition(regions, maxBasesPerShard)
}

// PartitionForDatasets cross-joins shards with datasets using the default
// unseeded partitioner.
func PartitionForDatasets(regions []region.Region, maxBasesPerShard int64, datasetIDs []string) ([]Shard, error) {
	return defaultPartitioner.PartitionForDatasets(regions, maxBasesPerShard, datasetIDs)
}

// Partition splits every region into sub-regions of at most maxBasesPerShard
// bases and returns all of them in random order.
func (p *Partitioner) Partition(regions []region.Region, maxBasesPerShard int64) ([]region.Region, error) {
	if maxBasesPerShard <= 0 {
		return nil, errs.Validation("maxBasesPerShard", "must be > 0, got %d", maxBasesPerShard)
	}

	var shards []region.Region
	for _, r := range regions {
		parts, err := r.Split(maxBasesPerShard)
		if err != nil {
			return nil, err
		}
		shards = append(shards, parts...)
	}

	p.shuffle(len(shards), func(i, j int) { shards[i], shards[j] = shards[j], shards[i] })
	shardsGenerated.Add(float64(len(shards)))
	return shards, nil
}

// PartitionForDatasets partitions regions, pairs every shard with every
// dataset id and shuffles the combined list again so that requests for
// different datasets are interleaved.
func (p *Partitioner) PartitionForDatasets(regions []region.Region, maxBasesPerShard int64, datasetIDs []string) ([]Shard, error) {
	if len(datasetIDs) == 0 {
		return nil, errs.Validation("datasetIDs", "at least one dataset id is required")
	}

	regionShards, err := p.Partition(regions, maxBasesPerShard)
	if err != nil {
		return nil, err
	}

	shards := make([]Shard, 0, len(regionShards)*len(datasetIDs))
	for _, id := range datasetIDs {
		for _, r := range regionShards {
			shards = append(shards, Shard{Region: r, DatasetID: id})
		}
	}

	p.shuffle(len(shards), func(i, j int) { shards[i], shards[j] = shards[j], shards[i] })
	return shards, nil
}

func (p *Partitioner) shuffle(n int, swap func(i, j int)) {
	if p.rng == nil {
		rand.Shuffle(n, swap)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rng.Shuffle(n, swap)
}

// SexChromosomeFilter selects whether sex chromosomes are partitioned.
type SexChromosomeFilter int

const (
	// IncludeXY keeps every reported reference.
	IncludeXY SexChromosomeFilter = iota

	// ExcludeXY drops references whose name contains "x" or "y".
	ExcludeXY
)

// String returns the textual form accepted by ParseSexChromosomeFilter.
func (f SexChromosomeFilter) String() string {
	if f == ExcludeXY {
		return "excludeXY"
	}
	return "includeXY"
}

// ParseSexChromosomeFilter parses "includeXY" or "excludeXY", ignoring case.
func ParseSexChromosomeFilter(s string) (SexChromosomeFilter, error) {
	switch strings.ToLower(s) {
	case "includexy":
		return IncludeXY, nil
	case "excludexy":
		return ExcludeXY, nil
	default:
		return IncludeXY, errs.Validation("sexChromosomeFilter", "unknown value %q (want includeXY or excludeXY)", s)
	}
}

// Excludes reports whether the filter drops referenceName. The test is a
// plain case-insensitive substring match, not a genome-aware classifier:
// any name containing "x" or "y" is treated as a sex chromosome.
func (f SexChromosomeFilter) Excludes(referenceName string) bool {
	if f != ExcludeXY {
		return false
	}
	return strings.ContainsAny(referenceName, "xXyY")
}

// RegionsFromBounds builds [0, upperBound) regions from server-reported
// per-reference bounds, applying the sex chromosome filter.
func RegionsFromBounds(bounds []genomics.ReferenceBound, filter SexChromosomeFilter) ([]region.Region, error) {
	regions := make([]region.Region, 0, len(bounds))
	for _, b := range bounds {
		if filter.Excludes(b.ReferenceName) {
			continue
		}
		r, err := region.New(b.ReferenceName, 0, b.UpperBound)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// RegionsFromReferences builds [0, length) regions from a reference set's
// references, applying the sex chromosome filter.
func RegionsFromReferences(refs []*genomics.Reference, filter SexChromosomeFilter) ([]region.Region, error) {
	bounds := make([]genomics.ReferenceBound, 0, len(refs))
	for _, ref := range refs {
		bounds = append(bounds, genomics.ReferenceBound{ReferenceName: ref.Name, UpperBound: ref.Length})
	}
	return RegionsFromBounds(bounds, filter)
}
