package shard

import (
	"errors"
	"slices"
	"testing"

	"github.com/Sternrassler/genomics-client/pkg/errs"
	"github.com/Sternrassler/genomics-client/pkg/genomics"
	"github.com/Sternrassler/genomics-client/pkg/region"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func lessRegion(a, b region.Region) bool {
	if a.ReferenceName != b.ReferenceName {
		return a.ReferenceName < b.ReferenceName
	}
	return a.Start < b.Start
}

func lessShard(a, b Shard) bool {
	if a.DatasetID != b.DatasetID {
		return a.DatasetID < b.DatasetID
	}
	return lessRegion(a.Region, b.Region)
}

func TestPartition_Example(t *testing.T) {
	regions, err := region.Parse("chr1:0:9")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got, err := Partition(regions, 5)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}

	want := []region.Region{
		{ReferenceName: "chr1", Start: 0, End: 5},
		{ReferenceName: "chr1", Start: 5, End: 9},
	}
	if diff := cmp.Diff(want, got, cmpopts.SortSlices(lessRegion)); diff != "" {
		t.Errorf("Partition mismatch (-want +got):\n%s", diff)
	}
}

func TestPartition_MultisetMatchesSplit(t *testing.T) {
	regions := []region.Region{
		{ReferenceName: "chr1", Start: 0, End: 1000},
		{ReferenceName: "chr2", Start: 500, End: 777},
		{ReferenceName: "chr1", Start: 0, End: 1000}, // duplicates are kept
		{ReferenceName: "chrM", Start: 3, End: 3},
	}

	var want []region.Region
	for _, r := range regions {
		parts, err := r.Split(64)
		if err != nil {
			t.Fatalf("Split: %v", err)
		}
		want = append(want, parts...)
	}

	got, err := NewPartitioner().Partition(regions, 64)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.SortSlices(lessRegion)); diff != "" {
		t.Errorf("Partition multiset mismatch (-want +got):\n%s", diff)
	}
}

func TestPartition_OrderVariesContentDoesNot(t *testing.T) {
	regions := []region.Region{{ReferenceName: "chr1", Start: 0, End: 100_000}}
	p := NewPartitioner()

	first, err := p.Partition(regions, 100)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	second, err := p.Partition(regions, 100)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}

	if slices.Equal(first, second) {
		t.Error("two partitions of 1000 shards came out in the same order")
	}
	if diff := cmp.Diff(first, second, cmpopts.SortSlices(lessRegion)); diff != "" {
		t.Errorf("partitions differ in content (-first +second):\n%s", diff)
	}
}

func TestSeededPartitioner_Reproducible(t *testing.T) {
	regions := []region.Region{
		{ReferenceName: "chr1", Start: 0, End: 10_000},
		{ReferenceName: "chr2", Start: 0, End: 5_000},
	}

	a, err := NewSeededPartitioner(42).PartitionForDatasets(regions, 100, []string{"d1", "d2"})
	if err != nil {
		t.Fatalf("PartitionForDatasets: %v", err)
	}
	b, err := NewSeededPartitioner(42).PartitionForDatasets(regions, 100, []string{"d1", "d2"})
	if err != nil {
		t.Fatalf("PartitionForDatasets: %v", err)
	}

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different orders (-a +b):\n%s", diff)
	}
}

func TestPartitionForDatasets_CrossJoin(t *testing.T) {
	regions := []region.Region{{ReferenceName: "chr1", Start: 0, End: 9}}
	datasets := []string{"rgs-a", "rgs-b", "rgs-c"}

	got, err := NewSeededPartitioner(7).PartitionForDatasets(regions, 5, datasets)
	if err != nil {
		t.Fatalf("PartitionForDatasets: %v", err)
	}

	var want []Shard
	for _, id := range datasets {
		want = append(want,
			Shard{Region: region.Region{ReferenceName: "chr1", Start: 0, End: 5}, DatasetID: id},
			Shard{Region: region.Region{ReferenceName: "chr1", Start: 5, End: 9}, DatasetID: id},
		)
	}
	if diff := cmp.Diff(want, got, cmpopts.SortSlices(lessShard)); diff != "" {
		t.Errorf("cross join mismatch (-want +got):\n%s", diff)
	}
}

func TestPartitionForDatasets_Interleaves(t *testing.T) {
	regions := []region.Region{{ReferenceName: "chr1", Start: 0, End: 100_000}}

	got, err := NewPartitioner().PartitionForDatasets(regions, 1000, []string{"a", "b"})
	if err != nil {
		t.Fatalf("PartitionForDatasets: %v", err)
	}

	// Without the second shuffle the first half would belong to one dataset.
	firstHalf := got[:len(got)/2]
	sameDataset := true
	for _, s := range firstHalf {
		if s.DatasetID != firstHalf[0].DatasetID {
			sameDataset = false
			break
		}
	}
	if sameDataset {
		t.Error("datasets were not interleaved")
	}
}

func TestPartition_Errors(t *testing.T) {
	regions := []region.Region{{ReferenceName: "chr1", Start: 0, End: 9}}

	if _, err := Partition(regions, 0); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Partition with size 0 error = %v, want validation error", err)
	}
	if _, err := PartitionForDatasets(regions, 5, nil); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("PartitionForDatasets without datasets error = %v, want validation error", err)
	}
}

func TestSexChromosomeFilter(t *testing.T) {
	bounds := []genomics.ReferenceBound{
		{ReferenceName: "chr1", UpperBound: 1000},
		{ReferenceName: "chrX", UpperBound: 2000},
		{ReferenceName: "Y", UpperBound: 300},
		{ReferenceName: "17", UpperBound: 400},
		{ReferenceName: "chrM", UpperBound: 16},
		{ReferenceName: "decoy_xyz", UpperBound: 50}, // crude match drops this too
	}

	tests := []struct {
		name   string
		filter SexChromosomeFilter
		want   []string
	}{
		{name: "include", filter: IncludeXY, want: []string{"chr1", "chrX", "Y", "17", "chrM", "decoy_xyz"}},
		{name: "exclude", filter: ExcludeXY, want: []string{"chr1", "17", "chrM"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regions, err := RegionsFromBounds(bounds, tt.filter)
			if err != nil {
				t.Fatalf("RegionsFromBounds: %v", err)
			}
			var names []string
			for _, r := range regions {
				if r.Start != 0 {
					t.Errorf("region %v does not start at 0", r)
				}
				names = append(names, r.ReferenceName)
			}
			if diff := cmp.Diff(tt.want, names); diff != "" {
				t.Errorf("names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSexChromosomeFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    SexChromosomeFilter
		wantErr bool
	}{
		{in: "includeXY", want: IncludeXY},
		{in: "EXCLUDEXY", want: ExcludeXY},
		{in: "excludexy", want: ExcludeXY},
		{in: "autosomes", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseSexChromosomeFilter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSexChromosomeFilter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseSexChromosomeFilter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestShardRequests(t *testing.T) {
	s := Shard{Region: region.Region{ReferenceName: "17", Start: 100, End: 200}, DatasetID: "set-1"}

	reads := s.ReadsRequest(512)
	if reads.ReferenceName != "17" || reads.Start != 100 || reads.End != 200 || reads.PageSize != 512 {
		t.Errorf("unexpected reads request %+v", reads)
	}
	if diff := cmp.Diff([]string{"set-1"}, reads.ReadGroupSetIDs); diff != "" {
		t.Errorf("ReadGroupSetIDs mismatch (-want +got):\n%s", diff)
	}

	variants := s.VariantsRequest(0)
	if diff := cmp.Diff([]string{"set-1"}, variants.VariantSetIDs); diff != "" {
		t.Errorf("VariantSetIDs mismatch (-want +got):\n%s", diff)
	}
	if variants.PageToken != "" {
		t.Errorf("fresh request carries page token %q", variants.PageToken)
	}

	if got := s.String(); got != "set-1/17:100:200" {
		t.Errorf("String() = %q", got)
	}
}

func TestPartitioner_VariantsRequests(t *testing.T) {
	regions := []region.Region{{ReferenceName: "chr1", Start: 0, End: 30}}

	reqs, err := NewSeededPartitioner(1).VariantsRequests(regions, 10, []string{"vs-1", "vs-2"}, 100)
	if err != nil {
		t.Fatalf("VariantsRequests: %v", err)
	}
	if len(reqs) != 6 {
		t.Fatalf("got %d requests, want 6", len(reqs))
	}
	for _, r := range reqs {
		if r.End-r.Start != 10 || len(r.VariantSetIDs) != 1 {
			t.Errorf("unexpected request %+v", r)
		}
	}
}
