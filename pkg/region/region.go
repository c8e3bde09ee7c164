// Package region models half-open intervals on named reference sequences.
//
// A Region covers [Start, End) on ReferenceName, matching the half-open range
// semantics of the genomics search API. Regions are plain values: they are
// comparable, usable as map keys and never modified after construction.
package region

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/genomics-client/pkg/errs"
)

// Region is a half-open interval [Start, End) on a named reference sequence.
type Region struct {
	ReferenceName string
	Start         int64
	End           int64
}

// New returns a validated Region.
func New(referenceName string, start, end int64) (Region, error) {
	if referenceName == "" {
		return Region{}, errs.Validation("region", "reference name is empty")
	}
	if start < 0 {
		return Region{}, errs.Validation("region", "%s: negative start %d", referenceName, start)
	}
	if start > end {
		return Region{}, errs.Validation("region", "%s: start %d > end %d", referenceName, start, end)
	}
	return Region{ReferenceName: referenceName, Start: start, End: end}, nil
}

// Len returns the number of bases covered by the region.
func (r Region) Len() int64 {
	return r.End - r.Start
}

// Contains reports whether pos lies inside [Start, End).
func (r Region) Contains(pos int64) bool {
	return pos >= r.Start && pos < r.End
}

// String renders the region in the name:start:end syntax accepted by Parse.
func (r Region) String() string {
	return fmt.Sprintf("%s:%d:%d", r.ReferenceName, r.Start, r.End)
}

// Split cuts the region into consecutive sub-regions of at most
// maxBasesPerShard bases. Only the last sub-region may be shorter. A
// zero-length region yields no sub-regions.
func (r Region) Split(maxBasesPerShard int64) ([]Region, error) {
	if maxBasesPerShard <= 0 {
		return nil, errs.Validation("maxBasesPerShard", "must be > 0, got %d", maxBasesPerShard)
	}

	length := r.Len()
	if length <= 0 {
		return nil, nil
	}

	// start+k overflows for sizes near MaxInt64.
	count := length / maxBasesPerShard
	if length%maxBasesPerShard != 0 {
		count++
	}
	shards := make([]Region, 0, count)
	for start := r.Start; start < r.End; {
		end := r.End
		if maxBasesPerShard < r.End-start {
			end = start + maxBasesPerShard
		}
		shards = append(shards, Region{ReferenceName: r.ReferenceName, Start: start, End: end})
		start = end
	}
	return shards, nil
}

// Parse reads a comma separated list of name:start:end entries, for example
// "17:41196311:41277499,chrX:0:1000". Every entry is checked before any
// Region is returned.
func Parse(text string) ([]Region, error) {
	entries := strings.Split(text, ",")
	regions := make([]Region, 0, len(entries))

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)

		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, &errs.FormatError{
				Input:  entry,
				Reason: fmt.Sprintf("expected name:start:end, got %d field(s)", len(parts)),
			}
		}
		if parts[0] == "" {
			return nil, &errs.FormatError{Input: entry, Reason: "empty reference name"}
		}

		start, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, &errs.FormatError{Input: entry, Reason: fmt.Sprintf("start %q is not an integer", parts[1])}
		}
		end, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return nil, &errs.FormatError{Input: entry, Reason: fmt.Sprintf("end %q is not an integer", parts[2])}
		}

		r, err := New(parts[0], start, end)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}

	return regions, nil
}

// Format joins regions into the textual syntax accepted by Parse.
func Format(regions []Region) string {
	parts := make([]string, len(regions))
	for i, r := range regions {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}
