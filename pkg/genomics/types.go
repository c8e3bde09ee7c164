// Package genomics defines the JSON messages of the genomics search API.
//
// Int64 values are encoded as JSON strings, as the API does. Every search
// request embeds Paging and implements the pager.Request contract; every
// search response exposes GetNextPageToken and a getter for its items.
package genomics

// Position is a 0-based position on a reference.
type Position struct {
	ReferenceName string `json:"referenceName,omitempty"`
	Position      int64  `json:"position,string"`
	ReverseStrand bool   `json:"reverseStrand,omitempty"`
}

// CigarUnit is one operation of an alignment's CIGAR.
type CigarUnit struct {
	Operation         string `json:"operation,omitempty"`
	OperationLength   int64  `json:"operationLength,string"`
	ReferenceSequence string `json:"referenceSequence,omitempty"`
}

// LinearAlignment places a read on a reference.
type LinearAlignment struct {
	Position       *Position   `json:"position,omitempty"`
	MappingQuality int32       `json:"mappingQuality,omitempty"`
	Cigar          []CigarUnit `json:"cigar,omitempty"`
}

// Read is one aligned (or unaligned) sequencing read.
type Read struct {
	ID              string           `json:"id,omitempty"`
	ReadGroupID     string           `json:"readGroupId,omitempty"`
	ReadGroupSetID  string           `json:"readGroupSetId,omitempty"`
	FragmentName    string           `json:"fragmentName,omitempty"`
	AlignedSequence string           `json:"alignedSequence,omitempty"`
	Alignment       *LinearAlignment `json:"alignment,omitempty"`
}

// AlignmentPosition returns the read's alignment start. ok is false for
// unmapped reads and for responses whose field mask left out the alignment.
func (r *Read) AlignmentPosition() (pos int64, ok bool) {
	if r == nil || r.Alignment == nil || r.Alignment.Position == nil {
		return 0, false
	}
	return r.Alignment.Position.Position, true
}

// VariantCall is the genotype call of one call set at a variant.
type VariantCall struct {
	CallSetID   string  `json:"callSetId,omitempty"`
	CallSetName string  `json:"callSetName,omitempty"`
	Genotype    []int32 `json:"genotype,omitempty"`
}

// Variant is either a true variant call or, when AlternateBases is empty, a
// non-variant (reference-match or no-call) segment.
type Variant struct {
	ID             string        `json:"id,omitempty"`
	VariantSetID   string        `json:"variantSetId,omitempty"`
	Names          []string      `json:"names,omitempty"`
	ReferenceName  string        `json:"referenceName,omitempty"`
	Start          int64         `json:"start,string"`
	End            int64         `json:"end,string"`
	ReferenceBases string        `json:"referenceBases,omitempty"`
	AlternateBases []string      `json:"alternateBases,omitempty"`
	Quality        float64       `json:"quality,omitempty"`
	Filter         []string      `json:"filter,omitempty"`
	Calls          []VariantCall `json:"calls,omitempty"`
}

// IsNonVariant reports whether v is a reference-match or no-call segment.
func (v *Variant) IsNonVariant() bool {
	return len(v.AlternateBases) == 0
}

// Reference is one sequence of a reference set.
type Reference struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Length      int64  `json:"length,string"`
	MD5Checksum string `json:"md5checksum,omitempty"`
	SourceURI   string `json:"sourceUri,omitempty"`
}

// ReferenceBound is the highest position observed on one reference in a
// variant set.
type ReferenceBound struct {
	ReferenceName string `json:"referenceName"`
	UpperBound    int64  `json:"upperBound,string"`
}

// VariantSet groups variants sharing a reference set.
type VariantSet struct {
	ID              string           `json:"id,omitempty"`
	DatasetID       string           `json:"datasetId,omitempty"`
	Name            string           `json:"name,omitempty"`
	ReferenceSetID  string           `json:"referenceSetId,omitempty"`
	ReferenceBounds []ReferenceBound `json:"referenceBounds,omitempty"`
}

// ReadGroupSet groups the read groups of one sample.
type ReadGroupSet struct {
	ID             string `json:"id,omitempty"`
	DatasetID      string `json:"datasetId,omitempty"`
	Name           string `json:"name,omitempty"`
	ReferenceSetID string `json:"referenceSetId,omitempty"`
}

// CallSet is the set of calls of one sample within variant sets.
type CallSet struct {
	ID            string   `json:"id,omitempty"`
	Name          string   `json:"name,omitempty"`
	SampleID      string   `json:"sampleId,omitempty"`
	VariantSetIDs []string `json:"variantSetIds,omitempty"`
}

// Dataset is a named container of read group sets and variant sets.
type Dataset struct {
	ID        string `json:"id,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	Name      string `json:"name,omitempty"`
}
