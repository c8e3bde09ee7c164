package genomics

import "slices"

// Paging carries the fields every paged request shares. Fields is sent as the
// "fields" query parameter, not in the request body.
type Paging struct {
	PageToken string `json:"pageToken,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
	Fields    string `json:"-"`
}

// SetPageToken sets the continuation token of the next page.
func (p *Paging) SetPageToken(token string) { p.PageToken = token }

// SetFields sets the partial-response field mask.
func (p *Paging) SetFields(mask string) { p.Fields = mask }

// GetFields returns the partial-response field mask.
func (p *Paging) GetFields() string { return p.Fields }

// SearchReadsRequest searches reads overlapping [Start, End) on ReferenceName.
type SearchReadsRequest struct {
	ReadGroupSetIDs []string `json:"readGroupSetIds,omitempty"`
	ReadGroupIDs    []string `json:"readGroupIds,omitempty"`
	ReferenceName   string   `json:"referenceName,omitempty"`
	Start           int64    `json:"start,string"`
	End             int64    `json:"end,string"`
	Paging
}

// Clone returns a deep copy of r.
func (r *SearchReadsRequest) Clone() *SearchReadsRequest {
	c := *r
	c.ReadGroupSetIDs = slices.Clone(r.ReadGroupSetIDs)
	c.ReadGroupIDs = slices.Clone(r.ReadGroupIDs)
	return &c
}

// SearchReadsResponse is one page of reads.
type SearchReadsResponse struct {
	Alignments    []*Read `json:"alignments,omitempty"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// GetNextPageToken returns the token of the following page, or "".
func (r *SearchReadsResponse) GetNextPageToken() string { return r.NextPageToken }

// GetAlignments returns the reads of the page.
func (r *SearchReadsResponse) GetAlignments() []*Read { return r.Alignments }

// SearchVariantsRequest searches variants overlapping [Start, End).
type SearchVariantsRequest struct {
	VariantSetIDs []string `json:"variantSetIds,omitempty"`
	CallSetIDs    []string `json:"callSetIds,omitempty"`
	VariantName   string   `json:"variantName,omitempty"`
	ReferenceName string   `json:"referenceName,omitempty"`
	Start         int64    `json:"start,string"`
	End           int64    `json:"end,string"`
	MaxCalls      int      `json:"maxCalls,omitempty"`
	Paging
}

// Clone returns a deep copy of r.
func (r *SearchVariantsRequest) Clone() *SearchVariantsRequest {
	c := *r
	c.VariantSetIDs = slices.Clone(r.VariantSetIDs)
	c.CallSetIDs = slices.Clone(r.CallSetIDs)
	return &c
}

// SearchVariantsResponse is one page of variants.
type SearchVariantsResponse struct {
	Variants      []*Variant `json:"variants,omitempty"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

// GetNextPageToken returns the token of the following page, or "".
func (r *SearchVariantsResponse) GetNextPageToken() string { return r.NextPageToken }

// GetVariants returns the variants of the page.
func (r *SearchVariantsResponse) GetVariants() []*Variant { return r.Variants }

// SearchReferencesRequest searches the references of a reference set.
type SearchReferencesRequest struct {
	ReferenceSetID string   `json:"referenceSetId,omitempty"`
	MD5Checksums   []string `json:"md5checksums,omitempty"`
	Accessions     []string `json:"accessions,omitempty"`
	Paging
}

// Clone returns a deep copy of r.
func (r *SearchReferencesRequest) Clone() *SearchReferencesRequest {
	c := *r
	c.MD5Checksums = slices.Clone(r.MD5Checksums)
	c.Accessions = slices.Clone(r.Accessions)
	return &c
}

// SearchReferencesResponse is one page of references.
type SearchReferencesResponse struct {
	References    []*Reference `json:"references,omitempty"`
	NextPageToken string       `json:"nextPageToken,omitempty"`
}

// GetNextPageToken returns the token of the following page, or "".
func (r *SearchReferencesResponse) GetNextPageToken() string { return r.NextPageToken }

// GetReferences returns the references of the page.
func (r *SearchReferencesResponse) GetReferences() []*Reference { return r.References }

// SearchReadGroupSetsRequest searches read group sets of datasets.
type SearchReadGroupSetsRequest struct {
	DatasetIDs []string `json:"datasetIds,omitempty"`
	Name       string   `json:"name,omitempty"`
	Paging
}

// Clone returns a deep copy of r.
func (r *SearchReadGroupSetsRequest) Clone() *SearchReadGroupSetsRequest {
	c := *r
	c.DatasetIDs = slices.Clone(r.DatasetIDs)
	return &c
}

// SearchReadGroupSetsResponse is one page of read group sets.
type SearchReadGroupSetsResponse struct {
	ReadGroupSets []*ReadGroupSet `json:"readGroupSets,omitempty"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
}

// GetNextPageToken returns the token of the following page, or "".
func (r *SearchReadGroupSetsResponse) GetNextPageToken() string { return r.NextPageToken }

// GetReadGroupSets returns the read group sets of the page.
func (r *SearchReadGroupSetsResponse) GetReadGroupSets() []*ReadGroupSet { return r.ReadGroupSets }

// SearchVariantSetsRequest searches variant sets of datasets.
type SearchVariantSetsRequest struct {
	DatasetIDs []string `json:"datasetIds,omitempty"`
	Paging
}

// Clone returns a deep copy of r.
func (r *SearchVariantSetsRequest) Clone() *SearchVariantSetsRequest {
	c := *r
	c.DatasetIDs = slices.Clone(r.DatasetIDs)
	return &c
}

// SearchVariantSetsResponse is one page of variant sets.
type SearchVariantSetsResponse struct {
	VariantSets   []*VariantSet `json:"variantSets,omitempty"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}

// GetNextPageToken returns the token of the following page, or "".
func (r *SearchVariantSetsResponse) GetNextPageToken() string { return r.NextPageToken }

// GetVariantSets returns the variant sets of the page.
func (r *SearchVariantSetsResponse) GetVariantSets() []*VariantSet { return r.VariantSets }

// SearchCallSetsRequest searches call sets of variant sets.
type SearchCallSetsRequest struct {
	VariantSetIDs []string `json:"variantSetIds,omitempty"`
	Name          string   `json:"name,omitempty"`
	Paging
}

// Clone returns a deep copy of r.
func (r *SearchCallSetsRequest) Clone() *SearchCallSetsRequest {
	c := *r
	c.VariantSetIDs = slices.Clone(r.VariantSetIDs)
	return &c
}

// SearchCallSetsResponse is one page of call sets.
type SearchCallSetsResponse struct {
	CallSets      []*CallSet `json:"callSets,omitempty"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

// GetNextPageToken returns the token of the following page, or "".
func (r *SearchCallSetsResponse) GetNextPageToken() string { return r.NextPageToken }

// GetCallSets returns the call sets of the page.
func (r *SearchCallSetsResponse) GetCallSets() []*CallSet { return r.CallSets }

// ListDatasetsRequest lists the datasets of a project. It is sent as query
// parameters of a GET request.
type ListDatasetsRequest struct {
	ProjectID string `json:"projectId,omitempty"`
	Paging
}

// Clone returns a copy of r.
func (r *ListDatasetsRequest) Clone() *ListDatasetsRequest {
	c := *r
	return &c
}

// ListDatasetsResponse is one page of datasets.
type ListDatasetsResponse struct {
	Datasets      []*Dataset `json:"datasets,omitempty"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

// GetNextPageToken returns the token of the following page, or "".
func (r *ListDatasetsResponse) GetNextPageToken() string { return r.NextPageToken }

// GetDatasets returns the datasets of the page.
func (r *ListDatasetsResponse) GetDatasets() []*Dataset { return r.Datasets }
