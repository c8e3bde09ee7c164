// Package testutil provides an in-memory genomics API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/genomics-client/pkg/genomics"
)

// DefaultPageSize is used when a request does not set pageSize.
const DefaultPageSize = 2

// MockResponse defines a canned response for one path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockGenomics is a paged genomics API backed by in-memory records.
// Records may be added before or between requests.
type MockGenomics struct {
	server   *httptest.Server
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc

	reads         []*genomics.Read
	variants      []*genomics.Variant
	references    []*genomics.Reference
	readGroupSets []*genomics.ReadGroupSet
	variantSets   []*genomics.VariantSet
	callSets      []*genomics.CallSet
	datasets      []*genomics.Dataset

	// PageSize overrides DefaultPageSize when a request does not set one.
	PageSize int

	// RateLimitRemaining is reported in X-RateLimit-Remaining.
	RateLimitRemaining int

	failNext   int
	failStatus int

	requestCount int
	byPath       map[string]int
	lastHeader   http.Header
	lastFields   string
}

// NewMockGenomics starts a new fake API server.
func NewMockGenomics() *MockGenomics {
	mock := &MockGenomics{
		handlers:           make(map[string]http.HandlerFunc),
		byPath:             make(map[string]int),
		RateLimitRemaining: 1000,
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

// URL returns the base URL of the server.
func (m *MockGenomics) URL() string {
	return m.server.URL
}

// Close shuts down the server.
func (m *MockGenomics) Close() {
	m.server.Close()
}

// AddReads adds reads to the store.
func (m *MockGenomics) AddReads(reads ...*genomics.Read) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, reads...)
}

// AddVariants adds variants to the store.
func (m *MockGenomics) AddVariants(variants ...*genomics.Variant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variants = append(m.variants, variants...)
}

// AddReferences adds references to the store.
func (m *MockGenomics) AddReferences(refs ...*genomics.Reference) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.references = append(m.references, refs...)
}

// AddReadGroupSets adds read group sets to the store.
func (m *MockGenomics) AddReadGroupSets(sets ...*genomics.ReadGroupSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readGroupSets = append(m.readGroupSets, sets...)
}

// AddVariantSets adds variant sets to the store.
func (m *MockGenomics) AddVariantSets(sets ...*genomics.VariantSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variantSets = append(m.variantSets, sets...)
}

// AddCallSets adds call sets to the store.
func (m *MockGenomics) AddCallSets(sets ...*genomics.CallSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callSets = append(m.callSets, sets...)
}

// AddDatasets adds datasets to the store.
func (m *MockGenomics) AddDatasets(sets ...*genomics.Dataset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets = append(m.datasets, sets...)
}

// FailNext makes the next n requests answer with status.
func (m *MockGenomics) FailNext(n, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
	m.failStatus = status
}

// SetHandler overrides the handling of one path.
func (m *MockGenomics) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (m *MockGenomics) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests served.
func (m *MockGenomics) GetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// GetPathCount returns the number of requests served for path.
func (m *MockGenomics) GetPathCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byPath[path]
}

// LastHeader returns the headers of the most recent request.
func (m *MockGenomics) LastHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeader
}

// LastFields returns the fields query parameter of the most recent request.
func (m *MockGenomics) LastFields() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFields
}

// Reset clears the request counters.
func (m *MockGenomics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.byPath = make(map[string]int)
	m.lastHeader = nil
	m.lastFields = ""
}

func (m *MockGenomics) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestCount++
	m.byPath[r.URL.Path]++
	m.lastHeader = r.Header.Clone()
	m.lastFields = r.URL.Query().Get("fields")
	handler, custom := m.handlers[r.URL.Path]
	fail := 0
	if m.failNext > 0 {
		m.failNext--
		fail = m.failStatus
	}
	remaining := m.RateLimitRemaining
	m.mu.Unlock()

	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", "60")

	if custom {
		handler(w, r)
		return
	}
	if fail != 0 {
		writeError(w, fail, "injected failure")
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/reads/search":
		m.searchReads(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/v1/variants/search":
		m.searchVariants(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/v1/references/search":
		m.searchReferences(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/v1/readgroupsets/search":
		m.searchReadGroupSets(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/v1/variantsets/search":
		m.searchVariantSets(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/v1/callsets/search":
		m.searchCallSets(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/v1/datasets":
		m.listDatasets(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/variantsets/"):
		m.getVariantSet(w, strings.TrimPrefix(r.URL.Path, "/v1/variantsets/"))
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
	}
}

func (m *MockGenomics) searchReads(w http.ResponseWriter, r *http.Request) {
	var req genomics.SearchReadsRequest
	if !decode(w, r, &req) {
		return
	}
	m.mu.Lock()
	var hits []*genomics.Read
	for _, read := range m.reads {
		if len(req.ReadGroupSetIDs) > 0 && !slices.Contains(req.ReadGroupSetIDs, read.ReadGroupSetID) {
			continue
		}
		if readOverlaps(read, req.ReferenceName, req.Start, req.End) {
			hits = append(hits, read)
		}
	}
	m.mu.Unlock()

	page, next, ok := m.paginate(w, len(hits), req.PageToken, req.PageSize)
	if !ok {
		return
	}
	writeJSON(w, genomics.SearchReadsResponse{Alignments: hits[page[0]:page[1]], NextPageToken: next})
}

func (m *MockGenomics) searchVariants(w http.ResponseWriter, r *http.Request) {
	var req genomics.SearchVariantsRequest
	if !decode(w, r, &req) {
		return
	}
	m.mu.Lock()
	var hits []*genomics.Variant
	for _, v := range m.variants {
		if len(req.VariantSetIDs) > 0 && !slices.Contains(req.VariantSetIDs, v.VariantSetID) {
			continue
		}
		if v.ReferenceName == req.ReferenceName && v.Start < req.End && v.End > req.Start {
			hits = append(hits, v)
		}
	}
	m.mu.Unlock()

	page, next, ok := m.paginate(w, len(hits), req.PageToken, req.PageSize)
	if !ok {
		return
	}
	writeJSON(w, genomics.SearchVariantsResponse{Variants: hits[page[0]:page[1]], NextPageToken: next})
}

func (m *MockGenomics) searchReferences(w http.ResponseWriter, r *http.Request) {
	var req genomics.SearchReferencesRequest
	if !decode(w, r, &req) {
		return
	}
	m.mu.Lock()
	var hits []*genomics.Reference
	for _, ref := range m.references {
		if len(req.MD5Checksums) > 0 && !slices.Contains(req.MD5Checksums, ref.MD5Checksum) {
			continue
		}
		hits = append(hits, ref)
	}
	m.mu.Unlock()

	page, next, ok := m.paginate(w, len(hits), req.PageToken, req.PageSize)
	if !ok {
		return
	}
	writeJSON(w, genomics.SearchReferencesResponse{References: hits[page[0]:page[1]], NextPageToken: next})
}

func (m *MockGenomics) searchReadGroupSets(w http.ResponseWriter, r *http.Request) {
	var req genomics.SearchReadGroupSetsRequest
	if !decode(w, r, &req) {
		return
	}
	m.mu.Lock()
	var hits []*genomics.ReadGroupSet
	for _, s := range m.readGroupSets {
		if len(req.DatasetIDs) > 0 && !slices.Contains(req.DatasetIDs, s.DatasetID) {
			continue
		}
		if req.Name != "" && s.Name != req.Name {
			continue
		}
		hits = append(hits, s)
	}
	m.mu.Unlock()

	page, next, ok := m.paginate(w, len(hits), req.PageToken, req.PageSize)
	if !ok {
		return
	}
	writeJSON(w, genomics.SearchReadGroupSetsResponse{ReadGroupSets: hits[page[0]:page[1]], NextPageToken: next})
}

func (m *MockGenomics) searchVariantSets(w http.ResponseWriter, r *http.Request) {
	var req genomics.SearchVariantSetsRequest
	if !decode(w, r, &req) {
		return
	}
	m.mu.Lock()
	var hits []*genomics.VariantSet
	for _, s := range m.variantSets {
		if len(req.DatasetIDs) > 0 && !slices.Contains(req.DatasetIDs, s.DatasetID) {
			continue
		}
		hits = append(hits, s)
	}
	m.mu.Unlock()

	page, next, ok := m.paginate(w, len(hits), req.PageToken, req.PageSize)
	if !ok {
		return
	}
	writeJSON(w, genomics.SearchVariantSetsResponse{VariantSets: hits[page[0]:page[1]], NextPageToken: next})
}

func (m *MockGenomics) searchCallSets(w http.ResponseWriter, r *http.Request) {
	var req genomics.SearchCallSetsRequest
	if !decode(w, r, &req) {
		return
	}
	m.mu.Lock()
	var hits []*genomics.CallSet
	for _, s := range m.callSets {
		if len(req.VariantSetIDs) > 0 && !overlapsAny(req.VariantSetIDs, s.VariantSetIDs) {
			continue
		}
		hits = append(hits, s)
	}
	m.mu.Unlock()

	page, next, ok := m.paginate(w, len(hits), req.PageToken, req.PageSize)
	if !ok {
		return
	}
	writeJSON(w, genomics.SearchCallSetsResponse{CallSets: hits[page[0]:page[1]], NextPageToken: next})
}

func (m *MockGenomics) listDatasets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	project := q.Get("projectId")
	if project == "" {
		writeError(w, http.StatusBadRequest, "projectId is required")
		return
	}
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))

	m.mu.Lock()
	var hits []*genomics.Dataset
	for _, d := range m.datasets {
		if d.ProjectID == project {
			hits = append(hits, d)
		}
	}
	m.mu.Unlock()

	page, next, ok := m.paginate(w, len(hits), q.Get("pageToken"), pageSize)
	if !ok {
		return
	}
	writeJSON(w, genomics.ListDatasetsResponse{Datasets: hits[page[0]:page[1]], NextPageToken: next})
}

func (m *MockGenomics) getVariantSet(w http.ResponseWriter, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.variantSets {
		if s.ID == id {
			writeJSON(w, s)
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Sprintf("variant set %q not found", id))
}

// paginate returns the [from, to) window of a result of size n and the token
// of the following page. Page tokens are decimal offsets.
func (m *MockGenomics) paginate(w http.ResponseWriter, n int, token string, pageSize int) ([2]int, string, bool) {
	if pageSize <= 0 {
		m.mu.Lock()
		pageSize = m.PageSize
		m.mu.Unlock()
		if pageSize <= 0 {
			pageSize = DefaultPageSize
		}
	}
	from := 0
	if token != "" {
		var err error
		from, err = strconv.Atoi(token)
		if err != nil || from < 0 || from > n {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid page token %q", token))
			return [2]int{}, "", false
		}
	}
	to := min(from+pageSize, n)
	next := ""
	if to < n {
		next = strconv.Itoa(to)
	}
	return [2]int{from, to}, next, true
}

// readOverlaps reports whether read lies on name and overlaps [start, end).
// Unmapped reads match only the "*" reference.
func readOverlaps(read *genomics.Read, name string, start, end int64) bool {
	pos, mapped := read.AlignmentPosition()
	if !mapped {
		return name == "*"
	}
	if read.Alignment.Position.ReferenceName != name {
		return false
	}
	length := int64(len(read.AlignedSequence))
	if length == 0 {
		length = 1
	}
	return pos < end && pos+length > start
}

func overlapsAny(want, have []string) bool {
	for _, id := range have {
		if slices.Contains(want, id) {
			return true
		}
	}
	return false
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
		},
	})
}
