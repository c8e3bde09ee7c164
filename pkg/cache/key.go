package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey identifies one result page.
type CacheKey struct {
	// Endpoint is the API path (e.g., "/v1/variants/search")
	Endpoint string

	// Fields is the partial-response mask; different masks cache separately
	Fields string

	// QueryParams are the query parameters of GET requests
	QueryParams url.Values

	// Body is the JSON request body of search requests, including the page token
	Body []byte
}

// String generates a deterministic cache key string.
// Format: genomics:endpoint:fields=mask:query1=val1:body=sha256prefix
//
// Example:
//
//	genomics:v1/reads/search:fields=nextPageToken,alignments:body=3f2a9c0d1e4b5a67
func (k CacheKey) String() string {
	parts := []string{"genomics"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if k.Fields != "" {
		parts = append(parts, "fields="+k.Fields)
	}

	// Query params sorted for determinism
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.QueryParams[key], ",")))
		}
	}

	if len(k.Body) > 0 {
		sum := sha256.Sum256(k.Body)
		parts = append(parts, "body="+hex.EncodeToString(sum[:8]))
	}

	return strings.Join(parts, ":")
}
