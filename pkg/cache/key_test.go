package cache

import (
	"net/url"
	"strings"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "endpoint only",
			key:  CacheKey{Endpoint: "/v1/datasets"},
			want: "genomics:v1/datasets",
		},
		{
			name: "with fields mask",
			key: CacheKey{
				Endpoint: "/v1/reads/search",
				Fields:   "nextPageToken,alignments",
			},
			want: "genomics:v1/reads/search:fields=nextPageToken,alignments",
		},
		{
			name: "query params sorted",
			key: CacheKey{
				Endpoint: "/v1/datasets",
				QueryParams: url.Values{
					"projectId": []string{"42"},
					"pageToken": []string{"p2"},
				},
			},
			want: "genomics:v1/datasets:pageToken=p2:projectId=42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheKey_Body(t *testing.T) {
	page1 := CacheKey{Endpoint: "/v1/reads/search", Body: []byte(`{"readGroupSetIds":["rgs"]}`)}
	page2 := CacheKey{Endpoint: "/v1/reads/search", Body: []byte(`{"readGroupSetIds":["rgs"],"pageToken":"p2"}`)}

	if page1.String() == page2.String() {
		t.Errorf("different bodies produced the same key %q", page1.String())
	}
	if page1.String() != page1.String() {
		t.Error("key is not deterministic")
	}
	if !strings.HasPrefix(page1.String(), "genomics:v1/reads/search:body=") {
		t.Errorf("unexpected key %q", page1.String())
	}
	// 8 bytes of sha256, hex encoded
	if suffix := strings.TrimPrefix(page1.String(), "genomics:v1/reads/search:body="); len(suffix) != 16 {
		t.Errorf("body hash %q has length %d, want 16", suffix, len(suffix))
	}
}

func TestCacheKey_FieldsSeparateEntries(t *testing.T) {
	body := []byte(`{"variantSetIds":["vs"]}`)
	full := CacheKey{Endpoint: "/v1/variants/search", Body: body}
	masked := CacheKey{Endpoint: "/v1/variants/search", Fields: "nextPageToken,variants(start)", Body: body}

	if full.String() == masked.String() {
		t.Error("fields mask must be part of the key")
	}
}
