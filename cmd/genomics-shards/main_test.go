package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/Sternrassler/genomics-client/internal/testutil"
	"github.com/Sternrassler/genomics-client/pkg/errs"
	"github.com/Sternrassler/genomics-client/pkg/genomics"
	"github.com/Sternrassler/genomics-client/pkg/pager"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestShardsCmd_SeededOrderIsReproducible(t *testing.T) {
	args := []string{"shards", "--regions", "1:0:1000", "--shard-size", "250", "--seed", "7"}

	first, err := execute(t, args...)
	if err != nil {
		t.Fatalf("shards error = %v", err)
	}
	second, err := execute(t, args...)
	if err != nil {
		t.Fatalf("shards error = %v", err)
	}
	if first != second {
		t.Errorf("same seed produced different orders:\n%s\n%s", first, second)
	}

	got := lines(first)
	slices.Sort(got)
	want := []string{"1:0:250", "1:250:500", "1:500:750", "1:750:1000"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("shards mismatch (-want +got):\n%s", diff)
	}
}

func TestShardsCmd_DatasetsAndSexChromosomes(t *testing.T) {
	out, err := execute(t, "shards",
		"--regions", "1:0:100,X:0:100,chrY:0:100",
		"--shard-size", "50",
		"--datasets", "a,b",
		"--sex-chromosomes", "excludeXY")
	if err != nil {
		t.Fatalf("shards error = %v", err)
	}

	got := lines(out)
	slices.Sort(got)
	want := []string{"a/1:0:50", "a/1:50:100", "b/1:0:50", "b/1:50:100"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("shards mismatch (-want +got):\n%s", diff)
	}
}

func TestShardsCmd_Errors(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantFormat bool
		wantValid  bool
	}{
		{name: "missing regions", args: []string{"shards"}},
		{name: "malformed region", args: []string{"shards", "--regions", "1:0"}, wantFormat: true},
		{name: "inverted region", args: []string{"shards", "--regions", "1:9:5"}, wantValid: true},
		{name: "zero shard size", args: []string{"shards", "--regions", "1:0:10", "--shard-size", "0"}, wantValid: true},
		{name: "unknown filter", args: []string{"shards", "--regions", "1:0:10", "--sex-chromosomes", "none"}, wantValid: true},
		{name: "unknown log level", args: []string{"shards", "--regions", "1:0:10", "--log-level", "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, errs.ErrFormat); got != tt.wantFormat {
				t.Errorf("errors.Is(err, ErrFormat) = %v, want %v (err: %v)", got, tt.wantFormat, err)
			}
			if got := errors.Is(err, errs.ErrValidation); got != tt.wantValid {
				t.Errorf("errors.Is(err, ErrValidation) = %v, want %v (err: %v)", got, tt.wantValid, err)
			}
		})
	}
}

func newMock(t *testing.T) *testutil.MockGenomics {
	t.Helper()
	mock := testutil.NewMockGenomics()
	t.Cleanup(mock.Close)

	alt := []string{"T"}
	mock.AddVariants(
		&genomics.Variant{ID: "v100", VariantSetID: "vs", ReferenceName: "1", Start: 100, End: 200, AlternateBases: alt},
		&genomics.Variant{ID: "v900", VariantSetID: "vs", ReferenceName: "1", Start: 900, End: 1100, AlternateBases: alt},
		&genomics.Variant{ID: "v1500", VariantSetID: "vs", ReferenceName: "1", Start: 1500, End: 1600, AlternateBases: alt},
		&genomics.Variant{ID: "other", VariantSetID: "vs2", ReferenceName: "1", Start: 100, End: 101, AlternateBases: alt},
	)
	return mock
}

func TestVariantsCmd_BoundaryPolicies(t *testing.T) {
	tests := []struct {
		boundary string
		want     []string
	}{
		{
			boundary: "OVERLAPS",
			want: []string{
				"vs/1:0:1000\t2",
				"vs/1:1000:2000\t2",
				"total\t2 shards\t4 items\t0 failed\t0 skipped",
			},
		},
		{
			boundary: "strict",
			want: []string{
				"vs/1:0:1000\t2",
				"vs/1:1000:2000\t1",
				"total\t2 shards\t3 items\t0 failed\t0 skipped",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.boundary, func(t *testing.T) {
			mock := newMock(t)
			out, err := execute(t, "variants",
				"--api-url", mock.URL(),
				"--datasets", "vs",
				"--regions", "1:0:2000",
				"--shard-size", "1000",
				"--boundary", tt.boundary)
			if err != nil {
				t.Fatalf("variants error = %v", err)
			}
			if diff := cmp.Diff(tt.want, lines(out)); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVariantsCmd_RegionsFromVariantSet(t *testing.T) {
	mock := newMock(t)
	mock.AddVariantSets(&genomics.VariantSet{
		ID: "vs",
		ReferenceBounds: []genomics.ReferenceBound{
			{ReferenceName: "1", UpperBound: 2000},
			{ReferenceName: "X", UpperBound: 500},
		},
	})

	out, err := execute(t, "variants",
		"--api-url", mock.URL(),
		"--datasets", "vs",
		"--shard-size", "1000",
		"--sex-chromosomes", "excludeXY")
	if err != nil {
		t.Fatalf("variants error = %v", err)
	}

	want := []string{
		"vs/1:0:1000\t2",
		"vs/1:1000:2000\t2",
		"total\t2 shards\t4 items\t0 failed\t0 skipped",
	}
	if diff := cmp.Diff(want, lines(out)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if got := mock.GetPathCount("/v1/variantsets/vs"); got != 1 {
		t.Errorf("variant set fetched %d times, want 1", got)
	}
}

func TestVariantsCmd_FailedShards(t *testing.T) {
	mock := newMock(t)
	mock.SetResponse("/v1/variants/search", testutil.MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       `{"error":{"code":400,"message":"invalid page token"}}`,
	})

	out, err := execute(t, "variants",
		"--api-url", mock.URL(),
		"--datasets", "vs",
		"--regions", "1:0:2000",
		"--shard-size", "1000",
		"--retries", "0")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, pager.ErrSearchFailed) {
		t.Errorf("errors.Is(err, ErrSearchFailed) = false, err: %v", err)
	}

	got := lines(out)
	if len(got) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(got), out)
	}
	for _, line := range got[:2] {
		if !strings.Contains(line, "\tfailed: ") {
			t.Errorf("line %q does not report a failure", line)
		}
	}
	if got[2] != "total\t2 shards\t0 items\t2 failed\t0 skipped" {
		t.Errorf("total = %q", got[2])
	}
}

func TestVariantsCmd_AccessTokenAndUserAgent(t *testing.T) {
	mock := newMock(t)

	_, err := execute(t, "variants",
		"--api-url", mock.URL(),
		"--access-token", "secret-token",
		"--user-agent", "shards-test/2.0",
		"--datasets", "vs",
		"--regions", "1:0:1000",
		"--shard-size", "1000")
	if err != nil {
		t.Fatalf("variants error = %v", err)
	}

	header := mock.LastHeader()
	if got := header.Get("Authorization"); got != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer secret-token")
	}
	if got := header.Get("User-Agent"); got != "shards-test/2.0" {
		t.Errorf("User-Agent = %q, want %q", got, "shards-test/2.0")
	}
}

func TestVariantsCmd_PageCache(t *testing.T) {
	mock := newMock(t)
	s := miniredis.RunT(t)

	args := []string{"variants",
		"--api-url", mock.URL(),
		"--redis-addr", s.Addr(),
		"--datasets", "vs",
		"--regions", "1:0:2000",
		"--shard-size", "1000",
	}

	first, err := execute(t, args...)
	if err != nil {
		t.Fatalf("first run error = %v", err)
	}
	fetched := mock.GetRequestCount()
	if fetched == 0 {
		t.Fatal("first run made no requests")
	}

	second, err := execute(t, args...)
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if got := mock.GetRequestCount(); got != fetched {
		t.Errorf("second run made %d requests, want every page from the cache", got-fetched)
	}
	if first != second {
		t.Errorf("cached output differs:\n%s\n%s", first, second)
	}
}

func TestVariantsCmd_RedisUnavailable(t *testing.T) {
	mock := newMock(t)
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	addr := s.Addr()
	s.Close()

	_, err = execute(t, "variants",
		"--api-url", mock.URL(),
		"--redis-addr", addr,
		"--datasets", "vs",
		"--regions", "1:0:1000")
	if err == nil || !strings.Contains(err.Error(), "connect to redis") {
		t.Errorf("error = %v, want a redis connection error", err)
	}
}

func TestReadsCmd_Strict(t *testing.T) {
	mock := testutil.NewMockGenomics()
	t.Cleanup(mock.Close)

	read := func(id string, pos int64) *genomics.Read {
		return &genomics.Read{
			ID:              id,
			ReadGroupSetID:  "rgs",
			AlignedSequence: "ACGTACGTAC",
			Alignment: &genomics.LinearAlignment{
				Position: &genomics.Position{ReferenceName: "17", Position: pos},
			},
		}
	}
	mock.AddReads(read("r95", 95), read("r150", 150), read("r195", 195), read("r250", 250), read("r390", 390))

	out, err := execute(t, "reads",
		"--api-url", mock.URL(),
		"--datasets", "rgs",
		"--regions", "17:0:400",
		"--shard-size", "200",
		"--boundary", "STRICT",
		"--concurrency", "1")
	if err != nil {
		t.Fatalf("reads error = %v", err)
	}

	want := []string{
		"rgs/17:0:200\t3",
		"rgs/17:200:400\t2",
		"total\t2 shards\t5 items\t0 failed\t0 skipped",
	}
	if diff := cmp.Diff(want, lines(out)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestReadsCmd_RequiresDatasetsAndRegions(t *testing.T) {
	mock := testutil.NewMockGenomics()
	t.Cleanup(mock.Close)

	if _, err := execute(t, "reads", "--api-url", mock.URL(), "--regions", "17:0:400"); err == nil {
		t.Error("expected error without --datasets")
	}
	if _, err := execute(t, "reads", "--api-url", mock.URL(), "--datasets", "rgs"); err == nil {
		t.Error("expected error without --regions")
	}
	if got := mock.GetRequestCount(); got != 0 {
		t.Errorf("made %d requests for invalid invocations", got)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("GENOMICS_SHARDS_TEST", "value")
	if got := getEnv("GENOMICS_SHARDS_TEST", "default"); got != "value" {
		t.Errorf("getEnv() = %q, want %q", got, "value")
	}
	if got := getEnv("GENOMICS_SHARDS_UNSET", "default"); got != "default" {
		t.Errorf("getEnv() = %q, want %q", got, "default")
	}
}

func TestVariantsCmd_Refresh(t *testing.T) {
	mock := newMock(t)
	s := miniredis.RunT(t)

	args := []string{"variants",
		"--api-url", mock.URL(),
		"--redis-addr", s.Addr(),
		"--datasets", "vs",
		"--regions", "1:0:1000",
		"--shard-size", "1000",
	}

	if _, err := execute(t, args...); err != nil {
		t.Fatalf("first run error = %v", err)
	}
	fetched := mock.GetPathCount("/v1/variants/search")

	if _, err := execute(t, append(args, "--refresh")...); err != nil {
		t.Fatalf("refresh run error = %v", err)
	}
	if got := mock.GetPathCount("/v1/variants/search"); got != 2*fetched {
		t.Errorf("search requests = %d, want %d after refresh", got, 2*fetched)
	}
}
