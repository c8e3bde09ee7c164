//go:build integration

package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/genomics-client/internal/testutil"
	"github.com/Sternrassler/genomics-client/pkg/genomics"
)

// setupRedisContainer starts a Redis container for integration tests.
func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		redisContainer.Terminate(ctx)
	})

	return client
}

// Two clients sharing Redis share the page cache.
func TestIntegration_SharedPageCache(t *testing.T) {
	redisClient := setupRedisContainer(t)
	mock := testutil.NewMockGenomics()
	defer mock.Close()

	for i := int64(0); i < 5; i++ {
		mock.AddVariants(&genomics.Variant{
			ID:            string(rune('a' + i)),
			VariantSetID:  "vs",
			ReferenceName: "22",
			Start:         i * 100,
			End:           i*100 + 1,
		})
	}

	first := newTestClient(t, mock, redisClient)
	second := newTestClient(t, mock, redisClient)

	req := &genomics.SearchVariantsRequest{VariantSetIDs: []string{"vs"}, ReferenceName: "22", End: 1000}
	ctx := context.Background()

	a, err := first.SearchVariants(ctx, req)
	if err != nil {
		t.Fatalf("first client: %v", err)
	}
	b, err := second.SearchVariants(ctx, req)
	if err != nil {
		t.Fatalf("second client: %v", err)
	}

	if len(a.GetVariants()) != len(b.GetVariants()) {
		t.Errorf("pages differ: %d vs %d variants", len(a.GetVariants()), len(b.GetVariants()))
	}
	if got := mock.GetPathCount("/v1/variants/search"); got != 1 {
		t.Errorf("server saw %d requests, want 1", got)
	}
}

// A retried request after transient failures ends up cached.
func TestIntegration_RetryThenCache(t *testing.T) {
	redisClient := setupRedisContainer(t)
	mock := testutil.NewMockGenomics()
	defer mock.Close()
	mock.AddReferences(&genomics.Reference{ID: "r1", Name: "1", Length: 1000})
	mock.FailNext(2, http.StatusBadGateway)

	c := newTestClient(t, mock, redisClient)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.SearchReferences(ctx, &genomics.SearchReferencesRequest{}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	// two failures, one success, then a cache hit
	if got := mock.GetRequestCount(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}

	keys, err := redisClient.Keys(ctx, "genomics:v1/references/search*").Result()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("cached keys = %v, want exactly one", keys)
	}

	ttl, err := redisClient.TTL(ctx, keys[0]).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > 5*time.Minute {
		t.Errorf("ttl = %v, want within the Expires window", ttl)
	}
}
