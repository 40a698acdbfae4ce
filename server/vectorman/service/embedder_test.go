package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newEmbedServer(t *testing.T, dim int, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Deterministic per input so repeated embeds compare equal.
		vector := make([]float32, dim)
		for i := range vector {
			vector[i] = float32(len(req.Input)+i) / 10
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": vector}},
		})
	}))
}

func TestEmbed_Deterministic(t *testing.T) {
	server := newEmbedServer(t, 4, nil)
	defer server.Close()

	svc := NewEmbedService(server.URL, "test-model", 4, time.Second, nil)
	if err := svc.Probe(context.Background()); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if !svc.ModelLoaded() {
		t.Fatal("expected live model after successful probe")
	}

	first, err := svc.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	second, err := svc.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(first) != 4 {
		t.Fatalf("expected dimension 4, got %d", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("embedding not deterministic at %d: %f != %f", i, first[i], second[i])
		}
	}
}

func TestEmbed_DegradedModeReturnsZeroVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // unreachable backend

	svc := NewEmbedService(server.URL, "test-model", 4, time.Second, nil)
	if err := svc.Probe(context.Background()); err == nil {
		t.Fatal("expected probe failure against closed server")
	}
	if svc.ModelLoaded() {
		t.Fatal("expected degraded mode after failed probe")
	}

	for attempt := 0; attempt < 2; attempt++ {
		vector, err := svc.Embed(context.Background(), "anything")
		if err != nil {
			t.Fatalf("degraded embed must not fail: %v", err)
		}
		if len(vector) != 4 {
			t.Fatalf("placeholder dimension %d, want 4", len(vector))
		}
		for i, v := range vector {
			if v != 0 {
				t.Fatalf("placeholder component %d is %f, want 0", i, v)
			}
		}
	}
}

func TestEmbed_DimensionMismatchIsHardFailure(t *testing.T) {
	server := newEmbedServer(t, 3, nil)
	defer server.Close()

	svc := NewEmbedService(server.URL, "test-model", 4, time.Second, nil)
	err := svc.Probe(context.Background())
	if err == nil {
		t.Fatal("expected probe failure on dimension mismatch")
	}
	if !strings.Contains(err.Error(), "dimension") {
		t.Errorf("error should name the dimension mismatch: %v", err)
	}
}

type recordingCache struct {
	store map[string][]float32
	puts  int
}

func (c *recordingCache) Get(ctx context.Context, key string) ([]float32, bool) {
	vector, ok := c.store[key]
	return vector, ok
}

func (c *recordingCache) Put(ctx context.Context, key string, vector []float32) {
	c.puts++
	c.store[key] = vector
}

func TestEmbed_SecondCallServedFromCache(t *testing.T) {
	var calls atomic.Int64
	server := newEmbedServer(t, 4, &calls)
	defer server.Close()

	cache := &recordingCache{store: map[string][]float32{}}
	svc := NewEmbedService(server.URL, "test-model", 4, time.Second, cache)
	if err := svc.Probe(context.Background()); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	probeCalls := calls.Load()

	if _, err := svc.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if _, err := svc.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	if got := calls.Load() - probeCalls; got != 1 {
		t.Errorf("expected one remote call after probe, got %d", got)
	}
	if cache.puts != 1 {
		t.Errorf("expected one cache put, got %d", cache.puts)
	}
}
