package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rag_server/server/chat/domain"
)

func TestPineconeQuery_ReturnsMatchesInIndexOrder(t *testing.T) {
	var gotAPIKey string
	var gotRequest pineconeQueryRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("Api-Key")
		if r.URL.Path != "/query" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"matches": []map[string]any{
				{"id": "doc-7", "score": 0.93, "metadata": map[string]any{"text": "first"}},
				{"id": "doc-2", "score": 0.71, "metadata": map[string]any{"text": "second"}},
			},
		})
	}))
	defer server.Close()

	svc := NewPineconeService(server.URL, "secret-key", 4, time.Second)
	matches, err := svc.Query(context.Background(), []float32{0.1, 0.2, 0.3, 0.4}, 3)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if gotAPIKey != "secret-key" {
		t.Errorf("Api-Key header %q, want %q", gotAPIKey, "secret-key")
	}
	if gotRequest.TopK != 3 || !gotRequest.IncludeMetadata {
		t.Errorf("request topK=%d includeMetadata=%v, want 3/true", gotRequest.TopK, gotRequest.IncludeMetadata)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "doc-7" || matches[1].ID != "doc-2" {
		t.Errorf("index order not preserved: %q, %q", matches[0].ID, matches[1].ID)
	}
	if matches[0].Score != 0.93 {
		t.Errorf("score %f, want 0.93", matches[0].Score)
	}
	if matches[0].Metadata["text"] != "first" {
		t.Errorf("metadata not carried through: %v", matches[0].Metadata)
	}
}

func TestPineconeQuery_ServerErrorWrapsRetrievalError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := NewPineconeService(server.URL, "key", 2, time.Second)
	_, err := svc.Query(context.Background(), []float32{0.1, 0.2}, 3)
	if err == nil {
		t.Fatal("expected error from 503 response")
	}
	var retrievalErr *domain.RetrievalError
	if !errors.As(err, &retrievalErr) {
		t.Fatalf("expected RetrievalError, got %T: %v", err, err)
	}
}

func TestPineconeQuery_NetworkErrorWrapsRetrievalError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	svc := NewPineconeService(server.URL, "key", 2, time.Second)
	_, err := svc.Query(context.Background(), []float32{0.1, 0.2}, 3)
	var retrievalErr *domain.RetrievalError
	if !errors.As(err, &retrievalErr) {
		t.Fatalf("expected RetrievalError, got %T: %v", err, err)
	}
}

func TestPineconeQuery_RejectsBadArguments(t *testing.T) {
	svc := NewPineconeService("http://localhost:1", "key", 4, time.Second)

	var retrievalErr *domain.RetrievalError
	if _, err := svc.Query(context.Background(), []float32{0.1, 0.2, 0.3, 0.4}, 0); !errors.As(err, &retrievalErr) {
		t.Errorf("non-positive k: expected RetrievalError, got %v", err)
	}
	if _, err := svc.Query(context.Background(), []float32{0.1}, 3); !errors.As(err, &retrievalErr) {
		t.Errorf("wrong vector dimension: expected RetrievalError, got %v", err)
	}
}
