package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	commonlog "rag_server/server/common/log"
)

// EmbeddingCache is an optional read-through cache in front of the remote
// embedding model. Lookups never fail a request; a broken cache is a miss.
type EmbeddingCache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Put(ctx context.Context, key string, vector []float32)
}

// EmbedService turns text into fixed-length vectors via a remote embedding
// server. When the model backend was unreachable at startup the service runs
// in degraded mode and every call yields the all-zero placeholder vector of
// the configured dimensionality instead of an error.
type EmbedService struct {
	endpoint string
	model    string
	dim      int
	client   *http.Client
	cache    EmbeddingCache
	loaded   bool
}

func NewEmbedService(endpoint, model string, dim int, timeout time.Duration, cache EmbeddingCache) *EmbedService {
	if dim <= 0 {
		dim = DefaultVectorDim
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EmbedService{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		model:    strings.TrimSpace(model),
		dim:      dim,
		client:   &http.Client{Timeout: timeout},
		cache:    cache,
	}
}

// Probe runs one embedding round trip and flips the service into live mode
// on success. Called once at process start; the flag is read-only afterwards.
func (s *EmbedService) Probe(ctx context.Context) error {
	if _, err := s.embedRemote(ctx, "ping"); err != nil {
		s.loaded = false
		return err
	}
	s.loaded = true
	return nil
}

func (s *EmbedService) ModelLoaded() bool {
	return s.loaded
}

func (s *EmbedService) Dimension() int {
	return s.dim
}

func (s *EmbedService) Placeholder() []float32 {
	return make([]float32, s.dim)
}

func (s *EmbedService) Embed(ctx context.Context, text string) ([]float32, error) {
	if !s.loaded {
		return s.Placeholder(), nil
	}

	key := s.cacheKey(text)
	if s.cache != nil {
		if vector, ok := s.cache.Get(ctx, key); ok && len(vector) == s.dim {
			return vector, nil
		}
	}

	vector, err := s.embedRemote(ctx, text)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Put(ctx, key, vector)
	}
	return vector, nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (s *EmbedService) embedRemote(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: s.model, Input: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/embeddings", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding server status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.Unmarshal(responseBody, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("embedding server returned no data")
	}
	vector := out.Data[0].Embedding
	if len(vector) != s.dim {
		return nil, fmt.Errorf("embedding dimension %d, want %d", len(vector), s.dim)
	}
	return vector, nil
}

func (s *EmbedService) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(s.model + "\x00" + text))
	return "embed:" + hex.EncodeToString(sum[:])
}

// LogDegraded reports the standing degraded condition once at startup so it
// is visible in logs even though per-request calls keep succeeding.
func (s *EmbedService) LogDegraded(err error) {
	commonlog.Warnf("embedding model %q unavailable, serving placeholder vectors: %v", s.model, err)
}
