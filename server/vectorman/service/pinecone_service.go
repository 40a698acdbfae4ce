package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rag_server/server/chat/domain"
)

// PineconeService queries a serverless Pinecone index over its REST API.
// It is read-only: the index is provisioned out-of-band with a cosine
// metric and fixed dimensionality.
type PineconeService struct {
	endpoint string
	apiKey   string
	dim      int
	client   *http.Client
}

func NewPineconeService(endpoint, apiKey string, dim int, timeout time.Duration) *PineconeService {
	if dim <= 0 {
		dim = DefaultVectorDim
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PineconeService{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		apiKey:   strings.TrimSpace(apiKey),
		dim:      dim,
		client:   &http.Client{Timeout: timeout},
	}
}

type pineconeQueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

func (p *PineconeService) Query(ctx context.Context, vector []float32, k int) ([]domain.MatchResult, error) {
	if k <= 0 {
		return nil, domain.NewRetrievalError(fmt.Errorf("top-k must be positive, got %d", k))
	}
	if len(vector) != p.dim {
		return nil, domain.NewRetrievalError(fmt.Errorf("query vector dimension %d, want %d", len(vector), p.dim))
	}

	body, statusCode, err := p.requestBytes(ctx, "/query", pineconeQueryRequest{
		Vector:          vector,
		TopK:            k,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, domain.NewRetrievalError(err)
	}
	if statusCode >= 300 {
		return nil, domain.NewRetrievalError(fmt.Errorf("pinecone status %d", statusCode))
	}

	var out pineconeQueryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, domain.NewRetrievalError(err)
	}

	// Index order is preserved verbatim: matches arrive ranked by
	// similarity and must not be reordered or deduplicated here.
	items := make([]domain.MatchResult, 0, len(out.Matches))
	for _, match := range out.Matches {
		items = append(items, domain.MatchResult{
			ID:       match.ID,
			Score:    match.Score,
			Metadata: match.Metadata,
		})
	}
	return items, nil
}

func (p *PineconeService) requestBytes(ctx context.Context, path string, payload any) ([]byte, int, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+path, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return responseBody, resp.StatusCode, nil
}
