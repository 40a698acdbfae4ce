package service

import (
	"context"

	"rag_server/server/chat/domain"
)

// DefaultVectorDim matches the dimensionality of the provisioned index and
// the active embedding model. Both are fixed for the process lifetime.
const DefaultVectorDim = 1024

type VectorIndex interface {
	Query(ctx context.Context, vector []float32, k int) ([]domain.MatchResult, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	ModelLoaded() bool
}
