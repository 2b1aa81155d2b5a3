package rag

import (
	"context"
	"time"

	"github.com/kailas-cloud/verseapi/internal/cache"
	"github.com/kailas-cloud/verseapi/internal/domain"
)

// Repository runs nearest-neighbor search over stored verse vectors.
type Repository interface {
	SearchKNN(ctx context.Context, vector []float32, k int) ([]domain.ScoredVerse, error)
}

// Embedder vectorizes query text (cache-assisted upstream).
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Cache is the read-through cache contract for ranked results.
type Cache interface {
	GetJSON(ctx context.Context, resource cache.Resource, key string, dest any) bool
	SetJSON(ctx context.Context, resource cache.Resource, key string, value any, ttl time.Duration)
}
