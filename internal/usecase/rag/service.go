// Package rag orchestrates semantic search: embed the query (behind its own
// long-TTL cache), run KNN over the verse index with an over-fetched
// candidate pool, and cache the ranked result under a shorter TTL — the
// index may change, embeddings of fixed text never do.
package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/verseapi/internal/cache"
	"github.com/kailas-cloud/verseapi/internal/domain"
)

// Config holds search orchestration settings.
type Config struct {
	// OverfetchFactor sizes the KNN candidate pool as a multiple of topK to
	// improve recall on the approximate index.
	OverfetchFactor int
	// MaxTopK bounds the requested result count.
	MaxTopK int
	// DefaultTopK applies when the request omits top_k.
	DefaultTopK int
	// ResultTTL is the ranked-results cache lifetime.
	ResultTTL time.Duration
}

// Service is the semantic search orchestrator.
type Service struct {
	repo  Repository
	embed Embedder
	cache Cache
	cfg   Config
}

// New creates a search service.
func New(repo Repository, embed Embedder, c Cache, cfg Config) *Service {
	if cfg.OverfetchFactor <= 0 {
		cfg.OverfetchFactor = 33
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = 50
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 3
	}
	return &Service{repo: repo, embed: embed, cache: c, cfg: cfg}
}

// Query returns the topK verses ranked by similarity to the free-text query.
// Any upstream failure surfaces as a single ErrSearchFailed with the cause
// attached; no partial results are returned.
func (s *Service) Query(ctx context.Context, query string, topK int) ([]domain.ScoredVerse, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrBadRequest)
	}
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK > s.cfg.MaxTopK {
		topK = s.cfg.MaxTopK
	}

	key := s.resultKey(query, topK)

	var results []domain.ScoredVerse
	if s.cache.GetJSON(ctx, cache.ResourceSearch, key, &results) {
		return results, nil
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: vectorize query: %w", domain.ErrSearchFailed, err)
	}

	candidates := topK * s.cfg.OverfetchFactor
	results, err = s.repo.SearchKNN(ctx, embResult.Embedding, candidates)
	if err != nil {
		return nil, fmt.Errorf("%w: search knn: %w", domain.ErrSearchFailed, err)
	}

	if len(results) > topK {
		results = results[:topK]
	}

	s.cache.SetJSON(ctx, cache.ResourceSearch, key, results, s.cfg.ResultTTL)
	return results, nil
}

// resultKey derives the ranked-results cache key from the literal query text
// and topK. Search is not role-gated, so no role enters the key.
func (s *Service) resultKey(query string, topK int) string {
	h := sha256.Sum256([]byte(query))
	return cache.GlobalKey(cache.ResourceSearch,
		hex.EncodeToString(h[:]), strconv.Itoa(topK))
}
