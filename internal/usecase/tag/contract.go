package tag

import (
	"context"
	"time"

	"github.com/kailas-cloud/verseapi/internal/cache"
	"github.com/kailas-cloud/verseapi/internal/domain"
)

// Repository reads the tag mapping.
type Repository interface {
	Catalogue(ctx context.Context) ([]domain.TagMapping, error)
	Verses(ctx context.Context, tag string) ([]string, error)
}

// VerseResolver resolves verse numbers to verse records.
type VerseResolver interface {
	ByNumbers(ctx context.Context, verseNumbers []string) ([]domain.Verse, error)
}

// Cache is the read-through cache contract.
type Cache interface {
	GetJSON(ctx context.Context, resource cache.Resource, key string, dest any) bool
	SetJSON(ctx context.Context, resource cache.Resource, key string, value any, ttl time.Duration)
}

// TTLs holds the per-resource cache lifetimes.
type TTLs struct {
	Catalogue time.Duration
	Verses    time.Duration
}
