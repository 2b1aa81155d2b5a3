package verse

import (
	"context"
	"time"

	"github.com/kailas-cloud/verseapi/internal/cache"
	"github.com/kailas-cloud/verseapi/internal/domain"
)

// Repository defines the storage contract for verse reads.
type Repository interface {
	GetByNumber(ctx context.Context, verseNumber string) (domain.Verse, error)
	List(ctx context.Context, offset, limit int) ([]domain.Verse, error)
	ListByChapter(ctx context.Context, chapter, limit int) ([]domain.Verse, error)
	Chapters(ctx context.Context) ([]int, error)
	Random(ctx context.Context) (domain.Verse, error)
}

// Cache is the read-through cache contract.
type Cache interface {
	GetJSON(ctx context.Context, resource cache.Resource, key string, dest any) bool
	SetJSON(ctx context.Context, resource cache.Resource, key string, value any, ttl time.Duration)
}

// TTLs holds the per-resource cache lifetimes.
type TTLs struct {
	Listing  time.Duration
	Chapters time.Duration
	Chapter  time.Duration
	Verse    time.Duration
}
