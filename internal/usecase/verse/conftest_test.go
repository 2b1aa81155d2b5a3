package verse

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kailas-cloud/verseapi/internal/cache"
	"github.com/kailas-cloud/verseapi/internal/domain"
	"github.com/kailas-cloud/verseapi/internal/policy"
)

// mockRepo implements Repository with function fields.
type mockRepo struct {
	getByNumberFn   func(ctx context.Context, verseNumber string) (domain.Verse, error)
	listFn          func(ctx context.Context, offset, limit int) ([]domain.Verse, error)
	listByChapterFn func(ctx context.Context, chapter, limit int) ([]domain.Verse, error)
	chaptersFn      func(ctx context.Context) ([]int, error)
	randomFn        func(ctx context.Context) (domain.Verse, error)

	listCalls          int
	listByChapterCalls int
	getByNumberCalls   int
	chaptersCalls      int
}

func (m *mockRepo) GetByNumber(ctx context.Context, verseNumber string) (domain.Verse, error) {
	m.getByNumberCalls++
	if m.getByNumberFn != nil {
		return m.getByNumberFn(ctx, verseNumber)
	}
	return domain.Verse{}, domain.ErrNotFound
}

func (m *mockRepo) List(ctx context.Context, offset, limit int) ([]domain.Verse, error) {
	m.listCalls++
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, nil
}

func (m *mockRepo) ListByChapter(ctx context.Context, chapter, limit int) ([]domain.Verse, error) {
	m.listByChapterCalls++
	if m.listByChapterFn != nil {
		return m.listByChapterFn(ctx, chapter, limit)
	}
	return nil, nil
}

func (m *mockRepo) Chapters(ctx context.Context) ([]int, error) {
	m.chaptersCalls++
	if m.chaptersFn != nil {
		return m.chaptersFn(ctx)
	}
	return nil, nil
}

func (m *mockRepo) Random(ctx context.Context) (domain.Verse, error) {
	if m.randomFn != nil {
		return m.randomFn(ctx)
	}
	return domain.Verse{}, nil
}

// memCache is an in-memory Cache that records keys it saw.
type memCache struct {
	entries map[string][]byte
	gets    []string
	sets    []string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) GetJSON(_ context.Context, _ cache.Resource, key string, dest any) bool {
	c.gets = append(c.gets, key)
	data, ok := c.entries[key]
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false
	}
	return true
}

func (c *memCache) SetJSON(_ context.Context, _ cache.Resource, key string, value any, _ time.Duration) {
	c.sets = append(c.sets, key)
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.entries[key] = data
}

func testRules() *policy.Rules {
	return policy.New(policy.Config{
		FirstChapter:      1,
		GuestChapterLimit: 5,
		GuestListingLimit: 5,
		GuestTagLimit:     3,
		GuestTagCatalogue: 3,
		GuestTags:         []string{"Knowledge", "Freedom", "Self"},
	})
}

func testTTLs() TTLs {
	return TTLs{
		Listing:  time.Hour,
		Chapters: time.Hour,
		Chapter:  time.Hour,
		Verse:    time.Hour,
	}
}

func verseN(chapter int, number string) domain.Verse {
	return domain.Verse{
		Chapter:     chapter,
		VerseNumber: number,
		English:     "verse " + number,
	}
}
