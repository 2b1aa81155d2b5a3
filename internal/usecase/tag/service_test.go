package tag

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/verseapi/internal/cache"
	"github.com/kailas-cloud/verseapi/internal/domain"
	"github.com/kailas-cloud/verseapi/internal/policy"
)

// --- Mocks ---

type mockRepo struct {
	catalogueFn func(ctx context.Context) ([]domain.TagMapping, error)
	versesFn    func(ctx context.Context, tag string) ([]string, error)

	catalogueCalls int
	versesCalls    int
}

func (m *mockRepo) Catalogue(ctx context.Context) ([]domain.TagMapping, error) {
	m.catalogueCalls++
	if m.catalogueFn != nil {
		return m.catalogueFn(ctx)
	}
	return nil, domain.ErrNotFound
}

func (m *mockRepo) Verses(ctx context.Context, tag string) ([]string, error) {
	m.versesCalls++
	if m.versesFn != nil {
		return m.versesFn(ctx, tag)
	}
	return nil, domain.ErrNotFound
}

type mockVerses struct {
	byNumbersFn func(ctx context.Context, verseNumbers []string) ([]domain.Verse, error)
}

func (m *mockVerses) ByNumbers(ctx context.Context, verseNumbers []string) ([]domain.Verse, error) {
	if m.byNumbersFn != nil {
		return m.byNumbersFn(ctx, verseNumbers)
	}
	out := make([]domain.Verse, len(verseNumbers))
	for i, n := range verseNumbers {
		out[i] = domain.Verse{Chapter: 1, VerseNumber: n}
	}
	return out, nil
}

type memCache struct {
	entries map[string][]byte
	sets    []string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) GetJSON(_ context.Context, _ cache.Resource, key string, dest any) bool {
	data, ok := c.entries[key]
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
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
	return TTLs{Catalogue: time.Hour, Verses: time.Hour}
}

func fullCatalogue() []domain.TagMapping {
	return []domain.TagMapping{
		{Name: "Freedom", Verses: []string{"1.1"}},
		{Name: "Knowledge", Verses: []string{"1.2"}},
		{Name: "Peace", Verses: []string{"2.1"}},
		{Name: "Self", Verses: []string{"1.3"}},
		{Name: "Stillness", Verses: []string{"3.1"}},
	}
}

// --- Tests ---

func TestCatalogue_GuestTruncated(t *testing.T) {
	repo := &mockRepo{
		catalogueFn: func(_ context.Context) ([]domain.TagMapping, error) {
			return fullCatalogue(), nil
		},
	}
	svc := New(repo, &mockVerses{}, newMemCache(), testRules(), testTTLs())

	tags, err := svc.Catalogue(context.Background(), domain.RoleGuest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 3 {
		t.Fatalf("guest catalogue has %d tags, want 3", len(tags))
	}

	tags, err = svc.Catalogue(context.Background(), domain.RoleAuthenticated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 5 {
		t.Fatalf("authenticated catalogue has %d tags, want 5", len(tags))
	}
}

func TestCatalogue_CacheHitSkipsRepo(t *testing.T) {
	repo := &mockRepo{
		catalogueFn: func(_ context.Context) ([]domain.TagMapping, error) {
			return fullCatalogue(), nil
		},
	}
	svc := New(repo, &mockVerses{}, newMemCache(), testRules(), testTTLs())

	for range 2 {
		if _, err := svc.Catalogue(context.Background(), domain.RoleGuest); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if repo.catalogueCalls != 1 {
		t.Errorf("repo hit %d times, want 1", repo.catalogueCalls)
	}
}

func TestVersesByTag_GuestAllowListDenied(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, &mockVerses{}, newMemCache(), testRules(), testTTLs())

	_, err := svc.VersesByTag(context.Background(), domain.RoleGuest, "Peace", 3)
	if !errors.Is(err, domain.ErrLoginRequired) {
		t.Fatalf("expected ErrLoginRequired, got %v", err)
	}
	if repo.versesCalls != 0 {
		t.Error("denied request must not reach the repo")
	}
}

func TestVersesByTag_GuestClamped(t *testing.T) {
	repo := &mockRepo{
		versesFn: func(_ context.Context, tag string) ([]string, error) {
			return []string{"1.1", "1.2", "1.3", "1.4", "1.5"}, nil
		},
	}
	svc := New(repo, &mockVerses{}, newMemCache(), testRules(), testTTLs())

	verses, err := svc.VersesByTag(context.Background(), domain.RoleGuest, "Knowledge", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(verses) != 3 {
		t.Errorf("got %d verses, want guest cap 3", len(verses))
	}
}

func TestVersesByTag_UnknownTag(t *testing.T) {
	svc := New(&mockRepo{}, &mockVerses{}, newMemCache(), testRules(), testTTLs())

	_, err := svc.VersesByTag(context.Background(), domain.RoleAuthenticated, "Nonsense", 3)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVersesByTag_NoResolvableVerses(t *testing.T) {
	repo := &mockRepo{
		versesFn: func(_ context.Context, _ string) ([]string, error) {
			return []string{"9.9"}, nil
		},
	}
	verses := &mockVerses{
		byNumbersFn: func(_ context.Context, _ []string) ([]domain.Verse, error) {
			return nil, nil
		},
	}
	svc := New(repo, verses, newMemCache(), testRules(), testTTLs())

	_, err := svc.VersesByTag(context.Background(), domain.RoleAuthenticated, "Knowledge", 3)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVersesByTag_CacheIsolatedByRole(t *testing.T) {
	repo := &mockRepo{
		versesFn: func(_ context.Context, _ string) ([]string, error) {
			return []string{"1.1", "1.2", "1.3", "1.4"}, nil
		},
	}
	c := newMemCache()
	svc := New(repo, &mockVerses{}, c, testRules(), testTTLs())

	guest, err := svc.VersesByTag(context.Background(), domain.RoleGuest, "Self", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	authed, err := svc.VersesByTag(context.Background(), domain.RoleAuthenticated, "Self", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(guest) != 3 {
		t.Errorf("guest got %d verses, want 3", len(guest))
	}
	if len(authed) != 4 {
		t.Errorf("authenticated got %d verses, want 4 (no cross-role replay)", len(authed))
	}
}
