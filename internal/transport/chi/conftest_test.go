package chi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/verseapi/internal/auth"
	"github.com/kailas-cloud/verseapi/internal/cache"
	"github.com/kailas-cloud/verseapi/internal/domain"
	"github.com/kailas-cloud/verseapi/internal/policy"
	healthuc "github.com/kailas-cloud/verseapi/internal/usecase/health"
	raguc "github.com/kailas-cloud/verseapi/internal/usecase/rag"
	taguc "github.com/kailas-cloud/verseapi/internal/usecase/tag"
	verseuc "github.com/kailas-cloud/verseapi/internal/usecase/verse"
)

// fixture data: a two-chapter corpus.
var testVerses = []domain.Verse{
	{Chapter: 1, VerseNumber: "1.1", English: "one", Tags: []string{"Knowledge"}},
	{Chapter: 1, VerseNumber: "1.2", English: "two", Tags: []string{"Self"}},
	{Chapter: 2, VerseNumber: "2.1", English: "three", Tags: []string{"Peace"}},
}

// fakeVerseRepo serves the fixture corpus.
type fakeVerseRepo struct{}

func (fakeVerseRepo) GetByNumber(_ context.Context, n string) (domain.Verse, error) {
	for _, v := range testVerses {
		if v.VerseNumber == n {
			return v, nil
		}
	}
	return domain.Verse{}, domain.ErrNotFound
}

func (fakeVerseRepo) List(_ context.Context, offset, limit int) ([]domain.Verse, error) {
	out := testVerses
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (fakeVerseRepo) ListByChapter(_ context.Context, chapter, limit int) ([]domain.Verse, error) {
	var out []domain.Verse
	for _, v := range testVerses {
		if v.Chapter == chapter {
			out = append(out, v)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (fakeVerseRepo) Chapters(_ context.Context) ([]int, error) {
	return []int{1, 2}, nil
}

func (fakeVerseRepo) Random(_ context.Context) (domain.Verse, error) {
	return testVerses[0], nil
}

func (fakeVerseRepo) ByNumbers(_ context.Context, numbers []string) ([]domain.Verse, error) {
	var out []domain.Verse
	for _, n := range numbers {
		for _, v := range testVerses {
			if v.VerseNumber == n {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

// fakeTagRepo serves a fixed tag mapping.
type fakeTagRepo struct{}

func (fakeTagRepo) Catalogue(_ context.Context) ([]domain.TagMapping, error) {
	return []domain.TagMapping{
		{Name: "Freedom", Verses: []string{"1.1"}},
		{Name: "Knowledge", Verses: []string{"1.1"}},
		{Name: "Peace", Verses: []string{"2.1"}},
		{Name: "Self", Verses: []string{"1.2"}},
	}, nil
}

func (fakeTagRepo) Verses(_ context.Context, tag string) ([]string, error) {
	switch tag {
	case "Knowledge":
		return []string{"1.1"}, nil
	case "Peace":
		return []string{"2.1"}, nil
	}
	return nil, domain.ErrNotFound
}

// fakeSearchRepo returns canned KNN results.
type fakeSearchRepo struct {
	results []domain.ScoredVerse
	err     error
}

func (f *fakeSearchRepo) SearchKNN(_ context.Context, _ []float32, _ int) ([]domain.ScoredVerse, error) {
	return f.results, f.err
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

// nopCache never hits; handler tests exercise the services, not the cache.
type nopCache struct{}

func (nopCache) GetJSON(_ context.Context, _ cache.Resource, _ string, _ any) bool { return false }

func (nopCache) SetJSON(_ context.Context, _ cache.Resource, _ string, _ any, _ time.Duration) {}

type serverOptions struct {
	search *fakeSearchRepo
	embed  *fakeEmbedder
	dbErr  error
}

func newTestServer(t *testing.T, opts serverOptions) (*httptest.Server, *auth.Resolver) {
	t.Helper()

	rules := policy.New(policy.Config{
		FirstChapter:      1,
		GuestChapterLimit: 5,
		GuestListingLimit: 5,
		GuestTagLimit:     3,
		GuestTagCatalogue: 3,
		GuestTags:         []string{"Knowledge", "Freedom", "Self"},
	})

	if opts.search == nil {
		opts.search = &fakeSearchRepo{}
	}
	if opts.embed == nil {
		opts.embed = &fakeEmbedder{}
	}

	verseSvc := verseuc.New(fakeVerseRepo{}, nopCache{}, rules, verseuc.TTLs{})
	tagSvc := taguc.New(fakeTagRepo{}, fakeVerseRepo{}, nopCache{}, rules, taguc.TTLs{})
	ragSvc := raguc.New(opts.search, opts.embed, nopCache{}, raguc.Config{})
	healthSvc := healthuc.New(&fakePinger{err: opts.dbErr}, nil)

	resolver := auth.NewResolver("test-secret", time.Hour)
	server := NewServer(verseSvc, tagSvc, ragSvc, healthSvc, resolver, zap.NewNop())

	r := chi.NewRouter()
	r.Use(PrincipalMiddleware(resolver))
	server.Routes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, resolver
}

func bearerToken(t *testing.T, resolver *auth.Resolver) string {
	t.Helper()
	token, err := resolver.Issue("u-1", "rishi@example.com", "rishi")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return "Bearer " + token
}

func decodeBody(t *testing.T, body []byte, dest any) {
	t.Helper()
	if err := json.Unmarshal(body, dest); err != nil {
		t.Fatalf("decode response: %v (%s)", err, body)
	}
}
