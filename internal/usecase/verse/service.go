package verse

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/verseapi/internal/cache"
	"github.com/kailas-cloud/verseapi/internal/domain"
	"github.com/kailas-cloud/verseapi/internal/policy"
)

// Service serves role-aware verse reads: policy narrows the requested
// parameters, the cache is consulted under the effective (post-policy) key,
// and only on a miss does the store get hit.
type Service struct {
	repo  Repository
	cache Cache
	rules *policy.Rules
	ttls  TTLs
}

// New creates a verse service.
func New(repo Repository, c Cache, rules *policy.Rules, ttls TTLs) *Service {
	return &Service{repo: repo, cache: c, rules: rules, ttls: ttls}
}

// List returns the corpus listing for the role. Guest results are filtered
// post-fetch to the first chapter and truncated.
func (s *Service) List(ctx context.Context, role domain.Role, offset, limit int) ([]domain.Verse, error) {
	chapterFilter, effOffset, effLimit := s.rules.Listing(role, offset, limit)

	key := cache.Key(role, cache.ResourceListing,
		strconv.Itoa(chapterFilter), strconv.Itoa(effOffset), strconv.Itoa(effLimit))

	var verses []domain.Verse
	if s.cache.GetJSON(ctx, cache.ResourceListing, key, &verses) {
		return verses, nil
	}

	if chapterFilter > 0 {
		// Guest view: unrestricted fetch, then filter and truncate.
		all, err := s.repo.List(ctx, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("list verses: %w", err)
		}
		verses = make([]domain.Verse, 0, effLimit)
		for _, v := range all {
			if v.Chapter != chapterFilter {
				continue
			}
			verses = append(verses, v)
			if len(verses) == effLimit {
				break
			}
		}
	} else {
		var err error
		verses, err = s.repo.List(ctx, effOffset, effLimit)
		if err != nil {
			return nil, fmt.Errorf("list verses: %w", err)
		}
	}

	s.cache.SetJSON(ctx, cache.ResourceListing, key, verses, s.ttls.Listing)
	return verses, nil
}

// Random returns one uniformly sampled verse. Not role-gated and never
// cached: a cached sample would not be a sample.
func (s *Service) Random(ctx context.Context) (domain.Verse, error) {
	v, err := s.repo.Random(ctx)
	if err != nil {
		return domain.Verse{}, fmt.Errorf("random verse: %w", err)
	}
	return v, nil
}

// Chapters returns the chapter catalogue, ascending. Guests see the
// singleton first chapter.
func (s *Service) Chapters(ctx context.Context, role domain.Role) ([]int, error) {
	key := cache.Key(role, cache.ResourceChapters)

	var chapters []int
	if s.cache.GetJSON(ctx, cache.ResourceChapters, key, &chapters) {
		return chapters, nil
	}

	chapters, err := s.repo.Chapters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}

	if s.rules.ChaptersOnlyFirst(role) {
		chapters = []int{s.rules.FirstChapter()}
	}

	s.cache.SetJSON(ctx, cache.ResourceChapters, key, chapters, s.ttls.Chapters)
	return chapters, nil
}

// ByChapter returns the verses of one chapter. Guests may only read the
// first chapter, with the limit clamped.
func (s *Service) ByChapter(ctx context.Context, role domain.Role, chapter, limit int) ([]domain.Verse, error) {
	effLimit, err := s.rules.ChapterVerses(role, chapter, limit)
	if err != nil {
		return nil, err
	}

	key := cache.Key(role, cache.ResourceChapter,
		strconv.Itoa(chapter), strconv.Itoa(effLimit))

	var verses []domain.Verse
	if s.cache.GetJSON(ctx, cache.ResourceChapter, key, &verses) {
		return verses, nil
	}

	verses, err = s.repo.ListByChapter(ctx, chapter, effLimit)
	if err != nil {
		return nil, fmt.Errorf("list chapter %d: %w", chapter, err)
	}

	s.cache.SetJSON(ctx, cache.ResourceChapter, key, verses, s.ttls.Chapter)
	return verses, nil
}

// Lookup is the result of a by-number fetch: either the verse or a
// restricted marker for guests looking outside the first chapter.
type Lookup struct {
	Verse      *domain.Verse `json:"verse,omitempty"`
	Restricted bool          `json:"restricted,omitempty"`
}

// ByNumber resolves a verse by its external identifier. Any identifier is
// resolvable by any role, but guests get a restricted marker instead of the
// verse when its chapter lies outside the guest allowance.
func (s *Service) ByNumber(ctx context.Context, role domain.Role, verseNumber string) (Lookup, error) {
	key := cache.Key(role, cache.ResourceVerse, verseNumber)

	var lookup Lookup
	if s.cache.GetJSON(ctx, cache.ResourceVerse, key, &lookup) {
		return lookup, nil
	}

	v, err := s.repo.GetByNumber(ctx, verseNumber)
	if err != nil {
		return Lookup{}, err
	}

	if s.rules.VerseVisible(role, v.Chapter) {
		lookup = Lookup{Verse: &v}
	} else {
		lookup = Lookup{Restricted: true}
	}

	s.cache.SetJSON(ctx, cache.ResourceVerse, key, lookup, s.ttls.Verse)
	return lookup, nil
}
