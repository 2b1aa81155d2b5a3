package tag

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/verseapi/internal/cache"
	"github.com/kailas-cloud/verseapi/internal/domain"
	"github.com/kailas-cloud/verseapi/internal/policy"
)

// Service serves role-aware tag reads.
type Service struct {
	repo   Repository
	verses VerseResolver
	cache  Cache
	rules  *policy.Rules
	ttls   TTLs
}

// New creates a tag service.
func New(repo Repository, verses VerseResolver, c Cache, rules *policy.Rules, ttls TTLs) *Service {
	return &Service{repo: repo, verses: verses, cache: c, rules: rules, ttls: ttls}
}

// Catalogue returns the tag catalogue for the role, guest-truncated.
func (s *Service) Catalogue(ctx context.Context, role domain.Role) ([]domain.TagMapping, error) {
	truncate := s.rules.TagCatalogueTruncate(role)

	key := cache.Key(role, cache.ResourceTagCatalogue, strconv.Itoa(truncate))

	var tags []domain.TagMapping
	if s.cache.GetJSON(ctx, cache.ResourceTagCatalogue, key, &tags) {
		return tags, nil
	}

	tags, err := s.repo.Catalogue(ctx)
	if err != nil {
		return nil, err
	}

	if truncate > 0 && len(tags) > truncate {
		tags = tags[:truncate]
	}

	s.cache.SetJSON(ctx, cache.ResourceTagCatalogue, key, tags, s.ttls.Catalogue)
	return tags, nil
}

// VersesByTag returns the verses carrying one tag. Guests may only read
// allow-listed tags, with the limit clamped.
func (s *Service) VersesByTag(ctx context.Context, role domain.Role, tag string, limit int) ([]domain.Verse, error) {
	effLimit, err := s.rules.TagVerses(role, tag, limit)
	if err != nil {
		return nil, err
	}

	key := cache.Key(role, cache.ResourceTagVerses, tag, strconv.Itoa(effLimit))

	var verses []domain.Verse
	if s.cache.GetJSON(ctx, cache.ResourceTagVerses, key, &verses) {
		return verses, nil
	}

	numbers, err := s.repo.Verses(ctx, tag)
	if err != nil {
		return nil, err
	}

	verses, err = s.verses.ByNumbers(ctx, numbers)
	if err != nil {
		return nil, fmt.Errorf("resolve tag verses: %w", err)
	}
	if len(verses) == 0 {
		return nil, domain.ErrNotFound
	}

	if effLimit > 0 && len(verses) > effLimit {
		verses = verses[:effLimit]
	}

	s.cache.SetJSON(ctx, cache.ResourceTagVerses, key, verses, s.ttls.Verses)
	return verses, nil
}
