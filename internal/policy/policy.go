// Package policy encodes the guest/authenticated access asymmetry as pure
// decision functions. Every function maps (role, requested parameters) to
// effective parameters or domain.ErrLoginRequired; nothing here touches the
// cache or the store. Effective parameters — not requested ones — are what
// callers derive cache keys from.
package policy

import (
	"github.com/kailas-cloud/verseapi/internal/domain"
)

// Rules holds the policy constants. Authenticated callers have no
// restrictions; guests are narrowed per resource kind.
type Rules struct {
	firstChapter      int
	guestChapterLimit int
	guestListingLimit int
	guestTagLimit     int
	guestTagCatalogue int
	guestTags         map[string]struct{}
}

// Config holds the policy constants loaded from configuration.
type Config struct {
	FirstChapter      int
	GuestChapterLimit int
	GuestListingLimit int
	GuestTagLimit     int
	GuestTagCatalogue int
	GuestTags         []string
}

// New creates policy rules from config.
func New(cfg Config) *Rules {
	tags := make(map[string]struct{}, len(cfg.GuestTags))
	for _, t := range cfg.GuestTags {
		tags[t] = struct{}{}
	}
	return &Rules{
		firstChapter:      cfg.FirstChapter,
		guestChapterLimit: cfg.GuestChapterLimit,
		guestListingLimit: cfg.GuestListingLimit,
		guestTagLimit:     cfg.GuestTagLimit,
		guestTagCatalogue: cfg.GuestTagCatalogue,
		guestTags:         tags,
	}
}

// FirstChapter is the only chapter guests may read.
func (r *Rules) FirstChapter() int { return r.firstChapter }

// ChapterVerses decides the items-within-a-chapter query. Returns the
// effective limit (0 = unlimited) or ErrLoginRequired when a guest requests
// a chapter outside the guest allowance.
func (r *Rules) ChapterVerses(role domain.Role, chapter, requestedLimit int) (int, error) {
	if role == domain.RoleAuthenticated {
		return requestedLimit, nil
	}
	if chapter != r.firstChapter {
		return 0, domain.ErrLoginRequired
	}
	return clamp(requestedLimit, r.guestChapterLimit), nil
}

// TagVerses decides the items-by-tag query. Guests may only read tags on the
// allow-list, with the limit clamped.
func (r *Rules) TagVerses(role domain.Role, tag string, requestedLimit int) (int, error) {
	if role == domain.RoleAuthenticated {
		return requestedLimit, nil
	}
	if _, ok := r.guestTags[tag]; !ok {
		return 0, domain.ErrLoginRequired
	}
	return clamp(requestedLimit, r.guestTagLimit), nil
}

// Listing decides the full corpus listing. For guests the result is filtered
// post-fetch to the first chapter and truncated; chapterFilter is 0 when no
// filtering applies. The guest view ignores offsets, so the effective offset
// collapses to 0 and any requested offset narrows to the same query.
func (r *Rules) Listing(role domain.Role, requestedOffset, requestedLimit int) (chapterFilter, offset, limit int) {
	if role == domain.RoleAuthenticated {
		return 0, requestedOffset, requestedLimit
	}
	return r.firstChapter, 0, clamp(requestedLimit, r.guestListingLimit)
}

// ChaptersOnlyFirst reports whether the chapter list collapses to the
// singleton first chapter (guest view).
func (r *Rules) ChaptersOnlyFirst(role domain.Role) bool {
	return role == domain.RoleGuest
}

// TagCatalogueTruncate returns the catalogue truncation for the role,
// 0 meaning no truncation.
func (r *Rules) TagCatalogueTruncate(role domain.Role) int {
	if role == domain.RoleAuthenticated {
		return 0
	}
	return r.guestTagCatalogue
}

// VerseVisible reports whether a verse from the given chapter may be shown
// to the role. An invisible verse is replaced with a sentinel message, not
// denied: the identifier itself is resolvable by anyone.
func (r *Rules) VerseVisible(role domain.Role, chapter int) bool {
	return role == domain.RoleAuthenticated || chapter == r.firstChapter
}

// clamp narrows a requested limit to the guest maximum. A request with no
// limit (<= 0) becomes the maximum, so two raw requests that narrow to the
// same effective query share a cache entry.
func clamp(requested, maximum int) int {
	if requested <= 0 || requested > maximum {
		return maximum
	}
	return requested
}
