package policy

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/verseapi/internal/domain"
)

func testRules() *Rules {
	return New(Config{
		FirstChapter:      1,
		GuestChapterLimit: 5,
		GuestListingLimit: 5,
		GuestTagLimit:     3,
		GuestTagCatalogue: 3,
		GuestTags:         []string{"Knowledge", "Freedom", "Self"},
	})
}

func TestChapterVerses_GuestOutsideFirstChapter(t *testing.T) {
	r := testRules()

	_, err := r.ChapterVerses(domain.RoleGuest, 2, 10)
	if !errors.Is(err, domain.ErrLoginRequired) {
		t.Fatalf("expected ErrLoginRequired, got %v", err)
	}
}

func TestChapterVerses_GuestClamped(t *testing.T) {
	r := testRules()

	cases := []struct {
		requested int
		want      int
	}{
		{0, 5},   // no limit -> guest maximum
		{-1, 5},  // nonsense -> guest maximum
		{3, 3},   // under the cap -> kept
		{5, 5},   // at the cap -> kept
		{50, 5},  // over the cap -> clamped
		{999, 5}, // far over -> clamped
	}
	for _, tc := range cases {
		got, err := r.ChapterVerses(domain.RoleGuest, 1, tc.requested)
		if err != nil {
			t.Fatalf("requested=%d: unexpected error: %v", tc.requested, err)
		}
		if got != tc.want {
			t.Errorf("requested=%d: got %d, want %d", tc.requested, got, tc.want)
		}
	}
}

func TestChapterVerses_AuthenticatedUnrestricted(t *testing.T) {
	r := testRules()

	got, err := r.ChapterVerses(domain.RoleAuthenticated, 12, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 500 {
		t.Errorf("got %d, want requested limit passed through", got)
	}
}

func TestTagVerses_GuestAllowList(t *testing.T) {
	r := testRules()

	if _, err := r.TagVerses(domain.RoleGuest, "Knowledge", 2); err != nil {
		t.Errorf("allow-listed tag: unexpected error: %v", err)
	}

	_, err := r.TagVerses(domain.RoleGuest, "Detachment", 2)
	if !errors.Is(err, domain.ErrLoginRequired) {
		t.Errorf("off-list tag: expected ErrLoginRequired, got %v", err)
	}

	// Tag matching is case-sensitive.
	_, err = r.TagVerses(domain.RoleGuest, "knowledge", 2)
	if !errors.Is(err, domain.ErrLoginRequired) {
		t.Errorf("lowercased tag: expected ErrLoginRequired, got %v", err)
	}
}

func TestTagVerses_GuestClamped(t *testing.T) {
	r := testRules()

	got, err := r.TagVerses(domain.RoleGuest, "Self", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestTagVerses_AuthenticatedAnyTag(t *testing.T) {
	r := testRules()

	got, err := r.TagVerses(domain.RoleAuthenticated, "Detachment", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 10 {
		t.Errorf("got %d, want 10", got)
	}
}

func TestListing(t *testing.T) {
	r := testRules()

	filter, offset, limit := r.Listing(domain.RoleGuest, 0, 50)
	if filter != 1 {
		t.Errorf("guest chapter filter = %d, want 1", filter)
	}
	if limit != 5 {
		t.Errorf("guest limit = %d, want 5", limit)
	}
	if offset != 0 {
		t.Errorf("guest offset = %d, want 0", offset)
	}

	filter, offset, limit = r.Listing(domain.RoleAuthenticated, 20, 50)
	if filter != 0 {
		t.Errorf("authenticated chapter filter = %d, want 0", filter)
	}
	if offset != 20 {
		t.Errorf("authenticated offset = %d, want 20", offset)
	}
	if limit != 50 {
		t.Errorf("authenticated limit = %d, want 50", limit)
	}
}

func TestListing_GuestOffsetCollapses(t *testing.T) {
	r := testRules()

	// The guest listing ignores offsets, so any requested offset narrows to
	// the same effective query.
	_, o1, l1 := r.Listing(domain.RoleGuest, 0, 10)
	_, o2, l2 := r.Listing(domain.RoleGuest, 7, 10)
	if o1 != o2 || l1 != l2 {
		t.Errorf("offsets 0 and 7 narrowed differently: (%d,%d) vs (%d,%d)", o1, l1, o2, l2)
	}
	if o1 != 0 {
		t.Errorf("guest effective offset = %d, want 0", o1)
	}
}

func TestChaptersOnlyFirst(t *testing.T) {
	r := testRules()

	if !r.ChaptersOnlyFirst(domain.RoleGuest) {
		t.Error("guest chapter list should collapse to the first chapter")
	}
	if r.ChaptersOnlyFirst(domain.RoleAuthenticated) {
		t.Error("authenticated chapter list should not collapse")
	}
}

func TestTagCatalogueTruncate(t *testing.T) {
	r := testRules()

	if got := r.TagCatalogueTruncate(domain.RoleGuest); got != 3 {
		t.Errorf("guest truncation = %d, want 3", got)
	}
	if got := r.TagCatalogueTruncate(domain.RoleAuthenticated); got != 0 {
		t.Errorf("authenticated truncation = %d, want 0", got)
	}
}

func TestVerseVisible(t *testing.T) {
	r := testRules()

	if !r.VerseVisible(domain.RoleGuest, 1) {
		t.Error("guest should see first-chapter verses")
	}
	if r.VerseVisible(domain.RoleGuest, 2) {
		t.Error("guest should not see verses outside the first chapter")
	}
	if !r.VerseVisible(domain.RoleAuthenticated, 2) {
		t.Error("authenticated should see any verse")
	}
}
