package cache

import (
	"strings"

	"github.com/kailas-cloud/verseapi/internal/domain"
)

// Resource names a cached resource kind; it is part of every cache key and
// the metrics label.
type Resource string

const (
	ResourceListing      Resource = "listing"
	ResourceChapters     Resource = "chapters"
	ResourceChapter      Resource = "chapter"
	ResourceVerse        Resource = "verse"
	ResourceTagCatalogue Resource = "tag_catalogue"
	ResourceTagVerses    Resource = "tag_verses"
	ResourceSearch       Resource = "search"
)

// Key derives a cache key from role, resource kind, and the effective
// (post-policy) parameters. Keys are the single place role-scoped views are
// isolated: two requests that the policy narrows to the same effective query
// share an entry, and differing effective views never collide. The Cache
// prepends its configured store prefix on access.
func Key(role domain.Role, resource Resource, params ...string) string {
	parts := make([]string, 0, 3+len(params))
	parts = append(parts, string(resource), string(role))
	parts = append(parts, params...)
	return strings.Join(parts, ":")
}

// GlobalKey derives a cache key for a resource that is not role-gated
// (e.g. semantic search results).
func GlobalKey(resource Resource, params ...string) string {
	parts := make([]string, 0, 2+len(params))
	parts = append(parts, string(resource))
	parts = append(parts, params...)
	return strings.Join(parts, ":")
}
