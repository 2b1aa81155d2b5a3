package tag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/verseapi/internal/db"
	"github.com/kailas-cloud/verseapi/internal/domain"
)

// store is the consumer interface for the tag mapping (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
}

// Repo reads the tag-to-verse mapping document: one JSON document holding
// a map from tag label to the verse numbers carrying it.
type Repo struct {
	store store

	// mappingKey is derived from the store-wide key prefix.
	mappingKey string
}

// New creates a tag repository. keyPrefix is the store-wide key prefix from
// config (e.g. "verseapi:").
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, mappingKey: keyPrefix + "tags"}
}

// Catalogue returns all tag mappings sorted by name. Tags with an empty
// verse set are not surfaced.
func (r *Repo) Catalogue(ctx context.Context) ([]domain.TagMapping, error) {
	m, err := r.mapping(ctx)
	if err != nil {
		return nil, err
	}

	tags := make([]domain.TagMapping, 0, len(m))
	for name, verses := range m {
		if len(verses) == 0 {
			continue
		}
		tags = append(tags, domain.TagMapping{Name: name, Verses: verses})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })

	if len(tags) == 0 {
		return nil, domain.ErrNotFound
	}
	return tags, nil
}

// Verses returns the verse numbers for one tag. A missing tag and a tag with
// no verses are both not-found conditions.
func (r *Repo) Verses(ctx context.Context, tag string) ([]string, error) {
	m, err := r.mapping(ctx)
	if err != nil {
		return nil, err
	}

	verses, ok := m[tag]
	if !ok || len(verses) == 0 {
		return nil, domain.ErrNotFound
	}
	return verses, nil
}

// Set writes the whole tag mapping (seed path).
func (r *Repo) Set(ctx context.Context, mapping map[string][]string) error {
	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshal tag mapping: %w", err)
	}
	if err := r.store.JSONSet(ctx, r.mappingKey, "$", data); err != nil {
		return fmt.Errorf("json.set %s: %w", r.mappingKey, err)
	}
	return nil
}

func (r *Repo) mapping(ctx context.Context) (map[string][]string, error) {
	raw, err := r.store.JSONGet(ctx, r.mappingKey, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("json.get %s: %w", r.mappingKey, err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var wrapped []map[string][]string
		if err := json.Unmarshal([]byte(trimmed), &wrapped); err != nil {
			return nil, fmt.Errorf("parse tag mapping: %w", err)
		}
		if len(wrapped) == 0 {
			return nil, domain.ErrNotFound
		}
		return wrapped[0], nil
	}

	var m map[string][]string
	if err := json.Unmarshal([]byte(trimmed), &m); err != nil {
		return nil, fmt.Errorf("parse tag mapping: %w", err)
	}
	return m, nil
}
