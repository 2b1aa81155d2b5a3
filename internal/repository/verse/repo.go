package verse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/kailas-cloud/verseapi/internal/db"
	"github.com/kailas-cloud/verseapi/internal/domain"
)

// maxFetch caps unbounded listings.
const maxFetch = 1000

// store is the consumer interface for verses (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONMGet(ctx context.Context, keys []string, path string) ([][]byte, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo provides typed read access to verse records stored as RedisJSON
// documents under the configured key prefix, indexed by the FT index for
// chapter filters and vector search.
type Repo struct {
	store     store
	vectorDim int

	versePrefix string
	indexName   string
	chaptersKey string
}

// New creates a verse repository. vectorDim is the embedding dimensionality
// used when ensuring the FT index; keyPrefix is the store-wide key prefix
// from config (e.g. "verseapi:").
func New(s store, vectorDim int, keyPrefix string) *Repo {
	return &Repo{
		store:       s,
		vectorDim:   vectorDim,
		versePrefix: fmt.Sprintf("%sverse:", keyPrefix),
		indexName:   fmt.Sprintf("%sverse_idx", keyPrefix),
		chaptersKey: fmt.Sprintf("%schapters", keyPrefix),
	}
}

// Key returns the store key for a verse number.
func (r *Repo) Key(verseNumber string) string { return r.versePrefix + verseNumber }

// GetByNumber returns the verse with the given external identifier.
func (r *Repo) GetByNumber(ctx context.Context, verseNumber string) (domain.Verse, error) {
	key := r.Key(verseNumber)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Verse{}, domain.ErrNotFound
		}
		return domain.Verse{}, fmt.Errorf("json.get %s: %w", key, err)
	}
	doc, err := parseJSONDoc(raw)
	if err != nil {
		return domain.Verse{}, err
	}
	return doc.toDomain(key), nil
}

// List returns verses with offset pagination. limit <= 0 means unbounded
// (capped at maxFetch).
func (r *Repo) List(ctx context.Context, offset, limit int) ([]domain.Verse, error) {
	if limit <= 0 || limit > maxFetch {
		limit = maxFetch
	}
	return r.search(ctx, "*", offset, limit)
}

// ListByChapter returns verses for one chapter.
func (r *Repo) ListByChapter(ctx context.Context, chapter, limit int) ([]domain.Verse, error) {
	if limit <= 0 || limit > maxFetch {
		limit = maxFetch
	}
	query := fmt.Sprintf("@chapter:[%d %d]", chapter, chapter)
	return r.search(ctx, query, 0, limit)
}

// ByNumbers resolves a set of verse numbers in one round-trip, skipping
// numbers with no record.
func (r *Repo) ByNumbers(ctx context.Context, verseNumbers []string) ([]domain.Verse, error) {
	if len(verseNumbers) == 0 {
		return nil, nil
	}

	keys := make([]string, len(verseNumbers))
	for i, n := range verseNumbers {
		keys[i] = r.Key(n)
	}

	raws, err := r.store.JSONMGet(ctx, keys, "$")
	if err != nil {
		return nil, fmt.Errorf("json.mget verses: %w", err)
	}

	verses := make([]domain.Verse, 0, len(raws))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		doc, err := parseJSONDoc(raw)
		if err != nil {
			continue
		}
		verses = append(verses, doc.toDomain(keys[i]))
	}
	return verses, nil
}

// Chapters returns the chapter catalogue, ascending.
func (r *Repo) Chapters(ctx context.Context) ([]int, error) {
	raw, err := r.store.JSONGet(ctx, r.chaptersKey, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("json.get %s: %w", r.chaptersKey, err)
	}

	var wrapped [][]int
	if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped) == 0 {
		var chapters []int
		if err := json.Unmarshal(raw, &chapters); err != nil {
			return nil, fmt.Errorf("parse chapter catalogue: %w", err)
		}
		sort.Ints(chapters)
		return chapters, nil
	}

	chapters := wrapped[0]
	sort.Ints(chapters)
	return chapters, nil
}

// Random returns one uniformly sampled verse: total count, then a single
// fetch at a random offset. Two round-trips, but the corpus is small and
// FT.SEARCH has no sampling primitive.
func (r *Repo) Random(ctx context.Context) (domain.Verse, error) {
	total, err := r.store.SearchCount(ctx, r.indexName, "*")
	if err != nil {
		return domain.Verse{}, fmt.Errorf("search count: %w", err)
	}
	if total == 0 {
		return domain.Verse{}, domain.ErrNotFound
	}

	verses, err := r.search(ctx, "*", rand.IntN(total), 1)
	if err != nil {
		return domain.Verse{}, err
	}
	if len(verses) == 0 {
		return domain.Verse{}, domain.ErrNotFound
	}
	return verses[0], nil
}

// Count returns the number of verse documents.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName, "*")
	if err != nil {
		return 0, fmt.Errorf("search count: %w", err)
	}
	return n, nil
}

// SearchKNN returns the k nearest verses to the query vector with
// similarity scores.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, k int) ([]domain.ScoredVerse, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	scored := make([]domain.ScoredVerse, 0, len(res.Entries))
	for _, entry := range res.Entries {
		raw, ok := entry.Fields["$"]
		if !ok {
			continue
		}
		doc, err := parseJSONDoc([]byte(raw))
		if err != nil {
			continue
		}
		scored = append(scored, domain.ScoredVerse{
			Verse: doc.toDomain(entry.Key),
			Score: entry.Score,
		})
	}
	return scored, nil
}

// Upsert writes a verse document, preserving no previous state. embedding
// may be nil; the annotation job attaches it later.
func (r *Repo) Upsert(ctx context.Context, v *domain.Verse, embedding []float32) error {
	data, err := json.Marshal(docFromDomain(v, embedding))
	if err != nil {
		return fmt.Errorf("marshal verse: %w", err)
	}
	key := r.Key(v.VerseNumber)
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return fmt.Errorf("json.set %s: %w", key, err)
	}
	return nil
}

// SetChapters writes the chapter catalogue.
func (r *Repo) SetChapters(ctx context.Context, chapters []int) error {
	sort.Ints(chapters)
	data, err := json.Marshal(chapters)
	if err != nil {
		return fmt.Errorf("marshal chapters: %w", err)
	}
	if err := r.store.JSONSet(ctx, r.chaptersKey, "$", data); err != nil {
		return fmt.Errorf("json.set %s: %w", r.chaptersKey, err)
	}
	return nil
}

// MissingEmbeddings returns verses that have no embedding attached yet.
func (r *Repo) MissingEmbeddings(ctx context.Context) ([]domain.Verse, error) {
	res, err := r.store.SearchList(ctx, r.indexName, "*", 0, maxFetch, []string{"$"})
	if err != nil {
		return nil, fmt.Errorf("search list: %w", err)
	}

	var missing []domain.Verse
	for _, entry := range res.Entries {
		raw, ok := entry.Fields["$"]
		if !ok {
			continue
		}
		doc, err := parseJSONDoc([]byte(raw))
		if err != nil {
			continue
		}
		if len(doc.Embedding) == 0 {
			missing = append(missing, doc.toDomain(entry.Key))
		}
	}
	return missing, nil
}

// SetEmbedding attaches a vector to an existing verse document.
func (r *Repo) SetEmbedding(ctx context.Context, verseNumber string, vector []float32) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}
	key := r.Key(verseNumber)
	if err := r.store.JSONSet(ctx, key, "$.embedding", data); err != nil {
		return fmt.Errorf("json.set %s embedding: %w", key, err)
	}
	return nil
}

// EnsureIndex creates the FT index if it does not exist.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName)
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:        r.indexName,
		StorageType: db.StorageJSON,
		Prefixes:    []string{r.versePrefix},
		Fields: []db.IndexField{
			{Name: "$.chapter", Alias: "chapter", Type: db.IndexFieldNumeric},
			{Name: "$.verse_number", Alias: "verse_number", Type: db.IndexFieldTag},
			{Name: "$.tags[*]", Alias: "tags", Type: db.IndexFieldTag},
			{
				Name:           "$.embedding",
				Alias:          "embedding",
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorHNSW,
				VectorDim:      r.vectorDim,
				VectorDistance: db.DistanceCosine,
			},
		},
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func (r *Repo) search(ctx context.Context, query string, offset, limit int) ([]domain.Verse, error) {
	res, err := r.store.SearchList(ctx, r.indexName, query, offset, limit, []string{"$"})
	if err != nil {
		return nil, fmt.Errorf("search list: %w", err)
	}

	verses := make([]domain.Verse, 0, len(res.Entries))
	for _, entry := range res.Entries {
		raw, ok := entry.Fields["$"]
		if !ok {
			continue
		}
		doc, err := parseJSONDoc([]byte(raw))
		if err != nil {
			continue
		}
		verses = append(verses, doc.toDomain(entry.Key))
	}
	return verses, nil
}
