package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/kailas-cloud/verseapi/internal/domain"
	tagrepo "github.com/kailas-cloud/verseapi/internal/repository/tag"
	verserepo "github.com/kailas-cloud/verseapi/internal/repository/verse"
)

// seed loads a JSON corpus file (an array of verses), upserts every verse,
// writes the chapter catalogue, and builds the tag mapping from the verses'
// own tag lists.
func seed(ctx context.Context, path string, verses *verserepo.Repo, tags *tagrepo.Repo) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read corpus: %w", err)
	}

	var corpus []domain.Verse
	if err := json.Unmarshal(data, &corpus); err != nil {
		return fmt.Errorf("parse corpus: %w", err)
	}
	if len(corpus) == 0 {
		return fmt.Errorf("corpus is empty")
	}

	if err := verses.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	chapterSet := make(map[int]struct{})
	tagMap := make(map[string][]string)

	for i := range corpus {
		v := &corpus[i]
		if v.VerseNumber == "" {
			return fmt.Errorf("verse at position %d has no verse_number", i)
		}
		if err := verses.Upsert(ctx, v, nil); err != nil {
			return fmt.Errorf("upsert verse %s: %w", v.VerseNumber, err)
		}
		chapterSet[v.Chapter] = struct{}{}
		for _, t := range v.Tags {
			tagMap[t] = append(tagMap[t], v.VerseNumber)
		}
	}

	chapters := make([]int, 0, len(chapterSet))
	for c := range chapterSet {
		chapters = append(chapters, c)
	}
	sort.Ints(chapters)
	if err := verses.SetChapters(ctx, chapters); err != nil {
		return fmt.Errorf("set chapters: %w", err)
	}

	if err := tags.Set(ctx, tagMap); err != nil {
		return fmt.Errorf("set tag mapping: %w", err)
	}

	return nil
}
