package verse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/verseapi/internal/domain"
)

// verseDoc is the stored JSON shape. The embedding lives alongside the text
// fields and is attached out-of-band by the annotation job; it never leaves
// the repository.
type verseDoc struct {
	Chapter         int       `json:"chapter"`
	ChapterTitle    string    `json:"chapter_title"`
	VerseNumber     string    `json:"verse_number"`
	Sanskrit        string    `json:"sanskrit"`
	Transliteration string    `json:"transliteration"`
	English         string    `json:"english"`
	Commentary      string    `json:"commentary"`
	Tags            []string  `json:"tags"`
	AudioURL        string    `json:"audio_url,omitempty"`
	Embedding       []float32 `json:"embedding,omitempty"`
}

func (d *verseDoc) toDomain(key string) domain.Verse {
	return domain.Verse{
		ID:              key,
		Chapter:         d.Chapter,
		ChapterTitle:    d.ChapterTitle,
		VerseNumber:     d.VerseNumber,
		Sanskrit:        d.Sanskrit,
		Transliteration: d.Transliteration,
		English:         d.English,
		Commentary:      d.Commentary,
		Tags:            d.Tags,
		AudioURL:        d.AudioURL,
	}
}

func docFromDomain(v *domain.Verse, embedding []float32) *verseDoc {
	return &verseDoc{
		Chapter:         v.Chapter,
		ChapterTitle:    v.ChapterTitle,
		VerseNumber:     v.VerseNumber,
		Sanskrit:        v.Sanskrit,
		Transliteration: v.Transliteration,
		English:         v.English,
		Commentary:      v.Commentary,
		Tags:            v.Tags,
		AudioURL:        v.AudioURL,
		Embedding:       embedding,
	}
}

// parseJSONDoc parses a JSON.GET / FT.SEARCH "$" payload. JSON.GET with a
// "$" path wraps the document in a one-element array.
func parseJSONDoc(raw []byte) (*verseDoc, error) {
	trimmed := strings.TrimSpace(string(raw))

	if strings.HasPrefix(trimmed, "[") {
		var docs []verseDoc
		if err := json.Unmarshal([]byte(trimmed), &docs); err != nil {
			return nil, fmt.Errorf("parse verse document: %w", err)
		}
		if len(docs) == 0 {
			return nil, fmt.Errorf("empty verse document")
		}
		return &docs[0], nil
	}

	var doc verseDoc
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, fmt.Errorf("parse verse document: %w", err)
	}
	return &doc, nil
}
