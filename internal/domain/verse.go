package domain

// Verse is one unit of the curated corpus. The ID field carries the store's
// key converted to a plain string at the repository boundary; no raw store
// handle type survives past that point.
type Verse struct {
	ID              string   `json:"id"`
	Chapter         int      `json:"chapter"`
	ChapterTitle    string   `json:"chapter_title"`
	VerseNumber     string   `json:"verse_number"`
	Sanskrit        string   `json:"sanskrit"`
	Transliteration string   `json:"transliteration"`
	English         string   `json:"english"`
	Commentary      string   `json:"commentary"`
	Tags            []string `json:"tags"`
	AudioURL        string   `json:"audio_url,omitempty"`
}

// ScoredVerse is a verse with a similarity score attached by vector search.
type ScoredVerse struct {
	Verse
	Score float64 `json:"score"`
}

// TagMapping associates a tag label with the verse numbers carrying it.
// A mapping with no verse numbers is meaningless and is never surfaced.
type TagMapping struct {
	Name   string   `json:"name"`
	Verses []string `json:"verses"`
}

// EmbeddingText is the text an embedding is derived from: the verse fields
// joined the same way for documents and for the annotation job, so stored
// vectors and query vectors live in the same space.
func (v *Verse) EmbeddingText() string {
	return v.Sanskrit + "\n" + v.Transliteration + "\n" + v.English + "\n" + v.Commentary
}
