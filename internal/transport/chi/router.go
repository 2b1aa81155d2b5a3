package chi

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes mounts all handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.Welcome)

	r.Route("/verses", func(r chi.Router) {
		r.Get("/", s.ListVerses)
		r.Get("/random", s.RandomVerse)
		r.Get("/chapters", s.ListChapters)
		r.Get("/chapter/{chapter}", s.VersesByChapter)
		r.Get("/verse_number/{verseNumber}", s.VerseByNumber)
	})

	r.Route("/tags", func(r chi.Router) {
		r.Get("/", s.ListTags)
		r.Get("/tags/{tag}", s.VersesByTag)
	})

	r.Post("/rag/query", s.RagQuery)
	r.Post("/login", s.Login)

	r.Get("/health", s.Health)
	r.Get("/ready", s.Ready)
	r.Method("GET", "/metrics", promhttp.Handler())
}
