// Package chi is the HTTP surface: thin handlers composing the principal
// resolver, the access policy carried inside the use-case services, and the
// read-through cache. Handlers never see an unclassified error — everything
// resolves through the sentinel handler chain.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/verseapi/internal/auth"
	"github.com/kailas-cloud/verseapi/internal/domain"
	"github.com/kailas-cloud/verseapi/internal/logger"
	healthuc "github.com/kailas-cloud/verseapi/internal/usecase/health"
	raguc "github.com/kailas-cloud/verseapi/internal/usecase/rag"
	taguc "github.com/kailas-cloud/verseapi/internal/usecase/tag"
	verseuc "github.com/kailas-cloud/verseapi/internal/usecase/verse"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the route handlers.
type Server struct {
	verses        *verseuc.Service
	tags          *taguc.Service
	rag           *raguc.Service
	health        *healthuc.Service
	resolver      *auth.Resolver
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	verses *verseuc.Service,
	tags *taguc.Service,
	rag *raguc.Service,
	health *healthuc.Service,
	resolver *auth.Resolver,
	logger *zap.Logger,
) *Server {
	s := &Server{
		verses:   verses,
		tags:     tags,
		rag:      rag,
		health:   health,
		resolver: resolver,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrLoginRequired, http.StatusUnauthorized, "login_required"),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "not_found"),
		sentinelHandler(domain.ErrBadRequest, http.StatusBadRequest, "bad_request"),
	}
	return s
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Welcome handles GET /.
func (s *Server) Welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the Wisdom of Ashtavakra API",
	})
}

// ListVerses handles GET /verses/.
func (s *Server) ListVerses(w http.ResponseWriter, r *http.Request) {
	offset := intQuery(r, "offset", 0)
	limit := intQuery(r, "limit", 0)

	verses, err := s.verses.List(r.Context(), roleOf(r), offset, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verses)
}

// RandomVerse handles GET /verses/random.
func (s *Server) RandomVerse(w http.ResponseWriter, r *http.Request) {
	v, err := s.verses.Random(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ListChapters handles GET /verses/chapters.
func (s *Server) ListChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := s.verses.Chapters(r.Context(), roleOf(r))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chapters)
}

// VersesByChapter handles GET /verses/chapter/{chapter}.
func (s *Server) VersesByChapter(w http.ResponseWriter, r *http.Request) {
	chapter, err := strconv.Atoi(chi.URLParam(r, "chapter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid chapter number")
		return
	}
	limit := intQuery(r, "limit", 0)

	verses, err := s.verses.ByChapter(r.Context(), roleOf(r), chapter, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verses)
}

// VerseByNumber handles GET /verses/verse_number/{verseNumber}.
func (s *Server) VerseByNumber(w http.ResponseWriter, r *http.Request) {
	verseNumber := chi.URLParam(r, "verseNumber")
	if verseNumber == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "verse number is required")
		return
	}

	lookup, err := s.verses.ByNumber(r.Context(), roleOf(r), verseNumber)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if lookup.Restricted {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "This verse is not available for guest users. Please log in.",
		})
		return
	}
	writeJSON(w, http.StatusOK, lookup.Verse)
}

// ListTags handles GET /tags/.
func (s *Server) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tags.Catalogue(r.Context(), roleOf(r))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// VersesByTag handles GET /tags/tags/{tag}.
func (s *Server) VersesByTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	limit := intQuery(r, "limit", 0)

	verses, err := s.tags.VersesByTag(r.Context(), roleOf(r), tag, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verses)
}

// ragQueryRequest is the POST /rag/query body.
type ragQueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// RagQuery handles POST /rag/query.
func (s *Server) RagQuery(w http.ResponseWriter, r *http.Request) {
	var req ragQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	results, err := s.rag.Query(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// loginRequest is the POST /login body. There is no password verification:
// the endpoint mirrors the demo login of the original service and is a known
// security gap, not an oversight to fix silently.
type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Login handles POST /login.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "username is required")
		return
	}

	token, err := s.resolver.Issue("", req.Email, req.Username)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// Health handles GET /health — liveness, always ok.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /ready — readiness, checks store and embedding provider.
func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// --- Error handling ---

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err, err.Error()) {
			return
		}
	}

	// Unclassified: upstream failure. Log the cause, leak nothing.
	logger.FromContext(r.Context()).Error("request failed", zap.Error(err))
	if errors.Is(err, domain.ErrSearchFailed) {
		writeError(w, http.StatusInternalServerError, "search_failed", "search failed")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// --- Helpers ---

func roleOf(r *http.Request) domain.Role {
	return domain.RoleOf(auth.PrincipalFromContext(r.Context()))
}

func intQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Code: code, Message: message})
}
