// Package stub is an in-process implementation of the Lens API contract,
// used by `podlens demo` and the integration tests. It serves a small
// canned corpus with template answer synthesis and enforces the same
// quota rules as the production backend.
package stub

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/podlens/podlens/internal/api"
)

const (
	// DefaultQueryLimit matches the production daily quota.
	DefaultQueryLimit = 10
	// maxConversation matches the server-side cap on messages per conversation.
	maxConversation = 5
)

type exchange struct {
	query  string
	answer string
}

// Server holds the stub's in-memory state: the corpus, per-client
// conversation sessions, and the daily rate limiter.
type Server struct {
	limiter     *Limiter
	verifyToken string
	chunks      []api.Source
	guides      []api.GuideDetail
	trending    []api.TrendingItem

	mu       sync.Mutex
	sessions map[string][]exchange
}

// Option configures a stub Server.
type Option func(*Server)

// WithQueryLimit overrides the daily query quota.
func WithQueryLimit(n int) Option {
	return func(s *Server) { s.limiter = NewLimiter(n) }
}

// WithVerificationToken makes every mutating endpoint require the given
// token in the verification header.
func WithVerificationToken(token string) Option {
	return func(s *Server) { s.verifyToken = token }
}

// New creates a stub Server with the default corpus.
func New(opts ...Option) *Server {
	s := &Server{
		limiter:  NewLimiter(DefaultQueryLimit),
		chunks:   defaultChunks(),
		guides:   defaultGuides(),
		trending: defaultTrending(),
		sessions: make(map[string][]exchange),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler implementing the full contract.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"message": "Lens API (stub)", "status": "healthy"})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "healthy", "database": "in-memory"})
	})
	r.Get("/stats", s.handleStats)
	r.Get("/guests", s.handleGuests)
	r.Get("/episode-guides", s.handleGuides)
	r.Get("/episode-guides/{id}", s.handleGuideDetail)
	r.Get("/trending-questions", s.handleTrending)

	r.Post("/search-with-answer", s.handleSearch)
	r.Post("/compare", s.handleCompare)
	r.Post("/clear-conversation", s.handleClear)

	return r
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !s.verified(w, r) {
		return
	}

	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		detail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key := clientKey(r)
	allowed, remaining := s.limiter.Check(key)
	if !allowed {
		detail(w, http.StatusTooManyRequests, "Daily query limit reached")
		return
	}

	if len(strings.TrimSpace(req.Query)) < 3 {
		detail(w, http.StatusBadRequest, "Query must be at least 3 characters")
		return
	}

	s.mu.Lock()
	session := s.sessions[key]
	if len(session) >= maxConversation {
		s.mu.Unlock()
		detail(w, http.StatusBadRequest, fmt.Sprintf("Conversation limit reached (%d messages)", maxConversation))
		return
	}
	s.mu.Unlock()

	limit := req.Limit
	if limit <= 0 {
		limit = api.DefaultLimit
	}
	sources := s.rank(req.Query, "", limit)
	answer := synthesizeAnswer(req.Query, sources)

	s.mu.Lock()
	session = append(session, exchange{query: req.Query, answer: answer})
	if len(session) > maxConversation {
		session = session[len(session)-maxConversation:]
	}
	s.sessions[key] = session
	length := len(session)
	s.mu.Unlock()

	writeJSON(w, api.SearchResponse{
		Query:              req.Query,
		Answer:             answer,
		Sources:            sources,
		TotalResults:       len(sources),
		ConversationLength: length,
		IsFollowup:         length > 1,
		QueriesRemaining:   remaining,
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if !s.verified(w, r) {
		return
	}

	var req struct {
		Guest1 string `json:"guest1"`
		Guest2 string `json:"guest2"`
		Topic  string `json:"topic"`
		Limit  int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		detail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	allowed, remaining := s.limiter.Check(clientKey(r))
	if !allowed {
		detail(w, http.StatusTooManyRequests, "Daily query limit reached")
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 3
	}

	perspectives := make([]api.GuestPerspective, 2)
	for i, guest := range []string{req.Guest1, req.Guest2} {
		sources := s.rank(req.Topic, guest, limit)
		if len(sources) == 0 {
			detail(w, http.StatusNotFound, "No content found for guest: "+guest)
			return
		}
		perspectives[i] = api.GuestPerspective{
			Name:    sources[0].EpisodeGuest,
			Summary: sources[0].Text,
			Sources: sources,
		}
	}

	comparison := fmt.Sprintf(
		"On %s, %s emphasizes: %s %s takes a different angle: %s",
		req.Topic,
		perspectives[0].Name, perspectives[0].Summary,
		perspectives[1].Name, perspectives[1].Summary,
	)

	writeJSON(w, api.CompareResponse{
		Topic:            req.Topic,
		Guest1:           perspectives[0],
		Guest2:           perspectives[1],
		Comparison:       comparison,
		QueriesRemaining: &remaining,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if !s.verified(w, r) {
		return
	}

	s.mu.Lock()
	s.sessions[clientKey(r)] = nil
	s.mu.Unlock()

	writeJSON(w, map[string]string{"status": "cleared"})
}

func (s *Server) handleGuests(w http.ResponseWriter, _ *http.Request) {
	counts := make(map[string]int)
	for _, c := range s.chunks {
		counts[c.EpisodeGuest]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	guests := make([]api.Guest, len(names))
	for i, name := range names {
		guests[i] = api.Guest{Name: name, ChunkCount: counts[name]}
	}
	writeJSON(w, map[string]any{"guests": guests})
}

func (s *Server) handleGuides(w http.ResponseWriter, r *http.Request) {
	guides := make([]api.Guide, len(s.guides))
	for i, g := range s.guides {
		guides[i] = g.Guide
	}

	switch r.URL.Query().Get("sort_by") {
	case "actions":
		sort.Slice(guides, func(i, j int) bool { return guides[i].ActionCount > guides[j].ActionCount })
	default:
		sort.Slice(guides, func(i, j int) bool { return guides[i].Views > guides[j].Views })
	}

	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit < len(guides) {
		guides = guides[:limit]
	}
	writeJSON(w, map[string]any{"guides": guides})
}

func (s *Server) handleGuideDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		detail(w, http.StatusBadRequest, "invalid guide id")
		return
	}
	for _, g := range s.guides {
		if g.ID == id {
			writeJSON(w, g)
			return
		}
	}
	detail(w, http.StatusNotFound, "Guide not found")
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	items := s.trending
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	writeJSON(w, map[string]any{"trending": items})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	guests := make(map[string]struct{})
	for _, c := range s.chunks {
		guests[c.EpisodeGuest] = struct{}{}
	}
	writeJSON(w, api.Stats{TotalChunks: len(s.chunks), UniqueGuests: len(guests)})
}

// verified enforces the verification token on mutating endpoints when one
// is configured, writing a 403 and returning false on mismatch.
func (s *Server) verified(w http.ResponseWriter, r *http.Request) bool {
	if s.verifyToken == "" {
		return true
	}
	if r.Header.Get(api.VerificationHeader) != s.verifyToken {
		detail(w, http.StatusForbidden, "verification check failed")
		return false
	}
	return true
}

// rank scores the corpus by naive term overlap with the query, optionally
// filtered by guest, and returns the top matches.
func (s *Server) rank(query, guest string, limit int) []api.Source {
	terms := strings.Fields(strings.ToLower(query))

	type scored struct {
		src   api.Source
		score float64
	}
	var hits []scored
	for _, c := range s.chunks {
		if guest != "" && !strings.Contains(strings.ToLower(c.EpisodeGuest), strings.ToLower(guest)) {
			continue
		}
		score := c.Similarity
		haystack := strings.ToLower(c.Text + " " + strings.Join(c.Keywords, " ") + " " + c.EpisodeGuest)
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				score += 0.05
			}
		}
		hits = append(hits, scored{src: c, score: score})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]api.Source, len(hits))
	for i, h := range hits {
		out[i] = h.src
		out[i].Similarity = h.score
		if out[i].Similarity > 1 {
			out[i].Similarity = 0.99
		}
	}
	return out
}

func synthesizeAnswer(query string, sources []api.Source) string {
	if len(sources) == 0 {
		return fmt.Sprintf("No relevant episode content found for %q.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Drawing on %d episode excerpt(s):\n\n", len(sources))
	for _, src := range sources {
		fmt.Fprintf(&b, "%s [%s, Episode: %s]\n", src.Text, src.EpisodeGuest, src.EpisodeTitle)
	}
	return b.String()
}

// detail writes a FastAPI-style error envelope.
func detail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
