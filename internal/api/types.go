package api

// Source is one transcript chunk backing an answer. It is supplied
// entirely by the server and never mutated client-side.
type Source struct {
	ID           int      `json:"id,omitempty"`
	EpisodeGuest string   `json:"episode_guest"`
	EpisodeTitle string   `json:"episode_title"`
	ChunkType    string   `json:"chunk_type"`
	Text         string   `json:"text"`
	Speaker      string   `json:"speaker,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	Similarity   float64  `json:"similarity"`
}

// SearchResponse mirrors the JSON returned by POST /search-with-answer.
type SearchResponse struct {
	Query              string   `json:"query"`
	Answer             string   `json:"answer"`
	Sources            []Source `json:"sources"`
	TotalResults       int      `json:"total_results"`
	ConversationLength int      `json:"conversation_length"`
	IsFollowup         bool     `json:"is_followup"`
	QueriesRemaining   int      `json:"queries_remaining"`
}

// GuestPerspective is one side of a comparison result.
type GuestPerspective struct {
	Name    string   `json:"name"`
	Summary string   `json:"summary"`
	Sources []Source `json:"sources"`
}

// CompareResponse mirrors the JSON returned by POST /compare.
// QueriesRemaining is a pointer because older server revisions omit it.
type CompareResponse struct {
	Topic            string           `json:"topic"`
	Guest1           GuestPerspective `json:"guest1"`
	Guest2           GuestPerspective `json:"guest2"`
	Comparison       string           `json:"comparison"`
	QueriesRemaining *int             `json:"queries_remaining,omitempty"`
}

// Guest is one indexed podcast guest.
type Guest struct {
	Name       string `json:"name"`
	ChunkCount int    `json:"chunk_count,omitempty"`
}

// Guide is a precomputed, server-authored action guide for one episode,
// as returned by the guide list endpoint.
type Guide struct {
	ID          int      `json:"id"`
	Guest       string   `json:"guest"`
	Title       string   `json:"title"`
	TLDR        string   `json:"tldr"`
	Views       int      `json:"views"`
	ActionCount int      `json:"action_count"`
	Frameworks  []string `json:"frameworks"`
}

// GuideDetail is the full guide record returned by GET /episode-guides/{id}.
type GuideDetail struct {
	Guide
	ActionItems []string `json:"action_items"`
	WhenApplies []string `json:"when_applies"`
	ListenIf    string   `json:"listen_if"`
	SkipIf      string   `json:"skip_if"`
}

// TrendingItem is one aggregated recent query with its occurrence count.
type TrendingItem struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// Stats mirrors GET /stats.
type Stats struct {
	TotalChunks  int `json:"total_chunks"`
	UniqueGuests int `json:"unique_guests"`
}

type guestsResponse struct {
	Guests []Guest `json:"guests"`
}

type guidesResponse struct {
	Guides []Guide `json:"guides"`
}

type trendingResponse struct {
	Trending []TrendingItem `json:"trending"`
}
