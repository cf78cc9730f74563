// Package session holds the client-side conversation state machine: the
// transcript, the server-echoed quota counters, and the rules for when a
// new submission is allowed.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/podlens/podlens/internal/api"
)

// MaxConversationLength is the server-enforced cap on messages per
// conversation. Reaching it disables input until an explicit reset.
const MaxConversationLength = 5

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Sources and ConversationLength are
// only set on assistant messages; ConversationLength is the server's
// count at the time the answer was received.
type Message struct {
	Role               Role
	Content            string
	Sources            []api.Source
	ConversationLength int
	At                 time.Time
}

// State is the session's position in the conversation lifecycle.
type State int

const (
	// StateIdle means no messages yet (landing view).
	StateIdle State = iota
	// StateActive means at least one exchange has completed.
	StateActive
	// StateExhausted means the conversation hit MaxConversationLength;
	// input is disabled until a new conversation starts.
	StateExhausted
	// StateRateLimited means the server returned 429; terminal until the
	// daily quota resets server-side.
	StateRateLimited
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateExhausted:
		return "exhausted"
	case StateRateLimited:
		return "rate-limited"
	default:
		return "unknown"
	}
}

// Local precondition failures. None of these issue a network call.
var (
	ErrEmptyQuery       = errors.New("query is empty")
	ErrConversationFull = errors.New("conversation limit reached, start a new conversation")
	ErrNoQueries        = errors.New("daily query limit reached")
	ErrNoConversations  = errors.New("no conversations remaining today")
	ErrBusy             = errors.New("a request is already in flight")
	ErrMissingGuests    = errors.New("both guest names are required")
	ErrMissingTopic     = errors.New("a topic is required")
)

// Lens is the slice of the API the session drives.
type Lens interface {
	SearchWithAnswer(ctx context.Context, query string, limit int) (*api.SearchResponse, error)
	Compare(ctx context.Context, guest1, guest2, topic string, limit int) (*api.CompareResponse, error)
	ClearConversation(ctx context.Context) error
}

// Snapshot is an immutable copy of one conversation, taken before a reset
// so callers can archive it.
type Snapshot struct {
	ID        uuid.UUID
	StartedAt time.Time
	Messages  []Message
}

// Session owns all mutable client-side conversation state. Counters are
// server-authoritative: the session only displays the last value the
// server echoed, never a locally computed one, with the single exception
// of forcing queriesRemaining to 0 on a 429.
type Session struct {
	mu   sync.Mutex
	lens Lens

	sourceLimit int

	id                     uuid.UUID
	startedAt              time.Time
	state                  State
	messages               []Message
	conversationLength     int
	queriesRemaining       int
	conversationsRemaining int
	inFlight               bool
	lastError              string
}

// New creates a Session with the configured per-day query quota and
// per-session conversation quota. queries is replaced by the server's
// echoed value after the first response; conversations is decremented
// locally on each successful reset.
func New(lens Lens, queries, conversations int) *Session {
	return &Session{
		lens:                   lens,
		sourceLimit:            api.DefaultLimit,
		id:                     uuid.New(),
		state:                  StateIdle,
		queriesRemaining:       queries,
		conversationsRemaining: conversations,
	}
}

// SetSourceLimit overrides how many sources are requested per query.
func (s *Session) SetSourceLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.sourceLimit = n
	}
}

// Submit sends one query. The user message is appended to the transcript
// before the request is issued and removed again on any failure, so the
// transcript never contains a user message without a matching answer or
// removal.
func (s *Session) Submit(ctx context.Context, query string) (*api.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	var resp *api.SearchResponse
	err := s.run(ctx, command{
		pre: func() error {
			switch {
			case s.state == StateRateLimited || s.queriesRemaining <= 0:
				return ErrNoQueries
			case s.conversationLength >= MaxConversationLength:
				return ErrConversationFull
			}
			return nil
		},
		optimistic: func() {
			if len(s.messages) == 0 {
				s.startedAt = time.Now()
			}
			s.messages = append(s.messages, Message{Role: RoleUser, Content: query, At: time.Now()})
		},
		call: func(ctx context.Context) error {
			var err error
			resp, err = s.lens.SearchWithAnswer(ctx, query, s.sourceLimit)
			return err
		},
		commit: func() {
			// A response that arrives after a reset is still applied; the
			// conversation identity is not checked.
			s.messages = append(s.messages, Message{
				Role:               RoleAssistant,
				Content:            resp.Answer,
				Sources:            resp.Sources,
				ConversationLength: resp.ConversationLength,
				At:                 time.Now(),
			})
			s.conversationLength = resp.ConversationLength
			s.queriesRemaining = resp.QueriesRemaining
			if s.conversationLength >= MaxConversationLength {
				s.state = StateExhausted
			} else {
				s.state = StateActive
			}
		},
		rollback: func() {
			s.removeLastUserMessage()
		},
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CompareGuests asks the server to contrast two guests on a topic. The
// result is not part of the transcript; only the query counter is touched
// when the server echoes one.
func (s *Session) CompareGuests(ctx context.Context, guest1, guest2, topic string) (*api.CompareResponse, error) {
	guest1 = strings.TrimSpace(guest1)
	guest2 = strings.TrimSpace(guest2)
	topic = strings.TrimSpace(topic)
	if guest1 == "" || guest2 == "" {
		return nil, ErrMissingGuests
	}
	if topic == "" {
		return nil, ErrMissingTopic
	}

	var resp *api.CompareResponse
	err := s.run(ctx, command{
		pre: func() error {
			if s.state == StateRateLimited || s.queriesRemaining <= 0 {
				return ErrNoQueries
			}
			return nil
		},
		call: func(ctx context.Context) error {
			var err error
			resp, err = s.lens.Compare(ctx, guest1, guest2, topic, s.sourceLimit)
			return err
		},
		commit: func() {
			if resp.QueriesRemaining != nil {
				s.queriesRemaining = *resp.QueriesRemaining
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// NewConversation resets the server-side conversation and, on success,
// clears the transcript and starts a fresh conversation identity. On
// failure the transcript is left untouched.
func (s *Session) NewConversation(ctx context.Context) error {
	return s.run(ctx, command{
		pre: func() error {
			if s.conversationsRemaining <= 0 {
				return ErrNoConversations
			}
			return nil
		},
		call: func(ctx context.Context) error {
			return s.lens.ClearConversation(ctx)
		},
		commit: func() {
			s.messages = nil
			s.conversationLength = 0
			s.conversationsRemaining--
			s.id = uuid.New()
			s.startedAt = time.Time{}
			// Rate limiting survives a reset: the daily quota is spent.
			if s.state != StateRateLimited {
				s.state = StateIdle
			}
		},
	})
}

// removeLastUserMessage rolls back the optimistic append. Single-flight
// submission guarantees the trailing message is ours.
func (s *Session) removeLastUserMessage() {
	if n := len(s.messages); n > 0 && s.messages[n-1].Role == RoleUser {
		s.messages = s.messages[:n-1]
	}
}

// CanSubmit reports whether a new query would pass all local preconditions.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.inFlight &&
		s.state != StateRateLimited &&
		s.queriesRemaining > 0 &&
		s.conversationLength < MaxConversationLength
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// ConversationLength returns the server-reported message count.
func (s *Session) ConversationLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationLength
}

// QueriesRemaining returns the last server-echoed daily quota.
func (s *Session) QueriesRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queriesRemaining
}

// ConversationsRemaining returns the locally tracked conversation quota.
func (s *Session) ConversationsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationsRemaining
}

// LastError returns the user-visible message for the most recent failure,
// or "" if the last operation succeeded.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// ConversationID identifies the current conversation.
func (s *Session) ConversationID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Snapshot copies the current conversation for archiving.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	return Snapshot{ID: s.id, StartedAt: s.startedAt, Messages: msgs}
}
