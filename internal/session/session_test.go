package session

import (
	"context"
	"errors"
	"testing"

	"github.com/podlens/podlens/internal/api"
)

type fakeLens struct {
	searchFn  func(query string, limit int) (*api.SearchResponse, error)
	compareFn func(guest1, guest2, topic string, limit int) (*api.CompareResponse, error)
	clearErr  error

	searchCalls  int
	compareCalls int
	clearCalls   int
}

func (f *fakeLens) SearchWithAnswer(_ context.Context, query string, limit int) (*api.SearchResponse, error) {
	f.searchCalls++
	return f.searchFn(query, limit)
}

func (f *fakeLens) Compare(_ context.Context, guest1, guest2, topic string, limit int) (*api.CompareResponse, error) {
	f.compareCalls++
	return f.compareFn(guest1, guest2, topic, limit)
}

func (f *fakeLens) ClearConversation(_ context.Context) error {
	f.clearCalls++
	return f.clearErr
}

func okSearch(length, remaining int) func(string, int) (*api.SearchResponse, error) {
	return func(query string, _ int) (*api.SearchResponse, error) {
		return &api.SearchResponse{
			Query:              query,
			Answer:             "answer to " + query,
			Sources:            []api.Source{{EpisodeGuest: "Elena Verna", EpisodeTitle: "Growth", Similarity: 0.8}},
			ConversationLength: length,
			QueriesRemaining:   remaining,
		}, nil
	}
}

var ctx = context.Background()

func TestSubmit_EmptyQuery_NoCall(t *testing.T) {
	lens := &fakeLens{}
	s := New(lens, 10, 3)

	for _, q := range []string{"", "   ", "\t\n"} {
		if _, err := s.Submit(ctx, q); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Submit(%q) = %v, want ErrEmptyQuery", q, err)
		}
	}

	if lens.searchCalls != 0 {
		t.Errorf("search called %d times, want 0", lens.searchCalls)
	}
	if got := len(s.Messages()); got != 0 {
		t.Errorf("transcript length = %d, want 0", got)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

func TestSubmit_Success_TranscriptGrowsByTwo(t *testing.T) {
	lens := &fakeLens{searchFn: okSearch(1, 9)}
	s := New(lens, 10, 3)

	resp, err := s.Submit(ctx, "What did Elena Verna say about pricing?")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
		t.Errorf("roles = %v, %v", msgs[0].Role, msgs[1].Role)
	}
	if len(msgs[1].Sources) < 1 {
		t.Error("assistant message has no sources")
	}
	if s.ConversationLength() != resp.ConversationLength {
		t.Errorf("conversation length = %d, want server value %d", s.ConversationLength(), resp.ConversationLength)
	}
	if s.QueriesRemaining() != 9 {
		t.Errorf("queries remaining = %d, want server value 9", s.QueriesRemaining())
	}
	if s.State() != StateActive {
		t.Errorf("state = %v, want active", s.State())
	}
	if s.LastError() != "" {
		t.Errorf("last error = %q, want empty", s.LastError())
	}
}

func TestSubmit_Failure_RollsBack(t *testing.T) {
	lens := &fakeLens{searchFn: func(string, int) (*api.SearchResponse, error) {
		return nil, &api.APIError{StatusCode: 500, Detail: "embedding failed"}
	}}
	s := New(lens, 10, 3)

	before := len(s.Messages())
	if _, err := s.Submit(ctx, "why"); err == nil {
		t.Fatal("Submit succeeded, want error")
	}

	if got := len(s.Messages()); got != before {
		t.Errorf("transcript length = %d, want pre-submit value %d", got, before)
	}
	if s.LastError() != "embedding failed" {
		t.Errorf("last error = %q, want server detail", s.LastError())
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

func TestSubmit_RateLimited(t *testing.T) {
	lens := &fakeLens{searchFn: func(string, int) (*api.SearchResponse, error) {
		return nil, &api.APIError{StatusCode: 429, Detail: "Daily query limit reached"}
	}}
	s := New(lens, 10, 3)

	if _, err := s.Submit(ctx, "anything"); !api.IsRateLimited(err) {
		t.Fatalf("err = %v, want rate limited", err)
	}

	if s.QueriesRemaining() != 0 {
		t.Errorf("queries remaining = %d, want 0", s.QueriesRemaining())
	}
	if s.State() != StateRateLimited {
		t.Errorf("state = %v, want rate-limited", s.State())
	}
	if got := len(s.Messages()); got != 0 {
		t.Errorf("transcript length = %d, want 0 after rollback", got)
	}

	// Subsequent attempts are blocked locally, no network call.
	calls := lens.searchCalls
	if _, err := s.Submit(ctx, "again"); !errors.Is(err, ErrNoQueries) {
		t.Fatalf("err = %v, want ErrNoQueries", err)
	}
	if lens.searchCalls != calls {
		t.Errorf("search called %d times, want %d", lens.searchCalls, calls)
	}
}

func TestSubmit_ExhaustedAtConversationLimit(t *testing.T) {
	lens := &fakeLens{searchFn: okSearch(MaxConversationLength, 6)}
	s := New(lens, 10, 3)

	if _, err := s.Submit(ctx, "fifth question"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.State() != StateExhausted {
		t.Fatalf("state = %v, want exhausted", s.State())
	}
	if s.CanSubmit() {
		t.Error("CanSubmit() = true at conversation limit")
	}

	calls := lens.searchCalls
	if _, err := s.Submit(ctx, "sixth question"); !errors.Is(err, ErrConversationFull) {
		t.Fatalf("err = %v, want ErrConversationFull", err)
	}
	if lens.searchCalls != calls {
		t.Errorf("search called %d times, want %d", lens.searchCalls, calls)
	}
}

func TestSubmit_BlockedWithoutQueries(t *testing.T) {
	lens := &fakeLens{searchFn: okSearch(1, 9)}
	s := New(lens, 0, 3)

	if _, err := s.Submit(ctx, "anything"); !errors.Is(err, ErrNoQueries) {
		t.Fatalf("err = %v, want ErrNoQueries", err)
	}
	if lens.searchCalls != 0 {
		t.Errorf("search called %d times, want 0", lens.searchCalls)
	}
	if s.CanSubmit() {
		t.Error("CanSubmit() = true with zero queries remaining")
	}
}

func TestSubmit_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	lens := &fakeLens{searchFn: func(query string, _ int) (*api.SearchResponse, error) {
		close(started)
		<-release
		return &api.SearchResponse{Answer: "ok", ConversationLength: 1, QueriesRemaining: 9}, nil
	}}
	s := New(lens, 10, 3)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(ctx, "slow question")
		done <- err
	}()
	<-started

	if _, err := s.Submit(ctx, "concurrent question"); !errors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if got := len(s.Messages()); got != 2 {
		t.Errorf("transcript length = %d, want 2", got)
	}
}

func TestNewConversation(t *testing.T) {
	lens := &fakeLens{searchFn: okSearch(1, 9)}
	s := New(lens, 10, 3)

	if _, err := s.Submit(ctx, "first"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	oldID := s.ConversationID()

	if err := s.NewConversation(ctx); err != nil {
		t.Fatalf("NewConversation: %v", err)
	}

	if lens.clearCalls != 1 {
		t.Errorf("clear called %d times, want 1", lens.clearCalls)
	}
	if got := len(s.Messages()); got != 0 {
		t.Errorf("transcript length = %d, want 0", got)
	}
	if s.ConversationLength() != 0 {
		t.Errorf("conversation length = %d, want 0", s.ConversationLength())
	}
	if s.ConversationsRemaining() != 2 {
		t.Errorf("conversations remaining = %d, want 2", s.ConversationsRemaining())
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
	if s.ConversationID() == oldID {
		t.Error("conversation ID unchanged after reset")
	}
}

func TestNewConversation_FailureLeavesTranscript(t *testing.T) {
	lens := &fakeLens{
		searchFn: okSearch(1, 9),
		clearErr: &api.APIError{StatusCode: 500, Detail: "session store unavailable"},
	}
	s := New(lens, 10, 3)

	if _, err := s.Submit(ctx, "first"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := s.NewConversation(ctx); err == nil {
		t.Fatal("NewConversation succeeded, want error")
	}

	if got := len(s.Messages()); got != 2 {
		t.Errorf("transcript length = %d, want 2 (untouched)", got)
	}
	if s.ConversationsRemaining() != 3 {
		t.Errorf("conversations remaining = %d, want 3", s.ConversationsRemaining())
	}
	if s.LastError() != "session store unavailable" {
		t.Errorf("last error = %q", s.LastError())
	}
}

func TestNewConversation_QuotaExhausted(t *testing.T) {
	lens := &fakeLens{}
	s := New(lens, 10, 0)

	if err := s.NewConversation(ctx); !errors.Is(err, ErrNoConversations) {
		t.Fatalf("err = %v, want ErrNoConversations", err)
	}
	if lens.clearCalls != 0 {
		t.Errorf("clear called %d times, want 0", lens.clearCalls)
	}
}

func TestCompareGuests(t *testing.T) {
	seven := 7
	lens := &fakeLens{compareFn: func(g1, g2, topic string, _ int) (*api.CompareResponse, error) {
		return &api.CompareResponse{
			Topic:            topic,
			Guest1:           api.GuestPerspective{Name: g1, Summary: "founder mode"},
			Guest2:           api.GuestPerspective{Name: g2, Summary: "growth loops"},
			Comparison:       "Both obsess over the customer.",
			QueriesRemaining: &seven,
		}, nil
	}}
	s := New(lens, 10, 3)

	resp, err := s.CompareGuests(ctx, "Brian Chesky", "Elena Verna", "company culture")
	if err != nil {
		t.Fatalf("CompareGuests: %v", err)
	}

	if resp.Guest1.Name == "" || resp.Guest2.Name == "" {
		t.Error("missing named perspectives")
	}
	if resp.Comparison == "" {
		t.Error("missing comparison text")
	}
	if s.QueriesRemaining() != 7 {
		t.Errorf("queries remaining = %d, want server value 7", s.QueriesRemaining())
	}
	if got := len(s.Messages()); got != 0 {
		t.Errorf("transcript length = %d, want 0 (compare is transcript-neutral)", got)
	}
}

func TestCompareGuests_Preconditions(t *testing.T) {
	lens := &fakeLens{}
	s := New(lens, 10, 3)

	if _, err := s.CompareGuests(ctx, "", "Elena Verna", "pricing"); !errors.Is(err, ErrMissingGuests) {
		t.Errorf("err = %v, want ErrMissingGuests", err)
	}
	if _, err := s.CompareGuests(ctx, "Brian Chesky", "Elena Verna", "  "); !errors.Is(err, ErrMissingTopic) {
		t.Errorf("err = %v, want ErrMissingTopic", err)
	}
	if lens.compareCalls != 0 {
		t.Errorf("compare called %d times, want 0", lens.compareCalls)
	}
}

func TestCompareGuests_NoQueriesRemainingInResponse(t *testing.T) {
	lens := &fakeLens{compareFn: func(g1, g2, topic string, _ int) (*api.CompareResponse, error) {
		return &api.CompareResponse{
			Guest1:     api.GuestPerspective{Name: g1},
			Guest2:     api.GuestPerspective{Name: g2},
			Comparison: "...",
		}, nil
	}}
	s := New(lens, 10, 3)

	if _, err := s.CompareGuests(ctx, "A", "B", "t"); err != nil {
		t.Fatalf("CompareGuests: %v", err)
	}
	if s.QueriesRemaining() != 10 {
		t.Errorf("queries remaining = %d, want unchanged 10", s.QueriesRemaining())
	}
}

// Scenario from the observed product behavior: ten queries available,
// a guest-specific question succeeds, the server's echoed counter wins.
func TestScenario_GuestSpecificQuery(t *testing.T) {
	lens := &fakeLens{searchFn: okSearch(1, 9)}
	s := New(lens, 10, 3)

	if s.QueriesRemaining() != 10 {
		t.Fatalf("queries remaining = %d, want 10", s.QueriesRemaining())
	}

	if _, err := s.Submit(ctx, "What did Elena Verna say about pricing?"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if s.QueriesRemaining() != 9 {
		t.Errorf("queries remaining = %d, want 9", s.QueriesRemaining())
	}
	msgs := s.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != RoleAssistant || len(last.Sources) < 1 {
		t.Errorf("last message = %+v, want assistant with sources", last)
	}
}
