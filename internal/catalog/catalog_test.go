package catalog

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/podlens/podlens/internal/api"
)

type fakeLister struct {
	guests     []api.Guest
	guides     []api.Guide
	trending   []api.TrendingItem
	detail     *api.GuideDetail
	err        error
	guestCalls int
	guideCalls int
	trendCalls int
}

func (f *fakeLister) Guests(context.Context) ([]api.Guest, error) {
	f.guestCalls++
	return f.guests, f.err
}

func (f *fakeLister) EpisodeGuides(_ context.Context, sortBy string, limit int) ([]api.Guide, error) {
	f.guideCalls++
	return f.guides, f.err
}

func (f *fakeLister) EpisodeGuide(_ context.Context, id int) (*api.GuideDetail, error) {
	return f.detail, f.err
}

func (f *fakeLister) TrendingQuestions(_ context.Context, days, limit int) ([]api.TrendingItem, error) {
	f.trendCalls++
	return f.trending, f.err
}

var ctx = context.Background()

func TestGuests_FetchedOnce(t *testing.T) {
	lister := &fakeLister{guests: []api.Guest{{Name: "Elena Verna"}}}
	c := New(lister)

	for i := 0; i < 3; i++ {
		guests, err := c.Guests(ctx)
		if err != nil {
			t.Fatalf("Guests: %v", err)
		}
		if len(guests) != 1 {
			t.Fatalf("got %d guests, want 1", len(guests))
		}
	}

	if lister.guestCalls != 1 {
		t.Errorf("guest endpoint called %d times, want 1", lister.guestCalls)
	}
}

func TestGuides_IdempotentPerSortKey(t *testing.T) {
	lister := &fakeLister{guides: []api.Guide{{ID: 1, Title: "Growth loops"}}}
	c := New(lister)

	first, err := c.Guides(ctx, "views", 20)
	if err != nil {
		t.Fatalf("Guides: %v", err)
	}
	second, err := c.Guides(ctx, "views", 20)
	if err != nil {
		t.Fatalf("Guides: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("same sort parameter yielded different sets")
	}
	if lister.guideCalls != 1 {
		t.Errorf("guide endpoint called %d times, want 1", lister.guideCalls)
	}

	// A different sort key is a different cache entry.
	if _, err := c.Guides(ctx, "actions", 20); err != nil {
		t.Fatalf("Guides: %v", err)
	}
	if lister.guideCalls != 2 {
		t.Errorf("guide endpoint called %d times, want 2", lister.guideCalls)
	}
}

func TestGuests_FailureKeepsPriorList(t *testing.T) {
	lister := &fakeLister{guests: []api.Guest{{Name: "Brian Chesky"}}}
	c := New(lister)

	if _, err := c.Guests(ctx); err != nil {
		t.Fatalf("Guests: %v", err)
	}

	c.Invalidate()
	lister.err = errors.New("boom")

	guests, err := c.Guests(ctx)
	if err == nil {
		t.Fatal("expected error")
	}
	// Cache was invalidated, so the prior list is empty; what matters is
	// that access is safe and returns a displayable (possibly nil) slice.
	if len(guests) != 0 {
		t.Errorf("got %d guests, want 0", len(guests))
	}
}

func TestGuests_NilResponseNormalized(t *testing.T) {
	lister := &fakeLister{guests: nil}
	c := New(lister)

	guests, err := c.Guests(ctx)
	if err != nil {
		t.Fatalf("Guests: %v", err)
	}
	if guests == nil {
		t.Error("nil server list not normalized to empty slice")
	}
}

func TestTrending_CachedPerWindow(t *testing.T) {
	lister := &fakeLister{trending: []api.TrendingItem{{Query: "how to price", Count: 3}}}
	c := New(lister)

	if _, err := c.Trending(ctx, 7, 10); err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if _, err := c.Trending(ctx, 7, 10); err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if lister.trendCalls != 1 {
		t.Errorf("trending endpoint called %d times, want 1", lister.trendCalls)
	}

	if _, err := c.Trending(ctx, 30, 10); err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if lister.trendCalls != 2 {
		t.Errorf("trending endpoint called %d times, want 2", lister.trendCalls)
	}
}

func TestRefresh_PopulatesAllLists(t *testing.T) {
	lister := &fakeLister{
		guests:   []api.Guest{{Name: "Elena Verna"}},
		guides:   []api.Guide{{ID: 1}},
		trending: []api.TrendingItem{{Query: "q", Count: 1}},
	}
	c := New(lister)

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if lister.guestCalls != 1 || lister.guideCalls != 1 || lister.trendCalls != 1 {
		t.Errorf("calls = %d/%d/%d, want 1 each", lister.guestCalls, lister.guideCalls, lister.trendCalls)
	}
}
