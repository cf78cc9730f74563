// Package catalog caches the read-only display lists: guests, episode
// guides, and trending queries. Loads are idempotent and degrade to the
// previously cached (possibly empty) list on failure so the render path
// never breaks.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/podlens/podlens/internal/api"
)

// Defaults for the list endpoints when the caller passes zero values.
const (
	DefaultGuideSort     = "views"
	DefaultGuideLimit    = 20
	DefaultTrendingDays  = 7
	DefaultTrendingLimit = 10
)

// Lister is the read-only slice of the API the catalog consumes.
type Lister interface {
	Guests(ctx context.Context) ([]api.Guest, error)
	EpisodeGuides(ctx context.Context, sortBy string, limit int) ([]api.Guide, error)
	EpisodeGuide(ctx context.Context, id int) (*api.GuideDetail, error)
	TrendingQuestions(ctx context.Context, days, limit int) ([]api.TrendingItem, error)
}

// Catalog memoizes list fetches per parameter set. Entries live until
// Invalidate, matching the "fetch once per tab activation" behavior.
type Catalog struct {
	lister Lister

	mu       sync.Mutex
	guests   []api.Guest
	hasGuest bool
	guides   map[string][]api.Guide
	details  map[int]*api.GuideDetail
	trending map[string][]api.TrendingItem
}

// New creates an empty Catalog over the given API.
func New(lister Lister) *Catalog {
	return &Catalog{
		lister:   lister,
		guides:   make(map[string][]api.Guide),
		details:  make(map[int]*api.GuideDetail),
		trending: make(map[string][]api.TrendingItem),
	}
}

// Guests returns the guest list, fetching it at most once. On failure the
// prior cached list is returned alongside the error.
func (c *Catalog) Guests(ctx context.Context) ([]api.Guest, error) {
	c.mu.Lock()
	if c.hasGuest {
		defer c.mu.Unlock()
		return c.guests, nil
	}
	c.mu.Unlock()

	guests, err := c.lister.Guests(ctx)
	if err != nil {
		slog.Warn("loading guests failed", "error", err)
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.guests, err
	}
	if guests == nil {
		guests = []api.Guest{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.guests = guests
	c.hasGuest = true
	return guests, nil
}

// GuestNames returns the cached guest names for autocomplete.
func (c *Catalog) GuestNames(ctx context.Context) ([]string, error) {
	guests, err := c.Guests(ctx)
	names := make([]string, len(guests))
	for i, g := range guests {
		names[i] = g.Name
	}
	return names, err
}

// Guides returns the guide list for one sort/limit pair, fetching it at
// most once per pair. Loading the same pair twice without an intervening
// Invalidate yields the same set.
func (c *Catalog) Guides(ctx context.Context, sortBy string, limit int) ([]api.Guide, error) {
	if sortBy == "" {
		sortBy = DefaultGuideSort
	}
	if limit <= 0 {
		limit = DefaultGuideLimit
	}
	key := fmt.Sprintf("%s|%d", sortBy, limit)

	c.mu.Lock()
	if cached, ok := c.guides[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	guides, err := c.lister.EpisodeGuides(ctx, sortBy, limit)
	if err != nil {
		slog.Warn("loading episode guides failed", "sort_by", sortBy, "error", err)
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.guides[key], err
	}
	if guides == nil {
		guides = []api.Guide{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.guides[key] = guides
	return guides, nil
}

// GuideDetail returns one full guide, cached by id.
func (c *Catalog) GuideDetail(ctx context.Context, id int) (*api.GuideDetail, error) {
	c.mu.Lock()
	if cached, ok := c.details[id]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	detail, err := c.lister.EpisodeGuide(ctx, id)
	if err != nil {
		slog.Warn("loading guide detail failed", "id", id, "error", err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.details[id] = detail
	return detail, nil
}

// Trending returns the trending-query list for one days/limit pair.
func (c *Catalog) Trending(ctx context.Context, days, limit int) ([]api.TrendingItem, error) {
	if days <= 0 {
		days = DefaultTrendingDays
	}
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	key := fmt.Sprintf("%d|%d", days, limit)

	c.mu.Lock()
	if cached, ok := c.trending[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	items, err := c.lister.TrendingQuestions(ctx, days, limit)
	if err != nil {
		slog.Warn("loading trending questions failed", "error", err)
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.trending[key], err
	}
	if items == nil {
		items = []api.TrendingItem{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.trending[key] = items
	return items, nil
}

// Refresh drops all caches and reloads the default views concurrently.
// Returns the first load failure; the other lists still populate.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.Invalidate()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.Guests(ctx)
		return err
	})
	g.Go(func() error {
		_, err := c.Guides(ctx, DefaultGuideSort, DefaultGuideLimit)
		return err
	})
	g.Go(func() error {
		_, err := c.Trending(ctx, DefaultTrendingDays, DefaultTrendingLimit)
		return err
	})
	return g.Wait()
}

// Invalidate clears every cached list, forcing the next access to refetch.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guests = nil
	c.hasGuest = false
	c.guides = make(map[string][]api.Guide)
	c.details = make(map[int]*api.GuideDetail)
	c.trending = make(map[string][]api.TrendingItem)
}
