package stub

import (
	"sync"
	"time"
)

// Limiter enforces a rolling daily query quota per client, mirroring the
// production API's behavior: entries older than the window are dropped,
// and an allowed check consumes one slot.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu  sync.Mutex
	log map[string][]time.Time
}

// NewLimiter creates a Limiter allowing limit queries per 24h window.
func NewLimiter(limit int) *Limiter {
	return &Limiter{
		limit:  limit,
		window: 24 * time.Hour,
		now:    time.Now,
		log:    make(map[string][]time.Time),
	}
}

// Check reports whether the client may issue another query and how many
// remain after this one. A disallowed check consumes nothing.
func (l *Limiter) Check(client string) (allowed bool, remaining int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.log[client][:0]
	for _, ts := range l.log[client] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	l.log[client] = recent

	if len(recent) >= l.limit {
		return false, 0
	}

	l.log[client] = append(recent, now)
	return true, l.limit - len(recent) - 1
}

// Remaining reports the quota left without consuming a slot.
func (l *Limiter) Remaining(client string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	used := 0
	for _, ts := range l.log[client] {
		if ts.After(cutoff) {
			used++
		}
	}
	if used >= l.limit {
		return 0
	}
	return l.limit - used
}
