package capture

import (
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter keyed by conversation. State is
// in-memory only and does not survive restart; pruning happens lazily on
// each check, with Prune available for callers that want periodic cleanup
// instead of relying on checks to age keys out.
type Limiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
}

// NewLimiter creates a limiter allowing max events per window for each key.
func NewLimiter(window time.Duration, max int) *Limiter {
	return &Limiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
	}
}

// Allow reports whether an event for key may proceed at time now, recording
// it if so. Rejected events are not recorded.
func (l *Limiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := prune(l.hits[key], now.Add(-l.window))

	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}

	l.hits[key] = append(kept, now)
	return true
}

// Prune drops expired timestamps for every key and removes empty keys.
func (l *Limiter) Prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	for key, stamps := range l.hits {
		kept := prune(stamps, cutoff)
		if len(kept) == 0 {
			delete(l.hits, key)
			continue
		}
		l.hits[key] = kept
	}
}

// prune returns the timestamps at or after cutoff. Timestamps are appended
// in order, so the first survivor marks the suffix to keep.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	for i, t := range stamps {
		if !t.Before(cutoff) {
			return stamps[i:]
		}
	}
	return nil
}
