package sources

import (
	"context"
	"sync"
	"time"
)

// Health is the cached status of one integration for one user.
type Health struct {
	Available   bool
	AuthExpired bool
	RateLimited bool
	LastChecked time.Time
}

// ProbeFunc checks an integration's live status. It is called when a
// cache entry is stale; implementations typically ping the integration
// or inspect stored credentials.
type ProbeFunc func(ctx context.Context, userID, source string) Health

// Tracker caches per-user, per-source integration health. Entries are
// trusted for a bounded window; stale entries are refreshed through the
// probe before being returned.
type Tracker struct {
	mu      sync.Mutex
	ttl     time.Duration
	probe   ProbeFunc
	entries map[healthKey]Health
}

type healthKey struct {
	userID string
	source string
}

// NewTracker creates a health tracker. probe may be nil, in which case
// stale or missing entries are assumed available.
func NewTracker(ttl time.Duration, probe ProbeFunc) *Tracker {
	return &Tracker{
		ttl:     ttl,
		probe:   probe,
		entries: make(map[healthKey]Health),
	}
}

// Status returns the health of a source for a user, refreshing through
// the probe when the cached entry is stale or absent.
func (t *Tracker) Status(ctx context.Context, userID, source string) Health {
	key := healthKey{userID, source}

	t.mu.Lock()
	h, ok := t.entries[key]
	t.mu.Unlock()

	if ok && time.Since(h.LastChecked) < t.ttl {
		return h
	}

	if t.probe != nil {
		h = t.probe(ctx, userID, source)
	} else {
		h = Health{Available: true}
	}
	h.LastChecked = time.Now()

	t.mu.Lock()
	t.entries[key] = h
	t.mu.Unlock()

	return h
}

// Record stores an observed health state, stamping LastChecked.
func (t *Tracker) Record(userID, source string, h Health) {
	h.LastChecked = time.Now()
	t.mu.Lock()
	t.entries[healthKey{userID, source}] = h
	t.mu.Unlock()
}

// MarkAuthExpired records that the user's credentials for the source
// were rejected.
func (t *Tracker) MarkAuthExpired(userID, source string) {
	t.Record(userID, source, Health{Available: false, AuthExpired: true})
}

// MarkRateLimited records that the source throttled the user.
func (t *Tracker) MarkRateLimited(userID, source string) {
	t.Record(userID, source, Health{Available: false, RateLimited: true})
}

// MarkUnavailable records a generic outage of the source.
func (t *Tracker) MarkUnavailable(userID, source string) {
	t.Record(userID, source, Health{Available: false})
}

// MarkAvailable records a successful interaction with the source.
func (t *Tracker) MarkAvailable(userID, source string) {
	t.Record(userID, source, Health{Available: true})
}

// Clear removes all cached entries for a user. Called on logout.
func (t *Tracker) Clear(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.entries {
		if key.userID == userID {
			delete(t.entries, key)
		}
	}
}

// SweepExpired drops entries past the validity window. Expiry is
// otherwise lazy: Status refreshes stale entries on read.
func (t *Tracker) SweepExpired() {
	cutoff := time.Now().Add(-t.ttl)
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, h := range t.entries {
		if h.LastChecked.Before(cutoff) {
			delete(t.entries, key)
		}
	}
}
