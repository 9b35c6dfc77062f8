// Package ratelimit provides per-identity, per-category sliding-window
// rate limiting for the MindSupport API.
//
// Each (identity, category) pair tracks the timestamps of its recent
// requests. A check evicts expired timestamps, then either denies without
// mutating state or records the call and allows it. Every decision carries
// remaining-quota and reset metadata for the wire-level headers.
package ratelimit

import (
	"strconv"
	"sync"
	"time"

	"github.com/mbd888/mindsupport/internal/metrics"
)

// CategoryLimit is the quota for one endpoint category.
type CategoryLimit struct {
	MaxRequests int
	Window      time.Duration
}

// Config configures the limiter.
type Config struct {
	// Categories maps endpoint category to its quota. Unknown categories
	// fall back to "general".
	Categories map[string]CategoryLimit
	// CleanupInterval is the minimum time between sweep passes.
	CleanupInterval time.Duration
}

// DefaultConfig returns the production category quotas.
func DefaultConfig() Config {
	return Config{
		Categories: map[string]CategoryLimit{
			"chat":      {MaxRequests: 30, Window: 60 * time.Second},
			"screening": {MaxRequests: 5, Window: 300 * time.Second},
			"journal":   {MaxRequests: 20, Window: 60 * time.Second},
			"general":   {MaxRequests: 100, Window: 60 * time.Second},
		},
		CleanupInterval: 300 * time.Second,
	}
}

// Decision is the outcome of a single rate-limit check.
type Decision struct {
	Allowed    bool      `json:"allowed"`
	Remaining  int       `json:"remaining"`
	ResetTime  time.Time `json:"resetTime"`
	RetryAfter int       `json:"retryAfter"` // seconds; 0 when allowed
}

// Limiter tracks sliding windows of request timestamps per identity and
// category. A single mutex guards the whole table; checks are in-memory
// and microsecond-fast, so coarse locking is not a bottleneck.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu         sync.Mutex
	identities map[string]map[string][]time.Time
	lastSweep  time.Time
	sweeping   bool
}

// New creates a sliding-window limiter.
func New(cfg Config) *Limiter {
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultConfig().Categories
	}
	if _, ok := cfg.Categories["general"]; !ok {
		cfg.Categories["general"] = DefaultConfig().Categories["general"]
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 300 * time.Second
	}
	return &Limiter{
		cfg:        cfg,
		now:        time.Now,
		identities: make(map[string]map[string][]time.Time),
	}
}

// WithClock overrides the time source. For tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// limitFor resolves a category's quota, falling back to general.
func (l *Limiter) limitFor(category string) (string, CategoryLimit) {
	if lim, ok := l.cfg.Categories[category]; ok {
		return category, lim
	}
	return "general", l.cfg.Categories["general"]
}

// Check evaluates one request for an identity and category. A denied
// check never mutates the window; an allowed check consumes one unit of
// quota by recording the current timestamp. Missing identities are their
// own bucket and never error.
func (l *Limiter) Check(identity, category string) Decision {
	category, limit := l.limitFor(category)
	now := l.now()

	l.mu.Lock()
	l.maybeSweepLocked(now)

	cats, ok := l.identities[identity]
	if !ok {
		cats = make(map[string][]time.Time)
		l.identities[identity] = cats
	}

	// Evict entries that fell out of the window before counting.
	window := cats[category]
	cutoff := now.Add(-limit.Window)
	live := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= limit.MaxRequests {
		cats[category] = live
		reset := live[0].Add(limit.Window)
		retry := int(reset.Sub(now).Seconds())
		if retry < 0 {
			retry = 0
		}
		l.mu.Unlock()

		metrics.RateLimitChecksTotal.WithLabelValues(category, "denied").Inc()
		return Decision{
			Allowed:    false,
			Remaining:  0,
			ResetTime:  reset,
			RetryAfter: retry,
		}
	}

	live = append(live, now)
	cats[category] = live
	reset := live[0].Add(limit.Window)
	remaining := limit.MaxRequests - len(live)
	l.mu.Unlock()

	metrics.RateLimitChecksTotal.WithLabelValues(category, "allowed").Inc()
	return Decision{
		Allowed:   true,
		Remaining: remaining,
		ResetTime: reset,
	}
}

// maybeSweepLocked runs the garbage-collection pass if the cleanup
// interval has elapsed. Single-flight; caller holds l.mu.
func (l *Limiter) maybeSweepLocked(now time.Time) {
	if l.sweeping || now.Sub(l.lastSweep) < l.cfg.CleanupInterval {
		return
	}
	l.sweeping = true
	l.lastSweep = now

	// Retain up to twice the largest window so a sweep can never evict a
	// timestamp that an active check still counts.
	var largest time.Duration
	for _, lim := range l.cfg.Categories {
		if lim.Window > largest {
			largest = lim.Window
		}
	}
	cutoff := now.Add(-2 * largest)

	for identity, cats := range l.identities {
		for category, window := range cats {
			live := window[:0]
			for _, ts := range window {
				if ts.After(cutoff) {
					live = append(live, ts)
				}
			}
			if len(live) == 0 {
				delete(cats, category)
			} else {
				cats[category] = live
			}
		}
		if len(cats) == 0 {
			delete(l.identities, identity)
		}
	}

	l.sweeping = false
}

// Headers renders a decision as wire-level rate-limit headers.
// Retry-After is present only when positive.
func Headers(d Decision) map[string]string {
	h := map[string]string{
		"X-RateLimit-Remaining": strconv.Itoa(d.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(d.ResetTime.Unix(), 10),
	}
	if d.RetryAfter > 0 {
		h["Retry-After"] = strconv.Itoa(d.RetryAfter)
	}
	return h
}

// UsageStat describes one category's current consumption for an identity.
type UsageStat struct {
	Category  string    `json:"category"`
	Used      int       `json:"used"`
	Max       int       `json:"max"`
	Window    int       `json:"windowSeconds"`
	ResetTime time.Time `json:"resetTime"`
}

// Stats returns the live usage per category for an identity. Expired
// timestamps are excluded but not evicted; Stats is read-only.
func (l *Limiter) Stats(identity string) []UsageStat {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	cats := l.identities[identity]
	stats := make([]UsageStat, 0, len(cats))
	for category, window := range cats {
		_, limit := l.limitFor(category)
		cutoff := now.Add(-limit.Window)
		used := 0
		var earliest time.Time
		for _, ts := range window {
			if ts.After(cutoff) {
				if used == 0 {
					earliest = ts
				}
				used++
			}
		}
		if used == 0 {
			continue
		}
		stats = append(stats, UsageStat{
			Category:  category,
			Used:      used,
			Max:       limit.MaxRequests,
			Window:    int(limit.Window.Seconds()),
			ResetTime: earliest.Add(limit.Window),
		})
	}
	return stats
}

// Reset clears all tracked windows for an identity. Admin escape hatch.
func (l *Limiter) Reset(identity string) {
	l.mu.Lock()
	delete(l.identities, identity)
	l.mu.Unlock()
}
