package ratelimit

import (
	"sync"
	"time"

	"epicgpt/internal/config"
)

// Result is the outcome of one admission check.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration // zero when Allowed
}

// Limiter is an in-memory sliding-window rate limiter keyed by
// (userID, class). Each key holds the timestamps of requests still inside
// the window; prune, check and record happen atomically per call.
type Limiter struct {
	mu      sync.Mutex
	rules   map[config.RateLimitClass]config.RateLimitRule
	entries map[key][]time.Time
	now     func() time.Time
}

type key struct {
	userID string
	class  config.RateLimitClass
}

// New creates a limiter with the given per-class rules.
func New(rules map[config.RateLimitClass]config.RateLimitRule) *Limiter {
	return &Limiter{
		rules:   rules,
		entries: make(map[key][]time.Time),
		now:     time.Now,
	}
}

// Allow admits or rejects one request for (userID, class). On admission the
// request is recorded immediately; on rejection RetryAfter reports how long
// until the oldest recorded request slides out of the window.
// Unknown classes are admitted without recording.
func (l *Limiter) Allow(userID string, class config.RateLimitClass) Result {
	rule, ok := l.rules[class]
	if !ok {
		return Result{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-rule.Window)
	k := key{userID: userID, class: class}

	kept := l.entries[k][:0]
	for _, t := range l.entries[k] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rule.MaxRequests {
		l.entries[k] = kept
		retry := rule.Window - now.Sub(kept[0])
		if retry < 0 {
			retry = 0
		}
		return Result{Allowed: false, RetryAfter: retry}
	}

	l.entries[k] = append(kept, now)
	return Result{Allowed: true}
}

// Sweep drops keys whose recorded requests have all left their window.
// Returns the number of keys removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for k, times := range l.entries {
		rule, ok := l.rules[k.class]
		if !ok {
			delete(l.entries, k)
			removed++
			continue
		}
		cutoff := now.Add(-rule.Window)
		live := false
		for _, t := range times {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys. Used by the sweep job for logging.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
