package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"epicgpt/internal/config"
)

func testRules() map[config.RateLimitClass]config.RateLimitRule {
	return map[config.RateLimitClass]config.RateLimitRule{
		config.RateLimitChat:  {MaxRequests: 3, Window: 10 * time.Second},
		config.RateLimitTools: {MaxRequests: 5, Window: 60 * time.Second},
	}
}

func newTestLimiter(start time.Time) (*Limiter, *time.Time) {
	l := New(testRules())
	current := start
	l.now = func() time.Time { return current }
	return l, &current
}

func TestAllow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("admits up to the limit", func(t *testing.T) {
		l, _ := newTestLimiter(base)
		for i := 0; i < 3; i++ {
			if res := l.Allow("user1", config.RateLimitChat); !res.Allowed {
				t.Fatalf("request %d should be allowed", i+1)
			}
		}
		if res := l.Allow("user1", config.RateLimitChat); res.Allowed {
			t.Fatal("fourth request should be rejected")
		}
	})

	t.Run("retry after counts from oldest request", func(t *testing.T) {
		l, now := newTestLimiter(base)
		l.Allow("user1", config.RateLimitChat)
		*now = base.Add(2 * time.Second)
		l.Allow("user1", config.RateLimitChat)
		l.Allow("user1", config.RateLimitChat)

		*now = base.Add(4 * time.Second)
		res := l.Allow("user1", config.RateLimitChat)
		if res.Allowed {
			t.Fatal("expected rejection")
		}
		// Oldest was at t=0s, window 10s, now t=4s.
		if res.RetryAfter != 6*time.Second {
			t.Errorf("RetryAfter = %v, want 6s", res.RetryAfter)
		}
	})

	t.Run("rejected request is not recorded", func(t *testing.T) {
		l, now := newTestLimiter(base)
		for i := 0; i < 3; i++ {
			l.Allow("user1", config.RateLimitChat)
		}
		for i := 0; i < 10; i++ {
			l.Allow("user1", config.RateLimitChat)
		}

		// All three recorded requests leave the window together.
		*now = base.Add(10*time.Second + time.Millisecond)
		if res := l.Allow("user1", config.RateLimitChat); !res.Allowed {
			t.Fatal("request after window should be allowed")
		}
	})

	t.Run("window slides per request", func(t *testing.T) {
		l, now := newTestLimiter(base)
		l.Allow("user1", config.RateLimitChat)
		*now = base.Add(5 * time.Second)
		l.Allow("user1", config.RateLimitChat)
		l.Allow("user1", config.RateLimitChat)

		// t=11s: only the first request has expired, so one slot is free.
		*now = base.Add(11 * time.Second)
		if res := l.Allow("user1", config.RateLimitChat); !res.Allowed {
			t.Fatal("one slot should have opened")
		}
		if res := l.Allow("user1", config.RateLimitChat); res.Allowed {
			t.Fatal("no further slots should be open")
		}
	})

	t.Run("users are independent", func(t *testing.T) {
		l, _ := newTestLimiter(base)
		for i := 0; i < 3; i++ {
			l.Allow("user1", config.RateLimitChat)
		}
		if res := l.Allow("user2", config.RateLimitChat); !res.Allowed {
			t.Fatal("user2 should not be affected by user1")
		}
	})

	t.Run("classes are independent", func(t *testing.T) {
		l, _ := newTestLimiter(base)
		for i := 0; i < 3; i++ {
			l.Allow("user1", config.RateLimitChat)
		}
		if res := l.Allow("user1", config.RateLimitTools); !res.Allowed {
			t.Fatal("tools class should not be affected by chat class")
		}
	})

	t.Run("unknown class is admitted", func(t *testing.T) {
		l, _ := newTestLimiter(base)
		if res := l.Allow("user1", config.RateLimitClass("bogus")); !res.Allowed {
			t.Fatal("unknown class should be admitted")
		}
	})
}

func TestAllowConcurrent(t *testing.T) {
	l := New(map[config.RateLimitClass]config.RateLimitRule{
		config.RateLimitChat: {MaxRequests: 10, Window: time.Minute},
	})

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := l.Allow("user1", config.RateLimitChat); res.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 10 {
		t.Errorf("allowed = %d, want exactly 10", got)
	}
}

func TestSweep(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l, now := newTestLimiter(base)

	l.Allow("user1", config.RateLimitChat)
	l.Allow("user2", config.RateLimitChat)
	l.Allow("user3", config.RateLimitTools)

	if got := l.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}

	// Chat window (10s) has passed, tools window (60s) has not.
	*now = base.Add(15 * time.Second)
	if removed := l.Sweep(); removed != 2 {
		t.Errorf("Sweep removed %d keys, want 2", removed)
	}
	if got := l.Len(); got != 1 {
		t.Errorf("Len after sweep = %d, want 1", got)
	}

	*now = base.Add(2 * time.Minute)
	if removed := l.Sweep(); removed != 1 {
		t.Errorf("second Sweep removed %d keys, want 1", removed)
	}
}
