package service

import (
	"sync"
	"time"
)

// RateLimiter tracks the last signal dispatch per user and enforces a fixed
// cooldown between dispatches. An absent entry always allows.
type RateLimiter struct {
	cooldown time.Duration
	mu       sync.Mutex
	last     map[int64]time.Time
}

func NewRateLimiter(cooldown time.Duration) *RateLimiter {
	return &RateLimiter{cooldown: cooldown, last: map[int64]time.Time{}}
}

// Check reports whether a dispatch is allowed for the user at the given time
// and, if not, how long the user still has to wait. Check never mutates
// state; the caller records the dispatch separately once the request actually
// reaches the send step, so aborted requests are not penalized.
func (l *RateLimiter) Check(userID int64, now time.Time) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	last, ok := l.last[userID]
	if !ok {
		return 0, true
	}
	if elapsed := now.Sub(last); elapsed < l.cooldown {
		return l.cooldown - elapsed, false
	}
	return 0, true
}

// Record stores the dispatch time for the user.
func (l *RateLimiter) Record(userID int64, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last[userID] = now
}
