package auth

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles sign-in attempts per key (normalized email).
type Limiter struct {
	mu       sync.Mutex
	perMin   int
	limiters map[string]*limiterEntry
	now      func() time.Time
}

type limiterEntry struct {
	lim  *rate.Limiter
	last time.Time
}

// NewLimiter allows perMinute attempts per key with a burst of the same size.
// A non-positive perMinute disables limiting.
func NewLimiter(perMinute int) *Limiter {
	return &Limiter{
		perMin:   perMinute,
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
	}
}

// Allow reports whether another attempt for key is permitted now.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.perMin <= 0 {
		return true
	}
	key = strings.ToLower(strings.TrimSpace(key))
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)}
		l.limiters[key] = e
	}
	e.last = now
	l.sweep(now)
	return e.lim.AllowN(now, 1)
}

// sweep forgets keys idle for more than a minute.
func (l *Limiter) sweep(now time.Time) {
	if len(l.limiters) < 1024 {
		return
	}
	for k, e := range l.limiters {
		if now.Sub(e.last) > time.Minute {
			delete(l.limiters, k)
		}
	}
}
