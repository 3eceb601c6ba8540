package usecase

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedUsers bounds the limiter map; idle limiters are dropped first.
const maxTrackedUsers = 10000

// userLimiter is a token bucket per user id.
type userLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// newUserLimiter allows perMinute requests per user per minute with bursts
// of the same size. perMinute <= 0 disables limiting.
func newUserLimiter(perMinute int) *userLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &userLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *userLimiter) Allow(uid string, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[uid]
	if !ok {
		if len(l.limiters) >= maxTrackedUsers {
			l.evictIdle(now)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[uid] = lim
	}
	return lim.AllowN(now, 1)
}

// evictIdle drops limiters whose bucket has refilled, which are
// indistinguishable from new ones.
func (l *userLimiter) evictIdle(now time.Time) {
	for uid, lim := range l.limiters {
		if lim.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, uid)
		}
	}
}
