package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimiter allows at most limit requests per client IP in each fixed
// window. A non-positive limit disables limiting.
func RateLimiter(limit int, window time.Duration) echo.MiddlewareFunc {
	l := newWindowLimiter(limit, window)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limit <= 0 {
			return next
		}
		return func(c echo.Context) error {
			if ok, wait := l.allow(c.RealIP(), time.Now()); !ok {
				c.Response().Header().Set("Retry-After", retryAfter(wait))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

type bucket struct {
	count int
	start time.Time
}

// windowLimiter counts requests per key in fixed windows. Buckets whose
// window has ended are swept at most once per window, so idle clients do
// not accumulate.
type windowLimiter struct {
	limit  int
	window time.Duration

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newWindowLimiter(limit int, window time.Duration) *windowLimiter {
	return &windowLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
	}
}

// allow records a request for key at now. When the limit is reached it
// returns false and the time left until the window resets.
func (l *windowLimiter) allow(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.window {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok || l.expired(b, now) {
		b = &bucket{start: now}
		l.buckets[key] = b
	}
	if b.count >= l.limit {
		return false, b.start.Add(l.window).Sub(now)
	}
	b.count++
	return true, 0
}

func (l *windowLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if l.expired(b, now) {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func (l *windowLimiter) expired(b *bucket, now time.Time) bool {
	return now.Sub(b.start) > l.window
}

// size returns the number of tracked clients.
func (l *windowLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func retryAfter(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
