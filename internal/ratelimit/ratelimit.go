// Package ratelimit applies fixed-window per-user limits to the write
// endpoints. Anonymous requests are keyed by remote IP instead.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/quillchat/api/internal/auth"
	"github.com/quillchat/api/internal/config"
)

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Result carries the limit headers for one decision.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	RetryIn   time.Duration
}

type entry struct {
	count    int
	windowAt time.Time
}

// Limiter is one fixed window per caller. Build one per guarded endpoint.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string]*entry
	clock   Clock
}

func NewLimiter(cfg config.RateLimitEndpoint) *Limiter {
	return &Limiter{
		limit:   cfg.Limit,
		window:  cfg.Window,
		entries: make(map[string]*entry),
		clock:   realClock{},
	}
}

// SetClock substitutes the time source. Exposed for tests.
func (l *Limiter) SetClock(c Clock) { l.clock = c }

// Allow records a hit for key and reports whether it stays under the limit.
func (l *Limiter) Allow(key string) (Result, bool) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, exists := l.entries[key]
	if !exists || now.Sub(e.windowAt) >= l.window {
		l.entries[key] = &entry{count: 1, windowAt: now}
		return Result{Limit: l.limit, Remaining: l.limit - 1, ResetAt: now.Add(l.window)}, true
	}

	resetAt := e.windowAt.Add(l.window)
	if e.count >= l.limit {
		return Result{Limit: l.limit, Remaining: 0, ResetAt: resetAt, RetryIn: l.window - now.Sub(e.windowAt)}, false
	}

	e.count++
	return Result{Limit: l.limit, Remaining: l.limit - e.count, ResetAt: resetAt}, true
}

// Cleanup drops expired windows. Call periodically to bound memory.
func (l *Limiter) Cleanup() {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.entries {
		if now.Sub(e.windowAt) >= l.window {
			delete(l.entries, key)
		}
	}
}

// Middleware guards the wrapped handler with the limiter, keyed by the
// authenticated user when present and the remote address otherwise.
func Middleware(l *Limiter, enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := auth.UserID(r.Context())
			if key == "" {
				key = r.RemoteAddr
			}

			result, ok := l.Allow(key)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryIn.Seconds())+1))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error":{"code":"RATE_LIMITED","message":"too many requests, retry in %s"}}`, result.RetryIn.Round(time.Second))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
