package esign

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harborcrm/esign/pkg/httpx"
)

// FixedWindowLimiter is an in-process fixed-window counter. Good enough
// for a single instance; multi-instance deployments would move this to a
// shared store.
type FixedWindowLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	byKey  map[string]windowState
}

type windowState struct {
	start time.Time
	count int
}

func NewFixedWindowLimiter(limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		limit:  limit,
		window: window,
		byKey:  map[string]windowState{},
	}
}

func (l *FixedWindowLimiter) Allow(key string, now time.Time) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	if key == "" {
		key = "anonymous"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.byKey[key]
	if cur.start.IsZero() || now.Sub(cur.start) >= l.window {
		l.byKey[key] = windowState{start: now, count: 1}
		return true
	}
	if cur.count >= l.limit {
		return false
	}
	cur.count++
	l.byKey[key] = cur
	return true
}

// RateLimitByIP rejects requests over the per-client-IP budget with 429.
func RateLimitByIP(l *FixedWindowLimiter) func(http.Handler) http.Handler {
	return rateLimit(l, clientIPFromRequest)
}

// RateLimitByToken keys the window on the invite token so one abusive
// link cannot exhaust another signer's budget.
func RateLimitByToken(l *FixedWindowLimiter) func(http.Handler) http.Handler {
	return rateLimit(l, func(r *http.Request) string {
		return chi.URLParam(r, "token")
	})
}

func rateLimit(l *FixedWindowLimiter, keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(keyFn(r), time.Now().UTC()) {
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
