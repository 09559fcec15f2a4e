package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a per-client fixed-window limiter kept in process memory. Use
// RedisRateLimiter when several replicas must share the budget.
type RateLimiter struct {
	limit    int
	window   time.Duration
	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	count     int
	resetTime time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		window:   window,
		visitors: map[string]*visitor{},
	}
}

func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbe(r) {
				next.ServeHTTP(w, r)
				return
			}
			remaining, ok := rl.allow(clientKey(r), time.Now())
			setLimitHeaders(w, rl.limit, remaining)
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
				WriteError(w, r, http.StatusTooManyRequests, ErrorBody{Error: "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allow counts one request for key and returns the requests left in the window.
func (rl *RateLimiter) allow(key string, now time.Time) (int, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.visitors) > maxTrackedVisitors {
		rl.evictExpired(now)
	}

	v := rl.visitors[key]
	if v == nil || now.After(v.resetTime) {
		rl.visitors[key] = &visitor{count: 1, resetTime: now.Add(rl.window)}
		return rl.limit - 1, true
	}

	if v.count >= rl.limit {
		return 0, false
	}
	v.count++
	return rl.limit - v.count, true
}

const maxTrackedVisitors = 10000

func (rl *RateLimiter) evictExpired(now time.Time) {
	for key, v := range rl.visitors {
		if now.After(v.resetTime) {
			delete(rl.visitors, key)
		}
	}
}

func isProbe(r *http.Request) bool {
	return r.URL.Path == "/healthz" || r.URL.Path == "/readyz"
}

func setLimitHeaders(w http.ResponseWriter, limit, remaining int) {
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
}

// clientKey prefers the first X-Forwarded-For hop set by the gateway.
func clientKey(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		parts := strings.Split(ip, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
