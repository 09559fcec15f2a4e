package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter is a fixed-window rate limiter backed by Redis.
// Counters are shared across every replica that points at the same Redis.
type RedisRateLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
}

// fixedWindowScript returns {count, pttl} for the caller's current window.
var fixedWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

func NewRedisRateLimiter(rdb redis.Scripter, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix}
}

func (rl *RedisRateLimiter) Middleware(logger *slog.Logger, failOpen bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbe(r) {
				next.ServeHTTP(w, r)
				return
			}
			count, resetIn, err := rl.hit(r.Context(), rl.prefix+":"+clientKey(r))
			if err != nil {
				if logger != nil {
					logger.Warn("redis rate limiter error", "err", err, "fail_open", failOpen)
				}
				if failOpen {
					next.ServeHTTP(w, r)
					return
				}
				WriteError(w, r, http.StatusServiceUnavailable, ErrorBody{Error: "rate limiter unavailable"})
				return
			}
			setLimitHeaders(w, rl.limit, rl.limit-int(count))
			if count > int64(rl.limit) {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(resetIn, rl.window)))
				WriteError(w, r, http.StatusTooManyRequests, ErrorBody{Error: "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RedisRateLimiter) hit(ctx context.Context, key string) (int64, time.Duration, error) {
	vals, err := fixedWindowScript.Run(ctx, rl.rdb, []string{key}, rl.window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(vals) != 2 {
		return 0, 0, fmt.Errorf("rate limit script returned %d values", len(vals))
	}
	return vals[0], time.Duration(vals[1]) * time.Millisecond, nil
}

// retryAfterSeconds rounds the remaining window up to whole seconds. A key
// without a TTL reports a negative pttl; fall back to the full window then.
func retryAfterSeconds(resetIn, window time.Duration) int {
	if resetIn <= 0 {
		resetIn = window
	}
	secs := int((resetIn + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
