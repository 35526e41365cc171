package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimiter implements fixed-window per-IP rate limiting over redis.
// A nil client disables limiting entirely.
type RateLimiter struct {
	client   *redis.Client
	logger   zerolog.Logger
	requests int
	window   time.Duration
}

// NewRateLimiter creates a rate limiter for the ops surface.
func NewRateLimiter(client *redis.Client, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		client:   client,
		logger:   logger,
		requests: 120,
		window:   time.Minute,
	}
}

// Middleware enforces the per-IP limit.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := "ratelimit:ip:" + RealIP(r)
		ctx := r.Context()

		count, err := rl.client.Incr(ctx, key).Result()
		if err != nil {
			// Redis trouble never blocks the ops surface.
			rl.logger.Warn().Err(err).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(ctx, key, rl.window)
		}

		remaining := int64(rl.requests) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(rl.requests) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RealIP extracts the client IP, honoring proxy headers.
func RealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
