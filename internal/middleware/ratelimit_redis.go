package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/campuspass/checkin-server-go/internal/audit"
	apperrors "github.com/campuspass/checkin-server-go/internal/errors"
)

const (
	rateLimitKeyPrefix = "ratelimit:"
	rateLimitWindow    = 60 * time.Second
)

var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local windowStart = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)

if count >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local resetAt = 0
    if #oldest >= 2 then
        resetAt = tonumber(oldest[2]) + window
    else
        resetAt = now + window
    end
    return {0, 0, resetAt}
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)

local remaining = limit - count - 1
local resetAt = now + window

return {1, remaining, resetAt}
`)

type RedisRateLimiter struct {
	client *redis.Client
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

func (rl *RedisRateLimiter) Check(ctx context.Context, key string, limit int) (allowed bool, remaining int, resetAt int64) {
	now := time.Now().Unix()
	fullKey := rateLimitKeyPrefix + key

	result, err := rateLimitScript.Run(ctx, rl.client, []string{fullKey}, now, int64(rateLimitWindow.Seconds()), limit).Int64Slice()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis rate limit check failed, allowing request")
		return true, limit - 1, now + int64(rateLimitWindow.Seconds())
	}

	if len(result) != 3 {
		log.Warn().Str("key", key).Msg("unexpected redis rate limit result")
		return true, limit - 1, now + int64(rateLimitWindow.Seconds())
	}

	return result[0] == 1, int(result[1]), result[2]
}

// RateLimitMiddleware applies a per-minute sliding window. SessionHandler
// keys by the authenticated user (scan and credential endpoints); IPHandler
// keys by client address for pre-auth routes like login.
type RateLimitMiddleware struct {
	limiter *RedisRateLimiter
	limit   int
}

func NewRateLimitMiddleware(redisClient *redis.Client, limit int) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: NewRedisRateLimiter(redisClient),
		limit:   limit,
	}
}

func (m *RateLimitMiddleware) SessionHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := GetSession(r.Context())
		if sess == nil {
			next.ServeHTTP(w, r)
			return
		}
		m.check(w, r, "user:"+sess.UserID.String(), next)
	})
}

func (m *RateLimitMiddleware) IPHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.check(w, r, "ip:"+r.RemoteAddr, next)
	})
}

func (m *RateLimitMiddleware) check(w http.ResponseWriter, r *http.Request, key string, next http.Handler) {
	allowed, remaining, resetAt := m.limiter.Check(r.Context(), key, m.limit)

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))

	if !allowed {
		log.Warn().Str("key", key).Msg("rate limit exceeded")
		audit.LogFromRequest(r, audit.Event{Type: audit.EventRateLimit})
		w.Header().Set("Retry-After", "60")
		writeError(w, apperrors.RateLimitExceeded())
		return
	}

	next.ServeHTTP(w, r)
}
