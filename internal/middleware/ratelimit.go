package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/iliyamo/bike-marketplace/internal/config"
)

const msgTooManyRequests = "Too many requests."

// tokenBucketScript refills in whole intervals and takes one token.  It
// returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		local until_next = interval_ms - (now_ms - last_refill)
		if until_next < 0 then until_next = 0 end
		retry_after_ms = until_next
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// RateLimit throttles API calls per key.  With a Redis client the shared
// token bucket decides; without one, or when Redis errors, a per-process
// limiter with the same refill rate takes over.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.SugaredLogger) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	local := newLocalLimiter(rate.Limit(cfg.LocalRPS), cfg.Capacity, cfg.LocalCleanup)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))

			if rdb != nil {
				allowed, remaining, retryMs, err := redisTake(c, rdb, cfg, key)
				if err == nil {
					c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
					if !allowed {
						secs := int(math.Ceil(float64(retryMs) / 1000.0))
						if cfg.Debug {
							log.Debugw("rate limited", "key", key, "retry_ms", retryMs)
						}
						return tooMany(c, secs)
					}
					return next(c)
				}
				log.Warnw("rate limit redis error, using local limiter", "key", key, "error", err)
			}

			r := local.reserve(key)
			if delay := r.Delay(); delay > 0 {
				r.Cancel()
				return tooMany(c, int(math.Ceil(delay.Seconds())))
			}
			return next(c)
		}
	}
}

func redisTake(c echo.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string) (bool, int64, int64, error) {
	args := []interface{}{
		time.Now().UnixMilli(),
		cfg.Capacity,
		cfg.RefillTokens,
		cfg.RefillInterval.Milliseconds(),
		int64(cfg.TTL / time.Second),
	}
	vals, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
	if err != nil {
		return false, 0, 0, err
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 3 {
		return false, 0, 0, fmt.Errorf("unexpected script result %#v", vals)
	}
	return asInt64(arr[0]) == 1, asInt64(arr[1]), asInt64(arr[2]), nil
}

func tooMany(c echo.Context, retrySecs int) error {
	if retrySecs < 0 {
		retrySecs = 0
	}
	c.Response().Header().Set("Retry-After", strconv.Itoa(retrySecs))
	return c.JSON(http.StatusTooManyRequests, echo.Map{"ok": false, "error": msgTooManyRequests})
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64: return t
	case int: return int64(t)
	case float64: return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil { return n }
	}
	return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	ip := rateKeyIP(c)
	route := c.Request().Method + " " + c.Path()
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "route":
		parts = append(parts, "route", route)
	default:
		parts = append(parts, "ip", ip, "route", route)
	}
	return strings.Join(parts, ":")
}

// localLimiter keeps one token bucket per key in memory.  Idle entries are
// dropped lazily once per cleanup interval.
type localLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	cleanup   time.Duration
	lastSweep time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newLocalLimiter(r rate.Limit, burst int, cleanup time.Duration) *localLimiter {
	if cleanup <= 0 {
		cleanup = 5 * time.Minute
	}
	return &localLimiter{limiters: map[string]*limiterEntry{}, rate: r, burst: burst, cleanup: cleanup, lastSweep: time.Now()}
}

func (l *localLimiter) reserve(key string) *rate.Reservation {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) > l.cleanup {
		for k, e := range l.limiters {
			if now.Sub(e.lastAccess) > 2*l.cleanup {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}
	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = e
	}
	e.lastAccess = now
	return e.limiter.ReserveN(now, 1)
}
