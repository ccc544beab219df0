package config

import "time"

// RateLimitConfig configures the per-client API throttle.  The Redis token
// bucket is used when a client is available; otherwise an in-process
// limiter with LocalRPS/Capacity takes over.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string // "ip", "route" or "ip_route"
	Prefix         string
	LocalRPS       float64
	LocalCleanup   time.Duration
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  The refill rate is
// clamped to at least one token per interval, and entries live for at
// least five intervals so a bucket is never evicted while refilling.
func LoadRateLimitConfig() RateLimitConfig {
	rl := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 30),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 2*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "bm:rl"),
		LocalCleanup:   envDur("RATE_LIMIT_LOCAL_CLEANUP", 5*time.Minute),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	rl.Capacity = max(rl.Capacity, 1)
	rl.RefillTokens = max(rl.RefillTokens, 1)
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	rl.LocalRPS = float64(rl.RefillTokens) / rl.RefillInterval.Seconds()
	rl.TTL = max(rl.TTL, 5*rl.RefillInterval)
	return rl
}
