package config

import (
	"time"
)

// CacheConfig defines settings for the public blob response cache.  When
// Enabled is false or no Redis client is configured, reads always go to the
// blob store.  Only successful GET responses up to MaxBodyBytes are kept.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.  The default TTL matches the
// max-age advertised on the snapshot document.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 60*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "bm:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 4<<20),
	}
}
