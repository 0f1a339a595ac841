package config

import (
	"os"
	"time"
)

// PermCacheConfig controls the Redis-backed permission snapshot cache.
// Cache keys embed the permission version, so the TTL only bounds how long
// snapshots from superseded versions linger; correctness does not depend on
// it. When Enabled is false or no Redis client is available, every request
// recomputes from the preset tables.
type PermCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadPermCacheConfig reads environment variables with defaults.
func LoadPermCacheConfig() PermCacheConfig {
	return PermCacheConfig{
		Enabled: getenv("PERM_CACHE_ENABLED", "true") == "true",
		TTL:     parseDur(getenv("PERM_CACHE_TTL", "5m")),
		Prefix:  getenv("PERM_CACHE_PREFIX", "perm"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
