package config

import (
	"os"
	"time"
)

// Rate limit key strategies.
const (
	KeyIP          = "ip"
	KeyUser        = "user"
	KeyIPUserRoute = "ip_user_route"
)

// RateLimitConfig drives the token-bucket limiter on mutating routes.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 30),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 2*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", KeyIPUserRoute),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "dorm:rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		def.RefillTokens = 1
		def.RefillInterval = every
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	// a bucket must outlive a full refill
	if minTTL := time.Duration(def.Capacity/def.RefillTokens+1) * def.RefillInterval; def.TTL < minTTL {
		def.TTL = minTTL
	}
	switch def.KeyStrategy {
	case KeyIP, KeyUser, KeyIPUserRoute:
	default:
		def.KeyStrategy = KeyIPUserRoute
	}
	return def
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
