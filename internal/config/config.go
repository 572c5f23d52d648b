// Package config loads environment variables and provides a typed Config used
// across the service. It applies sensible defaults so the binary can run
// locally with minimal setup.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// HTTP
	Port     string
	ChatPath string // the only page path the bridge activates on

	// Redis (optional; absent means in-memory cache and default settings)
	RedisURL        string
	SettingsKey     string
	SettingsChannel string

	// Resolver chain
	FetchTimeout   time.Duration
	FetchRate      time.Duration // minimum interval between outbound fetches
	FetchBurst     int
	UserAgent      string
	MaxBodyBytes   int64
	RefreshDefault time.Duration // live-stream thumbnail refresh
	RefreshMin     time.Duration

	// Cache
	CacheMaxEntries int
}

// Load reads environment variables and applies defaults. Nothing here is
// required; missing optional variables disable features (e.g. Redis).
func Load() *Config {
	cfg := &Config{
		Port:            envOr("PORT", "8080"),
		ChatPath:        envOr("CHAT_PATH", "/chat"),
		RedisURL:        os.Getenv("REDIS_URL"),
		SettingsKey:     envOr("SETTINGS_KEY", "embed:settings"),
		SettingsChannel: envOr("SETTINGS_CHANNEL", "embed:settings:updated"),
		FetchTimeout:    envDuration("FETCH_TIMEOUT", 10*time.Second),
		FetchRate:       envDuration("FETCH_RATE", 250*time.Millisecond),
		FetchBurst:      envInt("FETCH_BURST", 4),
		UserAgent:       envOr("FETCH_USER_AGENT", "Mozilla/5.0 (compatible; EmbedServerBot/1.0)"),
		MaxBodyBytes:    int64(envInt("FETCH_MAX_BODY", 2*1024*1024)),
		RefreshDefault:  envDuration("STREAM_REFRESH", 60*time.Second),
		RefreshMin:      15 * time.Second,
		CacheMaxEntries: envInt("CACHE_MAX_ENTRIES", 10000),
	}

	if cfg.RefreshDefault < cfg.RefreshMin {
		cfg.RefreshDefault = cfg.RefreshMin
	}
	return cfg
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
