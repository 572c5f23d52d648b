package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"embed-server/internal/cache"
	"embed-server/internal/card"
	"embed-server/internal/config"
	"embed-server/internal/resolve"
)

// serverDeps bundles the shared services every session draws on.
type serverDeps struct {
	cfg         *config.Config
	chain       *resolve.Chain
	renderer    *card.Renderer
	settings    *SettingsCache
	proxyClient *http.Client
}

// securityHeaders wraps an HTTP handler to add security headers
func securityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next(w, r)
	}
}

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("dotenv load failed", "error", err)
	}

	initLogger()
	cfg := config.Load()

	var backend cache.Backend
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.RedisURL, "embed")
		if err != nil {
			slog.Error("redis cache init failed, falling back to memory", "error", err)
			backend = cache.NewMemoryCache(cfg.CacheMaxEntries, time.Minute)
		} else {
			backend = rc
			opts, _ := redis.ParseURL(cfg.RedisURL)
			rdb = redis.NewClient(opts)
		}
	} else {
		backend = cache.NewMemoryCache(cfg.CacheMaxEntries, time.Minute)
	}
	defer backend.Close()

	fetcher := resolve.NewHTTPFetcher(resolve.HTTPFetcherConfig{
		Timeout:      cfg.FetchTimeout,
		RateInterval: cfg.FetchRate,
		Burst:        cfg.FetchBurst,
		UserAgent:    cfg.UserAgent,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})
	chain := resolve.NewChain(fetcher, resolve.ChainConfig{
		Cache:          backend,
		RefreshDefault: cfg.RefreshDefault,
		OnCacheHit:     cacheHitsTotal.Inc,
		OnCacheMiss:    cacheMissesTotal.Inc,
	})

	settings := NewSettingsCache(rdb, cfg.SettingsKey, cfg.SettingsChannel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	settings.Start(ctx)

	deps := &serverDeps{
		cfg:      cfg,
		chain:    chain,
		renderer: card.NewRenderer("/media/proxy?src="),
		settings: settings,
		proxyClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", bridgeHandler(deps))
	mux.HandleFunc("/media/proxy", securityHeaders(mediaProxyHandler(deps)))
	mux.HandleFunc("/healthz", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())

	handler := accessLog(mux)

	slog.Info("starting embed server", "port", cfg.Port, "chat_path", cfg.ChatPath)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
