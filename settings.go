package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"embed-server/internal/types"
)

// SettingsCache holds the current embed settings snapshot. Settings are read
// once from Redis at startup and refreshed when the settings channel fires;
// every session reads the same snapshot and applies its own per-session
// overrides on top.
type SettingsCache struct {
	mu       sync.RWMutex
	current  types.Settings
	rdb      *redis.Client
	key      string
	channel  string
	onChange []func(types.Settings)
}

// NewSettingsCache creates a cache primed with defaults. rdb may be nil, in
// which case the defaults stand until UpdateSettings is called directly.
func NewSettingsCache(rdb *redis.Client, key, channel string) *SettingsCache {
	return &SettingsCache{
		current: types.DefaultSettings(),
		rdb:     rdb,
		key:     key,
		channel: channel,
	}
}

// Current returns the active settings snapshot.
func (sc *SettingsCache) Current() types.Settings {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.current
}

// OnChange registers a callback invoked after every settings update. Must be
// called before Start.
func (sc *SettingsCache) OnChange(fn func(types.Settings)) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.onChange = append(sc.onChange, fn)
}

// UpdateSettings replaces the snapshot and notifies subscribers.
func (sc *SettingsCache) UpdateSettings(s types.Settings) {
	sc.mu.Lock()
	sc.current = s
	callbacks := make([]func(types.Settings), len(sc.onChange))
	copy(callbacks, sc.onChange)
	sc.mu.Unlock()

	for _, fn := range callbacks {
		fn(s)
	}
}

// Start loads the stored settings and listens for update notifications until
// ctx is cancelled. Missing or unparseable stored settings fall back to
// defaults rather than failing.
func (sc *SettingsCache) Start(ctx context.Context) {
	if sc.rdb == nil {
		slog.Info("settings cache running on defaults, no redis configured")
		return
	}

	if s, ok := sc.load(ctx); ok {
		sc.UpdateSettings(s)
	}

	sub := sc.rdb.Subscribe(ctx, sc.channel)
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if s, loaded := sc.load(ctx); loaded {
					sc.UpdateSettings(s)
					slog.Info("settings reloaded", "trigger", msg.Channel)
				}
			}
		}
	}()
}

func (sc *SettingsCache) load(ctx context.Context) (types.Settings, bool) {
	raw, err := sc.rdb.Get(ctx, sc.key).Bytes()
	if err == redis.Nil {
		slog.Debug("no stored settings, using defaults", "key", sc.key)
		return types.DefaultSettings(), true
	}
	if err != nil {
		slog.Warn("settings load failed", "key", sc.key, "error", err)
		return types.Settings{}, false
	}

	s := types.DefaultSettings()
	if err := json.Unmarshal(raw, &s); err != nil {
		slog.Warn("settings decode failed, keeping defaults", "key", sc.key, "error", err)
		return types.DefaultSettings(), true
	}
	return s, true
}
