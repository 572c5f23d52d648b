package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/singleflight"

	"embed-server/internal/cache"
	"embed-server/internal/types"
)

// resolverFunc resolves one intent kind. Every provider path is enumerable in
// the dispatch table and testable in isolation.
type resolverFunc func(ctx context.Context, mi types.MediaIntent) (*types.ResolvedMedia, error)

// Chain dispatches intents to per-kind resolvers, deduplicates concurrent
// work on the same target URL, and caches results.
type Chain struct {
	fetcher  Fetcher
	cache    cache.Backend
	ttl      cache.Config
	group    singleflight.Group
	table    map[types.IntentKind]resolverFunc
	textPol  *bluemonday.Policy
	refresh  time.Duration

	onHit  func()
	onMiss func()
}

// ChainConfig configures a resolver chain.
type ChainConfig struct {
	Cache          cache.Backend
	TTL            cache.Config
	RefreshDefault time.Duration // live-stream thumbnail refresh, min 15s

	// Optional cache instrumentation hooks.
	OnCacheHit  func()
	OnCacheMiss func()
}

// NewChain builds the chain with every provider resolver registered.
func NewChain(f Fetcher, cfg ChainConfig) *Chain {
	if cfg.RefreshDefault < 15*time.Second {
		cfg.RefreshDefault = 60 * time.Second
	}
	if cfg.TTL == (cache.Config{}) {
		cfg.TTL = cache.DefaultConfig()
	}
	c := &Chain{
		fetcher: f,
		cache:   cfg.Cache,
		ttl:     cfg.TTL,
		textPol: textPolicy(),
		refresh: cfg.RefreshDefault,
		onHit:   cfg.OnCacheHit,
		onMiss:  cfg.OnCacheMiss,
	}
	if c.onHit == nil {
		c.onHit = func() {}
	}
	if c.onMiss == nil {
		c.onMiss = func() {}
	}
	c.table = map[types.IntentKind]resolverFunc{
		types.KindTweet:                  c.resolveTweet,
		types.KindDirectImage:            c.resolveDirectImage,
		types.KindDirectVideo:            c.resolveDirectVideo,
		types.KindYouTube:                c.resolveYouTube,
		types.KindTwitch:                 c.resolveTwitch,
		types.KindKick:                   c.resolveKick,
		types.KindTwitchBigscreenChannel: c.resolveTwitch,
		types.KindImgur:                  c.resolveImgur,
		types.KindInstagram:              c.resolveInstagram,
		types.KindRedditPost:             c.resolveReddit,
		types.KindRedditMediaRedirect:    c.resolveRedditMediaRedirect,
	}
	return c
}

// textPolicy sanitizes resolver text that may carry inline links. Anything
// beyond basic formatting and safe anchors is stripped.
func textPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("a", "b", "i", "em", "strong", "br", "p", "span")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Resolve runs the per-kind resolver for an intent. Failures come back as
// errors for the caller to degrade into a fallback card; a nil result with a
// nil error means "resolved to nothing, insert no card" (e.g. media-less
// social pages with no usable preview).
func (c *Chain) Resolve(ctx context.Context, mi types.MediaIntent) (*types.ResolvedMedia, error) {
	fn, ok := c.table[mi.Kind]
	if !ok {
		return nil, fmt.Errorf("no resolver for kind %q", mi.Kind)
	}

	key := string(mi.Kind) + ":" + mi.URL

	if rm, err, ok := c.cacheGet(ctx, key); ok {
		c.onHit()
		return rm, err
	}
	c.onMiss()

	out, err, shared := c.group.Do(key, func() (interface{}, error) {
		rm, err := fn(ctx, mi)
		if err != nil {
			c.cacheFail(ctx, key)
			return nil, err
		}
		c.cachePut(ctx, key, rm)
		return rm, nil
	})
	if shared {
		slog.Debug("singleflight: shared resolution", "key", key)
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	return out.(*types.ResolvedMedia), nil
}

// errRecentlyFailed is returned on a negative-cache hit: repeats of a dead
// link degrade to a fallback card without hitting the provider again.
var errRecentlyFailed = errors.New("resolution failed recently")

// cachedResult wraps a resolver result so the deliberate "nothing to embed"
// and "resolution failed" outcomes are cacheable too.
type cachedResult struct {
	Failed bool                 `json:"failed,omitempty"`
	Empty  bool                 `json:"empty,omitempty"`
	Media  *types.ResolvedMedia `json:"media,omitempty"`
}

func (c *Chain) cacheGet(ctx context.Context, key string) (*types.ResolvedMedia, error, bool) {
	if c.cache == nil {
		return nil, nil, false
	}
	raw, found, err := c.cache.Get(ctx, "resolved:"+key)
	if err != nil || !found {
		return nil, nil, false
	}
	var cr cachedResult
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, nil, false
	}
	switch {
	case cr.Failed:
		return nil, errRecentlyFailed, true
	case cr.Empty:
		return nil, nil, true
	}
	return cr.Media, nil, true
}

// cacheFail stores a short-lived failure marker so retries happen, just not
// on every rescan.
func (c *Chain) cacheFail(ctx context.Context, key string) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(cachedResult{Failed: true})
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, "resolved:"+key, raw, c.ttl.ResolvedFailTTL); err != nil {
		slog.Debug("failure cache write failed", "key", key, "error", err)
	}
}

func (c *Chain) cachePut(ctx context.Context, key string, rm *types.ResolvedMedia) {
	if c.cache == nil {
		return
	}
	ttl := c.ttl.ResolvedTTL
	if rm != nil && rm.Live {
		ttl = c.ttl.StreamTTL
	}
	raw, err := json.Marshal(cachedResult{Empty: rm == nil, Media: rm})
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, "resolved:"+key, raw, ttl); err != nil {
		slog.Debug("resolved cache write failed", "key", key, "error", err)
	}
}
