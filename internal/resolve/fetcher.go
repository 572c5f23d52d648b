// Package resolve turns classified media intents into renderable results by
// racing and falling back across several unreliable network sources. Every
// resolver degrades to an error the caller renders as a plain-link card;
// nothing here is fatal.
package resolve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"embed-server/internal/util"
)

// PageResult is the outcome of one page fetch. FinalURL reflects redirects,
// which is how shortlink expansion learns the destination.
type PageResult struct {
	OK       bool
	Status   int
	Body     []byte
	FinalURL string
}

// OEmbedResult is the subset of an oEmbed response the tweet chain uses.
type OEmbedResult struct {
	OK         bool
	HTML       string `json:"html"`
	AuthorName string `json:"author_name"`
	Title      string `json:"title"`
	URL        string `json:"url"`
}

// Fetcher is the network collaborator the resolver chain depends on. The
// production implementation is an allow-listed, rate-limited HTTP client;
// tests substitute fakes.
type Fetcher interface {
	FetchPage(ctx context.Context, rawURL string) (PageResult, error)
	FetchOEmbed(ctx context.Context, provider, rawURL string) (OEmbedResult, error)
	FetchTweetData(ctx context.Context, rawURL string) (TweetData, error)
}

// fetchableHosts is the outbound allow-list. Off-list hosts are never fetched,
// independent of what the classifier admitted.
var fetchableHosts = []string{
	"twitter.com",
	"x.com",
	"t.co",
	"twimg.com",
	"fxtwitter.com",
	"vxtwitter.com",
	"twitch.tv",
	"kick.com",
	"imgur.com",
	"instagram.com",
	"ddinstagram.com",
	"reddit.com",
	"redd.it",
	"catbox.moe",
	"tenor.com",
	"giphy.com",
	"ibb.co",
}

// HTTPFetcher implements Fetcher over net/http with a shared rate limiter.
type HTTPFetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	ua       string
	maxBody  int64
	allowed  func(host string) bool
}

// HTTPFetcherConfig configures the production fetcher.
type HTTPFetcherConfig struct {
	Timeout      time.Duration
	RateInterval time.Duration
	Burst        int
	UserAgent    string
	MaxBodyBytes int64
	// AllowHost overrides the built-in allow-list when set (tests).
	AllowHost func(host string) bool
}

// NewHTTPFetcher creates the production fetcher.
func NewHTTPFetcher(cfg HTTPFetcherConfig) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateInterval <= 0 {
		cfg.RateInterval = 250 * time.Millisecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 4
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 2 * 1024 * 1024
	}
	allowed := cfg.AllowHost
	if allowed == nil {
		allowed = hostAllowed
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(cfg.RateInterval), cfg.Burst),
		ua:      cfg.UserAgent,
		maxBody: cfg.MaxBodyBytes,
		allowed: allowed,
	}
}

func hostAllowed(host string) bool {
	if util.IsPrivateHost(host) {
		return false
	}
	for _, base := range fetchableHosts {
		if util.HostMatches(host, base) {
			return true
		}
	}
	return false
}

// FetchPage fetches a page body within the allow-list, following redirects
// and reporting the final URL.
func (f *HTTPFetcher) FetchPage(ctx context.Context, rawURL string) (PageResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PageResult{}, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return PageResult{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if !f.allowed(u.Hostname()) {
		return PageResult{}, fmt.Errorf("host %q not on allow-list", u.Hostname())
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return PageResult{}, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return PageResult{}, err
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return PageResult{}, fmt.Errorf("fetch %s: %w", u.Hostname(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return PageResult{}, fmt.Errorf("read body: %w", err)
	}

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return PageResult{
		OK:       resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:   resp.StatusCode,
		Body:     body,
		FinalURL: final,
	}, nil
}

// oembedProviders maps provider names to their oEmbed endpoints.
var oembedProviders = map[string]string{
	"twitter": "https://publish.twitter.com/oembed",
}

// FetchOEmbed queries a provider's oEmbed endpoint for a URL.
func (f *HTTPFetcher) FetchOEmbed(ctx context.Context, provider, rawURL string) (OEmbedResult, error) {
	endpoint, ok := oembedProviders[strings.ToLower(provider)]
	if !ok {
		return OEmbedResult{}, fmt.Errorf("unknown oembed provider %q", provider)
	}
	q := url.Values{}
	q.Set("url", rawURL)
	q.Set("omit_script", "1")
	q.Set("dnt", "1")

	page, err := f.FetchPage(ctx, endpoint+"?"+q.Encode())
	if err != nil {
		return OEmbedResult{}, err
	}
	if !page.OK {
		return OEmbedResult{}, fmt.Errorf("oembed status %d", page.Status)
	}
	var res OEmbedResult
	if err := decodeJSON(page.Body, &res); err != nil {
		return OEmbedResult{}, fmt.Errorf("oembed payload: %w", err)
	}
	res.OK = res.HTML != "" || res.AuthorName != ""
	return res, nil
}
