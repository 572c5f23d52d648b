package resolve

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/yuin/goldmark"

	"embed-server/internal/types"
	"embed-server/internal/util"
)

// redditBodyCap limits displayed self-text, in runes.
const redditBodyCap = 300

// redditListing is the structured JSON representation of a post page: an
// array of listings whose first child is the post itself.
type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Selftext string `json:"selftext"`
	URL      string `json:"url"`
	Over18   bool   `json:"over_18"`
	Media    struct {
		RedditVideo *struct {
			FallbackURL string `json:"fallback_url"`
		} `json:"reddit_video"`
	} `json:"media"`
	SecureMedia struct {
		RedditVideo *struct {
			FallbackURL string `json:"fallback_url"`
		} `json:"reddit_video"`
	} `json:"secure_media"`
	Preview struct {
		Images []struct {
			Source struct {
				URL string `json:"url"`
			} `json:"source"`
		} `json:"images"`
	} `json:"preview"`
}

// resolveReddit fetches the post's JSON representation and extracts trimmed
// body text plus the first available hosted video or image. Tracking query
// parameters are stripped from the displayed origin link.
func (c *Chain) resolveReddit(ctx context.Context, mi types.MediaIntent) (*types.ResolvedMedia, error) {
	page, err := c.fetcher.FetchPage(ctx, redditJSONURL(mi))
	if err != nil {
		return nil, fmt.Errorf("reddit post: %w", err)
	}
	if !page.OK {
		return nil, fmt.Errorf("reddit post status %d", page.Status)
	}

	post, err := parseRedditPost(page.Body)
	if err != nil {
		return nil, fmt.Errorf("reddit payload: %w", err)
	}

	rm := &types.ResolvedMedia{
		Kind:      types.KindRedditPost,
		OriginURL: util.StripTrackingParams(mi.URL),
		Title:     post.Title,
		Author:    post.Author,
	}

	if body := strings.TrimSpace(post.Selftext); body != "" {
		rm.Text = c.renderRedditBody(util.TruncateText(body, redditBodyCap))
	}

	switch {
	case post.SecureMedia.RedditVideo != nil && post.SecureMedia.RedditVideo.FallbackURL != "":
		rm.Videos = []types.VideoItem{{URL: post.SecureMedia.RedditVideo.FallbackURL, Mime: "video/mp4"}}
	case post.Media.RedditVideo != nil && post.Media.RedditVideo.FallbackURL != "":
		rm.Videos = []types.VideoItem{{URL: post.Media.RedditVideo.FallbackURL, Mime: "video/mp4"}}
	case len(post.Preview.Images) > 0 && post.Preview.Images[0].Source.URL != "":
		// Preview URLs arrive entity-escaped inside the JSON payload.
		rm.Photos = []string{util.DecodeHTMLEntities(post.Preview.Images[0].Source.URL)}
	case isDirectFileURL(post.URL):
		rm.Photos = []string{post.URL}
	}
	return rm, nil
}

func redditJSONURL(mi types.MediaIntent) string {
	u, err := url.Parse(mi.URL)
	if err == nil && u.Host == "redd.it" {
		return "https://www.reddit.com/comments/" + mi.SourceID + ".json"
	}
	trimmed := mi.URL
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.TrimSuffix(trimmed, "/") + ".json"
}

func parseRedditPost(body []byte) (*redditPost, error) {
	var listings []redditListing
	if err := decodeJSON(body, &listings); err != nil {
		// Some endpoints return the listing bare rather than as an array.
		var single redditListing
		if err2 := decodeJSON(body, &single); err2 != nil {
			return nil, err
		}
		listings = []redditListing{single}
	}
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return nil, fmt.Errorf("empty listing")
	}
	return &listings[0].Data.Children[0].Data, nil
}

// renderRedditBody converts self-text markdown to HTML and sanitizes it down
// to safe inline markup.
func (c *Chain) renderRedditBody(text string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return c.textPol.Sanitize(text)
	}
	return c.textPol.Sanitize(buf.String())
}

func isDirectFileURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	if idx := strings.LastIndexByte(path, '.'); idx >= 0 {
		return imageExtensions[path[idx:]]
	}
	return false
}
