package resolve

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"embed-server/internal/types"
)

// Media caps for a single tweet card.
const (
	maxTweetPhotos = 4
	maxTweetVideos = 2
)

var (
	tweetStatusRe = regexp.MustCompile(`^/[^/]+/status(?:es)?/(\d+)`)
	inlineURLRe   = regexp.MustCompile(`https?://[^\s<>"']+`)
)

// mirrorMedia is one mirror endpoint's partial enrichment.
type mirrorMedia struct {
	Text      string
	Photos    []string
	Videos    []types.VideoItem
	QuotedURL string
}

// mirrorSource is one alternate JSON endpoint providing direct media URLs.
// Sources are tried in slice order; the first yielding at least one media URL
// wins. Adding or removing a mirror is a local change here.
type mirrorSource struct {
	name     string
	endpoint func(id string) string
	parse    func(body []byte) (*mirrorMedia, error)
}

var tweetMirrors = []mirrorSource{
	{
		name:     "fx-mirror",
		endpoint: func(id string) string { return "https://api.fxtwitter.com/status/" + id },
		parse:    parseFxMirror,
	},
	{
		name:     "vx-mirror",
		endpoint: func(id string) string { return "https://api.vxtwitter.com/i/status/" + id },
		parse:    parseVxMirror,
	},
}

func parseFxMirror(body []byte) (*mirrorMedia, error) {
	var payload struct {
		Code  int `json:"code"`
		Tweet struct {
			Text  string `json:"text"`
			Media struct {
				Photos []struct {
					URL string `json:"url"`
				} `json:"photos"`
				Videos []struct {
					URL    string `json:"url"`
					Format string `json:"format"`
				} `json:"videos"`
			} `json:"media"`
			Quote struct {
				URL string `json:"url"`
			} `json:"quote"`
		} `json:"tweet"`
	}
	if err := decodeJSON(body, &payload); err != nil {
		return nil, err
	}
	if payload.Code != 0 && payload.Code != 200 {
		return nil, fmt.Errorf("fx-mirror code %d", payload.Code)
	}
	mm := &mirrorMedia{Text: payload.Tweet.Text, QuotedURL: payload.Tweet.Quote.URL}
	for _, p := range payload.Tweet.Media.Photos {
		if p.URL != "" {
			mm.Photos = append(mm.Photos, p.URL)
		}
	}
	for _, v := range payload.Tweet.Media.Videos {
		if v.URL == "" {
			continue
		}
		mime := v.Format
		if mime == "" {
			mime = "video/mp4"
		}
		mm.Videos = append(mm.Videos, types.VideoItem{URL: v.URL, Mime: mime})
	}
	return mm, nil
}

func parseVxMirror(body []byte) (*mirrorMedia, error) {
	var payload struct {
		Text          string `json:"text"`
		QrtURL        string `json:"qrtURL"`
		MediaExtended []struct {
			URL  string `json:"url"`
			Type string `json:"type"`
		} `json:"media_extended"`
	}
	if err := decodeJSON(body, &payload); err != nil {
		return nil, err
	}
	mm := &mirrorMedia{Text: payload.Text, QuotedURL: payload.QrtURL}
	for _, m := range payload.MediaExtended {
		switch m.Type {
		case "image":
			mm.Photos = append(mm.Photos, m.URL)
		case "video", "gif":
			mm.Videos = append(mm.Videos, types.VideoItem{URL: m.URL, Mime: "video/mp4"})
		}
	}
	return mm, nil
}

// resolveTweet runs the primary source chain, enriches media from the mirror
// endpoints, and issues at most one extra pass for a quoted/parent post.
func (c *Chain) resolveTweet(ctx context.Context, mi types.MediaIntent) (*types.ResolvedMedia, error) {
	return c.resolveTweetURL(ctx, mi.URL, 1)
}

func (c *Chain) resolveTweetURL(ctx context.Context, rawURL string, depth int) (*types.ResolvedMedia, error) {
	td, primaryErr := c.fetcher.FetchTweetData(ctx, rawURL)

	rm := &types.ResolvedMedia{
		Kind:      types.KindTweet,
		OriginURL: rawURL,
		Author:    td.Author,
		CreatedAt: td.CreatedAt,
		Photos:    td.Photos,
		Videos:    td.Videos,
	}
	switch {
	case td.Text != "":
		rm.Text = c.renderTweetText(td.Text)
	case td.HTML != "":
		rm.Text = c.textPol.Sanitize(td.HTML)
	}
	if td.Handle != "" {
		rm.Title = "@" + td.Handle
	}

	quoted := td.QuotedURL

	// Mirror enrichment runs independently of the primary outcome: it can both
	// fill media gaps in an accepted result and salvage a failed primary.
	if !rm.HasMedia() {
		if mm := c.enrichFromMirrors(ctx, rawURL); mm != nil {
			rm.Photos = mm.Photos
			rm.Videos = mm.Videos
			if rm.Text == "" && mm.Text != "" {
				rm.Text = c.renderTweetText(mm.Text)
			}
			if quoted == "" {
				quoted = mm.QuotedURL
			}
		}
	}

	// One bounded pass for a quoted/parent post when the post itself had no
	// inline media; merged without discarding already-rendered text.
	if !rm.HasMedia() && quoted != "" && depth > 0 {
		if qrm, err := c.resolveTweetURL(ctx, quoted, depth-1); err == nil && qrm != nil {
			rm.Photos = append(rm.Photos, qrm.Photos...)
			rm.Videos = append(rm.Videos, qrm.Videos...)
			if rm.Text == "" {
				rm.Text = qrm.Text
			}
		}
	}

	if len(rm.Photos) > maxTweetPhotos {
		rm.Photos = rm.Photos[:maxTweetPhotos]
	}
	if len(rm.Videos) > maxTweetVideos {
		rm.Videos = rm.Videos[:maxTweetVideos]
	}

	if primaryErr != nil && !rm.HasMedia() && rm.Text == "" {
		return nil, fmt.Errorf("tweet resolution: %w", primaryErr)
	}
	return rm, nil
}

// enrichFromMirrors tries each mirror in priority order and returns the first
// result with at least one media URL.
func (c *Chain) enrichFromMirrors(ctx context.Context, rawURL string) *mirrorMedia {
	id := tweetIDFromURL(rawURL)
	if id == "" {
		return nil
	}
	for _, src := range tweetMirrors {
		page, err := c.fetcher.FetchPage(ctx, src.endpoint(id))
		if err != nil || !page.OK {
			continue
		}
		mm, err := src.parse(page.Body)
		if err != nil {
			continue
		}
		if len(mm.Photos) > 0 || len(mm.Videos) > 0 {
			return mm
		}
	}
	return nil
}

// renderTweetText escapes plain tweet text, linkifies bare URLs, and runs the
// result through the sanitizer so only safe inline links survive.
func (c *Chain) renderTweetText(text string) string {
	escaped := html.EscapeString(text)
	linked := inlineURLRe.ReplaceAllStringFunc(escaped, func(m string) string {
		unescaped := html.UnescapeString(m)
		return `<a href="` + html.EscapeString(unescaped) + `">` + m + `</a>`
	})
	linked = strings.ReplaceAll(linked, "\n", "<br>")
	return c.textPol.Sanitize(linked)
}
