package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"embed-server/internal/types"
)

// TweetData is the normalized output of the multi-source tweet fetch. Source
// names which endpoint produced it: "cdn-by-id", "cdn-by-url", or "oembed".
type TweetData struct {
	Source    string
	ID        string
	Author    string
	Handle    string
	Text      string // plain text, may be empty for oembed hits
	HTML      string // oembed markup, last-resort text source
	CreatedAt *time.Time
	Photos    []string
	Videos    []types.VideoItem
	QuotedURL string
}

const tweetCDNEndpoint = "https://cdn.syndication.twimg.com/tweet-result"

// syndicationTweet is the structured JSON endpoint's payload shape.
type syndicationTweet struct {
	IDStr string `json:"id_str"`
	Text  string `json:"text"`
	User  struct {
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
	} `json:"user"`
	Photos []struct {
		URL string `json:"url"`
	} `json:"photos"`
	Video struct {
		Variants []struct {
			Type string `json:"type"`
			Src  string `json:"src"`
		} `json:"variants"`
	} `json:"video"`
	CreatedAt   string `json:"created_at"`
	QuotedTweet struct {
		IDStr string `json:"id_str"`
		User  struct {
			ScreenName string `json:"screen_name"`
		} `json:"user"`
	} `json:"quoted_tweet"`
}

// FetchTweetData runs the tweet source chain: the structured JSON endpoint
// keyed by post id, the same endpoint keyed by raw URL, then the oEmbed HTML
// endpoint as a last-resort text source. The first structurally useful result
// wins.
func (f *HTTPFetcher) FetchTweetData(ctx context.Context, rawURL string) (TweetData, error) {
	id := tweetIDFromURL(rawURL)

	if id != "" {
		if td, err := f.fetchSyndication(ctx, "cdn-by-id", url.Values{"id": {id}}); err == nil {
			return td, nil
		}
	}
	if td, err := f.fetchSyndication(ctx, "cdn-by-url", url.Values{"url": {rawURL}}); err == nil {
		return td, nil
	}

	oe, err := f.FetchOEmbed(ctx, "twitter", rawURL)
	if err != nil {
		return TweetData{}, fmt.Errorf("all tweet sources failed: %w", err)
	}
	if !oe.OK {
		return TweetData{}, fmt.Errorf("all tweet sources failed: empty oembed")
	}
	return TweetData{
		Source: "oembed",
		ID:     id,
		Author: oe.AuthorName,
		HTML:   oe.HTML,
	}, nil
}

func (f *HTTPFetcher) fetchSyndication(ctx context.Context, source string, q url.Values) (TweetData, error) {
	q.Set("token", "a") // endpoint rejects token-less requests
	page, err := f.FetchPage(ctx, tweetCDNEndpoint+"?"+q.Encode())
	if err != nil {
		return TweetData{}, err
	}
	if !page.OK {
		return TweetData{}, fmt.Errorf("%s status %d", source, page.Status)
	}

	var st syndicationTweet
	if err := decodeJSON(page.Body, &st); err != nil {
		return TweetData{}, fmt.Errorf("%s payload: %w", source, err)
	}
	if st.Text == "" && len(st.Photos) == 0 && len(st.Video.Variants) == 0 {
		return TweetData{}, fmt.Errorf("%s: structurally empty result", source)
	}

	td := TweetData{
		Source: source,
		ID:     st.IDStr,
		Author: st.User.Name,
		Handle: st.User.ScreenName,
		Text:   st.Text,
	}
	for _, p := range st.Photos {
		if p.URL != "" {
			td.Photos = append(td.Photos, p.URL)
		}
	}
	for _, v := range st.Video.Variants {
		if v.Type == "video/mp4" && v.Src != "" {
			td.Videos = append(td.Videos, types.VideoItem{URL: v.Src, Mime: v.Type})
		}
	}
	if t, err := time.Parse(time.RFC3339, st.CreatedAt); err == nil {
		td.CreatedAt = &t
	}
	if st.QuotedTweet.IDStr != "" && st.QuotedTweet.User.ScreenName != "" {
		td.QuotedURL = fmt.Sprintf("https://twitter.com/%s/status/%s",
			st.QuotedTweet.User.ScreenName, st.QuotedTweet.IDStr)
	}
	return td, nil
}

func tweetIDFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if m := tweetStatusRe.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	return ""
}

// decodeJSON unmarshals strictly enough to reject HTML error pages served
// with a 200 status.
func decodeJSON(body []byte, v interface{}) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return fmt.Errorf("not a JSON payload")
	}
	return json.Unmarshal(trimmed, v)
}
