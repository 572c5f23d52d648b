package resolve

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"embed-server/internal/types"
	"embed-server/internal/util"
)

// Stream pages embed a live flag near a title field inside inline JSON, but
// the upstream page structure does not guarantee field order, so both
// orderings are searched.
var (
	twitchFlagThenTitle = regexp.MustCompile(`"isLiveBroadcast"\s*:\s*true[^{}]*?"name"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	twitchTitleThenFlag = regexp.MustCompile(`"name"\s*:\s*"((?:[^"\\]|\\.)*)"[^{}]*?"isLiveBroadcast"\s*:\s*true`)

	kickFlagThenTitle = regexp.MustCompile(`"is_live"\s*:\s*true[^{}]*?"session_title"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	kickTitleThenFlag = regexp.MustCompile(`"session_title"\s*:\s*"((?:[^"\\]|\\.)*)"[^{}]*?"is_live"\s*:\s*true`)

	kickThumbRe = regexp.MustCompile(`"thumbnail"\s*:\s*{[^{}]*?"(?:url|src)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// liveTitle searches the page body with both field orderings and returns the
// live title if the live flag is set.
func liveTitle(body []byte, flagThenTitle, titleThenFlag *regexp.Regexp) (string, bool) {
	if m := flagThenTitle.FindSubmatch(body); m != nil {
		return unescapeJSONString(string(m[1])), true
	}
	if m := titleThenFlag.FindSubmatch(body); m != nil {
		return unescapeJSONString(string(m[1])), true
	}
	return "", false
}

func unescapeJSONString(s string) string {
	r := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\/`, `/`, `\n`, " ", `\t`, " ")
	return r.Replace(s)
}

// resolveYouTube needs no fetch: the embed URL is derived from the video id.
func (c *Chain) resolveYouTube(ctx context.Context, mi types.MediaIntent) (*types.ResolvedMedia, error) {
	if mi.SourceID == "" {
		return nil, fmt.Errorf("youtube: missing video id")
	}
	return &types.ResolvedMedia{
		Kind:      types.KindYouTube,
		OriginURL: mi.URL,
		EmbedURL:  util.YouTubeEmbedBaseURL + "/" + mi.SourceID,
	}, nil
}

// resolveTwitch fetches the channel (or video) page and reads live metadata.
// Live channels get a live-preview thumbnail and a periodic refresh.
func (c *Chain) resolveTwitch(ctx context.Context, mi types.MediaIntent) (*types.ResolvedMedia, error) {
	if id, ok := strings.CutPrefix(mi.SourceID, "video:"); ok {
		return c.resolveTwitchVideo(ctx, mi, id)
	}
	channel := strings.ToLower(mi.SourceID)
	if channel == "" {
		return nil, fmt.Errorf("twitch: missing channel")
	}

	page, err := c.fetcher.FetchPage(ctx, "https://www.twitch.tv/"+channel)
	if err != nil {
		return nil, fmt.Errorf("twitch channel page: %w", err)
	}
	if !page.OK {
		return nil, fmt.Errorf("twitch channel page status %d", page.Status)
	}

	rm := &types.ResolvedMedia{
		Kind:      types.KindTwitch,
		OriginURL: mi.URL,
		Title:     channel,
		EmbedURL:  util.TwitchEmbedBaseURL + "/?channel=" + channel,
	}

	meta, metaErr := extractMeta(page.Body)
	if metaErr == nil {
		rm.Thumbnail = meta.Image
		if meta.Title != "" {
			rm.Title = meta.Title
		}
	}

	if title, live := liveTitle(page.Body, twitchFlagThenTitle, twitchTitleThenFlag); live {
		rm.Live = true
		if title != "" {
			rm.Title = title
		}
		// Live preview thumbnails come from the preview CDN and change as the
		// broadcast runs, hence the periodic refresh.
		rm.Thumbnail = fmt.Sprintf("https://static-cdn.jtvnw.net/previews-ttv/live_user_%s-640x360.jpg", channel)
		rm.RefreshEvery = c.refresh
	}
	return rm, nil
}

func (c *Chain) resolveTwitchVideo(ctx context.Context, mi types.MediaIntent, videoID string) (*types.ResolvedMedia, error) {
	rm := &types.ResolvedMedia{
		Kind:      types.KindTwitch,
		OriginURL: mi.URL,
		Title:     "twitch video " + videoID,
		EmbedURL:  util.TwitchEmbedBaseURL + "/?video=" + videoID,
	}
	page, err := c.fetcher.FetchPage(ctx, "https://www.twitch.tv/videos/"+videoID)
	if err == nil && page.OK {
		if meta, err := extractMeta(page.Body); err == nil {
			if meta.Title != "" {
				rm.Title = meta.Title
			}
			rm.Thumbnail = meta.Image
		}
	}
	return rm, nil
}

// resolveKick mirrors the twitch resolver for the kick-like platform.
func (c *Chain) resolveKick(ctx context.Context, mi types.MediaIntent) (*types.ResolvedMedia, error) {
	channel := strings.ToLower(mi.SourceID)
	if channel == "" {
		return nil, fmt.Errorf("kick: missing channel")
	}

	page, err := c.fetcher.FetchPage(ctx, "https://kick.com/"+channel)
	if err != nil {
		return nil, fmt.Errorf("kick channel page: %w", err)
	}
	if !page.OK {
		return nil, fmt.Errorf("kick channel page status %d", page.Status)
	}

	rm := &types.ResolvedMedia{
		Kind:      types.KindKick,
		OriginURL: mi.URL,
		Title:     channel,
		EmbedURL:  util.KickEmbedBaseURL + "/" + channel,
	}

	if meta, err := extractMeta(page.Body); err == nil {
		rm.Thumbnail = meta.Image
		if meta.Title != "" {
			rm.Title = meta.Title
		}
	}

	if title, live := liveTitle(page.Body, kickFlagThenTitle, kickTitleThenFlag); live {
		rm.Live = true
		if title != "" {
			rm.Title = title
		}
		if m := kickThumbRe.FindSubmatch(page.Body); m != nil {
			rm.Thumbnail = unescapeJSONString(string(m[1]))
		}
		rm.RefreshEvery = c.refresh
	}
	return rm, nil
}
