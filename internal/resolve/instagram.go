package resolve

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"embed-server/internal/types"
)

// instagramMirrorHost serves the same post pages with plainer metadata and is
// used as the penultimate fallback before settling for a bare image.
const instagramMirrorHost = "www.ddinstagram.com"

// Raw JSON keys searched in page markup when metadata lacks a video URL.
var instagramVideoKeyRe = regexp.MustCompile(`"(?:video_url|playable_url|contentUrl)"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// resolveInstagram canonicalizes reel-style paths to the post path, then
// falls through: page metadata video, raw JSON keys in the markup, the mirror
// host's metadata, and finally the page's bare preview image. With none of
// those, there is nothing to embed.
func (c *Chain) resolveInstagram(ctx context.Context, mi types.MediaIntent) (*types.ResolvedMedia, error) {
	canonical, err := canonicalInstagramURL(mi.URL, mi.SourceID)
	if err != nil {
		return nil, err
	}

	rm := &types.ResolvedMedia{
		Kind:      types.KindInstagram,
		OriginURL: canonical,
	}

	var meta pageMeta
	page, err := c.fetcher.FetchPage(ctx, canonical)
	if err == nil && page.OK {
		if m, err := extractMeta(page.Body); err == nil {
			meta = m
			rm.Title = m.Title
		}
		if meta.Video != "" {
			rm.Videos = []types.VideoItem{{URL: meta.Video, Mime: "video/mp4"}}
			return rm, nil
		}
		if m := instagramVideoKeyRe.FindSubmatch(page.Body); m != nil {
			rm.Videos = []types.VideoItem{{URL: unescapeJSONString(string(m[1])), Mime: "video/mp4"}}
			return rm, nil
		}
	}

	// Mirror host fallback: same canonical path, alternate front-end.
	if mirror, err := mirrorInstagramURL(canonical); err == nil {
		if mpage, err := c.fetcher.FetchPage(ctx, mirror); err == nil && mpage.OK {
			if m, err := extractMeta(mpage.Body); err == nil {
				if m.Video != "" {
					rm.Videos = []types.VideoItem{{URL: m.Video, Mime: "video/mp4"}}
					return rm, nil
				}
				if meta.Image == "" {
					meta.Image = m.Image
				}
				if rm.Title == "" {
					rm.Title = m.Title
				}
			}
		}
	}

	if meta.Image != "" {
		rm.Photos = []string{meta.Image}
		return rm, nil
	}

	// No video, no mirror result, no preview image: nothing to embed.
	return nil, nil
}

// canonicalInstagramURL rewrites /reel/ and /tv/ paths to the canonical /p/
// post path.
func canonicalInstagramURL(rawURL, shortcode string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("instagram url: %w", err)
	}
	if shortcode == "" {
		return "", fmt.Errorf("instagram url: missing shortcode")
	}
	u.Path = "/p/" + shortcode + "/"
	u.RawQuery = ""
	u.Fragment = ""
	if u.Host == "" {
		u.Scheme, u.Host = "https", "www.instagram.com"
	}
	return u.String(), nil
}

func mirrorInstagramURL(canonical string) (string, error) {
	u, err := url.Parse(canonical)
	if err != nil {
		return "", err
	}
	u.Host = instagramMirrorHost
	if !strings.HasPrefix(u.Path, "/p/") {
		return "", fmt.Errorf("not a canonical post path: %s", u.Path)
	}
	return u.String(), nil
}
