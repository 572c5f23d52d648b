package resolve

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"embed-server/internal/types"
)

// Direct file links need no fetch; the URL itself is the media.

func (c *Chain) resolveDirectImage(ctx context.Context, mi types.MediaIntent) (*types.ResolvedMedia, error) {
	return &types.ResolvedMedia{
		Kind:      types.KindDirectImage,
		OriginURL: mi.URL,
		Photos:    []string{mi.URL},
	}, nil
}

func (c *Chain) resolveDirectVideo(ctx context.Context, mi types.MediaIntent) (*types.ResolvedMedia, error) {
	mime := mi.SourceID
	if mime == "" {
		mime = "video/mp4"
	}
	return &types.ResolvedMedia{
		Kind:      types.KindDirectVideo,
		OriginURL: mi.URL,
		Videos:    []types.VideoItem{{URL: mi.URL, Mime: mime}},
	}, nil
}

// resolveRedditMediaRedirect unwraps the media-redirect URL carried in the
// intent and embeds its target directly. The target must itself point at a
// direct file on an allow-listed media host.
func (c *Chain) resolveRedditMediaRedirect(ctx context.Context, mi types.MediaIntent) (*types.ResolvedMedia, error) {
	target, err := url.QueryUnescape(mi.SourceID)
	if err != nil {
		target = mi.SourceID
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("media redirect target: %w", err)
	}

	path := strings.ToLower(u.Path)
	if idx := strings.LastIndexByte(path, '.'); idx >= 0 {
		ext := path[idx:]
		if imageExtensions[ext] {
			return &types.ResolvedMedia{
				Kind:      types.KindDirectImage,
				OriginURL: target,
				Photos:    []string{target},
			}, nil
		}
		if mime, ok := videoExtensions[ext]; ok {
			return &types.ResolvedMedia{
				Kind:      types.KindDirectVideo,
				OriginURL: target,
				Videos:    []types.VideoItem{{URL: target, Mime: mime}},
			}, nil
		}
	}
	return nil, fmt.Errorf("media redirect target is not a direct file: %s", target)
}

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}
var videoExtensions = map[string]string{".mp4": "video/mp4", ".webm": "video/webm", ".mov": "video/quicktime"}
