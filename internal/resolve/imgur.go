package resolve

import (
	"context"
	"fmt"

	"embed-server/internal/types"
)

// resolveImgur handles gallery/page links with no direct file extension: the
// page's structured preview metadata names a direct video URL first, then a
// direct image URL. Video wins when both exist.
func (c *Chain) resolveImgur(ctx context.Context, mi types.MediaIntent) (*types.ResolvedMedia, error) {
	page, err := c.fetcher.FetchPage(ctx, mi.URL)
	if err != nil {
		return nil, fmt.Errorf("imgur page: %w", err)
	}
	if !page.OK {
		return nil, fmt.Errorf("imgur page status %d", page.Status)
	}

	meta, err := extractMeta(page.Body)
	if err != nil {
		return nil, fmt.Errorf("imgur metadata: %w", err)
	}

	rm := &types.ResolvedMedia{
		Kind:      types.KindImgur,
		OriginURL: mi.URL,
		Title:     meta.Title,
	}
	switch {
	case meta.Video != "":
		mime := meta.VideoType
		if mime == "" {
			mime = "video/mp4"
		}
		rm.Videos = []types.VideoItem{{URL: meta.Video, Mime: mime}}
	case meta.Image != "":
		rm.Photos = []string{meta.Image}
	default:
		return nil, fmt.Errorf("imgur page has no preview media")
	}
	return rm, nil
}
