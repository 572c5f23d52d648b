package resolve

import (
	"context"
	"fmt"
)

// ExpandShortlink resolves a shortened link to its final destination in one
// network hop. Results are cached by the caller on the anchor itself, so
// expansion runs at most once per anchor; the backend cache here only spares
// repeated hops for the same target across messages.
func (c *Chain) ExpandShortlink(ctx context.Context, rawURL string) (string, error) {
	key := "shortlink:" + rawURL
	if c.cache != nil {
		if cached, found, err := c.cache.Get(ctx, key); err == nil && found {
			return string(cached), nil
		}
	}

	page, err := c.fetcher.FetchPage(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("expand shortlink: %w", err)
	}
	if page.FinalURL == "" || page.FinalURL == rawURL && !page.OK {
		return "", fmt.Errorf("expand shortlink: no destination (status %d)", page.Status)
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, []byte(page.FinalURL), c.ttl.ShortlinkTTL)
	}
	return page.FinalURL, nil
}
