package resolve

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pageMeta is the structured preview metadata scraped from a provider page.
type pageMeta struct {
	Title       string
	Description string
	Image       string
	Video       string
	VideoType   string
	SiteName    string
}

// extractMeta reads OpenGraph and fallback metadata from an HTML page. Both
// property-before-content and content-before-property attribute orders are
// handled by the parser, so no ordering assumptions are baked in.
func extractMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, err
	}

	var meta pageMeta
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok || content == "" {
			return
		}
		key, _ := s.Attr("property")
		if key == "" {
			key, _ = s.Attr("name")
		}
		switch strings.ToLower(key) {
		case "og:title":
			setIfEmpty(&meta.Title, content)
		case "og:description", "description":
			setIfEmpty(&meta.Description, content)
		case "og:image", "og:image:url", "og:image:secure_url", "twitter:image":
			setIfEmpty(&meta.Image, content)
		case "og:video", "og:video:url", "og:video:secure_url", "twitter:player:stream":
			setIfEmpty(&meta.Video, content)
		case "og:video:type":
			setIfEmpty(&meta.VideoType, content)
		case "og:site_name":
			setIfEmpty(&meta.SiteName, content)
		}
	})

	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return meta, nil
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = strings.TrimSpace(v)
	}
}
