// Package card builds the DOM fragments for resolved results and owns the
// per-card interactive state: pager index, spoiler reveal, render width.
package card

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"sync"
	"time"

	"embed-server/internal/types"
	"embed-server/internal/util"
	"embed-server/templates/cards"
)

// Render width bounds: the desired width comes from the message gutter,
// clamped to [180,500]; nothing renders wider than the hard cap.
const (
	minCardWidth = 180
	maxCardWidth = 500
	hardWidthCap = 566
)

// proxiedVideoHosts block cross-context playback; their sources are swapped
// to a locally-served handle before assignment.
var proxiedVideoHosts = []string{
	"video.twimg.com",
	"v.redd.it",
}

// Renderer turns resolved media into wrapper fragments and mints the card
// state those fragments are re-rendered from.
type Renderer struct {
	tmpl        *template.Template
	proxyPrefix string

	mu     sync.Mutex
	nextID int
}

// NewRenderer compiles the card templates. proxyPrefix is the local media
// proxy route, e.g. "/media/proxy?src=".
func NewRenderer(proxyPrefix string) *Renderer {
	return &Renderer{
		tmpl:        util.MustCompileTemplate("cards", nil, cards.GetAllTemplates()),
		proxyPrefix: proxyPrefix,
	}
}

// Card is the mutable state of one rendered card. It is owned by the renderer
// that created it and dies with its wrapper node.
type Card struct {
	mu sync.Mutex
	r  *Renderer

	WrapperID string
	OriginURL string
	Kind      types.IntentKind

	media       *types.ResolvedMedia // nil for fallback cards
	sensitivity types.Sensitivity
	blurAll     bool
	revealed    bool
	pagerIndex  int
	width       int
}

// NewCard creates the state for a successfully resolved result.
func (r *Renderer) NewCard(res *types.ResolvedMedia, mi types.MediaIntent, st types.Settings, gutterWidth int) *Card {
	return &Card{
		r:           r,
		WrapperID:   r.mintID(),
		OriginURL:   res.OriginURL,
		Kind:        res.Kind,
		media:       res,
		sensitivity: mi.Sensitivity,
		blurAll:     st.BlurAll,
		width:       clampWidth(gutterWidth),
	}
}

// NewFallbackCard creates the minimal plain-link card used when resolution
// failed.
func (r *Renderer) NewFallbackCard(mi types.MediaIntent, gutterWidth int) *Card {
	return &Card{
		r:         r,
		WrapperID: r.mintID(),
		OriginURL: mi.URL,
		Kind:      mi.Kind,
		width:     clampWidth(gutterWidth),
	}
}

func (r *Renderer) mintID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return fmt.Sprintf("embed-%d", r.nextID)
}

// clampWidth converts the reported gutter width into the card's desired
// width, clamped to [minCardWidth, maxCardWidth]. hardWidthCap is not applied
// here: it caps the media elements at render time.
func clampWidth(gutter int) int {
	if gutter <= 0 {
		return maxCardWidth
	}
	if gutter < minCardWidth {
		return minCardWidth
	}
	if gutter > maxCardWidth {
		return maxCardWidth
	}
	return gutter
}

// MediaCount returns how many items the pager pages through.
func (c *Card) MediaCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.media == nil {
		return 0
	}
	return c.media.MediaCount()
}

// PagerIndex returns the currently visible item index.
func (c *Card) PagerIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pagerIndex
}

// PagerNext advances the pager by one, clamping at the last item. Returns
// true when the visible item changed.
func (c *Card) PagerNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.media == nil || c.pagerIndex >= c.media.MediaCount()-1 {
		return false
	}
	c.pagerIndex++
	return true
}

// PagerPrev steps the pager back by one, clamping at the first item.
func (c *Card) PagerPrev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pagerIndex <= 0 {
		return false
	}
	c.pagerIndex--
	return true
}

// Spoilered reports whether the card's media is currently hidden behind the
// overlay.
func (c *Card) Spoilered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spoilerActive()
}

func (c *Card) spoilerActive() bool {
	if c.revealed {
		return false
	}
	return c.sensitivity != types.SensitivityNone || c.blurAll
}

// Reveal lifts the spoiler overlay for the whole resolved-media group: every
// item in the card becomes visible, not just the clicked one. Returns true
// when anything changed.
func (c *Card) Reveal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.spoilerActive() {
		return false
	}
	c.revealed = true
	return true
}

// Update swaps in a re-resolved result, keeping the interactive state. The
// pager index is re-clamped in case the item count shrank. Used by stream
// refresh, where liveness and thumbnail change between polls.
func (c *Card) Update(res *types.ResolvedMedia) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.media = res
	if max := res.MediaCount() - 1; c.pagerIndex > max {
		if max < 0 {
			max = 0
		}
		c.pagerIndex = max
	}
}

// Render produces the wrapper HTML fragment for the card's current state.
func (c *Card) Render() (string, error) {
	c.mu.Lock()
	view := c.view()
	c.mu.Unlock()

	var sb strings.Builder
	if err := c.r.tmpl.ExecuteTemplate(&sb, "card-dispatcher", view); err != nil {
		return "", fmt.Errorf("render card %s: %w", c.WrapperID, err)
	}
	return sb.String(), nil
}

type itemView struct {
	Index    int
	Type     string
	URL      string
	Mime     string
	Active   bool
	Terminal bool
}

type cardView struct {
	CardTemplate     string
	Kind             types.IntentKind
	WrapperID        string
	OriginURL        string
	Sensitivity      types.Sensitivity
	SensitivityLabel string
	Spoiler          bool
	Width            int
	RenderCap        int // media elements never render wider than this

	Title          string
	Author         string
	TextHTML       template.HTML
	CreatedAt      string
	CreatedAtHuman string

	Items        []itemView
	PagerEnabled bool
	PagerHuman   int
	PagerCount   int
	AtFirst      bool
	AtLast       bool

	Live      bool
	Thumbnail string
	EmbedURL  string
}

func (c *Card) view() cardView {
	v := cardView{
		Kind:        c.Kind,
		WrapperID:   c.WrapperID,
		OriginURL:   c.OriginURL,
		Sensitivity: c.sensitivity,
		Spoiler:     c.spoilerActive(),
		Width:       c.width,
		RenderCap:   hardWidthCap,
	}
	if c.sensitivity != types.SensitivityNone {
		v.SensitivityLabel = strings.ToUpper(string(c.sensitivity))
	}

	if c.media == nil {
		v.CardTemplate = "card-fallback"
		return v
	}

	res := c.media
	v.CardTemplate = templateFor(res)
	v.Title = res.Title
	v.Author = res.Author
	// Resolver text is already sanitized; mark it trusted for the template.
	v.TextHTML = template.HTML(res.Text)
	v.Live = res.Live
	v.Thumbnail = res.Thumbnail
	v.EmbedURL = res.EmbedURL
	if res.CreatedAt != nil {
		v.CreatedAt = res.CreatedAt.Format(time.RFC3339)
		v.CreatedAtHuman = res.CreatedAt.Format("Jan 2 2006 15:04")
	}

	count := res.MediaCount()
	idx := 0
	for _, p := range res.Photos {
		v.Items = append(v.Items, itemView{
			Index:    idx,
			Type:     "img",
			URL:      p,
			Active:   idx == c.pagerIndex,
			Terminal: idx == count-1,
		})
		idx++
	}
	for _, vid := range res.Videos {
		v.Items = append(v.Items, itemView{
			Index:    idx,
			Type:     "video",
			URL:      c.r.playableURL(vid.URL),
			Mime:     vid.Mime,
			Active:   idx == c.pagerIndex,
			Terminal: idx == count-1,
		})
		idx++
	}
	if count > 1 {
		v.PagerEnabled = true
		v.PagerHuman = c.pagerIndex + 1
		v.PagerCount = count
		v.AtFirst = c.pagerIndex == 0
		v.AtLast = c.pagerIndex == count-1
	}
	return v
}

// templateFor picks the fragment template for a resolved result.
func templateFor(res *types.ResolvedMedia) string {
	switch res.Kind {
	case types.KindTweet:
		return "card-tweet"
	case types.KindYouTube:
		return "card-frame"
	case types.KindTwitch, types.KindKick, types.KindTwitchBigscreenChannel:
		return "card-stream"
	case types.KindRedditPost, types.KindInstagram:
		return "card-textmedia"
	case types.KindDirectImage, types.KindDirectVideo, types.KindImgur:
		return "card-media"
	default:
		if res.Text != "" {
			return "card-textmedia"
		}
		return "card-media"
	}
}

// playableURL swaps video sources on playback-blocking hosts to the local
// media proxy.
func (r *Renderer) playableURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	for _, host := range proxiedVideoHosts {
		if util.HostMatches(u.Hostname(), host) {
			return r.proxyPrefix + url.QueryEscape(raw)
		}
	}
	return raw
}
