package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"embed-server/internal/card"
	"embed-server/internal/dom"
	"embed-server/internal/intent"
	"embed-server/internal/resolve"
	"embed-server/internal/types"
	"embed-server/internal/util"
)

// Scan markers stored on mirror nodes. They never reach the page; they make
// rescans of the same container idempotent.
const (
	attrEmbedState    = "data-embed-state"
	attrEmbedExpanded = "data-embed-expanded"

	statePending = "pending"
	stateDone    = "done"
	stateSkip    = "skip"
)

// Feed drives the embed pipeline for one chat document: it scans message
// containers for embeddable anchors, resolves them off the hot path, and
// commits cards back into the document.
type Feed struct {
	ctx      context.Context
	doc      *dom.Document
	chain    *resolve.Chain
	renderer *card.Renderer
	scroll   *ScrollController

	settings  func() types.Settings
	loggedOut func() bool
	gutter    int

	mu      sync.Mutex
	seen    map[string]map[string]bool // containerID -> claimed origins
	cards   map[string]*cardEntry      // wrapperID -> live card
	pending map[string]uint64          // anchorID -> current resolution token
	nextTok uint64
}

type cardEntry struct {
	card *card.Card
	node *dom.Node
}

// NewFeed wires a pipeline onto a document. settings and loggedOut are read
// at classification time so mid-session changes apply to new scans.
func NewFeed(ctx context.Context, doc *dom.Document, chain *resolve.Chain, renderer *card.Renderer, scroll *ScrollController, settings func() types.Settings, loggedOut func() bool, gutter int) *Feed {
	return &Feed{
		ctx:       ctx,
		doc:       doc,
		chain:     chain,
		renderer:  renderer,
		scroll:    scroll,
		settings:  settings,
		loggedOut: loggedOut,
		gutter:    gutter,
		seen:      make(map[string]map[string]bool),
		cards:     make(map[string]*cardEntry),
		pending:   make(map[string]uint64),
	}
}

// ScanContainer walks a message container's anchors and schedules resolution
// for everything embeddable. Safe to call repeatedly on the same container:
// anchors already visited carry a state marker and are skipped.
func (f *Feed) ScanContainer(container *dom.Node) {
	for _, a := range container.Anchors() {
		if a.HasAttr(attrEmbedState) {
			continue
		}
		href := a.Attr("href")
		if href == "" {
			a.SetAttr(attrEmbedState, stateSkip)
			continue
		}

		in := intent.Input{
			URL:           href,
			AnchorText:    a.TextContent(),
			ContainerText: container.TextContent(),
			AnchorID:      a.ID(),
			ContainerID:   container.ID(),
			LoggedOut:     f.loggedOut(),
			Settings:      f.settings(),
		}
		mi := intent.Classify(in)

		switch mi.Kind {
		case types.KindUnsupported:
			a.SetAttr(attrEmbedState, stateSkip)
		case types.KindPicShortlink:
			a.SetAttr(attrEmbedState, statePending)
			tok := f.mintToken(a.ID())
			go f.expandAndResolve(a, container, in, tok)
		default:
			if !f.claimOrigin(container.ID(), util.StripTrackingParams(mi.URL)) {
				a.SetAttr(attrEmbedState, stateSkip)
				continue
			}
			a.SetAttr(attrEmbedState, statePending)
			tok := f.mintToken(a.ID())
			go f.resolveAndInsert(a, container, mi, tok)
		}
	}
}

// mintToken issues the resolution token for an anchor. A completion only
// commits if its token is still the anchor's current one; a newer scan of the
// same anchor invalidates older in-flight work.
func (f *Feed) mintToken(anchorID string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTok++
	f.pending[anchorID] = f.nextTok
	return f.nextTok
}

func (f *Feed) tokenValid(anchorID string, tok uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[anchorID] == tok
}

// claimOrigin records an origin URL as embedded within a container. One card
// per origin per container; repeats of the same link embed once.
func (f *Feed) claimOrigin(containerID, origin string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.seen[containerID]
	if set == nil {
		set = make(map[string]bool)
		f.seen[containerID] = set
	}
	if set[origin] {
		return false
	}
	set[origin] = true
	return true
}

// expandAndResolve handles shortlink anchors: expand the link, classify the
// destination exactly once, then fall into the normal resolve path. The
// expansion is cached on the anchor so a rescan never re-fetches it.
func (f *Feed) expandAndResolve(a, container *dom.Node, in intent.Input, tok uint64) {
	expanded := a.Attr(attrEmbedExpanded)
	if expanded == "" {
		var err error
		expanded, err = f.chain.ExpandShortlink(f.ctx, in.URL)
		if err != nil {
			slog.Debug("shortlink expansion failed", "url", in.URL, "error", err)
			if f.tokenValid(a.ID(), tok) && !a.Detached() {
				f.insertFallback(a, container, types.MediaIntent{Kind: types.KindUnsupported, URL: in.URL})
			}
			return
		}
		a.SetAttr(attrEmbedExpanded, expanded)
	}

	in.URL = expanded
	mi := intent.Classify(in)
	if !mi.Supported() || mi.Kind == types.KindPicShortlink {
		a.SetAttr(attrEmbedState, stateSkip)
		return
	}
	if !f.claimOrigin(container.ID(), util.StripTrackingParams(mi.URL)) {
		a.SetAttr(attrEmbedState, stateSkip)
		return
	}
	f.resolveAndInsert(a, container, mi, tok)
}

// resolveAndInsert runs one resolution to completion and commits the result.
// A failed resolution degrades to a fallback card; a nil result means the
// link had nothing worth embedding and the anchor is left alone.
func (f *Feed) resolveAndInsert(a, container *dom.Node, mi types.MediaIntent, tok uint64) {
	res, err := f.chain.Resolve(f.ctx, mi)
	recordResolution(string(mi.Kind), err, err == nil && res == nil)

	if !f.tokenValid(a.ID(), tok) || a.Detached() {
		return
	}

	if err != nil {
		slog.Warn("resolution failed", "kind", mi.Kind, "url", mi.URL, "error", err)
		f.insertFallback(a, container, mi)
		return
	}
	if res == nil {
		a.SetAttr(attrEmbedState, stateSkip)
		return
	}

	c := f.renderer.NewCard(res, mi, f.settings(), f.gutter)
	node, ok := f.insertCard(a, container, c)
	if !ok {
		return
	}
	if res.RefreshEvery > 0 {
		go f.refreshLoop(c, node, mi, res.RefreshEvery)
	}
}

func (f *Feed) insertFallback(a, container *dom.Node, mi types.MediaIntent) {
	c := f.renderer.NewFallbackCard(mi, f.gutter)
	f.insertCard(a, container, c)
}

// insertCard renders the card and splices its wrapper in right after the
// message container, bracketing the mutation for the scroll controller.
func (f *Feed) insertCard(a, container *dom.Node, c *card.Card) (*dom.Node, bool) {
	html, err := c.Render()
	if err != nil {
		slog.Error("card render failed", "wrapper", c.WrapperID, "error", err)
		a.SetAttr(attrEmbedState, stateSkip)
		return nil, false
	}

	restore := f.scroll.MarkInsertionStart()
	n := f.doc.NewNode(c.WrapperID, "div")
	n.SetAttr("html", html)
	f.doc.InsertAfter(container, n)
	restore()

	a.SetAttr(attrEmbedState, stateDone)
	f.mu.Lock()
	f.cards[c.WrapperID] = &cardEntry{card: c, node: n}
	f.mu.Unlock()

	f.scroll.CardInserted(n)
	cardsInsertedTotal.WithLabelValues(string(c.Kind)).Inc()
	return n, true
}

// refreshLoop re-resolves a live-stream card on its refresh interval.
func (f *Feed) refreshLoop(c *card.Card, node *dom.Node, mi types.MediaIntent, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-f.ctx.Done():
			return
		case <-t.C:
			if !f.refreshOnce(c, node, mi) {
				return
			}
		}
	}
}

// refreshOnce runs one scheduled refresh and reports whether the schedule
// should keep running. A wrapper that left the document stops it for good; a
// hidden one skips the network call but keeps the schedule.
func (f *Feed) refreshOnce(c *card.Card, node *dom.Node, mi types.MediaIntent) bool {
	if node.Detached() {
		f.dropCard(c.WrapperID)
		return false
	}
	if !node.Visible() {
		return true
	}
	res, err := f.chain.Resolve(f.ctx, mi)
	if err != nil || res == nil {
		return true
	}
	c.Update(res)
	f.rerender(c, node)
	return true
}

// PagerNext advances a card's pager. The viewport position is captured
// before the swap and restored after it, plus once more a settling tick
// later, so paging never shifts the transcript under the reader.
func (f *Feed) PagerNext(wrapperID string) {
	f.pagerStep(wrapperID, func(c *card.Card) bool { return c.PagerNext() })
}

// PagerPrev steps a card's pager back.
func (f *Feed) PagerPrev(wrapperID string) {
	f.pagerStep(wrapperID, func(c *card.Card) bool { return c.PagerPrev() })
}

func (f *Feed) pagerStep(wrapperID string, step func(*card.Card) bool) {
	e := f.lookup(wrapperID)
	if e == nil || !step(e.card) {
		return
	}
	top := f.doc.Scroll().Top
	f.rerender(e.card, e.node)
	f.doc.ScrollTo(top)
	f.scroll.afterFunc(50*time.Millisecond, func() {
		if !e.node.Detached() {
			f.doc.ScrollTo(top)
		}
	})
}

// RevealSpoiler lifts the overlay for a whole card.
func (f *Feed) RevealSpoiler(wrapperID string) {
	e := f.lookup(wrapperID)
	if e == nil || !e.card.Reveal() {
		return
	}
	f.rerender(e.card, e.node)
}

// MediaReady forwards a media-load report to the scroll controller.
func (f *Feed) MediaReady(wrapperID string) {
	if f.lookup(wrapperID) == nil {
		return
	}
	f.scroll.MediaReady()
}

// NodeRemoved drops bookkeeping for a container or wrapper the page removed.
func (f *Feed) NodeRemoved(nodeID string) {
	f.mu.Lock()
	delete(f.seen, nodeID)
	f.mu.Unlock()
	f.dropCard(nodeID)
}

func (f *Feed) dropCard(wrapperID string) {
	f.mu.Lock()
	delete(f.cards, wrapperID)
	f.mu.Unlock()
}

func (f *Feed) lookup(wrapperID string) *cardEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cards[wrapperID]
}

func (f *Feed) rerender(c *card.Card, node *dom.Node) {
	html, err := c.Render()
	if err != nil {
		slog.Error("card render failed", "wrapper", c.WrapperID, "error", err)
		return
	}
	f.doc.Replace(node, html)
}
