package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"embed-server/internal/card"
	"embed-server/internal/dom"
	"embed-server/internal/resolve"
	"embed-server/internal/types"
)

// stubFetcher answers the resolver chain from canned data.
type stubFetcher struct {
	mu     sync.Mutex
	pages  map[string]resolve.PageResult
	tweets map[string]resolve.TweetData
	errs   map[string]error
	delay  time.Duration

	pageCalls int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages:  make(map[string]resolve.PageResult),
		tweets: make(map[string]resolve.TweetData),
		errs:   make(map[string]error),
	}
}

func (s *stubFetcher) FetchPage(ctx context.Context, rawURL string) (resolve.PageResult, error) {
	s.mu.Lock()
	s.pageCalls++
	s.mu.Unlock()
	if err, ok := s.errs[rawURL]; ok {
		return resolve.PageResult{}, err
	}
	if p, ok := s.pages[rawURL]; ok {
		return p, nil
	}
	return resolve.PageResult{Status: 404, FinalURL: rawURL}, nil
}

func (s *stubFetcher) pageFetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageCalls
}

func (s *stubFetcher) FetchOEmbed(ctx context.Context, provider, rawURL string) (resolve.OEmbedResult, error) {
	return resolve.OEmbedResult{}, nil
}

func (s *stubFetcher) FetchTweetData(ctx context.Context, rawURL string) (resolve.TweetData, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err, ok := s.errs[rawURL]; ok {
		return resolve.TweetData{}, err
	}
	if td, ok := s.tweets[rawURL]; ok {
		return td, nil
	}
	return resolve.TweetData{}, errors.New("no such tweet")
}

type feedFixture struct {
	doc   *dom.Document
	feed  *Feed
	sched *fakeScheduler

	mu      sync.Mutex
	patches []dom.Patch
}

func newFeedFixture(t *testing.T, fetcher resolve.Fetcher) *feedFixture {
	t.Helper()
	doc := dom.NewDocument(600)
	fx := &feedFixture{doc: doc, sched: &fakeScheduler{}}
	doc.OnPatch(func(p dom.Patch) {
		fx.mu.Lock()
		fx.patches = append(fx.patches, p)
		fx.mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	chain := resolve.NewChain(fetcher, resolve.ChainConfig{})
	renderer := card.NewRenderer("/media/proxy?src=")
	scroll := NewScrollController(doc, ScrollConfig{AfterFunc: fx.sched.AfterFunc})
	settings := func() types.Settings { return types.DefaultSettings() }
	fx.feed = NewFeed(ctx, doc, chain, renderer, scroll, settings, func() bool { return false }, 400)
	return fx
}

// addMessage appends a message container holding one link per URL.
func (fx *feedFixture) addMessage(id string, urls ...string) *dom.Node {
	container := fx.doc.NewNode(id, "div")
	for _, u := range urls {
		a := fx.doc.NewNode("", "a")
		a.SetAttr("href", u)
		a.SetText(u)
		container.AppendChild(a)
	}
	fx.doc.Append(fx.doc.Root(), container)
	return container
}

func (fx *feedFixture) cardNodes() []*dom.Node {
	var out []*dom.Node
	for _, c := range fx.doc.Root().Children() {
		if strings.HasPrefix(c.ID(), "embed-") {
			out = append(out, c)
		}
	}
	return out
}

// echoProgrammaticScrolls feeds one scroll event back per scroll-to patch,
// the way the real page does.
func (fx *feedFixture) echoProgrammaticScrolls() {
	fx.mu.Lock()
	n := 0
	for _, p := range fx.patches {
		if p.Op == "scroll-to" {
			n++
		}
	}
	fx.patches = fx.patches[:0]
	fx.mu.Unlock()
	for i := 0; i < n; i++ {
		fx.feed.scroll.ObserveUserScroll()
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

const feedTweetURL = "https://twitter.com/alice/status/100"

func TestFeedInsertsCardAfterMessage(t *testing.T) {
	f := newStubFetcher()
	f.tweets[feedTweetURL] = resolve.TweetData{
		Source: "cdn-by-id", Author: "Alice", Handle: "alice",
		Text: "hi", Photos: []string{"https://pbs.twimg.com/1.jpg"},
	}
	fx := newFeedFixture(t, f)

	container := fx.addMessage("m1", feedTweetURL)
	fx.feed.ScanContainer(container)

	waitFor(t, "card insertion", func() bool { return len(fx.cardNodes()) == 1 })

	wrapper := fx.cardNodes()[0]
	html := wrapper.Attr("html")
	if !strings.Contains(html, "@alice") || !strings.Contains(html, "pbs.twimg.com/1.jpg") {
		t.Errorf("card html missing tweet content: %s", html)
	}

	anchor := container.Anchors()[0]
	if got := anchor.Attr(attrEmbedState); got != stateDone {
		t.Errorf("anchor state = %q, want done", got)
	}
}

func TestFeedRescanIsIdempotent(t *testing.T) {
	f := newStubFetcher()
	f.tweets[feedTweetURL] = resolve.TweetData{Source: "cdn-by-id", Text: "hi", Photos: []string{"p"}}
	fx := newFeedFixture(t, f)

	container := fx.addMessage("m1", feedTweetURL)
	fx.feed.ScanContainer(container)
	waitFor(t, "card insertion", func() bool { return len(fx.cardNodes()) == 1 })

	fx.feed.ScanContainer(container)
	fx.feed.ScanContainer(container)
	time.Sleep(50 * time.Millisecond)

	if n := len(fx.cardNodes()); n != 1 {
		t.Fatalf("rescans produced %d cards, want 1", n)
	}
}

func TestFeedDuplicateOriginEmbedsOnce(t *testing.T) {
	f := newStubFetcher()
	f.tweets[feedTweetURL] = resolve.TweetData{Source: "cdn-by-id", Text: "hi", Photos: []string{"p"}}
	fx := newFeedFixture(t, f)

	// same link twice in one message, with tracking noise on the second
	container := fx.addMessage("m1", feedTweetURL, feedTweetURL+"?utm_source=share")
	fx.feed.ScanContainer(container)
	waitFor(t, "card insertion", func() bool { return len(fx.cardNodes()) >= 1 })
	time.Sleep(50 * time.Millisecond)

	if n := len(fx.cardNodes()); n != 1 {
		t.Fatalf("duplicate origin produced %d cards, want 1", n)
	}

	// the same origin in a different message embeds again
	other := fx.addMessage("m2", feedTweetURL)
	fx.feed.ScanContainer(other)
	waitFor(t, "second message card", func() bool { return len(fx.cardNodes()) == 2 })
}

func TestFeedFallbackCardOnResolverError(t *testing.T) {
	f := newStubFetcher()
	f.errs[feedTweetURL] = errors.New("upstream down")
	fx := newFeedFixture(t, f)

	container := fx.addMessage("m1", feedTweetURL)
	fx.feed.ScanContainer(container)

	waitFor(t, "fallback card", func() bool { return len(fx.cardNodes()) == 1 })
	html := fx.cardNodes()[0].Attr("html")
	if !strings.Contains(html, `href="`+feedTweetURL+`"`) {
		t.Errorf("fallback card missing origin link: %s", html)
	}
	if strings.Contains(html, "<img") || strings.Contains(html, "<video") {
		t.Error("fallback card rendered media")
	}
}

func TestFeedNothingToEmbedInsertsNoCard(t *testing.T) {
	instaURL := "https://www.instagram.com/p/Cxyz123/"
	f := newStubFetcher()
	f.pages[instaURL] = resolve.PageResult{OK: true, Status: 200, Body: []byte("<html></html>")}
	fx := newFeedFixture(t, f)

	container := fx.addMessage("m1", instaURL)
	fx.feed.ScanContainer(container)

	anchor := container.Anchors()[0]
	waitFor(t, "anchor settled", func() bool { return anchor.Attr(attrEmbedState) == stateSkip })
	if n := len(fx.cardNodes()); n != 0 {
		t.Fatalf("media-less post produced %d cards", n)
	}
}

func TestFeedShortlinkExpandsThenEmbeds(t *testing.T) {
	short := "https://t.co/abc"
	f := newStubFetcher()
	f.pages[short] = resolve.PageResult{OK: true, Status: 200, FinalURL: feedTweetURL}
	f.tweets[feedTweetURL] = resolve.TweetData{Source: "cdn-by-id", Handle: "alice", Text: "hi", Photos: []string{"p"}}
	fx := newFeedFixture(t, f)

	container := fx.addMessage("m1", short)
	fx.feed.ScanContainer(container)

	waitFor(t, "card insertion", func() bool { return len(fx.cardNodes()) == 1 })

	anchor := container.Anchors()[0]
	if got := anchor.Attr(attrEmbedExpanded); got != feedTweetURL {
		t.Errorf("expansion not cached on anchor: %q", got)
	}
	if !strings.Contains(fx.cardNodes()[0].Attr("html"), "@alice") {
		t.Error("expanded shortlink did not embed the destination")
	}
}

func TestFeedPagerSwapKeepsScrollPosition(t *testing.T) {
	f := newStubFetcher()
	f.tweets[feedTweetURL] = resolve.TweetData{
		Source: "cdn-by-id", Text: "hi",
		Photos: []string{"https://pbs.twimg.com/1.jpg", "https://pbs.twimg.com/2.jpg"},
	}
	fx := newFeedFixture(t, f)

	container := fx.addMessage("m1", feedTweetURL)
	fx.feed.ScanContainer(container)
	waitFor(t, "card insertion", func() bool { return len(fx.cardNodes()) == 1 })
	wrapper := fx.cardNodes()[0]
	wrapper.SetHeight(400)

	fx.echoProgrammaticScrolls()

	// reader scrolled up into scrollback
	fx.doc.ReportScroll(120, 2000, 600)
	fx.feed.scroll.ObserveUserScroll()

	fx.feed.PagerNext(wrapper.ID())
	fx.sched.fire(100 * time.Millisecond)

	if got := fx.doc.Scroll().Top; got != 120 {
		t.Fatalf("paging moved the view to %d, want 120", got)
	}
	if !strings.Contains(wrapper.Attr("html"), "2 / 2") {
		t.Error("pager swap did not advance the visible item")
	}
}

func TestFeedLiveRefreshRespectsVisibilityAndDetach(t *testing.T) {
	channelURL := "https://www.twitch.tv/somestreamer"
	f := newStubFetcher()
	f.pages[channelURL] = resolve.PageResult{
		OK: true, Status: 200,
		Body: []byte(`<html><head><title>s</title></head><body>{"isLiveBroadcast":true,"name":"Speedrun Sunday"}</body></html>`),
	}
	fx := newFeedFixture(t, f)

	container := fx.addMessage("m1", channelURL)
	fx.feed.ScanContainer(container)
	waitFor(t, "card insertion", func() bool { return len(fx.cardNodes()) == 1 })

	wrapper := fx.cardNodes()[0]
	entry := fx.feed.lookup(wrapper.ID())
	if entry == nil {
		t.Fatal("inserted card not registered")
	}
	mi := types.MediaIntent{Kind: types.KindTwitch, URL: channelURL, SourceID: "somestreamer"}

	base := f.pageFetches()
	if !fx.feed.refreshOnce(entry.card, entry.node, mi) {
		t.Fatal("visible refresh stopped the schedule")
	}
	if got := f.pageFetches() - base; got != 1 {
		t.Fatalf("visible refresh fetched %d times, want 1", got)
	}

	// hidden: no network call, but the schedule keeps running
	entry.node.SetVisible(false)
	if !fx.feed.refreshOnce(entry.card, entry.node, mi) {
		t.Fatal("hidden refresh stopped the schedule")
	}
	if got := f.pageFetches() - base; got != 1 {
		t.Fatalf("hidden refresh hit the network (%d fetches)", got)
	}

	// shown again: polling resumes
	entry.node.SetVisible(true)
	fx.feed.refreshOnce(entry.card, entry.node, mi)
	if got := f.pageFetches() - base; got != 2 {
		t.Fatalf("re-shown refresh fetched %d times, want 2", got)
	}

	// removal stops the schedule for good
	fx.doc.Remove(entry.node)
	if fx.feed.refreshOnce(entry.card, entry.node, mi) {
		t.Fatal("refresh kept running after the wrapper left the document")
	}
	if fx.feed.lookup(wrapper.ID()) != nil {
		t.Fatal("dropped card still registered")
	}
}

func TestFeedStaleTokenDoesNotCommit(t *testing.T) {
	f := newStubFetcher()
	f.delay = 50 * time.Millisecond // keep the resolution in flight
	f.tweets[feedTweetURL] = resolve.TweetData{Source: "cdn-by-id", Text: "hi", Photos: []string{"p"}}
	fx := newFeedFixture(t, f)

	container := fx.addMessage("m1", feedTweetURL)
	anchor := container.Anchors()[0]

	// a newer token supersedes whatever resolution the scan kicks off
	fx.feed.ScanContainer(container)
	fx.feed.mintToken(anchor.ID())

	time.Sleep(100 * time.Millisecond)
	if n := len(fx.cardNodes()); n != 0 {
		t.Fatalf("stale resolution committed %d cards", n)
	}
}
