package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"embed-server/internal/card"
	"embed-server/internal/resolve"
	"embed-server/internal/types"
)

func newTestDeps(fetcher resolve.Fetcher) *serverDeps {
	return &serverDeps{
		chain:    resolve.NewChain(fetcher, resolve.ChainConfig{}),
		renderer: card.NewRenderer("/media/proxy?src="),
		settings: NewSettingsCache(nil, "embed:settings", "embed:settings:updated"),
	}
}

func chatInit() initEvent {
	return initEvent{Path: "/chat", GutterWidth: 400, ClientHeight: 600}
}

func messageEvent(id, href string) clientEvent {
	return clientEvent{
		Type: "node-added",
		Nodes: []wireNode{{
			ID: id, Tag: "div", Height: 80,
			Children: []wireNode{{
				ID: id + "-a", Tag: "a", Text: href,
				Attrs: map[string]string{"href": href},
			}},
		}},
	}
}

func TestSessionNodeAddedEmbeds(t *testing.T) {
	f := newStubFetcher()
	f.tweets[feedTweetURL] = resolve.TweetData{
		Source: "cdn-by-id", Handle: "alice", Text: "hi", Photos: []string{"p"},
	}
	s := NewSession(context.Background(), "s1", newTestDeps(f), chatInit())

	s.HandleEvent(messageEvent("m1", feedTweetURL))

	waitFor(t, "card insertion", func() bool {
		for _, c := range s.doc.Root().Children() {
			if strings.HasPrefix(c.ID(), "embed-") {
				return true
			}
		}
		return false
	})
}

func TestSessionLoggedOutHeuristic(t *testing.T) {
	deps := newTestDeps(newStubFetcher())

	init := chatInit()
	init.HasLoginPrompt = true
	s := NewSession(context.Background(), "s1", deps, init)
	if !s.LoggedOut() {
		t.Fatal("login prompt without logout control should read as logged out")
	}

	init.HasLogoutControl = true
	s = NewSession(context.Background(), "s2", deps, init)
	if s.LoggedOut() {
		t.Fatal("logout control present should read as logged in")
	}
}

func TestSessionLoggedOutEmbedsNothing(t *testing.T) {
	f := newStubFetcher()
	f.tweets[feedTweetURL] = resolve.TweetData{Source: "cdn-by-id", Text: "hi", Photos: []string{"p"}}
	deps := newTestDeps(f)

	init := chatInit()
	init.HasLoginPrompt = true
	s := NewSession(context.Background(), "s1", deps, init)

	s.HandleEvent(messageEvent("m1", feedTweetURL))
	time.Sleep(50 * time.Millisecond)
	for _, c := range s.doc.Root().Children() {
		if strings.HasPrefix(c.ID(), "embed-") {
			t.Fatal("logged-out session embedded a card")
		}
	}
}

func TestSessionShowRemovedOverride(t *testing.T) {
	deps := newTestDeps(newStubFetcher())
	base := types.DefaultSettings()
	base.HideNSFW = true
	deps.settings.UpdateSettings(base)

	s := NewSession(context.Background(), "s1", deps, chatInit())
	if s.Settings().ShowRemoved {
		t.Fatal("precondition: show-removed off")
	}

	s.HandleEvent(clientEvent{Type: "show-removed", Enabled: true})
	st := s.Settings()
	if !st.ShowRemoved {
		t.Fatal("session override not applied")
	}
	if st.Hides(types.SensitivityNSFW) {
		t.Fatal("show-removed override did not defeat the hide flag")
	}
	// the shared snapshot is untouched
	if deps.settings.Current().ShowRemoved {
		t.Fatal("session override leaked into the shared settings")
	}
}

func TestSessionScrollAndActionEvents(t *testing.T) {
	deps := newTestDeps(newStubFetcher())
	s := NewSession(context.Background(), "s1", deps, chatInit())

	s.HandleEvent(clientEvent{Type: "node-added", Nodes: []wireNode{{ID: "m1", Tag: "div", Height: 2000}}})
	s.HandleEvent(clientEvent{Type: "scroll", Top: 100, ScrollHeight: 2000, ClientHeight: 600})
	if s.scroll.Pinned() {
		t.Fatal("scroll event into scrollback did not unpin")
	}

	s.HandleEvent(clientEvent{Type: "action", Action: "jump-to-bottom"})
	if !s.scroll.Pinned() {
		t.Fatal("jump-to-bottom action did not pin")
	}
	if d := s.doc.DistanceFromBottom(); d != 0 {
		t.Fatalf("jump-to-bottom left the view %d above the bottom", d)
	}
}

func TestSessionNodeVisibility(t *testing.T) {
	deps := newTestDeps(newStubFetcher())
	s := NewSession(context.Background(), "s1", deps, chatInit())

	s.HandleEvent(clientEvent{Type: "node-added", Nodes: []wireNode{{ID: "m1", Tag: "div", Height: 80}}})
	n := s.doc.ByID("m1")
	if n == nil || !n.Visible() {
		t.Fatal("added node missing or invisible")
	}

	s.HandleEvent(clientEvent{Type: "node-hidden", NodeID: "m1"})
	if n.Visible() {
		t.Fatal("node-hidden not applied")
	}
	s.HandleEvent(clientEvent{Type: "node-visible", NodeID: "m1"})
	if !n.Visible() {
		t.Fatal("node-visible not applied")
	}

	s.HandleEvent(clientEvent{Type: "node-removed", NodeID: "m1"})
	if s.doc.ByID("m1") != nil {
		t.Fatal("node-removed left the node indexed")
	}
}
