package main

import (
	"context"
	"log/slog"

	"embed-server/internal/dom"
	"embed-server/internal/types"
)

// Session is one connected chat page: its mirrored document, the scroll
// controller pinning it, the feed populating it, and the per-session
// settings overrides.
type Session struct {
	ID string

	doc      *dom.Document
	scroll   *ScrollController
	feed     *Feed
	settings *SettingsCache

	// Per-session overrides layered on the shared snapshot.
	showRemoved *bool
	loggedOut   bool
}

// NewSession builds the session state from the page's init report.
func NewSession(ctx context.Context, id string, deps *serverDeps, init initEvent) *Session {
	doc := dom.NewDocument(init.ClientHeight)
	s := &Session{
		ID:       id,
		doc:      doc,
		scroll:   NewScrollController(doc, ScrollConfig{}),
		settings: deps.settings,
		// Pages showing a login prompt with no logout control belong to
		// logged-out visitors; embeds stay off for them.
		loggedOut: init.HasLoginPrompt && !init.HasLogoutControl,
	}
	s.feed = NewFeed(ctx, doc, deps.chain, deps.renderer, s.scroll, s.Settings, s.LoggedOut, init.GutterWidth)
	return s
}

// Settings returns the shared snapshot with this session's overrides applied.
func (s *Session) Settings() types.Settings {
	st := s.settings.Current()
	if s.showRemoved != nil {
		st.ShowRemoved = *s.showRemoved
	}
	return st
}

// LoggedOut reports the page-ownership heuristic captured at init.
func (s *Session) LoggedOut() bool { return s.loggedOut }

// HandleEvent dispatches one client event into the pipeline.
func (s *Session) HandleEvent(ev clientEvent) {
	switch ev.Type {
	case "node-added":
		for _, wn := range ev.Nodes {
			n := s.buildNode(wn)
			s.doc.Append(s.doc.Root(), n)
			s.feed.ScanContainer(n)
		}
	case "node-removed":
		if n := s.doc.ByID(ev.NodeID); n != nil {
			s.doc.Remove(n)
		}
		s.feed.NodeRemoved(ev.NodeID)
	case "node-visible":
		if n := s.doc.ByID(ev.NodeID); n != nil {
			s.feed.ScanContainer(n)
			n.SetVisible(true)
		}
	case "node-hidden":
		if n := s.doc.ByID(ev.NodeID); n != nil {
			n.SetVisible(false)
		}
	case "scroll":
		s.doc.ReportScroll(ev.Top, ev.ScrollHeight, ev.ClientHeight)
		s.scroll.ObserveUserScroll()
	case "resize":
		if n := s.doc.ByID(ev.NodeID); n != nil {
			n.SetHeight(ev.Height)
		}
	case "media-ready":
		s.feed.MediaReady(ev.NodeID)
	case "action":
		s.handleAction(ev)
	case "show-removed":
		v := ev.Enabled
		s.showRemoved = &v
	default:
		slog.Debug("unknown client event", "type", ev.Type, "session", s.ID)
	}
}

func (s *Session) handleAction(ev clientEvent) {
	switch ev.Action {
	case "pager-next":
		s.feed.PagerNext(ev.NodeID)
	case "pager-prev":
		s.feed.PagerPrev(ev.NodeID)
	case "spoiler":
		s.feed.RevealSpoiler(ev.NodeID)
	case "jump-to-bottom":
		s.scroll.JumpToBottom()
	default:
		slog.Debug("unknown action", "action", ev.Action, "session", s.ID)
	}
}

// buildNode converts a wire-format subtree into mirror nodes.
func (s *Session) buildNode(wn wireNode) *dom.Node {
	n := s.doc.NewNode(wn.ID, wn.Tag)
	n.SetText(wn.Text)
	n.SetHeight(wn.Height)
	for k, v := range wn.Attrs {
		n.SetAttr(k, v)
	}
	for _, c := range wn.Children {
		n.AppendChild(s.buildNode(c))
	}
	return n
}

// newSessionID mints a short random session identifier.
func newSessionID() string {
	return "sess-" + newRequestID()
}
