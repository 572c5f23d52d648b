package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"embed-server/internal/dom"
)

// Bridge connection tuning.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxEventSize   = 256 * 1024 // node-added payloads carry message subtrees
	patchQueueSize = 64
)

// wireNode is the JSON shape of a mirrored subtree sent by the page script.
type wireNode struct {
	ID       string            `json:"id"`
	Tag      string            `json:"tag"`
	Text     string            `json:"text,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Height   int               `json:"height,omitempty"`
	Children []wireNode        `json:"children,omitempty"`
}

// clientEvent is one message from the page script. Type selects which fields
// are meaningful.
type clientEvent struct {
	Type string `json:"type"`

	// init
	Path             string `json:"path,omitempty"`
	GutterWidth      int    `json:"gutter_width,omitempty"`
	HasLoginPrompt   bool   `json:"has_login_prompt,omitempty"`
	HasLogoutControl bool   `json:"has_logout_control,omitempty"`

	// node-added
	Nodes []wireNode `json:"nodes,omitempty"`

	// node targeting (visible/hidden/removed/resize/media-ready/action)
	NodeID string `json:"node_id,omitempty"`
	Height int    `json:"height,omitempty"`

	// scroll
	Top          int `json:"top,omitempty"`
	ScrollHeight int `json:"scroll_height,omitempty"`
	ClientHeight int `json:"client_height,omitempty"`

	// action
	Action string `json:"action,omitempty"`

	// show-removed
	Enabled bool `json:"enabled,omitempty"`
}

// initEvent is the handshake the page sends before anything else.
type initEvent struct {
	Path             string
	GutterWidth      int
	HasLoginPrompt   bool
	HasLogoutControl bool
	ClientHeight     int
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// bridgeHandler upgrades the connection and runs a session over it: events
// in, DOM patches out. The first message must be an init naming the chat
// path; connections from any other page are refused.
func bridgeHandler(deps *serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("bridge upgrade failed", "error", err, "remote", r.RemoteAddr)
			return
		}
		defer conn.Close()

		conn.SetReadLimit(maxEventSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		var first clientEvent
		if err := conn.ReadJSON(&first); err != nil || first.Type != "init" {
			slog.Warn("bridge handshake failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		if first.Path != deps.cfg.ChatPath {
			slog.Debug("bridge refused, not the chat page", "path", first.Path)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "not the chat page"),
				time.Now().Add(writeWait))
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess := NewSession(ctx, newSessionID(), deps, initEvent{
			Path:             first.Path,
			GutterWidth:      first.GutterWidth,
			HasLoginPrompt:   first.HasLoginPrompt,
			HasLogoutControl: first.HasLogoutControl,
			ClientHeight:     first.ClientHeight,
		})

		// Patches are queued for the write pump. The sink runs under the
		// document lock, so it must never block; a full queue drops the
		// patch and the page re-syncs on its next event.
		out := make(chan dom.Patch, patchQueueSize)
		sess.doc.OnPatch(func(p dom.Patch) {
			select {
			case out <- p:
			default:
				slog.Warn("patch queue full, dropping", "session", sess.ID, "op", p.Op)
			}
		})

		sessionsActive.Inc()
		defer sessionsActive.Dec()
		slog.Info("session started", "session", sess.ID, "remote", r.RemoteAddr, "logged_out", sess.LoggedOut())

		go writePump(ctx, conn, out, sess.ID)

		for {
			var ev clientEvent
			if err := conn.ReadJSON(&ev); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Warn("bridge read error", "session", sess.ID, "error", err)
				}
				slog.Info("session ended", "session", sess.ID)
				return
			}
			conn.SetReadDeadline(time.Now().Add(pongWait))
			sess.HandleEvent(ev)
		}
	}
}

// writePump drains the patch queue onto the socket and keeps the connection
// alive with pings.
func writePump(ctx context.Context, conn *websocket.Conn, out <-chan dom.Patch, sessionID string) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(p); err != nil {
				slog.Debug("patch write failed", "session", sessionID, "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
