package main

import (
	"log/slog"
	"sync"
	"time"

	"embed-server/internal/dom"
)

// Scroll pinning thresholds. User scrolls within pinSlack of the bottom keep
// the view pinned; insertion-time bottom checks use the much tighter
// insertSlack because at that instant no user motion is in flight.
const (
	pinSlack    = 32
	insertSlack = 2
)

// defaultSettleDelays are the re-snap ticks after a card insertion. Media
// elements report their size late, so a single immediate snap is not enough;
// the view is nudged back to the bottom as the card settles.
var defaultSettleDelays = []time.Duration{
	50 * time.Millisecond,
	150 * time.Millisecond,
	300 * time.Millisecond,
	800 * time.Millisecond,
}

// defaultSettleWindow bounds how long a freshly inserted card is watched for
// late growth.
const defaultSettleWindow = 2 * time.Second

// ScrollController keeps the chat view pinned to the bottom while embed
// cards of unpredictable height pop into the transcript. It is either pinned
// (following the newest message) or unpinned (user reading scrollback), and
// only genuine user scrolls may change that state.
type ScrollController struct {
	mu     sync.Mutex
	doc    *dom.Document
	pinned bool

	// lastCommanded is the scroll top of the most recent programmatic snap,
	// or -1 when no echo is expected. A snap that lands where the page
	// already sits produces no scroll event, so echoes are matched by
	// position instead of counted: a stale value can never swallow a user
	// scroll to a different position.
	lastCommanded int

	settleDelays []time.Duration
	settleWindow time.Duration
	afterFunc    func(time.Duration, func()) *time.Timer
}

// ScrollConfig overrides timing for tests. Zero values take the defaults.
type ScrollConfig struct {
	SettleDelays []time.Duration
	SettleWindow time.Duration
	AfterFunc    func(time.Duration, func()) *time.Timer
}

// NewScrollController starts pinned: a fresh chat opens at the bottom.
func NewScrollController(doc *dom.Document, cfg ScrollConfig) *ScrollController {
	sc := &ScrollController{
		doc:           doc,
		pinned:        true,
		lastCommanded: -1,
		settleDelays:  cfg.SettleDelays,
		settleWindow:  cfg.SettleWindow,
		afterFunc:     cfg.AfterFunc,
	}
	if sc.settleDelays == nil {
		sc.settleDelays = defaultSettleDelays
	}
	if sc.settleWindow == 0 {
		sc.settleWindow = defaultSettleWindow
	}
	if sc.afterFunc == nil {
		sc.afterFunc = time.AfterFunc
	}
	return sc
}

// Pinned reports whether the view is following the bottom.
func (sc *ScrollController) Pinned() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.pinned
}

// ObserveUserScroll handles a scroll event from the client. An event landing
// exactly where the last snap commanded is its echo and leaves the pinned
// state alone; everything else re-derives it from the distance to the bottom.
func (sc *ScrollController) ObserveUserScroll() {
	top := sc.doc.Scroll().Top
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.lastCommanded >= 0 && top == sc.lastCommanded {
		sc.lastCommanded = -1
		return
	}
	sc.lastCommanded = -1
	was := sc.pinned
	sc.pinned = sc.doc.DistanceFromBottom() <= pinSlack
	if was != sc.pinned {
		slog.Debug("scroll pin changed", "pinned", sc.pinned)
	}
}

// JumpToBottom is the user explicitly asking for the newest message: pin and
// snap regardless of where the view was.
func (sc *ScrollController) JumpToBottom() {
	sc.mu.Lock()
	sc.pinned = true
	sc.mu.Unlock()
	sc.snap()
}

// MarkInsertionStart brackets a DOM mutation. It records whether the view
// sat at the bottom at the instant before the mutation and returns the
// closing half of the bracket; the returned func restores the bottom
// position synchronously when it was held before.
func (sc *ScrollController) MarkInsertionStart() func() {
	sc.mu.Lock()
	wasAtBottom := sc.doc.DistanceFromBottom() <= insertSlack
	sc.mu.Unlock()

	return func() {
		sc.mu.Lock()
		restore := wasAtBottom || sc.pinned
		sc.mu.Unlock()
		if restore {
			sc.snap()
		}
	}
}

// CardInserted schedules the settle sequence for a freshly inserted card:
// an immediate snap, timed re-snaps, and a bounded watch on the card's node
// for late height growth. No-op when unpinned.
func (sc *ScrollController) CardInserted(n *dom.Node) {
	if !sc.Pinned() {
		return
	}
	sc.snap()

	for _, d := range sc.settleDelays {
		sc.afterFunc(d, func() {
			if sc.Pinned() {
				sc.snap()
			}
		})
	}

	cancel := sc.doc.ObserveResize(n, func(delta int) {
		if delta > 0 && sc.Pinned() {
			sc.snap()
		}
	})
	sc.afterFunc(sc.settleWindow, cancel)
}

// MediaReady handles a media element finishing its load inside a card. One
// snap if still pinned; late loads on an unpinned view must not yank the
// user around.
func (sc *ScrollController) MediaReady() {
	if sc.Pinned() {
		sc.snap()
	}
}

// snap scrolls to the bottom and records the commanded position so the echoed
// scroll event is not mistaken for user input.
func (sc *ScrollController) snap() {
	s := sc.doc.Scroll()
	target := s.ScrollHeight - s.ClientHeight
	if target < 0 {
		target = 0
	}
	sc.mu.Lock()
	sc.lastCommanded = target
	sc.mu.Unlock()
	sc.doc.ScrollTo(target)
	scrollSnapsTotal.Inc()
}
