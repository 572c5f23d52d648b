package dom

// Viewport metrics mirror the host page's scroll region.

// ScrollState is a snapshot of the viewport.
type ScrollState struct {
	Top          int
	ScrollHeight int
	ClientHeight int
}

// Scroll returns the current viewport snapshot.
func (d *Document) Scroll() ScrollState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ScrollState{Top: d.scrollTop, ScrollHeight: d.scrollHeight, ClientHeight: d.clientHeight}
}

// DistanceFromBottom returns how far the viewport sits above the newest
// content. Zero means fully scrolled down.
func (d *Document) DistanceFromBottom() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.distanceFromBottom()
}

func (d *Document) distanceFromBottom() int {
	dist := d.scrollHeight - d.clientHeight - d.scrollTop
	if dist < 0 {
		dist = 0
	}
	return dist
}

// ReportScroll records a scroll position reported by the host page. It does
// not emit a patch; the page already moved.
func (d *Document) ReportScroll(top, scrollHeight, clientHeight int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scrollTop = top
	if scrollHeight > 0 {
		d.scrollHeight = scrollHeight
	}
	if clientHeight > 0 {
		d.clientHeight = clientHeight
	}
}

// ScrollTo moves the viewport to an absolute position and emits a patch so
// the page follows. Used by bottom snaps and the pager's scroll lock.
func (d *Document) ScrollTo(top int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if top < 0 {
		top = 0
	}
	d.scrollTop = top
	d.emit(Patch{Op: "scroll-to", Top: top})
}
