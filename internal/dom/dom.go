// Package dom models the slice of the host chat page the embed pipeline works
// on: message nodes, the anchors inside them, inserted card wrappers, and the
// scroll viewport. The websocket bridge mirrors this model to the real page;
// tests drive it directly.
//
// All mutation goes through Document methods behind a single mutex, so the
// pipeline goroutine, resolver completions, and settle timers can all touch
// the tree safely.
package dom

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Patch is one mutation the bridge replays onto the real page.
type Patch struct {
	Op      string `json:"op"` // "insert" | "replace" | "remove" | "scroll-to"
	AfterID string `json:"after_id,omitempty"`
	NodeID  string `json:"node_id,omitempty"`
	HTML    string `json:"html,omitempty"`
	Top     int    `json:"top,omitempty"`
}

// Node is one element in the mirrored tree. Fields are only touched while the
// owning document's lock is held; use the accessor methods.
type Node struct {
	doc *Document

	id       string
	tag      string
	text     string
	attrs    map[string]string
	children []*Node
	parent   *Node

	height   int
	visible  bool
	detached bool
}

// Document is the mirrored page fragment plus its viewport.
type Document struct {
	mu   sync.Mutex
	root *Node
	byID map[string]*Node

	scrollTop    int
	scrollHeight int
	clientHeight int

	patchFn   func(Patch)
	resizeObs map[string][]func(delta int)

	nextID atomic.Int64
}

// NewDocument creates an empty document with the given viewport dimensions.
func NewDocument(clientHeight int) *Document {
	d := &Document{
		byID:         make(map[string]*Node),
		clientHeight: clientHeight,
		resizeObs:    make(map[string][]func(delta int)),
	}
	d.root = &Node{doc: d, id: "root", tag: "div", attrs: map[string]string{}, visible: true}
	d.byID["root"] = d.root
	return d
}

// OnPatch registers the sink that receives every outgoing mutation.
// The callback runs with the document lock held; it must not call back in.
func (d *Document) OnPatch(fn func(Patch)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.patchFn = fn
}

func (d *Document) emit(p Patch) {
	if d.patchFn != nil {
		d.patchFn(p)
	}
}

// Root returns the document root node.
func (d *Document) Root() *Node { return d.root }

// NewNode creates a detached node owned by this document. An empty id gets an
// auto-assigned one.
func (d *Document) NewNode(id, tag string) *Node {
	if id == "" {
		id = fmt.Sprintf("gen-%d", d.nextID.Add(1))
	}
	return &Node{doc: d, id: id, tag: tag, attrs: map[string]string{}, visible: true, detached: true}
}

// ByID returns the attached node with the given id, or nil.
func (d *Document) ByID(id string) *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byID[id]
}

// Append attaches n as the last child of parent.
func (d *Document) Append(parent, n *Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attach(parent, n, len(parent.children))
}

// InsertAfter attaches n as ref's next sibling and emits an insert patch
// carrying the node's rendered HTML attribute.
func (d *Document) InsertAfter(ref, n *Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	parent := ref.parent
	if parent == nil {
		parent = d.root
	}
	idx := len(parent.children)
	for i, c := range parent.children {
		if c == ref {
			idx = i + 1
			break
		}
	}
	d.attach(parent, n, idx)
	d.emit(Patch{Op: "insert", AfterID: ref.id, NodeID: n.id, HTML: n.attrs["html"]})
}

func (d *Document) attach(parent, n *Node, idx int) {
	n.parent = parent
	parent.children = append(parent.children, nil)
	copy(parent.children[idx+1:], parent.children[idx:])
	parent.children[idx] = n
	d.index(n)
	d.scrollHeight += n.subtreeHeight()
}

// index mirrors markDetached: the whole subtree becomes attached and
// addressable, not just its root.
func (d *Document) index(n *Node) {
	n.detached = false
	d.byID[n.id] = n
	for _, c := range n.children {
		c.doc = d
		d.index(c)
	}
}

// Remove detaches n and its subtree, emits a remove patch, and shrinks the
// scroll height accordingly.
func (d *Document) Remove(n *Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n.detached || n.parent == nil {
		return
	}
	parent := n.parent
	for i, c := range parent.children {
		if c == n {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			break
		}
	}
	d.scrollHeight -= n.subtreeHeight()
	if d.scrollHeight < 0 {
		d.scrollHeight = 0
	}
	n.markDetached()
	d.emit(Patch{Op: "remove", NodeID: n.id})
}

func (n *Node) markDetached() {
	n.detached = true
	n.parent = nil
	delete(n.doc.byID, n.id)
	for _, c := range n.children {
		c.markDetached()
	}
}

// Replace emits a replace patch for a node whose rendered HTML changed.
// The node keeps its place in the tree.
func (d *Document) Replace(n *Node, html string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n.attrs["html"] = html
	d.emit(Patch{Op: "replace", NodeID: n.id, HTML: html})
}

// ObserveResize registers fn to run whenever n's height changes. The returned
// cancel function removes the observer.
func (d *Document) ObserveResize(n *Node, fn func(delta int)) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resizeObs[n.id] = append(d.resizeObs[n.id], fn)
	idx := len(d.resizeObs[n.id]) - 1
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		obs := d.resizeObs[n.id]
		if idx < len(obs) {
			obs[idx] = nil
		}
	}
}

func (n *Node) subtreeHeight() int {
	h := n.height
	for _, c := range n.children {
		h += c.subtreeHeight()
	}
	return h
}
