package dom

import "strings"

// ID returns the node's document-unique id.
func (n *Node) ID() string { return n.id }

// Tag returns the node's element tag.
func (n *Node) Tag() string { return n.tag }

// Attr returns the named attribute, or "".
func (n *Node) Attr(name string) string {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	return n.attrs[name]
}

// HasAttr reports whether the attribute is present (even empty).
func (n *Node) HasAttr(name string) bool {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	_, ok := n.attrs[name]
	return ok
}

// SetAttr sets an attribute without emitting a patch; markers like scan guards
// live only in the mirror.
func (n *Node) SetAttr(name, value string) {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	n.attrs[name] = value
}

// SetText sets the node's own text content.
func (n *Node) SetText(text string) {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	n.text = text
}

// Text returns the node's own text content.
func (n *Node) Text() string {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	return n.text
}

// TextContent returns the node's text plus all descendant text, space joined.
func (n *Node) TextContent() string {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	var parts []string
	n.collectText(&parts)
	return strings.Join(parts, " ")
}

func (n *Node) collectText(parts *[]string) {
	if n.text != "" {
		*parts = append(*parts, n.text)
	}
	for _, c := range n.children {
		c.collectText(parts)
	}
}

// AppendChild adds a detached child to a detached or attached node. For
// attached parents the subtree height is accounted to the viewport.
func (n *Node) AppendChild(c *Node) {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	c.parent = n
	c.detached = n.detached
	n.children = append(n.children, c)
	if !n.detached {
		n.doc.index(c)
		n.doc.scrollHeight += c.subtreeHeight()
	}
}

// Children returns a copy of the node's direct children.
func (n *Node) Children() []*Node {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Detached reports whether the node has been removed from the document.
func (n *Node) Detached() bool {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	return n.detached
}

// Visible reports whether the node is currently inside the viewport,
// per the host page's visibility reports.
func (n *Node) Visible() bool {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	return n.visible && !n.detached
}

// SetVisible records a visibility report from the host page.
func (n *Node) SetVisible(v bool) {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	n.visible = v
}

// Height returns the node's own reported height.
func (n *Node) Height() int {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	return n.height
}

// SetHeight records a new height for the node, adjusts the document scroll
// height when attached, and fires any resize observers with the delta.
func (n *Node) SetHeight(h int) {
	n.doc.mu.Lock()
	delta := h - n.height
	n.height = h
	var fns []func(delta int)
	if !n.detached {
		n.doc.scrollHeight += delta
		if delta != 0 {
			for _, fn := range n.doc.resizeObs[n.id] {
				if fn != nil {
					fns = append(fns, fn)
				}
			}
		}
	}
	n.doc.mu.Unlock()
	for _, fn := range fns {
		fn(delta)
	}
}

// Anchors returns every descendant anchor element, document order.
func (n *Node) Anchors() []*Node {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	var out []*Node
	n.collectAnchors(&out)
	return out
}

func (n *Node) collectAnchors(out *[]*Node) {
	if n.tag == "a" {
		*out = append(*out, n)
	}
	for _, c := range n.children {
		c.collectAnchors(out)
	}
}
