package dom

import "testing"

func TestInsertAfterEmitsPatchAndTracksHeight(t *testing.T) {
	d := NewDocument(600)
	var patches []Patch
	d.OnPatch(func(p Patch) { patches = append(patches, p) })

	msg := d.NewNode("m1", "div")
	msg.SetHeight(120)
	d.Append(d.Root(), msg)

	card := d.NewNode("embed-1", "div")
	card.SetAttr("html", "<div>card</div>")
	card.SetHeight(200)
	d.InsertAfter(msg, card)

	if got := d.Scroll().ScrollHeight; got != 320 {
		t.Fatalf("scroll height = %d, want 320", got)
	}
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1", len(patches))
	}
	p := patches[0]
	if p.Op != "insert" || p.AfterID != "m1" || p.NodeID != "embed-1" || p.HTML == "" {
		t.Fatalf("unexpected insert patch: %+v", p)
	}
}

func TestAppendAttachesWholeSubtree(t *testing.T) {
	// Message containers arrive with their anchors already nested; attaching
	// the container must attach every descendant, the way Remove detaches
	// them all.
	d := NewDocument(600)
	msg := d.NewNode("m1", "div")
	anchor := d.NewNode("a1", "a")
	inner := d.NewNode("", "span")
	deep := d.NewNode("a2", "a")
	inner.AppendChild(deep)
	msg.AppendChild(anchor)
	msg.AppendChild(inner)
	d.Append(d.Root(), msg)

	for _, n := range []*Node{msg, anchor, inner, deep} {
		if n.Detached() {
			t.Fatalf("node %q still detached after container attach", n.ID())
		}
	}
	if d.ByID("a2") != deep {
		t.Fatal("nested anchor not indexed after container attach")
	}
}

func TestRemoveShrinksScrollHeightAndDetaches(t *testing.T) {
	d := NewDocument(600)
	n := d.NewNode("m1", "div")
	n.SetHeight(500)
	child := d.NewNode("a1", "a")
	n.AppendChild(child)
	d.Append(d.Root(), n)

	d.Remove(n)
	if got := d.Scroll().ScrollHeight; got != 0 {
		t.Fatalf("scroll height = %d after remove, want 0", got)
	}
	if !n.Detached() || !child.Detached() {
		t.Fatal("removed subtree not detached")
	}
	if d.ByID("a1") != nil {
		t.Fatal("detached child still indexed")
	}
}

func TestResizeObserverFiresWithDelta(t *testing.T) {
	d := NewDocument(600)
	n := d.NewNode("m1", "div")
	n.SetHeight(100)
	d.Append(d.Root(), n)

	var got []int
	cancel := d.ObserveResize(n, func(delta int) { got = append(got, delta) })

	n.SetHeight(250)
	n.SetHeight(250) // no change, no callback
	cancel()
	n.SetHeight(400)

	if len(got) != 1 || got[0] != 150 {
		t.Fatalf("observer deltas = %v, want [150]", got)
	}
	if h := d.Scroll().ScrollHeight; h != 400 {
		t.Fatalf("scroll height = %d, want 400", h)
	}
}

func TestAnchorsReturnsDescendantsInOrder(t *testing.T) {
	d := NewDocument(600)
	msg := d.NewNode("m1", "div")
	first := d.NewNode("a1", "a")
	inner := d.NewNode("", "span")
	second := d.NewNode("a2", "a")
	inner.AppendChild(second)
	msg.AppendChild(first)
	msg.AppendChild(inner)
	d.Append(d.Root(), msg)

	anchors := msg.Anchors()
	if len(anchors) != 2 || anchors[0].ID() != "a1" || anchors[1].ID() != "a2" {
		t.Fatalf("anchors = %v", anchors)
	}
}

func TestDistanceFromBottom(t *testing.T) {
	d := NewDocument(600)
	n := d.NewNode("m1", "div")
	n.SetHeight(2000)
	d.Append(d.Root(), n)

	d.ReportScroll(1400, 2000, 600)
	if got := d.DistanceFromBottom(); got != 0 {
		t.Fatalf("distance = %d, want 0", got)
	}
	d.ReportScroll(1000, 2000, 600)
	if got := d.DistanceFromBottom(); got != 400 {
		t.Fatalf("distance = %d, want 400", got)
	}
}
