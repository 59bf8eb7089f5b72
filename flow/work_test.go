package flow

import (
	"testing"

	"typeflow/geom"
)

func TestWorkCloneIsolation(t *testing.T) {
	w := newWork([]Child{
		tagChild{tag: geom.TagItem{Name: "a"}},
		tagChild{tag: geom.TagItem{Name: "b"}},
	})
	w.addSkip(1)

	c := w.clone()
	c.advance()
	c.addSkip(2)

	if len(w.children) != 2 {
		t.Errorf("original lost children after clone advance: %d", len(w.children))
	}
	if !w.hasSkip(1) {
		t.Error("original lost its own skip")
	}
	if w.hasSkip(2) {
		t.Error("skip added to clone leaked into original")
	}
	if !c.hasSkip(1) || !c.hasSkip(2) {
		t.Error("clone is missing skips")
	}
}

func TestWorkSkipsCopyOnWriteBothDirections(t *testing.T) {
	w := newWork(nil)
	c := w.clone()

	// First write after a share goes to a private copy regardless of side.
	w.addSkip(7)
	if c.hasSkip(7) {
		t.Error("skip added to original leaked into clone")
	}
}

func TestWorkDone(t *testing.T) {
	w := newWork(nil)
	if !w.done() {
		t.Error("empty work is not done")
	}

	w.tags = append(w.tags, geom.TagItem{Name: "x"})
	if !w.done() {
		t.Error("queued tags alone keep work alive")
	}

	w.footnotes = append(w.footnotes, &noteEntry{id: "n1"})
	if w.done() {
		t.Error("work with queued footnotes reports done")
	}
}

func TestWorkPendingCountsSpillFractions(t *testing.T) {
	mc := &MultiChild{total: 100}
	w := newWork(nil)
	w.spill = &MultiSpill{child: mc, consumed: 25}

	if got := w.pending(); got != 0.75 {
		t.Errorf("pending() = %v, want 0.75", got)
	}

	// A queued float weighs less than a child, so a child turning into a
	// queued float still registers as progress.
	w.spill = nil
	w.floats = append(w.floats, &PlacedChild{})
	if got := w.pending(); got != 0.5 {
		t.Errorf("pending() = %v, want 0.5", got)
	}
}
