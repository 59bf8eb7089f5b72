package flow

import "typeflow/geom"

// Work tracks everything still to be arranged: the remaining children plus
// content that was queued for a later region (breakable block spill, deferred
// floats, overflowing footnote lines) and bookkeeping shared across region
// attempts.
type Work struct {
	children []Child
	// spill continues a breakable block that ran out of room.
	spill *MultiSpill
	// floats holds placed children that could not be placed yet.
	floats []*PlacedChild
	// footnotes holds entries whose markers were placed but whose content
	// migrated to a later region.
	footnotes []*noteEntry
	// footnoteSpill continues a footnote entry that was split mid-region.
	footnoteSpill *noteSpill
	// tags queued for attachment to the next produced frame.
	tags []geom.TagItem

	// skips identifies insertions that were already handled, so a retried
	// region does not place them twice. The set is shared between snapshots
	// and copied on first write after a share.
	skips *skipSet
}

func newWork(children []Child) *Work {
	return &Work{children: children, skips: &skipSet{m: make(map[int]struct{})}}
}

// head returns the next unprocessed child, nil when none remain.
func (w *Work) head() Child {
	if len(w.children) == 0 {
		return nil
	}
	return w.children[0]
}

func (w *Work) advance() {
	w.children = w.children[1:]
}

// done reports whether nothing remains to be arranged. Queued tags alone do
// not keep layout alive: they attach to whatever frame comes last.
func (w *Work) done() bool {
	return len(w.children) == 0 &&
		w.spill == nil &&
		len(w.floats) == 0 &&
		len(w.footnotes) == 0 &&
		w.footnoteSpill == nil
}

// clone takes a snapshot the composer can consume during one region attempt.
// Slices are copied so the original survives a discarded attempt; the skip
// set is shared until either side writes to it.
func (w *Work) clone() *Work {
	w.skips.shared = true
	c := &Work{
		spill:         w.spill,
		footnoteSpill: w.footnoteSpill,
		skips:         w.skips,
	}
	c.children = append([]Child(nil), w.children...)
	c.floats = append([]*PlacedChild(nil), w.floats...)
	c.footnotes = append([]*noteEntry(nil), w.footnotes...)
	c.tags = append([]geom.TagItem(nil), w.tags...)
	return c
}

func (w *Work) hasSkip(ordinal int) bool {
	_, ok := w.skips.m[ordinal]
	return ok
}

func (w *Work) addSkip(ordinal int) {
	if w.skips.shared {
		w.skips = w.skips.copy()
	}
	w.skips.m[ordinal] = struct{}{}
}

func (w *Work) addSkips(ordinals []int) {
	for _, o := range ordinals {
		w.addSkip(o)
	}
}

type skipSet struct {
	m      map[int]struct{}
	shared bool
}

func (s *skipSet) copy() *skipSet {
	c := &skipSet{m: make(map[int]struct{}, len(s.m))}
	for k := range s.m {
		c.m[k] = struct{}{}
	}
	return c
}
