package flow

import (
	"encoding/binary"
	"hash"
	"maps"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"

	"typeflow/common"
	"typeflow/css"
	"typeflow/diag"
	"typeflow/geom"
	"typeflow/markup"
	"typeflow/text"
)

// Layout is a pure function of the document, the stylesheet and the region
// geometry, which makes whole invocations memoizable. A hit replays the
// recorded diagnostics so it is observationally identical to a recompute.

const memoLimit = 256

type memoCache struct {
	entries map[uint64]memoEntry
}

type memoEntry struct {
	frames Fragment
	diags  []diag.Diagnostic
}

func newMemoCache() *memoCache {
	return &memoCache{entries: make(map[uint64]memoEntry)}
}

func (m *memoCache) lookup(key uint64) (Fragment, []diag.Diagnostic, bool) {
	e, ok := m.entries[key]
	return e.frames, e.diags, ok
}

func (m *memoCache) store(key uint64, frames Fragment, diags []diag.Diagnostic) {
	if len(m.entries) >= memoLimit {
		clear(m.entries)
	}
	m.entries[key] = memoEntry{frames: frames, diags: diags}
}

// memoKey fingerprints everything the layout result depends on.
func (e *Engine) memoKey(doc *markup.Document, sheet *css.Stylesheet, regions geom.Regions, mode common.FlowMode) uint64 {
	h := xxhash.New()
	hashString(h, doc.ID)
	hashString(h, doc.Lang.String())
	hashString(h, sheet.String())

	hashInt(h, int(mode))
	hashAbs(h, regions.Size.W)
	hashAbs(h, regions.Size.H)
	hashAbs(h, regions.Full)
	hashInt(h, len(regions.Backlog))
	for _, b := range regions.Backlog {
		hashAbs(h, b)
	}
	if regions.Last != nil {
		hashAbs(h, *regions.Last)
	}
	hashBool(h, regions.Expand.X)
	hashBool(h, regions.Expand.Y)

	hashInt(h, len(doc.Body))
	for _, node := range doc.Body {
		hashNode(h, node)
	}
	// Map iteration order is random; hash indices in sorted key order.
	hashInt(h, len(doc.Notes))
	for _, id := range slices.Sorted(maps.Keys(doc.Notes)) {
		note := doc.Notes[id]
		hashInt(h, note.Loc.Ordinal)
		hashString(h, note.ID)
		hashSpans(h, note.Spans)
	}
	hashInt(h, len(doc.Images))
	for _, id := range slices.Sorted(maps.Keys(doc.Images)) {
		img := doc.Images[id]
		hashString(h, img.ID)
		hashAbs(h, img.Width)
		hashAbs(h, img.Height)
	}
	return h.Sum64()
}

func hashNode(h hash.Hash64, node *markup.Node) {
	hashInt(h, int(node.Kind))
	hashInt(h, node.Loc.Ordinal)
	hashString(h, node.Class)
	hashSpans(h, node.Spans)
	if node.Breakable != nil {
		hashBool(h, *node.Breakable)
	}
	hashAbs(h, node.Height)
	hashInt(h, int(node.Place))
	hashInt(h, int(node.Scope))
	hashInt(h, int(node.Break))
	hashString(h, node.ImageID)
	hashString(h, node.Label)
	hashInt(h, len(node.Children))
	for _, child := range node.Children {
		hashNode(h, child)
	}
}

func hashSpans(h hash.Hash64, spans []text.Span) {
	hashInt(h, len(spans))
	for _, s := range spans {
		hashString(h, s.Text)
		hashString(h, s.NoteID)
	}
}

func hashString(h hash.Hash64, s string) {
	hashInt(h, len(s))
	h.Write([]byte(s)) //nolint:errcheck
}

func hashInt(h hash.Hash64, v int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	h.Write(buf[:]) //nolint:errcheck
}

func hashAbs(h hash.Hash64, a geom.Abs) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(float64(a)))
	h.Write(buf[:]) //nolint:errcheck
}

func hashBool(h hash.Hash64, b bool) {
	if b {
		hashInt(h, 1)
	} else {
		hashInt(h, 0)
	}
}
