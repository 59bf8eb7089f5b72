package flow

import (
	"context"
	"math"

	"go.uber.org/zap"

	"typeflow/common"
	"typeflow/css"
	"typeflow/diag"
	"typeflow/geom"
	"typeflow/markup"
	"typeflow/text"
)

// Collection turns the prepared node sequence into flow children: every child
// is fully pre-measured, so distribution later makes fitting decisions from
// heights alone and never re-measures content.

// Child is one unit of distributable content. The set of variants is closed.
type Child interface {
	isChild()
}

// tagChild is a zero-size introspection anchor.
type tagChild struct {
	tag geom.TagItem
}

// breakChild is an explicit column or region break request.
type breakChild struct {
	loc  diag.Location
	kind common.BreakKind
}

// LineChild is a single paragraph line. Lines are the finest distribution
// granularity and the only children that carry line numbers.
type LineChild struct {
	loc        diag.Location
	frame      *geom.Frame
	spaceAbove geom.Abs
	spaceBelow geom.Abs
	notes      []*noteEntry
	numbered   bool
}

// SingleChild is an unbreakable block with a pre-laid frame.
type SingleChild struct {
	loc        diag.Location
	frame      *geom.Frame
	spaceAbove geom.Abs
	spaceBelow geom.Abs
	notes      []*noteEntry
}

// MultiChild is a breakable block. It is either row-based (content broken
// into indivisible rows) or sized (an opaque block of the given height that
// may be sliced anywhere).
type MultiChild struct {
	loc        diag.Location
	width      geom.Abs
	spaceAbove geom.Abs
	spaceBelow geom.Abs

	// rows, when non-nil, are the indivisible pieces in order.
	rows []multiRow
	// total is the full height of a sized block; only read when rows is nil.
	total geom.Abs
}

type multiRow struct {
	frame *geom.Frame
	notes []*noteEntry
}

// MultiSpill continues a partially placed MultiChild in the next region.
type MultiSpill struct {
	child *MultiChild
	// row is the next row to place for row-based children.
	row int
	// consumed is the height already placed for sized children.
	consumed geom.Abs
}

// fraction reports the unplaced share of the child, in (0, 1]. The region
// driver uses it to verify that every region makes progress.
func (s *MultiSpill) fraction() float64 {
	if s.child.rows != nil {
		return float64(len(s.child.rows)-s.row) / float64(len(s.child.rows))
	}
	return float64((s.child.total - s.consumed) / s.child.total)
}

// PlacedChild is a floating element looking for a place in its scope.
type PlacedChild struct {
	loc       diag.Location
	frame     *geom.Frame
	scope     common.PlacementScope
	pos       common.PlacementPos
	clearance geom.Abs
}

func (tagChild) isChild()     {}
func (breakChild) isChild()   {}
func (*LineChild) isChild()   {}
func (*SingleChild) isChild() {}
func (*MultiChild) isChild()  {}
func (*PlacedChild) isChild() {}

// noteEntry is a footnote entry pre-broken into lines, placed into the region
// bottom area line by line.
type noteEntry struct {
	ord   int
	id    string
	lines []*geom.Frame
}

func (n *noteEntry) height() geom.Abs {
	var h geom.Abs
	for _, l := range n.lines {
		h += l.Height()
	}
	return h
}

// noteSpill continues a footnote entry split mid-region.
type noteSpill struct {
	entry  *noteEntry
	offset int
}

func (s *noteSpill) remaining() int {
	return len(s.entry.lines) - s.offset
}

func (s *noteSpill) fraction() float64 {
	return float64(s.remaining()) / float64(len(s.entry.lines))
}

type collectCtx struct {
	engine   *Engine
	ctx      context.Context
	doc      *markup.Document
	resolver *css.Resolver
	shared   css.Styles
	width    geom.Abs
	mode     common.FlowMode
	sink     *diag.Sink

	// entries dedupes footnote entries: a second marker for the same id
	// reuses the already collected entry.
	entries map[string]*noteEntry
}

func (cc *collectCtx) collect(nodes []*markup.Node) ([]Child, *Stop) {
	var children []Child
	for _, node := range nodes {
		cs, stop := cc.node(node)
		if stop != nil {
			return nil, stop
		}
		children = append(children, cs...)
	}
	return children, nil
}

func (cc *collectCtx) node(node *markup.Node) ([]Child, *Stop) {
	switch node.Kind {
	case markup.KindLabel:
		return []Child{tagChild{tag: geom.TagItem{Name: node.Label, Ordinal: node.Loc.Ordinal}}}, nil

	case markup.KindBreak:
		return []Child{breakChild{loc: node.Loc, kind: node.Break}}, nil

	case markup.KindPara:
		st := cc.resolver.For("p", node.Class, cc.shared)
		return cc.para(node, st), nil

	case markup.KindImage:
		return cc.image(node), nil

	case markup.KindBlock:
		return cc.block(node)

	case markup.KindFigure:
		return cc.figure(node)

	default:
		cc.engine.log.Debug("Skipping unknown node kind", zap.Stringer("kind", node.Kind), zap.Stringer("at", node.Loc))
		return nil, nil
	}
}

// para breaks a paragraph into line children. Paragraph spacing attaches to
// the outermost lines so the distributor can collapse it against siblings.
func (cc *collectCtx) para(node *markup.Node, st css.Styles) []Child {
	lines := cc.lines(node.Spans, st)
	children := make([]Child, 0, len(lines))
	for i, l := range lines {
		lc := &LineChild{
			loc:      node.Loc,
			frame:    l.frame,
			notes:    l.notes,
			numbered: true,
		}
		if i == 0 {
			lc.spaceAbove = st.SpaceAbove
		}
		if i == len(lines)-1 {
			lc.spaceBelow = st.SpaceBelow
		}
		children = append(children, lc)
	}
	return children
}

type lineInfo struct {
	frame *geom.Frame
	notes []*noteEntry
}

// lines breaks spans at the collection width and builds one frame per line.
func (cc *collectCtx) lines(spans []text.Span, st css.Styles) []lineInfo {
	broken := text.BreakLines(spans, cc.width, cc.engine.measurer, st.FontSize)
	out := make([]lineInfo, 0, len(broken))
	for _, line := range broken {
		frame := geom.NewFrame(geom.Size{W: cc.width, H: st.LineHeight})
		x := geom.Abs(0)
		if st.Dir == geom.RTL {
			x = cc.width - line.Width
		}
		frame.Push(geom.Point{X: x}, geom.TextItem{Text: line.Text, Size: st.FontSize})

		info := lineInfo{frame: frame}
		for _, id := range line.Notes {
			if entry := cc.noteFor(id); entry != nil {
				info.notes = append(info.notes, entry)
			}
		}
		out = append(out, info)
	}
	return out
}

// noteFor builds (or reuses) the pre-broken entry for a footnote id.
func (cc *collectCtx) noteFor(id string) *noteEntry {
	if cc.entries == nil {
		cc.entries = make(map[string]*noteEntry)
	}
	if entry, ok := cc.entries[id]; ok {
		return entry
	}
	note, ok := cc.doc.Notes[id]
	if !ok {
		// Prepare drops dangling markers; reaching this means the index and
		// the spans went out of sync.
		cc.engine.log.Warn("Footnote marker without entry", zap.String("id", id))
		return nil
	}

	st := cc.resolver.For("note", "", cc.shared)
	spans := append([]text.Span{{Text: id + "."}}, note.Spans...)
	entry := &noteEntry{ord: note.Loc.Ordinal, id: id}
	for _, l := range cc.lines(spans, st) {
		entry.lines = append(entry.lines, l.frame)
	}
	cc.entries[id] = entry
	return entry
}

func (cc *collectCtx) image(node *markup.Node) []Child {
	img, ok := cc.doc.Images[node.ImageID]
	if !ok {
		cc.sink.Report(diag.Warnf(node.Loc, "image %q is not available", node.ImageID))
		return nil
	}
	st := cc.resolver.For("image", node.Class, cc.shared)
	size := scaledImageSize(img, cc.width)
	frame := geom.NewFrame(size)
	frame.Push(geom.Point{}, geom.ElemItem{Kind: "image", Label: img.ID})
	return []Child{&SingleChild{
		loc:        node.Loc,
		frame:      frame,
		spaceAbove: st.SpaceAbove,
		spaceBelow: st.SpaceBelow,
	}}
}

func (cc *collectCtx) block(node *markup.Node) ([]Child, *Stop) {
	st := cc.resolver.For("block", node.Class, cc.shared)
	breakable := st.Breakable
	if node.Breakable != nil {
		breakable = *node.Breakable
	}

	// Sized blocks are opaque: their height is all that matters.
	if node.Height > 0 && len(node.Children) == 0 {
		if !breakable {
			frame := geom.NewFrame(geom.Size{W: cc.width, H: node.Height})
			frame.Push(geom.Point{}, geom.ElemItem{Kind: "block"})
			return []Child{&SingleChild{
				loc:        node.Loc,
				frame:      frame,
				spaceAbove: st.SpaceAbove,
				spaceBelow: st.SpaceBelow,
			}}, nil
		}
		return []Child{&MultiChild{
			loc:        node.Loc,
			width:      cc.width,
			spaceAbove: st.SpaceAbove,
			spaceBelow: st.SpaceBelow,
			total:      node.Height,
		}}, nil
	}

	if breakable {
		return cc.breakableBlock(node, st)
	}

	// Non-breakable content blocks lay out as a nested flow and enter
	// distribution as one indivisible frame. Footnote markers inside surface
	// to the enclosing flow.
	frame, stop := cc.engine.layoutNested(cc.ctx, cc, node.Children, st, cc.width)
	if stop != nil {
		return nil, stop
	}
	return []Child{&SingleChild{
		loc:        node.Loc,
		frame:      frame,
		spaceAbove: st.SpaceAbove,
		spaceBelow: st.SpaceBelow,
		notes:      cc.nestedNotes(node),
	}}, nil
}

// breakableBlock pre-measures nested paragraphs into rows, with paragraph
// spacing expressed as spacer rows so the block can break between any two
// rows.
func (cc *collectCtx) breakableBlock(node *markup.Node, st css.Styles) ([]Child, *Stop) {
	mc := &MultiChild{
		loc:        node.Loc,
		width:      cc.width,
		spaceAbove: st.SpaceAbove,
		spaceBelow: st.SpaceBelow,
	}
	for i, sub := range node.Children {
		ps := cc.resolver.For("p", sub.Class, st)
		if i > 0 {
			gap := ps.SpaceAbove.Max(st.SpaceBelow)
			if gap > 0 {
				mc.rows = append(mc.rows, multiRow{frame: geom.NewFrame(geom.Size{W: cc.width, H: gap})})
			}
		}
		for _, l := range cc.lines(sub.Spans, ps) {
			mc.rows = append(mc.rows, multiRow{frame: l.frame, notes: l.notes})
		}
	}
	if len(mc.rows) == 0 {
		return nil, nil
	}
	return []Child{mc}, nil
}

// nestedNotes gathers footnote entries referenced anywhere inside a block.
func (cc *collectCtx) nestedNotes(node *markup.Node) []*noteEntry {
	var notes []*noteEntry
	var walk func(n *markup.Node)
	walk = func(n *markup.Node) {
		for _, span := range n.Spans {
			if span.NoteID == "" {
				continue
			}
			if entry := cc.noteFor(span.NoteID); entry != nil {
				notes = append(notes, entry)
			}
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	for _, child := range node.Children {
		walk(child)
	}
	return notes
}

func (cc *collectCtx) figure(node *markup.Node) ([]Child, *Stop) {
	st := cc.resolver.For("figure", node.Class, cc.shared)

	var size geom.Size
	img, hasImage := cc.doc.Images[node.ImageID]
	switch {
	case hasImage:
		size = scaledImageSize(img, cc.width)
		if node.Height > 0 {
			size.H = node.Height
		}
	case node.Height > 0:
		size = geom.Size{W: cc.width, H: node.Height}
	default:
		cc.sink.Report(diag.Warnf(node.Loc, "figure has neither image nor height, dropping"))
		return nil, nil
	}

	frame := geom.NewFrame(size)
	frame.Push(geom.Point{}, geom.ElemItem{Kind: "figure", Label: node.ImageID})

	// Caption lines extend the frame below the content.
	for _, sub := range node.Children {
		ps := cc.resolver.For("p", sub.Class, st)
		for _, l := range cc.lines(sub.Spans, ps) {
			y := frame.Height()
			frame.Grow(l.frame.Height())
			frame.PushFrame(geom.Point{Y: y}, l.frame)
		}
	}
	if frame.Width() < cc.width {
		frame.SetSize(geom.Size{W: cc.width, H: frame.Height()})
	}

	return []Child{&PlacedChild{
		loc:       node.Loc,
		frame:     frame,
		scope:     node.Scope,
		pos:       node.Place,
		clearance: st.LineHeight,
	}}, nil
}

// scaledImageSize fits an image into the column width, preserving the aspect
// ratio and never scaling up.
func scaledImageSize(img *markup.Image, width geom.Abs) geom.Size {
	w, h := img.Width, img.Height
	if w > width && w > 0 {
		scale := float64(width / w)
		w = width
		h = geom.Abs(math.Max(float64(h)*scale, 0))
	}
	return geom.Size{W: w, H: h}
}
