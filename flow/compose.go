package flow

import (
	"strconv"

	"typeflow/common"
	"typeflow/diag"
	"typeflow/geom"
)

// The composer builds one finished frame per region. It owns everything that
// cuts across columns: the footnote area at the region bottom, float
// insertions at the region and column edges, and the relayout protocol that
// retries a scope at most once per region when an insertion invalidates
// content that was already distributed.

type composer struct {
	e    *Engine
	cfg  *Config
	sink *diag.Sink

	// lineNo persists across regions when numbering in document scope.
	lineNo int

	// Everything below is per-region state, wiped by reset.
	regionW geom.Abs
	regionH geom.Abs
	expandY bool
	// final marks the last region of a finite sequence: content that does
	// not fit has nowhere to go and overflows.
	final bool

	relayoutDone map[common.PlacementScope]bool
	// preSkipped are insertions already incorporated in this region; they are
	// re-applied to every fresh work snapshot so retries do not place them
	// twice.
	preSkipped []int

	pageTop    []*insert
	pageBottom []*insert
	colTop     [][]*insert
	colBottom  [][]*insert

	foot footnoteArea
	// noteSpill is the tail of a reserved entry that ran over the area limit.
	// It lives here rather than in the work so it survives discarded region
	// attempts, and is committed into the work when the region is done.
	noteSpill *noteSpill

	cols []columnResult
}

// insert is an incorporated float: the frame plus the clearance separating it
// from column content.
type insert struct {
	frame     *geom.Frame
	clearance geom.Abs
}

func (in *insert) height() geom.Abs {
	return in.frame.Height() + in.clearance
}

type columnResult struct {
	items      []colItem
	used       geom.Abs
	hasContent bool
}

type footnoteArea struct {
	pieces []footPiece
	height geom.Abs
}

type footPiece struct {
	gapBefore geom.Abs
	frame     *geom.Frame
}

func (a *footnoteArea) add(gap geom.Abs, line *geom.Frame) {
	a.pieces = append(a.pieces, footPiece{gapBefore: gap, frame: line})
	a.height += gap + line.Height()
}

func newComposer(e *Engine, cfg *Config, sink *diag.Sink) *composer {
	return &composer{e: e, cfg: cfg, sink: sink}
}

func (c *composer) reset(regions geom.Regions) {
	c.regionW = regions.Size.W
	c.regionH = regions.Size.H
	c.expandY = regions.Expand.Y
	c.final = !regions.MayProgress()
	c.relayoutDone = make(map[common.PlacementScope]bool)
	c.preSkipped = c.preSkipped[:0]
	c.pageTop, c.pageBottom = nil, nil
	c.colTop = make([][]*insert, c.cfg.Columns.Count)
	c.colBottom = make([][]*insert, c.cfg.Columns.Count)
	c.foot = footnoteArea{}
	c.noteSpill = nil
	c.cols = nil
	if c.cfg.LineNumbers != nil && c.cfg.LineNumbers.Scope == common.NumberingScopePage {
		c.lineNo = 0
	}
}

// Budgets. The region height splits into page insertions, the footnote area
// and the column space; every reservation shrinks the budgets the distributor
// sees on its next fitting decision.

func (c *composer) pageInsertHeight() geom.Abs {
	var h geom.Abs
	for _, in := range c.pageTop {
		h += in.height()
	}
	for _, in := range c.pageBottom {
		h += in.height()
	}
	return h
}

func (c *composer) colInsertHeight(col int) geom.Abs {
	var h geom.Abs
	for _, in := range c.colTop[col] {
		h += in.height()
	}
	for _, in := range c.colBottom[col] {
		h += in.height()
	}
	return h
}

// columnHeight is the content space of one column under current reservations.
func (c *composer) columnHeight(col int) geom.Abs {
	return c.regionH - c.pageInsertHeight() - c.foot.height - c.colInsertHeight(col)
}

// emptyColumnHeight is the space a column without own insertions offers; a
// frame taller than this cannot be placed without overflowing.
func (c *composer) emptyColumnHeight() geom.Abs {
	return c.regionH - c.pageInsertHeight() - c.foot.height
}

// region composes one frame, consuming as much work as fits. The returned
// stop is nil, or a finish carrying an explicit break request.
func (c *composer) region(w *Work, regions geom.Regions) (*geom.Frame, *Stop) {
	c.reset(regions)
	c.flushQueued(w)

	for {
		snap := w.clone()
		snap.addSkips(c.preSkipped)

		stop := c.columns(snap)
		if stop != nil && stop.kind == stopError {
			return nil, stop
		}
		if stop != nil && stop.kind == stopRelayout {
			if c.relayoutDone[stop.scope] {
				return nil, fatal(diag.Errorf(diag.Location{}, "internal: repeated %s relayout in one region", stop.scope))
			}
			c.relayoutDone[stop.scope] = true
			c.cols = nil
			continue
		}

		frame := c.assemble()
		if c.noteSpill != nil {
			snap.footnoteSpill = c.noteSpill
		}
		*w = *snap
		return frame, stop
	}
}

func (c *composer) columns(w *Work) *Stop {
	for col := 0; col < c.cfg.Columns.Count; col++ {
		if w.done() {
			break
		}
		c.flushColumnFloats(w, col)

		colSnap := w.clone()
		for {
			d := &distributor{c: c, w: w, col: col}
			stop := d.run()

			if stop != nil && stop.kind == stopRelayout && stop.scope == common.ScopeColumn {
				if c.relayoutDone[common.ScopeColumn] {
					return fatal(diag.Errorf(diag.Location{}, "internal: repeated column relayout in one region"))
				}
				// Only the current column is redone; earlier columns stand.
				c.relayoutDone[common.ScopeColumn] = true
				*w = *colSnap
				w.addSkips(c.preSkipped)
				continue
			}
			if stop != nil && stop.kind != stopFinish {
				return stop
			}

			c.cols = append(c.cols, columnResult{items: d.items, used: d.used, hasContent: d.hasContent})
			if stop != nil && stop.region {
				return stop
			}
			break
		}
	}
	return nil
}

// placed handles a floating child during distribution: incorporate it into
// its target area, queue it for a later region, or demand a relayout when the
// insertion invalidates content that is already in place.
func (c *composer) placed(d *distributor, pc *PlacedChild) *Stop {
	ord := pc.loc.Ordinal
	if d.w.hasSkip(ord) {
		d.w.advance()
		return nil
	}

	area := pc.frame.Height() + pc.clearance
	pos := c.resolvePos(d, pc)

	var fits bool
	if pc.scope == common.ScopeColumn {
		fits = area.Fits(d.avail())
	} else {
		fits = (c.pageInsertHeight() + c.foot.height + area).Fits(c.regionH)
	}
	if !fits && pc.frame.Height() > c.regionH {
		// No region will ever hold this; place it overflowing.
		c.sink.Report(diag.Warnf(pc.loc, "floating element of height %s does not fit the region, overflowing", pc.frame.Height()))
		fits = true
	}
	if !fits {
		d.w.floats = append(d.w.floats, pc)
		d.w.advance()
		return nil
	}

	var needsRelayout bool
	if pc.scope == common.ScopeColumn {
		// A bottom insertion only eats remaining space, which we just
		// verified is there; a top insertion shifts placed content.
		needsRelayout = pos == common.PlaceTop && d.hasContent
	} else {
		needsRelayout = d.hasContent || len(c.cols) > 0
	}
	if needsRelayout && c.relayoutDone[pc.scope] {
		// The one relayout of this scope is spent; try again in the next
		// column or region instead of redoing the region a second time.
		d.w.floats = append(d.w.floats, pc)
		d.w.advance()
		return nil
	}

	c.incorporate(d.col, pc, pos)
	c.preSkipped = append(c.preSkipped, ord)
	d.w.addSkip(ord)
	d.w.advance()
	if needsRelayout {
		return relayout(pc.scope)
	}
	return nil
}

// resolvePos turns an automatic placement into top or bottom: floats
// discovered in the upper half of the column float up, later ones sink down.
func (c *composer) resolvePos(d *distributor, pc *PlacedChild) common.PlacementPos {
	if pc.pos != common.PlaceAuto {
		return pc.pos
	}
	if !d.hasContent || d.used < c.columnHeight(d.col)/2 {
		return common.PlaceTop
	}
	return common.PlaceBottom
}

func (c *composer) incorporate(col int, pc *PlacedChild, pos common.PlacementPos) {
	in := &insert{frame: pc.frame, clearance: pc.clearance}
	switch {
	case pc.scope == common.ScopePage && pos == common.PlaceBottom:
		c.pageBottom = append(c.pageBottom, in)
	case pc.scope == common.ScopePage:
		c.pageTop = append(c.pageTop, in)
	case pos == common.PlaceBottom:
		c.colBottom[col] = append(c.colBottom[col], in)
	default:
		c.colTop[col] = append(c.colTop[col], in)
	}
}

// footnotes reserves area space for entries discovered on a frame about to be
// placed. need is the height the frame still requires in the current column;
// reservations never shrink the column below it.
func (c *composer) footnotes(d *distributor, notes []*noteEntry, need geom.Abs) *Stop {
	if c.cfg.Mode != common.FlowModeRoot {
		// Nested flows do not host footnotes; the enclosing flow collected
		// the entries from the block that started us.
		return nil
	}

	for _, entry := range notes {
		if d.w.hasSkip(entry.ord) {
			continue
		}

		if d.w.footnoteSpill != nil || c.noteSpill != nil || len(d.w.footnotes) > 0 {
			// The area is saturated or entries already migrated; later
			// entries queue up behind them to keep the order.
			c.migrate(d, entry)
			continue
		}

		if len(c.cols) > 0 {
			// Discovered in a later column: the area shrinks columns that
			// are already composed, so the whole region must be redone with
			// the reservation pre-applied.
			if c.relayoutDone[common.ScopePage] {
				c.migrate(d, entry)
				continue
			}
			spill := c.reserveLines(entry, 0, c.reserveLimit(d, need))
			if spill != nil && spill.offset == 0 {
				c.migrate(d, entry)
				continue
			}
			c.noteSpill = spill
			c.preSkipped = append(c.preSkipped, entry.ord)
			d.w.addSkip(entry.ord)
			return relayout(common.ScopePage)
		}

		// First column: the budgets shrink live, nothing composed yet is
		// invalidated.
		spill := c.reserveLines(entry, 0, c.reserveLimit(d, need))
		if spill != nil && spill.offset == 0 {
			// Not even one line fits next to the marker; the entry moves to
			// the next region, the marker stays.
			c.migrate(d, entry)
			continue
		}
		c.preSkipped = append(c.preSkipped, entry.ord)
		d.w.addSkip(entry.ord)
		c.noteSpill = spill
	}
	return nil
}

func (c *composer) migrate(d *distributor, entry *noteEntry) {
	d.w.footnotes = append(d.w.footnotes, entry)
	d.w.addSkip(entry.ord)
}

// reserveLimit is the largest footnote area that keeps every composed column
// and the current column (including the frame being placed) intact.
func (c *composer) reserveLimit(d *distributor, need geom.Abs) geom.Abs {
	limit := c.regionH - c.pageInsertHeight() - c.colInsertHeight(d.col) - d.used - need
	for i, col := range c.cols {
		l := c.regionH - c.pageInsertHeight() - c.colInsertHeight(i) - col.used
		limit = limit.Min(l)
	}
	return limit
}

// reserveLines moves entry lines starting at from into the area while its
// total height stays within limit. Returns nil when the whole tail fits, or a
// spill for the remainder (offset == from when nothing was reserved).
func (c *composer) reserveLines(entry *noteEntry, from int, limit geom.Abs) *noteSpill {
	for i := from; i < len(entry.lines); i++ {
		line := entry.lines[i]
		gap := c.footGap(i == 0)
		if !(c.foot.height + gap + line.Height()).Fits(limit) {
			return &noteSpill{entry: entry, offset: i}
		}
		c.foot.add(gap, line)
	}
	return nil
}

// footGap is the spacing preceding the next reserved line: separator overhead
// when the area is empty, the entry gap when a new entry starts.
func (c *composer) footGap(entryStart bool) geom.Abs {
	var g geom.Abs
	if c.foot.height == 0 {
		g = c.cfg.Footnote.Clearance + c.cfg.Footnote.SepThickness
	}
	if entryStart {
		g += c.cfg.Footnote.Gap
	}
	return g
}

// flushQueued drains content queued for this region while it is still
// untouched: the footnote continuation, queued entries and waiting floats.
// Incorporating them now needs no relayout because nothing is placed yet.
func (c *composer) flushQueued(w *Work) {
	// Footnotes may not starve ordinary content: while any remains, the area
	// keeps at least half the region free.
	limit := c.regionH
	if len(w.children) > 0 || w.spill != nil {
		limit = c.regionH / 2
	}

	if s := w.footnoteSpill; s != nil {
		w.footnoteSpill = c.reserveLines(s.entry, s.offset, limit)
	}
	for len(w.footnotes) > 0 && w.footnoteSpill == nil {
		entry := w.footnotes[0]
		spill := c.reserveLines(entry, 0, limit)
		if spill != nil && spill.offset == 0 {
			break
		}
		w.footnotes = w.footnotes[1:]
		w.footnoteSpill = spill
	}

	var keep []*PlacedChild
	for _, pc := range w.floats {
		pos := pc.pos
		if pos == common.PlaceAuto {
			pos = common.PlaceTop
		}
		area := pc.frame.Height() + pc.clearance
		switch {
		case pc.frame.Height() > c.regionH:
			c.sink.Report(diag.Warnf(pc.loc, "floating element of height %s does not fit the region, overflowing", pc.frame.Height()))
			c.incorporate(0, pc, pos)
		case pc.scope == common.ScopePage && (c.pageInsertHeight()+c.foot.height+area).Fits(limit):
			c.incorporate(0, pc, pos)
		case pc.scope == common.ScopeColumn && area.Fits(c.columnHeight(0) - (c.regionH - limit)):
			c.incorporate(0, pc, pos)
		default:
			keep = append(keep, pc)
		}
	}
	w.floats = keep
}

// flushColumnFloats places queued column-scope floats into a column that is
// about to be distributed, while it is still empty. Incorporations are
// recorded as skips because w is a region attempt snapshot: a retried attempt
// sees the floats queued again and must drop them.
func (c *composer) flushColumnFloats(w *Work, col int) {
	var keep []*PlacedChild
	for _, pc := range w.floats {
		if w.hasSkip(pc.loc.Ordinal) {
			continue
		}
		if pc.scope != common.ScopeColumn {
			keep = append(keep, pc)
			continue
		}
		area := pc.frame.Height() + pc.clearance
		if !area.Fits(c.columnHeight(col)) {
			keep = append(keep, pc)
			continue
		}
		pos := pc.pos
		if pos == common.PlaceAuto {
			pos = common.PlaceTop
		}
		c.incorporate(col, pc, pos)
		c.preSkipped = append(c.preSkipped, pc.loc.Ordinal)
		w.addSkip(pc.loc.Ordinal)
	}
	w.floats = keep
}

// assemble builds the finished region frame from the composed columns and the
// incorporated insertions.
func (c *composer) assemble() *geom.Frame {
	cw := c.cfg.Columns.Width
	gutter := c.cfg.Columns.Gutter

	var pageTopH, pageBottomH geom.Abs
	for _, in := range c.pageTop {
		pageTopH += in.height()
	}
	for _, in := range c.pageBottom {
		pageBottomH += in.height()
	}

	colFrames := make([]*geom.Frame, len(c.cols))
	var colExtent geom.Abs
	for i, col := range c.cols {
		frame, extent := c.buildColumn(i, col)
		colFrames[i] = frame
		colExtent = colExtent.Max(extent)
	}

	height := c.regionH
	if !c.expandY {
		height = pageTopH + colExtent + pageBottomH + c.foot.height
	}
	width := c.regionW
	if !width.IsFinite() {
		width = cw
	}

	frame := geom.NewFrame(geom.Size{W: width, H: height})

	y := geom.Abs(0)
	for _, in := range c.pageTop {
		frame.PushFrame(geom.Point{Y: y}, in.frame)
		y += in.height()
	}

	for i, cf := range colFrames {
		x := geom.Abs(i) * (cw + gutter)
		if c.cfg.Columns.Dir == geom.RTL {
			x = width - cw - x
		}
		frame.PushFrame(geom.Point{X: x, Y: y}, cf)
	}

	by := height - c.foot.height - pageBottomH
	for _, in := range c.pageBottom {
		by += in.clearance
		frame.PushFrame(geom.Point{Y: by}, in.frame)
		by += in.frame.Height()
	}

	if c.foot.height > 0 {
		ay := height - c.foot.height
		sep := geom.RuleItem{
			Length:    geom.Abs(c.cfg.Footnote.SepLength) * cw,
			Thickness: c.cfg.Footnote.SepThickness,
		}
		sepX := geom.Abs(0)
		if c.cfg.Columns.Dir == geom.RTL {
			sepX = width - sep.Length
		}
		frame.Push(geom.Point{X: sepX, Y: ay + c.cfg.Footnote.Clearance}, sep)
		for _, piece := range c.foot.pieces {
			ay += piece.gapBefore
			frame.PushFrame(geom.Point{Y: ay}, piece.frame)
			ay += piece.frame.Height()
		}
	}

	return frame
}

// buildColumn assembles one column frame and returns it with its content
// extent (insertions included).
func (c *composer) buildColumn(i int, col columnResult) (*geom.Frame, geom.Abs) {
	cw := c.cfg.Columns.Width

	var topH, bottomH geom.Abs
	for _, in := range c.colTop[i] {
		topH += in.height()
	}
	for _, in := range c.colBottom[i] {
		bottomH += in.height()
	}
	extent := topH + col.used + bottomH

	colH := extent
	if c.expandY {
		colH = (c.regionH - c.pageInsertHeight() - c.foot.height).Max(extent)
	}

	frame := geom.NewFrame(geom.Size{W: cw, H: colH})

	y := geom.Abs(0)
	for _, in := range c.colTop[i] {
		frame.PushFrame(geom.Point{Y: y}, in.frame)
		y += in.height()
	}

	for _, item := range col.items {
		iy := y + item.y
		if item.tag != nil {
			frame.Push(geom.Point{Y: iy}, *item.tag)
			continue
		}
		frame.PushFrame(geom.Point{Y: iy}, item.frame)
		if item.numbered && c.cfg.LineNumbers != nil {
			c.lineNo++
			frame.Push(c.numberPos(iy, strconv.Itoa(c.lineNo)), geom.TextItem{
				Text: strconv.Itoa(c.lineNo),
				Size: c.cfg.Shared.FontSize,
			})
		}
	}

	by := colH - bottomH
	for _, in := range c.colBottom[i] {
		by += in.clearance
		frame.PushFrame(geom.Point{Y: by}, in.frame)
		by += in.frame.Height()
	}

	return frame, extent
}

// numberPos places a line number in the margin: left of the column for LTR,
// right of it for RTL.
func (c *composer) numberPos(y geom.Abs, num string) geom.Point {
	clearance := c.cfg.LineNumbers.Clearance
	if c.cfg.Columns.Dir == geom.RTL {
		return geom.Point{X: c.cfg.Columns.Width + clearance, Y: y}
	}
	w := c.e.measurer.Advance(num, c.cfg.Shared.FontSize)
	return geom.Point{X: -clearance - w, Y: y}
}
