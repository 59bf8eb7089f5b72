package flow

import (
	"typeflow/common"
	"typeflow/diag"
	"typeflow/geom"
)

// The distributor fills a single column with flow children, stopping when the
// column is full, a break was requested, or an insertion demands that already
// composed content be redone. All fitting decisions are made against
// pre-measured heights; the composer owns the shared budgets (footnote area,
// float insertions) that shrink the column while distribution runs.

type distributor struct {
	c   *composer
	w   *Work
	col int

	// used is the content height consumed so far, excluding insertions.
	used geom.Abs
	// lastBelow is the pending bottom spacing of the previously placed child,
	// collapsed against the next child's top spacing.
	lastBelow  geom.Abs
	hasContent bool
	items      []colItem
}

// colItem is one placed piece of column content. Either frame or tag is set.
type colItem struct {
	y        geom.Abs
	frame    *geom.Frame
	tag      *geom.TagItem
	numbered bool
}

// avail is the remaining space of the column under the current budgets.
func (d *distributor) avail() geom.Abs {
	return d.c.columnHeight(d.col) - d.used
}

func (d *distributor) run() *Stop {
	for {
		if d.w.spill != nil {
			if stop := d.continueSpill(); stop != nil {
				return stop
			}
			continue
		}
		child := d.w.head()
		if child == nil {
			// Tags with no content after them attach at the end of the last
			// column that sees them.
			if d.w.done() {
				d.flushTags()
			}
			return nil
		}
		if stop := d.child(child); stop != nil {
			return stop
		}
	}
}

// flushTags attaches queued tags at the current position. Tags queue until
// the content following them is placed, so a tag whose content migrated to a
// later column or region lands on the frame that finally holds it.
func (d *distributor) flushTags() {
	for i := range d.w.tags {
		tag := d.w.tags[i]
		d.items = append(d.items, colItem{y: d.used, tag: &tag})
	}
	d.w.tags = nil
}

func (d *distributor) child(child Child) *Stop {
	switch child := child.(type) {
	case tagChild:
		d.w.tags = append(d.w.tags, child.tag)
		d.w.advance()
		return nil

	case breakChild:
		d.w.advance()
		if child.kind == common.BreakRegion {
			return finishRegion()
		}
		return finish(true)

	case *LineChild:
		return d.frame(child.loc, child.frame, child.spaceAbove, child.spaceBelow, child.notes, child.numbered)

	case *SingleChild:
		return d.frame(child.loc, child.frame, child.spaceAbove, child.spaceBelow, child.notes, false)

	case *MultiChild:
		return d.multi(child)

	case *PlacedChild:
		return d.c.placed(d, child)

	default:
		return fatal(diag.Errorf(diag.Location{}, "internal: unknown child variant %T", child))
	}
}

// frame places one indivisible frame, or ends the column when it does not
// fit. A frame that cannot fit any column is placed overflowing with a
// diagnostic so layout always terminates.
func (d *distributor) frame(loc diag.Location, frame *geom.Frame, above, below geom.Abs, notes []*noteEntry, numbered bool) *Stop {
	gap := geom.Abs(0)
	if d.hasContent {
		gap = d.lastBelow.Max(above)
	}

	if !(gap + frame.Height()).Fits(d.avail()) {
		switch {
		case !d.hasContent && frame.Height() > d.c.emptyColumnHeight():
			d.c.sink.Report(diag.Warnf(loc, "content of height %s does not fit the region, overflowing", frame.Height()))
		case d.c.final && d.col == d.c.cfg.Columns.Count-1:
			// The region sequence is exhausted; overflow instead of losing
			// content.
		default:
			return finish(false)
		}
	}

	// Footnote entries discovered on this frame reserve their space before
	// the frame itself is committed.
	if stop := d.c.footnotes(d, notes, gap+frame.Height()); stop != nil {
		return stop
	}

	d.place(gap, frame, below, numbered)
	d.w.advance()
	return nil
}

func (d *distributor) place(gap geom.Abs, frame *geom.Frame, below geom.Abs, numbered bool) {
	d.used += gap
	d.flushTags()
	d.items = append(d.items, colItem{y: d.used, frame: frame, numbered: numbered})
	d.used += frame.Height()
	d.lastBelow = below
	d.hasContent = true
}

// multi starts a breakable block: place as many rows as fit, spill the rest.
func (d *distributor) multi(child *MultiChild) *Stop {
	gap := geom.Abs(0)
	if d.hasContent {
		gap = d.lastBelow.Max(child.spaceAbove)
	}

	frame, notes, rest := child.layout(nil, d.avail()-gap, !d.hasContent)
	if frame == nil {
		if d.hasContent {
			return finish(false)
		}
		// Forced layout of an empty-row block yields nothing to place.
		d.w.advance()
		return nil
	}

	if stop := d.c.footnotes(d, notes, gap+frame.Height()); stop != nil {
		return stop
	}

	below := child.spaceBelow
	if rest != nil {
		below = 0
	}
	d.place(gap, frame, below, false)
	d.w.advance()
	d.w.spill = rest
	if rest != nil {
		// The block continues in the next column or region.
		return finish(false)
	}
	return nil
}

// continueSpill resumes a block split by an earlier column. Continuations
// start flush at the column top, without the block's top spacing.
func (d *distributor) continueSpill() *Stop {
	spill := d.w.spill
	child := spill.child

	frame, notes, rest := child.layout(spill, d.avail(), !d.hasContent)
	if frame == nil {
		if d.hasContent {
			return finish(false)
		}
		// Forced layout always makes progress on a non-empty spill; nothing
		// returned means the spill was already exhausted.
		d.w.spill = nil
		return nil
	}

	if stop := d.c.footnotes(d, notes, frame.Height()); stop != nil {
		return stop
	}

	below := child.spaceBelow
	if rest != nil {
		below = 0
	}
	d.place(0, frame, below, false)
	d.w.spill = rest
	if rest != nil {
		return finish(false)
	}
	return nil
}

// layout produces the next piece of a breakable block: everything that fits
// into budget starting from the given spill point. force demands progress
// even when nothing fits, for columns that would otherwise stay empty. A nil
// frame means no progress was made (or possible).
func (m *MultiChild) layout(from *MultiSpill, budget geom.Abs, force bool) (*geom.Frame, []*noteEntry, *MultiSpill) {
	if m.rows == nil {
		return m.layoutSized(from, budget, force)
	}

	row := 0
	if from != nil {
		row = from.row
	}

	var taken geom.Abs
	var notes []*noteEntry
	end := row
	for end < len(m.rows) {
		h := m.rows[end].frame.Height()
		if !(taken + h).Fits(budget) {
			if !(force && end == row) {
				break
			}
			// Take one row regardless, overflowing the column.
		}
		taken += h
		notes = append(notes, m.rows[end].notes...)
		end++
		force = false
	}
	if end == row {
		return nil, nil, from
	}

	frame := geom.NewFrame(geom.Size{W: m.width, H: taken})
	y := geom.Abs(0)
	for i := row; i < end; i++ {
		frame.PushFrame(geom.Point{Y: y}, m.rows[i].frame)
		y += m.rows[i].frame.Height()
	}

	var rest *MultiSpill
	if end < len(m.rows) {
		rest = &MultiSpill{child: m, row: end}
	}
	return frame, notes, rest
}

// layoutSized slices an opaque sized block at an arbitrary height.
func (m *MultiChild) layoutSized(from *MultiSpill, budget geom.Abs, force bool) (*geom.Frame, []*noteEntry, *MultiSpill) {
	var consumed geom.Abs
	if from != nil {
		consumed = from.consumed
	}
	remaining := m.total - consumed

	take := remaining.Min(budget.Max(0))
	if take <= geom.Eps {
		if !force || remaining <= geom.Eps {
			return nil, nil, from
		}
		// No room anywhere: place the rest overflowing.
		take = remaining
	}

	frame := geom.NewFrame(geom.Size{W: m.width, H: take})
	frame.Push(geom.Point{}, geom.ElemItem{Kind: "block"})

	var rest *MultiSpill
	if remaining-take > geom.Eps {
		rest = &MultiSpill{child: m, consumed: consumed + take}
	}
	return frame, nil, rest
}
